package api

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/scheduler"
	"github.com/clintjedwards/gofer/internal/storage"

	"github.com/rs/zerolog/log"
)

// Extensions speak a small JSON over HTTP protocol. Gofer calls these routes on the extension
// container; the extension calls back into the normal Gofer API with the token it was handed on
// startup.
const (
	extensionRouteInfo          = "/api/info"
	extensionRouteSubscribe     = "/api/subscribe"
	extensionRouteUnsubscribe   = "/api/unsubscribe"
	extensionRouteShutdown      = "/api/shutdown"
	extensionRouteExternalEvent = "/api/external-event"
)

type extensionInfoResponse struct {
	Documentation string `json:"documentation"`
}

type extensionSubscriptionRequest struct {
	NamespaceID string            `json:"namespace_id"`
	PipelineID  string            `json:"pipeline_id"`
	Label       string            `json:"label"`
	Settings    map[string]string `json:"settings"`
}

// extensionClient is a typed HTTP client for a single running extension container.
type extensionClient struct {
	url    string
	secret string
	client *http.Client
}

// newExtensionClient returns a client for the extension at the given base URL. Extension
// containers serve TLS with certificates minted from the server's own cert so hostname
// verification is skipped.
func newExtensionClient(url, secret string) *extensionClient {
	return &extensionClient{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: time.Second * 30,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

func (c *extensionClient) do(method, route string, reqBody, respBody any) error {
	var payload *bytes.Reader = bytes.NewReader(nil)
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.url+route, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("extension returned status %d", resp.StatusCode)
	}

	if respBody != nil {
		return json.NewDecoder(resp.Body).Decode(respBody)
	}

	return nil
}

func (c *extensionClient) Info() (extensionInfoResponse, error) {
	var info extensionInfoResponse
	err := c.do(http.MethodGet, extensionRouteInfo, nil, &info)
	return info, err
}

func (c *extensionClient) Subscribe(req extensionSubscriptionRequest) error {
	return c.do(http.MethodPost, extensionRouteSubscribe, req, nil)
}

func (c *extensionClient) Unsubscribe(req extensionSubscriptionRequest) error {
	return c.do(http.MethodPost, extensionRouteUnsubscribe, req, nil)
}

func (c *extensionClient) Shutdown() error {
	return c.do(http.MethodPost, extensionRouteShutdown, nil, nil)
}

func (c *extensionClient) ExternalEvent(payload []byte) error {
	req, err := http.NewRequest(http.MethodPost, c.url+extensionRouteExternalEvent, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("extension returned status %d", resp.StatusCode)
	}

	return nil
}

// extensionClientFromCache returns a client for a currently registered extension.
func (apictx *APIContext) extensionClientFromCache(id string) (*extensionClient, error) {
	extension, exists := apictx.extensions.Get(id)
	if !exists {
		return nil, fmt.Errorf("extension %q is not currently running", id)
	}

	return newExtensionClient(extension.URL, extension.Key), nil
}

// startExtension launches a single extension container and waits for it to become reachable.
// Each start mints the extension a fresh management token for its API callbacks and a fresh
// shared secret for calls in the other direction.
func (apictx *APIContext) startExtension(registration models.ExtensionRegistration) error {
	// Revoke whatever token the previous incarnation was holding.
	if registration.KeyID != "" {
		if err := apictx.db.DeleteTokenByHash(apictx.db, registration.KeyID); err != nil &&
			!errors.Is(err, storage.ErrEntityNotFound) {
			log.Error().Err(err).Str("extension", registration.ID).Msg("could not revoke stale extension token")
		}
	}

	apiToken, hash := apictx.createNewAPIToken()
	newToken := models.NewToken(hash, models.TokenKindManagement, []string{}, map[string]string{
		"extension": registration.ID,
	}, time.Hour*876600)

	if err := apictx.db.InsertToken(apictx.db, newToken.ToStorage()); err != nil {
		return fmt.Errorf("could not create extension token: %w", err)
	}

	err := apictx.db.UpdateGlobalExtensionRegistration(apictx.db, registration.ID,
		storage.UpdatableGlobalExtensionRegistrationFields{
			KeyID: ptr(hash),
		})
	if err != nil {
		return fmt.Errorf("could not store extension token id: %w", err)
	}
	registration.KeyID = hash

	cert, key, err := apictx.getTLSFromFile(apictx.config.Server.TLSCertPath, apictx.config.Server.TLSKeyPath)
	if err != nil {
		return fmt.Errorf("could not load TLS certificates for extension: %w", err)
	}

	secret := generateToken(32)

	envVars := convertVarsToMap(registration.Variables)
	envVars["GOFER_EXTENSION_SYSTEM_ID"] = registration.ID
	envVars["GOFER_EXTENSION_SYSTEM_LOG_LEVEL"] = apictx.config.LogLevel
	envVars["GOFER_EXTENSION_SYSTEM_GOFER_HOST"] = apictx.config.APIHost
	envVars["GOFER_EXTENSION_SYSTEM_KEY"] = apiToken
	envVars["GOFER_EXTENSION_SYSTEM_SECRET"] = secret
	envVars["GOFER_EXTENSION_SYSTEM_TLS_CERT"] = base64.StdEncoding.EncodeToString(cert)
	envVars["GOFER_EXTENSION_SYSTEM_TLS_KEY"] = base64.StdEncoding.EncodeToString(key)

	containerID := extensionContainerID(registration.ID)

	response, err := apictx.scheduler.StartContainer(scheduler.StartContainerRequest{
		ID:               containerID,
		ImageName:        registration.Image,
		EnvVars:          envVars,
		RegistryAuth:     registration.RegistryAuth,
		AlwaysPull:       true,
		EnableNetworking: true,
	})
	if err != nil {
		return fmt.Errorf("could not start extension container: %w", err)
	}

	client := newExtensionClient(response.URL, secret)

	// The container can take a moment to bind its listener; poll the info endpoint until it
	// answers before declaring the extension up.
	var info extensionInfoResponse
	getInfo := func() error {
		var err error
		info, err = client.Info()
		return err
	}
	if err := backoff.Retry(getInfo, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 10)); err != nil {
		return fmt.Errorf("extension container never became reachable: %w", err)
	}

	apictx.extensions.Set(registration.ID, &models.Extension{
		Registration:  registration,
		URL:           response.URL,
		Started:       uint64(time.Now().UnixMilli()),
		State:         models.ExtensionStateRunning,
		Documentation: info.Documentation,
		Key:           secret,
	})

	log.Info().Str("extension", registration.ID).Str("url", response.URL).Msg("started extension")

	return nil
}

// startExtensions starts all enabled extension registrations found in storage.
func (apictx *APIContext) startExtensions() error {
	registrations, err := apictx.db.ListGlobalExtensionRegistrations(apictx.db, 0, 0)
	if err != nil {
		return err
	}

	for _, registrationRaw := range registrations {
		var registration models.ExtensionRegistration
		registration.FromStorage(&registrationRaw)

		if registration.Status != models.ExtensionStatusEnabled {
			continue
		}

		if err := apictx.startExtension(registration); err != nil {
			return fmt.Errorf("could not start extension %q: %w", registration.ID, err)
		}
	}

	return nil
}

// stopExtension asks an extension to shut down cleanly and then stops its container.
func (apictx *APIContext) stopExtension(extension *models.Extension) {
	client := newExtensionClient(extension.URL, extension.Key)
	if err := client.Shutdown(); err != nil {
		log.Debug().Err(err).Str("extension", extension.Registration.ID).
			Msg("extension did not acknowledge shutdown request")
	}

	err := apictx.scheduler.StopContainer(scheduler.StopContainerRequest{
		ID:      extensionContainerID(extension.Registration.ID),
		Timeout: apictx.config.Extensions.StopTimeout(),
	})
	if err != nil {
		log.Error().Err(err).Str("extension", extension.Registration.ID).Msg("could not stop extension container")
	}

	extension.State = models.ExtensionStateExited
	apictx.extensions.Set(extension.Registration.ID, extension)
}

// stopExtensions stops every running extension; called during shutdown.
func (apictx *APIContext) stopExtensions() {
	for _, id := range apictx.extensions.Keys() {
		extension, exists := apictx.extensions.Get(id)
		if !exists {
			continue
		}

		if extension.State != models.ExtensionStateRunning {
			continue
		}

		apictx.stopExtension(extension)
	}
}

// restoreExtensionSubscriptions replays all stored pipeline subscriptions back to their
// extensions. Extensions keep subscription state only in memory so every server start has
// to rebuild it.
func (apictx *APIContext) restoreExtensionSubscriptions() error {
	for _, id := range apictx.extensions.Keys() {
		extension, exists := apictx.extensions.Get(id)
		if !exists {
			continue
		}

		subscriptions, err := apictx.db.ListExtensionSubscriptions(apictx.db, id)
		if err != nil {
			return fmt.Errorf("could not list subscriptions for extension %q: %w", id, err)
		}

		client := newExtensionClient(extension.URL, extension.Key)

		for _, subscriptionRaw := range subscriptions {
			var subscription models.PipelineExtensionSubscription
			subscription.FromStorage(&subscriptionRaw)

			err := client.Subscribe(extensionSubscriptionRequest{
				NamespaceID: subscription.Namespace,
				PipelineID:  subscription.Pipeline,
				Label:       subscription.Label,
				Settings:    subscription.Settings,
			})
			if err != nil {
				log.Error().Err(err).Str("extension", id).Str("pipeline", subscription.Pipeline).
					Str("label", subscription.Label).Msg("could not restore extension subscription")

				reason := models.PipelineExtensionSubscriptionStatusReason{
					Reason:      models.PipelineExtensionSubscriptionStatusReasonExtensionSubscriptionFailed,
					Description: fmt.Sprintf("could not restore subscription on startup: %v", err),
				}
				reasonJSON, merr := json.Marshal(reason)
				if merr != nil {
					continue
				}

				uerr := apictx.db.UpdatePipelineExtensionSubscription(apictx.db, subscription.Namespace,
					subscription.Pipeline, id, subscription.Label,
					storage.UpdatablePipelineExtensionSubscriptionFields{
						Status:       ptr(string(models.PipelineExtensionSubscriptionStatusError)),
						StatusReason: ptr(string(reasonJSON)),
					})
				if uerr != nil {
					log.Error().Err(uerr).Msg("could not update subscription status")
				}

				continue
			}

			if subscription.Status != models.PipelineExtensionSubscriptionStatusActive {
				err := apictx.db.UpdatePipelineExtensionSubscription(apictx.db, subscription.Namespace,
					subscription.Pipeline, id, subscription.Label,
					storage.UpdatablePipelineExtensionSubscriptionFields{
						Status: ptr(string(models.PipelineExtensionSubscriptionStatusActive)),
					})
				if err != nil {
					log.Error().Err(err).Msg("could not update subscription status")
				}
			}
		}
	}

	return nil
}

// watchExtensionHealth periodically polls the scheduler for every running extension container
// and records any that have died. Restarting is deliberately left to the operator; a crash
// looping extension container would otherwise thrash the scheduler.
func (apictx *APIContext) watchExtensionHealth() {
	ticker := time.NewTicker(apictx.config.Extensions.HealthcheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-apictx.context.ctx.Done():
			return
		case <-ticker.C:
		}

		for _, id := range apictx.extensions.Keys() {
			extension, exists := apictx.extensions.Get(id)
			if !exists || extension.State != models.ExtensionStateRunning {
				continue
			}

			response, err := apictx.scheduler.GetState(scheduler.GetStateRequest{
				ID: extensionContainerID(id),
			})
			if err != nil {
				log.Error().Err(err).Str("extension", id).Msg("could not check extension container health")
				continue
			}

			if response.State == scheduler.ContainerStateRunning {
				continue
			}

			log.Error().Str("extension", id).Str("state", string(response.State)).
				Msg("extension container is no longer running")

			extension.State = models.ExtensionStateExited
			apictx.extensions.Set(id, extension)
		}
	}
}
