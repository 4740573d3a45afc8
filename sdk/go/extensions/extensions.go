// Package extensions provides the scaffolding for building Gofer extensions.
//
// Extensions are long running containers that Gofer starts alongside itself. Gofer speaks to
// them over a small JSON over HTTPS protocol and they call back into the normal Gofer API to do
// things on behalf of the pipelines subscribed to them, most commonly starting runs.
//
// An extension author implements ExtensionServiceInterface and hands it to NewExtension, which
// takes care of the listener, TLS, authentication, and the protocol routes.
package extensions

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SubscriptionRequest is delivered when a pipeline subscribes to or unsubscribes from the
// extension. Settings are the pipeline chosen, extension specific key/value pairs.
type SubscriptionRequest struct {
	NamespaceID string            `json:"namespace_id"`
	PipelineID  string            `json:"pipeline_id"`
	Label       string            `json:"label"`
	Settings    map[string]string `json:"settings"`
}

// InfoResponse describes the extension to operators. Documentation is surfaced verbatim by the
// `gofer extension get` command.
type InfoResponse struct {
	Documentation string `json:"documentation"`
}

// ExtensionServiceInterface is the surface an extension implements. The harness in this package
// handles transport and auth; implementations only deal with their own domain logic.
type ExtensionServiceInterface interface {
	// Info returns documentation about the extension and its settings.
	Info(ctx context.Context) (*InfoResponse, error)

	// Subscribe registers a pipeline with the extension.
	Subscribe(ctx context.Context, request SubscriptionRequest) error

	// Unsubscribe removes a previously registered pipeline.
	Unsubscribe(ctx context.Context, request SubscriptionRequest) error

	// ExternalEvent handles raw payloads forwarded from Gofer's external events endpoint,
	// normally webhooks from third parties.
	ExternalEvent(ctx context.Context, payload []byte) error

	// Shutdown tells the extension to clean up. Extensions should lean toward quick shutdowns;
	// containers that linger past the server's stop timeout are killed.
	Shutdown(ctx context.Context)
}

// systemConfig is the set of environment variables Gofer hands every extension container on
// start. The GOFER_EXTENSION_SYSTEM prefix keeps them clear of the extension's own config.
type systemConfig struct {
	ID       string `required:"true"`
	LogLevel string `split_words:"true" default:"info"`
	// Address of the Gofer API for callbacks.
	GoferHost string `split_words:"true"`
	// API token the extension uses when calling back into Gofer.
	Key string `required:"true"`
	// Shared secret Gofer presents on every call to the extension.
	Secret string `required:"true"`
	// TLS keypair minted by the server, base64 encoded PEM.
	TLSCert string `split_words:"true" required:"true"`
	TLSKey  string `split_words:"true" required:"true"`
}

func initConfig() (*systemConfig, error) {
	config := systemConfig{}
	if err := envconfig.Process("gofer_extension_system", &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetConfig retrieves an extension specific config variable. Installers pass these through the
// `gofer extension install --var` flag and they arrive in the environment as given.
func GetConfig(name string) string {
	return os.Getenv(strings.ToUpper(name))
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

type extensionServer struct {
	config *systemConfig
	impl   ExtensionServiceInterface
	stop   chan os.Signal
}

func (s *extensionServer) authenticated(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token == s.config.Secret
}

func (s *extensionServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.impl.Info(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

func (s *extensionServer) handleSubscription(
	action func(context.Context, SubscriptionRequest) error,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, "could not decode subscription request", http.StatusBadRequest)
			return
		}

		if err := action(r.Context(), request); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func (s *extensionServer) handleExternalEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "could not read payload", http.StatusBadRequest)
		return
	}

	if err := s.impl.ExternalEvent(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *extensionServer) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	s.stop <- syscall.SIGTERM
}

func (s *extensionServer) routes() http.Handler {
	mux := http.NewServeMux()

	wrap := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !s.authenticated(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("GET /api/info", wrap(s.handleInfo))
	mux.HandleFunc("POST /api/subscribe", wrap(s.handleSubscription(s.impl.Subscribe)))
	mux.HandleFunc("POST /api/unsubscribe", wrap(s.handleSubscription(s.impl.Unsubscribe)))
	mux.HandleFunc("POST /api/external-event", wrap(s.handleExternalEvent))
	mux.HandleFunc("POST /api/shutdown", wrap(s.handleShutdown))

	return mux
}

// Extension containers always serve on 8080; the scheduler maps it to an ephemeral host port.
const listenAddress = ":8080"

// NewExtension takes an implementation of ExtensionServiceInterface and runs it as a Gofer
// extension. It blocks until Gofer asks the extension to shut down or the process receives an
// interrupt.
func NewExtension(impl ExtensionServiceInterface) {
	config, err := initConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read system configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogging(config.LogLevel)

	certPEM, err := base64.StdEncoding.DecodeString(config.TLSCert)
	if err != nil {
		log.Fatal().Err(err).Msg("could not decode TLS certificate")
	}
	keyPEM, err := base64.StdEncoding.DecodeString(config.TLSKey)
	if err != nil {
		log.Fatal().Err(err).Msg("could not decode TLS key")
	}

	keypair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		log.Fatal().Err(err).Msg("could not parse TLS keypair")
	}

	server := &extensionServer{
		config: config,
		impl:   impl,
		stop:   make(chan os.Signal, 1),
	}
	signal.Notify(server.stop, syscall.SIGINT, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:         listenAddress,
		Handler:      server.routes(),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{keypair},
		},
	}

	go func() {
		if err := httpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("extension server exited abnormally")
		}
	}()

	log.Info().Str("extension", config.ID).Str("address", listenAddress).Msg("started extension")

	<-server.stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	impl.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)
}

// Client calls back into the Gofer API on behalf of the extension, authenticated with the token
// the server handed the container on start.
type Client struct {
	host       string
	key        string
	httpClient *http.Client
}

// NewClient builds a Gofer API client from the extension's system configuration.
func NewClient() (*Client, error) {
	config, err := initConfig()
	if err != nil {
		return nil, err
	}

	host := config.GoferHost
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	return &Client{
		host: host,
		key:  config.Key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				// Extensions frequently talk to the server over its own self-signed certificate.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}, nil
}

// StartRun launches a new run for the given pipeline with the extension recorded as initiator.
func (c *Client) StartRun(ctx context.Context, namespace, pipeline string, variables map[string]string, reason string) error {
	extensionID := os.Getenv("GOFER_EXTENSION_SYSTEM_ID")

	body := struct {
		Variables map[string]string `json:"variables"`
		Initiator map[string]string `json:"initiator"`
	}{
		Variables: variables,
		Initiator: map[string]string{
			"type":   "EXTENSION",
			"name":   extensionID,
			"reason": reason,
		},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/namespaces/%s/pipelines/%s/runs", c.host, namespace, pipeline)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil
}
