package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

type ExtensionState string

const (
	ExtensionStateUnknown ExtensionState = "UNKNOWN"
	// Pre-scheduler checks and setup.
	ExtensionStateProcessing ExtensionState = "PROCESSING"
	ExtensionStateRunning    ExtensionState = "RUNNING"
	ExtensionStateExited     ExtensionState = "EXITED"
)

type ExtensionStatus string

const (
	ExtensionStatusUnknown ExtensionStatus = "UNKNOWN"
	ExtensionStatusEnabled ExtensionStatus = "ENABLED"
	// Disabled extensions are not started and their subscriptions do not fire.
	ExtensionStatusDisabled ExtensionStatus = "DISABLED"
)

// Extension is the in-memory representation of a running extension container. Only the
// registration portion is persisted; the rest is rebuilt on every server start.
type Extension struct {
	Registration ExtensionRegistration `json:"registration" doc:"The stored registration for this extension"`

	// The address the main process can reach the extension container on.
	URL           string         `json:"url" example:"http://extension_cron:8082" doc:"Address the extension listens on"`
	Started       uint64         `json:"started" example:"1712433802634" doc:"Time the extension container was started in epoch milliseconds"`
	State         ExtensionState `json:"state" example:"RUNNING" doc:"Where in its lifecycle the extension currently is"`
	Documentation string         `json:"documentation" doc:"Documentation provided by the extension itself"`

	// Secret the main process uses to authenticate calls to the extension. Regenerated on every
	// extension start; never persisted or serialized.
	Key string `json:"-"`
}

// ExtensionRegistration is the persisted record a Gofer administrator creates when
// installing an extension.
type ExtensionRegistration struct {
	ID           string          `json:"id" example:"cron" doc:"Unique identifier for the extension"`
	Image        string          `json:"image" example:"ghcr.io/clintjedwards/gofer/extensions/cron:latest" doc:"Container image for the extension"`
	RegistryAuth *RegistryAuth   `json:"registry_auth,omitempty" doc:"Credentials for the image's registry if it is private"`
	Variables    []Variable      `json:"variables" doc:"Environment variables passed to the extension container"`
	Created      uint64          `json:"created" example:"1712433802634" doc:"Time the extension was installed in epoch milliseconds"`
	Status       ExtensionStatus `json:"status" example:"ENABLED" doc:"Whether the extension is allowed to run"`

	// Identifier for the client token handed to the extension so it can call back into the API.
	KeyID string `json:"key_id" doc:"Identifier for the extension's API token"`
}

func NewExtensionRegistration(id, image string, registryAuth *RegistryAuth, variables []Variable) *ExtensionRegistration {
	return &ExtensionRegistration{
		ID:           id,
		Image:        image,
		RegistryAuth: registryAuth,
		Variables:    variables,
		Created:      uint64(time.Now().UnixMilli()),
		Status:       ExtensionStatusEnabled,
		KeyID:        "",
	}
}

func (tr *ExtensionRegistration) ToStorage() *storage.GlobalExtensionRegistration {
	registryAuth, err := json.Marshal(tr.RegistryAuth)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	variables, err := json.Marshal(tr.Variables)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	return &storage.GlobalExtensionRegistration{
		ID:           tr.ID,
		Image:        tr.Image,
		RegistryAuth: string(registryAuth),
		Variables:    string(variables),
		Created:      fmt.Sprint(tr.Created),
		Status:       string(tr.Status),
		KeyID:        tr.KeyID,
	}
}

func (tr *ExtensionRegistration) FromStorage(str *storage.GlobalExtensionRegistration) {
	created, err := strconv.ParseUint(str.Created, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var registryAuth *RegistryAuth
	if err := json.Unmarshal([]byte(str.RegistryAuth), &registryAuth); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var variables []Variable
	if err := json.Unmarshal([]byte(str.Variables), &variables); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	tr.ID = str.ID
	tr.Image = str.Image
	tr.RegistryAuth = registryAuth
	tr.Variables = variables
	tr.Created = created
	tr.Status = ExtensionStatus(str.Status)
	tr.KeyID = str.KeyID
}

type PipelineExtensionSubscriptionStatus string

const (
	PipelineExtensionSubscriptionStatusUnknown PipelineExtensionSubscriptionStatus = "UNKNOWN"
	PipelineExtensionSubscriptionStatusActive  PipelineExtensionSubscriptionStatus = "ACTIVE"
	// The extension rejected the subscription or could not be reached; events will not fire.
	PipelineExtensionSubscriptionStatusError PipelineExtensionSubscriptionStatus = "ERROR"
)

type PipelineExtensionSubscriptionStatusReasonKind string

const (
	PipelineExtensionSubscriptionStatusReasonUnknown                     PipelineExtensionSubscriptionStatusReasonKind = "UNKNOWN"
	PipelineExtensionSubscriptionStatusReasonExtensionSubscriptionFailed PipelineExtensionSubscriptionStatusReasonKind = "EXTENSION_SUBSCRIPTION_FAILED"
)

type PipelineExtensionSubscriptionStatusReason struct {
	Reason      PipelineExtensionSubscriptionStatusReasonKind `json:"reason" example:"EXTENSION_SUBSCRIPTION_FAILED" doc:"Short machine readable reason for the status"`
	Description string                                        `json:"description" doc:"Humanized description for the status"`
}

// PipelineExtensionSubscription ties a pipeline to an extension so that the extension can start
// runs on the pipeline's behalf.
type PipelineExtensionSubscription struct {
	Namespace    string                                    `json:"namespace" example:"my_namespace" doc:"Unique identifier for the namespace"`
	Pipeline     string                                    `json:"pipeline" example:"my_pipeline" doc:"Unique identifier for the pipeline"`
	Extension    string                                    `json:"extension" example:"cron" doc:"The extension subscribed to"`
	Label        string                                    `json:"label" example:"every_five_minutes" doc:"Pipeline chosen name for the subscription"`
	Settings     map[string]string                         `json:"settings" doc:"Extension specific settings for the subscription"`
	Status       PipelineExtensionSubscriptionStatus       `json:"status" example:"ACTIVE" doc:"Whether the subscription is healthy"`
	StatusReason PipelineExtensionSubscriptionStatusReason `json:"status_reason" doc:"More information on the subscription's status; may be empty"`
}

func (ts *PipelineExtensionSubscription) ToStorage() *storage.PipelineExtensionSubscription {
	settings, err := json.Marshal(ts.Settings)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	statusReason, err := json.Marshal(ts.StatusReason)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	return &storage.PipelineExtensionSubscription{
		Namespace:    ts.Namespace,
		Pipeline:     ts.Pipeline,
		Extension:    ts.Extension,
		Label:        ts.Label,
		Settings:     string(settings),
		Status:       string(ts.Status),
		StatusReason: string(statusReason),
	}
}

func (ts *PipelineExtensionSubscription) FromStorage(sts *storage.PipelineExtensionSubscription) {
	var settings map[string]string
	if err := json.Unmarshal([]byte(sts.Settings), &settings); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var statusReason PipelineExtensionSubscriptionStatusReason
	if err := json.Unmarshal([]byte(sts.StatusReason), &statusReason); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	ts.Namespace = sts.Namespace
	ts.Pipeline = sts.Pipeline
	ts.Extension = sts.Extension
	ts.Label = sts.Label
	ts.Settings = settings
	ts.Status = PipelineExtensionSubscriptionStatus(sts.Status)
	ts.StatusReason = statusReason
}
