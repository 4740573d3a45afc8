package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

type EventKind string

const (
	// The Any kind is a special event kind that denotes the caller wants to listen for any event.
	// It should not be used as a normal event type (for example do not publish anything with it).
	// It is internal only and not passed back on event streaming.
	EventKindAny EventKind = "ANY"

	EventKindCreatedNamespace EventKind = "CREATED_NAMESPACE"
	EventKindDeletedNamespace EventKind = "DELETED_NAMESPACE"

	EventKindDisabledPipeline EventKind = "DISABLED_PIPELINE"
	EventKindEnabledPipeline  EventKind = "ENABLED_PIPELINE"
	EventKindCreatedPipeline  EventKind = "CREATED_PIPELINE"
	EventKindDeletedPipeline  EventKind = "DELETED_PIPELINE"

	EventKindRegisteredPipelineConfig EventKind = "REGISTERED_PIPELINE_CONFIG"
	EventKindDeletedPipelineConfig    EventKind = "DELETED_PIPELINE_CONFIG"

	EventKindStartedDeployment   EventKind = "STARTED_DEPLOYMENT"
	EventKindCompletedDeployment EventKind = "COMPLETED_DEPLOYMENT"

	EventKindStartedRun             EventKind = "STARTED_RUN"
	EventKindCompletedRun           EventKind = "COMPLETED_RUN"
	EventKindStartedRunCancellation EventKind = "STARTED_RUN_CANCELLATION"

	EventKindCreatedTaskExecution             EventKind = "CREATED_TASK_EXECUTION"
	EventKindStartedTaskExecution             EventKind = "STARTED_TASK_EXECUTION"
	EventKindCompletedTaskExecution           EventKind = "COMPLETED_TASK_EXECUTION"
	EventKindStartedTaskExecutionCancellation EventKind = "STARTED_TASK_EXECUTION_CANCELLATION"

	EventKindInstalledExtension   EventKind = "INSTALLED_EXTENSION"
	EventKindUninstalledExtension EventKind = "UNINSTALLED_EXTENSION"
	EventKindEnabledExtension     EventKind = "ENABLED_EXTENSION"
	EventKindDisabledExtension    EventKind = "DISABLED_EXTENSION"

	EventKindPipelineExtensionSubscriptionRegistered   EventKind = "PIPELINE_EXTENSION_SUBSCRIPTION_REGISTERED"
	EventKindPipelineExtensionSubscriptionUnregistered EventKind = "PIPELINE_EXTENSION_SUBSCRIPTION_UNREGISTERED"

	EventKindExpiredRunObjects     EventKind = "EXPIRED_RUN_OBJECTS"
	EventKindEvictedPipelineObject EventKind = "EVICTED_PIPELINE_OBJECT"
)

type EventCreatedNamespace struct {
	NamespaceID string `json:"namespace_id"`
}

func (e EventCreatedNamespace) Kind() EventKind {
	return EventKindCreatedNamespace
}

type EventDeletedNamespace struct {
	NamespaceID string `json:"namespace_id"`
}

func (e EventDeletedNamespace) Kind() EventKind {
	return EventKindDeletedNamespace
}

type EventDisabledPipeline struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
}

func (e EventDisabledPipeline) Kind() EventKind {
	return EventKindDisabledPipeline
}

type EventEnabledPipeline struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
}

func (e EventEnabledPipeline) Kind() EventKind {
	return EventKindEnabledPipeline
}

type EventCreatedPipeline struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
}

func (e EventCreatedPipeline) Kind() EventKind {
	return EventKindCreatedPipeline
}

type EventDeletedPipeline struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
}

func (e EventDeletedPipeline) Kind() EventKind {
	return EventKindDeletedPipeline
}

type EventRegisteredPipelineConfig struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
	Version     int64  `json:"version"`
}

func (e EventRegisteredPipelineConfig) Kind() EventKind {
	return EventKindRegisteredPipelineConfig
}

type EventDeletedPipelineConfig struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
	Version     int64  `json:"version"`
}

func (e EventDeletedPipelineConfig) Kind() EventKind {
	return EventKindDeletedPipelineConfig
}

type EventStartedDeployment struct {
	NamespaceID  string `json:"namespace_id"`
	PipelineID   string `json:"pipeline_id"`
	StartVersion int64  `json:"start_version"`
	EndVersion   int64  `json:"end_version"`
}

func (e EventStartedDeployment) Kind() EventKind {
	return EventKindStartedDeployment
}

type EventCompletedDeployment struct {
	NamespaceID  string `json:"namespace_id"`
	PipelineID   string `json:"pipeline_id"`
	StartVersion int64  `json:"start_version"`
	EndVersion   int64  `json:"end_version"`
}

func (e EventCompletedDeployment) Kind() EventKind {
	return EventKindCompletedDeployment
}

type EventStartedRun struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
	RunID       int64  `json:"run_id"`
}

func (e EventStartedRun) Kind() EventKind {
	return EventKindStartedRun
}

type EventCompletedRun struct {
	NamespaceID string    `json:"namespace_id"`
	PipelineID  string    `json:"pipeline_id"`
	RunID       int64     `json:"run_id"`
	Status      RunStatus `json:"status"`
}

func (e EventCompletedRun) Kind() EventKind {
	return EventKindCompletedRun
}

type EventStartedRunCancellation struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
	RunID       int64  `json:"run_id"`
}

func (e EventStartedRunCancellation) Kind() EventKind {
	return EventKindStartedRunCancellation
}

type EventCreatedTaskExecution struct {
	NamespaceID     string `json:"namespace_id"`
	PipelineID      string `json:"pipeline_id"`
	RunID           int64  `json:"run_id"`
	TaskExecutionID string `json:"task_execution_id"`
}

func (e EventCreatedTaskExecution) Kind() EventKind {
	return EventKindCreatedTaskExecution
}

type EventStartedTaskExecution struct {
	NamespaceID     string `json:"namespace_id"`
	PipelineID      string `json:"pipeline_id"`
	RunID           int64  `json:"run_id"`
	TaskExecutionID string `json:"task_execution_id"`
}

func (e EventStartedTaskExecution) Kind() EventKind {
	return EventKindStartedTaskExecution
}

type EventCompletedTaskExecution struct {
	NamespaceID     string              `json:"namespace_id"`
	PipelineID      string              `json:"pipeline_id"`
	RunID           int64               `json:"run_id"`
	TaskExecutionID string              `json:"task_execution_id"`
	Status          TaskExecutionStatus `json:"status"`
}

func (e EventCompletedTaskExecution) Kind() EventKind {
	return EventKindCompletedTaskExecution
}

type EventStartedTaskExecutionCancellation struct {
	NamespaceID     string `json:"namespace_id"`
	PipelineID      string `json:"pipeline_id"`
	RunID           int64  `json:"run_id"`
	TaskExecutionID string `json:"task_execution_id"`
	Timeout         int64  `json:"timeout"`
}

func (e EventStartedTaskExecutionCancellation) Kind() EventKind {
	return EventKindStartedTaskExecutionCancellation
}

type EventInstalledExtension struct {
	Image string `json:"image"`
	Name  string `json:"name"`
}

func (e EventInstalledExtension) Kind() EventKind {
	return EventKindInstalledExtension
}

type EventUninstalledExtension struct {
	Image string `json:"image"`
	Name  string `json:"name"`
}

func (e EventUninstalledExtension) Kind() EventKind {
	return EventKindUninstalledExtension
}

type EventEnabledExtension struct {
	Image string `json:"image"`
	Name  string `json:"name"`
}

func (e EventEnabledExtension) Kind() EventKind {
	return EventKindEnabledExtension
}

type EventDisabledExtension struct {
	Image string `json:"image"`
	Name  string `json:"name"`
}

func (e EventDisabledExtension) Kind() EventKind {
	return EventKindDisabledExtension
}

type EventPipelineExtensionSubscriptionRegistered struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
	ExtensionID string `json:"extension_id"`
	Label       string `json:"label"`
}

func (e EventPipelineExtensionSubscriptionRegistered) Kind() EventKind {
	return EventKindPipelineExtensionSubscriptionRegistered
}

type EventPipelineExtensionSubscriptionUnregistered struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
	ExtensionID string `json:"extension_id"`
	Label       string `json:"label"`
}

func (e EventPipelineExtensionSubscriptionUnregistered) Kind() EventKind {
	return EventKindPipelineExtensionSubscriptionUnregistered
}

type EventExpiredRunObjects struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
	RunID       int64  `json:"run_id"`
}

func (e EventExpiredRunObjects) Kind() EventKind {
	return EventKindExpiredRunObjects
}

type EventEvictedPipelineObject struct {
	NamespaceID string `json:"namespace_id"`
	PipelineID  string `json:"pipeline_id"`
	Key         string `json:"key"`
}

func (e EventEvictedPipelineObject) Kind() EventKind {
	return EventKindEvictedPipelineObject
}

// EventKindMap maps the kind type to an empty instance of the detail type. It is useful
// because it allows us to quickly get back the correct type for events as we pull them
// out of the database.
var EventKindMap = map[EventKind]EventKindDetails{
	EventKindCreatedNamespace: &EventCreatedNamespace{},
	EventKindDeletedNamespace: &EventDeletedNamespace{},

	EventKindDisabledPipeline: &EventDisabledPipeline{},
	EventKindEnabledPipeline:  &EventEnabledPipeline{},
	EventKindCreatedPipeline:  &EventCreatedPipeline{},
	EventKindDeletedPipeline:  &EventDeletedPipeline{},

	EventKindRegisteredPipelineConfig: &EventRegisteredPipelineConfig{},
	EventKindDeletedPipelineConfig:    &EventDeletedPipelineConfig{},

	EventKindStartedDeployment:   &EventStartedDeployment{},
	EventKindCompletedDeployment: &EventCompletedDeployment{},

	EventKindStartedRun:             &EventStartedRun{},
	EventKindCompletedRun:           &EventCompletedRun{},
	EventKindStartedRunCancellation: &EventStartedRunCancellation{},

	EventKindCreatedTaskExecution:             &EventCreatedTaskExecution{},
	EventKindStartedTaskExecution:             &EventStartedTaskExecution{},
	EventKindCompletedTaskExecution:           &EventCompletedTaskExecution{},
	EventKindStartedTaskExecutionCancellation: &EventStartedTaskExecutionCancellation{},

	EventKindInstalledExtension:   &EventInstalledExtension{},
	EventKindUninstalledExtension: &EventUninstalledExtension{},
	EventKindEnabledExtension:     &EventEnabledExtension{},
	EventKindDisabledExtension:    &EventDisabledExtension{},

	EventKindPipelineExtensionSubscriptionRegistered:   &EventPipelineExtensionSubscriptionRegistered{},
	EventKindPipelineExtensionSubscriptionUnregistered: &EventPipelineExtensionSubscriptionUnregistered{},

	EventKindExpiredRunObjects:     &EventExpiredRunObjects{},
	EventKindEvictedPipelineObject: &EventEvictedPipelineObject{},
}

type EventKindDetails interface {
	Kind() EventKind
}

// Event is a single, whole event object. The details are a tagged union keyed by Kind.
type Event struct {
	ID      int64            `json:"id" example:"42" doc:"Unique, monotonically increasing identifier for the event"`
	Kind    EventKind        `json:"kind" example:"CREATED_NAMESPACE" doc:"The type of event"`
	Details EventKindDetails `json:"details" doc:"The event specific payload"`
	Emitted uint64           `json:"emitted" example:"1712433802634" doc:"Time the event was emitted in epoch milliseconds"`
}

func NewEvent(details EventKindDetails) *Event {
	return &Event{
		ID:      0,
		Kind:    details.Kind(),
		Details: details,
		Emitted: uint64(time.Now().UnixMilli()),
	}
}

func (e *Event) ToStorage() *storage.Event {
	details, err := json.Marshal(e.Details)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	return &storage.Event{
		ID:      e.ID,
		Kind:    string(e.Kind),
		Details: string(details),
		Emitted: fmt.Sprint(e.Emitted),
	}
}

func (e *Event) FromStorage(se *storage.Event) error {
	emitted, err := strconv.ParseUint(se.Emitted, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	emptyDetail, exists := EventKindMap[EventKind(se.Kind)]
	if !exists {
		return fmt.Errorf("could not find event kind %q", se.Kind)
	}

	// Allocate a fresh detail struct so concurrent readers never share the map's instance.
	detail := reflect.New(reflect.TypeOf(emptyDetail).Elem()).Interface().(EventKindDetails)

	if err := json.Unmarshal([]byte(se.Details), detail); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	e.ID = se.ID
	e.Kind = EventKind(se.Kind)
	e.Details = detail
	e.Emitted = emitted

	return nil
}
