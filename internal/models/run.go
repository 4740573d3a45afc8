package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

type RunState string

const (
	RunStateUnknown RunState = "UNKNOWN"
	// Before the tasks in a run are sent to the scheduler it must complete various steps like
	// validation checking. This state represents that step.
	RunStatePending RunState = "PENDING"
	// The state from when a run's tasks have been sent to the scheduler until they have all finished.
	RunStateRunning RunState = "RUNNING"
	// All tasks have finished and the run has received a final status.
	RunStateComplete RunState = "COMPLETE"
)

type RunStatus string

const (
	// Only applies to runs that have not yet completed.
	RunStatusUnknown RunStatus = "UNKNOWN"
	// One or more tasks failed.
	RunStatusFailed RunStatus = "FAILED"
	// All tasks completed successfully or were skipped.
	RunStatusSuccessful RunStatus = "SUCCESSFUL"
	RunStatusCancelled  RunStatus = "CANCELLED"
)

type RunStatusReasonKind string

const (
	RunStatusReasonKindUnknown RunStatusReasonKind = "UNKNOWN"
	// One or more tasks failed during execution.
	RunStatusReasonKindAbnormalExit RunStatusReasonKind = "ABNORMAL_EXIT"
	// The scheduler could not start one or more containers.
	RunStatusReasonKindSchedulerError RunStatusReasonKind = "SCHEDULER_ERROR"
	// A precondition for the run, like parallelism limits, could not be satisfied.
	RunStatusReasonKindFailedPrecondition RunStatusReasonKind = "FAILED_PRECONDITION"
	// A user requested the run be cancelled.
	RunStatusReasonKindUserCancelled RunStatusReasonKind = "USER_CANCELLED"
	// The server cancelled the run, usually during shutdown or orphan repair.
	RunStatusReasonKindAdminCancelled RunStatusReasonKind = "ADMIN_CANCELLED"
)

type RunStatusReason struct {
	Reason      RunStatusReasonKind `json:"reason" example:"ABNORMAL_EXIT" doc:"Short machine readable reason for the status"`
	Description string              `json:"description" doc:"Humanized description for the status"`
}

func (r *RunStatusReason) ToJSON() string {
	reason, err := json.Marshal(r)
	if err != nil {
		log.Fatal().Err(err).Msg("could not marshal run status reason")
	}

	return string(reason)
}

// Run is one instance of a pipeline's execution. Every run executes against a single pinned
// pipeline config version.
type Run struct {
	Namespace           string           `json:"namespace" example:"my_namespace" doc:"Unique identifier for the namespace"`
	Pipeline            string           `json:"pipeline" example:"my_pipeline" doc:"Unique identifier for the pipeline"`
	Version             int64            `json:"version" example:"1" doc:"The config version this run executed against"`
	ID                  int64            `json:"id" example:"1" doc:"Monotonically increasing identifier for the run"`
	Started             uint64           `json:"started" example:"1712433802634" doc:"Time the run was started in epoch milliseconds"`
	Ended               uint64           `json:"ended" example:"1712433802634" doc:"Time the run completed in epoch milliseconds"`
	State               RunState         `json:"state" example:"COMPLETE" doc:"Where in its lifecycle the run currently is"`
	Status              RunStatus        `json:"status" example:"SUCCESSFUL" doc:"The final result of the run; only valid once complete"`
	StatusReason        *RunStatusReason `json:"status_reason" doc:"More information on the run's status; may be empty"`
	Initiator           Initiator        `json:"initiator" doc:"Information about what started this run"`
	Variables           []Variable       `json:"variables" doc:"Variables passed to every task in the run"`
	StoreObjectsExpired bool             `json:"store_objects_expired" doc:"Whether the run's objects have passed their expiry and been removed"`
}

func NewRun(namespace, pipeline string, version, id int64, initiator Initiator, variables []Variable) *Run {
	return &Run{
		Namespace:           namespace,
		Pipeline:            pipeline,
		Version:             version,
		ID:                  id,
		Started:             0,
		Ended:               0,
		State:               RunStatePending,
		Status:              RunStatusUnknown,
		StatusReason:        nil,
		Initiator:           initiator,
		Variables:           variables,
		StoreObjectsExpired: false,
	}
}

func (r *Run) ToStorage() *storage.PipelineRun {
	variables, err := json.Marshal(r.Variables)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	initiator, err := json.Marshal(r.Initiator)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	statusReason, err := json.Marshal(r.StatusReason)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	return &storage.PipelineRun{
		Namespace:             r.Namespace,
		Pipeline:              r.Pipeline,
		PipelineConfigVersion: r.Version,
		ID:                    r.ID,
		Started:               fmt.Sprint(r.Started),
		Ended:                 fmt.Sprint(r.Ended),
		State:                 string(r.State),
		Status:                string(r.Status),
		StatusReason:          string(statusReason),
		Initiator:             string(initiator),
		Variables:             string(variables),
		StoreObjectsExpired:   r.StoreObjectsExpired,
	}
}

func (r *Run) FromStorage(sr *storage.PipelineRun) {
	started, err := strconv.ParseUint(sr.Started, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	ended, err := strconv.ParseUint(sr.Ended, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var statusReason *RunStatusReason
	if err := json.Unmarshal([]byte(sr.StatusReason), &statusReason); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var initiator Initiator
	if err := json.Unmarshal([]byte(sr.Initiator), &initiator); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var variables []Variable
	if err := json.Unmarshal([]byte(sr.Variables), &variables); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	r.Namespace = sr.Namespace
	r.Pipeline = sr.Pipeline
	r.Version = sr.PipelineConfigVersion
	r.ID = sr.ID
	r.Started = started
	r.Ended = ended
	r.State = RunState(sr.State)
	r.Status = RunStatus(sr.Status)
	r.StatusReason = statusReason
	r.Initiator = initiator
	r.Variables = variables
	r.StoreObjectsExpired = sr.StoreObjectsExpired
}
