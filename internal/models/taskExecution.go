package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

type TaskExecutionState string

const (
	TaskExecutionStateUnknown TaskExecutionState = "UNKNOWN"
	// Pre-scheduler validation and setup.
	TaskExecutionStateProcessing TaskExecutionState = "PROCESSING"
	// Waiting on parent tasks to finish.
	TaskExecutionStateWaiting TaskExecutionState = "WAITING"
	// Currently running on the scheduler.
	TaskExecutionStateRunning  TaskExecutionState = "RUNNING"
	TaskExecutionStateComplete TaskExecutionState = "COMPLETE"
)

type TaskExecutionStatus string

const (
	TaskExecutionStatusUnknown    TaskExecutionStatus = "UNKNOWN"
	TaskExecutionStatusFailed     TaskExecutionStatus = "FAILED"
	TaskExecutionStatusSuccessful TaskExecutionStatus = "SUCCESSFUL"
	TaskExecutionStatusCancelled  TaskExecutionStatus = "CANCELLED"
	// The task never ran because its dependencies resolved in a way that excluded it.
	TaskExecutionStatusSkipped TaskExecutionStatus = "SKIPPED"
)

type TaskExecutionStatusReasonKind string

const (
	TaskExecutionStatusReasonKindUnknown TaskExecutionStatusReasonKind = "UNKNOWN"
	// The container exited with a non-zero exit code.
	TaskExecutionStatusReasonKindAbnormalExit TaskExecutionStatusReasonKind = "ABNORMAL_EXIT"
	// The scheduler returned an error while managing the container.
	TaskExecutionStatusReasonKindSchedulerError TaskExecutionStatusReasonKind = "SCHEDULER_ERROR"
	// The task's dependencies could not be satisfied.
	TaskExecutionStatusReasonKindFailedPrecondition TaskExecutionStatusReasonKind = "FAILED_PRECONDITION"
	TaskExecutionStatusReasonKindCancelled          TaskExecutionStatusReasonKind = "CANCELLED"
	// The server lost track of the container, usually due to a restart mid-run.
	TaskExecutionStatusReasonKindOrphaned TaskExecutionStatusReasonKind = "ORPHANED"
)

type TaskExecutionStatusReason struct {
	Reason      TaskExecutionStatusReasonKind `json:"reason" example:"ABNORMAL_EXIT" doc:"Short machine readable reason for the status"`
	Description string                        `json:"description" doc:"Humanized description for the status"`
}

func (t *TaskExecutionStatusReason) ToJSON() string {
	reason, err := json.Marshal(t)
	if err != nil {
		log.Fatal().Err(err).Msg("could not marshal task execution status reason")
	}

	return string(reason)
}

// TaskExecution is a specific execution of a task within a run; the container actually being run.
type TaskExecution struct {
	Namespace string `json:"namespace" example:"my_namespace" doc:"Unique identifier for the namespace"`
	Pipeline  string `json:"pipeline" example:"my_pipeline" doc:"Unique identifier for the pipeline"`
	Run       int64  `json:"run" example:"1" doc:"The run this task execution belongs to"`
	ID        string `json:"id" example:"my_task" doc:"Unique identifier for the task; same as the task id"`
	Task      Task   `json:"task" doc:"The task this execution is running"`
	Created   uint64 `json:"created" example:"1712433802634" doc:"Time the execution was created in epoch milliseconds"`
	Started   uint64 `json:"started" example:"1712433802634" doc:"Time the container was started in epoch milliseconds"`
	Ended     uint64 `json:"ended" example:"1712433802634" doc:"Time the container finished in epoch milliseconds"`

	// The exit code of the container; nil until the container has finished.
	ExitCode *int64 `json:"exit_code" example:"0" doc:"The container's exit code once finished"`

	// Whether the logs have passed their retention period and been removed.
	LogsExpired bool `json:"logs_expired" doc:"Whether the logs for this execution have expired"`

	// Whether the logs are missing, either through expiry or administrative removal.
	LogsRemoved bool `json:"logs_removed" doc:"Whether the logs for this execution have been removed"`

	State        TaskExecutionState         `json:"state" example:"COMPLETE" doc:"Where in its lifecycle the execution currently is"`
	Status       TaskExecutionStatus        `json:"status" example:"SUCCESSFUL" doc:"The final result of the execution; only valid once complete"`
	StatusReason *TaskExecutionStatusReason `json:"status_reason" doc:"More information on the execution's status; may be empty"`

	// The environment variables the container started with, after all layers were merged.
	Variables []Variable `json:"variables" doc:"The final set of environment variables passed to the container"`
}

func NewTaskExecution(namespace, pipeline string, run int64, task Task) *TaskExecution {
	return &TaskExecution{
		Namespace:    namespace,
		Pipeline:     pipeline,
		Run:          run,
		ID:           task.ID,
		Task:         task,
		Created:      uint64(time.Now().UnixMilli()),
		Started:      0,
		Ended:        0,
		ExitCode:     nil,
		LogsExpired:  false,
		LogsRemoved:  false,
		State:        TaskExecutionStateProcessing,
		Status:       TaskExecutionStatusUnknown,
		StatusReason: nil,
		Variables:    []Variable{},
	}
}

func (t *TaskExecution) ToStorage() *storage.PipelineTaskExecution {
	task, err := json.Marshal(t.Task)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	statusReason, err := json.Marshal(t.StatusReason)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	variables, err := json.Marshal(t.Variables)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	// The storage layer cannot represent a missing exit code so we substitute a sentinel value
	// well outside the valid 0-255 range.
	var exitCode int64 = 999
	if t.ExitCode != nil {
		exitCode = *t.ExitCode
	}

	return &storage.PipelineTaskExecution{
		Namespace:    t.Namespace,
		Pipeline:     t.Pipeline,
		Run:          t.Run,
		ID:           t.ID,
		Task:         string(task),
		Created:      fmt.Sprint(t.Created),
		Started:      fmt.Sprint(t.Started),
		Ended:        fmt.Sprint(t.Ended),
		ExitCode:     exitCode,
		LogsExpired:  t.LogsExpired,
		LogsRemoved:  t.LogsRemoved,
		State:        string(t.State),
		Status:       string(t.Status),
		StatusReason: string(statusReason),
		Variables:    string(variables),
	}
}

func (t *TaskExecution) FromStorage(st *storage.PipelineTaskExecution) {
	created, err := strconv.ParseUint(st.Created, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	started, err := strconv.ParseUint(st.Started, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	ended, err := strconv.ParseUint(st.Ended, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var task Task
	if err := json.Unmarshal([]byte(st.Task), &task); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var statusReason *TaskExecutionStatusReason
	if err := json.Unmarshal([]byte(st.StatusReason), &statusReason); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var variables []Variable
	if err := json.Unmarshal([]byte(st.Variables), &variables); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var exitCode *int64
	if st.ExitCode != 999 {
		exitCode = Ptr(st.ExitCode)
	}

	t.Namespace = st.Namespace
	t.Pipeline = st.Pipeline
	t.Run = st.Run
	t.ID = st.ID
	t.Task = task
	t.Created = created
	t.Started = started
	t.Ended = ended
	t.ExitCode = exitCode
	t.LogsExpired = st.LogsExpired
	t.LogsRemoved = st.LogsRemoved
	t.State = TaskExecutionState(st.State)
	t.Status = TaskExecutionStatus(st.Status)
	t.StatusReason = statusReason
	t.Variables = variables
}
