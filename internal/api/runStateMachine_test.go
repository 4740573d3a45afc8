package api

import (
	"testing"
	"time"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/scheduler"
)

func TestRunStatusFromTaskExecutions(t *testing.T) {
	execution := func(status models.TaskExecutionStatus) models.TaskExecution {
		return models.TaskExecution{Status: status}
	}

	tests := map[string]struct {
		executions []models.TaskExecution
		wantStatus models.RunStatus
		wantReason models.RunStatusReasonKind
	}{
		"all successful": {
			executions: []models.TaskExecution{
				execution(models.TaskExecutionStatusSuccessful),
				execution(models.TaskExecutionStatusSuccessful),
			},
			wantStatus: models.RunStatusSuccessful,
		},
		"skipped tasks do not fail the run": {
			executions: []models.TaskExecution{
				execution(models.TaskExecutionStatusSuccessful),
				execution(models.TaskExecutionStatusSkipped),
			},
			wantStatus: models.RunStatusSuccessful,
		},
		"failed task fails the run": {
			executions: []models.TaskExecution{
				execution(models.TaskExecutionStatusSuccessful),
				execution(models.TaskExecutionStatusFailed),
			},
			wantStatus: models.RunStatusFailed,
			wantReason: models.RunStatusReasonKindAbnormalExit,
		},
		"unknown counts as failed": {
			executions: []models.TaskExecution{
				execution(models.TaskExecutionStatusUnknown),
			},
			wantStatus: models.RunStatusFailed,
			wantReason: models.RunStatusReasonKindAbnormalExit,
		},
		"cancellation wins over failure": {
			executions: []models.TaskExecution{
				execution(models.TaskExecutionStatusFailed),
				execution(models.TaskExecutionStatusCancelled),
			},
			wantStatus: models.RunStatusCancelled,
			wantReason: models.RunStatusReasonKindUserCancelled,
		},
		"cancellation wins regardless of order": {
			executions: []models.TaskExecution{
				execution(models.TaskExecutionStatusCancelled),
				execution(models.TaskExecutionStatusFailed),
			},
			wantStatus: models.RunStatusCancelled,
			wantReason: models.RunStatusReasonKindUserCancelled,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			status, reason := runStatusFromTaskExecutions(tc.executions)
			if status != tc.wantStatus {
				t.Errorf("status = %q; want %q", status, tc.wantStatus)
			}

			if tc.wantReason == "" {
				if reason != nil {
					t.Errorf("reason = %+v; want nil", reason)
				}
				return
			}

			if reason == nil || reason.Reason != tc.wantReason {
				t.Errorf("reason = %+v; want kind %q", reason, tc.wantReason)
			}
		})
	}
}

// newTestRunStateMachine seeds a pipeline with one task, a running run, and a registered task
// execution, then returns the machine supervising it.
func newTestRunStateMachine(t *testing.T, apictx *APIContext, pipeline string) (*RunStateMachine, models.Task) {
	t.Helper()

	pipelineConfig := seedActivePipeline(t, apictx, pipeline, 0)

	run := models.NewRun(namespaceDefaultID, pipeline, 1, 1, testInitiator(), nil)
	run.State = models.RunStateRunning
	if err := apictx.db.InsertPipelineRun(apictx.db, run.ToStorage()); err != nil {
		t.Fatalf("could not insert run: %v", err)
	}

	metadata := models.NewPipelineMetadata(namespaceDefaultID, pipeline)
	machine := apictx.newRunStateMachine(metadata, &pipelineConfig, run)
	apictx.runMachines.Set(runMachineKey(namespaceDefaultID, pipeline, run.ID), machine)

	task := pipelineConfig.Tasks["task_one"]

	execution := models.NewTaskExecution(namespaceDefaultID, pipeline, run.ID, task)
	if err := apictx.db.InsertPipelineTaskExecution(apictx.db, execution.ToStorage()); err != nil {
		t.Fatalf("could not insert task execution: %v", err)
	}
	machine.TaskExecutions.Set(execution.ID, *execution)

	return machine, task
}

func TestCancelledRunSkipsDispatch(t *testing.T) {
	apictx, sched := newTestAPIContext(t)
	machine, task := newTestRunStateMachine(t, apictx, "cancelled_pipeline")

	machine.StopRuns.Store(true)
	machine.launchTaskExecution(task)

	settled, exists := machine.TaskExecutions.Get(task.ID)
	if !exists {
		t.Fatal("task execution missing from state machine")
	}
	if settled.State != models.TaskExecutionStateComplete {
		t.Errorf("state = %q; want %q", settled.State, models.TaskExecutionStateComplete)
	}
	if settled.Status != models.TaskExecutionStatusCancelled {
		t.Errorf("status = %q; want %q", settled.Status, models.TaskExecutionStatusCancelled)
	}

	if got := sched.startCount(); got != 0 {
		t.Errorf("containers started = %d; want 0", got)
	}
}

func TestTimedOutTaskExecutionFails(t *testing.T) {
	apictx, sched := newTestAPIContext(t)
	machine, task := newTestRunStateMachine(t, apictx, "timeout_pipeline")

	containerID := taskContainerID(namespaceDefaultID, "timeout_pipeline", machine.Run.ID, task.ID)
	sched.setState(containerID, scheduler.ContainerStateRunning)

	machine.enforceTimeout(containerID, task.ID, time.Millisecond*10)

	storedExecution, err := apictx.db.GetPipelineTaskExecution(apictx.db, namespaceDefaultID, "timeout_pipeline",
		machine.Run.ID, task.ID)
	if err != nil {
		t.Fatalf("could not get task execution: %v", err)
	}

	var settled models.TaskExecution
	settled.FromStorage(&storedExecution)

	if settled.Status != models.TaskExecutionStatusFailed {
		t.Errorf("status = %q; want %q", settled.Status, models.TaskExecutionStatusFailed)
	}
	if settled.StatusReason == nil || settled.StatusReason.Reason != models.TaskExecutionStatusReasonKindAbnormalExit {
		t.Errorf("status reason = %+v; want kind %q", settled.StatusReason,
			models.TaskExecutionStatusReasonKindAbnormalExit)
	}

	// The state watcher finding the stopped container afterwards must not overwrite the result.
	err = machine.setTaskExecutionFinished(task.ID, nil, models.TaskExecutionStatusCancelled,
		&models.TaskExecutionStatusReason{
			Reason:      models.TaskExecutionStatusReasonKindCancelled,
			Description: "The task execution was cancelled",
		})
	if err != nil {
		t.Fatalf("late settle should be a no-op, not an error: %v", err)
	}

	inMemory, _ := machine.TaskExecutions.Get(task.ID)
	if inMemory.Status != models.TaskExecutionStatusFailed {
		t.Errorf("status after late settle = %q; want %q", inMemory.Status, models.TaskExecutionStatusFailed)
	}
}
