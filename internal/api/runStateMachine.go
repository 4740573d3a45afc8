package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/scheduler"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/clintjedwards/gofer/internal/syncmap"
	"github.com/rs/zerolog/log"
)

// RunStateMachine keeps track of a run as it progresses through the necessary states. One exists
// per in-flight run and holds the authoritative in-memory view of its task executions.
type RunStateMachine struct {
	API            *APIContext
	Pipeline       *models.PipelineMetadata
	Config         *models.PipelineConfig
	Run            *models.Run
	TaskExecutions syncmap.Syncmap[string, models.TaskExecution]

	// StopRuns is set when the run is cancelled; task executions that have not yet been handed
	// to the scheduler check it and settle as cancelled instead of starting.
	StopRuns *atomic.Bool

	// Hash of the auto-injected run token, if one was created. The token is revoked once the run
	// reaches a terminal state.
	apiTokenHash string
}

func (apictx *APIContext) newRunStateMachine(pipeline *models.PipelineMetadata, config *models.PipelineConfig,
	run *models.Run,
) *RunStateMachine {
	var stopRuns atomic.Bool
	stopRuns.Store(false)

	return &RunStateMachine{
		API:            apictx,
		Pipeline:       pipeline,
		Config:         config,
		Run:            run,
		TaskExecutions: syncmap.New[string, models.TaskExecution](),
		StopRuns:       &stopRuns,
	}
}

// runMachineKey is the index into the api context's registry of in-flight run state machines.
func runMachineKey(namespace, pipeline string, run int64) string {
	return fmt.Sprintf("%s_%s_%d", namespace, pipeline, run)
}

// Mark a task execution object as finished.
func (r *RunStateMachine) setTaskExecutionFinished(id string, code *int64,
	status models.TaskExecutionStatus, reason *models.TaskExecutionStatusReason,
) error {
	taskExecution, exists := r.TaskExecutions.Get(id)
	if !exists {
		return fmt.Errorf("could not find task execution")
	}

	// The timeout enforcer and the container state watcher can both try to settle the same
	// execution; the first writer wins.
	if taskExecution.State == models.TaskExecutionStateComplete {
		return nil
	}

	taskExecution.State = models.TaskExecutionStateComplete
	taskExecution.Status = status

	r.TaskExecutions.Set(id, taskExecution)

	err := r.API.db.UpdatePipelineTaskExecution(r.API.db, taskExecution.Namespace, taskExecution.Pipeline,
		taskExecution.Run, taskExecution.ID,
		storage.UpdatablePipelineTaskExecutionFields{
			ExitCode:     code,
			Status:       ptr(string(status)),
			State:        ptr(string(models.TaskExecutionStateComplete)),
			Ended:        ptr(fmt.Sprint(time.Now().UnixMilli())),
			StatusReason: ptr(reason.ToJSON()),
		})
	if err != nil {
		return err
	}

	go r.API.events.Publish(models.EventCompletedTaskExecution{
		NamespaceID:     taskExecution.Namespace,
		PipelineID:      taskExecution.Pipeline,
		RunID:           taskExecution.Run,
		TaskExecutionID: taskExecution.ID,
		Status:          status,
	})

	return nil
}

func (r *RunStateMachine) setRunFinished(status models.RunStatus, reason *models.RunStatusReason) error {
	err := r.API.db.UpdatePipelineRun(r.API.db, r.Pipeline.Namespace, r.Pipeline.ID, r.Run.ID,
		storage.UpdatablePipelineRunFields{
			State:        ptr(string(models.RunStateComplete)),
			Status:       ptr(string(status)),
			StatusReason: ptr(reason.ToJSON()),
			Ended:        ptr(fmt.Sprint(time.Now().UnixMilli())),
		})
	if err != nil {
		return err
	}

	r.revokeAutoInjectToken()
	r.API.runMachines.Delete(runMachineKey(r.Pipeline.Namespace, r.Pipeline.ID, r.Run.ID))

	go r.API.events.Publish(models.EventCompletedRun{
		NamespaceID: r.Run.Namespace,
		PipelineID:  r.Run.Pipeline,
		RunID:       r.Run.ID,
		Status:      status,
	})

	return nil
}

func (r *RunStateMachine) setTaskExecutionState(taskExecution models.TaskExecution,
	state models.TaskExecutionState,
) error {
	err := r.API.db.UpdatePipelineTaskExecution(r.API.db, r.Pipeline.Namespace, r.Pipeline.ID, r.Run.ID,
		taskExecution.ID,
		storage.UpdatablePipelineTaskExecutionFields{
			State: ptr(string(state)),
		})
	if err != nil {
		return err
	}

	taskExecution.State = state

	r.TaskExecutions.Set(taskExecution.ID, taskExecution)

	return nil
}

// Creates the auto-injected token for Gofer's `InjectAPIToken` feature.
//
// Gofer can auto create client tokens and inject them into the environment for tasks in a run.
// This is a convenience feature so that tasks can easily talk back to the Gofer API. The token is
// scoped to the run's namespace and revoked as soon as the run settles.
func (r *RunStateMachine) createAutoInjectToken() {
	createToken := false

	for _, task := range r.Config.Tasks {
		if task.InjectAPIToken {
			createToken = true
			break
		}
	}

	if !createToken {
		return
	}

	token, hash := r.API.createNewAPIToken()
	newToken := models.NewToken(hash, models.TokenKindClient, []string{r.Pipeline.Namespace}, map[string]string{
		"description": fmt.Sprintf("Automatically created by the Gofer API for run %d.", r.Run.ID),
	}, time.Hour*48)

	err := r.API.db.InsertToken(r.API.db, newToken.ToStorage())
	if err != nil {
		log.Error().Err(err).Msg("could not save auto-inject token to storage")
		return
	}

	err = r.API.secretStore.PutSecret(
		pipelineSecretKey(r.Pipeline.Namespace, r.Pipeline.ID, fmt.Sprintf("gofer_api_token_%d", r.Run.ID)),
		token, true)
	if err != nil {
		log.Error().Err(err).Msg("could not save auto-inject token to secret store")
		return
	}

	r.apiTokenHash = hash
}

// revokeAutoInjectToken removes the run scoped token once the run has settled so it cannot
// outlive the run it was minted for.
func (r *RunStateMachine) revokeAutoInjectToken() {
	if r.apiTokenHash == "" {
		return
	}

	err := r.API.secretStore.DeleteSecret(
		pipelineSecretKey(r.Pipeline.Namespace, r.Pipeline.ID, fmt.Sprintf("gofer_api_token_%d", r.Run.ID)))
	if err != nil {
		log.Error().Err(err).Msg("could not remove auto-inject token from secret store")
	}

	err = r.API.db.DeleteTokenByHash(r.API.db, r.apiTokenHash)
	if err != nil {
		log.Error().Err(err).Msg("could not revoke auto-inject token")
	}
}

// executeTaskTree creates all downstream task executions for a particular run. After creating them
// all it then blocks and monitors the run until it is finished.
func (r *RunStateMachine) executeTaskTree() {
	// Launch per-run clean up jobs.
	go r.handleRunObjectExpiry()
	go r.handleRunLogExpiry()

	r.createAutoInjectToken()

	// Every task execution is persisted before any of them is handed to the scheduler, so a crash
	// mid-run always leaves a full accounting of what the run intended to do.
	for _, task := range r.Config.Tasks {
		execution := models.NewTaskExecution(r.Pipeline.Namespace, r.Pipeline.ID, r.Run.ID, task)

		if err := r.API.db.InsertPipelineTaskExecution(r.API.db, execution.ToStorage()); err != nil {
			log.Error().Err(err).Str("task", task.ID).Msg("could not register task execution")

			err := r.setRunFinished(models.RunStatusFailed, &models.RunStatusReason{
				Reason:      models.RunStatusReasonKindAbnormalExit,
				Description: fmt.Sprintf("Could not register task execution %q", task.ID),
			})
			if err != nil {
				log.Error().Err(err).Msg("could not set run finished")
			}
			return
		}

		r.TaskExecutions.Set(execution.ID, *execution)

		go r.API.events.Publish(models.EventCreatedTaskExecution{
			NamespaceID:     r.Pipeline.Namespace,
			PipelineID:      r.Pipeline.ID,
			RunID:           r.Run.ID,
			TaskExecutionID: execution.ID,
		})
	}

	// Launch a new task execution for each task found.
	for _, task := range r.Config.Tasks {
		task := task
		go r.launchTaskExecution(task)
	}

	// Finally monitor the entire run until it finishes. This will block until the run has ended.
	r.waitRunFinish()
}

// Check a dependency tree to see if all parent tasks have finished.
func (r *RunStateMachine) parentTaskFinished(dependencies map[string]models.RequiredParentStatus) bool {
	for parent := range dependencies {
		parentExecution, exists := r.TaskExecutions.Get(parent)
		if !exists {
			return false
		}

		if parentExecution.State != models.TaskExecutionStateComplete {
			return false
		}
	}

	return true
}

// Check a dependency tree to see if all parent tasks are in the correct states.
func (r *RunStateMachine) taskDependenciesSatisfied(dependencies map[string]models.RequiredParentStatus) error {
	for parent, requiredStatus := range dependencies {
		parentExecution, exists := r.TaskExecutions.Get(parent)
		if !exists {
			return fmt.Errorf("could not find parent dependency while evaluating task dependencies")
		}

		switch requiredStatus {
		case models.RequiredParentStatusUnknown:
			return fmt.Errorf("a parent dependency should never be in the state Unknown")
		case models.RequiredParentStatusAny:
			if parentExecution.Status != models.TaskExecutionStatusSuccessful &&
				parentExecution.Status != models.TaskExecutionStatusFailed &&
				parentExecution.Status != models.TaskExecutionStatusSkipped {
				return fmt.Errorf("parent %q has incorrect status %q for required 'any' dependency", parent,
					parentExecution.Status)
			}
		case models.RequiredParentStatusSuccess:
			if parentExecution.Status != models.TaskExecutionStatusSuccessful {
				return fmt.Errorf("parent %q has incorrect status %q for required 'successful' dependency", parent,
					parentExecution.Status)
			}
		case models.RequiredParentStatusFailure:
			if parentExecution.Status != models.TaskExecutionStatusFailed {
				return fmt.Errorf("parent %q has incorrect status %q for required 'failed' dependency", parent,
					parentExecution.Status)
			}
		}
	}

	return nil
}

// Monitors all task execution statuses and determines the final run status based on all finished
// task executions. It will block until all task executions have finished.
func (r *RunStateMachine) waitRunFinish() {
	err := r.API.db.UpdatePipelineRun(r.API.db, r.Pipeline.Namespace, r.Pipeline.ID, r.Run.ID,
		storage.UpdatablePipelineRunFields{
			State: ptr(string(models.RunStateRunning)),
		})
	if err != nil {
		log.Error().Err(err).Msg("storage error occurred while waiting for run to finish")
		return
	}

	// If the task execution map hasn't had all the entries come in yet we wait until it does.
	for len(r.TaskExecutions.Keys()) != len(r.Config.Tasks) {
		time.Sleep(time.Millisecond * 500)
	}

	// Loop over the executions until all are complete.
outerLoop:
	for {
		time.Sleep(time.Millisecond * 500)
		for _, id := range r.TaskExecutions.Keys() {
			taskExecution, exists := r.TaskExecutions.Get(id)
			if !exists {
				continue outerLoop
			}

			if taskExecution.State != models.TaskExecutionStateComplete {
				continue outerLoop
			}
		}

		break
	}

	// When all are finished we now need a final tallying of what the run's result is.
	taskExecutions := []models.TaskExecution{}
	for _, id := range r.TaskExecutions.Keys() {
		taskExecution, exists := r.TaskExecutions.Get(id)
		if !exists {
			log.Error().Msg("could not find task execution in run state machine while tallying results")
			return
		}

		taskExecutions = append(taskExecutions, taskExecution)
	}

	status, reason := runStatusFromTaskExecutions(taskExecutions)

	err = r.setRunFinished(status, reason)
	if err != nil {
		log.Error().Err(err).Msg("could not set run finished")
	}
}

// runStatusFromTaskExecutions tallies the final status for a run from its settled task executions.
// A run is only successful if every task execution was successful or skipped. A cancellation takes
// precedence over failures, so the whole set is examined; if any task execution was cancelled the
// run is cancelled, otherwise any failed or unknown execution fails the run.
func runStatusFromTaskExecutions(taskExecutions []models.TaskExecution) (models.RunStatus, *models.RunStatusReason) {
	sawFailed := false

	for _, taskExecution := range taskExecutions {
		switch taskExecution.Status {
		case models.TaskExecutionStatusCancelled:
			return models.RunStatusCancelled, &models.RunStatusReason{
				Reason:      models.RunStatusReasonKindUserCancelled,
				Description: "One or more task executions were cancelled during execution",
			}
		case models.TaskExecutionStatusUnknown, models.TaskExecutionStatusFailed:
			sawFailed = true
		case models.TaskExecutionStatusSuccessful, models.TaskExecutionStatusSkipped:
			continue
		}
	}

	if sawFailed {
		return models.RunStatusFailed, &models.RunStatusReason{
			Reason:      models.RunStatusReasonKindAbnormalExit,
			Description: "One or more task executions failed during execution",
		}
	}

	return models.RunStatusSuccessful, nil
}

// Monitors a single task execution's container until it reaches a terminal state, then updates the
// execution records accordingly. It will block until the container has finished.
func (r *RunStateMachine) waitTaskExecutionFinish(containerID, taskExecutionID string) error {
	for {
		response, err := r.API.scheduler.GetState(scheduler.GetStateRequest{
			ID: containerID,
		})
		if err != nil {
			_ = r.setTaskExecutionFinished(taskExecutionID, nil, models.TaskExecutionStatusUnknown,
				&models.TaskExecutionStatusReason{
					Reason:      models.TaskExecutionStatusReasonKindSchedulerError,
					Description: fmt.Sprintf("Could not query the scheduler for task execution state; %v", err),
				})
			return err
		}

		switch response.State {
		case scheduler.ContainerStateRunning, scheduler.ContainerStatePaused, scheduler.ContainerStateRestarting:
			time.Sleep(time.Millisecond * 500)
			continue
		case scheduler.ContainerStateCancelled:
			_ = r.setTaskExecutionFinished(taskExecutionID, nil, models.TaskExecutionStatusCancelled,
				&models.TaskExecutionStatusReason{
					Reason:      models.TaskExecutionStatusReasonKindCancelled,
					Description: "The task execution was cancelled",
				})
			return nil
		case scheduler.ContainerStateSuccess:
			_ = r.setTaskExecutionFinished(taskExecutionID, &response.ExitCode,
				models.TaskExecutionStatusSuccessful, nil)
			return nil
		case scheduler.ContainerStateFailed:
			_ = r.setTaskExecutionFinished(taskExecutionID, &response.ExitCode, models.TaskExecutionStatusFailed,
				&models.TaskExecutionStatusReason{
					Reason:      models.TaskExecutionStatusReasonKindAbnormalExit,
					Description: "Task execution exited with abnormal exit code.",
				})
			return nil
		default:
			_ = r.setTaskExecutionFinished(taskExecutionID, nil, models.TaskExecutionStatusUnknown,
				&models.TaskExecutionStatusReason{
					Reason:      models.TaskExecutionStatusReasonKindSchedulerError,
					Description: "An unknown state has occurred on the scheduler level; this should never happen",
				})
			return nil
		}
	}
}

// Tracks state and log progress of a task execution. This function will block until the task
// execution has reached a terminal state.
func (r *RunStateMachine) monitorTaskExecution(containerID, taskExecutionID string) error {
	go r.handleLogUpdates(containerID, taskExecutionID)

	err := r.waitTaskExecutionFinish(containerID, taskExecutionID)
	if err != nil {
		return err
	}

	return nil
}

// enforceTimeout fails a task execution once its wall clock limit has elapsed and then stops its
// container. The execution is settled before the container is stopped so that the state watcher
// cannot record the stopped container as an ordinary cancellation; a timeout is a failure.
func (r *RunStateMachine) enforceTimeout(containerID, taskExecutionID string, timeout time.Duration) {
	if timeout <= 0 {
		return
	}

	time.Sleep(timeout)

	taskExecution, exists := r.TaskExecutions.Get(taskExecutionID)
	if !exists || taskExecution.State == models.TaskExecutionStateComplete {
		return
	}

	log.Debug().Str("task", taskExecutionID).Int64("run", r.Run.ID).
		Str("pipeline", r.Pipeline.ID).Dur("timeout", timeout).Msg("task execution exceeded timeout; stopping container")

	err := r.setTaskExecutionFinished(taskExecutionID, nil, models.TaskExecutionStatusFailed,
		&models.TaskExecutionStatusReason{
			Reason:      models.TaskExecutionStatusReasonKindAbnormalExit,
			Description: fmt.Sprintf("Task execution exceeded its timeout of %s", timeout),
		})
	if err != nil {
		log.Error().Err(err).Str("task", taskExecutionID).Msg("could not settle timed out task execution")
	}

	err = r.API.scheduler.StopContainer(scheduler.StopContainerRequest{
		ID:      containerID,
		Timeout: time.Second * 5,
	})
	if err != nil && !errors.Is(err, scheduler.ErrNoSuchContainer) {
		log.Error().Err(err).Str("task", taskExecutionID).Msg("could not stop container for task execution timeout")
	}
}

func (r *RunStateMachine) handleLogUpdates(containerID, taskExecutionID string) {
	taskExecution, exists := r.TaskExecutions.Get(taskExecutionID)
	if !exists {
		log.Error().Msg("could not find task execution in run state machine")
		return
	}

	logReader, err := r.API.scheduler.GetLogs(scheduler.GetLogsRequest{
		ID: containerID,
	})
	if err != nil {
		log.Error().Err(err).Msg("scheduler error; could not get logs")
		return
	}

	logFile, err := os.Create(taskExecutionLogFilePath(r.API.config.TaskExecutionLogsDir, taskExecution.Namespace,
		taskExecution.Pipeline, taskExecution.Run, taskExecution.ID))
	if err != nil {
		log.Error().Err(err).Msg("could not open task execution log file for writing")
		return
	}

	scanner := bufio.NewScanner(logReader)
	for scanner.Scan() {
		_, _ = logFile.WriteString(scanner.Text() + "\n")
	}

	// When the reader is finished we place a special marker to signify that this file is finished with.
	// This allows other readers of the file within Gofer to know the difference between a file that is
	// still being written to and a file that will not be written to any further.
	_, _ = logFile.WriteString(GOFEREOF)

	logFile.Close()

	err = scanner.Err()
	if err != nil {
		log.Error().Err(err).Msg("could not properly read from logging stream")
	}
}

// Removes run level object store objects once a run is past its expiry threshold.
func (r *RunStateMachine) handleRunObjectExpiry() {
	limit := r.API.config.ObjectStore.RunObjectExpiry

	// We ask for the limit of runs plus one extra.
	runs, err := r.API.db.ListPipelineRuns(r.API.db, 0, limit+1, r.Pipeline.Namespace, r.Pipeline.ID)
	if err != nil {
		log.Error().Err(err).Msg("could not get runs for run object expiry processing")
		return
	}

	// If there aren't enough runs to reach the limit there is nothing to remove.
	if limit > len(runs) {
		return
	}

	if len(runs) == 0 {
		return
	}

	expiredRunRaw := runs[len(runs)-1]
	var expiredRun models.Run
	expiredRun.FromStorage(&expiredRunRaw)

	// If the run is still in progress wait for it to be done.
	for expiredRun.State != models.RunStateComplete {
		time.Sleep(time.Second)

		expiredRunRaw, err = r.API.db.GetPipelineRun(r.API.db, r.Pipeline.Namespace, r.Pipeline.ID, expiredRun.ID)
		if err != nil {
			log.Error().Err(err).Msg("could not get run for run object expiry processing")
			return
		}

		var tmpExpiredRun models.Run
		tmpExpiredRun.FromStorage(&expiredRunRaw)
		expiredRun = tmpExpiredRun
	}

	if expiredRun.StoreObjectsExpired {
		return
	}

	objectKeys, err := r.API.db.ListObjectStoreRunKeys(r.API.db, r.Pipeline.Namespace, r.Pipeline.ID, expiredRun.ID)
	if err != nil {
		log.Error().Err(err).Msg("could not get object keys for run object expiry processing")
		return
	}

	for _, key := range objectKeys {
		// Delete it from the object store.
		err = r.API.objectStore.DeleteObject(runObjectKey(r.Pipeline.Namespace, r.Pipeline.ID, expiredRun.ID, key.Key))
		if err != nil {
			log.Error().Err(err).Msg("could not delete run object for run object expiry processing")
			continue
		}

		// Delete it from the run's records.
		err = r.API.db.DeleteObjectStoreRunKey(r.API.db, r.Pipeline.Namespace, r.Pipeline.ID, expiredRun.ID, key.Key)
		if err != nil {
			log.Error().Err(err).Msg("could not delete run object key for run object expiry processing")
			continue
		}
	}

	err = r.API.db.UpdatePipelineRun(r.API.db, r.Pipeline.Namespace, r.Pipeline.ID, expiredRun.ID,
		storage.UpdatablePipelineRunFields{
			StoreObjectsExpired: ptr(true),
		})
	if err != nil {
		log.Error().Err(err).Msg("could not mark run objects as expired")
		return
	}

	r.API.events.Publish(models.EventExpiredRunObjects{
		NamespaceID: r.Pipeline.Namespace,
		PipelineID:  r.Pipeline.ID,
		RunID:       expiredRun.ID,
	})
}

// Removes task execution log files once a run is past the log retention threshold.
func (r *RunStateMachine) handleRunLogExpiry() {
	limit := r.API.config.TaskExecutionLogExpiry

	// We ask for the limit of runs plus one extra.
	runs, err := r.API.db.ListPipelineRuns(r.API.db, 0, limit+1, r.Pipeline.Namespace, r.Pipeline.ID)
	if err != nil {
		log.Error().Err(err).Msg("could not get runs for run log expiry processing")
		return
	}

	// If there aren't enough runs to reach the limit there is nothing to remove.
	if limit > len(runs) {
		return
	}

	if len(runs) == 0 {
		return
	}

	expiredRunRaw := runs[len(runs)-1]
	var expiredRun models.Run
	expiredRun.FromStorage(&expiredRunRaw)

	// If the run is still in progress wait for it to be done.
	for expiredRun.State != models.RunStateComplete {
		time.Sleep(time.Second)

		expiredRunRaw, err = r.API.db.GetPipelineRun(r.API.db, r.Pipeline.Namespace, r.Pipeline.ID, expiredRun.ID)
		if err != nil {
			log.Error().Err(err).Msg("could not get run for run log expiry processing")
			return
		}

		var tmpExpiredRun models.Run
		tmpExpiredRun.FromStorage(&expiredRunRaw)
		expiredRun = tmpExpiredRun
	}

	var taskExecutions []models.TaskExecution

	// If the task executions are still in progress we wait for them to finish.
outerLoop:
	for {
		taskExecutions = nil

		taskExecutionsRaw, err := r.API.db.ListPipelineTaskExecutions(r.API.db, 0, 0, r.Pipeline.Namespace,
			r.Pipeline.ID, expiredRun.ID)
		if err != nil {
			log.Error().Err(err).Msg("could not get task executions for run log expiry processing")
			return
		}

		for _, taskExecutionRaw := range taskExecutionsRaw {
			var taskExecution models.TaskExecution
			taskExecution.FromStorage(&taskExecutionRaw)
			taskExecutions = append(taskExecutions, taskExecution)
		}

		for _, taskExecution := range taskExecutions {
			if taskExecution.State != models.TaskExecutionStateComplete {
				time.Sleep(time.Millisecond * 500)
				continue outerLoop
			}
		}

		break
	}

	removedFiles := []string{}
	for _, taskExecution := range taskExecutions {
		taskExecution := taskExecution
		if taskExecution.LogsExpired || taskExecution.LogsRemoved {
			continue
		}

		logFilePath := taskExecutionLogFilePath(r.API.config.TaskExecutionLogsDir, taskExecution.Namespace,
			taskExecution.Pipeline, taskExecution.Run, taskExecution.ID)

		err := os.Remove(logFilePath)
		if err != nil {
			log.Debug().Err(err).Msg("could not remove task execution log file")
		}

		err = r.API.db.UpdatePipelineTaskExecution(r.API.db, taskExecution.Namespace, taskExecution.Pipeline,
			taskExecution.Run, taskExecution.ID,
			storage.UpdatablePipelineTaskExecutionFields{
				LogsExpired: ptr(true),
				LogsRemoved: ptr(true),
			})
		if err != nil {
			log.Error().Err(err).Msg("could not update task execution during log expiry processing")
			continue
		}

		removedFiles = append(removedFiles, logFilePath)
	}

	log.Debug().Strs("removed_files", removedFiles).Msg("removed task execution logs")
}

// Launches a task execution as part of a larger run. The execution's database row must already
// exist; executeTaskTree registers every execution before any are launched. It blocks until the
// task execution has completed.
func (r *RunStateMachine) launchTaskExecution(task models.Task) {
	// Start by creating a fresh in-memory view of the task execution for the state machine.
	newTaskExecution := models.NewTaskExecution(r.Pipeline.Namespace, r.Pipeline.ID, r.Run.ID, task)

	r.TaskExecutions.Set(newTaskExecution.ID, *newTaskExecution)

	envVars := combineVariables(r.Run, &task)

	envVarsJSON, err := json.Marshal(envVars)
	if err != nil {
		log.Error().Err(err).Msg("could not serialize task execution variables")
		return
	}

	// Determine the task execution's final variable set and record it.
	err = r.API.db.UpdatePipelineTaskExecution(r.API.db, newTaskExecution.Namespace, newTaskExecution.Pipeline,
		newTaskExecution.Run, newTaskExecution.ID,
		storage.UpdatablePipelineTaskExecutionFields{
			Variables: ptr(string(envVarsJSON)),
		})
	if err != nil {
		log.Error().Err(err).Msg("could not launch task execution")
		return
	}

	// Now we examine the validity of the task execution to be started and wait for its parents to
	// finish running.
	err = r.setTaskExecutionState(*newTaskExecution, models.TaskExecutionStateWaiting)
	if err != nil {
		log.Error().Err(err).Msg("could not launch task execution")
		return
	}

	// First make sure all parents of the current task are in a finished state.
	for !r.parentTaskFinished(task.DependsOn) {
		if r.StopRuns.Load() {
			break
		}
		time.Sleep(time.Millisecond * 500)
	}

	// A cancelled run hands nothing more to the scheduler; anything that hasn't started yet
	// settles as cancelled.
	if r.StopRuns.Load() {
		_ = r.setTaskExecutionFinished(newTaskExecution.ID, nil, models.TaskExecutionStatusCancelled,
			&models.TaskExecutionStatusReason{
				Reason:      models.TaskExecutionStatusReasonKindCancelled,
				Description: "The run was cancelled before this task execution started",
			})
		return
	}

	err = r.setTaskExecutionState(*newTaskExecution, models.TaskExecutionStateProcessing)
	if err != nil {
		log.Error().Err(err).Msg("could not launch task execution")
		return
	}

	// Then check that the parents all finished in the required states. If not we mark this task
	// as skipped.
	err = r.taskDependenciesSatisfied(task.DependsOn)
	if err != nil {
		_ = r.setTaskExecutionFinished(newTaskExecution.ID, nil, models.TaskExecutionStatusSkipped,
			&models.TaskExecutionStatusReason{
				Reason:      models.TaskExecutionStatusReasonKindFailedPrecondition,
				Description: fmt.Sprintf("Task could not be run due to unmet dependencies; %v", err),
			})
		return
	}

	// After this point we're sure the task is in a state to be run. So we attempt to contact the
	// scheduler and start the container.

	// First we attempt to find any object/secret store directives and resolve them. At first glance
	// this may seem like work that could move upwards, but it's important that this runs only after
	// a task's parents have finished; it enables tasks to pass objects to downstream tasks.
	envVars, err = r.API.interpolateVars(r.Pipeline.Namespace, r.Pipeline.ID, &r.Run.ID, envVars)
	if err != nil {
		_ = r.setTaskExecutionFinished(newTaskExecution.ID, nil, models.TaskExecutionStatusFailed,
			&models.TaskExecutionStatusReason{
				Reason:      models.TaskExecutionStatusReasonKindFailedPrecondition,
				Description: fmt.Sprintf("Task could not be run due to inability to retrieve interpolated variables; %v", err),
			})
		return
	}

	containerID := taskContainerID(r.Pipeline.Namespace, r.Pipeline.ID, r.Run.ID, newTaskExecution.ID)

	// Docker image pulls flake under load, so transient scheduler errors are retried with backoff
	// before the execution is failed for good.
	startContainer := func() error {
		_, err := r.API.scheduler.StartContainer(scheduler.StartContainerRequest{
			ID:           containerID,
			ImageName:    task.Image,
			EnvVars:      convertVarsToMap(envVars),
			RegistryAuth: task.RegistryAuth,
			AlwaysPull:   task.AlwaysPullNewestImage,
			Entrypoint:   task.Entrypoint,
			Command:      task.Command,
		})
		if err != nil {
			if errors.Is(err, scheduler.ErrNoSuchImage) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	err = backoff.Retry(startContainer, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3))
	if err != nil {
		_ = r.setTaskExecutionFinished(newTaskExecution.ID, nil, models.TaskExecutionStatusFailed,
			&models.TaskExecutionStatusReason{
				Reason:      models.TaskExecutionStatusReasonKindSchedulerError,
				Description: fmt.Sprintf("Task could not be run due to inability to be scheduled; %v", err),
			})
		return
	}

	err = r.API.db.UpdatePipelineTaskExecution(r.API.db, newTaskExecution.Namespace, newTaskExecution.Pipeline,
		newTaskExecution.Run, newTaskExecution.ID,
		storage.UpdatablePipelineTaskExecutionFields{
			State:   ptr(string(models.TaskExecutionStateRunning)),
			Started: ptr(fmt.Sprint(time.Now().UnixMilli())),
		})
	if err != nil {
		log.Error().Err(err).Msg("could not launch task execution")
		return
	}

	go r.API.events.Publish(models.EventStartedTaskExecution{
		NamespaceID:     r.Pipeline.Namespace,
		PipelineID:      r.Pipeline.ID,
		RunID:           r.Run.ID,
		TaskExecutionID: newTaskExecution.ID,
	})

	newTaskExecution.State = models.TaskExecutionStateRunning
	r.TaskExecutions.Set(newTaskExecution.ID, *newTaskExecution)

	timeout := time.Duration(task.Timeout) * time.Second
	if task.Timeout == 0 {
		timeout = time.Duration(r.API.config.TaskDefaultTimeoutSeconds) * time.Second
	}
	go r.enforceTimeout(containerID, newTaskExecution.ID, timeout)

	// Block until the task execution is finished.
	err = r.monitorTaskExecution(containerID, newTaskExecution.ID)
	if err != nil {
		log.Error().Err(err).Msg("could not monitor task execution")
		return
	}
}
