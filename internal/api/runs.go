package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/scheduler"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

// GOFEREOF is a special string marker included at the end of log files. It denotes that no further
// logs will be written. This is to provide the functionality for downstream applications to follow
// log files and not also have to monitor the container for state to know when logs will no longer
// be printed.
const GOFEREOF string = "GOFER_EOF"

// forceStopTimeout is the grace period containers get when a caller asks for a forced stop.
const forceStopTimeout = time.Millisecond * 500

// InterpolationKind is the prefix of an interpolation directive inside a variable value.
// For example `pipeline_secret{{ some_key }}`.
type InterpolationKind string

const (
	InterpolationKindPipelineSecret InterpolationKind = "pipeline_secret"
	InterpolationKindGlobalSecret   InterpolationKind = "global_secret"
	InterpolationKindPipelineObject InterpolationKind = "pipeline_object"
	InterpolationKindRunObject      InterpolationKind = "run_object"
)

// parseInterpolationSyntax checks a string for the existence of an interpolation directive of the
// given kind ("kind{{ key }}"). If the directive matches we return the inner key, otherwise the
// second return is false.
func parseInterpolationSyntax(kind InterpolationKind, variable string) (string, bool) {
	variable = strings.TrimSpace(variable)
	prefix := string(kind) + "{{"

	if strings.HasPrefix(variable, prefix) && strings.HasSuffix(variable, "}}") {
		variable = strings.TrimPrefix(variable, prefix)
		variable = strings.TrimSuffix(variable, "}}")
		return strings.TrimSpace(variable), true
	}

	return "", false
}

// globalSecretAccessAllowed evaluates a global secret's namespace filter against a target
// namespace. Filters support a trailing '*' wildcard for prefix matching; an empty filter list
// allows all namespaces.
func globalSecretAccessAllowed(filters []string, namespace string) bool {
	if len(filters) == 0 {
		return true
	}

	for _, filter := range filters {
		if strings.HasSuffix(filter, "*") {
			if strings.HasPrefix(namespace, strings.TrimSuffix(filter, "*")) {
				return true
			}
			continue
		}

		if filter == namespace {
			return true
		}
	}

	return false
}

// interpolateVars takes in a list of mixed plaintext and raw interpolation directive strings and
// attempts to resolve the directives against the object and secret stores.
//
// It resolves four directives:
//   - `pipeline_secret{{ key }}`: secrets scoped to the pipeline.
//   - `global_secret{{ key }}`: administrator provisioned secrets; the calling namespace must pass
//     the secret's namespace filter.
//   - `pipeline_object{{ key }}`: objects scoped to the pipeline.
//   - `run_object{{ key }}`: objects scoped to a single run; only valid when a run id is supplied.
func (apictx *APIContext) interpolateVars(namespace, pipeline string, run *int64, variables []models.Variable) (
	[]models.Variable, error,
) {
	interpolatedVariables := []models.Variable{}

	for _, variable := range variables {
		variable := variable

		if key, found := parseInterpolationSyntax(InterpolationKindPipelineSecret, variable.Value); found {
			secret, err := apictx.secretStore.GetSecret(pipelineSecretKey(namespace, pipeline, key))
			if err != nil {
				return nil, fmt.Errorf("could not get pipeline secret %q: %w", key, err)
			}

			variable.Value = secret
			interpolatedVariables = append(interpolatedVariables, variable)
			continue
		}

		if key, found := parseInterpolationSyntax(InterpolationKindGlobalSecret, variable.Value); found {
			secretKeyRaw, err := apictx.db.GetSecretStoreGlobalKey(apictx.db, key)
			if err != nil {
				return nil, fmt.Errorf("could not get global secret %q: %w", key, err)
			}

			var secretKey models.GlobalSecretKey
			secretKey.FromStorage(&secretKeyRaw)

			if !globalSecretAccessAllowed(secretKey.Namespaces, namespace) {
				return nil, fmt.Errorf("global secret %q cannot be used in namespace %q", key, namespace)
			}

			secret, err := apictx.secretStore.GetSecret(globalSecretKey(key))
			if err != nil {
				return nil, fmt.Errorf("could not get global secret %q: %w", key, err)
			}

			variable.Value = secret
			interpolatedVariables = append(interpolatedVariables, variable)
			continue
		}

		if key, found := parseInterpolationSyntax(InterpolationKindPipelineObject, variable.Value); found {
			object, err := apictx.objectStore.GetObject(pipelineObjectKey(namespace, pipeline, key))
			if err != nil {
				return nil, fmt.Errorf("could not get pipeline object %q: %w", key, err)
			}

			variable.Value = string(object)
			interpolatedVariables = append(interpolatedVariables, variable)
			continue
		}

		if key, found := parseInterpolationSyntax(InterpolationKindRunObject, variable.Value); found {
			if run == nil {
				return nil, fmt.Errorf("run object %q cannot be used outside of a run", key)
			}

			object, err := apictx.objectStore.GetObject(runObjectKey(namespace, pipeline, *run, key))
			if err != nil {
				return nil, fmt.Errorf("could not get run object %q: %w", key, err)
			}

			variable.Value = string(object)
			interpolatedVariables = append(interpolatedVariables, variable)
			continue
		}

		interpolatedVariables = append(interpolatedVariables, variable)
	}

	return interpolatedVariables, nil
}

// systemInjectedVars returns the environment variables Gofer passes to every task execution.
func systemInjectedVars(run *models.Run, task *models.Task) []models.Variable {
	vars := []models.Variable{
		{
			Key:         "GOFER_NAMESPACE_ID",
			Value:       run.Namespace,
			Source:      models.VariableSourceSystem,
			Sensitivity: models.VariableSensitivityPublic,
		},
		{
			Key:         "GOFER_PIPELINE_ID",
			Value:       run.Pipeline,
			Source:      models.VariableSourceSystem,
			Sensitivity: models.VariableSensitivityPublic,
		},
		{
			Key:         "GOFER_RUN_ID",
			Value:       strconv.FormatInt(run.ID, 10),
			Source:      models.VariableSourceSystem,
			Sensitivity: models.VariableSensitivityPublic,
		},
		{
			Key:         "GOFER_TASK_ID",
			Value:       task.ID,
			Source:      models.VariableSourceSystem,
			Sensitivity: models.VariableSensitivityPublic,
		},
		{
			Key:         "GOFER_TASK_IMAGE",
			Value:       task.Image,
			Source:      models.VariableSourceSystem,
			Sensitivity: models.VariableSensitivityPublic,
		},
	}

	if task.InjectAPIToken {
		vars = append(vars, models.Variable{
			Key:         "GOFER_API_TOKEN",
			Value:       fmt.Sprintf("pipeline_secret{{gofer_api_token_%d}}", run.ID),
			Source:      models.VariableSourceSystem,
			Sensitivity: models.VariableSensitivityPrivate,
		})
	}

	return vars
}

// combineVariables merges the final set of variables for a task execution. The order in which the
// layers are combined matters; in case of a key collision the last layer to be added wins:
//
//  1. Task level variables defined by the user in the pipeline config; the most replaceable.
//  2. Run level variables; these map back to the initiator's intent for this specific run.
//  3. System level variables injected by Gofer itself. These always win so that a run variable
//     cannot impersonate values like GOFER_RUN_ID or GOFER_API_TOKEN.
func combineVariables(run *models.Run, task *models.Task) []models.Variable {
	ordered := []models.Variable{}
	ordered = append(ordered, task.Variables...)
	ordered = append(ordered, run.Variables...)
	ordered = append(ordered, systemInjectedVars(run, task)...)

	position := map[string]int{}
	combined := []models.Variable{}

	for _, variable := range ordered {
		key := strings.TrimSpace(variable.Key)
		if key == "" {
			continue
		}

		if index, exists := position[key]; exists {
			combined[index] = variable
			continue
		}

		position[key] = len(combined)
		combined = append(combined, variable)
	}

	return combined
}

// convertVarsToMap transforms a variable list into the flat map the scheduler expects.
func convertVarsToMap(variables []models.Variable) map[string]string {
	vars := map[string]string{}
	for _, variable := range variables {
		vars[variable.Key] = variable.Value
	}

	return vars
}

// convertVarsToSlice is the inverse of convertVarsToMap; every entry is tagged with the given source.
func convertVarsToSlice(vars map[string]string, source models.VariableSource) []models.Variable {
	variables := []models.Variable{}
	for key, value := range vars {
		variables = append(variables, models.Variable{
			Key:         key,
			Value:       value,
			Source:      source,
			Sensitivity: models.VariableSensitivityPublic,
		})
	}

	return variables
}

// parallelismLimitExceeded reports whether a pipeline already has as many in-progress runs as the
// given limit allows. A limit of zero is unlimited.
func (apictx *APIContext) parallelismLimitExceeded(namespace, pipeline string, limit int64) (bool, error) {
	if limit == 0 {
		return false, nil
	}

	runsRaw, err := apictx.db.ListRunningPipelineRuns(apictx.db, 0, 0, namespace, pipeline)
	if err != nil {
		return false, err
	}

	runsInProgress := int64(len(runsRaw))

	if runsInProgress >= limit {
		log.Debug().Str("namespace", namespace).Str("pipeline", pipeline).Int64("limit", limit).
			Int64("currently_in_progress", runsInProgress).
			Msg("parallelism limit exceeded; new runs rejected until in-progress runs end")
	}

	return runsInProgress >= limit, nil
}

// cancelTaskExecution asks the scheduler to stop the container behind a task execution. The state
// machine monitoring the container picks up the resulting state change and settles the records.
func (apictx *APIContext) cancelTaskExecution(taskExecution *models.TaskExecution, timeout time.Duration) error {
	containerID := taskContainerID(taskExecution.Namespace, taskExecution.Pipeline, taskExecution.Run, taskExecution.ID)

	apictx.events.Publish(models.EventStartedTaskExecutionCancellation{
		NamespaceID:     taskExecution.Namespace,
		PipelineID:      taskExecution.Pipeline,
		RunID:           taskExecution.Run,
		TaskExecutionID: taskExecution.ID,
		Timeout:         int64(timeout.Seconds()),
	})

	err := apictx.scheduler.StopContainer(scheduler.StopContainerRequest{
		ID:      containerID,
		Timeout: timeout,
	})
	if err != nil {
		return err
	}

	return nil
}

// cancelRun cancels all in-progress task executions for a run and then blocks until the run's
// state machine has settled it into a terminal state.
func (apictx *APIContext) cancelRun(run *models.Run, description string, force bool) error {
	timeout := apictx.config.TaskExecutionStopTimeout()
	if force {
		timeout = forceStopTimeout
	}

	apictx.events.Publish(models.EventStartedRunCancellation{
		NamespaceID: run.Namespace,
		PipelineID:  run.Pipeline,
		RunID:       run.ID,
	})

	// Flag the in-memory state machine first so task executions that have not yet been handed to
	// the scheduler settle as cancelled instead of being dispatched.
	if machine, exists := apictx.runMachines.Get(runMachineKey(run.Namespace, run.Pipeline, run.ID)); exists {
		machine.StopRuns.Store(true)
	}

	for {
		taskExecutionsRaw, err := apictx.db.ListPipelineTaskExecutions(apictx.db, 0, 0, run.Namespace, run.Pipeline, run.ID)
		if err != nil {
			return err
		}

		for _, taskExecutionRaw := range taskExecutionsRaw {
			var taskExecution models.TaskExecution
			taskExecution.FromStorage(&taskExecutionRaw)

			if taskExecution.State != models.TaskExecutionStateRunning {
				continue
			}

			err := apictx.cancelTaskExecution(&taskExecution, timeout)
			if err != nil && !errors.Is(err, scheduler.ErrNoSuchContainer) {
				log.Error().Err(err).Str("task", taskExecution.ID).Str("pipeline", taskExecution.Pipeline).
					Int64("run", taskExecution.Run).Msg("could not cancel task execution")
			}
		}

		runRaw, err := apictx.db.GetPipelineRun(apictx.db, run.Namespace, run.Pipeline, run.ID)
		if err != nil {
			return err
		}

		var latestRun models.Run
		latestRun.FromStorage(&runRaw)

		if latestRun.State == models.RunStateComplete {
			if latestRun.Status == models.RunStatusCancelled && description != "" {
				reason := models.RunStatusReason{
					Reason:      models.RunStatusReasonKindUserCancelled,
					Description: description,
				}

				err := apictx.db.UpdatePipelineRun(apictx.db, run.Namespace, run.Pipeline, run.ID,
					storage.UpdatablePipelineRunFields{
						StatusReason: ptr(reason.ToJSON()),
					})
				if err != nil {
					return err
				}
			}

			return nil
		}

		time.Sleep(time.Second)
	}
}

// cancelAllRuns finds all in-progress runs for a pipeline by walking the event history and then
// cancels each one. It blocks until every cancelled run has fully settled and returns the ids of
// the runs it acted on.
func (apictx *APIContext) cancelAllRuns(namespaceID, pipelineID, description string, force bool) ([]int64, error) {
	type runKey struct {
		namespace string
		pipeline  string
		run       int64
	}

	events := apictx.events.GetAll(false)
	inProgressRuns := map[runKey]struct{}{}

	for event := range events {
		switch evt := event.Details.(type) {
		case *models.EventStartedRun:
			if evt.NamespaceID != namespaceID || evt.PipelineID != pipelineID {
				continue
			}

			inProgressRuns[runKey{
				namespace: evt.NamespaceID,
				pipeline:  evt.PipelineID,
				run:       evt.RunID,
			}] = struct{}{}

		case *models.EventCompletedRun:
			delete(inProgressRuns, runKey{
				namespace: evt.NamespaceID,
				pipeline:  evt.PipelineID,
				run:       evt.RunID,
			})
		}
	}

	var wg sync.WaitGroup
	cancelledRunList := []int64{}

	for key := range inProgressRuns {
		runRaw, err := apictx.db.GetPipelineRun(apictx.db, key.namespace, key.pipeline, key.run)
		if err != nil {
			log.Error().Err(err).Str("namespace", key.namespace).Str("pipeline", key.pipeline).
				Int64("run", key.run).Msg("could not retrieve run during mass cancellation")
			continue
		}

		var run models.Run
		run.FromStorage(&runRaw)

		if run.State == models.RunStateComplete {
			continue
		}

		cancelledRunList = append(cancelledRunList, run.ID)

		wg.Add(1)
		go func(run models.Run) {
			defer wg.Done()

			err := apictx.cancelRun(&run, description, force)
			if err != nil {
				log.Error().Err(err).Str("namespace", run.Namespace).Str("pipeline", run.Pipeline).
					Int64("run", run.ID).Msg("could not cancel run during mass cancellation")
			}
		}(run)
	}

	wg.Wait()
	return cancelledRunList, nil
}
