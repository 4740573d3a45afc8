package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/danielgtaylor/huma/v2"
	"github.com/jmoiron/sqlx"

	"github.com/rs/zerolog/log"
)

// launchRun validates that a pipeline can accept a new run, persists the run, and kicks off the
// state machine that shepherds it to completion. Callers supply the config version to run against;
// 0 means the latest live version.
func (apictx *APIContext) launchRun(namespace, pipeline string, version int64, initiator models.Initiator,
	variables []models.Variable,
) (*models.Run, error) {
	storedMetadata, err := apictx.db.GetPipelineMetadata(apictx.db, namespace, pipeline)
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return nil, huma.NewError(http.StatusNotFound, "pipeline not found")
		}

		log.Error().Err(err).Msg("could not get pipeline from storage")
		return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline", err)
	}

	var metadata models.PipelineMetadata
	metadata.FromStorage(&storedMetadata)

	if metadata.State != models.PipelineStateActive {
		return nil, huma.NewError(http.StatusPreconditionFailed,
			"pipeline is disabled and cannot accept new runs; enable the pipeline first")
	}

	var storedConfig storage.PipelineConfig
	if version == 0 {
		storedConfig, err = apictx.db.GetLatestLivePipelineConfig(apictx.db, namespace, pipeline)
	} else {
		storedConfig, err = apictx.db.GetPipelineConfig(apictx.db, namespace, pipeline, version)
	}
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return nil, huma.NewError(http.StatusPreconditionFailed, "pipeline has no live config version to run")
		}

		log.Error().Err(err).Msg("could not get pipeline config from storage")
		return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline config", err)
	}

	storedTasks, err := apictx.db.ListPipelineTasks(apictx.db, namespace, pipeline, storedConfig.Version)
	if err != nil {
		log.Error().Err(err).Msg("could not get pipeline tasks from storage")
		return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline tasks", err)
	}

	var config models.PipelineConfig
	config.FromStorage(&storedConfig, storedTasks)

	// Admission happens before a run id is reserved; a rejected attempt leaves no run record
	// behind and emits no events.
	limitExceeded, err := apictx.parallelismLimitExceeded(namespace, pipeline, config.Parallelism)
	if err != nil {
		log.Error().Err(err).Msg("could not check pipeline parallelism limit")
		return nil, huma.NewError(http.StatusInternalServerError, "could not create run", err)
	}
	if limitExceeded {
		return nil, huma.NewError(http.StatusPreconditionFailed,
			"pipeline has reached its limit for concurrent runs; wait for in-progress runs to finish")
	}

	// The id read and the insert share a transaction so concurrent starts cannot race to the
	// same run id.
	var newRun *models.Run
	err = storage.InsideTx(apictx.db.DB, func(tx *sqlx.Tx) error {
		latestRunID := int64(0)
		latestRun, err := apictx.db.GetLatestPipelineRun(tx, namespace, pipeline)
		if err != nil {
			if !errors.Is(err, storage.ErrEntityNotFound) {
				return err
			}
		} else {
			latestRunID = latestRun.ID
		}

		newRun = models.NewRun(namespace, pipeline, config.Version, latestRunID+1, initiator, variables)
		newRun.Started = uint64(time.Now().UnixMilli())

		return apictx.db.InsertPipelineRun(tx, newRun.ToStorage())
	})
	if err != nil {
		log.Error().Err(err).Msg("could not insert run into storage")
		return nil, huma.NewError(http.StatusInternalServerError, "could not create run", err)
	}

	go apictx.events.Publish(models.EventStartedRun{
		NamespaceID: namespace,
		PipelineID:  pipeline,
		RunID:       newRun.ID,
	})

	stateMachine := apictx.newRunStateMachine(&metadata, &config, newRun)
	apictx.runMachines.Set(runMachineKey(namespace, pipeline, newRun.ID), stateMachine)

	go stateMachine.executeTaskTree()

	return newRun, nil
}

// requestRunCancellation looks up a run and, when it is still in progress, kicks off the
// cancellation in the background. Cancelling a run that has already finished is a no-op so that
// repeated cancellations are idempotent.
func (apictx *APIContext) requestRunCancellation(namespace, pipeline string, runID int64, force bool) error {
	storedRun, err := apictx.db.GetPipelineRun(apictx.db, namespace, pipeline, runID)
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return huma.NewError(http.StatusNotFound, "run not found")
		}

		log.Error().Err(err).Msg("could not get run from storage")
		return huma.NewError(http.StatusInternalServerError, "could not get run", err)
	}

	var run models.Run
	run.FromStorage(&storedRun)

	if run.State == models.RunStateComplete {
		return nil
	}

	go func() {
		if err := apictx.cancelRun(&run, "Run cancelled via API", force); err != nil {
			log.Error().Err(err).Int64("run", run.ID).Msg("could not cancel run")
		}
	}()

	return nil
}

type (
	StartRunRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Body        struct {
			Variables map[string]string `json:"variables,omitempty" doc:"Environment variables to inject into every task for this run"`
			Initiator *models.Initiator `json:"initiator,omitempty" doc:"What caused the run to start; defaults to a human initiator"`
		}
	}
	StartRunResponse struct {
		Body struct {
			Run models.Run `json:"run" doc:"The newly created run"`
		}
	}
)

func (apictx *APIContext) registerStartRun(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "StartRun",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs",
		Summary:     "Start a new run",
		Description: "Launches a new run against the pipeline's latest live config version. The run is launched " +
			"asynchronously; poll the run or subscribe to events to follow its progress.",
		Tags:          []string{"Runs"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *StartRunRequest) (*StartRunResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		initiator := models.Initiator{
			Type:   models.InitiatorTypeHuman,
			Name:   "api",
			Reason: "Manually initiated run",
		}
		if request.Body.Initiator != nil {
			initiator = *request.Body.Initiator
		}

		// During maintenance windows the admin can pause everything extensions try to launch.
		// Humans hitting the API directly are deliberately let through so operators can still debug.
		if initiator.Type == models.InitiatorTypeExtension && apictx.ignorePipelineRunEvents.Load() {
			return nil, huma.NewError(http.StatusServiceUnavailable,
				"service is not currently accepting extension initiated runs; try again later")
		}

		variables := convertVarsToSlice(request.Body.Variables, models.VariableSourceRun)

		newRun, err := apictx.launchRun(request.NamespaceID, request.PipelineID, 0, initiator, variables)
		if err != nil {
			return nil, err
		}

		resp := &StartRunResponse{}
		resp.Body.Run = *newRun

		return resp, nil
	})
}

type (
	ListRunsRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Offset      int    `query:"offset" example:"0" doc:"The offset into the run list to start at"`
		Limit       int    `query:"limit" example:"10" doc:"The total amount of results to limit by"`
	}
	ListRunsResponse struct {
		Body struct {
			Runs []models.Run `json:"runs" doc:"Runs for the pipeline, newest first"`
		}
	}
)

func (apictx *APIContext) registerListRuns(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListRuns",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs",
		Summary:     "List all runs for a pipeline",
		Description: "Returns runs for a pipeline, newest first.",
		Tags:        []string{"Runs"},
		// Handler //
	}, func(ctx context.Context, request *ListRunsRequest) (*ListRunsResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedRuns, err := apictx.db.ListPipelineRuns(apictx.db, request.Offset, request.Limit,
			request.NamespaceID, request.PipelineID)
		if err != nil {
			log.Error().Err(err).Msg("could not get runs from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get runs", err)
		}

		runs := []models.Run{}
		for _, storedRun := range storedRuns {
			var run models.Run
			run.FromStorage(&storedRun)
			runs = append(runs, run)
		}

		resp := &ListRunsResponse{}
		resp.Body.Runs = runs

		return resp, nil
	})
}

type (
	DescribeRunRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the target run"`
	}
	DescribeRunResponse struct {
		Body struct {
			Run models.Run `json:"run" doc:"The requested run"`
		}
	}
)

func (apictx *APIContext) registerDescribeRun(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DescribeRun",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}",
		Summary:     "Describe a run",
		Description: "Returns details for a single run.",
		Tags:        []string{"Runs"},
		// Handler //
	}, func(ctx context.Context, request *DescribeRunRequest) (*DescribeRunResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedRun, err := apictx.db.GetPipelineRun(apictx.db, request.NamespaceID, request.PipelineID, request.RunID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "run not found")
			}

			log.Error().Err(err).Msg("could not get run from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get run", err)
		}

		var run models.Run
		run.FromStorage(&storedRun)

		resp := &DescribeRunResponse{}
		resp.Body.Run = run

		return resp, nil
	})
}

type (
	RetryRunRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the run to retry"`
	}
	RetryRunResponse struct {
		Body struct {
			Run models.Run `json:"run" doc:"The new run created from the retry"`
		}
	}
)

func (apictx *APIContext) registerRetryRun(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "RetryRun",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/retry",
		Summary:     "Retry a run",
		Description: "Launches a brand new run using the same config version and variables as a previous run.",
		Tags:          []string{"Runs"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *RetryRunRequest) (*RetryRunResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedRun, err := apictx.db.GetPipelineRun(apictx.db, request.NamespaceID, request.PipelineID, request.RunID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "run not found")
			}

			log.Error().Err(err).Msg("could not get run from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get run", err)
		}

		var run models.Run
		run.FromStorage(&storedRun)

		initiator := models.Initiator{
			Type:   models.InitiatorTypeHuman,
			Name:   "api",
			Reason: fmt.Sprintf("Manual retry of run %d", run.ID),
		}

		// Run variables only; config and system layers are recomputed fresh on launch.
		runVariables := []models.Variable{}
		for _, variable := range run.Variables {
			if variable.Source == models.VariableSourceRun || variable.Source == models.VariableSourceExtension {
				runVariables = append(runVariables, variable)
			}
		}

		newRun, err := apictx.launchRun(request.NamespaceID, request.PipelineID, run.Version, initiator, runVariables)
		if err != nil {
			return nil, err
		}

		resp := &RetryRunResponse{}
		resp.Body.Run = *newRun

		return resp, nil
	})
}

type (
	CancelRunRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the run to cancel"`
		Force       bool   `query:"force" example:"false" doc:"Stop containers immediately instead of waiting out the grace period"`
	}
	CancelRunResponse struct{}
)

func (apictx *APIContext) registerCancelRun(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "CancelRun",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/cancel",
		Summary:     "Cancel a run",
		Description: "Stops all in-progress task executions for a run and marks the run as cancelled. Containers are " +
			"given a grace period to shut down cleanly unless force is set. Cancelling a run that has already " +
			"finished is a no-op.",
		Tags: []string{"Runs"},
		// Handler //
	}, func(ctx context.Context, request *CancelRunRequest) (*CancelRunResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		err := apictx.requestRunCancellation(request.NamespaceID, request.PipelineID, request.RunID, request.Force)
		if err != nil {
			return nil, err
		}

		return &CancelRunResponse{}, nil
	})
}

type (
	CancelAllRunsRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Force       bool   `query:"force" example:"false" doc:"Stop containers immediately instead of waiting out the grace period"`
	}
	CancelAllRunsResponse struct {
		Body struct {
			Runs []int64 `json:"runs" example:"[1,2,3]" doc:"The ids of all runs that were cancelled"`
		}
	}
)

func (apictx *APIContext) registerCancelAllRuns(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "CancelAllRuns",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/cancel-all",
		Summary:     "Cancel all in-progress runs for a pipeline",
		Description: "Stops every run that is currently in progress for a pipeline. Useful together with disabling the " +
			"pipeline to fully quiesce it.",
		Tags: []string{"Runs"},
		// Handler //
	}, func(ctx context.Context, request *CancelAllRunsRequest) (*CancelAllRunsResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		cancelledRuns, err := apictx.cancelAllRuns(request.NamespaceID, request.PipelineID,
			"Run cancelled via API; all in-progress runs for this pipeline were stopped", request.Force)
		if err != nil {
			log.Error().Err(err).Msg("could not cancel runs")
			return nil, huma.NewError(http.StatusInternalServerError, "could not cancel runs", err)
		}

		resp := &CancelAllRunsResponse{}
		resp.Body.Runs = cancelledRuns

		return resp, nil
	})
}
