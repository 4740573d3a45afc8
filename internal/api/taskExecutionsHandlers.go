package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/danielgtaylor/huma/v2"

	"github.com/rs/zerolog/log"
)

type (
	ListTaskExecutionsRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the target run"`
	}
	ListTaskExecutionsResponse struct {
		Body struct {
			TaskExecutions []models.TaskExecution `json:"task_executions" doc:"All task executions for the run"`
		}
	}
)

func (apictx *APIContext) registerListTaskExecutions(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListTaskExecutions",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/tasks",
		Summary:     "List all task executions for a run",
		Description: "Returns every task execution that was spawned for a run.",
		Tags:        []string{"TaskExecutions"},
		// Handler //
	}, func(ctx context.Context, request *ListTaskExecutionsRequest) (*ListTaskExecutionsResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedExecutions, err := apictx.db.ListPipelineTaskExecutions(apictx.db, 0, 0, request.NamespaceID,
			request.PipelineID, request.RunID)
		if err != nil {
			log.Error().Err(err).Msg("could not get task executions from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get task executions", err)
		}

		taskExecutions := []models.TaskExecution{}
		for _, storedExecution := range storedExecutions {
			var taskExecution models.TaskExecution
			taskExecution.FromStorage(&storedExecution)
			taskExecutions = append(taskExecutions, taskExecution)
		}

		resp := &ListTaskExecutionsResponse{}
		resp.Body.TaskExecutions = taskExecutions

		return resp, nil
	})
}

type (
	DescribeTaskExecutionRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the target run"`
		TaskID      string `path:"task_id" example:"my_task" doc:"Unique identifier of the target task"`
	}
	DescribeTaskExecutionResponse struct {
		Body struct {
			TaskExecution models.TaskExecution `json:"task_execution" doc:"The requested task execution"`
		}
	}
)

func (apictx *APIContext) registerDescribeTaskExecution(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DescribeTaskExecution",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/tasks/{task_id}",
		Summary:     "Describe a task execution",
		Description: "Returns details for a single task execution.",
		Tags:        []string{"TaskExecutions"},
		// Handler //
	}, func(ctx context.Context, request *DescribeTaskExecutionRequest) (*DescribeTaskExecutionResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedExecution, err := apictx.db.GetPipelineTaskExecution(apictx.db, request.NamespaceID,
			request.PipelineID, request.RunID, request.TaskID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "task execution not found")
			}

			log.Error().Err(err).Msg("could not get task execution from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get task execution", err)
		}

		var taskExecution models.TaskExecution
		taskExecution.FromStorage(&storedExecution)

		resp := &DescribeTaskExecutionResponse{}
		resp.Body.TaskExecution = taskExecution

		return resp, nil
	})
}

type (
	CancelTaskExecutionRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the target run"`
		TaskID      string `path:"task_id" example:"my_task" doc:"Unique identifier of the target task"`
		Force       bool   `query:"force" example:"false" doc:"Stop the container immediately instead of waiting out the grace period"`
	}
	CancelTaskExecutionResponse struct{}
)

func (apictx *APIContext) registerCancelTaskExecution(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "CancelTaskExecution",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/tasks/{task_id}/cancel",
		Summary:     "Cancel a single task execution",
		Description: "Stops the container for a single in-progress task execution. Downstream tasks that depend on it " +
			"resolve their dependencies as if the task failed.",
		Tags: []string{"TaskExecutions"},
		// Handler //
	}, func(ctx context.Context, request *CancelTaskExecutionRequest) (*CancelTaskExecutionResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedExecution, err := apictx.db.GetPipelineTaskExecution(apictx.db, request.NamespaceID,
			request.PipelineID, request.RunID, request.TaskID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "task execution not found")
			}

			log.Error().Err(err).Msg("could not get task execution from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get task execution", err)
		}

		var taskExecution models.TaskExecution
		taskExecution.FromStorage(&storedExecution)

		if taskExecution.State == models.TaskExecutionStateComplete {
			return nil, huma.NewError(http.StatusPreconditionFailed, "task execution has already finished")
		}

		timeout := apictx.config.TaskExecutionStopTimeout()
		if request.Force {
			timeout = forceStopTimeout
		}

		if err := apictx.cancelTaskExecution(&taskExecution, timeout); err != nil {
			log.Error().Err(err).Msg("could not cancel task execution")
			return nil, huma.NewError(http.StatusInternalServerError, "could not cancel task execution", err)
		}

		return &CancelTaskExecutionResponse{}, nil
	})
}

type (
	DeleteTaskExecutionLogsRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the target run"`
		TaskID      string `path:"task_id" example:"my_task" doc:"Unique identifier of the target task"`
	}
	DeleteTaskExecutionLogsResponse struct{}
)

func (apictx *APIContext) registerDeleteTaskExecutionLogs(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeleteTaskExecutionLogs",
		Method:      http.MethodDelete,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/tasks/{task_id}/logs",
		Summary:     "Delete the log file for a task execution",
		Description: "Removes the stored log file for a finished task execution. In-progress executions must finish " +
			"or be cancelled before their logs can be removed.",
		Tags: []string{"TaskExecutions"},
		// Handler //
	}, func(ctx context.Context, request *DeleteTaskExecutionLogsRequest) (*DeleteTaskExecutionLogsResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedExecution, err := apictx.db.GetPipelineTaskExecution(apictx.db, request.NamespaceID,
			request.PipelineID, request.RunID, request.TaskID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "task execution not found")
			}

			log.Error().Err(err).Msg("could not get task execution from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get task execution", err)
		}

		var taskExecution models.TaskExecution
		taskExecution.FromStorage(&storedExecution)

		if taskExecution.State != models.TaskExecutionStateComplete {
			return nil, huma.NewError(http.StatusPreconditionFailed,
				"can not delete logs for a task execution that is still in progress")
		}

		logFilePath := taskExecutionLogFilePath(apictx.config.TaskExecutionLogsDir, request.NamespaceID,
			request.PipelineID, request.RunID, request.TaskID)

		if err := os.Remove(logFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Error().Err(err).Msg("could not remove task execution log file")
			return nil, huma.NewError(http.StatusInternalServerError, "could not remove log file", err)
		}

		err = apictx.db.UpdatePipelineTaskExecution(apictx.db, request.NamespaceID, request.PipelineID,
			request.RunID, request.TaskID, storage.UpdatablePipelineTaskExecutionFields{
				LogsRemoved: ptr(true),
			})
		if err != nil {
			log.Error().Err(err).Msg("could not update task execution")
			return nil, huma.NewError(http.StatusInternalServerError, "could not update task execution", err)
		}

		return &DeleteTaskExecutionLogsResponse{}, nil
	})
}
