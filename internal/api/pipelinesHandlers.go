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

	"github.com/rs/zerolog/log"
)

type (
	ListPipelinesRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		Offset      int    `query:"offset" example:"0" doc:"The offset into the pipeline list to start at"`
		Limit       int    `query:"limit" example:"10" doc:"The total amount of results to limit by"`
	}
	ListPipelinesResponse struct {
		Body struct {
			Pipelines []models.PipelineMetadata `json:"pipelines" doc:"Metadata for all pipelines within the namespace"`
		}
	}
)

func (apictx *APIContext) registerListPipelines(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListPipelines",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines",
		Summary:     "List all pipelines",
		Description: "Returns the metadata for all pipelines within a namespace.",
		Tags:        []string{"Pipelines"},
		// Handler //
	}, func(ctx context.Context, request *ListPipelinesRequest) (*ListPipelinesResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedPipelines, err := apictx.db.ListPipelineMetadata(apictx.db, request.Offset, request.Limit, request.NamespaceID)
		if err != nil {
			log.Error().Err(err).Msg("could not get pipelines from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get pipelines", err)
		}

		pipelines := []models.PipelineMetadata{}
		for _, storedPipeline := range storedPipelines {
			var pipeline models.PipelineMetadata
			pipeline.FromStorage(&storedPipeline)
			pipelines = append(pipelines, pipeline)
		}

		resp := &ListPipelinesResponse{}
		resp.Body.Pipelines = pipelines

		return resp, nil
	})
}

type (
	DescribePipelineRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
	}
	DescribePipelineResponse struct {
		Body struct {
			Metadata models.PipelineMetadata `json:"metadata" doc:"The stateful information for the pipeline"`

			// Nil when no config version has been registered yet.
			Config *models.PipelineConfig `json:"config" doc:"The latest live config version for the pipeline"`
		}
	}
)

func (apictx *APIContext) registerDescribePipeline(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DescribePipeline",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}",
		Summary:     "Describe a pipeline",
		Description: "Returns the pipeline's metadata together with its latest live configuration.",
		Tags:        []string{"Pipelines"},
		// Handler //
	}, func(ctx context.Context, request *DescribePipelineRequest) (*DescribePipelineResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedMetadata, err := apictx.db.GetPipelineMetadata(apictx.db, request.NamespaceID, request.PipelineID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "pipeline not found")
			}

			log.Error().Err(err).Msg("could not get pipeline from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline", err)
		}

		var metadata models.PipelineMetadata
		metadata.FromStorage(&storedMetadata)

		resp := &DescribePipelineResponse{}
		resp.Body.Metadata = metadata

		storedConfig, err := apictx.db.GetLatestLivePipelineConfig(apictx.db, request.NamespaceID, request.PipelineID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return resp, nil
			}

			log.Error().Err(err).Msg("could not get pipeline config from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline config", err)
		}

		storedTasks, err := apictx.db.ListPipelineTasks(apictx.db, request.NamespaceID, request.PipelineID, storedConfig.Version)
		if err != nil {
			log.Error().Err(err).Msg("could not get pipeline tasks from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline tasks", err)
		}

		var config models.PipelineConfig
		config.FromStorage(&storedConfig, storedTasks)
		resp.Body.Config = &config

		return resp, nil
	})
}

// setPipelineState flips the ACTIVE/DISABLED flag on the metadata row and refreshes the modified time.
func (apictx *APIContext) setPipelineState(namespace, pipeline string, state models.PipelineState) error {
	return apictx.db.UpdatePipelineMetadata(apictx.db, namespace, pipeline, storage.UpdatablePipelineMetadataFields{
		State:    ptr(string(state)),
		Modified: ptr(fmt.Sprint(time.Now().UnixMilli())),
	})
}

type (
	EnablePipelineRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
	}
	EnablePipelineResponse struct{}
)

func (apictx *APIContext) registerEnablePipeline(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "EnablePipeline",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/enable",
		Summary:     "Enable a pipeline",
		Description: "Allows a pipeline to accept new runs again after being disabled.",
		Tags:        []string{"Pipelines"},
		// Handler //
	}, func(ctx context.Context, request *EnablePipelineRequest) (*EnablePipelineResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		err := apictx.setPipelineState(request.NamespaceID, request.PipelineID, models.PipelineStateActive)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "pipeline not found")
			}

			log.Error().Err(err).Msg("could not update pipeline state")
			return nil, huma.NewError(http.StatusInternalServerError, "could not enable pipeline", err)
		}

		go apictx.events.Publish(models.EventEnabledPipeline{
			NamespaceID: request.NamespaceID,
			PipelineID:  request.PipelineID,
		})

		return &EnablePipelineResponse{}, nil
	})
}

type (
	DisablePipelineRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
	}
	DisablePipelineResponse struct{}
)

func (apictx *APIContext) registerDisablePipeline(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DisablePipeline",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/disable",
		Summary:     "Disable a pipeline",
		Description: "Stops a pipeline from launching new runs. Runs already in progress continue to completion.",
		Tags:        []string{"Pipelines"},
		// Handler //
	}, func(ctx context.Context, request *DisablePipelineRequest) (*DisablePipelineResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		err := apictx.setPipelineState(request.NamespaceID, request.PipelineID, models.PipelineStateDisabled)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "pipeline not found")
			}

			log.Error().Err(err).Msg("could not update pipeline state")
			return nil, huma.NewError(http.StatusInternalServerError, "could not disable pipeline", err)
		}

		go apictx.events.Publish(models.EventDisabledPipeline{
			NamespaceID: request.NamespaceID,
			PipelineID:  request.PipelineID,
		})

		return &DisablePipelineResponse{}, nil
	})
}

type (
	DeletePipelineRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
	}
	DeletePipelineResponse struct{}
)

func (apictx *APIContext) registerDeletePipeline(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeletePipeline",
		Method:      http.MethodDelete,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}",
		Summary:     "Delete a pipeline",
		Description: "Removes a pipeline along with all of its configs, runs, and task executions.",
		Tags:        []string{"Pipelines"},
		// Handler //
	}, func(ctx context.Context, request *DeletePipelineRequest) (*DeletePipelineResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		err := apictx.db.DeletePipelineMetadata(apictx.db, request.NamespaceID, request.PipelineID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "pipeline not found")
			}

			log.Error().Err(err).Msg("could not delete pipeline")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete pipeline", err)
		}

		go apictx.events.Publish(models.EventDeletedPipeline{
			NamespaceID: request.NamespaceID,
			PipelineID:  request.PipelineID,
		})

		log.Info().Str("namespace", request.NamespaceID).Str("pipeline", request.PipelineID).Msg("deleted pipeline")

		return &DeletePipelineResponse{}, nil
	})
}
