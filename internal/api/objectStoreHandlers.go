package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/objectStore"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/danielgtaylor/huma/v2"

	"github.com/rs/zerolog/log"
)

type (
	ListPipelineObjectsRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
	}
	ListPipelineObjectsResponse struct {
		Body struct {
			Keys []models.ObjectStoreKey `json:"keys" doc:"Metadata for all objects stored at the pipeline level"`
		}
	}
)

func (apictx *APIContext) registerListPipelineObjects(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListPipelineObjects",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/objects",
		Summary:     "List all objects stored at the pipeline level",
		Description: "Returns the keys for all pipeline level objects. Pipeline objects live until evicted by " +
			"newer objects pushing the pipeline past its object limit.",
		Tags: []string{"Objects"},
		// Handler //
	}, func(ctx context.Context, request *ListPipelineObjectsRequest) (*ListPipelineObjectsResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedKeys, err := apictx.db.ListObjectStorePipelineKeys(apictx.db, request.NamespaceID, request.PipelineID)
		if err != nil {
			log.Error().Err(err).Msg("could not get object keys from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get object keys", err)
		}

		keys := []models.ObjectStoreKey{}
		for _, storedKey := range storedKeys {
			var key models.ObjectStoreKey
			key.FromPipelineStorage(&storedKey)
			keys = append(keys, key)
		}

		resp := &ListPipelineObjectsResponse{}
		resp.Body.Keys = keys

		return resp, nil
	})
}

type (
	GetPipelineObjectRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Key         string `path:"key" example:"my_object" doc:"The name of the object"`
	}
	GetPipelineObjectResponse struct {
		Body struct {
			Content []byte `json:"content" doc:"The object's raw bytes"`
		}
	}
)

func (apictx *APIContext) registerGetPipelineObject(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "GetPipelineObject",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/objects/{key}",
		Summary:     "Get a pipeline level object",
		Description: "Returns the raw bytes of a single pipeline level object.",
		Tags:        []string{"Objects"},
		// Handler //
	}, func(ctx context.Context, request *GetPipelineObjectRequest) (*GetPipelineObjectResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		content, err := apictx.objectStore.GetObject(pipelineObjectKey(request.NamespaceID, request.PipelineID, request.Key))
		if err != nil {
			if errors.Is(err, objectStore.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "object not found")
			}

			log.Error().Err(err).Msg("could not get object from store")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get object", err)
		}

		resp := &GetPipelineObjectResponse{}
		resp.Body.Content = content

		return resp, nil
	})
}

type (
	PutPipelineObjectRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Force       bool   `query:"force" example:"false" doc:"Overwrite the object if the key already exists"`
		Body        struct {
			Key     string `json:"key" example:"my_object" doc:"The name of the object"`
			Content []byte `json:"content" doc:"The object's raw bytes"`
		}
	}
	PutPipelineObjectResponse struct {
		Body struct {
			// Objects evicted to make room for the new one, if any.
			EvictedKeys []string `json:"evicted_keys" example:"[\"old_object\"]" doc:"Keys evicted by the object limit"`
		}
	}
)

func (apictx *APIContext) registerPutPipelineObject(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "PutPipelineObject",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/objects",
		Summary:     "Store a pipeline level object",
		Description: "Stores an object at the pipeline level. Each pipeline can hold a limited number of objects; " +
			"storing past the limit evicts the oldest objects.",
		Tags:          []string{"Objects"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *PutPipelineObjectRequest) (*PutPipelineObjectResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		newKey := models.NewObjectStoreKey(request.Body.Key)

		err := apictx.db.InsertObjectStorePipelineKey(apictx.db, newKey.ToPipelineStorage(request.NamespaceID, request.PipelineID))
		if err != nil {
			if errors.Is(err, storage.ErrEntityExists) && !request.Force {
				return nil, huma.NewError(http.StatusConflict, "object already exists; use force to overwrite")
			}

			if !errors.Is(err, storage.ErrEntityExists) {
				log.Error().Err(err).Msg("could not insert object key into storage")
				return nil, huma.NewError(http.StatusInternalServerError, "could not store object", err)
			}
		}

		err = apictx.objectStore.PutObject(pipelineObjectKey(request.NamespaceID, request.PipelineID, request.Body.Key),
			request.Body.Content, request.Force)
		if err != nil {
			log.Error().Err(err).Msg("could not store object")
			return nil, huma.NewError(http.StatusInternalServerError, "could not store object", err)
		}

		// Evict oldest objects beyond the per-pipeline limit.
		evictedKeys := []string{}
		storedKeys, err := apictx.db.ListObjectStorePipelineKeys(apictx.db, request.NamespaceID, request.PipelineID)
		if err != nil {
			log.Error().Err(err).Msg("could not list object keys during eviction")
			return nil, huma.NewError(http.StatusInternalServerError, "could not enforce object limit", err)
		}

		for len(storedKeys) > apictx.config.ObjectStore.PipelineObjectLimit {
			oldest := storedKeys[0]
			storedKeys = storedKeys[1:]

			if err := apictx.objectStore.DeleteObject(
				pipelineObjectKey(request.NamespaceID, request.PipelineID, oldest.Key)); err != nil {
				log.Error().Err(err).Str("key", oldest.Key).Msg("could not evict object")
				continue
			}

			if err := apictx.db.DeleteObjectStorePipelineKey(apictx.db, request.NamespaceID,
				request.PipelineID, oldest.Key); err != nil {
				log.Error().Err(err).Str("key", oldest.Key).Msg("could not evict object key")
				continue
			}

			go apictx.events.Publish(models.EventEvictedPipelineObject{
				NamespaceID: request.NamespaceID,
				PipelineID:  request.PipelineID,
				Key:         oldest.Key,
			})

			evictedKeys = append(evictedKeys, oldest.Key)
		}

		resp := &PutPipelineObjectResponse{}
		resp.Body.EvictedKeys = evictedKeys

		return resp, nil
	})
}

type (
	DeletePipelineObjectRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Key         string `path:"key" example:"my_object" doc:"The name of the object"`
	}
	DeletePipelineObjectResponse struct{}
)

func (apictx *APIContext) registerDeletePipelineObject(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeletePipelineObject",
		Method:      http.MethodDelete,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/objects/{key}",
		Summary:     "Delete a pipeline level object",
		Description: "Removes a single pipeline level object.",
		Tags:        []string{"Objects"},
		// Handler //
	}, func(ctx context.Context, request *DeletePipelineObjectRequest) (*DeletePipelineObjectResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		err := apictx.objectStore.DeleteObject(pipelineObjectKey(request.NamespaceID, request.PipelineID, request.Key))
		if err != nil {
			log.Error().Err(err).Msg("could not delete object")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete object", err)
		}

		err = apictx.db.DeleteObjectStorePipelineKey(apictx.db, request.NamespaceID, request.PipelineID, request.Key)
		if err != nil {
			log.Error().Err(err).Msg("could not delete object key")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete object key", err)
		}

		return &DeletePipelineObjectResponse{}, nil
	})
}

type (
	ListRunObjectsRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the target run"`
	}
	ListRunObjectsResponse struct {
		Body struct {
			Keys []models.ObjectStoreKey `json:"keys" doc:"Metadata for all objects stored at the run level"`
		}
	}
)

func (apictx *APIContext) registerListRunObjects(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListRunObjects",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/objects",
		Summary:     "List all objects stored at the run level",
		Description: "Returns the keys for all run level objects. Run objects expire automatically after a " +
			"configured number of newer runs.",
		Tags: []string{"Objects"},
		// Handler //
	}, func(ctx context.Context, request *ListRunObjectsRequest) (*ListRunObjectsResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedKeys, err := apictx.db.ListObjectStoreRunKeys(apictx.db, request.NamespaceID, request.PipelineID, request.RunID)
		if err != nil {
			log.Error().Err(err).Msg("could not get object keys from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get object keys", err)
		}

		keys := []models.ObjectStoreKey{}
		for _, storedKey := range storedKeys {
			var key models.ObjectStoreKey
			key.FromRunStorage(&storedKey)
			keys = append(keys, key)
		}

		resp := &ListRunObjectsResponse{}
		resp.Body.Keys = keys

		return resp, nil
	})
}

type (
	GetRunObjectRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the target run"`
		Key         string `path:"key" example:"my_object" doc:"The name of the object"`
	}
	GetRunObjectResponse struct {
		Body struct {
			Content []byte `json:"content" doc:"The object's raw bytes"`
		}
	}
)

func (apictx *APIContext) registerGetRunObject(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "GetRunObject",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/objects/{key}",
		Summary:     "Get a run level object",
		Description: "Returns the raw bytes of a single run level object.",
		Tags:        []string{"Objects"},
		// Handler //
	}, func(ctx context.Context, request *GetRunObjectRequest) (*GetRunObjectResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		content, err := apictx.objectStore.GetObject(
			runObjectKey(request.NamespaceID, request.PipelineID, request.RunID, request.Key))
		if err != nil {
			if errors.Is(err, objectStore.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "object not found")
			}

			log.Error().Err(err).Msg("could not get object from store")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get object", err)
		}

		resp := &GetRunObjectResponse{}
		resp.Body.Content = content

		return resp, nil
	})
}

type (
	PutRunObjectRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the target run"`
		Force       bool   `query:"force" example:"false" doc:"Overwrite the object if the key already exists"`
		Body        struct {
			Key     string `json:"key" example:"my_object" doc:"The name of the object"`
			Content []byte `json:"content" doc:"The object's raw bytes"`
		}
	}
	PutRunObjectResponse struct{}
)

func (apictx *APIContext) registerPutRunObject(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "PutRunObject",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/objects",
		Summary:     "Store a run level object",
		Description: "Stores an object scoped to a single run. Run objects are how tasks within a run pass " +
			"intermediate results between each other.",
		Tags:          []string{"Objects"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *PutRunObjectRequest) (*PutRunObjectResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		newKey := models.NewObjectStoreKey(request.Body.Key)

		err := apictx.db.InsertObjectStoreRunKey(apictx.db,
			newKey.ToRunStorage(request.NamespaceID, request.PipelineID, request.RunID))
		if err != nil {
			if errors.Is(err, storage.ErrEntityExists) && !request.Force {
				return nil, huma.NewError(http.StatusConflict, "object already exists; use force to overwrite")
			}

			if !errors.Is(err, storage.ErrEntityExists) {
				log.Error().Err(err).Msg("could not insert object key into storage")
				return nil, huma.NewError(http.StatusInternalServerError, "could not store object", err)
			}
		}

		err = apictx.objectStore.PutObject(
			runObjectKey(request.NamespaceID, request.PipelineID, request.RunID, request.Body.Key),
			request.Body.Content, request.Force)
		if err != nil {
			log.Error().Err(err).Msg("could not store object")
			return nil, huma.NewError(http.StatusInternalServerError, "could not store object", err)
		}

		return &PutRunObjectResponse{}, nil
	})
}

type (
	DeleteRunObjectRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		RunID       int64  `path:"run_id" example:"1" doc:"Unique identifier of the target run"`
		Key         string `path:"key" example:"my_object" doc:"The name of the object"`
	}
	DeleteRunObjectResponse struct{}
)

func (apictx *APIContext) registerDeleteRunObject(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeleteRunObject",
		Method:      http.MethodDelete,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/runs/{run_id}/objects/{key}",
		Summary:     "Delete a run level object",
		Description: "Removes a single run level object.",
		Tags:        []string{"Objects"},
		// Handler //
	}, func(ctx context.Context, request *DeleteRunObjectRequest) (*DeleteRunObjectResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		err := apictx.objectStore.DeleteObject(
			runObjectKey(request.NamespaceID, request.PipelineID, request.RunID, request.Key))
		if err != nil {
			log.Error().Err(err).Msg("could not delete object")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete object", err)
		}

		err = apictx.db.DeleteObjectStoreRunKey(apictx.db, request.NamespaceID, request.PipelineID,
			request.RunID, request.Key)
		if err != nil {
			log.Error().Err(err).Msg("could not delete object key")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete object key", err)
		}

		return &DeleteRunObjectResponse{}, nil
	})
}
