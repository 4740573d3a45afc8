package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/secretStore"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/danielgtaylor/huma/v2"

	"github.com/rs/zerolog/log"
)

type (
	ListPipelineSecretsRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
	}
	ListPipelineSecretsResponse struct {
		Body struct {
			Keys []models.SecretStoreKey `json:"keys" doc:"Metadata for all secrets stored for the pipeline"`
		}
	}
)

func (apictx *APIContext) registerListPipelineSecrets(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListPipelineSecrets",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/secrets",
		Summary:     "List all secrets for a pipeline",
		Description: "Returns metadata for every secret stored for a pipeline. Secret values are never returned; " +
			"reference them from pipeline config variables instead.",
		Tags: []string{"Secrets"},
		// Handler //
	}, func(ctx context.Context, request *ListPipelineSecretsRequest) (*ListPipelineSecretsResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedKeys, err := apictx.db.ListSecretStorePipelineKeys(apictx.db, request.NamespaceID, request.PipelineID)
		if err != nil {
			log.Error().Err(err).Msg("could not get secret keys from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get secret keys", err)
		}

		keys := []models.SecretStoreKey{}
		for _, storedKey := range storedKeys {
			var key models.SecretStoreKey
			key.FromStorage(&storedKey)
			keys = append(keys, key)
		}

		resp := &ListPipelineSecretsResponse{}
		resp.Body.Keys = keys

		return resp, nil
	})
}

type (
	GetPipelineSecretRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Key         string `path:"key" example:"my_secret" doc:"The name of the secret"`
	}
	GetPipelineSecretResponse struct {
		Body struct {
			Metadata models.SecretStoreKey `json:"metadata" doc:"Metadata for the requested secret"`
		}
	}
)

func (apictx *APIContext) registerGetPipelineSecret(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "GetPipelineSecret",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/secrets/{key}",
		Summary:     "Get metadata for a pipeline secret",
		Description: "Returns metadata for a single pipeline secret. The secret value itself is never returned; " +
			"it can only be consumed by task variables via the pipeline_secret interpolation directive.",
		Tags: []string{"Secrets"},
		// Handler //
	}, func(ctx context.Context, request *GetPipelineSecretRequest) (*GetPipelineSecretResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedKey, err := apictx.db.GetSecretStorePipelineKey(apictx.db, request.NamespaceID,
			request.PipelineID, request.Key)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "secret not found")
			}

			log.Error().Err(err).Msg("could not get secret key from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get secret key", err)
		}

		var key models.SecretStoreKey
		key.FromStorage(&storedKey)

		resp := &GetPipelineSecretResponse{}
		resp.Body.Metadata = key

		return resp, nil
	})
}

type (
	PutPipelineSecretRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Force       bool   `query:"force" example:"false" doc:"Overwrite the secret if the key already exists"`
		Body        struct {
			Key    string `json:"key" example:"my_secret" doc:"The name of the secret"`
			Secret string `json:"secret" doc:"The secret value to store"`
		}
	}
	PutPipelineSecretResponse struct{}
)

func (apictx *APIContext) registerPutPipelineSecret(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "PutPipelineSecret",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/secrets",
		Summary:     "Store a pipeline secret",
		Description: "Stores a secret scoped to a single pipeline. Pipeline secrets can be referenced from the " +
			"pipeline's task variables with the pipeline_secret interpolation directive.",
		Tags:          []string{"Secrets"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *PutPipelineSecretRequest) (*PutPipelineSecretResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		newKey := models.NewSecretStoreKey(request.Body.Key)

		err := apictx.db.InsertSecretStorePipelineKey(apictx.db,
			newKey.ToStorage(request.NamespaceID, request.PipelineID), request.Force)
		if err != nil {
			if errors.Is(err, storage.ErrEntityExists) {
				return nil, huma.NewError(http.StatusConflict, "secret already exists; use force to overwrite")
			}

			log.Error().Err(err).Msg("could not insert secret key into storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not store secret", err)
		}

		err = apictx.secretStore.PutSecret(
			pipelineSecretKey(request.NamespaceID, request.PipelineID, request.Body.Key),
			request.Body.Secret, request.Force)
		if err != nil {
			if errors.Is(err, secretStore.ErrEntityExists) {
				return nil, huma.NewError(http.StatusConflict, "secret already exists; use force to overwrite")
			}

			log.Error().Err(err).Msg("could not store secret")
			return nil, huma.NewError(http.StatusInternalServerError, "could not store secret", err)
		}

		return &PutPipelineSecretResponse{}, nil
	})
}

type (
	DeletePipelineSecretRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Key         string `path:"key" example:"my_secret" doc:"The name of the secret"`
	}
	DeletePipelineSecretResponse struct{}
)

func (apictx *APIContext) registerDeletePipelineSecret(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeletePipelineSecret",
		Method:      http.MethodDelete,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/secrets/{key}",
		Summary:     "Delete a pipeline secret",
		Description: "Removes a single pipeline secret.",
		Tags:        []string{"Secrets"},
		// Handler //
	}, func(ctx context.Context, request *DeletePipelineSecretRequest) (*DeletePipelineSecretResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		err := apictx.secretStore.DeleteSecret(
			pipelineSecretKey(request.NamespaceID, request.PipelineID, request.Key))
		if err != nil {
			log.Error().Err(err).Msg("could not delete secret")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete secret", err)
		}

		err = apictx.db.DeleteSecretStorePipelineKey(apictx.db, request.NamespaceID, request.PipelineID, request.Key)
		if err != nil {
			log.Error().Err(err).Msg("could not delete secret key")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete secret key", err)
		}

		return &DeletePipelineSecretResponse{}, nil
	})
}

type (
	ListGlobalSecretsRequest struct {
		Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
	}
	ListGlobalSecretsResponse struct {
		Body struct {
			Keys []models.GlobalSecretKey `json:"keys" doc:"Metadata for all global secrets"`
		}
	}
)

func (apictx *APIContext) registerListGlobalSecrets(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListGlobalSecrets",
		Method:      http.MethodGet,
		Path:        "/api/secrets/global",
		Summary:     "List all global secrets",
		Description: "Returns metadata for every global secret including their namespace filters. Secret values " +
			"are never returned.",
		Tags: []string{"Secrets"},
		// Handler //
	}, func(ctx context.Context, _ *ListGlobalSecretsRequest) (*ListGlobalSecretsResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		storedKeys, err := apictx.db.ListSecretStoreGlobalKeys(apictx.db)
		if err != nil {
			log.Error().Err(err).Msg("could not get secret keys from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get secret keys", err)
		}

		keys := []models.GlobalSecretKey{}
		for _, storedKey := range storedKeys {
			var key models.GlobalSecretKey
			key.FromStorage(&storedKey)
			keys = append(keys, key)
		}

		resp := &ListGlobalSecretsResponse{}
		resp.Body.Keys = keys

		return resp, nil
	})
}

type (
	GetGlobalSecretRequest struct {
		Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		Key  string `path:"key" example:"my_secret" doc:"The name of the secret"`
	}
	GetGlobalSecretResponse struct {
		Body struct {
			Metadata models.GlobalSecretKey `json:"metadata" doc:"Metadata for the requested secret"`
		}
	}
)

func (apictx *APIContext) registerGetGlobalSecret(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "GetGlobalSecret",
		Method:      http.MethodGet,
		Path:        "/api/secrets/global/{key}",
		Summary:     "Get metadata for a global secret",
		Description: "Returns metadata for a single global secret including its namespace filter. The secret value " +
			"itself is never returned.",
		Tags: []string{"Secrets"},
		// Handler //
	}, func(ctx context.Context, request *GetGlobalSecretRequest) (*GetGlobalSecretResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		storedKey, err := apictx.db.GetSecretStoreGlobalKey(apictx.db, request.Key)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "secret not found")
			}

			log.Error().Err(err).Msg("could not get secret key from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get secret key", err)
		}

		var key models.GlobalSecretKey
		key.FromStorage(&storedKey)

		resp := &GetGlobalSecretResponse{}
		resp.Body.Metadata = key

		return resp, nil
	})
}

type (
	PutGlobalSecretRequest struct {
		Auth  string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		Force bool   `query:"force" example:"false" doc:"Overwrite the secret if the key already exists"`
		Body  struct {
			Key        string   `json:"key" example:"my_secret" doc:"The name of the secret"`
			Secret     string   `json:"secret" doc:"The secret value to store"`
			Namespaces []string `json:"namespaces,omitempty" example:"[\"dev_*\"]" doc:"Namespaces that may read this secret; supports a trailing '*' wildcard; empty allows all"`
		}
	}
	PutGlobalSecretResponse struct{}
)

func (apictx *APIContext) registerPutGlobalSecret(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "PutGlobalSecret",
		Method:      http.MethodPost,
		Path:        "/api/secrets/global",
		Summary:     "Store a global secret",
		Description: "Stores an administrator provisioned secret usable across namespaces. Which namespaces may " +
			"reference the secret is controlled by its namespace filter.",
		Tags:          []string{"Secrets"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *PutGlobalSecretRequest) (*PutGlobalSecretResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		newKey := models.NewGlobalSecretKey(request.Body.Key, request.Body.Namespaces)

		err := apictx.db.InsertSecretStoreGlobalKey(apictx.db, newKey.ToStorage(), request.Force)
		if err != nil {
			if errors.Is(err, storage.ErrEntityExists) {
				return nil, huma.NewError(http.StatusConflict, "secret already exists; use force to overwrite")
			}

			log.Error().Err(err).Msg("could not insert secret key into storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not store secret", err)
		}

		err = apictx.secretStore.PutSecret(globalSecretKey(request.Body.Key), request.Body.Secret, request.Force)
		if err != nil {
			if errors.Is(err, secretStore.ErrEntityExists) {
				return nil, huma.NewError(http.StatusConflict, "secret already exists; use force to overwrite")
			}

			log.Error().Err(err).Msg("could not store secret")
			return nil, huma.NewError(http.StatusInternalServerError, "could not store secret", err)
		}

		return &PutGlobalSecretResponse{}, nil
	})
}

type (
	DeleteGlobalSecretRequest struct {
		Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		Key  string `path:"key" example:"my_secret" doc:"The name of the secret"`
	}
	DeleteGlobalSecretResponse struct{}
)

func (apictx *APIContext) registerDeleteGlobalSecret(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeleteGlobalSecret",
		Method:      http.MethodDelete,
		Path:        "/api/secrets/global/{key}",
		Summary:     "Delete a global secret",
		Description: "Removes a single global secret.",
		Tags:        []string{"Secrets"},
		// Handler //
	}, func(ctx context.Context, request *DeleteGlobalSecretRequest) (*DeleteGlobalSecretResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		err := apictx.secretStore.DeleteSecret(globalSecretKey(request.Key))
		if err != nil {
			log.Error().Err(err).Msg("could not delete secret")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete secret", err)
		}

		err = apictx.db.DeleteSecretStoreGlobalKey(apictx.db, request.Key)
		if err != nil {
			log.Error().Err(err).Msg("could not delete secret key")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete secret key", err)
		}

		return &DeleteGlobalSecretResponse{}, nil
	})
}
