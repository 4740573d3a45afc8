package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/danielgtaylor/huma/v2"

	"github.com/rs/zerolog/log"
)

// validateIdentifier verifies that the given value is appropriate as an identifier for objects
// that are used in shell contexts and URLs. Identifiers are kept restrictive so they stay easy
// to type and unambiguous to parse.
func validateIdentifier(arg, value string) error {
	if len(value) > 32 {
		return fmt.Errorf("length of arg %q cannot be greater than 32", arg)
	}

	if len(value) < 3 {
		return fmt.Errorf("length of arg %q cannot be less than 3", arg)
	}

	for _, char := range value {
		if !isAlphanumeric(char) && char != '_' {
			return fmt.Errorf("can only use alphanumeric chars or underscores in arg %q; found %q", arg, char)
		}
	}

	return nil
}

func isAlphanumeric(char rune) bool {
	return (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9')
}

type (
	ListNamespacesRequest struct {
		Auth   string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		Offset int    `query:"offset" example:"0" doc:"The offset into the namespace list to start at"`
		Limit  int    `query:"limit" example:"10" doc:"The total amount of results to limit by"`
	}
	ListNamespacesResponse struct {
		Body struct {
			Namespaces []models.Namespace `json:"namespaces" doc:"All namespaces found"`
		}
	}
)

func (apictx *APIContext) registerListNamespaces(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListNamespaces",
		Method:      http.MethodGet,
		Path:        "/api/namespaces",
		Summary:     "List all namespaces",
		Description: "Returns all registered namespaces.",
		Tags:        []string{"Namespaces"},
		// Handler //
	}, func(_ context.Context, request *ListNamespacesRequest) (*ListNamespacesResponse, error) {
		storedNamespaces, err := apictx.db.ListNamespaces(apictx.db, request.Offset, request.Limit)
		if err != nil {
			log.Error().Err(err).Msg("could not get namespaces from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get namespaces", err)
		}

		namespaces := []models.Namespace{}
		for _, storedNamespace := range storedNamespaces {
			var namespace models.Namespace
			namespace.FromStorage(&storedNamespace)
			namespaces = append(namespaces, namespace)
		}

		resp := &ListNamespacesResponse{}
		resp.Body.Namespaces = namespaces

		return resp, nil
	})
}

type (
	DescribeNamespaceRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
	}
	DescribeNamespaceResponse struct {
		Body struct {
			Namespace models.Namespace `json:"namespace" doc:"The metadata for the requested namespace"`
		}
	}
)

func (apictx *APIContext) registerDescribeNamespace(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DescribeNamespace",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}",
		Summary:     "Describe a namespace",
		Description: "Returns details for a single namespace.",
		Tags:        []string{"Namespaces"},
		// Handler //
	}, func(_ context.Context, request *DescribeNamespaceRequest) (*DescribeNamespaceResponse, error) {
		storedNamespace, err := apictx.db.GetNamespace(apictx.db, request.NamespaceID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "namespace not found")
			}

			log.Error().Err(err).Str("namespace", request.NamespaceID).Msg("could not get namespace from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get namespace", err)
		}

		var namespace models.Namespace
		namespace.FromStorage(&storedNamespace)

		resp := &DescribeNamespaceResponse{}
		resp.Body.Namespace = namespace

		return resp, nil
	})
}

type (
	CreateNamespaceRequest struct {
		Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		Body struct {
			ID          string `json:"id" example:"my_namespace" doc:"Unique identifier for the namespace; must be between 3 and 32 alphanumeric or underscore characters"`
			Name        string `json:"name" example:"My Namespace" doc:"Humanized name for the namespace"`
			Description string `json:"description,omitempty" doc:"Short description of what the namespace is used for"`
		}
	}
	CreateNamespaceResponse struct {
		Body struct {
			Namespace models.Namespace `json:"namespace" doc:"The newly created namespace"`
		}
	}
)

func (apictx *APIContext) registerCreateNamespace(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID:   "CreateNamespace",
		Method:        http.MethodPost,
		Path:          "/api/namespaces",
		Summary:       "Create a new namespace",
		Description:   "Creates a new namespace that separates pipelines into groups per team or environment.",
		Tags:          []string{"Namespaces"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *CreateNamespaceRequest) (*CreateNamespaceResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		if err := validateIdentifier("id", request.Body.ID); err != nil {
			return nil, huma.NewError(http.StatusBadRequest, err.Error())
		}

		// "global_secret" is used as the namespace stand-in within the secret store key format, so
		// letting a namespace take that name would make the two key spaces collide.
		if strings.EqualFold(request.Body.ID, "global_secret") {
			return nil, huma.NewError(http.StatusBadRequest, "namespaces cannot be named global_secret")
		}

		newNamespace := models.NewNamespace(request.Body.ID, request.Body.Name, request.Body.Description)

		err := apictx.db.InsertNamespace(apictx.db, newNamespace.ToStorage())
		if err != nil {
			if errors.Is(err, storage.ErrEntityExists) {
				return nil, huma.NewError(http.StatusConflict, "namespace already exists")
			}

			log.Error().Err(err).Msg("could not insert namespace into storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not create namespace", err)
		}

		go apictx.events.Publish(models.EventCreatedNamespace{
			NamespaceID: newNamespace.ID,
		})

		log.Info().Str("id", newNamespace.ID).Str("name", newNamespace.Name).Msg("created new namespace")

		resp := &CreateNamespaceResponse{}
		resp.Body.Namespace = *newNamespace

		return resp, nil
	})
}

type (
	UpdateNamespaceRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		Body        struct {
			Name        *string `json:"name,omitempty" example:"My Namespace" doc:"Humanized name for the namespace"`
			Description *string `json:"description,omitempty" doc:"Short description of what the namespace is used for"`
		}
	}
	UpdateNamespaceResponse struct{}
)

func (apictx *APIContext) registerUpdateNamespace(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "UpdateNamespace",
		Method:      http.MethodPatch,
		Path:        "/api/namespaces/{namespace_id}",
		Summary:     "Update a namespace's details",
		Description: "Updates the name or description of an already registered namespace.",
		Tags:        []string{"Namespaces"},
		// Handler //
	}, func(ctx context.Context, request *UpdateNamespaceRequest) (*UpdateNamespaceResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		err := apictx.db.UpdateNamespace(apictx.db, request.NamespaceID, storage.UpdatableNamespaceFields{
			Name:        request.Body.Name,
			Description: request.Body.Description,
			Modified:    ptr(fmt.Sprint(time.Now().UnixMilli())),
		})
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "namespace not found")
			}

			log.Error().Err(err).Str("namespace", request.NamespaceID).Msg("could not update namespace")
			return nil, huma.NewError(http.StatusInternalServerError, "could not update namespace", err)
		}

		return &UpdateNamespaceResponse{}, nil
	})
}

type (
	DeleteNamespaceRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
	}
	DeleteNamespaceResponse struct{}
)

func (apictx *APIContext) registerDeleteNamespace(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeleteNamespace",
		Method:      http.MethodDelete,
		Path:        "/api/namespaces/{namespace_id}",
		Summary:     "Delete a namespace",
		Description: "Removes a namespace. Namespaces that still contain pipelines cannot be removed; delete the " +
			"pipelines first.",
		Tags: []string{"Namespaces"},
		// Handler //
	}, func(ctx context.Context, request *DeleteNamespaceRequest) (*DeleteNamespaceResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		pipelines, err := apictx.db.ListPipelineMetadata(apictx.db, 0, 1, request.NamespaceID)
		if err != nil {
			log.Error().Err(err).Str("namespace", request.NamespaceID).Msg("could not list pipelines for namespace")
			return nil, huma.NewError(http.StatusInternalServerError, "could not verify namespace is empty", err)
		}

		if len(pipelines) != 0 {
			return nil, huma.NewError(http.StatusPreconditionFailed,
				"namespace still contains pipelines; remove all pipelines before deleting the namespace")
		}

		err = apictx.db.DeleteNamespace(apictx.db, request.NamespaceID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "namespace not found")
			}

			log.Error().Err(err).Str("namespace", request.NamespaceID).Msg("could not delete namespace")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete namespace", err)
		}

		go apictx.events.Publish(models.EventDeletedNamespace{
			NamespaceID: request.NamespaceID,
		})

		log.Info().Str("id", request.NamespaceID).Msg("deleted namespace")

		return &DeleteNamespaceResponse{}, nil
	})
}
