package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/danielgtaylor/huma/v2"

	"github.com/rs/zerolog/log"
)

type (
	ListPipelineExtensionSubscriptionsRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
	}
	ListPipelineExtensionSubscriptionsResponse struct {
		Body struct {
			Subscriptions []models.PipelineExtensionSubscription `json:"subscriptions" doc:"All extension subscriptions for the pipeline"`
		}
	}
)

func (apictx *APIContext) registerListPipelineExtensionSubscriptions(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListPipelineExtensionSubscriptions",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/subscriptions",
		Summary:     "List all extension subscriptions for a pipeline",
		Description: "Returns every extension subscription registered for a pipeline.",
		Tags:        []string{"Subscriptions"},
		// Handler //
	}, func(ctx context.Context, request *ListPipelineExtensionSubscriptionsRequest) (
		*ListPipelineExtensionSubscriptionsResponse, error,
	) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedSubscriptions, err := apictx.db.ListPipelineExtensionSubscriptions(apictx.db,
			request.NamespaceID, request.PipelineID)
		if err != nil {
			log.Error().Err(err).Msg("could not get subscriptions from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get subscriptions", err)
		}

		subscriptions := []models.PipelineExtensionSubscription{}
		for _, storedSubscription := range storedSubscriptions {
			var subscription models.PipelineExtensionSubscription
			subscription.FromStorage(&storedSubscription)
			subscriptions = append(subscriptions, subscription)
		}

		resp := &ListPipelineExtensionSubscriptionsResponse{}
		resp.Body.Subscriptions = subscriptions

		return resp, nil
	})
}

type (
	DescribePipelineExtensionSubscriptionRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		ExtensionID string `path:"extension_id" example:"cron" doc:"Unique identifier of the target extension"`
		Label       string `path:"label" example:"every_five_minutes" doc:"Pipeline chosen name for the subscription"`
	}
	DescribePipelineExtensionSubscriptionResponse struct {
		Body struct {
			Subscription models.PipelineExtensionSubscription `json:"subscription" doc:"The requested subscription"`
		}
	}
)

func (apictx *APIContext) registerDescribePipelineExtensionSubscription(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DescribePipelineExtensionSubscription",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/subscriptions/{extension_id}/{label}",
		Summary:     "Describe an extension subscription",
		Description: "Returns details for a single extension subscription.",
		Tags:        []string{"Subscriptions"},
		// Handler //
	}, func(ctx context.Context, request *DescribePipelineExtensionSubscriptionRequest) (
		*DescribePipelineExtensionSubscriptionResponse, error,
	) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedSubscription, err := apictx.db.GetPipelineExtensionSubscription(apictx.db, request.NamespaceID,
			request.PipelineID, request.ExtensionID, request.Label)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "subscription not found")
			}

			log.Error().Err(err).Msg("could not get subscription from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get subscription", err)
		}

		var subscription models.PipelineExtensionSubscription
		subscription.FromStorage(&storedSubscription)

		resp := &DescribePipelineExtensionSubscriptionResponse{}
		resp.Body.Subscription = subscription

		return resp, nil
	})
}

type (
	CreatePipelineExtensionSubscriptionRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Body        struct {
			ExtensionID string            `json:"extension_id" example:"cron" doc:"Unique identifier of the extension to subscribe to"`
			Label       string            `json:"label" example:"every_five_minutes" doc:"Pipeline chosen name for the subscription"`
			Settings    map[string]string `json:"settings,omitempty" doc:"Extension specific settings for the subscription"`
		}
	}
	CreatePipelineExtensionSubscriptionResponse struct{}
)

func (apictx *APIContext) registerCreatePipelineExtensionSubscription(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "CreatePipelineExtensionSubscription",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/subscriptions",
		Summary:     "Subscribe a pipeline to an extension",
		Description: "Registers a pipeline with an extension so the extension can start runs on the pipeline's " +
			"behalf. What the extension does with the subscription depends on the extension; consult its documentation " +
			"for the settings it accepts.",
		Tags:          []string{"Subscriptions"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *CreatePipelineExtensionSubscriptionRequest) (
		*CreatePipelineExtensionSubscriptionResponse, error,
	) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		if err := validateIdentifier("label", request.Body.Label); err != nil {
			return nil, huma.NewError(http.StatusBadRequest, err.Error())
		}

		_, err := apictx.db.GetPipelineMetadata(apictx.db, request.NamespaceID, request.PipelineID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "pipeline not found")
			}

			log.Error().Err(err).Msg("could not get pipeline from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline", err)
		}

		extension, exists := apictx.extensions.Get(request.Body.ExtensionID)
		if !exists {
			return nil, huma.NewError(http.StatusNotFound, "extension not found or not currently running")
		}

		if extension.Registration.Status != models.ExtensionStatusEnabled {
			return nil, huma.NewError(http.StatusPreconditionFailed, "extension is disabled")
		}

		client := newExtensionClient(extension.URL, extension.Key)
		err = client.Subscribe(extensionSubscriptionRequest{
			NamespaceID: request.NamespaceID,
			PipelineID:  request.PipelineID,
			Label:       request.Body.Label,
			Settings:    request.Body.Settings,
		})
		if err != nil {
			log.Error().Err(err).Str("extension", request.Body.ExtensionID).
				Msg("extension rejected subscription")
			return nil, huma.NewError(http.StatusServiceUnavailable, "extension rejected the subscription", err)
		}

		subscription := models.PipelineExtensionSubscription{
			Namespace: request.NamespaceID,
			Pipeline:  request.PipelineID,
			Extension: request.Body.ExtensionID,
			Label:     request.Body.Label,
			Settings:  request.Body.Settings,
			Status:    models.PipelineExtensionSubscriptionStatusActive,
		}

		err = apictx.db.InsertPipelineExtensionSubscription(apictx.db, subscription.ToStorage())
		if err != nil {
			if errors.Is(err, storage.ErrEntityExists) {
				return nil, huma.NewError(http.StatusConflict, "subscription already exists")
			}

			log.Error().Err(err).Msg("could not insert subscription into storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not create subscription", err)
		}

		go apictx.events.Publish(models.EventPipelineExtensionSubscriptionRegistered{
			NamespaceID: request.NamespaceID,
			PipelineID:  request.PipelineID,
			ExtensionID: request.Body.ExtensionID,
			Label:       request.Body.Label,
		})

		log.Info().Str("namespace", request.NamespaceID).Str("pipeline", request.PipelineID).
			Str("extension", request.Body.ExtensionID).Str("label", request.Body.Label).
			Msg("created extension subscription")

		return &CreatePipelineExtensionSubscriptionResponse{}, nil
	})
}

type (
	DeletePipelineExtensionSubscriptionRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		ExtensionID string `path:"extension_id" example:"cron" doc:"Unique identifier of the target extension"`
		Label       string `path:"label" example:"every_five_minutes" doc:"Pipeline chosen name for the subscription"`
	}
	DeletePipelineExtensionSubscriptionResponse struct{}
)

func (apictx *APIContext) registerDeletePipelineExtensionSubscription(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeletePipelineExtensionSubscription",
		Method:      http.MethodDelete,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/subscriptions/{extension_id}/{label}",
		Summary:     "Remove an extension subscription",
		Description: "Unsubscribes a pipeline from an extension. The extension stops starting runs for this " +
			"subscription immediately.",
		Tags: []string{"Subscriptions"},
		// Handler //
	}, func(ctx context.Context, request *DeletePipelineExtensionSubscriptionRequest) (
		*DeletePipelineExtensionSubscriptionResponse, error,
	) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedSubscription, err := apictx.db.GetPipelineExtensionSubscription(apictx.db, request.NamespaceID,
			request.PipelineID, request.ExtensionID, request.Label)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "subscription not found")
			}

			log.Error().Err(err).Msg("could not get subscription from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get subscription", err)
		}

		var subscription models.PipelineExtensionSubscription
		subscription.FromStorage(&storedSubscription)

		// The extension may be down or uninstalled; its in-memory state is authoritative only for
		// running extensions so a failed unsubscribe call is not fatal to removing the record.
		if extension, exists := apictx.extensions.Get(request.ExtensionID); exists {
			client := newExtensionClient(extension.URL, extension.Key)
			err := client.Unsubscribe(extensionSubscriptionRequest{
				NamespaceID: request.NamespaceID,
				PipelineID:  request.PipelineID,
				Label:       request.Label,
				Settings:    subscription.Settings,
			})
			if err != nil {
				log.Error().Err(err).Str("extension", request.ExtensionID).
					Msg("could not unsubscribe from extension")
			}
		}

		err = apictx.db.DeletePipelineExtensionSubscription(apictx.db, request.NamespaceID, request.PipelineID,
			request.ExtensionID, request.Label)
		if err != nil {
			log.Error().Err(err).Msg("could not delete subscription")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete subscription", err)
		}

		go apictx.events.Publish(models.EventPipelineExtensionSubscriptionUnregistered{
			NamespaceID: request.NamespaceID,
			PipelineID:  request.PipelineID,
			ExtensionID: request.ExtensionID,
			Label:       request.Label,
		})

		return &DeletePipelineExtensionSubscriptionResponse{}, nil
	})
}
