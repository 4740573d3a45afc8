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
	ListExtensionsRequest struct {
		Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
	}
	ListExtensionsResponse struct {
		Body struct {
			Extensions []models.Extension `json:"extensions" doc:"All currently registered extensions"`
		}
	}
)

func (apictx *APIContext) registerListExtensions(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListExtensions",
		Method:      http.MethodGet,
		Path:        "/api/extensions",
		Summary:     "List all extensions",
		Description: "Returns all installed extensions and their current runtime state.",
		Tags:        []string{"Extensions"},
		// Handler //
	}, func(_ context.Context, _ *ListExtensionsRequest) (*ListExtensionsResponse, error) {
		extensions := []models.Extension{}
		for _, id := range apictx.extensions.Keys() {
			extension, exists := apictx.extensions.Get(id)
			if !exists {
				continue
			}

			extensions = append(extensions, *extension)
		}

		resp := &ListExtensionsResponse{}
		resp.Body.Extensions = extensions

		return resp, nil
	})
}

type (
	DescribeExtensionRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		ExtensionID string `path:"extension_id" example:"cron" doc:"Unique identifier of the target extension"`
	}
	DescribeExtensionResponse struct {
		Body struct {
			Extension models.Extension `json:"extension" doc:"The requested extension"`
		}
	}
)

func (apictx *APIContext) registerDescribeExtension(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DescribeExtension",
		Method:      http.MethodGet,
		Path:        "/api/extensions/{extension_id}",
		Summary:     "Describe an extension",
		Description: "Returns details about a single installed extension including its self reported documentation.",
		Tags:        []string{"Extensions"},
		// Handler //
	}, func(_ context.Context, request *DescribeExtensionRequest) (*DescribeExtensionResponse, error) {
		extension, exists := apictx.extensions.Get(request.ExtensionID)
		if !exists {
			return nil, huma.NewError(http.StatusNotFound, "extension not found")
		}

		resp := &DescribeExtensionResponse{}
		resp.Body.Extension = *extension

		return resp, nil
	})
}

type (
	InstallExtensionRequest struct {
		Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		Body struct {
			ID           string               `json:"id" example:"cron" doc:"Unique identifier for the new extension"`
			Image        string               `json:"image" example:"ghcr.io/clintjedwards/gofer/extensions/cron:latest" doc:"Container image for the extension"`
			RegistryAuth *models.RegistryAuth `json:"registry_auth,omitempty" doc:"Credentials for the image's registry if it is private"`
			Variables    map[string]string    `json:"variables,omitempty" doc:"Environment variables passed to the extension container"`
		}
	}
	InstallExtensionResponse struct{}
)

func (apictx *APIContext) registerInstallExtension(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "InstallExtension",
		Method:      http.MethodPost,
		Path:        "/api/extensions",
		Summary:     "Install a new extension",
		Description: "Registers a new extension and starts its container. The extension is immediately available for " +
			"pipeline subscriptions once this call returns.",
		Tags:          []string{"Extensions"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *InstallExtensionRequest) (*InstallExtensionResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		if err := validateIdentifier("id", request.Body.ID); err != nil {
			return nil, huma.NewError(http.StatusBadRequest, err.Error())
		}

		if request.Body.Image == "" {
			return nil, huma.NewError(http.StatusBadRequest, "image required")
		}

		variables := convertVarsToSlice(request.Body.Variables, models.VariableSourceSystem)
		registration := models.NewExtensionRegistration(request.Body.ID, request.Body.Image,
			request.Body.RegistryAuth, variables)

		err := apictx.db.InsertGlobalExtensionRegistration(apictx.db, registration.ToStorage())
		if err != nil {
			if errors.Is(err, storage.ErrEntityExists) {
				return nil, huma.NewError(http.StatusConflict, "extension already exists")
			}

			log.Error().Err(err).Msg("could not insert extension registration")
			return nil, huma.NewError(http.StatusInternalServerError, "could not install extension", err)
		}

		if err := apictx.startExtension(*registration); err != nil {
			log.Error().Err(err).Str("extension", registration.ID).Msg("could not start extension")
			return nil, huma.NewError(http.StatusInternalServerError, "extension registered but could not be started", err)
		}

		go apictx.events.Publish(models.EventInstalledExtension{
			Name:  registration.ID,
			Image: registration.Image,
		})

		log.Info().Str("extension", registration.ID).Str("image", registration.Image).Msg("installed extension")

		return &InstallExtensionResponse{}, nil
	})
}

type (
	UninstallExtensionRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		ExtensionID string `path:"extension_id" example:"cron" doc:"Unique identifier of the target extension"`
	}
	UninstallExtensionResponse struct{}
)

func (apictx *APIContext) registerUninstallExtension(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "UninstallExtension",
		Method:      http.MethodDelete,
		Path:        "/api/extensions/{extension_id}",
		Summary:     "Uninstall an extension",
		Description: "Stops an extension's container and removes its registration. Pipeline subscriptions to the " +
			"extension stop firing but are not removed.",
		Tags: []string{"Extensions"},
		// Handler //
	}, func(ctx context.Context, request *UninstallExtensionRequest) (*UninstallExtensionResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		extension, exists := apictx.extensions.Get(request.ExtensionID)
		if exists {
			apictx.stopExtension(extension)
			apictx.extensions.Delete(request.ExtensionID)
		}

		storedRegistration, err := apictx.db.GetGlobalExtensionRegistration(apictx.db, request.ExtensionID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "extension not found")
			}

			log.Error().Err(err).Msg("could not get extension registration")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get extension", err)
		}

		// Revoke the extension's API token along with the registration.
		if storedRegistration.KeyID != "" {
			if err := apictx.db.DeleteTokenByHash(apictx.db, storedRegistration.KeyID); err != nil &&
				!errors.Is(err, storage.ErrEntityNotFound) {
				log.Error().Err(err).Str("extension", request.ExtensionID).Msg("could not revoke extension token")
			}
		}

		if err := apictx.db.DeleteGlobalExtensionRegistration(apictx.db, request.ExtensionID); err != nil {
			log.Error().Err(err).Msg("could not delete extension registration")
			return nil, huma.NewError(http.StatusInternalServerError, "could not uninstall extension", err)
		}

		go apictx.events.Publish(models.EventUninstalledExtension{
			Name:  request.ExtensionID,
			Image: storedRegistration.Image,
		})

		log.Info().Str("extension", request.ExtensionID).Msg("uninstalled extension")

		return &UninstallExtensionResponse{}, nil
	})
}

type (
	EnableExtensionRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		ExtensionID string `path:"extension_id" example:"cron" doc:"Unique identifier of the target extension"`
	}
	EnableExtensionResponse struct{}
)

func (apictx *APIContext) registerEnableExtension(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "EnableExtension",
		Method:      http.MethodPost,
		Path:        "/api/extensions/{extension_id}/enable",
		Summary:     "Enable an extension",
		Description: "Re-enables a disabled extension and starts its container again.",
		Tags:        []string{"Extensions"},
		// Handler //
	}, func(ctx context.Context, request *EnableExtensionRequest) (*EnableExtensionResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		storedRegistration, err := apictx.db.GetGlobalExtensionRegistration(apictx.db, request.ExtensionID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "extension not found")
			}

			log.Error().Err(err).Msg("could not get extension registration")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get extension", err)
		}

		err = apictx.db.UpdateGlobalExtensionRegistration(apictx.db, request.ExtensionID,
			storage.UpdatableGlobalExtensionRegistrationFields{
				Status: ptr(string(models.ExtensionStatusEnabled)),
			})
		if err != nil {
			log.Error().Err(err).Msg("could not update extension registration")
			return nil, huma.NewError(http.StatusInternalServerError, "could not enable extension", err)
		}

		var registration models.ExtensionRegistration
		registration.FromStorage(&storedRegistration)
		registration.Status = models.ExtensionStatusEnabled

		if _, running := apictx.extensions.Get(request.ExtensionID); !running {
			if err := apictx.startExtension(registration); err != nil {
				log.Error().Err(err).Str("extension", registration.ID).Msg("could not start extension")
				return nil, huma.NewError(http.StatusInternalServerError, "extension enabled but could not be started", err)
			}
		}

		go apictx.events.Publish(models.EventEnabledExtension{
			Name:  registration.ID,
			Image: registration.Image,
		})

		return &EnableExtensionResponse{}, nil
	})
}

type (
	DisableExtensionRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		ExtensionID string `path:"extension_id" example:"cron" doc:"Unique identifier of the target extension"`
	}
	DisableExtensionResponse struct{}
)

func (apictx *APIContext) registerDisableExtension(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DisableExtension",
		Method:      http.MethodPost,
		Path:        "/api/extensions/{extension_id}/disable",
		Summary:     "Disable an extension",
		Description: "Stops an extension's container and prevents it from starting on future server boots. The " +
			"registration and all pipeline subscriptions are kept.",
		Tags: []string{"Extensions"},
		// Handler //
	}, func(ctx context.Context, request *DisableExtensionRequest) (*DisableExtensionResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		storedRegistration, err := apictx.db.GetGlobalExtensionRegistration(apictx.db, request.ExtensionID)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "extension not found")
			}

			log.Error().Err(err).Msg("could not get extension registration")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get extension", err)
		}

		err = apictx.db.UpdateGlobalExtensionRegistration(apictx.db, request.ExtensionID,
			storage.UpdatableGlobalExtensionRegistrationFields{
				Status: ptr(string(models.ExtensionStatusDisabled)),
			})
		if err != nil {
			log.Error().Err(err).Msg("could not update extension registration")
			return nil, huma.NewError(http.StatusInternalServerError, "could not disable extension", err)
		}

		if extension, running := apictx.extensions.Get(request.ExtensionID); running {
			apictx.stopExtension(extension)
			apictx.extensions.Delete(request.ExtensionID)
		}

		go apictx.events.Publish(models.EventDisabledExtension{
			Name:  request.ExtensionID,
			Image: storedRegistration.Image,
		})

		return &DisableExtensionResponse{}, nil
	})
}
