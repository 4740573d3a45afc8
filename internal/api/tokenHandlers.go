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

type CreateTokenRequest struct {
	Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
	Body struct {
		Kind       models.TokenKind  `json:"kind" example:"CLIENT" doc:"The type of token to be created. Can be \"management\" or \"client\""`
		Namespaces []string          `json:"namespaces" example:"[\"default\", \"other_group\"]" doc:"The namespaces this token applies to; will be unauthorized at all other namespaces. This field can contain simple regexs"`
		Metadata   map[string]string `json:"metadata" example:"{\"created_by\": \"me\"}" doc:"Various other bits of data you can attach to tokens"`
		Expires    string            `json:"expires" example:"1h" doc:"The amount of time the token is valid for. Uses golang time duration strings: https://pkg.go.dev/time#ParseDuration"`
	}
}

type CreateTokenResponse struct {
	Body struct {
		TokenMetadata *models.Token `json:"token" doc:"Details about the created token"`
		Secret        string        `json:"secret" example:"secret_value" doc:"The secret value for the created token"`
	}
}

func (apictx *APIContext) registerCreateToken(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID:   "CreateToken",
		Method:        http.MethodPost,
		Path:          "/api/tokens",
		Summary:       "Create new API token",
		DefaultStatus: http.StatusCreated,
		Description: "This endpoint is responsible for generating new API tokens. Tokens are essential for interacting " +
			"with Gofer's APIs, providing the necessary authentication for various operations. Management tokens can use " +
			"all admin routes and have no restrictions. Client tokens can only operate within their namespaces and cannot " +
			"access admin routes.",
		Tags: []string{"Tokens"},
		// Handler //
	}, func(ctx context.Context, request *CreateTokenRequest) (*CreateTokenResponse, error) {
		if !isManagementUser(ctx) {
			return &CreateTokenResponse{}, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		if request.Body.Expires == "" {
			return &CreateTokenResponse{}, huma.NewError(http.StatusBadRequest, "requires expiration duration")
		}

		expires, err := time.ParseDuration(request.Body.Expires)
		if err != nil {
			return &CreateTokenResponse{}, huma.NewError(http.StatusBadRequest, "could not parse duration", err)
		}

		for _, namespace := range request.Body.Namespaces {
			_, err := apictx.db.GetNamespace(apictx.db, namespace)
			if err != nil {
				if errors.Is(err, storage.ErrEntityNotFound) {
					return &CreateTokenResponse{},
						huma.NewError(http.StatusNotFound, fmt.Sprintf("namespace %q not found", namespace))
				}
				return &CreateTokenResponse{},
					huma.NewError(http.StatusInternalServerError, "could not create token", err)
			}
		}

		kind := models.TokenKindClient
		if strings.EqualFold(string(request.Body.Kind), "management") {
			kind = models.TokenKindManagement
		}

		token, hash := apictx.createNewAPIToken()
		newToken := models.NewToken(hash, kind, request.Body.Namespaces, request.Body.Metadata, expires)

		err = apictx.db.InsertToken(apictx.db, newToken.ToStorage())
		if err != nil {
			log.Error().Err(err).Msg("could not save token to storage")
			return &CreateTokenResponse{}, huma.NewError(http.StatusInternalServerError, "could not save token to storage", err)
		}

		resp := &CreateTokenResponse{}
		resp.Body.TokenMetadata = newToken
		resp.Body.Secret = token

		return resp, nil
	})
}

type ListTokensRequest struct {
	Auth      string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
	Namespace string `query:"namespace" example:"my_namespace" default:"default" doc:"The unique identifier for the namespace to list the tokens for."`
}
type ListTokensResponse struct {
	Body struct {
		Tokens []*models.Token `json:"tokens" doc:"A list of tokens within this namespace"`
	}
}

func (apictx *APIContext) registerListTokens(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListTokens",
		Method:      http.MethodGet,
		Path:        "/api/tokens",
		Summary:     "List available API tokens",
		Description: "This endpoint lists all API tokens that are available within a specified namespace.",
		Tags:        []string{"Tokens"},
		// Handler //
	}, func(ctx context.Context, request *ListTokensRequest) (*ListTokensResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		tokenList := []*models.Token{}

		tokensRaw, err := apictx.db.ListTokens(apictx.db, 0, 0)
		if err != nil {
			log.Error().Err(err).Msg("could not list tokens")
			return nil, huma.NewError(http.StatusInternalServerError, "failed to retrieve tokens from database")
		}

		for _, tokenRaw := range tokensRaw {
			token := models.Token{}
			token.FromStorage(&tokenRaw)

			// If the token has namespaces AND the token does not contain the targeted namespace skip it.
			if len(token.Namespaces) != 0 && !contains(token.Namespaces, request.Namespace) {
				continue
			}

			tokenMetadata := token
			tokenList = append(tokenList, &tokenMetadata)
		}

		resp := &ListTokensResponse{}
		resp.Body.Tokens = tokenList

		return resp, nil
	})
}

type WhoAmIRequest struct {
	Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
}
type WhoAmIResponse struct {
	Body struct {
		TokenMetadata *models.Token `json:"token_metadata" doc:"Details about the token making this request."`
	}
}

func (apictx *APIContext) registerWhoAmI(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "WhoAmI",
		Method:      http.MethodGet,
		Path:        "/api/tokens/whoami",
		Summary:     "Retrieve details about the token used in the request",
		Description: "This endpoint fetches the metadata for the token the caller used to authenticate. Useful for " +
			"verifying which namespaces and permission class a token carries.",
		Tags: []string{"Tokens"},
		// Handler //
	}, func(_ context.Context, request *WhoAmIRequest) (*WhoAmIResponse, error) {
		secret := strings.TrimPrefix(request.Auth, "Bearer ")
		if secret == "" {
			return nil, huma.NewError(http.StatusBadRequest, "token required")
		}

		token, err := apictx.getAPIToken(secret)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "token not found")
			}
			log.Error().Err(err).Msg("could not get token")
			return nil, huma.NewError(http.StatusInternalServerError, "failed to retrieve token from database")
		}

		resp := &WhoAmIResponse{}
		resp.Body.TokenMetadata = token

		return resp, nil
	})
}

type (
	EnableTokenRequest struct {
		Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		Body struct {
			Hash string `json:"hash" example:"some_token_hash" doc:"The hash of the token you want to target"`
		}
	}
	EnableTokenResponse struct{}
)

func (apictx *APIContext) registerEnableToken(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "EnableToken",
		Method:      http.MethodPost,
		Path:        "/api/tokens/enable",
		Summary:     "Set disabled token to enabled",
		Description: "Tokens can be in two separate states either 'Enabled' or 'Disabled'. Disabled tokens cannot be used " +
			"within the Gofer API. This endpoint allows admins to take disabled tokens and make them enabled again.",
		Tags: []string{"Tokens"},
		// Handler //
	}, func(ctx context.Context, request *EnableTokenRequest) (*EnableTokenResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		if request.Body.Hash == "" {
			return nil, huma.NewError(http.StatusBadRequest, "token hash required")
		}

		err := apictx.db.UpdateToken(apictx.db, request.Body.Hash, storage.UpdatableTokenFields{
			Disabled: ptr(false),
		})
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "token not found")
			}
			log.Error().Err(err).Msg("could not update token in storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not update token")
		}

		return &EnableTokenResponse{}, nil
	})
}

type (
	DisableTokenRequest struct {
		Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		Body struct {
			Hash string `json:"hash" example:"some_token_hash" doc:"The hash of the token you want to target"`
		}
	}
	DisableTokenResponse struct{}
)

func (apictx *APIContext) registerDisableToken(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DisableToken",
		Method:      http.MethodPost,
		Path:        "/api/tokens/disable",
		Summary:     "Set enabled token to disabled",
		Description: "Tokens can be in two separate states either 'Enabled' or 'Disabled'. Disabled tokens cannot be used " +
			"within the Gofer API. This endpoint allows admins to take enabled tokens and make them disabled.",
		Tags: []string{"Tokens"},
		// Handler //
	}, func(ctx context.Context, request *DisableTokenRequest) (*DisableTokenResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		if request.Body.Hash == "" {
			return nil, huma.NewError(http.StatusBadRequest, "token hash required")
		}

		err := apictx.db.UpdateToken(apictx.db, request.Body.Hash, storage.UpdatableTokenFields{
			Disabled: ptr(true),
		})
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "token not found")
			}
			log.Error().Err(err).Msg("could not update token in storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not update token")
		}

		return &DisableTokenResponse{}, nil
	})
}

type (
	DeleteTokenRequest struct {
		Auth string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		Body struct {
			Hash string `json:"hash" example:"some_token_hash" doc:"The hash of the token you want to target"`
		}
	}
	DeleteTokenResponse struct{}
)

func (apictx *APIContext) registerDeleteToken(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeleteToken",
		Method:      http.MethodDelete,
		Path:        "/api/tokens/delete",
		Summary:     "Delete a specific token",
		Description: "Remove a stored token",
		Tags:        []string{"Tokens"},
		// Handler //
	}, func(ctx context.Context, request *DeleteTokenRequest) (*DeleteTokenResponse, error) {
		if !isManagementUser(ctx) {
			return nil, huma.NewError(http.StatusUnauthorized, "management token required for this action")
		}

		if request.Body.Hash == "" {
			return nil, huma.NewError(http.StatusBadRequest, "token hash required")
		}

		err := apictx.db.DeleteTokenByHash(apictx.db, request.Body.Hash)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "token not found")
			}
			log.Error().Err(err).Msg("could not delete token from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete token", err)
		}

		return &DeleteTokenResponse{}, nil
	})
}

type (
	CreateBootstrapTokenRequest  struct{}
	CreateBootstrapTokenResponse struct {
		Body struct {
			TokenMetadata *models.Token `json:"token" doc:"Details about the created token"`
			Secret        string        `json:"secret" example:"secret_value" doc:"The secret value for the created token"`
		}
	}
)

func (apictx *APIContext) registerCreateBootstrapToken(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID:   "CreateBootstrapToken",
		Method:        http.MethodPost,
		Path:          "/api/tokens/bootstrap",
		Summary:       "Create original management token",
		DefaultStatus: http.StatusCreated,
		Description: "This endpoint is meant to be called on the first run of the Gofer application. It provides the " +
			"original management token (also referred to as the root or init token) that can create all future tokens. " +
			"This route can only be used once.",
		Tags: []string{"Tokens"},
		// Handler //
	}, func(_ context.Context, _ *CreateBootstrapTokenRequest) (*CreateBootstrapTokenResponse, error) {
		systemParams, err := apictx.db.GetSystemParameters(apictx.db)
		if err != nil {
			log.Error().Err(err).Msg("could not read system parameters")
			return nil, huma.NewError(http.StatusInternalServerError, "could not create bootstrap token", err)
		}

		if systemParams.BootstrapTokenCreated {
			return nil, huma.NewError(http.StatusBadRequest, "bootstrap token already created")
		}

		token, hash := apictx.createNewAPIToken()
		newToken := models.NewToken(hash, models.TokenKindManagement, []string{}, map[string]string{
			"bootstrap_token": "true",
		}, time.Hour*876600)

		err = apictx.db.InsertToken(apictx.db, newToken.ToStorage())
		if err != nil {
			log.Error().Err(err).Msg("could not save token to storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not save token to storage", err)
		}

		err = apictx.db.UpdateSystemParameters(apictx.db, storage.UpdatableSystemParameters{
			BootstrapTokenCreated: ptr(true),
		})
		if err != nil {
			log.Error().Err(err).Msg("could not mark bootstrap token as created")
			return nil, huma.NewError(http.StatusInternalServerError, "could not save token to storage", err)
		}

		resp := &CreateBootstrapTokenResponse{}
		resp.Body.TokenMetadata = newToken
		resp.Body.Secret = token

		return resp, nil
	})
}
