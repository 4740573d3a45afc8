package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/clintjedwards/gofer/internal/dag"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/danielgtaylor/huma/v2"
	"github.com/jmoiron/sqlx"

	"github.com/rs/zerolog/log"
)

// UserTaskConfig is the task portion of the configuration document users submit on registration.
type UserTaskConfig struct {
	ID           string               `json:"id" example:"my_task" doc:"Unique identifier for the task; must be between 3 and 32 alphanumeric or underscore characters"`
	Description  string               `json:"description,omitempty" doc:"Short description of the task's purpose"`
	Image        string               `json:"image" example:"ubuntu:latest" doc:"Container image to run"`
	RegistryAuth *models.RegistryAuth `json:"registry_auth,omitempty" doc:"Credentials for the image's registry if it is private"`

	DependsOn map[string]string `json:"depends_on,omitempty" doc:"Parent tasks and the finishing states required of them; states are one of any, success, failure"`

	Variables map[string]string `json:"variables,omitempty" doc:"Environment variables to pass to the container"`

	Entrypoint *[]string `json:"entrypoint,omitempty" doc:"Override for the container entrypoint"`
	Command    *[]string `json:"command,omitempty" doc:"Override for the container command"`

	InjectAPIToken        bool  `json:"inject_api_token,omitempty" doc:"Whether to inject a run-scoped API token"`
	AlwaysPullNewestImage bool  `json:"always_pull_newest_image,omitempty" doc:"Whether to skip the local image cache"`
	Timeout               int64 `json:"timeout,omitempty" example:"0" doc:"Execution time limit in seconds; 0 falls back to the server default"`
}

// UserPipelineConfig is the configuration document users submit to register a new pipeline version.
type UserPipelineConfig struct {
	ID          string           `json:"id" example:"my_pipeline" doc:"Unique identifier for the pipeline; must be between 3 and 32 alphanumeric or underscore characters"`
	Name        string           `json:"name" example:"My Pipeline" doc:"Humanized name for the pipeline"`
	Description string           `json:"description,omitempty" doc:"Short description of the pipeline's purpose"`
	Parallelism int64            `json:"parallelism,omitempty" example:"0" doc:"Maximum concurrent runs allowed; 0 is unlimited"`
	Tasks       []UserTaskConfig `json:"tasks" doc:"The tasks that make up the pipeline"`
}

func (tc *UserTaskConfig) toTask() models.Task {
	variables := []models.Variable{}
	for key, value := range tc.Variables {
		variables = append(variables, models.Variable{
			Key:         key,
			Value:       value,
			Source:      models.VariableSourcePipelineConfig,
			Sensitivity: models.VariableSensitivityPublic,
		})
	}

	dependsOn := map[string]models.RequiredParentStatus{}
	for parent, state := range tc.DependsOn {
		dependsOn[parent] = models.RequiredParentStatus("").FromStr(state)
	}

	return models.Task{
		ID:                    tc.ID,
		Description:           tc.Description,
		Image:                 tc.Image,
		RegistryAuth:          tc.RegistryAuth,
		DependsOn:             dependsOn,
		Variables:             variables,
		Entrypoint:            tc.Entrypoint,
		Command:               tc.Command,
		InjectAPIToken:        tc.InjectAPIToken,
		AlwaysPullNewestImage: tc.AlwaysPullNewestImage,
		Timeout:               tc.Timeout,
	}
}

// validatePipelineConfig checks the user supplied configuration document for structural problems
// before anything gets written. Checks identifiers, the task dependency graph, and variable
// directives that are not allowed at the pipeline config layer.
func validatePipelineConfig(config *UserPipelineConfig) error {
	if err := validateIdentifier("id", config.ID); err != nil {
		return err
	}

	if len(config.Tasks) == 0 {
		return fmt.Errorf("pipeline must contain at least one task")
	}

	taskDAG := dag.New()

	for _, task := range config.Tasks {
		if err := validateIdentifier("id", task.ID); err != nil {
			return fmt.Errorf("task %q: %w", task.ID, err)
		}

		if task.Image == "" {
			return fmt.Errorf("task %q: image required", task.ID)
		}

		if err := taskDAG.AddNode(task.ID); err != nil {
			if errors.Is(err, dag.ErrEntityExists) {
				return fmt.Errorf("duplicate task id %q", task.ID)
			}
			return err
		}

		for key, value := range task.Variables {
			// Global secrets are resolved against the operator's namespace allow list at run time.
			// Baking one into the pipeline config would let any user of the pipeline exfiltrate it.
			if _, found := parseInterpolationSyntax(InterpolationKindGlobalSecret, value); found {
				return fmt.Errorf("task %q: variable %q: global secrets cannot be referenced within pipeline config variables", task.ID, key)
			}
		}
	}

	for _, task := range config.Tasks {
		for parent, state := range task.DependsOn {
			if models.RequiredParentStatus("").FromStr(string(state)) == models.RequiredParentStatusUnknown {
				return fmt.Errorf("task %q: depends_on %q: unknown required state %q", task.ID, parent, state)
			}

			if err := taskDAG.AddEdge(parent, task.ID); err != nil {
				if errors.Is(err, dag.ErrEntityNotFound) {
					return fmt.Errorf("task %q: depends_on references unknown task %q", task.ID, parent)
				}
				if errors.Is(err, dag.ErrEdgeCreatesCycle) {
					return fmt.Errorf("task %q: depends_on %q would create a cycle", task.ID, parent)
				}
				return err
			}
		}
	}

	return nil
}

type (
	RegisterPipelineConfigRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Body        struct {
			Config UserPipelineConfig `json:"config" doc:"The configuration document for the new pipeline version"`
		}
	}
	RegisterPipelineConfigResponse struct {
		Body struct {
			Pipeline models.PipelineMetadata `json:"pipeline" doc:"Metadata for the pipeline the config was registered under"`
			Version  int64                   `json:"version" example:"1" doc:"Version assigned to the newly registered config"`
		}
	}
)

func (apictx *APIContext) registerRegisterPipelineConfig(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "RegisterPipelineConfig",
		Method:      http.MethodPost,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/configs",
		Summary:     "Register a new pipeline configuration",
		Description: "Registers a new version of a pipeline's configuration. If the pipeline does not exist yet it is " +
			"created. The new version is immediately promoted to be the live version that future runs execute against.",
		Tags:          []string{"Configs"},
		DefaultStatus: http.StatusCreated,
		// Handler //
	}, func(ctx context.Context, request *RegisterPipelineConfigRequest) (*RegisterPipelineConfigResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		if request.Body.Config.ID == "" {
			request.Body.Config.ID = request.PipelineID
		}

		if request.Body.Config.ID != request.PipelineID {
			return nil, huma.NewError(http.StatusBadRequest, "config id does not match the pipeline id in the url")
		}

		if err := validatePipelineConfig(&request.Body.Config); err != nil {
			return nil, huma.NewError(http.StatusBadRequest, err.Error())
		}

		userConfig := request.Body.Config

		var metadata models.PipelineMetadata
		var newConfig models.PipelineConfig
		var createdPipeline bool
		var deprecatedVersion int64

		err := storage.InsideTx(apictx.db.DB, func(tx *sqlx.Tx) error {
			newMetadata := models.NewPipelineMetadata(request.NamespaceID, userConfig.ID)

			err := apictx.db.InsertPipelineMetadata(tx, newMetadata.ToStorage())
			if err != nil {
				if !errors.Is(err, storage.ErrEntityExists) {
					return err
				}

				storedMetadata, err := apictx.db.GetPipelineMetadata(tx, request.NamespaceID, userConfig.ID)
				if err != nil {
					return err
				}
				metadata.FromStorage(&storedMetadata)
			} else {
				createdPipeline = true
				metadata = *newMetadata
			}

			version := int64(1)
			latestConfig, err := apictx.db.GetLatestPipelineConfig(tx, request.NamespaceID, userConfig.ID)
			if err != nil {
				if !errors.Is(err, storage.ErrEntityNotFound) {
					return err
				}
			} else {
				version = latestConfig.Version + 1
			}

			newConfig = models.PipelineConfig{
				Namespace:   request.NamespaceID,
				Pipeline:    userConfig.ID,
				Version:     version,
				Parallelism: userConfig.Parallelism,
				Name:        userConfig.Name,
				Description: userConfig.Description,
				Tasks:       map[string]models.Task{},
				State:       models.PipelineConfigStateUnreleased,
				Registered:  uint64(time.Now().UnixMilli()),
			}
			for _, taskConfig := range userConfig.Tasks {
				newConfig.Tasks[taskConfig.ID] = taskConfig.toTask()
			}

			storageConfig, storageTasks := newConfig.ToStorage()
			if err := apictx.db.InsertPipelineConfig(tx, storageConfig); err != nil {
				return err
			}

			for _, task := range storageTasks {
				if err := apictx.db.InsertPipelineTask(tx, task); err != nil {
					return err
				}
			}

			// Promote the new version in the same transaction so there is never a moment where a
			// pipeline has two live versions or none.
			liveConfig, err := apictx.db.GetLatestLivePipelineConfig(tx, request.NamespaceID, userConfig.ID)
			if err != nil {
				if !errors.Is(err, storage.ErrEntityNotFound) {
					return err
				}
			} else {
				deprecatedVersion = liveConfig.Version
				err = apictx.db.UpdatePipelineConfig(tx, request.NamespaceID, userConfig.ID, liveConfig.Version,
					storage.UpdatablePipelineConfigFields{
						State:      ptr(string(models.PipelineConfigStateDeprecated)),
						Deprecated: ptr(fmt.Sprint(time.Now().UnixMilli())),
					})
				if err != nil {
					return err
				}
			}

			err = apictx.db.UpdatePipelineConfig(tx, request.NamespaceID, userConfig.ID, version,
				storage.UpdatablePipelineConfigFields{
					State: ptr(string(models.PipelineConfigStateLive)),
				})
			if err != nil {
				return err
			}
			newConfig.State = models.PipelineConfigStateLive

			return nil
		})
		if err != nil {
			log.Error().Err(err).Msg("could not register pipeline config")
			return nil, huma.NewError(http.StatusInternalServerError, "could not register pipeline config", err)
		}

		if createdPipeline {
			go apictx.events.Publish(models.EventCreatedPipeline{
				NamespaceID: request.NamespaceID,
				PipelineID:  userConfig.ID,
			})
		}

		go apictx.events.Publish(models.EventRegisteredPipelineConfig{
			NamespaceID: request.NamespaceID,
			PipelineID:  userConfig.ID,
			Version:     newConfig.Version,
		})

		go apictx.events.Publish(models.EventStartedDeployment{
			NamespaceID:  request.NamespaceID,
			PipelineID:   userConfig.ID,
			StartVersion: deprecatedVersion,
			EndVersion:   newConfig.Version,
		})
		go apictx.events.Publish(models.EventCompletedDeployment{
			NamespaceID:  request.NamespaceID,
			PipelineID:   userConfig.ID,
			StartVersion: deprecatedVersion,
			EndVersion:   newConfig.Version,
		})

		go apictx.pruneOldPipelineConfigs(request.NamespaceID, userConfig.ID)

		log.Info().Str("namespace", request.NamespaceID).Str("pipeline", userConfig.ID).
			Int64("version", newConfig.Version).Msg("registered new pipeline config")

		resp := &RegisterPipelineConfigResponse{}
		resp.Body.Pipeline = metadata
		resp.Body.Version = newConfig.Version

		return resp, nil
	})
}

// pruneOldPipelineConfigs removes the oldest deprecated config versions once a pipeline has more
// versions than the configured limit. Live and unreleased versions are never pruned.
func (apictx *APIContext) pruneOldPipelineConfigs(namespace, pipeline string) {
	configs, err := apictx.db.ListPipelineConfigs(apictx.db, 0, 0, namespace, pipeline)
	if err != nil {
		log.Error().Err(err).Msg("could not list pipeline configs during prune")
		return
	}

	if len(configs) <= apictx.config.PipelineVersionLimit {
		return
	}

	excess := len(configs) - apictx.config.PipelineVersionLimit

	// List is ordered newest first; walk backwards so the oldest versions go first.
	for i := len(configs) - 1; i >= 0 && excess > 0; i-- {
		config := configs[i]

		if config.State != string(models.PipelineConfigStateDeprecated) {
			continue
		}

		err := apictx.db.DeletePipelineConfig(apictx.db, namespace, pipeline, config.Version)
		if err != nil {
			log.Error().Err(err).Int64("version", config.Version).Msg("could not prune pipeline config")
			continue
		}

		go apictx.events.Publish(models.EventDeletedPipelineConfig{
			NamespaceID: namespace,
			PipelineID:  pipeline,
			Version:     config.Version,
		})

		log.Debug().Str("namespace", namespace).Str("pipeline", pipeline).
			Int64("version", config.Version).Msg("pruned old pipeline config")

		excess--
	}
}

type (
	ListPipelineConfigsRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Offset      int    `query:"offset" example:"0" doc:"The offset into the config list to start at"`
		Limit       int    `query:"limit" example:"10" doc:"The total amount of results to limit by"`
	}
	ListPipelineConfigsResponse struct {
		Body struct {
			Configs []models.PipelineConfig `json:"configs" doc:"All config versions for the pipeline, newest first"`
		}
	}
)

func (apictx *APIContext) registerListPipelineConfigs(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "ListPipelineConfigs",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/configs",
		Summary:     "List all configs for a pipeline",
		Description: "Returns all registered config versions for a pipeline, newest first.",
		Tags:        []string{"Configs"},
		// Handler //
	}, func(ctx context.Context, request *ListPipelineConfigsRequest) (*ListPipelineConfigsResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedConfigs, err := apictx.db.ListPipelineConfigs(apictx.db, request.Offset, request.Limit,
			request.NamespaceID, request.PipelineID)
		if err != nil {
			log.Error().Err(err).Msg("could not get pipeline configs from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline configs", err)
		}

		configs := []models.PipelineConfig{}
		for _, storedConfig := range storedConfigs {
			storedTasks, err := apictx.db.ListPipelineTasks(apictx.db, request.NamespaceID, request.PipelineID,
				storedConfig.Version)
			if err != nil {
				log.Error().Err(err).Msg("could not get pipeline tasks from storage")
				return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline tasks", err)
			}

			var config models.PipelineConfig
			config.FromStorage(&storedConfig, storedTasks)
			configs = append(configs, config)
		}

		resp := &ListPipelineConfigsResponse{}
		resp.Body.Configs = configs

		return resp, nil
	})
}

type (
	DescribePipelineConfigRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Version     int64  `path:"version" example:"1" doc:"Version of the target config; 0 returns the latest version"`
	}
	DescribePipelineConfigResponse struct {
		Body struct {
			Config models.PipelineConfig `json:"config" doc:"The requested config version"`
		}
	}
)

func (apictx *APIContext) registerDescribePipelineConfig(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DescribePipelineConfig",
		Method:      http.MethodGet,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/configs/{version}",
		Summary:     "Describe a single pipeline config version",
		Description: "Returns a single config version for a pipeline. Passing 0 as the version returns the latest.",
		Tags:        []string{"Configs"},
		// Handler //
	}, func(ctx context.Context, request *DescribePipelineConfigRequest) (*DescribePipelineConfigResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		var storedConfig storage.PipelineConfig
		var err error

		if request.Version == 0 {
			storedConfig, err = apictx.db.GetLatestPipelineConfig(apictx.db, request.NamespaceID, request.PipelineID)
		} else {
			storedConfig, err = apictx.db.GetPipelineConfig(apictx.db, request.NamespaceID, request.PipelineID,
				request.Version)
		}
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "pipeline config not found")
			}

			log.Error().Err(err).Msg("could not get pipeline config from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline config", err)
		}

		storedTasks, err := apictx.db.ListPipelineTasks(apictx.db, request.NamespaceID, request.PipelineID,
			storedConfig.Version)
		if err != nil {
			log.Error().Err(err).Msg("could not get pipeline tasks from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline tasks", err)
		}

		var config models.PipelineConfig
		config.FromStorage(&storedConfig, storedTasks)

		resp := &DescribePipelineConfigResponse{}
		resp.Body.Config = config

		return resp, nil
	})
}

type (
	DeletePipelineConfigRequest struct {
		Auth        string `header:"Authorization" example:"Bearer <your_api_token>" required:"true"`
		NamespaceID string `path:"namespace_id" example:"default" doc:"Unique identifier of the target namespace"`
		PipelineID  string `path:"pipeline_id" example:"simple_pipeline" doc:"Unique identifier of the target pipeline"`
		Version     int64  `path:"version" example:"1" doc:"Version of the target config"`
	}
	DeletePipelineConfigResponse struct{}
)

func (apictx *APIContext) registerDeletePipelineConfig(apiDesc huma.API) {
	// Description //
	huma.Register(apiDesc, huma.Operation{
		OperationID: "DeletePipelineConfig",
		Method:      http.MethodDelete,
		Path:        "/api/namespaces/{namespace_id}/pipelines/{pipeline_id}/configs/{version}",
		Summary:     "Delete a pipeline config version",
		Description: "Removes a single config version. The live version and the only remaining version cannot be removed.",
		Tags:        []string{"Configs"},
		// Handler //
	}, func(ctx context.Context, request *DeletePipelineConfigRequest) (*DeletePipelineConfigResponse, error) {
		if !hasAccess(ctx, request.NamespaceID) {
			return nil, huma.NewError(http.StatusUnauthorized, "token does not have access to this namespace")
		}

		storedConfig, err := apictx.db.GetPipelineConfig(apictx.db, request.NamespaceID, request.PipelineID,
			request.Version)
		if err != nil {
			if errors.Is(err, storage.ErrEntityNotFound) {
				return nil, huma.NewError(http.StatusNotFound, "pipeline config not found")
			}

			log.Error().Err(err).Msg("could not get pipeline config from storage")
			return nil, huma.NewError(http.StatusInternalServerError, "could not get pipeline config", err)
		}

		if storedConfig.State == string(models.PipelineConfigStateLive) {
			return nil, huma.NewError(http.StatusPreconditionFailed,
				"cannot delete the live config version; register a new version first")
		}

		configs, err := apictx.db.ListPipelineConfigs(apictx.db, 0, 2, request.NamespaceID, request.PipelineID)
		if err != nil {
			log.Error().Err(err).Msg("could not list pipeline configs")
			return nil, huma.NewError(http.StatusInternalServerError, "could not list pipeline configs", err)
		}

		if len(configs) <= 1 {
			return nil, huma.NewError(http.StatusPreconditionFailed,
				"cannot delete the only config version for a pipeline; delete the pipeline instead")
		}

		err = apictx.db.DeletePipelineConfig(apictx.db, request.NamespaceID, request.PipelineID, request.Version)
		if err != nil {
			log.Error().Err(err).Msg("could not delete pipeline config")
			return nil, huma.NewError(http.StatusInternalServerError, "could not delete pipeline config", err)
		}

		go apictx.events.Publish(models.EventDeletedPipelineConfig{
			NamespaceID: request.NamespaceID,
			PipelineID:  request.PipelineID,
			Version:     request.Version,
		})

		return &DeletePipelineConfigResponse{}, nil
	})
}
