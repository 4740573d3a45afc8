// Package api controls the bulk of the Gofer API logic.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/clintjedwards/gofer/internal/config"
	"github.com/clintjedwards/gofer/internal/eventbus"
	"github.com/clintjedwards/gofer/internal/frontend"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/objectStore"
	"github.com/clintjedwards/gofer/internal/scheduler"
	"github.com/clintjedwards/gofer/internal/secretStore"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/clintjedwards/gofer/internal/syncmap"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog/log"
)

const (
	namespaceDefaultID   = "default"
	namespaceDefaultName = "Default"
)

type CancelContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// APIContext holds all long-lived state for the main Gofer service. A single instance is shared
// by every request handler and every background goroutine.
type APIContext struct {
	// Parent context for management goroutines. Used to easily stop goroutines on shutdown.
	context *CancelContext

	// Config represents the relative configuration for the Gofer API. This is a combination of envvars and config values
	// gleaned at startup time.
	config *config.API

	// The main backend storage implementation. Gofer stores most of its critical state information here.
	db storage.DB

	// Scheduler is the mechanism in which Gofer runs its individual containers. It leverages that backend
	// scheduler to do most of the work of running the user's task executions.
	scheduler scheduler.Engine

	// ObjectStore is the mechanism in which Gofer stores pipeline and run level objects. The implementation here
	// is meant to act as a basic object store.
	objectStore objectStore.Engine

	// SecretStore is the mechanism in which Gofer stores pipeline and global secrets. This is the way in which
	// users can populate their pipeline configurations with sensitive values.
	secretStore secretStore.Engine

	// Extensions is an in-memory map of currently registered extensions. These extensions are registered on startup
	// and launched as long running containers via the scheduler. Gofer refers to this cache as a way to communicate
	// quickly with the containers and their potentially changing endpoints.
	extensions syncmap.Syncmap[string, *models.Extension]

	// runMachines tracks the state machine for every run currently in progress, keyed by
	// namespace, pipeline, and run id. Cancellation uses it to reach task executions that have
	// not yet been handed to the scheduler. Machines remove themselves once their run settles.
	runMachines syncmap.Syncmap[string, *RunStateMachine]

	// ignorePipelineRunEvents controls if extensions can trigger runs globally. If this is set to true the entire
	// Gofer service will not schedule new runs on behalf of extensions.
	ignorePipelineRunEvents *atomic.Bool

	// events acts as an event bus for the Gofer application. It is used throughout the whole application to give
	// different parts of the application the ability to listen for and respond to events that might happen in other
	// parts.
	events *eventbus.EventBus
}

// NewAPIContext creates a new instance of the main Gofer API service.
func NewAPIContext(conf *config.API, db storage.DB, scheduler scheduler.Engine, objectStore objectStore.Engine,
	secretStore secretStore.Engine,
) (*APIContext, error) {
	eventbus, err := eventbus.New(db, conf.EventRetention(), conf.EventPruneInterval())
	if err != nil {
		return nil, fmt.Errorf("could not init event bus: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var ignorePipelineRunEvents atomic.Bool
	ignorePipelineRunEvents.Store(conf.IgnorePipelineRunEvents)

	// The event ingress toggle survives restarts; a persisted true wins over the config file.
	systemParams, err := db.GetSystemParameters(db)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("could not read system parameters: %w", err)
	}
	if systemParams.IgnorePipelineRunEvents {
		ignorePipelineRunEvents.Store(true)
	}

	newAPI := &APIContext{
		context: &CancelContext{
			ctx:    ctx,
			cancel: cancel,
		},
		config:                  conf,
		db:                      db,
		events:                  eventbus,
		scheduler:               scheduler,
		objectStore:             objectStore,
		secretStore:             secretStore,
		extensions:              syncmap.New[string, *models.Extension](),
		runMachines:             syncmap.New[string, *RunStateMachine](),
		ignorePipelineRunEvents: &ignorePipelineRunEvents,
	}

	err = newAPI.createDefaultNamespace()
	if err != nil {
		return nil, fmt.Errorf("could not create default namespace: %w", err)
	}

	// findOrphans is a repair method that picks up where the gofer service left off if it was shutdown while
	// a run was currently in progress.
	go newAPI.findOrphans()

	err = newAPI.startExtensions()
	if err != nil {
		return nil, fmt.Errorf("could not start extensions: %w", err)
	}

	err = newAPI.restoreExtensionSubscriptions()
	if err != nil {
		newAPI.cleanup()
		return nil, fmt.Errorf("could not restore extension subscriptions: %w", err)
	}

	go newAPI.watchExtensionHealth()

	return newAPI, nil
}

// cleanup gracefully cleans up all goroutines to ensure a clean shutdown.
func (apictx *APIContext) cleanup() {
	apictx.ignorePipelineRunEvents.Store(true)

	// Send graceful stop to all extension containers.
	apictx.stopExtensions()

	// Stop all goroutines which should stop the run monitors and log streamers.
	apictx.context.cancel()
}

// StartAPIService starts the main Gofer http service and blocks until a SIGINT or SIGTERM is received.
func (apictx *APIContext) StartAPIService() {
	router := chi.NewRouter()

	// The documentation site is served from the root so that operators can point a browser at
	// the service address and get somewhere useful.
	router.Mount("/docs", frontend.StaticHandler())

	// Websocket endpoints bypass the openapi layer since they don't speak plain request/response.
	router.Get("/api/events", apictx.streamEventsHandler)
	router.Get("/api/namespaces/{namespace}/pipelines/{pipeline}/runs/{run}/tasks/{task}/logs",
		apictx.streamTaskExecutionLogsHandler)
	router.Get("/api/extensions/{extension}/logs", apictx.streamExtensionLogsHandler)

	// Huma's built-in docs renderer is turned off in favor of our own /docs site; the openapi
	// document itself is still served at /openapi.yaml.
	apiConfig := huma.DefaultConfig("Gofer", parsedVersion())
	apiConfig.DocsPath = ""

	apiDesc := humachi.New(router, apiConfig)
	apiDesc.UseMiddleware(authMiddleware(apictx, apiDesc))
	apictx.registerRoutes(apiDesc)

	tlsConfig, err := apictx.generateTLSConfig(apictx.config.Server.TLSCertPath, apictx.config.Server.TLSKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not get proper TLS config")
	}

	var handler http.Handler = router
	if apictx.config.Development.PrettyLogging {
		handler = handlers.LoggingHandler(os.Stdout, router)
	}

	httpServer := http.Server{
		Addr:    apictx.config.APIHost,
		Handler: handler,
		// Log streaming and event streaming can hold requests open indefinitely so the server
		// level timeouts stay off; individual handlers enforce their own.
		WriteTimeout: 0,
		ReadTimeout:  0,
		TLSConfig:    tlsConfig,
	}

	// Run our server in a goroutine and listen for signals that indicate graceful shutdown.
	go func() {
		if err := httpServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited abnormally")
		}
	}()
	log.Info().Str("url", apictx.config.APIHost).Msg("started gofer http service")

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT)
	<-c

	// On ctrl-c we need to clean up not only the connections from the server, but make sure all the currently
	// running jobs are logged and exited properly.
	apictx.cleanup()

	// Doesn't block if no connections, otherwise will wait until the timeout deadline or connections to finish,
	// whichever comes first.
	ctx, cancel := context.WithTimeout(context.Background(), apictx.config.ShutdownGrace())
	defer cancel()

	err = httpServer.Shutdown(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not shutdown server in timeout specified")
		return
	}

	log.Info().Msg("http server exited gracefully")
}

// registerRoutes attaches every openapi route to the service description.
func (apictx *APIContext) registerRoutes(apiDesc huma.API) {
	apictx.registerDescribeSystemInfo(apiDesc)
	apictx.registerDescribeSystemSummary(apiDesc)
	apictx.registerToggleEventIngress(apiDesc)
	apictx.registerRepairOrphan(apiDesc)

	apictx.registerListTokens(apiDesc)
	apictx.registerCreateToken(apiDesc)
	apictx.registerWhoAmI(apiDesc)
	apictx.registerEnableToken(apiDesc)
	apictx.registerDisableToken(apiDesc)
	apictx.registerDeleteToken(apiDesc)
	apictx.registerCreateBootstrapToken(apiDesc)

	apictx.registerListNamespaces(apiDesc)
	apictx.registerCreateNamespace(apiDesc)
	apictx.registerDescribeNamespace(apiDesc)
	apictx.registerUpdateNamespace(apiDesc)
	apictx.registerDeleteNamespace(apiDesc)

	apictx.registerListPipelines(apiDesc)
	apictx.registerDescribePipeline(apiDesc)
	apictx.registerEnablePipeline(apiDesc)
	apictx.registerDisablePipeline(apiDesc)
	apictx.registerDeletePipeline(apiDesc)

	apictx.registerRegisterPipelineConfig(apiDesc)
	apictx.registerListPipelineConfigs(apiDesc)
	apictx.registerDescribePipelineConfig(apiDesc)
	apictx.registerDeletePipelineConfig(apiDesc)

	apictx.registerStartRun(apiDesc)
	apictx.registerListRuns(apiDesc)
	apictx.registerDescribeRun(apiDesc)
	apictx.registerRetryRun(apiDesc)
	apictx.registerCancelRun(apiDesc)
	apictx.registerCancelAllRuns(apiDesc)

	apictx.registerListTaskExecutions(apiDesc)
	apictx.registerDescribeTaskExecution(apiDesc)
	apictx.registerCancelTaskExecution(apiDesc)
	apictx.registerDeleteTaskExecutionLogs(apiDesc)

	apictx.registerGetEvent(apiDesc)

	apictx.registerListExtensions(apiDesc)
	apictx.registerDescribeExtension(apiDesc)
	apictx.registerInstallExtension(apiDesc)
	apictx.registerUninstallExtension(apiDesc)
	apictx.registerEnableExtension(apiDesc)
	apictx.registerDisableExtension(apiDesc)

	apictx.registerListPipelineExtensionSubscriptions(apiDesc)
	apictx.registerDescribePipelineExtensionSubscription(apiDesc)
	apictx.registerCreatePipelineExtensionSubscription(apiDesc)
	apictx.registerDeletePipelineExtensionSubscription(apiDesc)

	apictx.registerListPipelineObjects(apiDesc)
	apictx.registerGetPipelineObject(apiDesc)
	apictx.registerPutPipelineObject(apiDesc)
	apictx.registerDeletePipelineObject(apiDesc)
	apictx.registerListRunObjects(apiDesc)
	apictx.registerGetRunObject(apiDesc)
	apictx.registerPutRunObject(apiDesc)
	apictx.registerDeleteRunObject(apiDesc)

	apictx.registerListPipelineSecrets(apiDesc)
	apictx.registerGetPipelineSecret(apiDesc)
	apictx.registerPutPipelineSecret(apiDesc)
	apictx.registerDeletePipelineSecret(apiDesc)
	apictx.registerListGlobalSecrets(apiDesc)
	apictx.registerGetGlobalSecret(apiDesc)
	apictx.registerPutGlobalSecret(apiDesc)
	apictx.registerDeleteGlobalSecret(apiDesc)
}

// Gofer starts with a default namespace that all users have access to.
func (apictx *APIContext) createDefaultNamespace() error {
	namespace := models.NewNamespace(namespaceDefaultID, namespaceDefaultName, "default namespace")
	err := apictx.db.InsertNamespace(apictx.db, namespace.ToStorage())
	if err != nil {
		if errors.Is(err, storage.ErrEntityExists) {
			return nil
		}

		return err
	}

	apictx.events.Publish(models.EventCreatedNamespace{NamespaceID: namespace.ID})

	return nil
}

// findOrphans allows the gofer service to be shutdown and still pick back up where it left off on next startup.
// It does this by re-attaching the state monitoring goroutines for a run and its child task executions.
// While simple on its face this requires figuring out where the run currently is in its lifecycle and
// accounting for any state it could possibly be in.
//
// Gofer identifies runs that haven't fully completed by walking the event history and collecting run
// starts without a matching completion.
func (apictx *APIContext) findOrphans() {
	type orphanKey struct {
		namespace string
		pipeline  string
		run       int64
	}

	events := apictx.events.GetAll(false)
	orphanedRuns := map[orphanKey]struct{}{}

	for event := range events {
		switch evt := event.Details.(type) {
		case *models.EventStartedRun:
			orphanedRuns[orphanKey{
				namespace: evt.NamespaceID,
				pipeline:  evt.PipelineID,
				run:       evt.RunID,
			}] = struct{}{}

		case *models.EventCompletedRun:
			delete(orphanedRuns, orphanKey{
				namespace: evt.NamespaceID,
				pipeline:  evt.PipelineID,
				run:       evt.RunID,
			})
		}
	}

	for orphan := range orphanedRuns {
		log.Info().Str("namespace", orphan.namespace).Str("pipeline", orphan.pipeline).
			Int64("run", orphan.run).Msg("attempting to complete orphaned run")

		err := apictx.repairOrphanRun(orphan.namespace, orphan.pipeline, orphan.run)
		if err != nil {
			log.Error().Err(err).Str("namespace", orphan.namespace).
				Str("pipeline", orphan.pipeline).Int64("run", orphan.run).Msg("could not repair orphan run")
		}
	}
}

// repairOrphanRun re-attaches the supervision goroutines for a run that was found unfinished:
//   - Task executions already complete are simply recorded.
//   - Executions marked running whose container the scheduler no longer knows about are finalized as orphaned.
//   - Executions that never made it to the scheduler are revived and launched as normal.
//   - Everything else gets fresh log and state watchers.
func (apictx *APIContext) repairOrphanRun(namespaceID, pipelineID string, runID int64) error {
	pipelineRaw, err := apictx.db.GetPipelineMetadata(apictx.db, namespaceID, pipelineID)
	if err != nil {
		return err
	}

	var pipeline models.PipelineMetadata
	pipeline.FromStorage(&pipelineRaw)

	runRaw, err := apictx.db.GetPipelineRun(apictx.db, namespaceID, pipelineID, runID)
	if err != nil {
		return err
	}

	var run models.Run
	run.FromStorage(&runRaw)

	configRaw, err := apictx.db.GetPipelineConfig(apictx.db, namespaceID, pipelineID, run.Version)
	if err != nil {
		return err
	}

	tasksRaw, err := apictx.db.ListPipelineTasks(apictx.db, namespaceID, pipelineID, run.Version)
	if err != nil {
		return err
	}

	var pipelineConfig models.PipelineConfig
	pipelineConfig.FromStorage(&configRaw, tasksRaw)

	stateMachine := apictx.newRunStateMachine(&pipeline, &pipelineConfig, &run)
	if run.State != models.RunStateComplete {
		apictx.runMachines.Set(runMachineKey(namespaceID, pipelineID, runID), stateMachine)
	}

	taskExecutionsRaw, err := apictx.db.ListPipelineTaskExecutions(apictx.db, 0, 0, namespaceID, pipelineID, runID)
	if err != nil {
		return err
	}

	for _, taskExecutionRaw := range taskExecutionsRaw {
		var taskExecution models.TaskExecution
		taskExecution.FromStorage(&taskExecutionRaw)

		if taskExecution.State == models.TaskExecutionStateComplete {
			stateMachine.TaskExecutions.Set(taskExecution.ID, taskExecution)
			continue
		}

		// Executions that were never handed to the scheduler can be launched as if the run just started.
		if taskExecution.State == models.TaskExecutionStateProcessing ||
			taskExecution.State == models.TaskExecutionStateWaiting {
			go stateMachine.launchTaskExecution(taskExecution.Task)
			continue
		}

		containerID := taskContainerID(namespaceID, pipelineID, runID, taskExecution.ID)

		_, stateErr := apictx.scheduler.GetState(scheduler.GetStateRequest{ID: containerID})
		if errors.Is(stateErr, scheduler.ErrNoSuchContainer) {
			stateMachine.TaskExecutions.Set(taskExecution.ID, taskExecution)
			err := stateMachine.setTaskExecutionFinished(taskExecution.ID, nil, models.TaskExecutionStatusUnknown,
				&models.TaskExecutionStatusReason{
					Reason:      models.TaskExecutionStatusReasonKindOrphaned,
					Description: "Scheduler has no record of this container; state at shutdown is unknowable.",
				})
			if err != nil {
				log.Error().Err(err).Str("task", taskExecution.ID).
					Str("pipeline", pipelineID).Int64("run", runID).Msg("could not finalize orphaned task execution")
			}
			continue
		}

		// Still on the scheduler; just re-attach the watchers.
		stateMachine.TaskExecutions.Set(taskExecution.ID, taskExecution)
		go func(execution models.TaskExecution) {
			err := stateMachine.monitorTaskExecution(containerID, execution.ID)
			if err != nil {
				log.Error().Err(err).Str("task", execution.ID).
					Str("pipeline", pipelineID).Int64("run", runID).Msg("could not monitor task execution")
			}
		}(taskExecution)
	}

	if run.State != models.RunStateComplete {
		go stateMachine.waitRunFinish()
	}

	return nil
}

func ptr[T any](v T) *T {
	return &v
}
