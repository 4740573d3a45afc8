// Package app is the setup package for all things API related. It properly initializes all other
// required services and starts the main API service.
package app

import (
	"fmt"

	"github.com/clintjedwards/gofer/internal/api"
	"github.com/clintjedwards/gofer/internal/config"
	objectstore "github.com/clintjedwards/gofer/internal/objectStore"
	objectSqlite "github.com/clintjedwards/gofer/internal/objectStore/sqlite"
	"github.com/clintjedwards/gofer/internal/scheduler"
	"github.com/clintjedwards/gofer/internal/scheduler/docker"
	secretstore "github.com/clintjedwards/gofer/internal/secretStore"
	secretSqlite "github.com/clintjedwards/gofer/internal/secretStore/sqlite"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

// StartServices initializes all required services and blocks serving the main API.
func StartServices(conf *config.API) {
	if conf.Development.BypassAuth {
		log.Warn().Msg("server auth bypass turned on; not for use in production")
	}

	newStorage, err := storage.New(conf.StoragePath, conf.StorageResultsLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("could not init storage")
	}

	log.Info().Str("path", conf.StoragePath).Msg("storage initialized")

	newScheduler, err := initScheduler(conf.Scheduler)
	if err != nil {
		log.Fatal().Err(err).Msg("could not init scheduler")
	}

	log.Info().Str("engine", conf.Scheduler.Engine).Msg("scheduler engine initialized")

	newObjectStore, err := initObjectStore(conf.ObjectStore)
	if err != nil {
		log.Fatal().Err(err).Msg("could not init object store")
	}

	log.Info().Str("engine", conf.ObjectStore.Engine).Msg("object store engine initialized")

	newSecretStore, err := initSecretStore(conf.SecretStore, conf.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("could not init secret store")
	}

	log.Info().Str("engine", conf.SecretStore.Engine).Msg("secret store engine initialized")

	apictx, err := api.NewAPIContext(conf, newStorage, newScheduler, newObjectStore, newSecretStore)
	if err != nil {
		log.Fatal().Err(err).Msg("could not init api")
	}

	if conf.ExternalEventsAPI.Enable {
		go apictx.StartExternalEventsService()
	}

	apictx.StartAPIService()
}

func initObjectStore(conf *config.ObjectStore) (objectstore.Engine, error) {
	switch objectstore.EngineType(conf.Engine) {
	case objectstore.EngineSqlite:
		engine, err := objectSqlite.New(conf.Sqlite.Path)
		if err != nil {
			return nil, err
		}

		return &engine, nil
	default:
		return nil, fmt.Errorf("object store backend %q not implemented", conf.Engine)
	}
}

func initSecretStore(conf *config.SecretStore, encryptionKey string) (secretstore.Engine, error) {
	switch secretstore.EngineType(conf.Engine) {
	case secretstore.EngineSqlite:
		engine, err := secretSqlite.New(conf.Sqlite.Path, encryptionKey)
		if err != nil {
			return nil, err
		}

		return &engine, nil
	default:
		return nil, fmt.Errorf("secret store backend %q not implemented", conf.Engine)
	}
}

func initScheduler(conf *config.Scheduler) (scheduler.Engine, error) {
	switch scheduler.EngineType(conf.Engine) {
	case scheduler.EngineDocker:
		engine, err := docker.New(conf.Docker.Prune, conf.Docker.PruneInterval())
		if err != nil {
			return nil, err
		}

		return engine, nil
	default:
		return nil, fmt.Errorf("scheduler backend %q not implemented", conf.Engine)
	}
}
