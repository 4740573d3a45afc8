package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/structs"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/kelseyhightower/envconfig"
)

// API defines config settings for the gofer server
type API struct {
	// Controls the ability for extensions and external events to trigger runs. This setting can be toggled while
	// the server is running.
	IgnorePipelineRunEvents bool `split_words:"true" hcl:"ignore_pipeline_run_events,optional"`

	// How many total versions of an individual pipelines to keep. The oldest version of a pipeline over this limit
	// gets deleted.
	PipelineVersionLimit int `split_words:"true" hcl:"pipeline_version_limit,optional"`

	// Controls how long Gofer will hold onto events before discarding them. This is important factor in disk space
	// and memory footprint.
	//
	// Example: Rough math on a 5,000 pipeline Gofer instance with a full 6 months of retention
	//  puts the memory and storage footprint at about 9GB.
	EventRetentionSeconds int64 `split_words:"true" hcl:"event_retention_seconds,optional"`

	// How often the background process for pruning events should run. Clamped to a minimum of one minute.
	EventPruneIntervalSeconds int64 `split_words:"true" hcl:"event_prune_interval_seconds,optional"`

	// Log level affects the entire application's logs including launched extensions.
	LogLevel string `split_words:"true" hcl:"log_level,optional"`

	// Address for the main API service to bind to. Ex: localhost:8080
	APIHost string `split_words:"true" hcl:"api_host,optional"`

	// File path for the main sqlite database.
	StoragePath string `split_words:"true" hcl:"storage_path,optional"`

	// The total number of results the database will return in one call to any list endpoint.
	StorageResultsLimit int `split_words:"true" hcl:"storage_results_limit,optional"`

	// Key used for encryption of secret values. Must be exactly 32 characters.
	EncryptionKey string `split_words:"true" hcl:"encryption_key,optional"`

	// Maximum wall clock seconds any single task execution may run before it is cancelled.
	// Zero means executions have no time limit unless the task sets its own.
	TaskDefaultTimeoutSeconds int64 `split_words:"true" hcl:"task_default_timeout_seconds,optional"`

	// How long the server waits for in-progress work during shutdown before hard closing everything out.
	ShutdownGraceSeconds int64 `split_words:"true" hcl:"shutdown_grace_seconds,optional"`

	// The total amount of runs before the logs of the oldest run start being deleted.
	TaskExecutionLogExpiry int `split_words:"true" hcl:"task_execution_log_expiry,optional"`

	// Directory to store task execution log files.
	TaskExecutionLogsDir string `split_words:"true" hcl:"task_execution_logs_dir,optional"`

	// The time the scheduler will wait for a normal user container to stop gracefully. When the timeout
	// is reached the container will be forcefully terminated.
	TaskExecutionStopTimeoutSeconds int64 `split_words:"true" hcl:"task_execution_stop_timeout_seconds,optional"`

	Development       *Development       `hcl:"development,block"`
	ExternalEventsAPI *ExternalEventsAPI `split_words:"true" hcl:"external_events_api,block"`
	ObjectStore       *ObjectStore       `split_words:"true" hcl:"object_store,block"`
	SecretStore       *SecretStore       `split_words:"true" hcl:"secret_store,block"`
	Scheduler         *Scheduler         `hcl:"scheduler,block"`
	Server            *Server            `hcl:"server,block"`
	Extensions        *Extensions        `hcl:"extensions,block"`
}

func DefaultAPIConfig() *API {
	return &API{
		IgnorePipelineRunEvents:         false,
		PipelineVersionLimit:            5,
		EventRetentionSeconds:           15768000, // Roughly 6 months.
		EventPruneIntervalSeconds:       10800,    // 3 hours.
		LogLevel:                        "debug",
		APIHost:                         "localhost:8080",
		StoragePath:                     "/tmp/gofer.db",
		StorageResultsLimit:             200,
		TaskDefaultTimeoutSeconds:       0,
		ShutdownGraceSeconds:            15,
		TaskExecutionLogExpiry:          20,
		TaskExecutionLogsDir:            "/tmp",
		TaskExecutionStopTimeoutSeconds: 300,
		Development:                     DefaultDevelopmentConfig(),
		ExternalEventsAPI:               DefaultExternalEventsAPIConfig(),
		ObjectStore:                     DefaultObjectStoreConfig(),
		SecretStore:                     DefaultSecretStoreConfig(),
		Scheduler:                       DefaultSchedulerConfig(),
		Server:                          DefaultServerConfig(),
		Extensions:                      DefaultExtensionsConfig(),
	}
}

// EventRetention is the configured retention period as a time.Duration.
func (c *API) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionSeconds) * time.Second
}

// EventPruneInterval is the configured prune loop period as a time.Duration.
func (c *API) EventPruneInterval() time.Duration {
	return time.Duration(c.EventPruneIntervalSeconds) * time.Second
}

// ShutdownGrace is the configured shutdown timeout as a time.Duration.
func (c *API) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

// TaskExecutionStopTimeout is the configured container stop timeout as a time.Duration.
func (c *API) TaskExecutionStopTimeout() time.Duration {
	return time.Duration(c.TaskExecutionStopTimeoutSeconds) * time.Second
}

// Development represents feature flags useful for development against Gofer. These should never be
// turned on in production.
type Development struct {
	// PrettyLogging turns on humanized, colorized log output instead of structured JSON.
	PrettyLogging bool `split_words:"true" hcl:"pretty_logging,optional"`

	// BypassAuth turns off all token checking; every request is treated as management.
	BypassAuth bool `split_words:"true" hcl:"bypass_auth,optional"`
}

func DefaultDevelopmentConfig() *Development {
	return &Development{
		PrettyLogging: false,
		BypassAuth:    false,
	}
}

// Server represents lower level HTTP server settings.
type Server struct {
	TLSCertPath string `split_words:"true" hcl:"tls_cert_path,optional"`
	TLSKeyPath  string `split_words:"true" hcl:"tls_key_path,optional"`
}

func DefaultServerConfig() *Server {
	return &Server{}
}

// Extensions represents the configuration for Gofer extensions. Extensions are long running
// containers that can trigger runs on behalf of pipelines.
type Extensions struct {
	// The time the scheduler will wait for an extension container to gracefully stop before it is
	// forcefully terminated.
	StopTimeoutSeconds int64 `split_words:"true" hcl:"stop_timeout_seconds,optional"`

	// The period of time between attempted liveness checks against each running extension.
	HealthcheckIntervalSeconds int64 `split_words:"true" hcl:"healthcheck_interval_seconds,optional"`
}

func DefaultExtensionsConfig() *Extensions {
	return &Extensions{
		StopTimeoutSeconds:         300,
		HealthcheckIntervalSeconds: 30,
	}
}

// StopTimeout is the configured extension stop timeout as a time.Duration.
func (c *Extensions) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

// HealthcheckInterval is the configured extension liveness period as a time.Duration.
func (c *Extensions) HealthcheckInterval() time.Duration {
	return time.Duration(c.HealthcheckIntervalSeconds) * time.Second
}

// ExternalEventsAPI controls the settings around the HTTP service that handles external extension events.
type ExternalEventsAPI struct {
	Enable bool `hcl:"enable,optional"`

	// URL for the server to bind to. Ex: localhost:8081
	Host string `hcl:"host,optional"`
}

func DefaultExternalEventsAPIConfig() *ExternalEventsAPI {
	return &ExternalEventsAPI{
		Enable: true,
		Host:   "localhost:8081",
	}
}

// FromEnv parses environment variables into the config object based on envconfig name
func (c *API) FromEnv() error {
	err := envconfig.Process("gofer", c)
	if err != nil {
		return err
	}

	return nil
}

// FromBytes attempts to parse a given HCL configuration.
func (c *API) FromBytes(content []byte) error {
	err := hclsimple.Decode("config.hcl", content, nil, c)
	if err != nil {
		return err
	}

	return nil
}

func (c *API) FromFile(path string) error {
	err := hclsimple.DecodeFile(path, nil, c)
	if err != nil {
		return err
	}

	return nil
}

// Get the final configuration for the server.
// This involves correctly finding and ordering different possible paths for the configuration file.
//
// 1) The function is intended to be called with paths gleaned from the -config flag
// 2) Then combine that with possible other config locations that the user might store a config file.
// 3) Then try to see if the user has set an envvar for the config file, which overrides
// all previous config file paths.
// 4) Finally, pass back whatever is deemed the final config path from that process.
//
// We then use that path data to find the config file and read it in via HCL parsers. Once that is finished
// we then take any configuration from the environment and superimpose that on top of the final config struct.
func InitAPIConfig(userDefinedPath string, loadDefaults, processEnvVars, devMode bool) (*API, error) {
	config := &API{}

	// First we initiate the default values for the config.
	if loadDefaults {
		config = DefaultAPIConfig()
	}

	possibleConfigPaths := []string{userDefinedPath, "/etc/gofer/gofer.hcl"}

	path := searchFilePaths(possibleConfigPaths...)

	// envVars top all other entries so if its not empty we just insert it over the current path
	// regardless of if we found one.
	envPath := os.Getenv("GOFER_CONFIG_PATH")
	if envPath != "" {
		path = envPath
	}

	if path != "" {
		err := config.FromFile(path)
		if err != nil {
			return nil, err
		}
	}

	if processEnvVars {
		err := config.FromEnv()
		if err != nil {
			return nil, err
		}
	}

	if devMode {
		if config.Development == nil {
			config.Development = DefaultDevelopmentConfig()
		}

		config.Development.PrettyLogging = true
		config.Development.BypassAuth = true

		if config.EncryptionKey == "" {
			config.EncryptionKey = "changemechangemechangemechangeme"
		}
	}

	err := config.validate(devMode)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *API) validate(devMode bool) error {
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("encryption_key must be a 32 character random string")
	}

	if !devMode && c.EncryptionKey == "changemechangemechangemechangeme" {
		return fmt.Errorf("encryption_key cannot be left as default; must be changed to a 32 character random string")
	}

	return nil
}

// GetAPIEnvVars returns the list of environment variables the server reads on startup.
func GetAPIEnvVars() []string {
	api := DefaultAPIConfig()
	fields := structs.Fields(api)

	vars := getEnvVarsFromStruct("GOFER_", fields)
	return append(vars, "GOFER_CONFIG_PATH")
}

func PrintAPIEnvs() error {
	for _, envvar := range GetAPIEnvVars() {
		fmt.Println(envvar)
	}

	return nil
}
