package config

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Tests that our sample server config is still valid. This test catches any extraneous parameters
// due to how the HCL parsing works and should also catch any errant types.
func TestAPISampleFromFile(t *testing.T) {
	hclconf := API{}
	err := hclconf.FromFile("../cli/service/sampleConfig.hcl")
	if err != nil {
		t.Fatal(err)
	}

	expected := API{
		IgnorePipelineRunEvents:         false,
		PipelineVersionLimit:            5,
		EventRetentionSeconds:           15768000,
		EventPruneIntervalSeconds:       10800,
		LogLevel:                        "info",
		APIHost:                         "localhost:8080",
		StoragePath:                     "/tmp/gofer.db",
		StorageResultsLimit:             200,
		EncryptionKey:                   "changemechangemechangemechangeme",
		TaskDefaultTimeoutSeconds:       0,
		ShutdownGraceSeconds:            15,
		TaskExecutionLogExpiry:          50,
		TaskExecutionLogsDir:            "/tmp",
		TaskExecutionStopTimeoutSeconds: 300,

		ExternalEventsAPI: &ExternalEventsAPI{
			Enable: true,
			Host:   "localhost:8081",
		},

		ObjectStore: &ObjectStore{
			Engine: "sqlite",
			Sqlite: &Sqlite{
				Path: "/tmp/gofer-object.db",
			},
			PipelineObjectLimit: 50,
			RunObjectExpiry:     50,
		},

		SecretStore: &SecretStore{
			Engine: "sqlite",
			Sqlite: &SqliteSecret{
				Path: "/tmp/gofer-secret.db",
			},
		},

		Scheduler: &Scheduler{
			Engine: "docker",
			Docker: &Docker{
				Prune:                true,
				PruneIntervalSeconds: 86400,
			},
		},

		Server: &Server{
			TLSCertPath: "./localhost.crt",
			TLSKeyPath:  "./localhost.key",
		},

		Extensions: &Extensions{
			StopTimeoutSeconds:         300,
			HealthcheckIntervalSeconds: 30,
		},
	}

	diff := cmp.Diff(expected, hclconf)
	if diff != "" {
		t.Errorf("result is different than expected(-want +got):\n%s", diff)
	}
}

func TestAPISampleOverwriteWithEnvs(t *testing.T) {
	_ = os.Setenv("GOFER_LOG_LEVEL", "error")
	_ = os.Setenv("GOFER_API_HOST", "localhost:9090")
	_ = os.Setenv("GOFER_STORAGE_RESULTS_LIMIT", "1000")
	_ = os.Setenv("GOFER_SCHEDULER_DOCKER_PRUNE", "false")
	_ = os.Setenv("GOFER_SERVER_TLS_CERT_PATH", "./test")
	defer os.Unsetenv("GOFER_LOG_LEVEL")
	defer os.Unsetenv("GOFER_API_HOST")
	defer os.Unsetenv("GOFER_STORAGE_RESULTS_LIMIT")
	defer os.Unsetenv("GOFER_SCHEDULER_DOCKER_PRUNE")
	defer os.Unsetenv("GOFER_SERVER_TLS_CERT_PATH")

	hclconf := API{}
	err := hclconf.FromFile("../cli/service/sampleConfig.hcl")
	if err != nil {
		t.Fatal(err)
	}

	err = hclconf.FromEnv()
	if err != nil {
		t.Fatal(err)
	}

	if hclconf.LogLevel != "error" {
		t.Errorf("expected log level %q; found %q", "error", hclconf.LogLevel)
	}

	if hclconf.APIHost != "localhost:9090" {
		t.Errorf("expected api host %q; found %q", "localhost:9090", hclconf.APIHost)
	}

	if hclconf.StorageResultsLimit != 1000 {
		t.Errorf("expected storage results limit %d; found %d", 1000, hclconf.StorageResultsLimit)
	}

	if hclconf.Scheduler.Docker.Prune {
		t.Error("expected docker prune to be overwritten to false")
	}

	if hclconf.Server.TLSCertPath != "./test" {
		t.Errorf("expected tls cert path %q; found %q", "./test", hclconf.Server.TLSCertPath)
	}
}
