package config

import (
	"testing"

	"github.com/fatih/structs"
)

// Simply test for panics, the reflect code here will panic if the API struct has any
// pointers with zero values.
func TestGetEnvvarsFromStruct(t *testing.T) {
	api := API{
		Development:       &Development{},
		ExternalEventsAPI: &ExternalEventsAPI{},
		ObjectStore: &ObjectStore{
			Sqlite: &Sqlite{},
		},
		SecretStore: &SecretStore{
			Sqlite: &SqliteSecret{},
		},
		Scheduler: &Scheduler{
			Docker: &Docker{},
		},
		Server:     &Server{},
		Extensions: &Extensions{},
	}
	fields := structs.Fields(api)
	getEnvVarsFromStruct("GOFER_", fields)
}

func TestCamelToUpperSnake(t *testing.T) {
	cases := map[string]string{
		"LogLevel":                "LOG_LEVEL",
		"APIHost":                 "API_HOST",
		"StoragePath":             "STORAGE_PATH",
		"IgnorePipelineRunEvents": "IGNORE_PIPELINE_RUN_EVENTS",
		"TLSCertPath":             "TLS_CERT_PATH",
	}

	for input, expected := range cases {
		result := camelToUpperSnake(input)
		if result != expected {
			t.Errorf("camelToUpperSnake(%q) = %q; expected %q", input, result, expected)
		}
	}
}
