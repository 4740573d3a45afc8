package storage

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seedPipeline(t *testing.T, db DB, namespace, pipeline string) {
	t.Helper()

	err := db.InsertNamespace(db, &Namespace{
		ID: namespace, Created: "0", Modified: "0",
	})
	if err != nil {
		t.Fatal(err)
	}

	err = db.InsertPipelineMetadata(db, &PipelineMetadata{
		Namespace: namespace, ID: pipeline, Created: "0", Modified: "0", State: "ACTIVE",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCRUDPipelineConfigs(t *testing.T) {
	path := tempFile()
	db, err := New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	seedPipeline(t, db, "test_namespace", "test_pipeline")

	config := PipelineConfig{
		Namespace:   "test_namespace",
		Pipeline:    "test_pipeline",
		Version:     1,
		Parallelism: 0,
		Name:        "Test Pipeline",
		Description: "a pipeline for testing",
		Registered:  "0",
		Deprecated:  "0",
		State:       "UNRELEASED",
	}

	err = db.InsertPipelineConfig(db, &config)
	if err != nil {
		t.Fatal(err)
	}

	configs, err := db.ListPipelineConfigs(db, 0, 0, "test_namespace", "test_pipeline")
	if err != nil {
		t.Fatal(err)
	}

	if len(configs) != 1 {
		t.Errorf("expected 1 element in list found %d", len(configs))
	}

	if diff := cmp.Diff(config, configs[0]); diff != "" {
		t.Errorf("unexpected map values (-want +got):\n%s", diff)
	}

	fetchedConfig, err := db.GetPipelineConfig(db, "test_namespace", "test_pipeline", 1)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(config, fetchedConfig); diff != "" {
		t.Errorf("unexpected map values (-want +got):\n%s", diff)
	}

	state := "LIVE"
	err = db.UpdatePipelineConfig(db, "test_namespace", "test_pipeline", 1, UpdatablePipelineConfigFields{
		State: &state,
	})
	if err != nil {
		t.Fatal(err)
	}

	liveConfig, err := db.GetLatestLivePipelineConfig(db, "test_namespace", "test_pipeline")
	if err != nil {
		t.Fatal(err)
	}

	if liveConfig.State != "LIVE" {
		t.Errorf("expected state LIVE; found %q", liveConfig.State)
	}

	err = db.DeletePipelineConfig(db, "test_namespace", "test_pipeline", 1)
	if err != nil {
		t.Fatal(err)
	}

	_, err = db.GetPipelineConfig(db, "test_namespace", "test_pipeline", 1)
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatal("expected error Not Found; found alternate error")
	}
}

func TestLatestPipelineConfigOrdering(t *testing.T) {
	path := tempFile()
	db, err := New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	seedPipeline(t, db, "test_namespace", "test_pipeline")

	for version := int64(1); version <= 3; version++ {
		err = db.InsertPipelineConfig(db, &PipelineConfig{
			Namespace: "test_namespace", Pipeline: "test_pipeline", Version: version,
			Registered: "0", Deprecated: "0", State: "UNRELEASED",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	latest, err := db.GetLatestPipelineConfig(db, "test_namespace", "test_pipeline")
	if err != nil {
		t.Fatal(err)
	}

	if latest.Version != 3 {
		t.Errorf("expected latest version 3; found %d", latest.Version)
	}
}
