package storage

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCRUDPipelineRuns(t *testing.T) {
	path := tempFile()
	db, err := New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	seedPipeline(t, db, "test_namespace", "test_pipeline")

	run := PipelineRun{
		Namespace:             "test_namespace",
		Pipeline:              "test_pipeline",
		PipelineConfigVersion: 1,
		ID:                    1,
		Started:               "0",
		Ended:                 "0",
		State:                 "PENDING",
		Status:                "UNKNOWN",
		StatusReason:          "{}",
		Initiator:             "{}",
		Variables:             "[]",
		StoreObjectsExpired:   false,
	}

	err = db.InsertPipelineRun(db, &run)
	if err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListPipelineRuns(db, 0, 0, "test_namespace", "test_pipeline")
	if err != nil {
		t.Fatal(err)
	}

	if len(runs) != 1 {
		t.Errorf("expected 1 element in list found %d", len(runs))
	}

	if diff := cmp.Diff(run, runs[0]); diff != "" {
		t.Errorf("unexpected map values (-want +got):\n%s", diff)
	}

	run.Ended = "1"
	run.State = "COMPLETE"
	run.Status = "SUCCESSFUL"

	err = db.UpdatePipelineRun(db, "test_namespace", "test_pipeline", 1, UpdatablePipelineRunFields{
		Ended:  &run.Ended,
		State:  &run.State,
		Status: &run.Status,
	})
	if err != nil {
		t.Fatal(err)
	}

	fetchedRun, err := db.GetPipelineRun(db, "test_namespace", "test_pipeline", 1)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(run, fetchedRun); diff != "" {
		t.Errorf("unexpected map values (-want +got):\n%s", diff)
	}

	err = db.DeletePipelineRun(db, "test_namespace", "test_pipeline", 1)
	if err != nil {
		t.Fatal(err)
	}

	_, err = db.GetPipelineRun(db, "test_namespace", "test_pipeline", 1)
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatal("expected error Not Found; found alternate error")
	}
}

func TestGetLatestPipelineRun(t *testing.T) {
	path := tempFile()
	db, err := New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	seedPipeline(t, db, "test_namespace", "test_pipeline")

	for id := int64(1); id <= 3; id++ {
		err = db.InsertPipelineRun(db, &PipelineRun{
			Namespace: "test_namespace", Pipeline: "test_pipeline", PipelineConfigVersion: 1, ID: id,
			Started: "0", Ended: "0", State: "PENDING", Status: "UNKNOWN",
			StatusReason: "{}", Initiator: "{}", Variables: "[]",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	latest, err := db.GetLatestPipelineRun(db, "test_namespace", "test_pipeline")
	if err != nil {
		t.Fatal(err)
	}

	if latest.ID != 3 {
		t.Errorf("expected latest run 3; found %d", latest.ID)
	}

	running, err := db.ListRunningPipelineRuns(db, 0, 0, "test_namespace", "test_pipeline")
	if err != nil {
		t.Fatal(err)
	}

	if len(running) != 3 {
		t.Errorf("expected 3 unfinished runs; found %d", len(running))
	}
}
