package storage

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seedRun(t *testing.T, db DB, namespace, pipeline string, run int64) {
	t.Helper()

	seedPipeline(t, db, namespace, pipeline)

	err := db.InsertPipelineRun(db, &PipelineRun{
		Namespace: namespace, Pipeline: pipeline, PipelineConfigVersion: 1, ID: run,
		Started: "0", Ended: "0", State: "PENDING", Status: "UNKNOWN",
		StatusReason: "{}", Initiator: "{}", Variables: "[]",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCRUDPipelineTaskExecutions(t *testing.T) {
	path := tempFile()
	db, err := New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	seedRun(t, db, "test_namespace", "test_pipeline", 1)

	taskExecution := PipelineTaskExecution{
		Namespace:    "test_namespace",
		Pipeline:     "test_pipeline",
		Run:          1,
		ID:           "test_task",
		Task:         "{}",
		Created:      "0",
		Started:      "0",
		Ended:        "0",
		ExitCode:     999,
		LogsExpired:  false,
		LogsRemoved:  false,
		State:        "PROCESSING",
		Status:       "UNKNOWN",
		StatusReason: "{}",
		Variables:    "[]",
	}

	err = db.InsertPipelineTaskExecution(db, &taskExecution)
	if err != nil {
		t.Fatal(err)
	}

	taskExecutions, err := db.ListPipelineTaskExecutions(db, 0, 0, "test_namespace", "test_pipeline", 1)
	if err != nil {
		t.Fatal(err)
	}

	if len(taskExecutions) != 1 {
		t.Errorf("expected 1 element in list found %d", len(taskExecutions))
	}

	if diff := cmp.Diff(taskExecution, taskExecutions[0]); diff != "" {
		t.Errorf("unexpected map values (-want +got):\n%s", diff)
	}

	var exitCode int64
	taskExecution.Started = "1"
	taskExecution.Ended = "2"
	taskExecution.ExitCode = 0
	taskExecution.State = "COMPLETE"
	taskExecution.Status = "SUCCESSFUL"

	err = db.UpdatePipelineTaskExecution(db, "test_namespace", "test_pipeline", 1, "test_task",
		UpdatablePipelineTaskExecutionFields{
			Started:  &taskExecution.Started,
			Ended:    &taskExecution.Ended,
			ExitCode: &exitCode,
			State:    &taskExecution.State,
			Status:   &taskExecution.Status,
		})
	if err != nil {
		t.Fatal(err)
	}

	fetchedExecution, err := db.GetPipelineTaskExecution(db, "test_namespace", "test_pipeline", 1, "test_task")
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(taskExecution, fetchedExecution); diff != "" {
		t.Errorf("unexpected map values (-want +got):\n%s", diff)
	}

	err = db.DeletePipelineTaskExecution(db, "test_namespace", "test_pipeline", 1, "test_task")
	if err != nil {
		t.Fatal(err)
	}

	_, err = db.GetPipelineTaskExecution(db, "test_namespace", "test_pipeline", 1, "test_task")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatal("expected error Not Found; found alternate error")
	}
}
