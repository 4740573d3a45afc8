package api

import (
	"testing"

	"github.com/clintjedwards/gofer/internal/models"
)

func TestLaunchRunAssignsSequentialIDs(t *testing.T) {
	apictx, _ := newTestAPIContext(t)
	seedActivePipeline(t, apictx, "sequential_pipeline", 0)

	first, err := apictx.launchRun(namespaceDefaultID, "sequential_pipeline", 0, testInitiator(), nil)
	if err != nil {
		t.Fatalf("could not launch first run: %v", err)
	}
	if first.ID != 1 {
		t.Errorf("first run id = %d; want 1", first.ID)
	}
	waitForRunState(t, apictx, "sequential_pipeline", first.ID, models.RunStateComplete)

	second, err := apictx.launchRun(namespaceDefaultID, "sequential_pipeline", 0, testInitiator(), nil)
	if err != nil {
		t.Fatalf("could not launch second run: %v", err)
	}
	if second.ID != 2 {
		t.Errorf("second run id = %d; want 2", second.ID)
	}
	waitForRunState(t, apictx, "sequential_pipeline", second.ID, models.RunStateComplete)
}

func TestLaunchRunParallelismRejectionLeavesNoTrace(t *testing.T) {
	apictx, _ := newTestAPIContext(t)
	seedActivePipeline(t, apictx, "busy_pipeline", 1)

	// Simulate a run already in flight.
	inflight := models.NewRun(namespaceDefaultID, "busy_pipeline", 1, 1, testInitiator(), nil)
	inflight.State = models.RunStateRunning
	if err := apictx.db.InsertPipelineRun(apictx.db, inflight.ToStorage()); err != nil {
		t.Fatalf("could not insert in-flight run: %v", err)
	}

	_, err := apictx.launchRun(namespaceDefaultID, "busy_pipeline", 0, testInitiator(), nil)
	if err == nil {
		t.Fatal("expected launch to be rejected while the pipeline is at its parallelism limit")
	}

	// The rejected attempt must not have reserved an id or persisted anything.
	runsRaw, err := apictx.db.ListPipelineRuns(apictx.db, 0, 0, namespaceDefaultID, "busy_pipeline")
	if err != nil {
		t.Fatalf("could not list runs: %v", err)
	}
	if len(runsRaw) != 1 {
		t.Errorf("run count after rejected launch = %d; want 1", len(runsRaw))
	}
}

func TestCancelFinishedRunIsNoop(t *testing.T) {
	apictx, _ := newTestAPIContext(t)
	seedActivePipeline(t, apictx, "finished_pipeline", 0)

	finished := models.NewRun(namespaceDefaultID, "finished_pipeline", 1, 1, testInitiator(), nil)
	finished.State = models.RunStateComplete
	finished.Status = models.RunStatusSuccessful
	if err := apictx.db.InsertPipelineRun(apictx.db, finished.ToStorage()); err != nil {
		t.Fatalf("could not insert run: %v", err)
	}

	if err := apictx.requestRunCancellation(namespaceDefaultID, "finished_pipeline", 1, false); err != nil {
		t.Errorf("cancelling a finished run should succeed; got %v", err)
	}

	// Repeated cancellations stay a no-op.
	if err := apictx.requestRunCancellation(namespaceDefaultID, "finished_pipeline", 1, false); err != nil {
		t.Errorf("second cancellation should also succeed; got %v", err)
	}

	if err := apictx.requestRunCancellation(namespaceDefaultID, "finished_pipeline", 42, false); err == nil {
		t.Error("expected an error when cancelling a run that does not exist")
	}
}
