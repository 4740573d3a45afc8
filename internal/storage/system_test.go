package storage

import (
	"os"
	"testing"
)

func TestSystemParameters(t *testing.T) {
	path := tempFile()
	db, err := New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	params, err := db.GetSystemParameters(db)
	if err != nil {
		t.Fatal(err)
	}

	if params.BootstrapTokenCreated || params.IgnorePipelineRunEvents {
		t.Errorf("expected fresh system parameters to be false; found %+v", params)
	}

	toggled := true
	err = db.UpdateSystemParameters(db, UpdatableSystemParameters{
		IgnorePipelineRunEvents: &toggled,
	})
	if err != nil {
		t.Fatal(err)
	}

	params, err = db.GetSystemParameters(db)
	if err != nil {
		t.Fatal(err)
	}

	if !params.IgnorePipelineRunEvents {
		t.Error("expected ignore_pipeline_run_events to be true after update")
	}

	if params.BootstrapTokenCreated {
		t.Error("expected bootstrap_token_created to remain false")
	}
}
