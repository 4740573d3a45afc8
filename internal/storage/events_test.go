package storage

import (
	"errors"
	"os"
	"testing"
)

func TestCRUDEvents(t *testing.T) {
	path := tempFile()
	db, err := New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	event := Event{
		Kind:    "STARTED_RUN",
		Details: `{"namespace_id":"default","pipeline_id":"test","run_id":1}`,
		Emitted: "0",
	}

	id, err := db.InsertEvent(db, &event)
	if err != nil {
		t.Fatal(err)
	}

	if id != 1 {
		t.Errorf("expected first event id 1; found %d", id)
	}

	fetchedEvent, err := db.GetEvent(db, id)
	if err != nil {
		t.Fatal(err)
	}

	if fetchedEvent.Kind != event.Kind || fetchedEvent.Details != event.Details {
		t.Errorf("fetched event did not match inserted event: %+v", fetchedEvent)
	}

	events, err := db.ListEvents(db, 0, 0, false)
	if err != nil {
		t.Fatal(err)
	}

	if len(events) != 1 {
		t.Errorf("expected 1 element in list found %d", len(events))
	}

	err = db.DeleteEvent(db, id)
	if err != nil {
		t.Fatal(err)
	}

	_, err = db.GetEvent(db, id)
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatal("expected error Not Found; found alternate error")
	}
}

func TestListEventsOrdering(t *testing.T) {
	path := tempFile()
	db, err := New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	for i := 0; i < 3; i++ {
		_, err := db.InsertEvent(db, &Event{Kind: "ANY", Details: "{}", Emitted: "0"})
		if err != nil {
			t.Fatal(err)
		}
	}

	events, err := db.ListEvents(db, 0, 0, false)
	if err != nil {
		t.Fatal(err)
	}

	if len(events) != 3 || events[0].ID != 1 || events[2].ID != 3 {
		t.Errorf("expected events 1..3 in ascending order; found %+v", events)
	}

	events, err = db.ListEvents(db, 0, 0, true)
	if err != nil {
		t.Fatal(err)
	}

	if len(events) != 3 || events[0].ID != 3 || events[2].ID != 1 {
		t.Errorf("expected events 3..1 in descending order; found %+v", events)
	}
}
