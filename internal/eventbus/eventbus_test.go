package eventbus

import (
	"os"
	"testing"
	"time"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/storage"
)

func tempFile() string {
	f, err := os.CreateTemp("", "gofer-test-")
	if err != nil {
		panic(err)
	}
	if err := f.Close(); err != nil {
		panic(err)
	}
	if err := os.Remove(f.Name()); err != nil {
		panic(err)
	}
	return f.Name()
}

func TestPublish(t *testing.T) {
	path := tempFile()
	db, err := storage.New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	eb, err := New(db, time.Second*5, time.Minute*5)
	if err != nil {
		t.Fatal(err)
	}

	id := eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace",
	})

	storedEvent, err := eb.Get(id)
	if err != nil {
		t.Fatal(err)
	}

	if storedEvent.ID != id {
		t.Errorf("published event id and new event id do no match; published %d; new %d",
			storedEvent.ID, id)
	}

	details, ok := storedEvent.Details.(*models.EventCreatedNamespace)
	if !ok {
		t.Fatalf("expected details type EventCreatedNamespace; found %T", storedEvent.Details)
	}

	if details.NamespaceID != "test_namespace" {
		t.Errorf("expected namespace id %q; found %q", "test_namespace", details.NamespaceID)
	}
}

func TestSubscribe(t *testing.T) {
	path := tempFile()
	db, err := storage.New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	eb, err := New(db, time.Minute*5, time.Minute*5)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := eb.Subscribe(models.EventKindCreatedNamespace)
	if err != nil {
		t.Fatal(err)
	}

	eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace_1",
	})
	eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace_2",
	})
	thirdEventID := eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace_3",
	})

	<-sub.Events
	<-sub.Events
	three := <-sub.Events
	if three.ID != thirdEventID {
		t.Errorf("published event id and new event id do no match; published %d; new %d",
			three.ID, thirdEventID)
	}
}

func TestSubscribeAny(t *testing.T) {
	path := tempFile()
	db, err := storage.New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	eb, err := New(db, time.Minute*5, time.Minute*5)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := eb.Subscribe(models.EventKindAny)
	if err != nil {
		t.Fatal(err)
	}

	eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace",
	})
	eb.Publish(models.EventCreatedPipeline{
		NamespaceID: "test_namespace",
		PipelineID:  "test_pipeline",
	})

	first := <-sub.Events
	second := <-sub.Events

	if first.Kind != models.EventKindCreatedNamespace {
		t.Errorf("expected first event kind %q; found %q", models.EventKindCreatedNamespace, first.Kind)
	}

	if second.Kind != models.EventKindCreatedPipeline {
		t.Errorf("expected second event kind %q; found %q", models.EventKindCreatedPipeline, second.Kind)
	}
}

func TestUnsubscribe(t *testing.T) {
	path := tempFile()
	db, err := storage.New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	eb, err := New(db, time.Minute*5, time.Minute*5)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := eb.Subscribe(models.EventKindCreatedNamespace)
	if err != nil {
		t.Fatal(err)
	}

	eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace_1",
	})

	eb.Unsubscribe(sub)

	if len(eb.subscribers[models.EventKindCreatedNamespace]) != 0 {
		t.Errorf("Unsubscribe not successful: %+v", eb.subscribers[models.EventKindCreatedNamespace])
	}
}

func TestLaggedSubscriberDropped(t *testing.T) {
	path := tempFile()
	db, err := storage.New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	eb, err := New(db, time.Minute*5, time.Minute*5)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := eb.Subscribe(models.EventKindCreatedNamespace)
	if err != nil {
		t.Fatal(err)
	}

	// Never read from the subscription; once the buffer fills the bus must drop the
	// subscriber and close its channel rather than block.
	for i := 0; i < subscriptionBufferSize+1; i++ {
		eb.Publish(models.EventCreatedNamespace{
			NamespaceID: "test_namespace",
		})
	}

	if len(eb.subscribers[models.EventKindCreatedNamespace]) != 0 {
		t.Errorf("expected lagged subscriber to be removed: %+v",
			eb.subscribers[models.EventKindCreatedNamespace])
	}

	received := 0
	for range sub.Events {
		received++
	}

	if received != subscriptionBufferSize {
		t.Errorf("expected %d buffered events before close; found %d", subscriptionBufferSize, received)
	}
}

func TestGetAll(t *testing.T) {
	path := tempFile()
	db, err := storage.New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	eb, err := New(db, time.Second*5, time.Minute*5)
	if err != nil {
		t.Fatal(err)
	}

	eventIDsList := []int64{}
	for i := 0; i < 20; i++ {
		id := eb.Publish(models.EventCreatedNamespace{
			NamespaceID: "test_namespace",
		})
		eventIDsList = append(eventIDsList, id)
	}

	events := eb.GetAll(false)

	count := 0
	for event := range events {
		if event.ID != eventIDsList[count] {
			t.Errorf("published event id and new event id do no match; published %d; new %d",
				event.ID, eventIDsList[count])
		}

		count++
	}

	if count != 20 {
		t.Errorf("expected 20 events; found %d", count)
	}
}

func TestGetAllReverse(t *testing.T) {
	path := tempFile()
	db, err := storage.New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	eb, err := New(db, time.Second*5, time.Minute*5)
	if err != nil {
		t.Fatal(err)
	}

	eventIDsList := []int64{}
	for i := 0; i < 20; i++ {
		id := eb.Publish(models.EventCreatedNamespace{
			NamespaceID: "test_namespace",
		})
		eventIDsList = append(eventIDsList, id)
	}

	events := eb.GetAll(true)

	count := 19
	for event := range events {
		if event.ID != eventIDsList[count] {
			t.Errorf("published event id and new event id do no match; published %d; new %d",
				event.ID, eventIDsList[count])
		}

		count--
	}
}

func TestPruneEvents(t *testing.T) {
	path := tempFile()
	db, err := storage.New(path, 200)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)

	eb, err := New(db, time.Millisecond*1, time.Minute*5)
	if err != nil {
		t.Fatal(err)
	}

	id1 := eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace_1",
	})
	eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace_2",
	})
	eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace_3",
	})

	time.Sleep(time.Millisecond * 10)

	eb.pruneEvents()

	id4 := eb.Publish(models.EventCreatedNamespace{
		NamespaceID: "test_namespace_4",
	})

	storedEvent, err := eb.Get(id4)
	if err != nil {
		t.Fatal(err)
	}

	if storedEvent.ID != id4 {
		t.Errorf("published event id and new event id do no match; published %d; new %d",
			storedEvent.ID, id4)
	}

	storedEvent, err = eb.Get(id1)
	if err != ErrEventNotFound {
		t.Errorf("first event exists, when it should have been pruned; published %d; new %d",
			storedEvent.ID, id1)
		return
	}
}
