package eventbus

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

// Duplicate events are possible

var (
	ErrEventKindNotFound = errors.New("eventbus: event kind does not exist")
	ErrEventNotFound     = errors.New("eventbus: event could not be found")
)

// Subscribers that fall this many events behind are disconnected rather than blocking the
// publisher for everyone else. Disconnection is signalled by the Events channel closing.
const subscriptionBufferSize = 100

// The prune loop never runs more often than this regardless of configuration.
const minPruneInterval = time.Minute

// Subscription is a representation of a new Subscription to a certain topic.
type Subscription struct {
	id     string
	kind   models.EventKind
	Events chan models.Event
}

func generateID(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

func newSubscriber(kind models.EventKind, channel chan models.Event) Subscription {
	return Subscription{
		id:     generateID(5),
		kind:   kind,
		Events: channel,
	}
}

// EventBus is a central handler for all things related to events within the application.
type EventBus struct {
	mu sync.Mutex // lock for concurrency safety.

	// storage layer for persistence. Events are capped at a particular age.
	storage     storage.DB
	retention   time.Duration
	subscribers map[models.EventKind][]Subscription // channel tracking per subscriber
}

// New create a new instance of the eventbus and starts the background prune loop.
func New(storage storage.DB, retention time.Duration, pruneInterval time.Duration) (*EventBus, error) {
	if pruneInterval < minPruneInterval {
		pruneInterval = minPruneInterval
	}

	eb := &EventBus{
		storage:     storage,
		retention:   retention,
		subscribers: map[models.EventKind][]Subscription{},
	}

	go func() {
		for {
			eb.pruneEvents()
			time.Sleep(pruneInterval)
		}
	}()

	for eventKind := range models.EventKindMap {
		eb.subscribers[eventKind] = []Subscription{}
	}
	eb.subscribers[models.EventKindAny] = []Subscription{}

	return eb, nil
}

// Subscribe returns a channel in which the caller can listen for all events of a particular type.
// The channel is closed if the caller falls too far behind the publisher.
func (eb *EventBus) Subscribe(kind models.EventKind) (Subscription, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	listeners, exists := eb.subscribers[kind]
	if !exists {
		return Subscription{}, fmt.Errorf("event kind %q not found: %w", kind, ErrEventKindNotFound)
	}

	newSub := newSubscriber(kind, make(chan models.Event, subscriptionBufferSize))

	listeners = append(listeners, newSub)
	eb.subscribers[kind] = listeners

	return newSub, nil
}

func (eb *EventBus) Unsubscribe(sub Subscription) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	listeners, exists := eb.subscribers[sub.kind]
	if !exists {
		return
	}

	for index, listener := range listeners {
		if listener.id != sub.id {
			continue
		}

		listeners[index] = listeners[len(listeners)-1]
		listeners = listeners[:len(listeners)-1]
		break
	}

	eb.subscribers[sub.kind] = listeners
}

// Publish allows caller to emit a new event to the eventbus. The event is durably stored before
// any subscriber sees it. Returns the new event's id.
func (eb *EventBus) Publish(details models.EventKindDetails) int64 {
	event := models.NewEvent(details)

	id, err := eb.storage.InsertEvent(eb.storage, event.ToStorage())
	if err != nil {
		log.Error().Err(err).Msg("could not add event to storage")
	}

	event.ID = id

	eb.mu.Lock()
	defer eb.mu.Unlock()

	listeners, exists := eb.subscribers[details.Kind()]
	if !exists {
		log.Error().Err(ErrEventKindNotFound).Msgf("event kind %q not found; This usually means that an event is missing from the EventKindMap object.", details.Kind())
		return 0
	}

	anyListeners := eb.subscribers[models.EventKindAny]

	// Delivery must stay in publish order so we fan out inline rather than per-listener
	// goroutines. Listeners that cannot keep up get dropped instead of blocking everyone.
	eb.subscribers[models.EventKindAny] = eb.send(anyListeners, event)
	eb.subscribers[details.Kind()] = eb.send(listeners, event)

	log.Debug().Interface("event", event).Msg("new event published")

	return id
}

// send delivers the event to each listener, removing and closing any listener whose buffer
// is already full. Returns the surviving listener set.
func (eb *EventBus) send(listeners []Subscription, event *models.Event) []Subscription {
	surviving := listeners[:0]

	for _, listener := range listeners {
		select {
		case listener.Events <- *event:
			surviving = append(surviving, listener)
		default:
			log.Warn().Str("subscription_id", listener.id).Str("kind", string(listener.kind)).
				Msg("subscriber fell too far behind; dropping subscription")
			close(listener.Events)
		}
	}

	return surviving
}

// GetAll returns all events. Returns events from oldest to newest unless reverse parameter is set.
func (eb *EventBus) GetAll(reverse bool) <-chan models.Event {
	events := make(chan models.Event, 10)

	go func() {
		offset := 0

		for {
			eventList, err := eb.storage.ListEvents(eb.storage, offset, 10, reverse)
			if err != nil {
				log.Error().Err(err).Msg("could not get events")
				close(events)
				return
			}

			if len(eventList) == 0 {
				close(events)
				return
			}

			for _, storageEvent := range eventList {
				var event models.Event
				if err := event.FromStorage(&storageEvent); err != nil {
					log.Error().Err(err).Int64("event_id", storageEvent.ID).Msg("could not parse event from storage")
					continue
				}
				events <- event
			}

			offset += 10
		}
	}()

	return events
}

// Get returns a single event by id. Returns a eventbus.ErrEventNotFound if the event could not be located.
func (eb *EventBus) Get(id int64) (models.Event, error) {
	storageEvent, err := eb.storage.GetEvent(eb.storage, id)
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, err
	}

	var event models.Event
	if err := event.FromStorage(&storageEvent); err != nil {
		return models.Event{}, err
	}

	return event, nil
}

func (eb *EventBus) pruneEvents() {
	offset := 0

	totalPruned := 0

	for {
		events, err := eb.storage.ListEvents(eb.storage, offset, 50, false)
		if err != nil {
			log.Error().Err(err).Msg("could not get events from storage")
			return
		}

		for _, event := range events {
			if isPastCutDate(event, eb.retention) {
				log.Debug().Int64("event_id", event.ID).Dur("retention", eb.retention).
					Str("emitted", event.Emitted).
					Int64("current_time", time.Now().UnixMilli()).Msg("removed event past retention")
				totalPruned++
				err := eb.storage.DeleteEvent(eb.storage, event.ID)
				if err != nil {
					log.Error().Err(err).Msg("could not delete event")
					return
				}
				continue
			}
		}

		if len(events) != 50 {
			if totalPruned > 0 {
				log.Info().Dur("retention", eb.retention).Int("total", totalPruned).Msg("pruned old events")
			}
			return
		}

		offset += len(events)
	}
}

func isPastCutDate(event storage.Event, limit time.Duration) bool {
	emitted, err := strconv.ParseInt(event.Emitted, 10, 64)
	if err != nil {
		return false
	}

	cut := time.Now().Add(-limit) // Even though this function says add, we're actually subtracting time.

	return emitted < cut.UnixMilli()
}
