// Extension cron starts runs for subscribed pipelines on a cron-like schedule.
//
// The schedule format comes from the avail library and reads, in order:
// minute, hour, day of month, month, day of week, year. Fields accept exact values, comma
// separated lists, and the "*" wildcard. For example "0 */6 * * * *" fires at the top of every
// sixth hour.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	avail "github.com/clintjedwards/avail/v2"
	sdk "github.com/clintjedwards/gofer/sdk/go/extensions"
	"github.com/rs/zerolog/log"
)

const (
	// "expression" is the schedule in avail's six field cron format.
	SettingExpression = "expression"
)

// How often subscriptions are checked against the clock. Avail expressions have minute
// granularity so checking more often would only burn cycles.
var checkInterval = time.Minute

type subscriptionID struct {
	namespace string
	pipeline  string
	label     string
}

type subscription struct {
	id        subscriptionID
	timeframe avail.Timeframe
}

type extension struct {
	client *sdk.Client

	quit context.CancelFunc

	mu            sync.Mutex
	subscriptions map[subscriptionID]*subscription
}

func newExtension() (*extension, error) {
	client, err := sdk.NewClient()
	if err != nil {
		return nil, err
	}

	return &extension{
		client:        client,
		subscriptions: map[subscriptionID]*subscription{},
	}, nil
}

// checkSchedules fires a run for every subscription whose timeframe covers the current minute.
func (e *extension) checkSchedules(ctx context.Context) {
	e.mu.Lock()
	due := []*subscription{}
	now := time.Now()
	for _, sub := range e.subscriptions {
		if sub.timeframe.Able(now) {
			due = append(due, sub)
		}
	}
	e.mu.Unlock()

	for _, sub := range due {
		err := e.client.StartRun(ctx, sub.id.namespace, sub.id.pipeline, nil,
			fmt.Sprintf("Triggered by cron schedule %q", sub.timeframe.Expression))
		if err != nil {
			log.Error().Err(err).Str("namespace", sub.id.namespace).Str("pipeline", sub.id.pipeline).
				Str("label", sub.id.label).Msg("could not start run")
			continue
		}

		log.Debug().Str("namespace", sub.id.namespace).Str("pipeline", sub.id.pipeline).
			Str("label", sub.id.label).Msg("schedule fired; started run")
	}
}

func (e *extension) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(checkInterval):
			e.checkSchedules(ctx)
		}
	}
}

func (e *extension) Info(_ context.Context) (*sdk.InfoResponse, error) {
	return &sdk.InfoResponse{
		Documentation: "The cron extension starts runs for subscribed pipelines on a schedule. " +
			"Set the schedule with the \"expression\" setting using the six field format: " +
			"minute, hour, day of month, month, day of week, year. Example: \"0 */6 * * * *\" " +
			"runs at the top of every sixth hour. Scheduling granularity is one minute and missed " +
			"windows are skipped, not replayed.",
	}, nil
}

func (e *extension) Subscribe(_ context.Context, request sdk.SubscriptionRequest) error {
	expression, exists := request.Settings[SettingExpression]
	if !exists {
		return fmt.Errorf("missing required setting %q", SettingExpression)
	}

	timeframe, err := avail.New(expression)
	if err != nil {
		return fmt.Errorf("could not parse cron expression %q: %w", expression, err)
	}

	id := subscriptionID{request.NamespaceID, request.PipelineID, request.Label}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.subscriptions[id]; exists {
		log.Debug().Str("namespace", id.namespace).Str("pipeline", id.pipeline).
			Str("label", id.label).Msg("pipeline already subscribed; ignoring request")
		return nil
	}

	e.subscriptions[id] = &subscription{id: id, timeframe: timeframe}

	log.Debug().Str("namespace", id.namespace).Str("pipeline", id.pipeline).
		Str("label", id.label).Str("expression", expression).Msg("subscribed pipeline")
	return nil
}

func (e *extension) Unsubscribe(_ context.Context, request sdk.SubscriptionRequest) error {
	id := subscriptionID{request.NamespaceID, request.PipelineID, request.Label}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.subscriptions[id]; !exists {
		log.Debug().Str("namespace", id.namespace).Str("pipeline", id.pipeline).
			Str("label", id.label).Msg("no subscription found for pipeline")
		return nil
	}

	delete(e.subscriptions, id)
	return nil
}

func (e *extension) ExternalEvent(_ context.Context, _ []byte) error {
	return nil
}

func (e *extension) Shutdown(_ context.Context) {
	if e.quit != nil {
		e.quit()
	}
}

func main() {
	extension, err := newExtension()
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	extension.quit = cancel
	go extension.run(ctx)

	sdk.NewExtension(extension)
}
