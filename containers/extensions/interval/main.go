// Extension interval starts a run for each subscribed pipeline on a fixed cadence.
//
// It is deliberately small and heavily structured so it can double as a template for writing
// other extensions: implement sdk.ExtensionServiceInterface, keep per subscription state in a
// map, and let the SDK harness handle everything transport related.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdk "github.com/clintjedwards/gofer/sdk/go/extensions"
	"github.com/rs/zerolog/log"
)

// Pipelines pass settings when they subscribe; this extension has a single one.
const (
	// "every" is the time between runs. Supports Go duration strings: "1m", "60s", "3h30m".
	SettingEvery = "every"
)

// Operators pass config when they install; again a single one.
const (
	// The smallest interval pipelines are allowed to request. Guards the server against
	// pipelines that would effectively run in a hot loop.
	ConfigMinInterval = "min_interval"
)

type subscriptionID struct {
	namespace string
	pipeline  string
	label     string
}

type subscription struct {
	id   subscriptionID
	quit context.CancelFunc
}

type extension struct {
	minInterval time.Duration

	client *sdk.Client

	// Common parent for all ticker goroutines so shutdown can stop them in one motion.
	parentContext context.Context
	quitAll       context.CancelFunc

	mu            sync.Mutex
	subscriptions map[subscriptionID]*subscription
}

func newExtension() (*extension, error) {
	minInterval := time.Minute
	if raw := sdk.GetConfig(ConfigMinInterval); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("could not parse %s config %q: %w", ConfigMinInterval, raw, err)
		}
		minInterval = parsed
	}

	client, err := sdk.NewClient()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &extension{
		minInterval:   minInterval,
		client:        client,
		parentContext: ctx,
		quitAll:       cancel,
		subscriptions: map[subscriptionID]*subscription{},
	}, nil
}

// tick waits out the interval and starts a run, forever, until the subscription is cancelled.
func (e *extension) tick(ctx context.Context, id subscriptionID, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			err := e.client.StartRun(ctx, id.namespace, id.pipeline, nil,
				fmt.Sprintf("Triggered by the passage of time; interval %s", interval))
			if err != nil {
				log.Error().Err(err).Str("namespace", id.namespace).Str("pipeline", id.pipeline).
					Str("label", id.label).Msg("could not start run")
				continue
			}

			log.Debug().Str("namespace", id.namespace).Str("pipeline", id.pipeline).
				Str("label", id.label).Msg("interval elapsed; started run")
		}
	}
}

func (e *extension) Info(_ context.Context) (*sdk.InfoResponse, error) {
	return &sdk.InfoResponse{
		Documentation: "The interval extension starts a run for subscribed pipelines on a fixed cadence. " +
			"Set the cadence with the \"every\" setting, which accepts Go duration strings (\"5m\", \"1h30m\").",
	}, nil
}

func (e *extension) Subscribe(_ context.Context, request sdk.SubscriptionRequest) error {
	raw, exists := request.Settings[SettingEvery]
	if !exists {
		return fmt.Errorf("missing required setting %q", SettingEvery)
	}

	interval, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("could not parse setting %q value %q: %w", SettingEvery, raw, err)
	}

	if interval < e.minInterval {
		return fmt.Errorf("interval %s is less than the minimum of %s", interval, e.minInterval)
	}

	id := subscriptionID{request.NamespaceID, request.PipelineID, request.Label}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Gofer replays subscriptions on every server start; an already known subscription is not
	// an error.
	if _, exists := e.subscriptions[id]; exists {
		log.Debug().Str("namespace", id.namespace).Str("pipeline", id.pipeline).
			Str("label", id.label).Msg("pipeline already subscribed; ignoring request")
		return nil
	}

	subctx, quit := context.WithCancel(e.parentContext)
	e.subscriptions[id] = &subscription{id: id, quit: quit}

	go e.tick(subctx, id, interval)

	log.Debug().Str("namespace", id.namespace).Str("pipeline", id.pipeline).
		Str("label", id.label).Str("interval", interval.String()).Msg("subscribed pipeline")
	return nil
}

func (e *extension) Unsubscribe(_ context.Context, request sdk.SubscriptionRequest) error {
	id := subscriptionID{request.NamespaceID, request.PipelineID, request.Label}

	e.mu.Lock()
	defer e.mu.Unlock()

	sub, exists := e.subscriptions[id]
	if !exists {
		log.Debug().Str("namespace", id.namespace).Str("pipeline", id.pipeline).
			Str("label", id.label).Msg("no subscription found for pipeline")
		return nil
	}

	sub.quit()
	delete(e.subscriptions, id)
	return nil
}

func (e *extension) ExternalEvent(_ context.Context, _ []byte) error {
	// Time is the only event source this extension cares about.
	return nil
}

func (e *extension) Shutdown(_ context.Context) {
	e.quitAll()
}

func main() {
	extension, err := newExtension()
	if err != nil {
		panic(err)
	}

	sdk.NewExtension(extension)
}
