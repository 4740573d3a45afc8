package api

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clintjedwards/gofer/internal/config"
	"github.com/clintjedwards/gofer/internal/eventbus"
	"github.com/clintjedwards/gofer/internal/models"
	"github.com/clintjedwards/gofer/internal/objectStore"
	"github.com/clintjedwards/gofer/internal/scheduler"
	"github.com/clintjedwards/gofer/internal/secretStore"
	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/clintjedwards/gofer/internal/syncmap"
)

// fakeScheduler stands in for a real container scheduler. Container states can be primed ahead of
// time with setState; containers started without a primed state finish successfully right away.
type fakeScheduler struct {
	mu      sync.Mutex
	started []string
	states  map[string]scheduler.ContainerState
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{states: map[string]scheduler.ContainerState{}}
}

func (f *fakeScheduler) setState(id string, state scheduler.ContainerState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[id] = state
}

func (f *fakeScheduler) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func (f *fakeScheduler) StartContainer(request scheduler.StartContainerRequest) (
	scheduler.StartContainerResponse, error,
) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.started = append(f.started, request.ID)
	if _, exists := f.states[request.ID]; !exists {
		f.states[request.ID] = scheduler.ContainerStateSuccess
	}

	return scheduler.StartContainerResponse{}, nil
}

func (f *fakeScheduler) StopContainer(request scheduler.StopContainerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.states[request.ID]; !exists {
		return scheduler.ErrNoSuchContainer
	}

	f.states[request.ID] = scheduler.ContainerStateCancelled
	return nil
}

func (f *fakeScheduler) GetState(request scheduler.GetStateRequest) (scheduler.GetStateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, exists := f.states[request.ID]
	if !exists {
		return scheduler.GetStateResponse{}, scheduler.ErrNoSuchContainer
	}

	return scheduler.GetStateResponse{ExitCode: 0, State: state}, nil
}

func (f *fakeScheduler) GetLogs(request scheduler.GetLogsRequest) (io.Reader, error) {
	return strings.NewReader(""), nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeObjectStore) GetObject(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	object, exists := f.objects[key]
	if !exists {
		return nil, objectStore.ErrEntityNotFound
	}
	return object, nil
}

func (f *fakeObjectStore) PutObject(key string, content []byte, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.objects[key]; exists && !force {
		return objectStore.ErrEntityExists
	}
	f.objects[key] = content
	return nil
}

func (f *fakeObjectStore) ListObjectKeys(prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := []string{}
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeObjectStore) DeleteObject(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, key)
	return nil
}

type fakeSecretStore struct {
	mu      sync.Mutex
	secrets map[string]string
}

func (f *fakeSecretStore) GetSecret(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	secret, exists := f.secrets[key]
	if !exists {
		return "", secretStore.ErrEntityNotFound
	}
	return secret, nil
}

func (f *fakeSecretStore) PutSecret(key, content string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.secrets[key]; exists && !force {
		return secretStore.ErrEntityExists
	}
	f.secrets[key] = content
	return nil
}

func (f *fakeSecretStore) ListSecretKeys(prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := []string{}
	for key := range f.secrets {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeSecretStore) DeleteSecret(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.secrets, key)
	return nil
}

// newTestAPIContext builds an api context backed by a throwaway sqlite database and fake engines.
// It skips the startup work NewAPIContext does (extensions, orphan repair) since tests exercise
// the run machinery directly.
func newTestAPIContext(t *testing.T) (*APIContext, *fakeScheduler) {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "gofer.db"), 200)
	if err != nil {
		t.Fatalf("could not create test storage: %v", err)
	}

	events, err := eventbus.New(db, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("could not create test event bus: %v", err)
	}

	conf := config.DefaultAPIConfig()
	conf.TaskExecutionLogsDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sched := newFakeScheduler()

	var ignorePipelineRunEvents atomic.Bool

	apictx := &APIContext{
		context:                 &CancelContext{ctx: ctx, cancel: cancel},
		config:                  conf,
		db:                      db,
		events:                  events,
		scheduler:               sched,
		objectStore:             &fakeObjectStore{objects: map[string][]byte{}},
		secretStore:             &fakeSecretStore{secrets: map[string]string{}},
		extensions:              syncmap.New[string, *models.Extension](),
		runMachines:             syncmap.New[string, *RunStateMachine](),
		ignorePipelineRunEvents: &ignorePipelineRunEvents,
	}

	if err := apictx.createDefaultNamespace(); err != nil {
		t.Fatalf("could not create default namespace: %v", err)
	}

	return apictx, sched
}

// seedActivePipeline registers an active pipeline with a single task and one live config version
// in the default namespace.
func seedActivePipeline(t *testing.T, apictx *APIContext, pipeline string, parallelism int64) models.PipelineConfig {
	t.Helper()

	metadata := models.NewPipelineMetadata(namespaceDefaultID, pipeline)
	if err := apictx.db.InsertPipelineMetadata(apictx.db, metadata.ToStorage()); err != nil {
		t.Fatalf("could not insert pipeline metadata: %v", err)
	}

	pipelineConfig := models.PipelineConfig{
		Namespace:   namespaceDefaultID,
		Pipeline:    pipeline,
		Version:     1,
		Parallelism: parallelism,
		Name:        "Test Pipeline",
		Tasks: map[string]models.Task{
			"task_one": {ID: "task_one", Image: "ubuntu:latest"},
		},
		State:      models.PipelineConfigStateLive,
		Registered: uint64(time.Now().UnixMilli()),
	}

	configRaw, tasksRaw := pipelineConfig.ToStorage()
	if err := apictx.db.InsertPipelineConfig(apictx.db, configRaw); err != nil {
		t.Fatalf("could not insert pipeline config: %v", err)
	}
	for _, taskRaw := range tasksRaw {
		if err := apictx.db.InsertPipelineTask(apictx.db, taskRaw); err != nil {
			t.Fatalf("could not insert pipeline task: %v", err)
		}
	}

	return pipelineConfig
}

func testInitiator() models.Initiator {
	return models.Initiator{
		Type:   models.InitiatorTypeHuman,
		Name:   "tester",
		Reason: "testing",
	}
}

// waitForRunState polls storage until the run reaches the wanted state or the deadline passes.
func waitForRunState(t *testing.T, apictx *APIContext, pipeline string, runID int64, state models.RunState) models.Run {
	t.Helper()

	deadline := time.Now().Add(time.Second * 10)
	for time.Now().Before(deadline) {
		storedRun, err := apictx.db.GetPipelineRun(apictx.db, namespaceDefaultID, pipeline, runID)
		if err == nil && storedRun.State == string(state) {
			var run models.Run
			run.FromStorage(&storedRun)
			return run
		}

		time.Sleep(time.Millisecond * 50)
	}

	t.Fatalf("run %d never reached state %s", runID, state)
	return models.Run{}
}
