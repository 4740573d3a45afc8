package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

type PipelineState string

const (
	PipelineStateUnknown  PipelineState = "UNKNOWN"
	PipelineStateActive   PipelineState = "ACTIVE"
	PipelineStateDisabled PipelineState = "DISABLED"
)

// PipelineMetadata represents the stateful information about a pipeline that does not change
// between config versions. A pipeline is a directed acyclic graph of tasks that run together.
type PipelineMetadata struct {
	Namespace string `json:"namespace" example:"my_namespace" doc:"Unique identifier for the namespace"`
	ID        string `json:"id" example:"my_pipeline" doc:"Unique identifier for the pipeline"`
	Created   uint64 `json:"created" example:"1712433802634" doc:"Time of pipeline creation in epoch milliseconds"`
	Modified  uint64 `json:"modified" example:"1712433802634" doc:"Time of last pipeline change in epoch milliseconds"`

	// Controls whether new runs can be launched. Does not affect runs already in progress.
	State PipelineState `json:"state" example:"ACTIVE" doc:"Whether the pipeline accepts new runs"`
}

func NewPipelineMetadata(namespace, id string) *PipelineMetadata {
	return &PipelineMetadata{
		Namespace: namespace,
		ID:        id,
		Created:   uint64(time.Now().UnixMilli()),
		Modified:  uint64(time.Now().UnixMilli()),
		State:     PipelineStateActive,
	}
}

func (p *PipelineMetadata) ToStorage() *storage.PipelineMetadata {
	return &storage.PipelineMetadata{
		Namespace: p.Namespace,
		ID:        p.ID,
		Created:   fmt.Sprint(p.Created),
		Modified:  fmt.Sprint(p.Modified),
		State:     string(p.State),
	}
}

func (p *PipelineMetadata) FromStorage(sp *storage.PipelineMetadata) {
	created, err := strconv.ParseUint(sp.Created, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	modified, err := strconv.ParseUint(sp.Modified, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	p.Namespace = sp.Namespace
	p.ID = sp.ID
	p.Created = created
	p.Modified = modified
	p.State = PipelineState(sp.State)
}

type PipelineConfigState string

const (
	PipelineConfigStateUnknown PipelineConfigState = "UNKNOWN"
	// Has never been deployed.
	PipelineConfigStateUnreleased PipelineConfigState = "UNRELEASED"
	PipelineConfigStateLive       PipelineConfigState = "LIVE"
	PipelineConfigStateDeprecated PipelineConfigState = "DEPRECATED"
)

// PipelineConfig is a versioned snapshot of a pipeline's settings and task graph. New runs always
// execute against the latest live version.
type PipelineConfig struct {
	Namespace   string `json:"namespace" example:"my_namespace" doc:"Unique identifier for the namespace"`
	Pipeline    string `json:"pipeline" example:"my_pipeline" doc:"Unique identifier for the pipeline"`
	Version     int64  `json:"version" example:"1" doc:"Monotonically increasing version number"`
	Parallelism int64  `json:"parallelism" example:"1" doc:"Maximum concurrent runs allowed; 0 is unlimited"`
	Name        string `json:"name" example:"My Pipeline" doc:"Humanized name for the pipeline"`
	Description string `json:"description" doc:"Short description of the pipeline's purpose"`

	// Map of task id to task. Tasks are the containers that the pipeline runs.
	Tasks map[string]Task `json:"tasks" doc:"The task set for this config version, keyed by task id"`

	State      PipelineConfigState `json:"state" example:"LIVE" doc:"Deployment state of this config version"`
	Registered uint64              `json:"registered" example:"1712433802634" doc:"Time this version was registered in epoch milliseconds"`

	// Only set once the config moves into the DEPRECATED state.
	Deprecated uint64 `json:"deprecated" example:"0" doc:"Time this version was deprecated in epoch milliseconds"`
}

func (pc *PipelineConfig) ToStorage() (*storage.PipelineConfig, []*storage.PipelineTask) {
	pipelineConfig := &storage.PipelineConfig{
		Namespace:   pc.Namespace,
		Pipeline:    pc.Pipeline,
		Version:     pc.Version,
		Parallelism: pc.Parallelism,
		Name:        pc.Name,
		Description: pc.Description,
		Registered:  fmt.Sprint(pc.Registered),
		Deprecated:  fmt.Sprint(pc.Deprecated),
		State:       string(pc.State),
	}

	tasks := []*storage.PipelineTask{}
	for _, task := range pc.Tasks {
		tasks = append(tasks, task.ToStorage(pc.Namespace, pc.Pipeline, pc.Version))
	}

	return pipelineConfig, tasks
}

func (pc *PipelineConfig) FromStorage(spc *storage.PipelineConfig, tasks []storage.PipelineTask) {
	registered, err := strconv.ParseUint(spc.Registered, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	deprecated, err := strconv.ParseUint(spc.Deprecated, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	taskMap := map[string]Task{}
	for _, storageTask := range tasks {
		var task Task
		task.FromStorage(&storageTask)
		taskMap[task.ID] = task
	}

	pc.Namespace = spc.Namespace
	pc.Pipeline = spc.Pipeline
	pc.Version = spc.Version
	pc.Parallelism = spc.Parallelism
	pc.Name = spc.Name
	pc.Description = spc.Description
	pc.Tasks = taskMap
	pc.State = PipelineConfigState(spc.State)
	pc.Registered = registered
	pc.Deprecated = deprecated
}
