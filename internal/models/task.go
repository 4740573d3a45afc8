package models

import (
	"encoding/json"
	"strings"

	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

// RequiredParentStatus is the state a parent task must end in before a downstream task
// is allowed to start.
type RequiredParentStatus string

const (
	RequiredParentStatusUnknown RequiredParentStatus = "UNKNOWN"
	RequiredParentStatusAny     RequiredParentStatus = "ANY"
	RequiredParentStatusSuccess RequiredParentStatus = "SUCCESS"
	RequiredParentStatusFailure RequiredParentStatus = "FAILURE"
)

func (s RequiredParentStatus) FromStr(input string) RequiredParentStatus {
	switch strings.ToLower(input) {
	case "unknown":
		return RequiredParentStatusUnknown
	case "any":
		return RequiredParentStatusAny
	case "success":
		return RequiredParentStatusSuccess
	case "failure":
		return RequiredParentStatusFailure
	default:
		return RequiredParentStatusUnknown
	}
}

// Task is a single unit of execution within a pipeline; a container plus the metadata
// describing when and how to run it.
type Task struct {
	ID           string        `json:"id" example:"my_task" doc:"Unique identifier for the task"`
	Description  string        `json:"description" doc:"Short description of the task's purpose"`
	Image        string        `json:"image" example:"ubuntu:latest" doc:"Container image to run"`
	RegistryAuth *RegistryAuth `json:"registry_auth,omitempty" doc:"Credentials for the image's registry if it is private"`

	// Map of parent task id to the parent status required before this task may start. Tasks
	// with no entries start as soon as the run does.
	DependsOn map[string]RequiredParentStatus `json:"depends_on" doc:"Parent tasks and the finishing states required of them"`

	Variables  []Variable `json:"variables" doc:"Environment variables to pass to the container"`
	Entrypoint *[]string  `json:"entrypoint,omitempty" doc:"Override for the container entrypoint"`
	Command    *[]string  `json:"command,omitempty" doc:"Override for the container command"`

	// When true the API injects a run-scoped client token into the container's environment
	// as GOFER_API_TOKEN.
	InjectAPIToken bool `json:"inject_api_token" doc:"Whether to inject a run-scoped API token"`

	// When true the scheduler pulls the image fresh for every execution instead of using a
	// locally cached copy.
	AlwaysPullNewestImage bool `json:"always_pull_newest_image" doc:"Whether to skip the local image cache"`

	// Maximum wall clock seconds an execution of this task may run before it is cancelled.
	// Zero means no limit.
	Timeout int64 `json:"timeout" example:"0" doc:"Execution time limit in seconds; 0 is unlimited"`
}

func (t *Task) ToStorage(namespace, pipeline string, version int64) *storage.PipelineTask {
	dependsOn, err := json.Marshal(t.DependsOn)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	variables, err := json.Marshal(t.Variables)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	entrypoint, err := json.Marshal(t.Entrypoint)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	command, err := json.Marshal(t.Command)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	registryAuth, err := json.Marshal(t.RegistryAuth)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	return &storage.PipelineTask{
		Namespace:             namespace,
		Pipeline:              pipeline,
		PipelineConfigVersion: version,
		ID:                    t.ID,
		Description:           t.Description,
		Image:                 t.Image,
		RegistryAuth:          string(registryAuth),
		DependsOn:             string(dependsOn),
		Variables:             string(variables),
		Entrypoint:            string(entrypoint),
		Command:               string(command),
		InjectAPIToken:        t.InjectAPIToken,
		AlwaysPullNewestImage: t.AlwaysPullNewestImage,
		Timeout:               t.Timeout,
	}
}

func (t *Task) FromStorage(st *storage.PipelineTask) {
	var registryAuth *RegistryAuth
	if err := json.Unmarshal([]byte(st.RegistryAuth), &registryAuth); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var dependsOn map[string]RequiredParentStatus
	if err := json.Unmarshal([]byte(st.DependsOn), &dependsOn); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var variables []Variable
	if err := json.Unmarshal([]byte(st.Variables), &variables); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var entrypoint *[]string
	if err := json.Unmarshal([]byte(st.Entrypoint), &entrypoint); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var command *[]string
	if err := json.Unmarshal([]byte(st.Command), &command); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	t.ID = st.ID
	t.Description = st.Description
	t.Image = st.Image
	t.RegistryAuth = registryAuth
	t.DependsOn = dependsOn
	t.Variables = variables
	t.Entrypoint = entrypoint
	t.Command = command
	t.InjectAPIToken = st.InjectAPIToken
	t.AlwaysPullNewestImage = st.AlwaysPullNewestImage
	t.Timeout = st.Timeout
}
