package config

import "fmt"

// Task describes a single container within a pipeline.
type Task struct {
	TaskID     string                          `json:"id"`
	Desc       string                          `json:"description,omitempty"`
	TaskImage  string                          `json:"image"`
	Auth       *RegistryAuth                   `json:"registry_auth,omitempty"`
	Deps       map[string]RequiredParentStatus `json:"depends_on,omitempty"`
	Vars       map[string]string               `json:"variables,omitempty"`
	EntryArgs  *[]string                       `json:"entrypoint,omitempty"`
	CmdArgs    *[]string                       `json:"command,omitempty"`
	InjectAPI  bool                            `json:"inject_api_token,omitempty"`
	AlwaysPull bool                            `json:"always_pull_newest_image,omitempty"`
	TimeoutSec int64                           `json:"timeout,omitempty"`
}

// NewTask starts a new task configuration running the given container image.
func NewTask(id, image string) *Task {
	return &Task{
		TaskID:    id,
		TaskImage: image,
		Deps:      map[string]RequiredParentStatus{},
		Vars:      map[string]string{},
	}
}

func (t *Task) Description(description string) *Task {
	t.Desc = description
	return t
}

func (t *Task) RegistryAuth(user, pass string) *Task {
	t.Auth = &RegistryAuth{
		User: user,
		Pass: pass,
	}
	return t
}

// DependsOn requires the named parent task to finish with the given status before this task
// starts.
func (t *Task) DependsOn(taskID string, status RequiredParentStatus) *Task {
	t.Deps[taskID] = status
	return t
}

func (t *Task) DependsOnMany(dependsOn map[string]RequiredParentStatus) *Task {
	for id, status := range dependsOn {
		t.Deps[id] = status
	}
	return t
}

// Variable sets a single environment variable for the task container. Values may contain
// interpolation directives; see PipelineSecret, PipelineObject, and RunObject.
func (t *Task) Variable(key, value string) *Task {
	t.Vars[key] = value
	return t
}

func (t *Task) Variables(variables map[string]string) *Task {
	for key, value := range variables {
		t.Vars[key] = value
	}
	return t
}

func (t *Task) Entrypoint(entrypoint ...string) *Task {
	t.EntryArgs = &entrypoint
	return t
}

func (t *Task) Command(command ...string) *Task {
	t.CmdArgs = &command
	return t
}

// InjectAPIToken has the server hand the container a run scoped API token via the environment
// variable GOFER_API_TOKEN.
func (t *Task) InjectAPIToken(inject bool) *Task {
	t.InjectAPI = inject
	return t
}

// AlwaysPullNewestImage skips the local image cache on every start of this task.
func (t *Task) AlwaysPullNewestImage(pull bool) *Task {
	t.AlwaysPull = pull
	return t
}

// Timeout caps the task's execution time in seconds; 0 falls back to the server default.
func (t *Task) Timeout(seconds int64) *Task {
	t.TimeoutSec = seconds
	return t
}

func (t *Task) validate() error {
	if err := validateIdentifier("id", t.TaskID); err != nil {
		return err
	}

	if t.TaskImage == "" {
		return fmt.Errorf("task %q: image required", t.TaskID)
	}

	for parent, status := range t.Deps {
		switch status {
		case RequiredParentStatusAny, RequiredParentStatusSuccess, RequiredParentStatusFailure:
		default:
			return fmt.Errorf("task %q: depends_on %q: unknown required status %q", t.TaskID, parent, status)
		}
	}

	return validateVariables(t.TaskID, t.Vars)
}
