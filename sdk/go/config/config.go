// Package config provides a builder for Gofer pipeline configuration documents.
//
// Pipeline configurations are plain JSON; this package exists so pipelines can be described in
// real Go instead, validated locally, and then serialized into the document the server expects:
//
//	err := config.NewPipeline("my_pipeline", "My Pipeline").
//		Description("Does a thing").
//		Tasks(
//			config.NewTask("first", "ubuntu:latest").Command("echo", "hello"),
//		).Finish()
//
// Finish writes the finished document to stdout, ready to be piped to a file and registered with
// `gofer pipeline config register`.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/clintjedwards/gofer/sdk/go/internal/dag"
)

// RequiredParentStatus is the finishing state a task requires of a parent before it will start.
type RequiredParentStatus string

const (
	RequiredParentStatusAny     RequiredParentStatus = "any"
	RequiredParentStatusSuccess RequiredParentStatus = "success"
	RequiredParentStatusFailure RequiredParentStatus = "failure"
)

// RegistryAuth holds docker registry credentials for private task images.
type RegistryAuth struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// Pipeline is the top level configuration document.
type Pipeline struct {
	ID           string  `json:"id"`
	PipelineName string  `json:"name"`
	Desc         string  `json:"description,omitempty"`
	Concurrency  int64   `json:"parallelism,omitempty"`
	TaskList     []*Task `json:"tasks"`
}

// NewPipeline starts a new pipeline configuration. The id must be between 3 and 32 alphanumeric
// or underscore characters; the name is the humanized form shown in listings.
func NewPipeline(id, name string) *Pipeline {
	return &Pipeline{
		ID:           id,
		PipelineName: name,
		TaskList:     []*Task{},
	}
}

func (p *Pipeline) Description(description string) *Pipeline {
	p.Desc = description
	return p
}

// Parallelism caps how many runs of this pipeline may be in flight at once; 0 is unlimited.
func (p *Pipeline) Parallelism(parallelism int64) *Pipeline {
	p.Concurrency = parallelism
	return p
}

func (p *Pipeline) Tasks(tasks ...*Task) *Pipeline {
	p.TaskList = tasks
	return p
}

// Validate checks the pipeline the same way the server will on registration, so mistakes surface
// at build time instead of at submission.
func (p *Pipeline) Validate() error {
	if err := validateIdentifier("id", p.ID); err != nil {
		return err
	}

	if len(p.TaskList) == 0 {
		return fmt.Errorf("pipeline must contain at least one task")
	}

	for _, task := range p.TaskList {
		if err := task.validate(); err != nil {
			return err
		}
	}

	return p.isDAG()
}

// Finish validates the pipeline and writes the finished JSON document to stdout.
func (p *Pipeline) Finish() error {
	if err := p.Validate(); err != nil {
		return err
	}

	output, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	if _, err := os.Stdout.Write(output); err != nil {
		return err
	}
	_, err = os.Stdout.Write([]byte("\n"))

	return err
}

// PipelineSecret returns an interpolation directive that resolves to the named pipeline secret
// at run time.
func PipelineSecret(key string) string {
	return fmt.Sprintf("pipeline_secret{{%s}}", key)
}

// GlobalSecret returns an interpolation directive for an administrator provisioned secret. Only
// allowed in system level variables; using it inside a pipeline config fails validation.
func GlobalSecret(key string) string {
	return fmt.Sprintf("global_secret{{%s}}", key)
}

// PipelineObject returns an interpolation directive that resolves to the named pipeline object.
func PipelineObject(key string) string {
	return fmt.Sprintf("pipeline_object{{%s}}", key)
}

// RunObject returns an interpolation directive that resolves to the named run object.
func RunObject(key string) string {
	return fmt.Sprintf("run_object{{%s}}", key)
}

var alphanumericWithUnderscores = regexp.MustCompile("^[a-zA-Z0-9_]*$")

// Identifiers are the primary keys for most Gofer resources, so they carry some sane bounds:
// between 3 and 32 characters, alphanumeric and underscores only.
func validateIdentifier(arg, value string) error {
	if len(value) > 32 {
		return fmt.Errorf("length of arg %q cannot be greater than 32", arg)
	}

	if len(value) < 3 {
		return fmt.Errorf("length of arg %q cannot be less than 3", arg)
	}

	if !alphanumericWithUnderscores.MatchString(value) {
		return fmt.Errorf("arg %q can only be made up of alphanumeric and underscore characters; found %q", arg, value)
	}

	return nil
}

// validateVariables rejects variable values the server would refuse, most importantly global
// secret references which are reserved for administrator provisioned system variables.
func validateVariables(taskID string, variables map[string]string) error {
	for key, value := range variables {
		if strings.HasPrefix(strings.TrimSpace(value), "global_secret{{") {
			return fmt.Errorf("task %q: variable %q: global secrets cannot be used in pipeline configs; "+
				"they are reserved for system level variables set by Gofer administrators", taskID, key)
		}
	}

	return nil
}

// isDAG verifies the task list forms an acyclic dependency graph.
func (p *Pipeline) isDAG() error {
	taskDAG := dag.New()

	for _, task := range p.TaskList {
		if err := taskDAG.AddNode(task.TaskID); err != nil {
			if errors.Is(err, dag.ErrEntityExists) {
				return fmt.Errorf("duplicate task ids found; %q is already a task", task.TaskID)
			}
			return err
		}
	}

	for _, task := range p.TaskList {
		for parent := range task.Deps {
			if err := taskDAG.AddEdge(parent, task.TaskID); err != nil {
				if errors.Is(err, dag.ErrEdgeCreatesCycle) {
					return fmt.Errorf("a cycle was detected creating a dependency from task %q to task %q", task.TaskID, parent)
				}
				if errors.Is(err, dag.ErrEntityNotFound) {
					return fmt.Errorf("task %q is listed as a dependency of task %q but does not exist", parent, task.TaskID)
				}
				return err
			}
		}
	}

	return nil
}
