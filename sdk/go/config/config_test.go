package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidPipeline(t *testing.T) {
	pipeline := NewPipeline("my_pipeline", "My Pipeline").
		Description("A test pipeline").
		Tasks(
			NewTask("first", "ubuntu:latest").Command("echo", "hello"),
			NewTask("second", "ubuntu:latest").
				DependsOn("first", RequiredParentStatusSuccess).
				Variable("GREETING", "hi"),
		)

	if err := pipeline.Validate(); err != nil {
		t.Fatalf("expected valid pipeline; got %v", err)
	}
}

func TestPipelineSerializesToExpectedDocument(t *testing.T) {
	pipeline := NewPipeline("my_pipeline", "My Pipeline").
		Tasks(
			NewTask("only", "ubuntu:latest").
				DependsOn("missing_is_fine_for_marshal", RequiredParentStatusAny).
				Command("echo", "hello"),
		)

	raw, err := json.Marshal(pipeline)
	if err != nil {
		t.Fatal(err)
	}

	document := string(raw)
	for _, want := range []string{`"id":"my_pipeline"`, `"name":"My Pipeline"`, `"tasks":[`,
		`"depends_on":{"missing_is_fine_for_marshal":"any"}`, `"command":["echo","hello"]`} {
		if !strings.Contains(document, want) {
			t.Errorf("document missing %s; got %s", want, document)
		}
	}
}

func TestInvalidIdentifiers(t *testing.T) {
	tests := map[string]string{
		"too short":          "ab",
		"too long":           strings.Repeat("a", 33),
		"invalid characters": "my-pipeline",
	}

	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			pipeline := NewPipeline(id, "Test").Tasks(NewTask("task_one", "ubuntu:latest"))
			if err := pipeline.Validate(); err == nil {
				t.Errorf("expected validation error for id %q", id)
			}
		})
	}
}

func TestCycleDetection(t *testing.T) {
	pipeline := NewPipeline("my_pipeline", "My Pipeline").
		Tasks(
			NewTask("task_a", "ubuntu:latest").DependsOn("task_b", RequiredParentStatusAny),
			NewTask("task_b", "ubuntu:latest").DependsOn("task_c", RequiredParentStatusAny),
			NewTask("task_c", "ubuntu:latest").DependsOn("task_a", RequiredParentStatusAny),
		)

	if err := pipeline.Validate(); err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestUnknownDependencyRejected(t *testing.T) {
	pipeline := NewPipeline("my_pipeline", "My Pipeline").
		Tasks(
			NewTask("task_a", "ubuntu:latest").DependsOn("ghost", RequiredParentStatusSuccess),
		)

	if err := pipeline.Validate(); err == nil {
		t.Fatal("expected unknown dependency error")
	}
}

func TestGlobalSecretsRejectedInVariables(t *testing.T) {
	pipeline := NewPipeline("my_pipeline", "My Pipeline").
		Tasks(
			NewTask("task_a", "ubuntu:latest").Variable("SECRET", GlobalSecret("some_key")),
		)

	if err := pipeline.Validate(); err == nil {
		t.Fatal("expected global secret rejection")
	}
}
