// Package models contains the core objects of the application. These are separate from the storage layer
// representations; each model knows how to translate itself to and from its storage counterpart.
package models

import (
	"crypto/rand"
	"math/big"
)

// VariableSource tracks where a variable came from so that precedence between the layers
// can be resolved deterministically at task start time.
type VariableSource string

const (
	VariableSourceUnknown VariableSource = "UNKNOWN"
	// Set by the API itself; always wins.
	VariableSourceSystem VariableSource = "SYSTEM"
	// Defined on the task within the pipeline configuration.
	VariableSourcePipelineConfig VariableSource = "PIPELINE_CONFIG"
	// Passed in when the run was started, either by a user or an extension.
	VariableSourceRun VariableSource = "RUN"
	// Injected by an extension subscription.
	VariableSourceExtension VariableSource = "EXTENSION"
)

// VariableSensitivity controls whether a variable's value may be shown in API responses.
type VariableSensitivity string

const (
	VariableSensitivityUnknown VariableSensitivity = "UNKNOWN"
	VariableSensitivityPublic  VariableSensitivity = "PUBLIC"
	VariableSensitivityPrivate VariableSensitivity = "PRIVATE"
)

// Variable is a key/value pair passed to a container's environment.
type Variable struct {
	Key         string              `json:"key" example:"MY_ENV_VAR" doc:"The name of the environment variable"`
	Value       string              `json:"value" example:"some value" doc:"The value of the environment variable"`
	Source      VariableSource      `json:"source" example:"PIPELINE_CONFIG" doc:"Which layer of the application this variable came from"`
	Sensitivity VariableSensitivity `json:"sensitivity" example:"PUBLIC" doc:"Whether the value may be displayed in responses"`
}

// InitiatorType is the class of actor that kicked off a run.
type InitiatorType string

const (
	InitiatorTypeUnknown   InitiatorType = "UNKNOWN"
	InitiatorTypeBot       InitiatorType = "BOT"
	InitiatorTypeHuman     InitiatorType = "HUMAN"
	InitiatorTypeExtension InitiatorType = "EXTENSION"
)

// Initiator records what caused a run to be launched.
type Initiator struct {
	Type   InitiatorType `json:"type" example:"HUMAN" doc:"The class of actor that started the run"`
	Name   string        `json:"name" example:"some_username" doc:"The identity of the actor"`
	Reason string        `json:"reason" example:"Manually initiated run" doc:"Why the run was started"`
}

// RegistryAuth holds docker registry credentials for private images.
type RegistryAuth struct {
	User string `json:"user" example:"some_user" doc:"Registry username"`
	Pass string `json:"pass" example:"some_pass" doc:"Registry password"`
}

// Ptr is a convenience for turning literals into pointers for updatable field structs.
func Ptr[T any](v T) *T {
	return &v
}

// generateID creates a random ASCII string of length n. Used for token and extension key ids.
func generateID(n int) string {
	const alphanumericCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

	b := make([]byte, n)
	for i := range b {
		index, _ := rand.Int(rand.Reader, big.NewInt(int64(len(alphanumericCharset))))
		b[i] = alphanumericCharset[index.Int64()]
	}

	return string(b)
}
