// Package secretStore defines the interface Gofer uses to keep secrets. Values are encrypted at
// rest by the engine; the main database only tracks metadata about each secret.
package secretStore

import "errors"

type EngineType string

const (
	// EngineSqlite stores secrets in a dedicated sqlite database separate from the main datastore.
	EngineSqlite EngineType = "sqlite"
)

var (
	// ErrEntityNotFound is returned when a certain entity could not be located.
	ErrEntityNotFound = errors.New("secretStore: entity not found")

	// ErrEntityExists is returned when a certain entity was located but not meant to be.
	ErrEntityExists = errors.New("secretStore: entity already exists")

	// ErrPreconditionFailure is returned when there was a validation error with the parameters passed.
	ErrPreconditionFailure = errors.New("secretStore: parameters did not pass validation")

	// ErrInternal is returned when the underlying engine failed in an unexpected way.
	ErrInternal = errors.New("secretStore: unexpected internal error")
)

type Engine interface {
	GetSecret(key string) (string, error)
	// PutSecret writes a new secret. When force is set an existing secret under the same key
	// is overwritten instead of returning ErrEntityExists.
	PutSecret(key string, content string, force bool) error
	ListSecretKeys(prefix string) ([]string, error)
	DeleteSecret(key string) error
}
