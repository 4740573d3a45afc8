// Package objectStore defines the interface Gofer uses to store arbitrary binary blobs on behalf of
// pipelines and runs. The main database only tracks metadata about each object; the bytes live here.
package objectStore

import "errors"

type EngineType string

const (
	// EngineSqlite stores objects in a dedicated sqlite database separate from the main datastore.
	EngineSqlite EngineType = "sqlite"
)

var (
	// ErrEntityNotFound is returned when a certain entity could not be located.
	ErrEntityNotFound = errors.New("objectStore: entity not found")

	// ErrEntityExists is returned when a certain entity was located but not meant to be.
	ErrEntityExists = errors.New("objectStore: entity already exists")

	// ErrPreconditionFailure is returned when there was a validation error with the parameters passed.
	ErrPreconditionFailure = errors.New("objectStore: parameters did not pass validation")

	// ErrInternal is returned when the underlying engine failed in an unexpected way.
	ErrInternal = errors.New("objectStore: unexpected internal error")
)

type Engine interface {
	GetObject(key string) ([]byte, error)
	// PutObject writes a new object. When force is set an existing object under the same key
	// is overwritten instead of returning ErrEntityExists.
	PutObject(key string, content []byte, force bool) error
	ListObjectKeys(prefix string) ([]string, error)
	DeleteObject(key string) error
}
