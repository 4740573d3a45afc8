package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

// ObjectStoreKey is metadata about an object kept in the object store. The object bytes
// themselves live in the object store engine, not the main database.
type ObjectStoreKey struct {
	Key     string `json:"key" example:"my_object" doc:"The name of the object"`
	Created uint64 `json:"created" example:"1712433802634" doc:"Time the object was stored in epoch milliseconds"`
}

func NewObjectStoreKey(key string) *ObjectStoreKey {
	return &ObjectStoreKey{
		Key:     key,
		Created: uint64(time.Now().UnixMilli()),
	}
}

func (s *ObjectStoreKey) ToPipelineStorage(namespace, pipeline string) *storage.ObjectStorePipelineKey {
	return &storage.ObjectStorePipelineKey{
		Namespace: namespace,
		Pipeline:  pipeline,
		Key:       s.Key,
		Created:   fmt.Sprint(s.Created),
	}
}

func (s *ObjectStoreKey) FromPipelineStorage(sk *storage.ObjectStorePipelineKey) {
	created, err := strconv.ParseUint(sk.Created, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	s.Key = sk.Key
	s.Created = created
}

func (s *ObjectStoreKey) ToRunStorage(namespace, pipeline string, run int64) *storage.ObjectStoreRunKey {
	return &storage.ObjectStoreRunKey{
		Namespace: namespace,
		Pipeline:  pipeline,
		Run:       run,
		Key:       s.Key,
		Created:   fmt.Sprint(s.Created),
	}
}

func (s *ObjectStoreKey) FromRunStorage(sk *storage.ObjectStoreRunKey) {
	created, err := strconv.ParseUint(sk.Created, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	s.Key = sk.Key
	s.Created = created
}
