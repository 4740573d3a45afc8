package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

// SecretStoreKey is metadata about a secret kept in the pipeline secret store. The secret
// value itself lives encrypted in the secret store engine.
type SecretStoreKey struct {
	Key     string `json:"key" example:"my_secret" doc:"The name of the secret"`
	Created uint64 `json:"created" example:"1712433802634" doc:"Time the secret was stored in epoch milliseconds"`
}

func NewSecretStoreKey(key string) *SecretStoreKey {
	return &SecretStoreKey{
		Key:     key,
		Created: uint64(time.Now().UnixMilli()),
	}
}

func (s *SecretStoreKey) ToStorage(namespace, pipeline string) *storage.SecretStorePipelineKey {
	return &storage.SecretStorePipelineKey{
		Namespace: namespace,
		Pipeline:  pipeline,
		Key:       s.Key,
		Created:   fmt.Sprint(s.Created),
	}
}

func (s *SecretStoreKey) FromStorage(sk *storage.SecretStorePipelineKey) {
	created, err := strconv.ParseUint(sk.Created, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	s.Key = sk.Key
	s.Created = created
}

// GlobalSecretKey is metadata about a secret in the global secret store. Global secrets are only
// settable by management tokens and are scoped to namespaces by prefix match.
type GlobalSecretKey struct {
	Key string `json:"key" example:"my_secret" doc:"The name of the secret"`

	// Namespaces that may read this secret. Supports a trailing '*' wildcard for prefix matching.
	Namespaces []string `json:"namespaces" example:"[\"dev_*\"]" doc:"Namespace filter for the secret"`
	Created    uint64   `json:"created" example:"1712433802634" doc:"Time the secret was stored in epoch milliseconds"`
}

func NewGlobalSecretKey(key string, namespaces []string) *GlobalSecretKey {
	return &GlobalSecretKey{
		Key:        key,
		Namespaces: namespaces,
		Created:    uint64(time.Now().UnixMilli()),
	}
}

func (s *GlobalSecretKey) ToStorage() *storage.SecretStoreGlobalKey {
	namespaces, err := json.Marshal(s.Namespaces)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	return &storage.SecretStoreGlobalKey{
		Key:        s.Key,
		Namespaces: string(namespaces),
		Created:    fmt.Sprint(s.Created),
	}
}

func (s *GlobalSecretKey) FromStorage(sk *storage.SecretStoreGlobalKey) {
	created, err := strconv.ParseUint(sk.Created, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var namespaces []string
	if err := json.Unmarshal([]byte(sk.Namespaces), &namespaces); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	s.Key = sk.Key
	s.Namespaces = namespaces
	s.Created = created
}
