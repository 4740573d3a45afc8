package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/clintjedwards/gofer/internal/storage"
	"github.com/rs/zerolog/log"
)

type TokenKind string

const (
	TokenKindUnknown TokenKind = "UNKNOWN"
	// Management tokens can access all endpoints including administration; meant for Gofer operators.
	TokenKindManagement TokenKind = "MANAGEMENT"
	// Client tokens are scoped to a set of namespaces.
	TokenKindClient TokenKind = "CLIENT"
)

// Token is an API access credential. Only the SHA-256 hash of the secret is kept.
type Token struct {
	Hash    string    `json:"hash" doc:"SHA-256 hash of the token secret"`
	Created uint64    `json:"created" example:"1712433802634" doc:"Time the token was created in epoch milliseconds"`
	Kind    TokenKind `json:"kind" example:"CLIENT" doc:"The permission class of the token"`

	// Namespaces the token has access to. Ignored for management tokens.
	Namespaces []string `json:"namespaces" doc:"Namespaces this token may act upon"`

	// Freeform labels so operators can track what a token is for.
	Metadata map[string]string `json:"metadata" doc:"Extra information about the token"`

	// Epoch millisecond time after which the token stops working.
	Expires  uint64 `json:"expires" example:"1712433802634" doc:"Time the token expires in epoch milliseconds"`
	Disabled bool   `json:"disabled" doc:"Whether the token has been turned off"`
}

func NewToken(hash string, kind TokenKind, namespaces []string, metadata map[string]string, expiry time.Duration) *Token {
	now := time.Now()

	return &Token{
		Hash:       hash,
		Created:    uint64(now.UnixMilli()),
		Kind:       kind,
		Namespaces: namespaces,
		Metadata:   metadata,
		Expires:    uint64(now.Add(expiry).UnixMilli()),
		Disabled:   false,
	}
}

func (t *Token) ToStorage() *storage.Token {
	namespaces, err := json.Marshal(t.Namespaces)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating to storage")
	}

	return &storage.Token{
		Hash:       t.Hash,
		Created:    fmt.Sprint(t.Created),
		Kind:       string(t.Kind),
		Namespaces: string(namespaces),
		Metadata:   string(metadata),
		Expires:    fmt.Sprint(t.Expires),
		Disabled:   t.Disabled,
	}
}

func (t *Token) FromStorage(st *storage.Token) {
	created, err := strconv.ParseUint(st.Created, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	expires, err := strconv.ParseUint(st.Expires, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var namespaces []string
	if err := json.Unmarshal([]byte(st.Namespaces), &namespaces); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	var metadata map[string]string
	if err := json.Unmarshal([]byte(st.Metadata), &metadata); err != nil {
		log.Fatal().Err(err).Msg("error in translating from storage")
	}

	t.Hash = st.Hash
	t.Created = created
	t.Kind = TokenKind(st.Kind)
	t.Namespaces = namespaces
	t.Metadata = metadata
	t.Expires = expires
	t.Disabled = st.Disabled
}
