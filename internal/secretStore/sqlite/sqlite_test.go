package sqlite

import (
	"os"
	"testing"

	"github.com/clintjedwards/gofer/internal/secretStore"
)

func TestSqlite(t *testing.T) {
	// Encryption keys must be exactly 32 characters for AES-256.
	store, err := New("/tmp/test_sqlite_secretStore.db", "0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove("/tmp/test_sqlite_secretStore.db")
	defer os.Remove("/tmp/test_sqlite_secretStore.db-wal")
	defer os.Remove("/tmp/test_sqlite_secretStore.db-shm")

	err = store.PutSecret("testkey1", "mysupersecretvalue", false)
	if err != nil {
		t.Fatal(err)
	}

	err = store.PutSecret("testkey2", "myothersupersecretvalue", false)
	if err != nil {
		t.Fatal(err)
	}

	secret, err := store.GetSecret("testkey1")
	if err != nil {
		t.Fatal(err)
	}

	if secret != "mysupersecretvalue" {
		t.Errorf("expected decrypted secret %q; found %q", "mysupersecretvalue", secret)
	}

	keys, err := store.ListSecretKeys("testkey")
	if err != nil {
		t.Fatal(err)
	}

	if len(keys) != 2 {
		t.Fatalf("expected two keys got %d", len(keys))
	}

	err = store.PutSecret("testkey1", "duplicate", false)
	if err != secretStore.ErrEntityExists {
		t.Fatalf("Expected error %q; found %v", secretStore.ErrEntityExists, err)
	}

	err = store.PutSecret("testkey1", "replacement", true)
	if err != nil {
		t.Fatal(err)
	}

	secret, err = store.GetSecret("testkey1")
	if err != nil {
		t.Fatal(err)
	}

	if secret != "replacement" {
		t.Errorf("expected decrypted secret %q; found %q", "replacement", secret)
	}

	_, err = store.GetSecret("doesnotexist")
	if err != secretStore.ErrEntityNotFound {
		t.Fatalf("Expected error %q; found %v", secretStore.ErrEntityNotFound, err)
	}
}
