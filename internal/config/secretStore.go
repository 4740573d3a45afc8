package config

// SqliteSecret
type SqliteSecret struct {
	Path string `hcl:"path,optional"` // file path for database file
}

// SecretStore defines the configuration for Gofer's secret backend. Values are encrypted with the
// server level encryption_key.
type SecretStore struct {
	// The SecretStore engine used by the backend.
	// Possible values are: sqlite
	Engine string `hcl:"engine,optional"`

	Sqlite *SqliteSecret `hcl:"sqlite,block"`
}

func DefaultSecretStoreConfig() *SecretStore {
	return &SecretStore{
		Engine: "sqlite",
		Sqlite: &SqliteSecret{
			Path: "/tmp/gofer-secret.db",
		},
	}
}
