package storage

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// migrate tracks which schema migrations have been applied via a bookkeeping table and runs
// any that have not.
type migrate struct {
	Migrations []migration
}

func (s *migrate) migrate(db *sqlx.DB) error {
	err := s.createMigrationTable(db)
	if err != nil {
		return err
	}

	for _, m := range s.Migrations {
		var found string
		err := db.Get(&found, "SELECT id FROM migrations WHERE id=$1", m.ID)
		switch err {
		case sql.ErrNoRows:
			log.Debug().Msgf("running migration ID: %v", m.ID)
		case nil:
			continue
		default:
			return fmt.Errorf("looking up migration by id: %w", err)
		}

		err = s.runMigration(db, m)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *migrate) createMigrationTable(db *sqlx.DB) error {
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS migrations (id TEXT PRIMARY KEY )")
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}
	return nil
}

// runMigration applies a single migration and records it in the bookkeeping table within the
// same transaction, so a failed migration leaves no trace.
func (s *migrate) runMigration(db *sqlx.DB, m migration) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("running migration: %w", err)
	}

	_, err = tx.Exec("INSERT INTO migrations (id) VALUES ($1)", m.ID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("running migration: %w", err)
	}

	err = m.Migrate(tx)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("running migration: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("running migration: %w", err)
	}

	return nil
}

// migration is a unique ID plus a function that performs the schema change inside a transaction.
type migration struct {
	ID      string
	Migrate func(tx *sqlx.Tx) error
}

// migrationQuery builds a migration from a plain SQL string.
func migrationQuery(id, query string) migration {
	return migration{
		ID: id,
		Migrate: func(tx *sqlx.Tx) error {
			_, err := tx.Exec(query)
			return err
		},
	}
}
