// Package storage contains the data storage interface in which Gofer stores all internal data.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Provides sqlite3 lib
	"github.com/rs/zerolog/log"
)

//go:embed migrations
var migrations embed.FS

var (
	// ErrEntityNotFound is returned when the requested entity does not exist.
	ErrEntityNotFound = errors.New("storage: entity not found")

	// ErrEntityExists is returned when an insert collides with an existing entity.
	ErrEntityExists = errors.New("storage: entity already exists")

	// ErrNoEntityUpdated is returned when an update call was given no fields to update.
	ErrNoEntityUpdated = errors.New("storage: no entity was updated")

	// ErrPreconditionFailure is returned when the given parameters fail validation.
	ErrPreconditionFailure = errors.New("storage: parameters did not pass validation")

	// ErrInternal is returned for any unclassified database failure; the wrapped error carries
	// the detail.
	ErrInternal = errors.New("storage: unknown db error")
)

// Queryable includes methods shared by sqlx.Tx and sqlx.DB so they can
// be used interchangeably.
type Queryable interface {
	sqlx.Queryer
	sqlx.Execer
	GetContext(context.Context, interface{}, string, ...interface{}) error
	SelectContext(context.Context, interface{}, string, ...interface{}) error
	Get(interface{}, string, ...interface{}) error
	MustExecContext(context.Context, string, ...interface{}) sql.Result
	PreparexContext(context.Context, string) (*sqlx.Stmt, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
	Select(interface{}, string, ...interface{}) error
	QueryRow(string, ...interface{}) *sql.Row
	PrepareNamedContext(context.Context, string) (*sqlx.NamedStmt, error)
	PrepareNamed(string) (*sqlx.NamedStmt, error)
	Preparex(string) (*sqlx.Stmt, error)
	NamedExec(string, interface{}) (sql.Result, error)
	NamedExecContext(context.Context, string, interface{}) (sql.Result, error)
	MustExec(string, ...interface{}) sql.Result
	NamedQuery(string, interface{}) (*sqlx.Rows, error)
}

// DB wraps the sqlite connection and caps how many rows any list call may return.
type DB struct {
	maxResultsLimit int
	*sqlx.DB
}

func mustReadFile(path string) []byte {
	file, err := migrations.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("could not read migrations file")
	}

	return file
}

// New opens (creating if needed) the sqlite database at path and brings the schema up to date.
func New(path string, maxResultsLimit int) (DB, error) {
	dsn := fmt.Sprintf("%s?_journal=wal&_fk=true&_timeout=5000", path)

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return DB{}, err
	}

	migration := migrate{
		Migrations: []migration{
			migrationQuery("0", string(mustReadFile("migrations/0_init.sql"))),
		},
	}

	err = migration.migrate(db)
	if err != nil {
		return DB{}, err
	}

	return DB{
		maxResultsLimit,
		db,
	}, nil
}

// InsideTx is a convenience function so that callers can run multiple queries inside a transaction.
func InsideTx(db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
