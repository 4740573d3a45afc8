package storage

import (
	"fmt"

	qb "github.com/Masterminds/squirrel"
)

// SystemParameters is a singleton row containing service-wide settings that must survive restarts.
type SystemParameters struct {
	ID                      int64
	BootstrapTokenCreated   bool `db:"bootstrap_token_created"`
	IgnorePipelineRunEvents bool `db:"ignore_pipeline_run_events"`
}

type UpdatableSystemParameters struct {
	BootstrapTokenCreated   *bool
	IgnorePipelineRunEvents *bool
}

func (db *DB) GetSystemParameters(conn Queryable) (SystemParameters, error) {
	query, args := qb.Select("id", "bootstrap_token_created", "ignore_pipeline_run_events").
		From("system_parameters").Where(qb.Eq{"id": 1}).MustSql()

	params := SystemParameters{}
	err := conn.Get(&params, query, args...)
	if err != nil {
		return SystemParameters{}, fmt.Errorf("database error occurred: %v; %w", err, ErrInternal)
	}

	return params, nil
}

func (db *DB) UpdateSystemParameters(conn Queryable, fields UpdatableSystemParameters) error {
	query := qb.Update("system_parameters")

	if fields.BootstrapTokenCreated != nil {
		query = query.Set("bootstrap_token_created", fields.BootstrapTokenCreated)
	}

	if fields.IgnorePipelineRunEvents != nil {
		query = query.Set("ignore_pipeline_run_events", fields.IgnorePipelineRunEvents)
	}

	_, err := query.Where(qb.Eq{"id": 1}).RunWith(conn).Exec()
	if err != nil {
		return fmt.Errorf("database error occurred: %v; %w", err, ErrInternal)
	}

	return nil
}
