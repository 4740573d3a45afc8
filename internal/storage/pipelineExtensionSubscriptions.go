package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	qb "github.com/Masterminds/squirrel"
)

type PipelineExtensionSubscription struct {
	Namespace    string
	Pipeline     string
	Extension    string
	Label        string
	Settings     string
	Status       string
	StatusReason string `db:"status_reason"`
}

type UpdatablePipelineExtensionSubscriptionFields struct {
	Settings     *string
	Status       *string
	StatusReason *string
}

func (db *DB) ListPipelineExtensionSubscriptions(conn Queryable, namespace, pipeline string) (
	[]PipelineExtensionSubscription, error,
) {
	query, args := qb.Select("namespace", "pipeline", "extension", "label", "settings", "status", "status_reason").
		From("pipeline_extension_subscriptions").
		Where(qb.Eq{"namespace": namespace, "pipeline": pipeline}).MustSql()

	subscriptions := []PipelineExtensionSubscription{}
	err := conn.Select(&subscriptions, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error occurred: %v; %w", err, ErrInternal)
	}

	return subscriptions, nil
}

// ListExtensionSubscriptions returns all subscriptions registered against a single extension,
// across every namespace and pipeline.
func (db *DB) ListExtensionSubscriptions(conn Queryable, extension string) (
	[]PipelineExtensionSubscription, error,
) {
	query, args := qb.Select("namespace", "pipeline", "extension", "label", "settings", "status", "status_reason").
		From("pipeline_extension_subscriptions").
		Where(qb.Eq{"extension": extension}).MustSql()

	subscriptions := []PipelineExtensionSubscription{}
	err := conn.Select(&subscriptions, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error occurred: %v; %w", err, ErrInternal)
	}

	return subscriptions, nil
}

func (db *DB) InsertPipelineExtensionSubscription(conn Queryable, sub *PipelineExtensionSubscription) error {
	_, err := qb.Insert("pipeline_extension_subscriptions").
		Columns("namespace", "pipeline", "extension", "label", "settings", "status", "status_reason").
		Values(sub.Namespace, sub.Pipeline, sub.Extension, sub.Label, sub.Settings, sub.Status, sub.StatusReason).
		RunWith(conn).Exec()
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEntityExists
		}

		return fmt.Errorf("database error occurred: %v; %w", err, ErrInternal)
	}

	return nil
}

func (db *DB) GetPipelineExtensionSubscription(conn Queryable, namespace, pipeline, extension, label string) (
	PipelineExtensionSubscription, error,
) {
	query, args := qb.Select("namespace", "pipeline", "extension", "label", "settings", "status", "status_reason").
		From("pipeline_extension_subscriptions").
		Where(qb.Eq{"namespace": namespace, "pipeline": pipeline, "extension": extension, "label": label}).
		MustSql()

	subscription := PipelineExtensionSubscription{}
	err := conn.Get(&subscription, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PipelineExtensionSubscription{}, ErrEntityNotFound
		}

		return PipelineExtensionSubscription{}, fmt.Errorf("database error occurred: %v; %w", err, ErrInternal)
	}

	return subscription, nil
}

func (db *DB) UpdatePipelineExtensionSubscription(conn Queryable, namespace, pipeline, extension, label string,
	fields UpdatablePipelineExtensionSubscriptionFields,
) error {
	query := qb.Update("pipeline_extension_subscriptions")

	if fields.Settings != nil {
		query = query.Set("settings", fields.Settings)
	}

	if fields.Status != nil {
		query = query.Set("status", fields.Status)
	}

	if fields.StatusReason != nil {
		query = query.Set("status_reason", fields.StatusReason)
	}

	_, err := query.Where(qb.Eq{
		"namespace": namespace, "pipeline": pipeline, "extension": extension, "label": label,
	}).RunWith(conn).Exec()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntityNotFound
		}

		return fmt.Errorf("database error occurred: %v; %w", err, ErrInternal)
	}

	return nil
}

func (db *DB) DeletePipelineExtensionSubscription(conn Queryable, namespace, pipeline, extension, label string) error {
	_, err := qb.Delete("pipeline_extension_subscriptions").
		Where(qb.Eq{"namespace": namespace, "pipeline": pipeline, "extension": extension, "label": label}).
		RunWith(conn).Exec()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}

		return fmt.Errorf("database error occurred: %v; %w", err, ErrInternal)
	}

	return nil
}
