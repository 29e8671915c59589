// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DuckDBStore persists events in the prediction_events table.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore wraps db. Call CreateTable before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the prediction_events table and its indexes.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prediction_events (
			id             VARCHAR PRIMARY KEY,
			timestamp      TIMESTAMP NOT NULL,
			type           VARCHAR NOT NULL,
			input_data     VARCHAR,
			result         VARCHAR,
			model_version  VARCHAR,
			request_id     VARCHAR,
			correlation_id VARCHAR
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prediction_events_timestamp ON prediction_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_prediction_events_type ON prediction_events(type)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create prediction_events table: %w", err)
		}
	}
	return nil
}

// Save implements Store.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prediction_events (id, timestamp, type, input_data, result, model_version, request_id, correlation_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC(), string(event.Type), nullString(string(event.Input)), nullString(string(event.Result)),
		event.ModelVersion, nullString(event.RequestID), nullString(event.CorrelationID))
	if err != nil {
		return fmt.Errorf("failed to insert prediction event: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *DuckDBStore) Get(ctx context.Context, id string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM prediction_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return e, err
}

const eventColumns = `id, timestamp, type, input_data, result, model_version, request_id, correlation_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e                             Event
		typ                           string
		input, result, version, reqID sql.NullString
		correlationID                 sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Timestamp, &typ, &input, &result, &version, &reqID, &correlationID); err != nil {
		return nil, err
	}
	e.Type = PredictionType(typ)
	if input.Valid {
		e.Input = []byte(input.String)
	}
	if result.Valid {
		e.Result = []byte(result.String)
	}
	e.ModelVersion = version.String
	e.RequestID = reqID.String
	e.CorrelationID = correlationID.String
	return &e, nil
}

// buildWhere renders the filter as a WHERE clause and its arguments.
func buildWhere(filter QueryFilter) (string, []any) {
	var conds []string
	var args []any

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conds = append(conds, "type IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.ModelVersion != "" {
		conds = append(conds, "model_version = ?")
		args = append(args, filter.ModelVersion)
	}
	if filter.RequestID != "" {
		conds = append(conds, "request_id = ?")
		args = append(args, filter.RequestID)
	}
	if filter.StartTime != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.StartTime.UTC())
	}
	if filter.EndTime != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, filter.EndTime.UTC())
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query implements Store, newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + eventColumns + ` FROM prediction_events` + where + ` ORDER BY timestamp DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction event: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction events: %w", err)
	}
	return out, nil
}

// Count implements Store.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := buildWhere(filter)
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prediction_events`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count prediction events: %w", err)
	}
	return n, nil
}

// Delete implements Store.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prediction_events WHERE timestamp < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete prediction events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted row count: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
