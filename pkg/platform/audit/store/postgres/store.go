// Package postgres persists audit events to an append-only table.
//
// The table carries no UPDATE or DELETE paths through this code; immutability
// is additionally enforced by schema grants in deployment.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "garrison/pkg/domain"
	audit "garrison/pkg/platform/audit"
)

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema is the DDL for the audit_events table, used by migrations and
// integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id            UUID PRIMARY KEY,
	category      TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL,
	actor_id      UUID,
	session_id    UUID,
	ip_address    TEXT NOT NULL DEFAULT '',
	user_agent    TEXT NOT NULL DEFAULT '',
	request_id    TEXT NOT NULL DEFAULT '',
	resource_type TEXT NOT NULL,
	resource_id   TEXT NOT NULL DEFAULT '',
	action        TEXT NOT NULL,
	field_name    TEXT NOT NULL DEFAULT '',
	old_value     TEXT NOT NULL DEFAULT '',
	new_value     TEXT NOT NULL DEFAULT '',
	failed        BOOLEAN NOT NULL DEFAULT FALSE,
	details       TEXT NOT NULL DEFAULT '',
	corrects_id   UUID,
	severity      TEXT NOT NULL,
	risk_score    INT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events (actor_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_events_severity ON audit_events (severity, timestamp);
`

// Append inserts one audit event. Duplicate IDs are ignored so retries of an
// in-flight write stay idempotent.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, actor_id, session_id,
			ip_address, user_agent, request_id,
			resource_type, resource_id, action, field_name,
			old_value, new_value, failed, details, corrects_id,
			severity, risk_score
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		string(event.Category),
		event.Timestamp,
		nullableUUID(uuid.UUID(event.ActorID)),
		nullableUUID(uuid.UUID(event.SessionID)),
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		event.ResourceType,
		event.ResourceID,
		event.Action,
		event.FieldName,
		event.OldValue,
		event.NewValue,
		event.Failed,
		event.Details,
		nullableUUID(uuid.UUID(event.CorrectsID)),
		string(event.Severity),
		event.RiskScore,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListRecent returns the most recent N events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, actor_id, session_id,
		       ip_address, user_agent, request_id,
		       resource_type, resource_id, action, field_name,
		       old_value, new_value, failed, details, corrects_id,
		       severity, risk_score
		FROM (
			SELECT * FROM audit_events ORDER BY timestamp DESC LIMIT $1
		) recent
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// ListByActor returns all events for one actor, oldest first.
func (s *Store) ListByActor(ctx context.Context, actorID id.ActorID) ([]audit.Event, error) {
	query := `
		SELECT id, category, timestamp, actor_id, session_id,
		       ip_address, user_agent, request_id,
		       resource_type, resource_id, action, field_name,
		       old_value, new_value, failed, details, corrects_id,
		       severity, risk_score
		FROM audit_events
		WHERE actor_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(actorID))
	if err != nil {
		return nil, fmt.Errorf("query audit events by actor: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (audit.Event, error) {
	var (
		event      audit.Event
		eventID    uuid.UUID
		actorID    *uuid.UUID
		sessionID  *uuid.UUID
		correctsID *uuid.UUID
		category   string
		severity   string
	)
	err := rows.Scan(
		&eventID, &category, &event.Timestamp, &actorID, &sessionID,
		&event.IPAddress, &event.UserAgent, &event.RequestID,
		&event.ResourceType, &event.ResourceID, &event.Action, &event.FieldName,
		&event.OldValue, &event.NewValue, &event.Failed, &event.Details, &correctsID,
		&severity, &event.RiskScore,
	)
	if err != nil {
		return audit.Event{}, fmt.Errorf("scan audit event: %w", err)
	}

	event.ID = id.EventID(eventID)
	event.Category = audit.Category(category)
	event.Severity = audit.Severity(severity)
	if actorID != nil {
		event.ActorID = id.ActorID(*actorID)
	}
	if sessionID != nil {
		event.SessionID = id.SessionID(*sessionID)
	}
	if correctsID != nil {
		event.CorrectsID = id.EventID(*correctsID)
	}
	return event, nil
}

func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}
