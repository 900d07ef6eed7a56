package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DBLogger persists audit events to the audit_logs table
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates an audit logger backed by db
func NewDBLogger(db *sql.DB) *DBLogger {
	return &DBLogger{db: db}
}

// Record implements Logger
func (l *DBLogger) Record(ctx context.Context, event Event) error {
	details := event.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO audit_logs (event_type, organization_id, actor_id, subject_id, details)
		VALUES ($1, $2, $3, $4, $5)`,
		event.EventType, event.OrganizationID, event.ActorID, event.SubjectID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// Search returns audit events matching the filter, newest first
func (l *DBLogger) Search(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, event_type, organization_id, actor_id, subject_id, details, created_at
		FROM audit_logs
		WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.OrganizationID != 0 {
		query += fmt.Sprintf(" AND organization_id = $%d", argPos)
		args = append(args, filter.OrganizationID)
		argPos++
	}
	if len(filter.EventTypes) > 0 {
		query += fmt.Sprintf(" AND event_type = ANY($%d)", argPos)
		args = append(args, pq.Array(filter.EventTypes))
		argPos++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, filter.Since)
		argPos++
	}
	if !filter.Until.IsZero() {
		query += fmt.Sprintf(" AND created_at < $%d", argPos)
		args = append(args, filter.Until)
		argPos++
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payload []byte
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.EventType, &e.OrganizationID, &e.ActorID, &e.SubjectID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
			}
		}
		e.CreatedAt = createdAt
		events = append(events, e)
	}
	return events, rows.Err()
}
