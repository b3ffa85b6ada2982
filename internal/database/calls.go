package database

import (
	"database/sql"
	"fmt"
	"time"

	"homekeys/server/internal/models"
)

// RecordCall stores one call attempt
func (d *Database) RecordCall(event models.CallEvent) error {
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := d.db.Exec(`
		INSERT INTO call_logs (phone, session_id, accepted, call_id, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		event.Phone,
		nullString(event.SessionID),
		event.Outcome.Accepted,
		nullString(event.Outcome.CallID),
		event.Outcome.Message,
		at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}
	return nil
}

// HandleCallEvent lets the call log subscribe to the event queue
func (d *Database) HandleCallEvent(event models.CallEvent) error {
	return d.RecordCall(event)
}

// RecentCalls returns the latest call attempts, newest first. A non-empty
// sessionID restricts the result to that session.
func (d *Database) RecentCalls(sessionID string, limit int) ([]models.CallEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.db.Query(`
		SELECT phone, COALESCE(session_id, ''), accepted, COALESCE(call_id, ''), COALESCE(message, ''), created_at
		FROM call_logs
		WHERE (? = '' OR session_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query call logs: %w", err)
	}
	defer rows.Close()

	events := make([]models.CallEvent, 0)
	for rows.Next() {
		var ev models.CallEvent
		if err := rows.Scan(
			&ev.Phone,
			&ev.SessionID,
			&ev.Outcome.Accepted,
			&ev.Outcome.CallID,
			&ev.Outcome.Message,
			&ev.At,
		); err != nil {
			return nil, fmt.Errorf("failed to scan call log: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate call logs: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
