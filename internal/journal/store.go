// Package journal persists task lifecycle events to an embedded SQLite
// database through a write-behind buffer.
//
// The journal is an audit trail only. It is never read back into the
// orchestrator at startup.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/ashita-ai/moltbot/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_events (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     TEXT    NOT NULL,
	task_type   TEXT    NOT NULL,
	kind        TEXT    NOT NULL,
	status      TEXT    NOT NULL,
	progress    INTEGER NOT NULL,
	msg_from    TEXT,
	msg_to      TEXT,
	msg_content TEXT,
	occurred_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS task_events_task_id ON task_events (task_id, seq);
`

// Store is the SQLite-backed event table.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertEvents writes events in one transaction, preserving slice order.
func (s *Store) InsertEvents(ctx context.Context, events []model.TaskEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	insertCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(insertCtx, nil)
	if err != nil {
		return 0, fmt.Errorf("journal: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(insertCtx, `
		INSERT INTO task_events
			(task_id, task_type, kind, status, progress, msg_from, msg_to, msg_content, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("journal: prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range events {
		var from, to, content sql.NullString
		if e.Message != nil {
			from = sql.NullString{String: e.Message.From, Valid: true}
			to = sql.NullString{String: e.Message.To, Valid: true}
			content = sql.NullString{String: e.Message.Content, Valid: true}
		}
		if _, err := stmt.ExecContext(insertCtx,
			e.TaskID, string(e.TaskType), string(e.Kind), string(e.Status), e.Progress,
			from, to, content, e.OccurredAt.UnixNano(),
		); err != nil {
			return 0, fmt.Errorf("journal: insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("journal: commit: %w", err)
	}
	return int64(len(events)), nil
}

// Events returns the stored events of one task in write order.
func (s *Store) Events(ctx context.Context, taskID string) ([]model.TaskEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, task_type, kind, status, progress, msg_from, msg_to, msg_content, occurred_at
		FROM task_events WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("journal: query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []model.TaskEvent{}
	for rows.Next() {
		var (
			e                 model.TaskEvent
			taskType          string
			kind, status      string
			from, to, content sql.NullString
			occurredAt        int64
		)
		if err := rows.Scan(&e.TaskID, &taskType, &kind, &status, &e.Progress,
			&from, &to, &content, &occurredAt); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		e.TaskType = model.TaskType(taskType)
		e.Kind = model.TaskEventKind(kind)
		e.Status = model.TaskStatus(status)
		e.OccurredAt = time.Unix(0, occurredAt).UTC()
		if content.Valid {
			e.Message = &model.Message{
				Timestamp: e.OccurredAt,
				From:      from.String,
				To:        to.String,
				Content:   content.String,
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
