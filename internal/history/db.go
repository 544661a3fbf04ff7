// Package history keeps a SQLite record of completed agent runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vthunder/google-tasks-agent/internal/types"
)

// timeLayout is fixed width in UTC so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one completed, non-dry-run invocation
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Force      bool
	Summary    types.Summary
	Items      []types.ActionItem
}

// DB wraps the SQLite database connection for run history
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates the history database
func Open(dbPath string) (*DB, error) {
	// Same privacy as the state file
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	h := &DB{db: db, path: dbPath}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	_ = os.Chmod(dbPath, 0600)

	return h, nil
}

// Path returns the database file path
func (h *DB) Path() string {
	return h.path
}

// Close closes the database connection
func (h *DB) Close() error {
	return h.db.Close()
}

// migrate runs database migrations
func (h *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		forced INTEGER NOT NULL DEFAULT 0,
		emails_scanned INTEGER NOT NULL DEFAULT 0,
		action_items_found INTEGER NOT NULL DEFAULT 0,
		tasks_created INTEGER NOT NULL DEFAULT 0,
		duplicates_skipped INTEGER NOT NULL DEFAULT 0,
		secondary_tasks_created INTEGER NOT NULL DEFAULT 0,
		tasks_grouped INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at);

	CREATE TABLE IF NOT EXISTS run_items (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		message_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		sender TEXT NOT NULL,
		priority TEXT NOT NULL,
		source_type TEXT NOT NULL,
		action TEXT NOT NULL,
		due_date TEXT,
		related_meeting TEXT,
		item_group TEXT,
		create_task INTEGER NOT NULL DEFAULT 0,
		task_created INTEGER NOT NULL DEFAULT 0,
		notified_at TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_run_items_message ON run_items(message_id);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return err
	}

	var version int
	if err := h.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return err
	}
	if version < 1 {
		_, err := h.db.Exec("INSERT INTO schema_version (version, applied_at) VALUES (1, ?)",
			time.Now().UTC().Format(timeLayout))
		return err
	}
	return nil
}

// Record stores a run and its action items in one transaction
func (h *DB) Record(ctx context.Context, run Run) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	s := run.Summary
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, forced, emails_scanned, action_items_found,
			tasks_created, duplicates_skipped, secondary_tasks_created, tasks_grouped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.Force, s.EmailsScanned, s.ActionItemsFound, s.TasksCreated, s.DuplicatesSkipped,
		s.SecondaryTasksCreated, s.TasksGrouped)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_items (run_id, position, message_id, subject, sender, priority, source_type,
			action, due_date, related_meeting, item_group, create_task, task_created, notified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range run.Items {
		_, err := stmt.ExecContext(ctx, run.ID, i, item.ID, item.Subject, item.Sender,
			string(item.Priority), string(item.SourceType), item.Action,
			nullable(item.DueDate), nullable(item.RelatedMeeting), nullable(item.Group),
			item.CreateTask, item.TaskCreated, item.NotifiedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Recent returns up to n runs, newest first, with their items
func (h *DB) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, forced, emails_scanned, action_items_found,
			tasks_created, duplicates_skipped, secondary_tasks_created, tasks_grouped
		FROM runs ORDER BY finished_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		s := &r.Summary
		if err := rows.Scan(&r.ID, &started, &finished, &r.Force, &s.EmailsScanned,
			&s.ActionItemsFound, &s.TasksCreated, &s.DuplicatesSkipped,
			&s.SecondaryTasksCreated, &s.TasksGrouped); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range runs {
		items, err := h.items(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Items = items
	}
	return runs, nil
}

func (h *DB) items(ctx context.Context, runID string) ([]types.ActionItem, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT message_id, subject, sender, priority, source_type, action, due_date,
			related_meeting, item_group, create_task, task_created, notified_at
		FROM run_items WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []types.ActionItem
	for rows.Next() {
		var item types.ActionItem
		var priority, source, notified string
		var due, meeting, group sql.NullString
		if err := rows.Scan(&item.ID, &item.Subject, &item.Sender, &priority, &source,
			&item.Action, &due, &meeting, &group, &item.CreateTask, &item.TaskCreated,
			&notified); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Priority = types.ParsePriority(priority)
		item.SourceType = types.ParseSourceType(source)
		item.DueDate = fromNullable(due)
		item.RelatedMeeting = fromNullable(meeting)
		item.Group = fromNullable(group)
		item.NotifiedAt, _ = time.Parse(time.RFC3339Nano, notified)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Count returns the number of recorded runs
func (h *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
