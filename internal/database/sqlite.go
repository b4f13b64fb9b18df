package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dropmirror/internal/database/migrations"
	"dropmirror/internal/mirror"
	"dropmirror/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// SQLiteHistory implements mirror.History on top of SQLite.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// NewSQLiteHistory opens the history database at path (or ":memory:") and
// brings its schema up to date.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema out of date: %w", err)
	}

	return &SQLiteHistory{db: db, path: path}, nil
}

// OpenConnection opens a SQLite connection pool with foreign keys enforced
// and a busy timeout on every connection. An in-memory database is pinned to
// a single connection; each new connection to ":memory:" would otherwise see
// its own empty database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// CreateRun inserts a new run record.
func (s *SQLiteHistory) CreateRun(run *model.Run) error {
	if run.Status == "" {
		run.Status = model.RunRunning
	}
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO runs (id, mode, root_dir, started_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.RootDir, run.StartedAt.UTC(), run.Status,
	)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// RecordCollection stores one collection and all its items in a single transaction.
func (s *SQLiteHistory) RecordCollection(rc *model.RunCollection) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO run_collections (run_id, position, collection_id, name, dir, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rc.RunID, rc.Position, rc.CollectionID, rc.Name, rc.Dir, rc.Status, rc.Error,
	)
	if err != nil {
		return fmt.Errorf("recording collection %s: %w", rc.CollectionID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_items (run_id, position, item_index, item_id, type, outcome, path, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for i, it := range rc.Items {
		_, err := stmt.ExecContext(ctx, rc.RunID, rc.Position, i, it.ItemID, it.Type, it.Outcome, it.Path, it.Bytes, it.Error)
		if err != nil {
			return fmt.Errorf("recording item %s: %w", it.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FinishRun stores the run's final status and counters.
func (s *SQLiteHistory) FinishRun(run *model.Run) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}

	res, err := s.db.ExecContext(context.Background(), `
		UPDATE runs
		SET finished_at = ?, status = ?, collections = ?, aborted = ?, written = ?, skipped = ?, failed = ?
		WHERE id = ?`,
		finished, run.Status, run.Collections, run.Aborted, run.Written, run.Skipped, run.Failed, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteHistory) ListRuns(limit int) ([]*model.Run, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT id, mode, root_dir, started_at, finished_at, status, collections, aborted, written, skipped, failed
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		var r model.Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Mode, &r.RootDir, &r.StartedAt, &finished, &r.Status,
			&r.Collections, &r.Aborted, &r.Written, &r.Skipped, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// ListRunCollections returns the collections of one run in processing order,
// each with its items.
func (s *SQLiteHistory) ListRunCollections(runID string) ([]*model.RunCollection, error) {
	ctx := context.Background()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, position, collection_id, name, dir, status, error
		FROM run_collections
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing run collections: %w", err)
	}

	var collections []*model.RunCollection
	for rows.Next() {
		var rc model.RunCollection
		if err := rows.Scan(&rc.RunID, &rc.Position, &rc.CollectionID, &rc.Name, &rc.Dir, &rc.Status, &rc.Error); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run collection: %w", err)
		}
		collections = append(collections, &rc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("listing run collections: %w", err)
	}
	rows.Close()

	for _, rc := range collections {
		items, err := s.listRunItems(ctx, rc.RunID, rc.Position)
		if err != nil {
			return nil, err
		}
		rc.Items = items
	}
	return collections, nil
}

func (s *SQLiteHistory) listRunItems(ctx context.Context, runID string, position int) ([]model.RunItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, type, outcome, path, bytes, error
		FROM run_items
		WHERE run_id = ? AND position = ?
		ORDER BY item_index`, runID, position)
	if err != nil {
		return nil, fmt.Errorf("listing run items: %w", err)
	}
	defer rows.Close()

	var items []model.RunItem
	for rows.Next() {
		var it model.RunItem
		if err := rows.Scan(&it.ItemID, &it.Type, &it.Outcome, &it.Path, &it.Bytes, &it.Error); err != nil {
			return nil, fmt.Errorf("scanning run item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing run items: %w", err)
	}
	return items, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteHistory) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteHistory) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteHistory implements mirror.History
var _ mirror.History = (*SQLiteHistory)(nil)
