package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Outcome is what happened to one scheduled entry.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeFallback  Outcome = "fallback"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeLost      Outcome = "lost"
)

// Counts are the per-run totals.
type Counts struct {
	Requested         int
	Committed         int
	Fallbacks         int
	MutationFallbacks int
	Skipped           int
	Lost              int
}

// Run is one recorded backfill run.
type Run struct {
	ID          int64
	RepoPath    string
	Mode        string
	Preset      string
	Seed        int64
	WindowStart time.Time
	WindowEnd   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time // zero while the run is in progress
	Interrupted bool
	Counts
}

// Entry is the recorded outcome of one scheduled entry.
type Entry struct {
	Seq       int
	Timestamp time.Time
	Path      string
	Message   string
	Outcome   Outcome
	// MutationFallback is set when a fallback artifact replaced the edit.
	MutationFallback bool
	Error            string
}

// Journal stores runs and their entries in SQLite.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One writer; avoids "database is locked" between pooled connections.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, path: dbPath}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		repo_path TEXT NOT NULL,
		mode TEXT NOT NULL,
		preset TEXT NOT NULL DEFAULT '',
		seed INTEGER NOT NULL DEFAULT 0,
		window_start INTEGER NOT NULL,
		window_end INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		interrupted BOOLEAN NOT NULL DEFAULT 0,
		requested INTEGER NOT NULL DEFAULT 0,
		committed INTEGER NOT NULL DEFAULT 0,
		fallbacks INTEGER NOT NULL DEFAULT 0,
		mutation_fallbacks INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		lost INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		scheduled_at INTEGER NOT NULL,
		path TEXT NOT NULL,
		message TEXT NOT NULL,
		outcome TEXT NOT NULL,
		mutation_fallback BOOLEAN NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_repo ON runs(repo_path);
	CREATE INDEX IF NOT EXISTS idx_entries_run ON entries(run_id, seq);
	`

	_, err := j.db.Exec(schema)
	return err
}

// BeginRun records the start of a run and returns its ID. Earlier runs of
// the same repository that never finished are closed first as interrupted,
// with counts rebuilt from their recorded entries. Callers hold the
// repository lock, so no such run can still be in progress.
func (j *Journal) BeginRun(ctx context.Context, run Run) (int64, error) {
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	if err := j.closeAbandoned(ctx, run.RepoPath, started); err != nil {
		return 0, err
	}

	res, err := j.db.ExecContext(ctx, `
	INSERT INTO runs (repo_path, mode, preset, seed, window_start, window_end, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RepoPath, run.Mode, run.Preset, run.Seed,
		run.WindowStart.Unix(), run.WindowEnd.Unix(), started.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to record run start: %w", err)
	}
	return res.LastInsertId()
}

func (j *Journal) closeAbandoned(ctx context.Context, repoPath string, now time.Time) error {
	_, err := j.db.ExecContext(ctx, `
	UPDATE runs
	SET finished_at = ?,
	    interrupted = 1,
	    requested = (SELECT COUNT(*) FROM entries e WHERE e.run_id = runs.id),
	    committed = (SELECT COUNT(*) FROM entries e WHERE e.run_id = runs.id AND e.outcome IN (?, ?)),
	    fallbacks = (SELECT COUNT(*) FROM entries e WHERE e.run_id = runs.id AND e.outcome = ?),
	    mutation_fallbacks = (SELECT COUNT(*) FROM entries e WHERE e.run_id = runs.id AND e.mutation_fallback),
	    skipped = (SELECT COUNT(*) FROM entries e WHERE e.run_id = runs.id AND e.outcome = ?),
	    lost = (SELECT COUNT(*) FROM entries e WHERE e.run_id = runs.id AND e.outcome = ?)
	WHERE repo_path = ? AND finished_at IS NULL`,
		now.Unix(), string(OutcomeCommitted), string(OutcomeFallback), string(OutcomeFallback),
		string(OutcomeSkipped), string(OutcomeLost), repoPath)
	if err != nil {
		return fmt.Errorf("failed to close abandoned runs: %w", err)
	}
	return nil
}

// RecordEntry stores the outcome of one entry of runID.
func (j *Journal) RecordEntry(ctx context.Context, runID int64, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
	INSERT INTO entries (run_id, seq, scheduled_at, path, message, outcome, mutation_fallback, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, e.Seq, e.Timestamp.Unix(), e.Path, e.Message, string(e.Outcome), e.MutationFallback, e.Error)
	if err != nil {
		return fmt.Errorf("failed to record entry %d: %w", e.Seq, err)
	}
	return nil
}

// FinishRun stores the final counts of runID.
func (j *Journal) FinishRun(ctx context.Context, runID int64, counts Counts, interrupted bool) error {
	res, err := j.db.ExecContext(ctx, `
	UPDATE runs
	SET finished_at = ?, interrupted = ?, requested = ?, committed = ?, fallbacks = ?,
	    mutation_fallbacks = ?, skipped = ?, lost = ?
	WHERE id = ?`,
		time.Now().Unix(), interrupted, counts.Requested, counts.Committed, counts.Fallbacks,
		counts.MutationFallbacks, counts.Skipped, counts.Lost, runID)
	if err != nil {
		return fmt.Errorf("failed to record run end: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first. An empty repoPath
// matches every repository.
func (j *Journal) RecentRuns(ctx context.Context, repoPath string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := j.db.QueryContext(ctx, `
	SELECT id, repo_path, mode, preset, seed, window_start, window_end, started_at, finished_at,
	       interrupted, requested, committed, fallbacks, mutation_fallbacks, skipped, lost
	FROM runs
	WHERE ? = '' OR repo_path = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?`, repoPath, repoPath, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var windowStart, windowEnd, started int64
		var finished sql.NullInt64
		if err := rows.Scan(&r.ID, &r.RepoPath, &r.Mode, &r.Preset, &r.Seed, &windowStart, &windowEnd,
			&started, &finished, &r.Interrupted, &r.Requested, &r.Committed, &r.Fallbacks,
			&r.MutationFallbacks, &r.Skipped, &r.Lost); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.WindowStart = time.Unix(windowStart, 0)
		r.WindowEnd = time.Unix(windowEnd, 0)
		r.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			r.FinishedAt = time.Unix(finished.Int64, 0)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Entries returns the recorded entries of runID in schedule order.
func (j *Journal) Entries(ctx context.Context, runID int64) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
	SELECT seq, scheduled_at, path, message, outcome, mutation_fallback, error
	FROM entries
	WHERE run_id = ?
	ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var scheduled int64
		var outcome string
		if err := rows.Scan(&e.Seq, &scheduled, &e.Path, &e.Message, &outcome, &e.MutationFallback, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Timestamp = time.Unix(scheduled, 0)
		e.Outcome = Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
