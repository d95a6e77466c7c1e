/*
Package journal provides the SQLite-backed run journal.

PURPOSE:
  Makes pipeline outcomes observable. The ledger CSV stays the canonical
  data store, but a ledger row alone cannot tell "no sales that day"
  apart from "the fetch failed" - the journal can. Every update/refresh
  run and every per-day outcome (pages fetched, payments counted, or the
  failure that stopped the run) is recorded append-only.

KEY TABLES:
  runs:     one row per update/refresh invocation
  run_days: one row per attempted day, ok or failed

APPEND-ONLY ENFORCEMENT:
  run_days rows are never updated or deleted; a re-run of a failed day
  adds a new row, and queries look at the most recent row per date.
  Only a run's status/finished_at transition from 'running'.

WAL MODE:
  SQLite is opened with WAL so the HTTP read surface can query while a
  run is writing. Tests use a file in a temp dir; an in-memory DSN does
  not survive database/sql's connection pooling.

SEE ALSO:
  - aggregate/orchestrator.go: the Recorder interface this implements
  - api: read-only views over runs and incomplete days
*/
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sunrise/sales-engine/aggregate"
)

// Store implements aggregate.Recorder on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (and migrates) the journal database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Runs (one per update/refresh invocation)
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		message TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	-- Day outcomes (append-only; re-runs add new rows)
	CREATE TABLE IF NOT EXISTS run_days (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		counted INTEGER NOT NULL DEFAULT 0,
		excluded INTEGER NOT NULL DEFAULT 0,
		gross_usd TEXT,
		error TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_run_days_date ON run_days(date);
	CREATE INDEX IF NOT EXISTS idx_run_days_run ON run_days(run_id);
	CREATE INDEX IF NOT EXISTS idx_run_days_status ON run_days(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORDER IMPLEMENTATION (aggregate.Recorder)
// =============================================================================

const dateLayout = "2006-01-02"

// BeginRun opens a run record and returns its id.
func (s *Store) BeginRun(ctx context.Context, mode string, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (mode, from_date, to_date, status, started_at)
		 VALUES (?, ?, ?, 'running', ?)`,
		mode, from.Format(dateLayout), to.Format(dateLayout),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("journal: begin run: %w", err)
	}
	return res.LastInsertId()
}

// RecordDay appends one day outcome.
func (s *Store) RecordDay(ctx context.Context, runID int64, date time.Time, outcome aggregate.DayOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_days (run_id, date, status, pages, counted, excluded, gross_usd, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, date.Format(dateLayout), outcome.Status,
		outcome.Stats.Pages, outcome.Stats.Counted, outcome.Stats.Excluded,
		outcome.GrossUSD, outcome.Error,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("journal: record day: %w", err)
	}
	return nil
}

// FinishRun closes a run record with a final status.
func (s *Store) FinishRun(ctx context.Context, runID int64, status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, message = ?, finished_at = ? WHERE id = ?`,
		status, message, time.Now().UTC().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("journal: finish run: %w", err)
	}
	return nil
}

// =============================================================================
// READ SIDE
// =============================================================================

// Run is one journaled pipeline invocation.
type Run struct {
	ID         int64  `json:"id"`
	Mode       string `json:"mode"`
	FromDate   string `json:"from_date"`
	ToDate     string `json:"to_date"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// Day is one journaled day outcome.
type Day struct {
	RunID    int64  `json:"run_id"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	Pages    int    `json:"pages"`
	Counted  int    `json:"counted"`
	Excluded int    `json:"excluded"`
	GrossUSD string `json:"gross_usd,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, from_date, to_date, status,
		        COALESCE(message, ''), started_at, COALESCE(finished_at, '')
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Mode, &r.FromDate, &r.ToDate, &r.Status,
			&r.Message, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// IncompleteDays returns dates whose MOST RECENT outcome is a failure,
// i.e. days still missing from the ledger because a run stopped on them.
func (s *Store) IncompleteDays(ctx context.Context) ([]Day, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, date, status, pages, counted, excluded,
		        COALESCE(gross_usd, ''), COALESCE(error, '')
		 FROM run_days rd
		 WHERE id = (SELECT MAX(id) FROM run_days WHERE date = rd.date)
		   AND status = 'failed'
		 ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("journal: incomplete days: %w", err)
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		var d Day
		if err := rows.Scan(&d.RunID, &d.Date, &d.Status, &d.Pages, &d.Counted,
			&d.Excluded, &d.GrossUSD, &d.Error); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// RunDays returns every day outcome of one run, in date order.
func (s *Store) RunDays(ctx context.Context, runID int64) ([]Day, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, date, status, pages, counted, excluded,
		        COALESCE(gross_usd, ''), COALESCE(error, '')
		 FROM run_days WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: run days: %w", err)
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		var d Day
		if err := rows.Scan(&d.RunID, &d.Date, &d.Status, &d.Pages, &d.Counted,
			&d.Excluded, &d.GrossUSD, &d.Error); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
