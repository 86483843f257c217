// Package history keeps finished run reports in a local SQLite file.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	query       TEXT NOT NULL,
	status      TEXT NOT NULL,
	goal_met    INTEGER NOT NULL,
	iterations  INTEGER NOT NULL,
	candidates  INTEGER NOT NULL,
	ranked      INTEGER NOT NULL,
	model       TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	report      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

type Store struct {
	conn *sql.DB
	path string
}

// Entry is the listing row of a stored run.
type Entry struct {
	RunID      string
	Query      string
	Status     agent.Status
	GoalMet    bool
	Iterations int
	Candidates int
	Ranked     int
	Model      string
	StartedAt  time.Time
}

// Open opens (and creates when missing) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.conn.Close()
}

// Save stores the report, replacing an earlier one with the same run ID.
func (s *Store) Save(ctx context.Context, report *agent.Report) error {
	if report == nil || report.RunID == "" {
		return errors.New("report has no run id")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(run_id, query, status, goal_met, iterations, candidates, ranked, model, started_at, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.Query,
		string(report.Status),
		report.GoalMet,
		report.Iterations,
		report.CandidatesFound,
		len(report.FinalRankings),
		report.BackendStats.Model,
		report.StartedAt.UTC(),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", report.RunID, err)
	}
	return nil
}

// List returns the most recent runs first. A limit of zero or less returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT run_id, query, status, goal_met, iterations, candidates, ranked, model, started_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			status string
		)
		if err := rows.Scan(&e.RunID, &e.Query, &status, &e.GoalMet, &e.Iterations, &e.Candidates, &e.Ranked, &e.Model, &e.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.Status = agent.Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the full report of a stored run.
func (s *Store) Get(ctx context.Context, runID string) (*agent.Report, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, `SELECT report FROM runs WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	var report agent.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &report, nil
}
