package trace

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tembric/ensemble/pkg/models"
)

// Store persists trace events to sqlite so runs can be compared after
// the process exits.
type Store struct {
	conn *sql.DB
}

// OpenStore opens (or creates) the trace database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trace database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS trace_events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		step_index  INTEGER NOT NULL,
		stage_name  TEXT NOT NULL,
		started_at  TIMESTAMP NOT NULL,
		duration_ns INTEGER NOT NULL,
		cost        REAL NOT NULL,
		tokens_in   INTEGER NOT NULL,
		tokens_out  INTEGER NOT NULL,
		detail      TEXT NOT NULL DEFAULT ''
	)`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := conn.Exec("CREATE INDEX IF NOT EXISTS idx_trace_run ON trace_events(run_id)"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Save writes all of a collector's events in one transaction.
func (s *Store) Save(c *Collector) error {
	events := c.Events()
	if len(events) == 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin trace transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO trace_events
		(run_id, step_index, stage_name, started_at, duration_ns, cost, tokens_in, tokens_out, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trace insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.Exec(e.RunID, e.StepIndex, e.StageName, e.StartedAt,
			e.Duration.Nanoseconds(), e.Cost, e.TokensIn, e.TokensOut, e.Detail)
		if err != nil {
			return fmt.Errorf("insert trace event: %w", err)
		}
	}

	return tx.Commit()
}

// LoadRun returns all events for a run in insertion order.
func (s *Store) LoadRun(runID string) ([]models.TraceEvent, error) {
	rows, err := s.conn.Query(`SELECT run_id, step_index, stage_name, started_at,
		duration_ns, cost, tokens_in, tokens_out, detail
		FROM trace_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trace events: %w", err)
	}
	defer rows.Close()

	var events []models.TraceEvent
	for rows.Next() {
		var e models.TraceEvent
		var durationNS int64
		var startedAt time.Time
		err := rows.Scan(&e.RunID, &e.StepIndex, &e.StageName, &startedAt,
			&durationNS, &e.Cost, &e.TokensIn, &e.TokensOut, &e.Detail)
		if err != nil {
			return nil, fmt.Errorf("scan trace row: %w", err)
		}
		e.StartedAt = startedAt
		e.Duration = time.Duration(durationNS)
		events = append(events, e)
	}
	return events, rows.Err()
}

// RunIDs returns the distinct run IDs present in the store.
func (s *Store) RunIDs() ([]string, error) {
	rows, err := s.conn.Query("SELECT DISTINCT run_id FROM trace_events ORDER BY run_id")
	if err != nil {
		return nil, fmt.Errorf("query run ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the trace database.
func (s *Store) Close() error {
	return s.conn.Close()
}
