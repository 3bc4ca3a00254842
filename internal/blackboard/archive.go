package blackboard

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Archive persists the final state of run blackboards for post-run
// diagnostics. The live Board stays in memory; Archive is written once,
// at run end.
type Archive struct {
	conn *sql.DB
}

// OpenArchive opens (or creates) the archive database at path.
// WAL mode is enabled for concurrent reads.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS blackboard_entries (
		run_id      TEXT NOT NULL,
		key         TEXT NOT NULL,
		value       TEXT NOT NULL,
		writer_role TEXT NOT NULL,
		version     INTEGER NOT NULL,
		written_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, key)
	)`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Archive{conn: conn}, nil
}

// Store writes every entry of the board under the given run ID.
// Re-archiving a run replaces its previous entries.
func (a *Archive) Store(runID string, board *Board) error {
	tx, err := a.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM blackboard_entries WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clear previous archive: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO blackboard_entries
		(run_id, key, value, writer_role, version, written_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range board.Snapshot() {
		if _, err := stmt.Exec(runID, e.Key, e.Value, e.WriterRole, e.Version, e.WrittenAt); err != nil {
			return fmt.Errorf("archive entry %q: %w", e.Key, err)
		}
	}

	return tx.Commit()
}

// Load returns the archived entries for a run, ordered by key.
func (a *Archive) Load(runID string) ([]Entry, error) {
	rows, err := a.conn.Query(`SELECT key, value, writer_role, version, written_at
		FROM blackboard_entries WHERE run_id = ? ORDER BY key`, runID)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var writtenAt time.Time
		if err := rows.Scan(&e.Key, &e.Value, &e.WriterRole, &e.Version, &writtenAt); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		e.WrittenAt = writtenAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the archive database.
func (a *Archive) Close() error {
	return a.conn.Close()
}
