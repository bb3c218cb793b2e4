// Package history keeps a local activity log of connections and row
// mutations. It feeds the dashboard's recent activity and the History tab
// of a record.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadopc/supadmin/internal/config"
)

var schemaSQL = []string{`CREATE TABLE IF NOT EXISTS activity (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	action     TEXT NOT NULL,
	table_name TEXT NOT NULL DEFAULT '',
	record_id  TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	backend    TEXT NOT NULL DEFAULT '',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE INDEX IF NOT EXISTS activity_record ON activity (table_name, record_id)`,
}

// Action is the kind of recorded activity.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionConnect    Action = "connect"
	ActionDisconnect Action = "disconnect"
)

// Entry is one line of activity.
type Entry struct {
	ID        int64     `json:"id"`
	Action    Action    `json:"action"`
	Table     string    `json:"table,omitempty"`
	RecordID  string    `json:"recordId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Backend   string    `json:"backend,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// History provides SQLite-backed activity storage.
type History struct {
	db *sql.DB
}

// New opens (or creates) the history database at ConfigDir()/history.db.
func New() (*History, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("history: config dir: %w", err)
	}
	return Open(filepath.Join(dir, "history.db"))
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	for _, stmt := range schemaSQL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: create schema: %w", err)
		}
	}
	return &History{db: db}, nil
}

// Add inserts a new entry. A zero CreatedAt is set to now.
func (h *History) Add(e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := h.db.Exec(
		`INSERT INTO activity (action, table_name, record_id, detail, backend, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.Action),
		e.Table,
		e.RecordID,
		e.Detail,
		e.Backend,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("history add: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (h *History) Recent(limit int) ([]Entry, error) {
	rows, err := h.db.Query(
		`SELECT id, action, table_name, record_id, detail, backend, created_at
		 FROM activity
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ForRecord returns the entries of one row, newest first.
func (h *History) ForRecord(table, recordID string, limit int) ([]Entry, error) {
	rows, err := h.db.Query(
		`SELECT id, action, table_name, record_id, detail, backend, created_at
		 FROM activity
		 WHERE table_name = ? AND record_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		table, recordID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history record: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search returns entries whose table or detail matches the SQL LIKE
// pattern, newest first.
func (h *History) Search(pattern string, limit int) ([]Entry, error) {
	rows, err := h.db.Query(
		`SELECT id, action, table_name, record_id, detail, backend, created_at
		 FROM activity
		 WHERE table_name LIKE ? OR detail LIKE ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history search: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// LastActivity returns the time of the newest entry, or the zero time.
func (h *History) LastActivity() (time.Time, error) {
	entries, err := h.Recent(1)
	if err != nil || len(entries) == 0 {
		return time.Time{}, err
	}
	return entries[0].CreatedAt, nil
}

// Clear deletes all entries.
func (h *History) Clear() error {
	if _, err := h.db.Exec(`DELETE FROM activity`); err != nil {
		return fmt.Errorf("history clear: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// scanEntries reads all rows from the result set.
func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			action string
		)
		if err := rows.Scan(
			&e.ID,
			&action,
			&e.Table,
			&e.RecordID,
			&e.Detail,
			&e.Backend,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		e.Action = Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return entries, nil
}
