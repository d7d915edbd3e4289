// Package sqlite keeps the desk journal in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/freeeve/orderdesk/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_journal (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	phase      TEXT NOT NULL DEFAULT '',
	party      TEXT NOT NULL DEFAULT '',
	unit       TEXT NOT NULL DEFAULT '',
	order_text TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS order_journal_created_at ON order_journal (created_at DESC);
`

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Journal is a SQLite-backed journal.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal table: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record inserts one entry.
func (j *Journal) Record(ctx context.Context, e model.JournalEntry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO order_journal (id, kind, phase, party, unit, order_text, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Phase, e.Party, e.Unit, e.Order, e.Detail, toMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]model.JournalEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, phase, party, unit, order_text, detail, created_at
		 FROM order_journal ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		var (
			e         model.JournalEntry
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Phase, &e.Party, &e.Unit, &e.Order, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
