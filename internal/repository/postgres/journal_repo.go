package postgres

import (
	"context"
	"database/sql"
	"fmt"

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
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS order_journal_created_at ON order_journal (created_at DESC);
`

// Migrate creates the journal table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// JournalRepo stores desk journal entries in PostgreSQL.
type JournalRepo struct {
	db *sql.DB
}

// NewJournalRepo creates a JournalRepo.
func NewJournalRepo(db *sql.DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Record inserts one entry.
func (r *JournalRepo) Record(ctx context.Context, e model.JournalEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO order_journal (id, kind, phase, party, unit, order_text, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Kind, e.Phase, e.Party, e.Unit, e.Order, e.Detail, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *JournalRepo) Recent(ctx context.Context, limit int) ([]model.JournalEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, phase, party, unit, order_text, detail, created_at
		 FROM order_journal ORDER BY created_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		var e model.JournalEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Phase, &e.Party, &e.Unit, &e.Order, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
