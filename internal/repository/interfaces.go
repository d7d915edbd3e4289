package repository

import (
	"context"

	"github.com/freeeve/orderdesk/internal/model"
)

// Journal is an append-only log of desk events. The desk never reads its
// own state back from a journal.
type Journal interface {
	Record(ctx context.Context, e model.JournalEntry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]model.JournalEntry, error)
}

// NopJournal discards every entry.
type NopJournal struct{}

func (NopJournal) Record(context.Context, model.JournalEntry) error { return nil }

func (NopJournal) Recent(context.Context, int) ([]model.JournalEntry, error) { return nil, nil }
