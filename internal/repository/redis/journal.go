package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/freeeve/orderdesk/internal/model"
)

const (
	journalKey = "desk:journal"
	// JournalCap is the number of entries kept in the list.
	JournalCap = 500
)

// Record pushes e onto the journal list and trims it to JournalCap.
func (c *Client) Record(ctx context.Context, e model.JournalEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, journalKey, data)
	pipe.LTrim(ctx, journalKey, 0, JournalCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (c *Client) Recent(ctx context.Context, limit int) ([]model.JournalEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := c.rdb.LRange(ctx, journalKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	entries := make([]model.JournalEntry, 0, len(raw))
	for _, s := range raw {
		var e model.JournalEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("unmarshal journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
