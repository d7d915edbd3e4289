//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/freeeve/orderdesk/internal/model"
	"github.com/freeeve/orderdesk/internal/testutil"
)

var testRDB *goredis.Client

func setup(t *testing.T) *Client {
	t.Helper()
	if testRDB == nil {
		testRDB = testutil.SetupRedis(t)
	}
	testutil.CleanupRedis(t, testRDB)
	return &Client{rdb: testRDB}
}

func TestJournalNewestFirst(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	for i, o := range []string{"A PAR H", "A PAR - BUR"} {
		e := model.JournalEntry{ID: fmt.Sprint(i), Kind: model.JournalOrder, Party: "FRANCE", Order: o, CreatedAt: time.Now().UTC()}
		if err := c.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := c.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Order != "A PAR - BUR" || got[1].Order != "A PAR H" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestJournalCapped(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	for i := 0; i < JournalCap+20; i++ {
		if err := c.Record(ctx, model.JournalEntry{ID: fmt.Sprint(i), Kind: model.JournalProcess}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	n, err := testRDB.LLen(ctx, journalKey).Result()
	if err != nil {
		t.Fatalf("llen: %v", err)
	}
	if n != JournalCap {
		t.Fatalf("expected %d entries, got %d", JournalCap, n)
	}
	got, err := c.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if got[0].ID != fmt.Sprint(JournalCap+19) {
		t.Fatalf("expected newest entry first, got %s", got[0].ID)
	}
}

func TestJournalRecentZero(t *testing.T) {
	c := setup(t)
	got, err := c.Recent(context.Background(), 0)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}
}
