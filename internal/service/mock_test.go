package service

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/freeeve/orderdesk/internal/model"
	"github.com/freeeve/orderdesk/internal/regions"
	"github.com/freeeve/orderdesk/internal/render"
	"github.com/freeeve/orderdesk/internal/selection"
	"github.com/freeeve/orderdesk/internal/testutil"
)

type mockJournal struct {
	mu      sync.Mutex
	entries []model.JournalEntry
	fail    bool
}

func (m *mockJournal) Record(_ context.Context, e model.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("journal down")
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockJournal) Recent(_ context.Context, limit int) ([]model.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.JournalEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *mockJournal) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Kind)
	}
	return out
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []string
	views  []model.DeskView
}

func (m *mockBroadcaster) BroadcastDeskEvent(eventType string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
	if v, ok := data.(model.DeskView); ok {
		m.views = append(m.views, v)
	}
}

func (m *mockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// classicRegions places the Classic() engine's regions on a 600x400 canvas.
func classicRegions(t *testing.T) *regions.Index {
	t.Helper()
	pts := map[string]image.Point{
		"CLY": {100, 40}, "EDI": {140, 50}, "NWG": {250, 20}, "NWY": {330, 60},
		"LVP": {110, 90}, "YOR": {150, 100}, "NTH": {230, 110}, "IRI": {40, 120},
		"WAL": {100, 140}, "LON": {150, 150}, "HOL": {290, 160}, "KIE": {350, 150},
		"ENG": {110, 190}, "BEL": {260, 200}, "RUH": {320, 210}, "MUN": {380, 260},
		"MAO": {30, 250}, "BRE": {90, 240}, "PIC": {170, 220}, "PAR": {160, 270},
		"BUR": {240, 270}, "GAS": {120, 320}, "MAR": {220, 340},
	}
	order := []string{"CLY", "EDI", "NWG", "NWY", "LVP", "YOR", "NTH", "IRI", "WAL", "LON", "HOL", "KIE",
		"ENG", "BEL", "RUH", "MUN", "MAO", "BRE", "PIC", "PAR", "BUR", "GAS", "MAR"}
	var rs []regions.Region
	for _, name := range order {
		rs = append(rs, regions.Region{Name: name, Center: pts[name]})
	}
	idx, err := regions.New(rs, image.Rect(0, 0, 600, 400))
	if err != nil {
		t.Fatalf("regions.New: %v", err)
	}
	return idx
}

type fixture struct {
	eng     *testutil.FakeEngine
	svc     *DeskService
	journal *mockJournal
	bc      *mockBroadcaster
	idx     *regions.Index
}

func newFixture(t *testing.T, mode selection.Interaction) *fixture {
	t.Helper()
	f := &fixture{
		eng:     testutil.Classic(),
		journal: &mockJournal{},
		bc:      &mockBroadcaster{},
		idx:     classicRegions(t),
	}
	f.svc = NewDeskService(f.eng, f.idx, render.BlankMap(600, 400), mode, f.journal, f.bc)
	return f
}

// click clicks the centre of region.
func (f *fixture) click(t *testing.T, region string) (model.DeskView, error) {
	t.Helper()
	r, ok := f.idx.Lookup(region)
	if !ok {
		t.Fatalf("no region %s", region)
	}
	return f.svc.Click(context.Background(), r.Center.X, r.Center.Y)
}
