// Package testutil provides an in-memory adjudication engine for unit tests
// and helpers for integration tests that run against real Postgres and Redis
// instances.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/freeeve/orderdesk/internal/engine"
)

// FakeEngine is an in-memory engine.Engine. It holds a scripted region graph,
// units and order lists, validates order syntax only, and resolves a turn by
// moving every unit whose move destination is free. Failures can be injected
// per call.
type FakeEngine struct {
	mu sync.Mutex

	phase   int
	parties []engine.Party
	units   map[engine.Party][]engine.Unit
	orders  map[engine.Party][]string
	adj     map[string][]string
	kinds   map[string]engine.RegionKind

	initial map[engine.Party][]engine.Unit

	// SetOrdersErr, when non-nil, is returned by the next SetOrders call.
	SetOrdersErr error
	// ProcessErr, when non-nil, is returned by every Process call.
	ProcessErr error
	// OrdersErr, when non-nil, is returned by every Orders call.
	OrdersErr error

	calls []string
}

// NewFakeEngine returns an empty engine with no parties or regions.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		units:   make(map[engine.Party][]engine.Unit),
		orders:  make(map[engine.Party][]string),
		adj:     make(map[string][]string),
		kinds:   make(map[string]engine.RegionKind),
		initial: make(map[engine.Party][]engine.Unit),
	}
}

// AddRegion declares a region of the given kind.
func (f *FakeEngine) AddRegion(name string, kind engine.RegionKind) *FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds[name] = kind
	return f
}

// Connect makes a and b adjacent in both directions.
func (f *FakeEngine) Connect(a, b string) *FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.adj[a], b) {
		f.adj[a] = append(f.adj[a], b)
	}
	if !slices.Contains(f.adj[b], a) {
		f.adj[b] = append(f.adj[b], a)
	}
	return f
}

// AddUnit places a unit such as "A PAR" for party. It panics on a malformed
// unit string.
func (f *FakeEngine) AddUnit(party engine.Party, unit string) *FakeEngine {
	u, err := engine.ParseUnit(unit, party)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.parties, party) {
		f.parties = append(f.parties, party)
	}
	f.units[party] = append(f.units[party], u)
	f.initial[party] = append(f.initial[party], u)
	return f
}

// AddParty registers a party with no units.
func (f *FakeEngine) AddParty(party engine.Party) *FakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.parties, party) {
		f.parties = append(f.parties, party)
	}
	return f
}

// SetPending sets a party's order list without going through SetOrders.
func (f *FakeEngine) SetPending(party engine.Party, orders ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[party] = slices.Clone(orders)
}

// Pending returns a copy of a party's order list.
func (f *FakeEngine) Pending(party engine.Party) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.orders[party])
}

// Calls returns the names of the engine methods invoked so far, e.g.
// "SetOrders FRANCE".
func (f *FakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CountCalls returns how many recorded calls start with prefix.
func (f *FakeEngine) CountCalls(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *FakeEngine) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *FakeEngine) Parties(_ context.Context) ([]engine.Party, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Parties")
	return slices.Clone(f.parties), nil
}

func (f *FakeEngine) Units(_ context.Context, party engine.Party) ([]engine.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Units %s", party)
	return slices.Clone(f.units[party]), nil
}

func (f *FakeEngine) Orders(_ context.Context, party engine.Party) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Orders %s", party)
	if f.OrdersErr != nil {
		return nil, f.OrdersErr
	}
	return slices.Clone(f.orders[party]), nil
}

// SetOrders replaces the party's list after checking that every order names
// a unit ("A PAR ...") followed by at least one token.
func (f *FakeEngine) SetOrders(_ context.Context, party engine.Party, orders []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetOrders %s", party)
	if err := f.SetOrdersErr; err != nil {
		f.SetOrdersErr = nil
		return err
	}
	for _, o := range orders {
		fields := strings.Fields(o)
		if len(fields) < 3 || (fields[0] != "A" && fields[0] != "F") {
			return &engine.RejectionError{Op: "setorders", Party: party, Reason: fmt.Sprintf("malformed order: %s", o)}
		}
	}
	f.orders[party] = slices.Clone(orders)
	return nil
}

func (f *FakeEngine) Adjacent(_ context.Context, region string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Adjacent %s", region)
	return slices.Clone(f.adj[engine.RegionOf(region)]), nil
}

func (f *FakeEngine) Kind(_ context.Context, region string) (engine.RegionKind, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Kind %s", region)
	k, ok := f.kinds[engine.RegionOf(region)]
	if !ok {
		return engine.Land, fmt.Errorf("unknown region %s", region)
	}
	return k, nil
}

// Process applies "<unit> - <dest>" orders whose destination is empty after
// all moves are collected, clears every order list and advances the phase.
func (f *FakeEngine) Process(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Process")
	if f.ProcessErr != nil {
		return f.ProcessErr
	}

	occupied := make(map[string]bool)
	for _, us := range f.units {
		for _, u := range us {
			occupied[u.Region()] = true
		}
	}
	parties := slices.Clone(f.parties)
	sort.Slice(parties, func(i, j int) bool { return parties[i] < parties[j] })
	for _, p := range parties {
		for _, o := range f.orders[p] {
			fields := strings.Fields(o)
			if len(fields) != 4 || fields[2] != "-" {
				continue
			}
			dest := fields[3]
			if occupied[engine.RegionOf(dest)] {
				continue
			}
			for i, u := range f.units[p] {
				if u.ID() == fields[0]+" "+fields[1] {
					occupied[u.Region()] = false
					f.units[p][i].Location = dest
					occupied[engine.RegionOf(dest)] = true
				}
			}
		}
		f.orders[p] = nil
	}
	f.phase++
	return nil
}

func (f *FakeEngine) Phase(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Phase")
	return phaseName(f.phase), nil
}

func (f *FakeEngine) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Reset")
	f.phase = 0
	f.units = make(map[engine.Party][]engine.Unit, len(f.initial))
	for p, us := range f.initial {
		f.units[p] = slices.Clone(us)
	}
	f.orders = make(map[engine.Party][]string)
	return nil
}

func phaseName(n int) string {
	season := "Spring"
	if n%2 == 1 {
		season = "Fall"
	}
	return fmt.Sprintf("%s %d Movement", season, 1901+n/2)
}

// Classic returns an engine holding a corner of the standard board around
// France and England, with units A PAR, A MAR, F BRE (FRANCE), F LON, F EDI,
// A LVP (ENGLAND) and A MUN, A RUH (GERMANY).
func Classic() *FakeEngine {
	f := NewFakeEngine()
	for _, r := range []string{"PAR", "BUR", "MUN", "RUH"} {
		f.AddRegion(r, engine.Land)
	}
	for _, r := range []string{"BRE", "PIC", "GAS", "MAR", "BEL", "HOL", "KIE", "LON", "WAL", "YOR", "EDI", "LVP", "CLY", "NWY"} {
		f.AddRegion(r, engine.Coastal)
	}
	for _, r := range []string{"ENG", "NTH", "IRI", "MAO", "NWG"} {
		f.AddRegion(r, engine.Sea)
	}
	edges := [][2]string{
		{"PAR", "BUR"}, {"PAR", "PIC"}, {"PAR", "BRE"}, {"PAR", "GAS"},
		{"BUR", "PIC"}, {"BUR", "GAS"}, {"BUR", "MAR"}, {"BUR", "MUN"}, {"BUR", "RUH"}, {"BUR", "BEL"},
		{"MAR", "GAS"}, {"BRE", "PIC"}, {"BRE", "GAS"}, {"BRE", "ENG"}, {"BRE", "MAO"},
		{"PIC", "BEL"}, {"PIC", "ENG"}, {"GAS", "MAO"},
		{"RUH", "MUN"}, {"RUH", "BEL"}, {"RUH", "HOL"}, {"RUH", "KIE"}, {"MUN", "KIE"},
		{"BEL", "HOL"}, {"BEL", "ENG"}, {"BEL", "NTH"}, {"HOL", "NTH"}, {"HOL", "KIE"},
		{"LON", "WAL"}, {"LON", "YOR"}, {"LON", "ENG"}, {"LON", "NTH"},
		{"WAL", "LVP"}, {"WAL", "YOR"}, {"WAL", "ENG"}, {"WAL", "IRI"},
		{"YOR", "LVP"}, {"YOR", "EDI"}, {"YOR", "NTH"},
		{"EDI", "LVP"}, {"EDI", "CLY"}, {"EDI", "NTH"}, {"EDI", "NWG"},
		{"LVP", "CLY"}, {"LVP", "IRI"}, {"CLY", "NWG"},
		{"ENG", "NTH"}, {"ENG", "IRI"}, {"ENG", "MAO"}, {"IRI", "MAO"},
		{"NTH", "NWY"}, {"NTH", "NWG"}, {"NWY", "NWG"},
	}
	for _, e := range edges {
		f.Connect(e[0], e[1])
	}
	f.AddUnit("FRANCE", "A PAR").AddUnit("FRANCE", "A MAR").AddUnit("FRANCE", "F BRE")
	f.AddUnit("ENGLAND", "F LON").AddUnit("ENGLAND", "F EDI").AddUnit("ENGLAND", "A LVP")
	f.AddUnit("GERMANY", "A MUN").AddUnit("GERMANY", "A RUH")
	return f
}
