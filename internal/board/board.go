// Package board reads the engine's current unit placement and pending orders
// into a render-ready snapshot.
package board

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/freeeve/orderdesk/internal/engine"
)

// RegionSet is the subset of the region index the reader needs.
type RegionSet interface {
	Contains(name string) bool
}

// Snapshot is one fresh read of engine state. Units whose region is not in
// the region index are omitted.
type Snapshot struct {
	Phase   string
	Parties []engine.Party
	Units   map[string]engine.Unit
	Orders  map[engine.Party][]string
}

// UnitAt returns the unit occupying region, if any.
func (s *Snapshot) UnitAt(region string) (engine.Unit, bool) {
	u, ok := s.Units[region]
	return u, ok
}

// UnitsOf returns party's units sorted by location.
func (s *Snapshot) UnitsOf(party engine.Party) []engine.Unit {
	var out []engine.Unit
	for _, u := range s.Units {
		if u.Owner == party {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// Regions returns the occupied regions in ascending name order.
func (s *Snapshot) Regions() []string {
	out := make([]string, 0, len(s.Units))
	for r := range s.Units {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the snapshot still holds u at its location with the
// same type and owner.
func (s *Snapshot) Has(u engine.Unit) bool {
	got, ok := s.Units[u.Region()]
	return ok && got == u
}

// Reader pulls snapshots from the engine.
type Reader struct {
	eng     engine.Engine
	regions RegionSet
}

// NewReader returns a Reader that filters units by regions.
func NewReader(eng engine.Engine, regions RegionSet) *Reader {
	return &Reader{eng: eng, regions: regions}
}

// Snapshot reads the engine afresh on every call.
func (r *Reader) Snapshot(ctx context.Context) (*Snapshot, error) {
	phase, err := r.eng.Phase(ctx)
	if err != nil {
		return nil, fmt.Errorf("read phase: %w", err)
	}
	parties, err := r.eng.Parties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	snap := &Snapshot{
		Phase:   phase,
		Parties: slices.Clone(parties),
		Units:   make(map[string]engine.Unit),
		Orders:  make(map[engine.Party][]string, len(parties)),
	}
	for _, p := range parties {
		units, err := r.eng.Units(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("units for %s: %w", p, err)
		}
		for _, u := range units {
			u.Owner = p
			if !r.regions.Contains(u.Region()) {
				continue
			}
			snap.Units[u.Region()] = u
		}
		orders, err := r.eng.Orders(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("orders for %s: %w", p, err)
		}
		if orders == nil {
			orders = []string{}
		}
		snap.Orders[p] = orders
	}
	return snap, nil
}
