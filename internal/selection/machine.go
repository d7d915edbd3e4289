package selection

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/freeeve/orderdesk/internal/board"
	"github.com/freeeve/orderdesk/internal/engine"
	"github.com/freeeve/orderdesk/internal/order"
)

// Outcome describes an order written by a transition.
type Outcome struct {
	Emitted bool
	Order   order.Order
	// Orders is the acting party's full list after the write.
	Orders []string
}

// Machine applies transitions. It holds no Selection of its own.
type Machine struct {
	eng  engine.Engine
	book *order.Book
}

// NewMachine returns a Machine that reads the region graph from eng and
// writes orders through book.
func NewMachine(eng engine.Engine, book *order.Book) *Machine {
	return &Machine{eng: eng, book: book}
}

// Choose feeds a resolved region into the machine, from a map click or a
// menu pick.
func (m *Machine) Choose(ctx context.Context, sel Selection, snap *board.Snapshot, region string) (Selection, Outcome, error) {
	switch sel.State {
	case Idle:
		u, ok := snap.UnitAt(region)
		if !ok {
			return sel, Outcome{}, fmt.Errorf("%w: %s", ErrNoUnitAtRegion, region)
		}
		return Selection{State: UnitSelected, Unit: u, Mode: ModeMove}, Outcome{}, nil

	case UnitSelected:
		legal, err := m.LegalDestinations(ctx, sel.Unit)
		if err != nil {
			return sel, Outcome{}, err
		}
		if !slices.Contains(legal, region) {
			return sel, Outcome{}, fmt.Errorf("%w: %s cannot move to %s", ErrIllegalDestination, sel.Unit.ID(), region)
		}
		return m.submit(ctx, order.NewMove(sel.Unit, region))

	case AwaitingSupportTarget:
		target, ok := snap.UnitAt(region)
		if !ok || !slices.Contains(sel.Supportable, target) {
			return sel, Outcome{}, fmt.Errorf("%w: %s", ErrNotSupportable, region)
		}
		pending, found, err := m.book.Pending(ctx, target.Owner, target.ID())
		if err != nil {
			return sel, Outcome{}, err
		}
		dest := ""
		if found && pending.Kind == order.Move {
			dest = pending.Dest
		}
		return m.submit(ctx, order.NewSupport(sel.Unit, target, dest))

	case AwaitingConvoyTarget:
		if sel.Carried.IsZero() {
			carried, ok := snap.UnitAt(region)
			if !ok || carried == sel.Unit || carried.Type != engine.Army {
				return sel, Outcome{}, fmt.Errorf("%w: %s", ErrInvalidCarried, region)
			}
			next := sel
			next.Carried = carried
			return next, Outcome{}, nil
		}
		if region == sel.Carried.Region() {
			return sel, Outcome{}, fmt.Errorf("%w: %s is already in %s", ErrIllegalDestination, sel.Carried.ID(), region)
		}
		return m.submit(ctx, order.NewConvoy(sel.Unit, sel.Carried, region))
	}
	return sel, Outcome{}, ErrWrongState
}

// Hold orders the selected unit to hold.
func (m *Machine) Hold(ctx context.Context, sel Selection) (Selection, Outcome, error) {
	if !sel.HasUnit() {
		return sel, Outcome{}, ErrNoSelection
	}
	return m.submit(ctx, order.NewHold(sel.Unit))
}

// BeginMove returns to plain move construction for the selected unit,
// abandoning any support or convoy in progress.
func (m *Machine) BeginMove(sel Selection) (Selection, error) {
	if !sel.HasUnit() {
		return sel, ErrNoSelection
	}
	return Selection{State: UnitSelected, Unit: sel.Unit, Mode: ModeMove}, nil
}

// BeginSupport collects every unit adjacent to the selected unit, of any
// party, and waits for one of them to be chosen.
func (m *Machine) BeginSupport(ctx context.Context, sel Selection, snap *board.Snapshot) (Selection, error) {
	if !sel.HasUnit() {
		return sel, ErrNoSelection
	}
	adj, err := m.eng.Adjacent(ctx, sel.Unit.Location)
	if err != nil {
		return sel, err
	}
	var supportable []engine.Unit
	for _, r := range adj {
		if u, ok := snap.UnitAt(engine.RegionOf(r)); ok && !slices.Contains(supportable, u) {
			supportable = append(supportable, u)
		}
	}
	if len(supportable) == 0 {
		return sel, fmt.Errorf("%w: %s", ErrNothingToSupport, sel.Unit.ID())
	}
	sort.Slice(supportable, func(i, j int) bool { return supportable[i].Location < supportable[j].Location })
	return Selection{
		State:       AwaitingSupportTarget,
		Unit:        sel.Unit,
		Mode:        ModeSupport,
		Supportable: supportable,
	}, nil
}

// BeginConvoy starts a convoy order. Only fleets can convoy.
func (m *Machine) BeginConvoy(sel Selection) (Selection, error) {
	if !sel.HasUnit() {
		return sel, ErrNoSelection
	}
	if sel.Unit.Type != engine.Fleet {
		return sel, fmt.Errorf("%w: %s", ErrCannotConvoy, sel.Unit.ID())
	}
	return Selection{State: AwaitingConvoyTarget, Unit: sel.Unit, Mode: ModeConvoy}, nil
}

// Cancel clears the selection.
func (m *Machine) Cancel(Selection) Selection {
	return Selection{}
}

// TurnProcessed clears the selection after the engine resolves a turn,
// whatever state it was in.
func (m *Machine) TurnProcessed(Selection) Selection {
	return Selection{}
}

// Reconcile clears a selection whose unit is no longer on the board and
// drops a carried army that has gone. It reports whether anything changed.
func (m *Machine) Reconcile(sel Selection, snap *board.Snapshot) (Selection, bool) {
	if !sel.HasUnit() {
		return sel, false
	}
	if !snap.Has(sel.Unit) {
		return Selection{}, true
	}
	if !sel.Carried.IsZero() && !snap.Has(sel.Carried) {
		next := sel
		next.Carried = engine.Unit{}
		return next, true
	}
	return sel, false
}

// LegalDestinations lists the regions adjacent to u that its unit type may
// enter, in ascending order.
func (m *Machine) LegalDestinations(ctx context.Context, u engine.Unit) ([]string, error) {
	adj, err := m.eng.Adjacent(ctx, u.Location)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range adj {
		k, err := m.eng.Kind(ctx, r)
		if err != nil {
			return nil, err
		}
		if engine.CanEnter(u.Type, k) && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Options lists the region names that Choose would accept in the current
// state, for menu-driven interaction. A nil result with no error means any
// region other than the ones excluded by Choose is acceptable.
func (m *Machine) Options(ctx context.Context, sel Selection, snap *board.Snapshot) ([]string, error) {
	switch sel.State {
	case Idle:
		return snap.Regions(), nil
	case UnitSelected:
		return m.LegalDestinations(ctx, sel.Unit)
	case AwaitingSupportTarget:
		out := make([]string, 0, len(sel.Supportable))
		for _, u := range sel.Supportable {
			out = append(out, u.Region())
		}
		return out, nil
	case AwaitingConvoyTarget:
		if !sel.Carried.IsZero() {
			return nil, nil
		}
		var out []string
		for _, r := range snap.Regions() {
			if r != sel.Unit.Region() {
				out = append(out, r)
			}
		}
		return out, nil
	}
	return nil, ErrWrongState
}

// submit writes o through the book. Whatever the result, the machine ends
// in Idle: a failed write may have been partly applied by the engine.
func (m *Machine) submit(ctx context.Context, o order.Order) (Selection, Outcome, error) {
	orders, err := m.book.Submit(ctx, o.Unit.Owner, o)
	if err != nil {
		return Selection{}, Outcome{}, err
	}
	return Selection{}, Outcome{Emitted: true, Order: o, Orders: orders}, nil
}
