// Package order holds the structured form of a single unit's order and the
// read-modify-write discipline used to keep at most one pending order per
// unit in a party's list. Orders are serialised to the engine's string form
// only when they cross the engine boundary.
package order

import (
	"fmt"

	"github.com/freeeve/orderdesk/internal/engine"
)

// Kind represents the type of order a unit can be given.
type Kind int

const (
	Hold    Kind = iota // Unit holds position
	Move                // Unit moves to an adjacent region
	Support             // Unit supports another unit's hold or move
	Convoy              // Fleet convoys an army across sea
)

func (k Kind) String() string {
	switch k {
	case Hold:
		return "hold"
	case Move:
		return "move"
	case Support:
		return "support"
	case Convoy:
		return "convoy"
	default:
		return "unknown"
	}
}

// Order is a complete instruction for exactly one unit.
type Order struct {
	Unit engine.Unit
	Kind Kind

	// Dest is the destination of a move.
	Dest string

	// Target is the supported unit (support) or the carried army (convoy).
	Target engine.Unit
	// TargetDest is where Target is going; empty for a support-hold.
	TargetDest string
}

// NewHold returns a hold order for u.
func NewHold(u engine.Unit) Order {
	return Order{Unit: u, Kind: Hold}
}

// NewMove returns a move order for u.
func NewMove(u engine.Unit, dest string) Order {
	return Order{Unit: u, Kind: Move, Dest: dest}
}

// NewSupport returns a support order. An empty dest supports target's hold.
func NewSupport(u, target engine.Unit, dest string) Order {
	return Order{Unit: u, Kind: Support, Target: target, TargetDest: dest}
}

// NewConvoy returns a convoy order carrying army from its region to dest.
func NewConvoy(u, carried engine.Unit, dest string) Order {
	return Order{Unit: u, Kind: Convoy, Target: carried, TargetDest: dest}
}

// UnitID is the identity string of the ordered unit.
func (o Order) UnitID() string {
	return o.Unit.ID()
}

// String renders the order in the engine's notation, e.g. "A PAR - BUR".
func (o Order) String() string {
	unit := o.Unit.ID()
	switch o.Kind {
	case Hold:
		return unit + " H"
	case Move:
		return fmt.Sprintf("%s - %s", unit, o.Dest)
	case Support:
		if o.TargetDest == "" {
			return fmt.Sprintf("%s S %s", unit, o.Target.ID())
		}
		return fmt.Sprintf("%s S %s - %s", unit, o.Target.ID(), o.TargetDest)
	case Convoy:
		return fmt.Sprintf("%s C %s - %s", unit, o.Target.ID(), o.TargetDest)
	default:
		return unit + " ???"
	}
}
