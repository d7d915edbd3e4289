// Package selection is the order-construction state machine. A Selection is
// an explicit value: every transition takes the current Selection and
// returns the next one, and a completed order is written to the engine
// through an order.Book before the machine returns to Idle.
package selection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freeeve/orderdesk/internal/engine"
)

// State is the machine's position in building an order.
type State int

const (
	Idle                  State = iota // Nothing selected
	UnitSelected                       // A unit is selected; clicks pick a move destination
	AwaitingSupportTarget              // Waiting for the unit to support
	AwaitingConvoyTarget               // Waiting for the carried army, then its destination
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case UnitSelected:
		return "unit_selected"
	case AwaitingSupportTarget:
		return "awaiting_support_target"
	case AwaitingConvoyTarget:
		return "awaiting_convoy_target"
	default:
		return "unknown"
	}
}

// Mode is the kind of order being built for the selected unit.
type Mode int

const (
	ModeNone Mode = iota
	ModeHold
	ModeMove
	ModeSupport
	ModeConvoy
)

func (m Mode) String() string {
	switch m {
	case ModeHold:
		return "hold"
	case ModeMove:
		return "move"
	case ModeSupport:
		return "support"
	case ModeConvoy:
		return "convoy"
	default:
		return ""
	}
}

// Interaction selects how the operator supplies the second half of an
// order. Both variants drive the same Machine.Choose transition.
type Interaction int

const (
	// ClickClick takes destinations and targets from further map clicks.
	ClickClick Interaction = iota
	// ClickMenu lists the legal choices and takes one by name.
	ClickMenu
)

func (i Interaction) String() string {
	if i == ClickMenu {
		return "menu"
	}
	return "click"
}

// ParseInteraction accepts "click" or "menu".
func ParseInteraction(s string) (Interaction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "click", "click-click":
		return ClickClick, nil
	case "menu", "click-menu":
		return ClickMenu, nil
	}
	return ClickClick, fmt.Errorf("unknown interaction mode %q", s)
}

// Selection is the whole mutable state of the machine.
type Selection struct {
	State State
	Unit  engine.Unit
	Mode  Mode

	// Supportable holds every unit adjacent to Unit while waiting for a
	// support target.
	Supportable []engine.Unit
	// Carried is the army chosen for a convoy, zero until chosen.
	Carried engine.Unit
}

// HasUnit reports whether a unit is selected.
func (s Selection) HasUnit() bool {
	return !s.Unit.IsZero()
}

// Errors reported by transitions. Each leaves the Selection unchanged.
var (
	ErrIllegalDestination = errors.New("illegal destination")
	ErrNoUnitAtRegion     = errors.New("no unit there")
	ErrNoSelection        = errors.New("no unit selected")
	ErrCannotConvoy       = errors.New("only fleets can convoy")
	ErrNotSupportable     = errors.New("unit cannot be supported from here")
	ErrNothingToSupport   = errors.New("no adjacent units to support")
	ErrInvalidCarried     = errors.New("invalid unit to convoy")
	ErrWrongState         = errors.New("action not available in this state")
)

// IsLocalRejection reports whether err is one of the machine's own
// rejections, as opposed to an engine or transport failure.
func IsLocalRejection(err error) bool {
	for _, target := range []error{
		ErrIllegalDestination, ErrNoSelection, ErrCannotConvoy,
		ErrNotSupportable, ErrNothingToSupport, ErrInvalidCarried, ErrWrongState,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
