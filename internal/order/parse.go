package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freeeve/orderdesk/internal/engine"
)

// ErrMalformed is returned for order text that cannot be parsed.
var ErrMalformed = errors.New("malformed order")

// Parse reads an order in engine notation. Accepted forms:
//
//	A PAR H            A PAR - BUR          A PAR -> BUR
//	A PAR S A BUR      A PAR S A BUR - MUN  A PAR S A BUR H
//	F NTH C A LON - NWY
//
// A bare unit ("A PAR") is read as a hold. The owner of the parsed units is
// set to owner.
func Parse(s string, owner engine.Party) (Order, error) {
	fields := strings.Fields(strings.ToUpper(s))
	if len(fields) < 2 {
		return Order{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	unit, err := engine.ParseUnit(fields[0]+" "+fields[1], owner)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
	}
	rest := fields[2:]

	switch {
	case len(rest) == 0, len(rest) == 1 && isHold(rest[0]):
		return NewHold(unit), nil
	case len(rest) == 2 && isArrow(rest[0]):
		return NewMove(unit, rest[1]), nil
	case len(rest) >= 3 && rest[0] == "S":
		target, dest, ok := parseAux(rest[1:], owner, false)
		if !ok {
			break
		}
		return NewSupport(unit, target, dest), nil
	case len(rest) >= 3 && rest[0] == "C":
		target, dest, ok := parseAux(rest[1:], owner, true)
		if !ok {
			break
		}
		return NewConvoy(unit, target, dest), nil
	}
	return Order{}, fmt.Errorf("%w: %q", ErrMalformed, s)
}

// parseAux reads "<type> <loc> [- <dest> | H]" after an S or C token.
func parseAux(fields []string, owner engine.Party, needDest bool) (engine.Unit, string, bool) {
	if len(fields) < 2 {
		return engine.Unit{}, "", false
	}
	u, err := engine.ParseUnit(fields[0]+" "+fields[1], "")
	if err != nil {
		return engine.Unit{}, "", false
	}
	tail := fields[2:]
	switch {
	case len(tail) == 0, len(tail) == 1 && isHold(tail[0]):
		if needDest {
			return engine.Unit{}, "", false
		}
		return u, "", true
	case len(tail) == 2 && isArrow(tail[0]):
		return u, tail[1], true
	}
	return engine.Unit{}, "", false
}

func isArrow(s string) bool { return s == "-" || s == "->" }

func isHold(s string) bool { return s == "H" || s == "HOLD" }

// IdentityOf returns the unit identity an order string begins with, e.g.
// "A PAR" for "A PAR - BUR". Strings too short to carry an identity return
// their trimmed, upper-cased text.
func IdentityOf(s string) string {
	fields := strings.Fields(strings.ToUpper(s))
	if len(fields) < 2 {
		return strings.Join(fields, " ")
	}
	return fields[0] + " " + fields[1]
}
