package engine

import (
	"fmt"
	"strings"
)

// Party identifies one of the contesting powers, e.g. "FRANCE".
type Party string

// NormalizeParty upper-cases and trims a party name.
func NormalizeParty(s string) Party {
	return Party(strings.ToUpper(strings.TrimSpace(s)))
}

// UnitType represents the type of a military unit.
type UnitType int

const (
	Army UnitType = iota
	Fleet
)

func (u UnitType) String() string {
	if u == Army {
		return "army"
	}
	return "fleet"
}

// Letter returns the single-letter code used in order strings.
func (u UnitType) Letter() string {
	if u == Fleet {
		return "F"
	}
	return "A"
}

// ParseUnitType accepts "A"/"F" as well as "army"/"fleet" in any case.
func ParseUnitType(s string) (UnitType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "ARMY":
		return Army, nil
	case "F", "FLEET":
		return Fleet, nil
	}
	return Army, fmt.Errorf("unknown unit type %q", s)
}

// Unit is one game piece as reported by the engine. Location may carry a
// coast suffix for fleets on split-coast provinces ("STP/SC").
type Unit struct {
	Type     UnitType
	Location string
	Owner    Party
}

// ParseUnit parses a unit string such as "A PAR" or "F STP/SC".
func ParseUnit(s string, owner Party) (Unit, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Unit{}, fmt.Errorf("malformed unit %q", s)
	}
	ut, err := ParseUnitType(fields[0])
	if err != nil {
		return Unit{}, err
	}
	return Unit{Type: ut, Location: strings.ToUpper(fields[1]), Owner: owner}, nil
}

// ID is the unit's identity string, the leading part of every order it is given.
func (u Unit) ID() string {
	return u.Type.Letter() + " " + u.Location
}

// Region returns the location with any coast suffix removed.
func (u Unit) Region() string {
	return RegionOf(u.Location)
}

// IsZero reports whether u is the zero Unit.
func (u Unit) IsZero() bool {
	return u == Unit{}
}

// RegionOf strips a "/xc" coast suffix from a location.
func RegionOf(location string) string {
	if i := strings.IndexByte(location, '/'); i >= 0 {
		return location[:i]
	}
	return location
}
