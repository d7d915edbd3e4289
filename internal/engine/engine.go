// Package engine defines what the order desk needs from an adjudication
// engine. The engine owns board state, order legality and turn resolution;
// the desk only reads units, reads and replaces order lists, queries the
// region graph, and asks for the next phase.
package engine

import (
	"context"
	"fmt"
	"strings"
)

// RegionKind classifies a region as land, coastal or sea.
type RegionKind int

const (
	Land    RegionKind = iota // Inland region (armies only)
	Coastal                   // Coastal region (armies or fleets)
	Sea                       // Sea region (fleets only)
)

func (k RegionKind) String() string {
	switch k {
	case Land:
		return "land"
	case Coastal:
		return "coastal"
	case Sea:
		return "sea"
	default:
		return "unknown"
	}
}

// ParseRegionKind parses "land", "coastal" or "sea".
func ParseRegionKind(s string) (RegionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "land":
		return Land, nil
	case "coastal", "coast":
		return Coastal, nil
	case "sea", "water":
		return Sea, nil
	}
	return Land, fmt.Errorf("unknown region kind %q", s)
}

// Engine is the adjudication engine as seen by the desk. Order lists are
// replaced whole: SetOrders swaps a party's entire pending list in one call
// and may fail with a *RejectionError when the engine refuses it.
type Engine interface {
	Parties(ctx context.Context) ([]Party, error)
	Units(ctx context.Context, party Party) ([]Unit, error)
	Orders(ctx context.Context, party Party) ([]string, error)
	SetOrders(ctx context.Context, party Party, orders []string) error
	Adjacent(ctx context.Context, region string) ([]string, error)
	Kind(ctx context.Context, region string) (RegionKind, error)
	Process(ctx context.Context) error
	Phase(ctx context.Context) (string, error)
	Reset(ctx context.Context) error
}

// IsSea reports whether region is a sea region.
func IsSea(ctx context.Context, e Engine, region string) (bool, error) {
	k, err := e.Kind(ctx, region)
	if err != nil {
		return false, err
	}
	return k == Sea, nil
}

// IsCoastal reports whether region is a coastal region.
func IsCoastal(ctx context.Context, e Engine, region string) (bool, error) {
	k, err := e.Kind(ctx, region)
	if err != nil {
		return false, err
	}
	return k == Coastal, nil
}

// CanEnter reports whether a unit of type t may occupy a region of kind k.
func CanEnter(t UnitType, k RegionKind) bool {
	if t == Fleet {
		return k == Sea || k == Coastal
	}
	return k != Sea
}
