// Package regions maps named board regions to pixel centres on a map image
// and resolves arbitrary points to the nearest region.
package regions

import (
	"errors"
	"fmt"
	"image"
	"math/bits"
)

// ErrConfiguration is wrapped by every *ConfigError.
var ErrConfiguration = errors.New("region table configuration error")

// ConfigError describes why a region table could not be loaded.
type ConfigError struct {
	Region string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Region == "" {
		return "region table: " + e.Reason
	}
	return fmt.Sprintf("region table: %s: %s", e.Region, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// Region is a named board area and its representative pixel centre.
type Region struct {
	Name   string
	Center image.Point
}

// Index is an immutable, non-empty set of regions in registration order.
type Index struct {
	regions []Region
	byName  map[string]int
}

// New validates regions and builds an Index. bounds limits where centres may
// lie; an empty bounds rectangle disables the check.
func New(regions []Region, bounds image.Rectangle) (*Index, error) {
	if len(regions) == 0 {
		return nil, &ConfigError{Reason: "table is empty"}
	}
	idx := &Index{
		regions: make([]Region, len(regions)),
		byName:  make(map[string]int, len(regions)),
	}
	for i, r := range regions {
		if r.Name == "" {
			return nil, &ConfigError{Reason: fmt.Sprintf("entry %d has no name", i)}
		}
		if _, dup := idx.byName[r.Name]; dup {
			return nil, &ConfigError{Region: r.Name, Reason: "duplicate name"}
		}
		if !bounds.Empty() && !r.Center.In(bounds) {
			return nil, &ConfigError{Region: r.Name, Reason: fmt.Sprintf("centre %v outside image bounds %v", r.Center, bounds)}
		}
		idx.regions[i] = r
		idx.byName[r.Name] = i
	}
	return idx, nil
}

// Resolve returns the region whose centre is nearest to p. Equidistant
// centres resolve to the one registered first.
func (x *Index) Resolve(p image.Point) Region {
	best := 0
	bestDist := distance(x.regions[0].Center, p)
	for i := 1; i < len(x.regions); i++ {
		if d := distance(x.regions[i].Center, p); d.less(bestDist) {
			best, bestDist = i, d
		}
	}
	return x.regions[best]
}

// dist is an exact squared distance. Squares of two full-range int
// differences need up to 129 bits.
type dist struct {
	carry, hi, lo uint64
}

func (d dist) less(o dist) bool {
	if d.carry != o.carry {
		return d.carry < o.carry
	}
	if d.hi != o.hi {
		return d.hi < o.hi
	}
	return d.lo < o.lo
}

func distance(a, b image.Point) dist {
	dx, dy := absDiff(a.X, b.X), absDiff(a.Y, b.Y)
	xh, xl := bits.Mul64(dx, dx)
	yh, yl := bits.Mul64(dy, dy)
	lo, c := bits.Add64(xl, yl, 0)
	hi, carry := bits.Add64(xh, yh, c)
	return dist{carry: carry, hi: hi, lo: lo}
}

// absDiff returns |a-b| without overflow; the difference of two ints always
// fits in a uint64.
func absDiff(a, b int) uint64 {
	if a >= b {
		return uint64(a) - uint64(b)
	}
	return uint64(b) - uint64(a)
}

// Lookup returns the named region.
func (x *Index) Lookup(name string) (Region, bool) {
	i, ok := x.byName[name]
	if !ok {
		return Region{}, false
	}
	return x.regions[i], true
}

// Contains reports whether name is a registered region.
func (x *Index) Contains(name string) bool {
	_, ok := x.byName[name]
	return ok
}

// Regions returns a copy of the table in registration order.
func (x *Index) Regions() []Region {
	out := make([]Region, len(x.regions))
	copy(out, x.regions)
	return out
}

// Len returns the number of regions.
func (x *Index) Len() int {
	return len(x.regions)
}
