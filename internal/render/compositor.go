// Package render composites unit markers and the selection highlight onto
// the base map image.
package render

import (
	"image"
	"image/draw"
	"sync"

	"golang.org/x/image/font"

	"github.com/freeeve/orderdesk/internal/board"
	"github.com/freeeve/orderdesk/internal/regions"
	"github.com/freeeve/orderdesk/internal/selection"
)

// Marker geometry in pixels.
const (
	MarkerRadius = 18
	haloWidth    = 2
	borderWidth  = 2
	RingRadius   = 26
	ringWidth    = 4
	labelSize    = 20
)

// Locator finds a region's centre by name.
type Locator interface {
	Lookup(name string) (regions.Region, bool)
}

// Compositor renders a board snapshot and selection over a base image.
// Output depends only on the Render arguments.
type Compositor struct {
	regions Locator
	palette Palette

	// font.Face implementations keep per-face scratch buffers.
	mu   sync.Mutex
	face font.Face
}

// NewCompositor returns a Compositor using the default palette.
func NewCompositor(idx Locator) *Compositor {
	return &Compositor{regions: idx, palette: DefaultPalette(), face: labelFace(labelSize)}
}

// Render draws every unit whose region is indexed, in ascending region
// order, then the highlight ring for the selected unit on top. base is not
// modified.
func (c *Compositor) Render(base image.Image, snap *board.Snapshot, sel selection.Selection) *image.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := toNRGBA(base)
	if snap != nil {
		for _, name := range snap.Regions() {
			r, ok := c.regions.Lookup(name)
			if !ok {
				continue
			}
			u := snap.Units[name]
			c.drawMarker(out, r.Center, u.Type.Letter(), c.palette.StyleFor(u.Owner))
		}
	}
	if sel.HasUnit() {
		if r, ok := c.regions.Lookup(sel.Unit.Region()); ok {
			fillRing(out, r.Center, RingRadius+ringWidth/2, RingRadius-ringWidth/2, image.NewUniform(gold))
		}
	}
	return out
}

func (c *Compositor) drawMarker(img draw.Image, at image.Point, label string, s Style) {
	fillDisc(img, at, MarkerRadius+haloWidth, image.NewUniform(black))
	fillDisc(img, at, MarkerRadius, image.NewUniform(s.Fill))
	fillRing(img, at, MarkerRadius, MarkerRadius-borderWidth, image.NewUniform(black))
	drawLabel(img, c.face, label, at, s.Text, s.Outline)
}
