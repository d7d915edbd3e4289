package render

import (
	"image"
	"image/draw"

	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter-circle arc.
const kappa = 0.5522847498

// fillDisc paints a filled circle of radius r centred on pixel c.
func fillDisc(dst draw.Image, c image.Point, r float32, col image.Image) {
	fillRing(dst, c, r, 0, col)
}

// fillRing paints the annulus between inner and outer radii centred on pixel
// c. The inner circle is wound opposite to the outer one so it cuts a hole.
func fillRing(dst draw.Image, c image.Point, outer, inner float32, col image.Image) {
	pad := int(outer) + 2
	box := image.Rect(c.X-pad, c.Y-pad, c.X+pad+1, c.Y+pad+1)
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	cx := float32(c.X-box.Min.X) + 0.5
	cy := float32(c.Y-box.Min.Y) + 0.5
	circle(z, cx, cy, outer, false)
	if inner > 0 {
		circle(z, cx, cy, inner, true)
	}
	z.Draw(dst, box, col, image.Point{})
}

func circle(z *vector.Rasterizer, cx, cy, r float32, reverse bool) {
	k := r * kappa
	z.MoveTo(cx+r, cy)
	if !reverse {
		z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
		z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
		z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
		z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	} else {
		z.CubeTo(cx+r, cy-k, cx+k, cy-r, cx, cy-r)
		z.CubeTo(cx-k, cy-r, cx-r, cy-k, cx-r, cy)
		z.CubeTo(cx-r, cy+k, cx-k, cy+r, cx, cy+r)
		z.CubeTo(cx+k, cy+r, cx+r, cy+k, cx+r, cy)
	}
	z.ClosePath()
}
