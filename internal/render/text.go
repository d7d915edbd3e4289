package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// labelFace returns bold Go font at size points, or the fixed 7x13 face if
// the embedded font cannot be parsed.
func labelFace(size float64) font.Face {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// drawLabel centres text on c with a one pixel outline on all eight sides.
func drawLabel(img draw.Image, face font.Face, text string, c image.Point, fg, outline color.NRGBA) {
	bounds, _ := font.BoundString(face, text)
	w := bounds.Max.X - bounds.Min.X
	h := bounds.Max.Y - bounds.Min.Y
	dot := fixed.Point26_6{
		X: fixed.I(c.X) - w/2 - bounds.Min.X,
		Y: fixed.I(c.Y) - h/2 - bounds.Min.Y,
	}
	x, y := dot.X.Round(), dot.Y.Round()

	for _, dx := range []int{-1, 0, 1} {
		for _, dy := range []int{-1, 0, 1} {
			if dx == 0 && dy == 0 {
				continue
			}
			drawText(img, face, text, x+dx, y+dy, outline)
		}
	}
	drawText(img, face, text, x, y, fg)
}

func drawText(img draw.Image, face font.Face, text string, x, y int, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
