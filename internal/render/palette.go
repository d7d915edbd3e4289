package render

import (
	"image/color"

	"github.com/freeeve/orderdesk/internal/engine"
)

var (
	black     = color.NRGBA{0, 0, 0, 255}
	white     = color.NRGBA{255, 255, 255, 255}
	gold      = color.NRGBA{255, 215, 0, 255}
	grey      = color.NRGBA{128, 128, 128, 255}
	parchment = color.NRGBA{238, 228, 200, 255}
)

// Style is how one party's units are drawn.
type Style struct {
	Fill    color.NRGBA
	Text    color.NRGBA
	Outline color.NRGBA
}

// Palette maps parties to marker styles.
type Palette map[engine.Party]Style

// DefaultPalette is the classic seven-power colour scheme. Light fills get
// dark labels and the black German fill gets a white label outline.
func DefaultPalette() Palette {
	return Palette{
		"AUSTRIA": {Fill: color.NRGBA{255, 0, 0, 255}, Text: white, Outline: black},
		"ENGLAND": {Fill: color.NRGBA{0, 0, 255, 255}, Text: white, Outline: black},
		"FRANCE":  {Fill: color.NRGBA{0, 191, 255, 255}, Text: white, Outline: black},
		"GERMANY": {Fill: color.NRGBA{0, 0, 0, 255}, Text: white, Outline: white},
		"ITALY":   {Fill: color.NRGBA{0, 255, 0, 255}, Text: white, Outline: black},
		"RUSSIA":  {Fill: color.NRGBA{255, 255, 255, 255}, Text: black, Outline: black},
		"TURKEY":  {Fill: color.NRGBA{255, 255, 0, 255}, Text: black, Outline: black},
	}
}

// StyleFor returns the party's style, or grey with a white label for
// parties the palette does not know.
func (p Palette) StyleFor(party engine.Party) Style {
	if s, ok := p[party]; ok {
		return s
	}
	return Style{Fill: grey, Text: white, Outline: black}
}
