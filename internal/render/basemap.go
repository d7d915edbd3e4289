package render

import (
	"bufio"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	_ "golang.org/x/image/webp"
)

// LoadBaseMap decodes a PNG, JPEG or WebP map image from path.
func LoadBaseMap(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map image: %w", err)
	}
	defer f.Close()
	return DecodeBaseMap(f)
}

// DecodeBaseMap decodes any registered image format into an NRGBA copy.
func DecodeBaseMap(r io.Reader) (*image.NRGBA, error) {
	src, _, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("decode map image: %w", err)
	}
	return toNRGBA(src), nil
}

// BlankMap returns a plain parchment-coloured canvas for running without
// map artwork.
func BlankMap(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(parchment), image.Point{}, draw.Src)
	return img
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
