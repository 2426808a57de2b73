package image

import (
	"image"
	"image/color"

	"go.uber.org/zap"

	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
)

// GS8LMaxY is the tallest image sent as a single GS v 0 raster; taller
// images go out as GS 8 L graphics blocks of at most this many lines.
const GS8LMaxY = 831

// Converter turns images into packed 1-bit raster lines.
type Converter struct {
	// The maximum line width of the printer, in dots. Zero means no limit.
	MaxWidth int

	// The threshold between white and black dots, 0..1 lightness.
	Threshold float64
}

// Print rasterizes img and hands it to target, choosing the ESC/POS
// printing type by height.
func (c *Converter) Print(img image.Image, target Target) {
	sz := img.Bounds().Size()
	data, rw, bw := c.ToRaster(img)

	mode := BitImage
	if sz.Y >= GS8LMaxY {
		mode = Graphics
	}
	logInternal.L().Debug("raster",
		zap.Int("width", rw), zap.Int("height", sz.Y), zap.String("mode", string(mode)))

	target.Raster(rw, sz.Y, bw, data, mode)
}

// ToRaster packs img into rows of bytesWidth bytes, most significant bit
// first, a set bit being a black dot.
func (c *Converter) ToRaster(img image.Image) (data []byte, imageWidth, bytesWidth int) {
	b := img.Bounds()
	sz := b.Size()

	imageWidth = sz.X
	if c.MaxWidth > 0 && imageWidth > c.MaxWidth {
		// truncate if image is too large
		imageWidth = c.MaxWidth
	}

	bytesWidth = (imageWidth + 7) / 8
	data = make([]byte, bytesWidth*sz.Y)

	threshold := c.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	for y := 0; y < sz.Y; y++ {
		for x := 0; x < imageWidth; x++ {
			if lightness(img.At(b.Min.X+x, b.Min.Y+y)) <= threshold {
				data[y*bytesWidth+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}

	return
}

// ToBitmap is ToRaster returning a Bitmap.
func (c *Converter) ToBitmap(img image.Image) *Bitmap {
	data, w, bw := c.ToRaster(img)
	return &Bitmap{Width: w, Height: img.Bounds().Dy(), Stride: bw, Data: data}
}

// Dark reports whether c prints as a black dot at the default threshold.
func Dark(c color.Color) bool {
	return lightness(c) <= 0.5
}

const (
	lumR, lumG, lumB = 55, 182, 18
)

func lightness(c color.Color) float64 {
	r, g, b, a := c.RGBA()
	// transparent pixels print as paper
	if a == 0 {
		return 1
	}
	return float64(lumR*r+lumG*g+lumB*b) / float64(0xffff*(lumR+lumG+lumB))
}
