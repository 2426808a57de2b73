// Package image adapts label bitmaps to printer geometry and packs them into
// 1-bit raster data.
package image

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
)

// Mode is the pixel format of a label bitmap.
type Mode int

const (
	// Mono is a two-entry paletted image, index 0 white and index 1 black.
	Mono Mode = iota
	Gray
	RGBA
)

func (m Mode) String() string {
	switch m {
	case Mono:
		return "1"
	case Gray:
		return "L"
	default:
		return "RGBA"
	}
}

// ParseMode accepts "1", "mono", "L", "gray", "RGB" and "RGBA".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "1", "mono":
		return Mono, nil
	case "l", "gray", "grey":
		return Gray, nil
	case "rgb", "rgba", "color":
		return RGBA, nil
	}
	return Mono, fmt.Errorf("unknown color mode %q", s)
}

// MonoPalette backs every Mono canvas.
var MonoPalette = color.Palette{color.White, color.Black}

// NewCanvas returns a white w×h image in the given mode.
func NewCanvas(w, h int, mode Mode) draw.Image {
	r := image.Rect(0, 0, w, h)
	switch mode {
	case Mono:
		return image.NewPaletted(r, MonoPalette)
	case Gray:
		g := image.NewGray(r)
		for i := range g.Pix {
			g.Pix[i] = 0xff
		}
		return g
	default:
		c := image.NewRGBA(r)
		draw.Draw(c, r, image.White, image.Point{}, draw.Src)
		return c
	}
}

// ModeOf reports the mode of img.
func ModeOf(img image.Image) Mode {
	switch v := img.(type) {
	case *image.Paletted:
		if len(v.Palette) <= 2 {
			return Mono
		}
	case *image.Gray:
		return Gray
	}
	return RGBA
}
