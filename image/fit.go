package image

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// Fit scales src to fit inside w×h keeping its aspect ratio and centres it on
// a white w×h canvas. Nothing is cropped. A source that already measures
// w×h is copied without resampling.
func Fit(src image.Image, w, h int) *image.NRGBA {
	canvas := imaging.New(w, h, color.White)
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if sw == 0 || sh == 0 || w <= 0 || h <= 0 {
		return canvas
	}
	if sw == w && sh == h {
		return imaging.Clone(src)
	}

	scale := math.Min(float64(w)/float64(sw), float64(h)/float64(sh))
	nw := clamp(int(math.Round(float64(sw)*scale)), 1, w)
	nh := clamp(int(math.Round(float64(sh)*scale)), 1, h)

	var scaled image.Image = src
	if nw != sw || nh != sh {
		scaled = resize.Resize(uint(nw), uint(nh), src, resize.Lanczos3)
	}
	return imaging.Paste(canvas, scaled, image.Pt((w-nw)/2, (h-nh)/2))
}

type orientation int

const (
	square orientation = iota
	landscape
	portrait
)

func orientationOf(w, h int) orientation {
	switch {
	case w > h:
		return landscape
	case w < h:
		return portrait
	}
	return square
}

// NeedsRotation reports whether src and a w×h target are of opposite
// orientation classes. Square shapes never need rotation.
func NeedsRotation(src image.Image, w, h int) bool {
	so := orientationOf(src.Bounds().Dx(), src.Bounds().Dy())
	to := orientationOf(w, h)
	return so != square && to != square && so != to
}

// Orient rotates src 90 degrees counter-clockwise, the paper feed direction
// of the supported printers, when its orientation does not match w×h.
func Orient(src image.Image, w, h int) image.Image {
	if NeedsRotation(src, w, h) {
		return imaging.Rotate90(src)
	}
	return src
}

// Prepare orients src to the w×h target and fits it. Applying it to its
// own output returns an identical image.
func Prepare(src image.Image, w, h int) *image.NRGBA {
	return Fit(Orient(src, w, h), w, h)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
