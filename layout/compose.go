package layout

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	imgInternal "github.com/AlexStarov/qrlabel-GoLang-lib/image"
)

// ErrLayoutOverflow is matched by every *OverflowError.
var ErrLayoutOverflow = errors.New("layout overflow")

// OverflowError reports an area that has no room left after margins.
type OverflowError struct {
	Area          string // "work", "qr" or "text"
	Width, Height int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("layout overflow: %s area is %dx%d", e.Area, e.Width, e.Height)
}

func (e *OverflowError) Unwrap() error { return ErrLayoutOverflow }

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func overflow(area string, r image.Rectangle) error {
	return &OverflowError{Area: area, Width: r.Dx(), Height: r.Dy()}
}

// Lines splits text into lines and keeps as many as fit into bandHeight at
// lineHeight dots per line. Lines are never wrapped.
func Lines(text string, lineHeight, bandHeight int) []string {
	text = brReplacer.Replace(text)
	if text == "" || lineHeight <= 0 {
		return nil
	}
	lines := strings.Split(text, "\n")
	if n := bandHeight / lineHeight; n < len(lines) {
		if n < 0 {
			n = 0
		}
		lines = lines[:n]
	}
	return lines
}

// Compose draws qr and text onto a new size canvas in the given mode. qr may
// be nil when cfg.WithQR is false.
func Compose(qr image.Image, text string, cfg Config, size image.Point, mode imgInternal.Mode) (draw.Image, error) {
	canvas := imgInternal.NewCanvas(size.X, size.Y, mode)
	withQR := cfg.WithQR && qr != nil
	withText := cfg.WithText && text != ""
	if !withQR && !withText {
		return canvas, nil
	}

	// not image.Rect, which would swap inverted edges
	work := image.Rectangle{
		Min: image.Pt(cfg.EdgeLeft.Px(DPI), cfg.EdgeTop.Px(DPI)),
		Max: image.Pt(size.X-cfg.EdgeRight.Px(DPI), size.Y-cfg.EdgeBottom.Px(DPI)),
	}
	if work.Dx() <= 0 || work.Dy() <= 0 {
		return nil, overflow("work", work)
	}

	band := work
	if withQR {
		qrRect, err := placeQR(cfg, work, withText)
		if err != nil {
			return nil, err
		}
		xdraw.NearestNeighbor.Scale(canvas, qrRect, qr, qr.Bounds(), xdraw.Src, nil)
		if withText {
			band = textBand(cfg, work, qrRect)
		}
	}

	if withText {
		if band.Dx() <= 0 || band.Dy() <= 0 {
			return nil, overflow("text", band)
		}
		if err := drawText(canvas, text, cfg, band); err != nil {
			return nil, err
		}
	}
	return canvas, nil
}

func placeQR(cfg Config, work image.Rectangle, withText bool) (image.Rectangle, error) {
	qw, qh := cfg.QRWidth.Px(DPI), cfg.QRHeight.Px(DPI)
	if qw <= 0 || qh <= 0 {
		side := min(work.Dx(), work.Dy())
		qw, qh = side, side
	}
	if qw > work.Dx() || qh > work.Dy() {
		return image.Rectangle{}, &OverflowError{Area: "qr", Width: work.Dx() - qw, Height: work.Dy() - qh}
	}

	cx := work.Min.X + (work.Dx()-qw)/2
	cy := work.Min.Y + (work.Dy()-qh)/2
	var at image.Point
	switch {
	case !withText:
		at = image.Pt(cx, cy)
	case cfg.TextLocation == TextLeft:
		at = image.Pt(work.Max.X-qw, cy)
	case cfg.TextLocation == TextUp:
		at = image.Pt(cx, work.Max.Y-qh)
	case cfg.TextLocation == TextDown:
		at = image.Pt(cx, work.Min.Y)
	default:
		at = image.Pt(work.Min.X, cy)
	}
	return image.Rectangle{Min: at, Max: at.Add(image.Pt(qw, qh))}, nil
}

func textBand(cfg Config, work, qr image.Rectangle) image.Rectangle {
	gap := cfg.QRTextDistance.Px(DPI)
	band := work
	switch cfg.TextLocation {
	case TextLeft:
		band.Max.X = qr.Min.X - gap
	case TextUp:
		band.Max.Y = qr.Min.Y - gap
	case TextDown:
		band.Min.Y = qr.Max.Y + gap
	default:
		band.Min.X = qr.Max.X + gap
	}
	return band
}

func drawText(canvas draw.Image, text string, cfg Config, band image.Rectangle) error {
	face, err := NewFace(cfg)
	if err != nil {
		return err
	}
	defer face.Close()

	m := face.Metrics()
	lineHeight := m.Height.Ceil()
	lines := Lines(text, lineHeight, band.Dy())
	if len(lines) == 0 {
		return overflow("text", band)
	}

	ink, err := ParseColor(cfg.FontColor)
	if err != nil {
		return err
	}
	if imgInternal.ModeOf(canvas) == imgInternal.Mono {
		if imgInternal.Dark(ink) {
			ink = color.Black
		} else {
			ink = color.White
		}
	}

	// Text wider than the band is clipped to it.
	dst := canvas
	if s, ok := canvas.(subImager); ok {
		if d, ok := s.SubImage(band).(draw.Image); ok {
			dst = d
		}
	}

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(ink), Face: face}
	block := len(lines) * lineHeight
	top := band.Min.Y
	switch cfg.AlignV {
	case AlignMiddle:
		top += (band.Dy() - block) / 2
	case AlignBottom:
		top = band.Max.Y - block
	}

	for i, line := range lines {
		width := d.MeasureString(line).Ceil()
		x := band.Min.X
		switch cfg.AlignH {
		case AlignCenter:
			x += (band.Dx() - width) / 2
		case AlignRight:
			x = band.Max.X - width
		}
		baseline := top + i*lineHeight + m.Ascent.Ceil()
		d.Dot = fixed.P(x, baseline)
		d.DrawString(line)
	}
	return nil
}
