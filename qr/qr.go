// Package qr encodes payloads into 1-bit QR code images.
package qr

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrPayloadTooLarge is returned when the payload does not fit the
	// requested version (strict mode) or any version at the chosen level.
	ErrPayloadTooLarge = errors.New("qr: payload too large")
	ErrEmptyPayload    = errors.New("qr: empty payload")
	ErrInvalidOptions  = errors.New("qr: invalid options")
)

// Level is the error-correction level.
type Level int

const (
	Low Level = iota
	Medium
	Quartile
	High
)

func (l Level) String() string {
	return [...]string{"L", "M", "Q", "H"}[l]
}

func (l Level) recovery() qrcode.RecoveryLevel {
	switch l {
	case Low:
		return qrcode.Low
	case Quartile:
		return qrcode.High
	case High:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// ParseLevel accepts a level letter or the numeric constants used by
// Python qrcode configurations (1=L, 0=M, 3=Q, 2=H).
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L", "LOW", "1":
		return Low, nil
	case "", "M", "MEDIUM", "0":
		return Medium, nil
	case "Q", "QUARTILE", "3":
		return Quartile, nil
	case "H", "HIGH", "2":
		return High, nil
	}
	return Medium, fmt.Errorf("%w: level %q", ErrInvalidOptions, s)
}

// Palette is the two-entry palette of every encoded image. Index 1 is a dark
// module.
var Palette = color.Palette{color.White, color.Black}

// Options control symbol size and appearance.
type Options struct {
	// Version is the smallest symbol version to use, 1-40. Zero picks the
	// smallest version that fits.
	Version int
	Level   Level
	// BoxSize is the edge of one module in pixels. Zero means 4.
	BoxSize int
	// Border is the quiet zone width in modules.
	Border int
	// Strict disables growing past Version when the payload does not fit.
	Strict bool
}

// DefaultOptions mirrors the label plugin defaults: version 1, level M, four
// pixel modules and no quiet zone.
func DefaultOptions() Options {
	return Options{Version: 1, Level: Medium, BoxSize: 4}
}

func (o Options) validate() error {
	if o.Version < 0 || o.Version > 40 {
		return fmt.Errorf("%w: version %d", ErrInvalidOptions, o.Version)
	}
	if o.BoxSize < 0 || o.Border < 0 {
		return fmt.Errorf("%w: negative box size or border", ErrInvalidOptions)
	}
	if o.Level < Low || o.Level > High {
		return fmt.Errorf("%w: level %d", ErrInvalidOptions, o.Level)
	}
	return nil
}

func build(payload string, opts Options) (*qrcode.QRCode, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	level := opts.Level.recovery()

	if opts.Version > 0 {
		q, err := qrcode.NewWithForcedVersion(payload, opts.Version, level)
		if err == nil {
			return q, nil
		}
		if opts.Strict {
			return nil, fmt.Errorf("%w: %d bytes at version %d-%s", ErrPayloadTooLarge, len(payload), opts.Version, opts.Level)
		}
	}

	q, err := qrcode.New(payload, level)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes at level %s: %v", ErrPayloadTooLarge, len(payload), opts.Level, err)
	}
	return q, nil
}

// Matrix returns the module matrix without quiet zone, true for dark
// modules, and the version that was used.
func Matrix(payload string, opts Options) ([][]bool, int, error) {
	q, err := build(payload, opts)
	if err != nil {
		return nil, 0, err
	}
	q.DisableBorder = true
	return q.Bitmap(), q.VersionNumber, nil
}

// Encode renders payload as a 1-bit image with BoxSize pixels per module and
// Border quiet-zone modules on every side. The output only depends on the
// payload and options.
func Encode(payload string, opts Options) (*image.Paletted, error) {
	bits, _, err := Matrix(payload, opts)
	if err != nil {
		return nil, err
	}

	box := opts.BoxSize
	if box == 0 {
		box = 4
	}
	modules := len(bits) + 2*opts.Border
	size := modules * box
	img := image.NewPaletted(image.Rect(0, 0, size, size), Palette)

	for y, row := range bits {
		for x, dark := range row {
			if !dark {
				continue
			}
			x0 := (x + opts.Border) * box
			y0 := (y + opts.Border) * box
			for dy := 0; dy < box; dy++ {
				off := img.PixOffset(x0, y0+dy)
				for dx := 0; dx < box; dx++ {
					img.Pix[off+dx] = 1
				}
			}
		}
	}
	return img, nil
}

// Version reports the symbol version Encode would pick.
func Version(payload string, opts Options) (int, error) {
	_, v, err := Matrix(payload, opts)
	return v, err
}

// String is a short description of opts for log fields.
func (o Options) String() string {
	v := "auto"
	if o.Version > 0 {
		v = strconv.Itoa(o.Version)
	}
	return fmt.Sprintf("v%s-%s box=%d border=%d", v, o.Level, o.BoxSize, o.Border)
}
