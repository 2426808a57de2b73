// Package layout positions a QR code and text lines on a label canvas.
package layout

import (
	"fmt"

	"github.com/AlexStarov/qrlabel-GoLang-lib/qr"
)

// TextLocation is where the text sits relative to the QR code.
type TextLocation string

const (
	TextLeft  TextLocation = "left"
	TextRight TextLocation = "right"
	TextUp    TextLocation = "up"
	TextDown  TextLocation = "down"
)

type AlignH string

const (
	AlignLeft   AlignH = "left"
	AlignCenter AlignH = "center"
	AlignRight  AlignH = "right"
)

type AlignV string

const (
	AlignTop    AlignV = "top"
	AlignMiddle AlignV = "middle"
	AlignBottom AlignV = "bottom"
)

// Placement is the slot a label preview takes on the object page.
type Placement string

const (
	PlaceLeft      Placement = "left"
	PlaceRight     Placement = "right"
	PlaceFullWidth Placement = "full_width"
)

// Config describes one label design. Lengths are millimetres.
type Config struct {
	// Text source. TextTemplate wins over TextFields when both are set.
	TextFields   []string
	TextTemplate string
	CustomText   string
	// URLTemplate builds the QR payload. Empty means the object's url.
	URLTemplate string

	LabelWidth  MM
	LabelHeight MM

	EdgeTop    MM
	EdgeLeft   MM
	EdgeRight  MM
	EdgeBottom MM

	QRWidth        MM
	QRHeight       MM
	QRTextDistance MM

	QR qr.Options

	TextLocation TextLocation
	AlignH       AlignH
	AlignV       AlignV

	Font       string
	FontSize   MM
	FontWeight string
	FontColor  string

	WithQR   bool
	WithText bool

	Placement Placement
}

// DefaultConfig returns the stock label design: a 12mm QR code with text to
// its right on a 56×32mm label.
func DefaultConfig() Config {
	return Config{
		LabelWidth:     56,
		LabelHeight:    32,
		EdgeLeft:       1.5,
		EdgeRight:      1.5,
		QRWidth:        12,
		QRHeight:       12,
		QRTextDistance: 1,
		QR:             qr.DefaultOptions(),
		TextLocation:   TextRight,
		AlignH:         AlignLeft,
		AlignV:         AlignMiddle,
		Font:           "TahomaBold",
		FontSize:       3,
		FontWeight:     "normal",
		FontColor:      "black",
		WithQR:         true,
		WithText:       true,
		Placement:      PlaceRight,
	}
}

// Validate checks the enumerations.
func (c Config) Validate() error {
	switch c.TextLocation {
	case TextLeft, TextRight, TextUp, TextDown:
	default:
		return fmt.Errorf("layout: invalid text_location %q", c.TextLocation)
	}
	switch c.AlignH {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		return fmt.Errorf("layout: invalid text_align_horizontal %q", c.AlignH)
	}
	switch c.AlignV {
	case AlignTop, AlignMiddle, AlignBottom:
	default:
		return fmt.Errorf("layout: invalid text_align_vertical %q", c.AlignV)
	}
	switch c.Placement {
	case "", PlaceLeft, PlaceRight, PlaceFullWidth:
	default:
		return fmt.Errorf("layout: invalid placement %q", c.Placement)
	}
	if c.FontWeight != "" && c.FontWeight != "normal" && c.FontWeight != "bold" {
		return fmt.Errorf("layout: invalid font_weight %q", c.FontWeight)
	}
	if _, err := ParseColor(c.FontColor); err != nil {
		return err
	}
	return nil
}

// CanvasSize is the logical canvas in dots, or zero when the design does not
// set one.
func (c Config) CanvasSize() (w, h int) {
	return c.LabelWidth.Px(DPI), c.LabelHeight.Px(DPI)
}
