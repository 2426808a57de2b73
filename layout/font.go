package layout

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
)

var fonts = struct {
	sync.Mutex
	parsed map[string]*opentype.Font
}{parsed: make(map[string]*opentype.Font)}

// builtinFont maps a family name to one of the Go fonts. Names of fonts that
// are not bundled ("TahomaBold", "Arial") fall back by style keywords.
func builtinFont(name, weight string) (string, []byte) {
	n := strings.ToLower(name)
	bold := weight == "bold" || strings.Contains(n, "bold")
	mono := strings.Contains(n, "mono") || strings.Contains(n, "courier")
	switch {
	case mono && bold:
		return "gomonobold", gomonobold.TTF
	case mono:
		return "gomono", gomono.TTF
	case bold:
		return "gobold", gobold.TTF
	case strings.Contains(n, "medium"):
		return "gomedium", gomedium.TTF
	case strings.Contains(n, "italic"):
		return "goitalic", goitalic.TTF
	case strings.Contains(n, "smallcaps"):
		return "gosmallcaps", gosmallcaps.TTF
	}
	return "goregular", goregular.TTF
}

func loadFont(name, weight string) (*opentype.Font, error) {
	key, data := "", []byte(nil)
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".ttf") || strings.HasSuffix(lower, ".otf") {
		key = name
	} else {
		key, data = builtinFont(name, weight)
	}

	fonts.Lock()
	defer fonts.Unlock()
	if f, ok := fonts.parsed[key]; ok {
		return f, nil
	}
	if data == nil {
		b, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("layout: read font: %w", err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("layout: parse font %s: %w", key, err)
	}
	fonts.parsed[key] = f
	return f, nil
}

// NewFace returns a face for cfg's font at its size in label dots. Faces are
// not safe for concurrent use.
func NewFace(cfg Config) (font.Face, error) {
	f, err := loadFont(cfg.Font, cfg.FontWeight)
	if err != nil {
		return nil, err
	}
	size := cfg.FontSize
	if size <= 0 {
		size = 3
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size) / 25.4 * DPI,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// LineHeight is the distance between baselines of cfg's font, in dots.
func LineHeight(cfg Config) (int, error) {
	face, err := NewFace(cfg)
	if err != nil {
		return 0, err
	}
	defer face.Close()
	return face.Metrics().Height.Ceil(), nil
}

var namedColors = map[string]color.Color{
	"":      color.Black,
	"black": color.Black,
	"white": color.White,
	"red":   color.RGBA{R: 0xff, A: 0xff},
	"green": color.RGBA{G: 0x80, A: 0xff},
	"blue":  color.RGBA{B: 0xff, A: 0xff},
	"gray":  color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"grey":  color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
}

// ParseColor accepts a CSS basic color name, #rgb or #rrggbb.
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) == 6 {
			if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
				return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
			}
		}
	}
	return nil, fmt.Errorf("layout: invalid font_color %q", s)
}
