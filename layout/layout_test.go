package layout

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imgInternal "github.com/AlexStarov/qrlabel-GoLang-lib/image"
	"github.com/AlexStarov/qrlabel-GoLang-lib/qr"
)

func dark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r+g+b < 3*0x8000
}

// inkIn reports whether any dark pixel lies in r.
func inkIn(img image.Image, r image.Rectangle) bool {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if dark(img.At(x, y)) {
				return true
			}
		}
	}
	return false
}

func TestParseLength(t *testing.T) {
	tests := map[string]MM{"12mm": 12, "1.5mm": 1.5, " 3 ": 3, "1in": 25.4, "2cm": 20, "300px": 25.4, "": 0}
	for in, want := range tests {
		got, err := ParseLength(in)
		require.NoError(t, err, in)
		assert.InDelta(t, float64(want), float64(got), 1e-9, in)
	}
	_, err := ParseLength("12pt")
	assert.Error(t, err)
	_, err = ParseLength("-1mm")
	assert.Error(t, err)

	assert.Equal(t, 142, MM(12).Px(DPI))
	assert.Equal(t, 18, MM(1.5).Px(DPI))
}

func TestComposeBlankWhenBothFeaturesOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WithQR, cfg.WithText = false, false
	for _, mode := range []imgInternal.Mode{imgInternal.Mono, imgInternal.Gray, imgInternal.RGBA} {
		out, err := Compose(nil, "ignored", cfg, image.Pt(200, 100), mode)
		require.NoError(t, err)
		assert.Equal(t, mode, imgInternal.ModeOf(out))
		assert.Equal(t, image.Rect(0, 0, 200, 100), out.Bounds())
		assert.False(t, inkIn(out, out.Bounds()))
	}
}

func TestComposeOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EdgeLeft, cfg.EdgeRight = 30, 30

	_, err := Compose(nil, "text", cfg, image.Pt(600, 300), imgInternal.Mono)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLayoutOverflow))
	var oe *OverflowError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "work", oe.Area)

	cfg = DefaultConfig()
	cfg.QRWidth, cfg.QRHeight = 50, 50
	q, err := qr.Encode("x", qr.DefaultOptions())
	require.NoError(t, err)
	_, err = Compose(q, "", cfg, image.Pt(300, 300), imgInternal.Mono)
	assert.ErrorIs(t, err, ErrLayoutOverflow)
}

func TestComposeQRRightOfText(t *testing.T) {
	q, err := qr.Encode("https://example.com/assets/42", qr.DefaultOptions())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.TextLocation = TextRight
	size := image.Pt(696, 1109)
	out, err := Compose(q, "Device-42\nSN12345", cfg, size, imgInternal.Mono)
	require.NoError(t, err)
	assert.Equal(t, imgInternal.Mono, imgInternal.ModeOf(out))

	left := cfg.EdgeLeft.Px(DPI)
	qw := cfg.QRWidth.Px(DPI)
	top := (size.Y - qw) / 2
	// QR is flush left and vertically centred, text right of it.
	assert.True(t, inkIn(out, image.Rect(left, top, left+qw, top+qw)))
	assert.False(t, inkIn(out, image.Rect(0, 0, size.X, top-1)))
	assert.True(t, inkIn(out, image.Rect(left+qw, top, size.X, top+qw)))
}

func TestComposeQRAboveText(t *testing.T) {
	q, err := qr.Encode("https://example.com/assets/42", qr.DefaultOptions())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.TextLocation = TextDown
	size := image.Pt(400, 400)
	out, err := Compose(q, "Rack A1", cfg, size, imgInternal.Gray)
	require.NoError(t, err)

	qw := cfg.QRWidth.Px(DPI)
	x := cfg.EdgeLeft.Px(DPI) + (size.X-cfg.EdgeLeft.Px(DPI)-cfg.EdgeRight.Px(DPI)-qw)/2
	assert.True(t, inkIn(out, image.Rect(x, 0, x+qw, qw)))
	assert.False(t, inkIn(out, image.Rect(0, 0, x-1, qw)))
	assert.True(t, inkIn(out, image.Rect(0, qw, size.X, size.Y)))
}

func TestComposeMonoInkByLuminance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WithQR = false
	size := image.Pt(600, 300)
	tests := map[string]bool{
		"black":   true,
		"#000":    true,
		"red":     true,
		"#202020": true,
		"white":   false,
		"#ffffff": false,
		"#f0f0f0": false,
	}
	for c, want := range tests {
		cfg.FontColor = c
		out, err := Compose(nil, "Device-42", cfg, size, imgInternal.Mono)
		require.NoError(t, err, c)
		assert.Equal(t, want, inkIn(out, out.Bounds()), c)
	}
}

func TestLinesTruncate(t *testing.T) {
	in := "one\ntwo\nthree\nfour\nfive"
	assert.Equal(t, []string{"one", "two", "three"}, Lines(in, 30, 90))
	assert.Equal(t, []string{"one", "two", "three"}, Lines(in, 30, 119))
	assert.Len(t, Lines(in, 30, 500), 5)
	assert.Empty(t, Lines(in, 30, 29))
	assert.Equal(t, []string{"a", "b"}, Lines("a<br>b", 10, 100))
}

func TestComposeTruncatesText(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WithQR = false
	cfg.EdgeLeft, cfg.EdgeRight = 0, 0
	cfg.AlignV = AlignTop
	lh, err := LineHeight(cfg)
	require.NoError(t, err)

	size := image.Pt(600, 3*lh)
	out, err := Compose(nil, "L1\nL2\nL3\nL4\nL5", cfg, size, imgInternal.Mono)
	require.NoError(t, err)
	assert.Equal(t, size, out.Bounds().Size())
	for i := 0; i < 3; i++ {
		assert.True(t, inkIn(out, image.Rect(0, i*lh, size.X, (i+1)*lh)), "line %d", i+1)
	}

	_, err = Compose(nil, "L1", cfg, image.Pt(600, lh-1), imgInternal.Mono)
	assert.ErrorIs(t, err, ErrLayoutOverflow)
}

func TestTextSources(t *testing.T) {
	attrs := map[string]any{
		"name":   "Device-42",
		"serial": "SN12345",
		"url":    "https://example.com/assets/42",
		"a_terminations": []any{
			map[string]any{"name": "eth0", "device": map[string]any{"name": "sw1"}},
			map[string]any{"name": "eth1", "device": map[string]any{"name": "sw1"}},
		},
	}

	cfg := DefaultConfig()
	cfg.TextFields = []string{"name", "serial", "missing"}
	txt, err := Text(cfg, attrs)
	require.NoError(t, err)
	assert.Equal(t, "Device-42\nSN12345", txt)

	cfg.TextFields = []string{"a_terminations.device", "a_terminations"}
	cfg.CustomText = "Row 3<br>Rack 7"
	txt, err = Text(cfg, attrs)
	require.NoError(t, err)
	assert.Equal(t, "sw1, sw1\neth0, eth1\nRow 3\nRack 7", txt)

	cfg.TextTemplate = "{{.name}}<br>{{upper .serial}}{{.nope}}"
	txt, err = Text(cfg, attrs)
	require.NoError(t, err)
	assert.Equal(t, "Device-42\nSN12345", txt)

	u, err := URL(cfg, attrs)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/assets/42", u)

	cfg.URLTemplate = "https://inv.example/{{.serial}}"
	u, err = URL(cfg, attrs)
	require.NoError(t, err)
	assert.Equal(t, "https://inv.example/SN12345", u)

	_, err = URL(DefaultConfig(), map[string]any{})
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestSet(t *testing.T) {
	s := DefaultSet()
	require.NoError(t, s.Validate())

	cfg, err := s.Get("cable", 1)
	require.NoError(t, err)
	assert.Equal(t, PlaceLeft, cfg.Placement)

	extra := DefaultConfig()
	extra.TextFields = []string{"asset_tag"}
	s.Put(Key("device", 2), extra)
	s.Put(Key("device", 4), extra)

	designs := s.Designs("device")
	require.Len(t, designs, 2)
	assert.Equal(t, 2, designs[1].No)

	_, err = s.Get("device", 3)
	assert.ErrorIs(t, err, ErrUnknownDesign)
	_, err = s.Get("vlan", 1)
	assert.ErrorIs(t, err, ErrUnknownObjectType)

	assert.Contains(t, s.ObjectTypes(), "powerpanel")
	assert.NotContains(t, s.ObjectTypes(), "device_2")

	typ, no := ParseKey("powerfeed_10")
	assert.Equal(t, "powerfeed", typ)
	assert.Equal(t, 10, no)
	typ, no = ParseKey("power_feed")
	assert.Equal(t, "power_feed", typ)
	assert.Equal(t, 1, no)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TextLocation = "diagonal"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.FontColor = "#12345"
	assert.Error(t, cfg.Validate())

	c, err := ParseColor("#f00")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, c)
}
