package qr

import (
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, payload string, opts Options) string {
	t.Helper()
	img, err := Encode(payload, opts)
	require.NoError(t, err)

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)
	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_PURE_BARCODE: true}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	require.NoError(t, err)
	return res.GetText()
}

func TestEncodeRoundTrip(t *testing.T) {
	payloads := []string{
		"https://example.com/assets/42",
		"https://netbox.example.org/dcim/devices/1234/",
		"ЛАБЕЛ-42",
		strings.Repeat("0123456789", 40),
		strings.Repeat("x", 700),
	}
	for _, p := range payloads {
		t.Run(p[:min(len(p), 20)], func(t *testing.T) {
			opts := Options{Version: 1, Level: Low, BoxSize: 3, Border: 4}
			assert.Equal(t, p, decode(t, p, opts))
		})
	}
}

// repeat returns n bytes of unit repeated.
func repeat(unit string, n int) string {
	return strings.Repeat(unit, n/len(unit)+1)[:n]
}

// Version 40-L holds 7089 digits, 4296 alphanumerics or 2953 bytes.
func TestEncodeCapacity(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		capacity int
	}{
		{"numeric", "0123456789", 7089},
		{"alphanumeric", "QRLABEL", 4296},
		{"byte", "qrlabel", 2953},
	}
	opts := Options{Version: 1, Level: Low, BoxSize: 3, Border: 4}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, n := range []int{tt.capacity - 1, tt.capacity} {
				p := repeat(tt.unit, n)
				assert.Equal(t, p, decode(t, p, opts), "%d characters", n)
			}
			v, err := Version(repeat(tt.unit, tt.capacity), opts)
			require.NoError(t, err)
			assert.Equal(t, 40, v)

			_, err = Encode(repeat(tt.unit, tt.capacity+1), opts)
			assert.ErrorIs(t, err, ErrPayloadTooLarge)
		})
	}
}

func TestEncodeGeometry(t *testing.T) {
	opts := Options{Version: 1, Level: Medium, BoxSize: 4, Border: 2}
	img, err := Encode("hi", opts)
	require.NoError(t, err)
	// version 1 is 21 modules wide
	assert.Equal(t, (21+4)*4, img.Bounds().Dx())
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())

	// quiet zone is white, the top-left finder pattern starts dark
	assert.Equal(t, uint8(0), img.ColorIndexAt(0, 0))
	assert.Equal(t, uint8(1), img.ColorIndexAt(2*4, 2*4))
	assert.Equal(t, uint8(1), img.ColorIndexAt(2*4+3, 2*4+3))
}

func TestEncodeDeterministic(t *testing.T) {
	opts := DefaultOptions()
	a, err := Encode("https://example.com/assets/42", opts)
	require.NoError(t, err)
	b, err := Encode("https://example.com/assets/42", opts)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestFitGrowsVersion(t *testing.T) {
	payload := strings.Repeat("a", 100)
	v, err := Version(payload, Options{Version: 1, Level: Low})
	require.NoError(t, err)
	assert.Greater(t, v, 1)

	v, err = Version("a", Options{Version: 5, Level: Low})
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestStrictVersion(t *testing.T) {
	_, err := Encode(strings.Repeat("a", 100), Options{Version: 1, Strict: true})
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestPayloadTooLarge(t *testing.T) {
	_, err := Encode(strings.Repeat("a", 3000), Options{Level: Low})
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestInvalidInput(t *testing.T) {
	_, err := Encode("", DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = Encode("x", Options{Version: 41})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{"L": Low, "m": Medium, "": Medium, "0": Medium, "1": Low, "2": High, "3": Quartile, "Q": Quartile}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("Z")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
