package printer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imgInternal "github.com/AlexStarov/qrlabel-GoLang-lib/image"
	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
	"github.com/AlexStarov/qrlabel-GoLang-lib/util"
)

// rasterRows decodes the raster lines of a Brother QL stream.
func rasterRows(t *testing.T, data []byte, rowBytes int) [][]byte {
	t.Helper()
	i := bytes.Index(data, []byte{0x1B, 0x69, 0x64})
	require.GreaterOrEqual(t, i, 0, "no margin command")
	i += 5
	compressed := bytes.HasPrefix(data[i:], []byte{0x4D, 0x02})
	if compressed {
		i += 2
	}
	var rows [][]byte
	for i < len(data) {
		switch data[i] {
		case 0x5A:
			require.True(t, compressed, "Z is only valid in TIFF mode")
			rows = append(rows, make([]byte, rowBytes))
			i++
		case 0x67:
			require.Equal(t, byte(0x00), data[i+1])
			n := int(data[i+2])
			row := data[i+3 : i+3+n]
			if compressed {
				var err error
				row, err = util.UnpackBits(row)
				require.NoError(t, err)
			}
			require.Len(t, row, rowBytes)
			rows = append(rows, row)
			i += 3 + n
		case 0x1A:
			require.Equal(t, len(data)-1, i, "print command must be last")
			return rows
		default:
			t.Fatalf("unexpected byte 0x%02x at %d", data[i], i)
		}
	}
	t.Fatal("stream not terminated")
	return nil
}

func TestEncodeBrotherDieCut(t *testing.T) {
	spec, err := label.Lookup("62x100")
	require.NoError(t, err)
	m, err := LookupModel("QL-710W")
	require.NoError(t, err)

	bm := imgInternal.NewBitmap(696, 1109)
	bm.Set(0, 0, true)
	bm.Set(695, 1108, true)

	data, err := EncodeBrother(bm, spec, m, BrotherOptions{Cut: true})
	require.NoError(t, err)

	assert.Equal(t, make([]byte, 200), data[:200])
	assert.Equal(t, []byte{0x1B, 0x40, 0x1B, 0x69, 0x61, 0x01}, data[200:206])

	info := bytes.Index(data, []byte{0x1B, 0x69, 0x7A})
	require.Greater(t, info, 0)
	assert.Equal(t, []byte{0x0B, 62, 100, 0x55, 0x04, 0x00, 0x00}, data[info+4:info+11])
	assert.True(t, bytes.Contains(data, []byte{0x1B, 0x69, 0x4D, 0x40}), "auto cut")
	assert.True(t, bytes.Contains(data, []byte{0x1B, 0x69, 0x64, 0x00, 0x00}), "no margin on die-cut")

	// QL models take g 0x00 n, n being the packed length in TIFF mode
	raster := bytes.Index(data, []byte{0x1B, 0x69, 0x64, 0x00, 0x00}) + 5
	assert.Equal(t, []byte{0x4D, 0x02, 0x67, 0x00}, data[raster:raster+4])
	assert.Less(t, int(data[raster+4]), 90)

	rows := rasterRows(t, data, 90)
	require.Len(t, rows, 1109)
	// left edge of the label lands 12 dots from the right of the head,
	// mirrored: dot 0 -> head dot 720-1-12.
	assert.Equal(t, byte(0x10), rows[0][88])
	assert.Equal(t, 1, countDots(rows[0]))
	// right edge -> head dot 720-1-(12+695) = 12
	assert.Equal(t, byte(0x08), rows[1108][1])
	for y := 1; y < 1108; y++ {
		require.Zero(t, countDots(rows[y]), "row %d", y)
	}
}

func countDots(row []byte) int {
	n := 0
	for _, b := range row {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestEncodeBrotherContinuousUncompressed(t *testing.T) {
	spec, _ := label.Lookup("29")
	m, _ := LookupModel("QL-700")
	bm := imgInternal.NewBitmap(306, 612)
	for y := 0; y < 612; y++ {
		bm.Set(y%306, y, true)
	}

	data, err := EncodeBrother(bm, spec, m, BrotherOptions{})
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data[:220], []byte{0x1B, 0x69, 0x61}), "QL-700 has no mode switch")

	info := bytes.Index(data, []byte{0x1B, 0x69, 0x7A})
	assert.Equal(t, []byte{0x0A, 29, 0}, data[info+4:info+7])
	assert.True(t, bytes.Contains(data, []byte{0x1B, 0x69, 0x64, 35, 0}), "feed margin on tape")

	rows := rasterRows(t, data, 90)
	require.Len(t, rows, 612)
	for _, r := range rows {
		assert.Equal(t, 1, countDots(r))
	}
}

func TestEncodeBrotherRotate(t *testing.T) {
	spec, _ := label.Lookup("62x29")
	m, _ := LookupModel("QL-820NWB")
	bm := imgInternal.NewBitmap(271, 696)
	data, err := EncodeBrother(bm, spec, m, BrotherOptions{Rotate: true})
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 400), data[:400])
	assert.Len(t, rasterRows(t, data, 90), 271)
}

func TestEncodeBrotherRejects(t *testing.T) {
	wide, _ := label.Lookup("102x51")
	narrow, _ := LookupModel("QL-710W")
	_, err := EncodeBrother(imgInternal.NewBitmap(1164, 526), wide, narrow, BrotherOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedPrinterModel)

	big, _ := LookupModel("QL-1060N")
	data, err := EncodeBrother(imgInternal.NewBitmap(1164, 526), wide, big, BrotherOptions{})
	require.NoError(t, err)
	assert.Len(t, rasterRows(t, data, 162), 526)

	spec, _ := label.Lookup("62x100")
	_, err = EncodeBrother(imgInternal.NewBitmap(696, 1000), spec, narrow, BrotherOptions{})
	assert.ErrorIs(t, err, ErrBitmapSize)

	escpos, _ := LookupModel("ESCPOS")
	_, err = EncodeBrother(imgInternal.NewBitmap(696, 1109), spec, escpos, BrotherOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedPrinterModel)
}
