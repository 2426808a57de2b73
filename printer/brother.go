package printer

import (
	"bytes"
	"fmt"

	imgInternal "github.com/AlexStarov/qrlabel-GoLang-lib/image"
	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
	utilInternal "github.com/AlexStarov/qrlabel-GoLang-lib/util"
)

const (
	mediaContinuous = 0x0A
	mediaDieCut     = 0x0B

	continuousFeedMargin = 35
)

// BrotherOptions tune a Brother QL job.
type BrotherOptions struct {
	Cut bool
	// Rotate turns the bitmap 90 degrees counter-clockwise before printing.
	Rotate bool
}

// EncodeBrother builds the raster instruction stream for one label. bm must
// be exactly as wide as the label's printable area (after rotation).
func EncodeBrother(bm *imgInternal.Bitmap, spec label.Spec, m Model, opts BrotherOptions) ([]byte, error) {
	if m.Protocol != BrotherQL {
		return nil, fmt.Errorf("%w: %s is not a Brother QL model", ErrUnsupportedPrinterModel, m.Name)
	}
	if opts.Rotate {
		bm = bm.Rotate90()
	}
	if bm.Width != spec.WidthPx || bm.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d on %s", ErrBitmapSize, bm.Width, bm.Height, spec.Code)
	}
	if spec.Kind == label.DieCut && bm.Height != spec.HeightPx {
		return nil, fmt.Errorf("%w: %dx%d on %s", ErrBitmapSize, bm.Width, bm.Height, spec.Code)
	}
	offsetR := spec.OffsetRightPx + m.AdditionalOffsetRight
	left := m.HeadDots - spec.WidthPx - offsetR
	if left < 0 {
		return nil, fmt.Errorf("%w: %s cannot print %s", ErrUnsupportedPrinterModel, m.Name, spec.Code)
	}

	var b bytes.Buffer
	b.Write(make([]byte, m.InvalidateBytes))
	b.Write([]byte{0x1B, 0x40}) // ESC @ initialize

	if m.ModeSetting {
		b.Write([]byte{0x1B, 0x69, 0x61, 0x01}) // ESC i a: raster mode
	}

	// ESC i z: print information
	media, lengthMM := byte(mediaContinuous), 0
	if spec.Kind == label.DieCut {
		media, lengthMM = mediaDieCut, spec.LengthMM
	}
	b.Write([]byte{0x1B, 0x69, 0x7A, 0x80 | 0x40 | 0x08 | 0x04 | 0x02, media, byte(spec.WidthMM), byte(lengthMM)})
	b.Write(utilInternal.IntLowHigh(bm.Height, 4))
	b.Write([]byte{0x00, 0x00}) // first page

	if m.Cutting {
		autocut := byte(0x00)
		if opts.Cut {
			autocut = 0x40
		}
		b.Write([]byte{0x1B, 0x69, 0x4D, autocut}) // ESC i M
		b.Write([]byte{0x1B, 0x69, 0x41, 0x01})    // ESC i A: cut every label
	}
	if m.ExpandedMode {
		expanded := byte(0x00)
		if opts.Cut {
			expanded |= 0x08 // cut at end
		}
		b.Write([]byte{0x1B, 0x69, 0x4B, expanded}) // ESC i K
	}

	margin := 0
	if spec.Kind == label.Continuous {
		margin = continuousFeedMargin
	}
	b.Write([]byte{0x1B, 0x69, 0x64})
	b.Write(utilInternal.IntLowHigh(margin, 2)) // ESC i d

	if m.Compression {
		b.Write([]byte{0x4D, 0x02}) // M: TIFF
	}

	rowBytes := m.BytesPerRow()
	for y := 0; y < bm.Height; y++ {
		row := bm.Place(y, m.HeadDots, left, true)
		switch {
		case m.Compression && bm.Blank(y):
			b.WriteByte(0x5A) // Z: empty line
		case m.Compression:
			packed := utilInternal.PackBits(row)
			b.Write([]byte{0x67, 0x00, byte(len(packed))}) // g, compressed length
			b.Write(packed)
		default:
			b.Write([]byte{0x67, 0x00, byte(rowBytes)}) // g
			b.Write(row)
		}
	}

	b.WriteByte(0x1A) // print with feeding
	return b.Bytes(), nil
}
