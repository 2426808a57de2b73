// Package label holds the label geometry table for 300 dpi label printers.
package label

import (
	"errors"
	"fmt"
	"sort"
)

// DPI is the resolution every table entry is expressed in.
const DPI = 300

// DefaultUnits is the length of a continuous-tape label, in tape widths,
// when the caller gives none.
const DefaultUnits = 4

// ErrUnknownCode is returned for a label code not present in the table.
var ErrUnknownCode = errors.New("unknown label code")

// Kind distinguishes endless tape from pre-cut labels.
type Kind int

const (
	Continuous Kind = iota
	DieCut
)

func (k Kind) String() string {
	if k == Continuous {
		return "continuous"
	}
	return "die-cut"
}

// Spec is one entry of the label table.
type Spec struct {
	Code  string
	Kind  Kind
	Round bool

	// Printable area in dots. HeightPx is 0 for continuous tape.
	WidthPx  int
	HeightPx int

	// Physical size. LengthMM is 0 for continuous tape.
	WidthMM  int
	LengthMM int

	// Unused dots right of the printable area when the label sits on the head.
	OffsetRightPx int
}

// UnitHeightPx is the length quantum of a continuous label. A continuous
// canvas is always a positive multiple of it.
func (s Spec) UnitHeightPx() int {
	if s.Kind == Continuous {
		return s.WidthPx
	}
	return s.HeightPx
}

// Size returns the printable canvas size. Continuous tape gets DefaultUnits
// units of length.
func (s Spec) Size() (w, h int) {
	return s.SizeUnits(DefaultUnits)
}

// SizeUnits returns the canvas size for a continuous label of the given
// number of units. Die-cut labels ignore units.
func (s Spec) SizeUnits(units int) (w, h int) {
	if s.Kind != Continuous {
		return s.WidthPx, s.HeightPx
	}
	if units < 1 {
		units = DefaultUnits
	}
	return s.WidthPx, s.WidthPx * units
}

// Fits reports whether a bitmap of w×h dots can be printed on the label
// without resampling, either as is or transposed. The second result is true
// when the bitmap must be rotated by 90 degrees.
func (s Spec) Fits(w, h int) (ok, rotate bool) {
	if s.Kind == Continuous {
		switch {
		case w == s.WidthPx && h > 0:
			return true, false
		case h == s.WidthPx && w > 0:
			return true, true
		}
		return false, false
	}
	switch {
	case w == s.WidthPx && h == s.HeightPx:
		return true, false
	case w == s.HeightPx && h == s.WidthPx:
		return true, true
	}
	return false, false
}

func (s Spec) String() string {
	if s.Kind == Continuous {
		return fmt.Sprintf("%s (%dmm endless, %d dots)", s.Code, s.WidthMM, s.WidthPx)
	}
	return fmt.Sprintf("%s (%dx%dmm %s, %dx%d dots)", s.Code, s.WidthMM, s.LengthMM, s.Kind, s.WidthPx, s.HeightPx)
}

var table = map[string]Spec{
	"12":  {Code: "12", Kind: Continuous, WidthPx: 106, WidthMM: 12, OffsetRightPx: 29},
	"29":  {Code: "29", Kind: Continuous, WidthPx: 306, WidthMM: 29, OffsetRightPx: 6},
	"38":  {Code: "38", Kind: Continuous, WidthPx: 413, WidthMM: 38, OffsetRightPx: 12},
	"50":  {Code: "50", Kind: Continuous, WidthPx: 554, WidthMM: 50, OffsetRightPx: 12},
	"54":  {Code: "54", Kind: Continuous, WidthPx: 590, WidthMM: 54, OffsetRightPx: 0},
	"62":  {Code: "62", Kind: Continuous, WidthPx: 696, WidthMM: 62, OffsetRightPx: 12},
	"102": {Code: "102", Kind: Continuous, WidthPx: 1164, WidthMM: 102, OffsetRightPx: 12},

	"17x54":   {Code: "17x54", Kind: DieCut, WidthPx: 165, HeightPx: 566, WidthMM: 17, LengthMM: 54, OffsetRightPx: 0},
	"17x87":   {Code: "17x87", Kind: DieCut, WidthPx: 165, HeightPx: 956, WidthMM: 17, LengthMM: 87, OffsetRightPx: 0},
	"23x23":   {Code: "23x23", Kind: DieCut, WidthPx: 202, HeightPx: 202, WidthMM: 23, LengthMM: 23, OffsetRightPx: 42},
	"29x42":   {Code: "29x42", Kind: DieCut, WidthPx: 306, HeightPx: 425, WidthMM: 29, LengthMM: 42, OffsetRightPx: 6},
	"29x90":   {Code: "29x90", Kind: DieCut, WidthPx: 306, HeightPx: 991, WidthMM: 29, LengthMM: 90, OffsetRightPx: 6},
	"39x90":   {Code: "39x90", Kind: DieCut, WidthPx: 413, HeightPx: 991, WidthMM: 38, LengthMM: 90, OffsetRightPx: 12},
	"39x48":   {Code: "39x48", Kind: DieCut, WidthPx: 425, HeightPx: 495, WidthMM: 39, LengthMM: 48, OffsetRightPx: 6},
	"52x29":   {Code: "52x29", Kind: DieCut, WidthPx: 578, HeightPx: 271, WidthMM: 52, LengthMM: 29, OffsetRightPx: 0},
	"62x29":   {Code: "62x29", Kind: DieCut, WidthPx: 696, HeightPx: 271, WidthMM: 62, LengthMM: 29, OffsetRightPx: 12},
	"62x100":  {Code: "62x100", Kind: DieCut, WidthPx: 696, HeightPx: 1109, WidthMM: 62, LengthMM: 100, OffsetRightPx: 12},
	"102x51":  {Code: "102x51", Kind: DieCut, WidthPx: 1164, HeightPx: 526, WidthMM: 102, LengthMM: 51, OffsetRightPx: 12},
	"102x152": {Code: "102x152", Kind: DieCut, WidthPx: 1164, HeightPx: 1660, WidthMM: 102, LengthMM: 153, OffsetRightPx: 12},

	"d12": {Code: "d12", Kind: DieCut, Round: true, WidthPx: 94, HeightPx: 94, WidthMM: 12, LengthMM: 12, OffsetRightPx: 113},
	"d24": {Code: "d24", Kind: DieCut, Round: true, WidthPx: 236, HeightPx: 236, WidthMM: 24, LengthMM: 24, OffsetRightPx: 42},
	"d58": {Code: "d58", Kind: DieCut, Round: true, WidthPx: 618, HeightPx: 618, WidthMM: 58, LengthMM: 58, OffsetRightPx: 51},
}

// Lookup returns the table entry for code.
func Lookup(code string) (Spec, error) {
	s, ok := table[code]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownCode, code)
	}
	return s, nil
}

// All returns every table entry, continuous tape first, then by width.
func All() []Spec {
	out := make([]Spec, 0, len(table))
	for _, s := range table {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].WidthPx != out[j].WidthPx {
			return out[i].WidthPx < out[j].WidthPx
		}
		return out[i].HeightPx < out[j].HeightPx
	})
	return out
}
