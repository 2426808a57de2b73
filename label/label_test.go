package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		code string
		w, h int
		kind Kind
	}{
		{"62x100", 696, 1109, DieCut},
		{"29x90", 306, 991, DieCut},
		{"d24", 236, 236, DieCut},
		{"62", 696, 696 * DefaultUnits, Continuous},
		{"12", 106, 106 * DefaultUnits, Continuous},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			s, err := Lookup(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, s.Kind)
			w, h := s.Size()
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("zz99")
	assert.ErrorIs(t, err, ErrUnknownCode)
}

func TestContinuousHeightIsMultipleOfUnit(t *testing.T) {
	s, err := Lookup("29")
	require.NoError(t, err)
	for units := 1; units <= 6; units++ {
		_, h := s.SizeUnits(units)
		assert.Zero(t, h%s.UnitHeightPx())
	}
	_, h := s.SizeUnits(0)
	assert.Equal(t, s.WidthPx*DefaultUnits, h)
}

func TestFits(t *testing.T) {
	die, _ := Lookup("62x29")
	ok, rot := die.Fits(696, 271)
	assert.True(t, ok)
	assert.False(t, rot)
	ok, rot = die.Fits(271, 696)
	assert.True(t, ok)
	assert.True(t, rot)
	ok, _ = die.Fits(696, 300)
	assert.False(t, ok)

	tape, _ := Lookup("62")
	ok, rot = tape.Fits(696, 1500)
	assert.True(t, ok)
	assert.False(t, rot)
	ok, rot = tape.Fits(1500, 696)
	assert.True(t, ok)
	assert.True(t, rot)
}

func TestAllSorted(t *testing.T) {
	all := All()
	assert.Len(t, all, len(table))
	assert.Equal(t, "12", all[0].Code)
	for i := 1; i < len(all); i++ {
		if all[i-1].Kind == all[i].Kind {
			assert.LessOrEqual(t, all[i-1].WidthPx, all[i].WidthPx)
		}
	}
}
