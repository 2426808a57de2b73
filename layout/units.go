package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DPI converts millimetre geometry into label pixels.
const DPI = 300

// MM is a length in millimetres.
type MM float64

// Px converts m into dots at dpi, rounded to the nearest dot.
func (m MM) Px(dpi int) int {
	return int(math.Round(float64(m) / 25.4 * float64(dpi)))
}

func (m MM) String() string {
	return strconv.FormatFloat(float64(m), 'f', -1, 64) + "mm"
}

// ParseLength reads "12mm", "1.5mm", "0.5in", "2cm", "40px" (dots at DPI) or a
// bare number of millimetres.
func ParseLength(s string) (MM, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, nil
	}
	unit := 1.0
	for _, u := range []struct {
		suffix string
		factor float64
	}{
		{"mm", 1},
		{"cm", 10},
		{"in", 25.4},
		{"px", 25.4 / DPI},
	} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			unit = u.factor
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative length %q", s)
	}
	return MM(v * unit), nil
}
