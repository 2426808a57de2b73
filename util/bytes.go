package util

import (
	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
)

// IntLowHigh encodes n as a little-endian integer of b bytes (1 to 4), the
// byte order used by ESC/POS and Brother raster parameters.
func IntLowHigh(n int, b int) []byte {
	if b < 1 || b > 4 {
		logInternal.L().Sugar().Warnf("IntLowHigh: %d bytes requested, 1-4 supported", b)
	}

	out := make([]byte, b)
	for i := 0; i < b; i++ {
		out[i] = byte(n % 256)
		n = n / 256
	}
	return out
}
