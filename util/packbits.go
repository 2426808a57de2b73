package util

import "errors"

// ErrPackBitsTruncated is returned by UnpackBits for a stream that ends inside a run.
var ErrPackBitsTruncated = errors.New("packbits: truncated stream")

// PackBits compresses src with the TIFF PackBits scheme. Runs and literals are
// at most 128 bytes long.
func PackBits(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/128+1)
	i := 0
	for i < len(src) {
		j := i + 1
		for j < len(src) && src[j] == src[i] && j-i < 128 {
			j++
		}
		if j-i >= 2 {
			out = append(out, byte(257-(j-i)), src[i])
			i = j
			continue
		}

		start := i
		for i < len(src) && i-start < 128 {
			if i+1 < len(src) && src[i] == src[i+1] {
				break
			}
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, src[start:i]...)
	}
	return out
}

// UnpackBits reverses PackBits.
func UnpackBits(src []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(src); {
		h := int8(src[i])
		i++
		switch {
		case h >= 0:
			n := int(h) + 1
			if i+n > len(src) {
				return nil, ErrPackBitsTruncated
			}
			out = append(out, src[i:i+n]...)
			i += n
		case h != -128:
			if i >= len(src) {
				return nil, ErrPackBitsTruncated
			}
			for k := 0; k < 1-int(h); k++ {
				out = append(out, src[i])
			}
			i++
		}
	}
	return out, nil
}
