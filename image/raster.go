package image

// Bitmap is a packed 1-bit image, rows of Stride bytes, most significant bit
// first. A set bit is a black dot.
type Bitmap struct {
	Width, Height int
	Stride        int
	Data          []byte
}

// NewBitmap returns an all-white w×h bitmap.
func NewBitmap(w, h int) *Bitmap {
	stride := (w + 7) / 8
	return &Bitmap{Width: w, Height: h, Stride: stride, Data: make([]byte, stride*h)}
}

func (b *Bitmap) At(x, y int) bool {
	return b.Data[y*b.Stride+x/8]&(0x80>>uint(x%8)) != 0
}

func (b *Bitmap) Set(x, y int, black bool) {
	i := y*b.Stride + x/8
	mask := byte(0x80 >> uint(x%8))
	if black {
		b.Data[i] |= mask
	} else {
		b.Data[i] &^= mask
	}
}

// Row returns the packed bytes of row y.
func (b *Bitmap) Row(y int) []byte {
	return b.Data[y*b.Stride : (y+1)*b.Stride]
}

// Rotate90 returns b turned 90 degrees counter-clockwise. Dots are moved,
// never resampled.
func (b *Bitmap) Rotate90() *Bitmap {
	out := NewBitmap(b.Height, b.Width)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.At(x, y) {
				out.Set(y, b.Width-1-x, true)
			}
		}
	}
	return out
}

// Place copies b into a row of width dots starting at dot left and mirrors
// it horizontally when mirror is set. Dots outside the row are dropped.
func (b *Bitmap) Place(y, width, left int, mirror bool) []byte {
	row := make([]byte, (width+7)/8)
	for x := 0; x < b.Width; x++ {
		if !b.At(x, y) {
			continue
		}
		dx := left + x
		if mirror {
			dx = width - 1 - dx
		}
		if dx < 0 || dx >= width {
			continue
		}
		row[dx/8] |= 0x80 >> uint(dx%8)
	}
	return row
}

// Blank reports whether row y has no black dots.
func (b *Bitmap) Blank(y int) bool {
	for _, v := range b.Row(y) {
		if v != 0 {
			return false
		}
	}
	return true
}
