package printer

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/disintegration/imaging"

	imgInternal "github.com/AlexStarov/qrlabel-GoLang-lib/image"
	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
	utilInternal "github.com/AlexStarov/qrlabel-GoLang-lib/util"
)

// Printer writes ESC/POS commands to a transport. The first write error is
// kept and returned by Err; later commands are dropped. Commands written
// from several goroutines are never interleaved.
type Printer struct {
	mu  sync.Mutex
	t   Transport
	err error

	// font metrics
	width, height byte
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.ReadWriter) *Printer {
	var t Transport
	if rc, ok := w.(io.ReadWriteCloser); ok {
		t = &RawTransport{conn: rc}
	} else {
		t = &RawTransport{conn: nopCloser{w}}
	}
	return &Printer{t: t, width: 1, height: 1}
}

// Err returns the first write error.
func (p *Printer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Write writes buf to printer as one command.
func (p *Printer) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	if err := writeAll(p.t, buf); err != nil {
		p.err = err
		return 0, err
	}
	return len(buf), nil
}

func (p *Printer) Reset() {
	p.width = 1
	p.height = 1
}

// Init resets the state of the printer, and writes the initialize code.
func (p *Printer) Init() {
	p.Reset()
	p.Write([]byte("\x1B@")) // ESC @
}

// Cut writes the partial cut code to the printer.
func (p *Printer) Cut() {
	p.Write([]byte("\x1DVA0")) // GS V
}

// Linefeed writes a line end to the printer.
func (p *Printer) Linefeed() {
	p.Write([]byte("\n"))
}

// FormfeedN feeds n lines.
func (p *Printer) FormfeedN(n int) {
	p.Write([]byte(fmt.Sprintf("\x1Bd%c", n))) // ESC d
}

// SetFontSize sets the character magnification, 1 to 8 in each direction.
func (p *Printer) SetFontSize(width, height byte) error {
	if width == 0 || height == 0 || width > 8 || height > 8 {
		return fmt.Errorf("invalid font size %dx%d", width, height)
	}
	p.width, p.height = width, height
	p.Write([]byte(fmt.Sprintf("\x1D!%c", ((p.width-1)<<4)|(p.height-1))))
	return nil
}

// SetAlign sets the alignment state and sends it to the printer.
func (p *Printer) SetAlign(align string) {
	a := 0
	switch align {
	case "left":
		a = 0
	case "center":
		a = 1
	case "right":
		a = 2
	default:
		logInternal.LogMessage(logInternal.WARN, fmt.Sprintf("invalid alignment %q", align))
	}
	p.Write([]byte(fmt.Sprintf("\x1Ba%c", a)))
}

// FeedAndCut feeds lines and cuts.
func (p *Printer) FeedAndCut(lines int) {
	if lines > 0 {
		p.FormfeedN(lines)
	}
	p.Cut()
}

// PrintImage prints img centred, using at most maxWidth dots per line.
func (p *Printer) PrintImage(img image.Image, maxWidth int) error {
	rasterConv := &imgInternal.Converter{
		MaxWidth:  maxWidth,
		Threshold: 0.5,
	}
	p.SetAlign("center")
	rasterConv.Print(img, p)
	return p.Err()
}

// Raster writes a rasterized version of a black and white image to the printer
// with the specified width, height, and lineWidth bytes per line.
func (p *Printer) Raster(width, height, lineWidth int, imgBw []byte, printingType imgInternal.PrintingType) {
	switch printingType {
	case imgInternal.BitImage:
		header := []byte{0x1d, 0x76, 0x30, 0x00} // GS v 0 m
		header = append(header, utilInternal.IntLowHigh(lineWidth, 2)...)
		header = append(header, utilInternal.IntLowHigh(height, 2)...)
		p.Write(append(header, imgBw...))

	case imgInternal.Graphics:
		for l := 0; l < height; {
			lines := imgInternal.GS8LMaxY
			if lines > height-l {
				lines = height - l
			}

			f112P := 10 + lines*lineWidth

			p.Write([]byte{
				0x1d, 0x38, 0x4c, // GS 8 L, Store the graphics data in the print buffer -- (raster format)
				byte(f112P), byte(f112P >> 8), byte(f112P >> 16), byte(f112P >> 24), // p1 p2 p3 p4
				0x30, 0x70, 0x30, // function 112
				0x01, 0x01, // bx, by -- zoom
				0x31,                          // c -- single-color printing model
				byte(width), byte(width >> 8), // xl, xh -- number of dots in the horizontal direction
				byte(lines), byte(lines >> 8), // yl, yh -- number of dots in the vertical direction
			})

			p.Write(imgBw[l*lineWidth : (l+lines)*lineWidth])

			p.Write([]byte{
				0x1d, 0x28, 0x4c, 0x02, 0x00, 0x30,
				0x32, // Fn 50: print the buffered graphics
			})

			l += lines
		}
	}
}

// EncodeESCPOS renders one label as an ESC/POS job: initialize, raster
// image, feed and cut.
func EncodeESCPOS(img image.Image, spec label.Spec, m Model, rotate bool) ([]byte, error) {
	if m.Protocol != ESCPOS {
		return nil, fmt.Errorf("%w: %s is not an ESC/POS model", ErrUnsupportedPrinterModel, m.Name)
	}
	if spec.WidthPx > m.HeadDots {
		return nil, fmt.Errorf("%w: %s cannot print %s", ErrUnsupportedPrinterModel, m.Name, spec.Code)
	}
	if rotate {
		img = imaging.Rotate90(img)
	}

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Init()
	if err := p.PrintImage(img, m.HeadDots); err != nil {
		return nil, err
	}
	if m.Cutting {
		p.FeedAndCut(3)
	} else {
		p.FormfeedN(3)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
