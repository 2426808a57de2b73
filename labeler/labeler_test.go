package labeler

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexStarov/qrlabel-GoLang-lib/layout"
	"github.com/AlexStarov/qrlabel-GoLang-lib/printer"
	"github.com/AlexStarov/qrlabel-GoLang-lib/render"
)

type recorder struct {
	mu     sync.Mutex
	opens  int
	writes [][]byte
	images []image.Image

	dispatcher *printer.Dispatcher
}

func (r *recorder) Dispatch(ctx context.Context, img image.Image, code string, cfg printer.Config) error {
	r.mu.Lock()
	r.images = append(r.images, img)
	r.mu.Unlock()
	return r.dispatcher.Dispatch(ctx, img, code, cfg)
}

type recordingTransport struct{ r *recorder }

func (t recordingTransport) Write(b []byte) (int, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	t.r.writes = append(t.r.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (t recordingTransport) Read([]byte) (int, error) { return 0, nil }
func (t recordingTransport) Close() error             { return nil }

func (r *recorder) open(context.Context, printer.Config, printer.OpenOptions) (printer.Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opens++
	return recordingTransport{r}, nil
}

var device = map[string]any{
	"name":   "Device-42",
	"serial": "SN12345",
	"url":    "https://example.com/assets/42",
}

func newService(t *testing.T, renderer render.Renderer) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	rec.dispatcher = printer.NewDispatcher(printer.DispatcherOptions{Open: rec.open})
	svc := New(Options{
		Registry: printer.Registry{
			Printers: map[string]printer.Config{
				"office": {Backend: "network", Address: "tcp://192.0.2.10:9100", Model: "QL-710W"},
			},
			DefaultPrinter:   "office",
			DefaultLabelSize: "62x100",
		},
		Renderer:   renderer,
		Dispatcher: rec,
	})
	return svc, rec
}

func TestHandlePrint(t *testing.T) {
	svc, rec := newService(t, nil)

	res, err := svc.Handle(context.Background(), Request{
		ObjectType: "device",
		Attributes: device,
		LabelCode:  "62x100",
	})
	require.NoError(t, err)
	assert.Equal(t, "office", res.Printer)
	assert.Equal(t, "62x100", res.LabelCode)
	// the stock design is 56x32mm, drawn across the label
	assert.Equal(t, 1109, res.Width)
	assert.Equal(t, 696, res.Height)
	assert.Equal(t, "Device-42\nSN12345", res.Text)
	assert.Equal(t, "https://example.com/assets/42", res.URL)
	assert.Nil(t, res.PNG)

	require.Len(t, rec.images, 1)
	assert.Equal(t, image.Pt(1109, 696), rec.images[0].Bounds().Size())
	require.Equal(t, 1, rec.opens)
	require.Len(t, rec.writes, 1)
	job := rec.writes[0]
	info := bytes.Index(job, []byte{0x1B, 'i', 'z'})
	require.Positive(t, info)
	// die-cut 62x100mm, 1109 raster lines
	assert.Equal(t, []byte{0x0B, 62, 100, 0x55, 0x04, 0, 0}, job[info+4:info+11])
	assert.Equal(t, byte(0x1A), job[len(job)-1])
}

// inkBounds is the bounding box of the dark pixels of img inside r.
func inkBounds(img image.Image, r image.Rectangle) image.Rectangle {
	var out image.Rectangle
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if g := color.GrayModel.Convert(img.At(x, y)).(color.Gray); g.Y < 128 {
				out = out.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return out
}

// inkRuns counts the bands of consecutive rows of r that hold ink.
func inkRuns(img image.Image, r image.Rectangle) int {
	runs, inside := 0, false
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := !inkBounds(img, image.Rect(r.Min.X, y, r.Max.X, y+1)).Empty()
		if row && !inside {
			runs++
		}
		inside = row
	}
	return runs
}

func TestHandlePrintOnLabelCanvas(t *testing.T) {
	svc, rec := newService(t, nil)
	cfg := layout.DefaultConfig()
	cfg.LabelWidth, cfg.LabelHeight = 0, 0
	cfg.TextFields = []string{"name", "serial"}
	cfg.TextLocation = layout.TextRight

	res, err := svc.Handle(context.Background(), Request{
		Layout:     &cfg,
		Attributes: device,
		LabelCode:  "62x100",
	})
	require.NoError(t, err)
	assert.Equal(t, "Device-42\nSN12345", res.Text)
	require.Len(t, rec.writes, 1)
	require.Len(t, rec.images, 1)

	img := rec.images[0]
	require.Equal(t, image.Pt(696, 1109), img.Bounds().Size())

	// 1.5mm edge, 12mm QR code, 1mm gap at 300 dpi
	edge, side, gap := 18, 142, 12
	split := edge + side + gap/2
	code := inkBounds(img, image.Rect(0, 0, split, 1109))
	require.False(t, code.Empty(), "no QR code left of the text")
	assert.GreaterOrEqual(t, code.Min.X, edge)
	assert.LessOrEqual(t, code.Max.X, edge+side)
	assert.InDelta(t, side, code.Dx(), 2)
	assert.InDelta(t, side, code.Dy(), 2)
	assert.InDelta(t, 1109/2, (code.Min.Y+code.Max.Y)/2, 2)

	text := inkBounds(img, image.Rect(split, 0, 696, 1109))
	require.False(t, text.Empty(), "no text right of the QR code")
	assert.GreaterOrEqual(t, text.Min.X, edge+side+gap)
	assert.Less(t, text.Min.Y, code.Max.Y)
	assert.Greater(t, text.Max.Y, code.Min.Y)
	assert.Equal(t, 2, inkRuns(img, text))

	assert.Equal(t, code.Union(text), inkBounds(img, img.Bounds()))
}

func TestHandleFailsClosed(t *testing.T) {
	svc, rec := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Handle(ctx, Request{ObjectType: "device", Attributes: device, LabelCode: "zz99"})
	assert.ErrorIs(t, err, printer.ErrUnknownLabelCode)

	_, err = svc.Handle(ctx, Request{ObjectType: "device", Attributes: device, PrinterKey: "basement"})
	assert.ErrorIs(t, err, printer.ErrUnknownPrinter)

	_, err = svc.Handle(ctx, Request{ObjectType: "device", Attributes: map[string]any{"name": "x"}})
	assert.ErrorIs(t, err, layout.ErrNoURL)

	_, err = svc.Handle(ctx, Request{ObjectType: "toaster", Attributes: device})
	assert.ErrorIs(t, err, layout.ErrUnknownObjectType)

	_, err = svc.Handle(ctx, Request{ObjectType: "device", DesignNo: 2, Attributes: device})
	assert.ErrorIs(t, err, layout.ErrUnknownDesign)

	_, err = svc.Handle(ctx, Request{Attributes: device})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Handle(ctx, Request{ObjectType: "device", Attributes: device, Mode: "fax"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	tiny := layout.DefaultConfig()
	tiny.LabelWidth, tiny.LabelHeight = 2, 2
	tiny.EdgeLeft, tiny.EdgeRight = 1.5, 1.5
	_, err = svc.Handle(ctx, Request{Layout: &tiny, Attributes: device})
	assert.ErrorIs(t, err, layout.ErrLayoutOverflow)

	assert.Zero(t, rec.opens)
}

func TestHandlePreviewRaster(t *testing.T) {
	svc, rec := newService(t, nil)
	cfg := layout.DefaultConfig()
	cfg.WithText = false
	cfg.QR.Border = 4

	res, err := svc.Handle(context.Background(), Request{
		Layout:     &cfg,
		Attributes: device,
		Mode:       ModePreviewRaster,
	})
	require.NoError(t, err)
	assert.Zero(t, rec.opens)
	assert.True(t, strings.HasPrefix(res.DataURI, "data:image/png;base64,"))

	img, err := png.Decode(bytes.NewReader(res.PNG))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(1109, 696), img.Bounds().Size())

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)
	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}
	decoded, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/assets/42", decoded.GetText())
}

func TestHandlePreviewVector(t *testing.T) {
	svc, _ := newService(t, nil)
	res, err := svc.Handle(context.Background(), Request{
		ObjectType: "rack",
		Attributes: map[string]any{"name": "R1", "url": "https://example.com/racks/1"},
		LabelCode:  "29",
		Mode:       "pdf",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF-")))
	assert.Equal(t, 306*4, res.Width)
	assert.Equal(t, 306, res.Height)
}

func TestHandleMarkup(t *testing.T) {
	var got string
	var size image.Point
	renderer := render.Func(func(ctx context.Context, markup string, w, h int) (image.Image, error) {
		got, size = markup, image.Pt(w, h)
		// renderers may return any size; the pipeline fits it
		img := image.NewGray(image.Rect(0, 0, 100, 50))
		for i := range img.Pix {
			img.Pix[i] = 0xff
		}
		img.SetGray(50, 25, color.Gray{})
		return img, nil
	})
	svc, rec := newService(t, renderer)

	_, err := svc.Handle(context.Background(), Request{
		ObjectType: "device",
		Attributes: device,
		Markup:     `<div><img src="{{.QRCode}}"><p>{{range .Lines}}{{.}}<br>{{end}}</p></div>`,
	})
	require.NoError(t, err)
	assert.Contains(t, got, `src="data:image/png;base64,`)
	assert.Contains(t, got, "Device-42<br>SN12345<br>")
	assert.Equal(t, image.Pt(661, 378), size)
	require.Len(t, rec.writes, 1)
}

func TestHandleMarkupErrors(t *testing.T) {
	svc, _ := newService(t, nil)
	req := Request{ObjectType: "device", Attributes: device, Markup: "<p>{{.Text}}</p>", Mode: ModePreviewRaster}
	_, err := svc.Handle(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoRenderer)

	slow := render.Func(func(ctx context.Context, markup string, w, h int) (image.Image, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	svc, rec := newService(t, slow)
	svc.renderTimeout = 20 * time.Millisecond
	req.Mode = ModePrint
	_, err = svc.Handle(context.Background(), req)
	assert.ErrorIs(t, err, render.ErrRenderTimeout)

	req.Markup = "<p>{{.Text</p>"
	_, err = svc.Handle(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, rec.opens)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":               ModePrint,
		"PNG":            ModePreviewRaster,
		"preview-vector": ModePreviewVector,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
