// Package labeler runs the label pipeline: QR code and text, composition
// or markup rendering, fitting to the label and either printing or
// previewing the result.
package labeler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"

	imgInternal "github.com/AlexStarov/qrlabel-GoLang-lib/image"
	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
	"github.com/AlexStarov/qrlabel-GoLang-lib/layout"
	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
	"github.com/AlexStarov/qrlabel-GoLang-lib/preview"
	"github.com/AlexStarov/qrlabel-GoLang-lib/printer"
	"github.com/AlexStarov/qrlabel-GoLang-lib/qr"
	"github.com/AlexStarov/qrlabel-GoLang-lib/render"
)

var (
	ErrInvalidRequest = errors.New("labeler: invalid request")
	ErrNoRenderer     = errors.New("labeler: no markup renderer configured")
)

// Mode selects what Handle produces.
type Mode string

const (
	ModePrint         Mode = "print"
	ModePreviewRaster Mode = "preview-raster"
	ModePreviewVector Mode = "preview-vector"
)

// ParseMode accepts the mode names and the short forms png and pdf. The
// empty string is ModePrint.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "print":
		return ModePrint, nil
	case "preview-raster", "png":
		return ModePreviewRaster, nil
	case "preview-vector", "pdf":
		return ModePreviewVector, nil
	}
	return "", fmt.Errorf("%w: mode %q", ErrInvalidRequest, s)
}

// Request describes one label.
type Request struct {
	// ObjectType picks the design from the layout set ("device", "rack").
	ObjectType string
	// Attributes are the object's fields, used for text and the QR payload.
	Attributes map[string]any
	// Layout replaces the design from the layout set when not nil.
	Layout *layout.Config
	// DesignNo is the numbered design of ObjectType, 1 when zero.
	DesignNo int

	LabelCode  string // empty means the registry default
	PrinterKey string // empty means the default printer
	Mode       Mode

	// Markup is an html/template rendered by the markup renderer instead of
	// the built-in compositor. It sees .QRCode (a data URI), .Text, .Lines,
	// .URL, .Object, .Width and .Height.
	Markup string

	// Timeout bounds the whole request, zero means no limit.
	Timeout time.Duration
}

// Result is the outcome of a request. Only the fields of the requested mode
// are set.
type Result struct {
	PNG     []byte
	DataURI string
	PDF     []byte

	// Width and Height are the size of the fitted bitmap. A design drawn
	// across the label comes out transposed.
	Width, Height int
	LabelCode     string
	Printer       string

	Text string
	URL  string
}

// Dispatcher prints a fitted label bitmap. *printer.Dispatcher implements
// it.
type Dispatcher interface {
	Dispatch(ctx context.Context, img image.Image, labelCode string, cfg printer.Config) error
}

// Options configure a Service.
type Options struct {
	Registry   printer.Registry
	Layouts    *layout.Set
	Renderer   render.Renderer
	Dispatcher Dispatcher
	// RenderTimeout bounds markup rendering when the request has no
	// shorter deadline.
	RenderTimeout time.Duration
	Logger        *zap.Logger
}

// Service turns label requests into printed labels or previews.
type Service struct {
	registry      printer.Registry
	layouts       *layout.Set
	renderer      render.Renderer
	dispatcher    Dispatcher
	renderTimeout time.Duration
	logger        *zap.Logger
}

// New creates a service. A nil layout set means the stock designs, a nil
// dispatcher one with default options.
func New(opts Options) *Service {
	logger := logInternal.Or(opts.Logger).Named("labeler")
	if opts.Layouts == nil {
		opts.Layouts = layout.DefaultSet()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = printer.NewDispatcher(printer.DispatcherOptions{Logger: logger})
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = 30 * time.Second
	}
	return &Service{
		registry:      opts.Registry,
		layouts:       opts.Layouts,
		renderer:      opts.Renderer,
		dispatcher:    opts.Dispatcher,
		renderTimeout: opts.RenderTimeout,
		logger:        logger,
	}
}

// Registry returns the printer registry.
func (s *Service) Registry() printer.Registry { return s.registry }

// Layouts returns the layout set.
func (s *Service) Layouts() *layout.Set { return s.layouts }

// Handle runs the pipeline for req. It returns either a complete result or
// an error, never a partial label.
func (s *Service) Handle(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cfg, err := s.design(req)
	if err != nil {
		return nil, err
	}

	code := s.registry.LabelCode(req.LabelCode)
	spec, err := label.Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", printer.ErrUnknownLabelCode, code)
	}

	var (
		pcfg  printer.Config
		pname string
	)
	if mode == ModePrint {
		if pcfg, pname, err = s.registry.Resolve(req.PrinterKey); err != nil {
			return nil, err
		}
		if _, err = printer.LookupModel(pcfg.Model); err != nil {
			return nil, err
		}
	}

	img, text, url, err := s.draw(ctx, req, cfg, spec)
	if err != nil {
		return nil, err
	}
	w, h := target(img, spec)
	prepared := imgInternal.Prepare(img, w, h)

	res := &Result{
		Width:     w,
		Height:    h,
		LabelCode: spec.Code,
		Text:      text,
		URL:       url,
	}
	switch mode {
	case ModePrint:
		if err := s.dispatcher.Dispatch(ctx, prepared, spec.Code, pcfg); err != nil {
			return nil, err
		}
		res.Printer = pname
	case ModePreviewRaster:
		if res.PNG, err = preview.PNG(prepared); err != nil {
			return nil, err
		}
		res.DataURI = preview.DataURI(res.PNG)
	case ModePreviewVector:
		if res.PDF, err = preview.PDF(prepared, label.DPI); err != nil {
			return nil, err
		}
	}

	s.logger.Info("label done",
		zap.String("mode", string(mode)),
		zap.String("object_type", req.ObjectType),
		zap.String("label", spec.Code),
		zap.String("printer", pname),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

func (s *Service) design(req Request) (layout.Config, error) {
	if req.Layout != nil {
		if err := req.Layout.Validate(); err != nil {
			return layout.Config{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return *req.Layout, nil
	}
	if req.ObjectType == "" {
		return layout.Config{}, fmt.Errorf("%w: object type or layout required", ErrInvalidRequest)
	}
	no := req.DesignNo
	if no == 0 {
		no = 1
	}
	return s.layouts.Get(req.ObjectType, no)
}

// draw produces the label image at the design's canvas size, before it is
// fitted to the label.
func (s *Service) draw(ctx context.Context, req Request, cfg layout.Config, spec label.Spec) (image.Image, string, string, error) {
	var (
		text, url string
		code      image.Image
		err       error
	)
	if cfg.WithText {
		if text, err = layout.Text(cfg, req.Attributes); err != nil {
			return nil, "", "", err
		}
	}
	if cfg.WithQR {
		if url, err = layout.URL(cfg, req.Attributes); err != nil {
			return nil, "", "", err
		}
		if code, err = qr.Encode(url, cfg.QR); err != nil {
			return nil, "", "", err
		}
	}

	cw, ch := cfg.CanvasSize()
	if cw <= 0 || ch <= 0 {
		cw, ch = spec.Size()
	}

	if req.Markup == "" {
		img, err := layout.Compose(code, text, cfg, image.Pt(cw, ch), imgInternal.Mono)
		return img, text, url, err
	}

	markup, err := s.markup(req, code, text, url, cw, ch)
	if err != nil {
		return nil, "", "", err
	}
	img, err := s.render(ctx, markup, cw, ch)
	return img, text, url, err
}

// target is the bitmap size handed to the printer: the label's own size, or
// its transpose for a design drawn the other way round. The dispatcher
// rotates a transposed bitmap while encoding it.
func target(img image.Image, spec label.Spec) (w, h int) {
	w, h = spec.Size()
	if imgInternal.NeedsRotation(img, w, h) {
		return h, w
	}
	return w, h
}

func (s *Service) markup(req Request, code image.Image, text, url string, w, h int) (string, error) {
	t, err := template.New("markup").Parse(req.Markup)
	if err != nil {
		return "", fmt.Errorf("%w: markup: %w", ErrInvalidRequest, err)
	}
	data := map[string]any{
		"Text":   text,
		"Lines":  strings.Split(text, "\n"),
		"URL":    url,
		"Object": req.Attributes,
		"Width":  w,
		"Height": h,
	}
	if code != nil {
		png, err := preview.PNG(code)
		if err != nil {
			return "", err
		}
		data["QRCode"] = template.URL(preview.DataURI(png))
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: markup: %w", ErrInvalidRequest, err)
	}
	return buf.String(), nil
}

func (s *Service) render(ctx context.Context, markup string, w, h int) (image.Image, error) {
	if s.renderer == nil {
		return nil, ErrNoRenderer
	}
	ctx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	img, err := s.renderer.Render(ctx, markup, w, h)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, render.ErrRenderTimeout) {
			return nil, render.NewRenderError(render.ErrCodeRenderTimeout, "markup rendering timed out", err)
		}
		return nil, err
	}
	return img, nil
}
