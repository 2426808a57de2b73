// Package render turns HTML/CSS label markup into bitmaps through an
// external layout engine.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Renderer lays out markup on a widthPx×heightPx page and returns the
// result as a bitmap. Callers must not rely on the returned size.
type Renderer interface {
	Render(ctx context.Context, markup string, widthPx, heightPx int) (image.Image, error)
	Close() error
}

// Func adapts a function to Renderer.
type Func func(ctx context.Context, markup string, widthPx, heightPx int) (image.Image, error)

func (f Func) Render(ctx context.Context, markup string, w, h int) (image.Image, error) {
	return f(ctx, markup, w, h)
}

func (f Func) Close() error { return nil }

// ErrRenderTimeout is matched by every RenderError with ErrCodeRenderTimeout.
var ErrRenderTimeout = errors.New("render timeout")

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout  = "RENDER_TIMEOUT"
	ErrCodeRenderFailed   = "RENDER_FAILED"
	ErrCodeInvalidMarkup  = "INVALID_MARKUP"
	ErrCodeBinaryNotFound = "BINARY_NOT_FOUND"
	ErrCodeUnknownEngine  = "UNKNOWN_ENGINE"
)

// RenderError represents an error during markup rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRenderTimeout && e.Code == ErrCodeRenderTimeout
}

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Options configure the engine adapters. Fields an engine does not use are
// ignored.
type Options struct {
	Engine  string // chromedp or wkhtmltoimage
	Timeout time.Duration

	// chromedp
	RemoteURL string
	NoSandbox bool

	// wkhtmltoimage
	BinaryPath string
	TempDir    string

	Logger *zap.Logger
}

// New returns the adapter named by opts.Engine. The engine is chosen once;
// the pipeline never branches on it.
func New(opts Options) (Renderer, error) {
	switch strings.ToLower(opts.Engine) {
	case "", "chromedp", "chrome":
		return NewChromedpRenderer(opts)
	case "wkhtmltoimage":
		return NewWkhtmltoimageRenderer(opts)
	}
	return nil, NewRenderError(ErrCodeUnknownEngine, fmt.Sprintf("unknown render engine %q", opts.Engine), nil)
}

// SizeStylesheet pins the page and the document to exactly w×h CSS pixels.
func SizeStylesheet(w, h int) string {
	return fmt.Sprintf("@page{size:%dpx %dpx;margin:0}"+
		"html,body{width:%dpx;height:%dpx;margin:0;padding:0;overflow:hidden;background:#fff}",
		w, h, w, h)
}

// WrapMarkup injects the sizing stylesheet into markup, wrapping fragments
// into a complete document.
func WrapMarkup(markup string, w, h int) string {
	style := "<style>" + SizeStylesheet(w, h) + "</style>"
	lower := strings.ToLower(markup)
	if i := strings.Index(lower, "</head>"); i >= 0 {
		return markup[:i] + style + markup[i:]
	}
	if strings.Contains(lower, "<html") {
		if i := strings.Index(lower, "<body"); i >= 0 {
			return markup[:i] + "<head>" + style + "</head>" + markup[i:]
		}
	}
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8">`)
	b.WriteString(style)
	b.WriteString("</head><body>")
	b.WriteString(markup)
	b.WriteString("</body></html>")
	return b.String()
}

func validate(markup string, w, h int) error {
	if strings.TrimSpace(markup) == "" {
		return NewRenderError(ErrCodeInvalidMarkup, "markup is empty", nil)
	}
	if w <= 0 || h <= 0 {
		return NewRenderError(ErrCodeInvalidMarkup, fmt.Sprintf("invalid page size %dx%d", w, h), nil)
	}
	return nil
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}
