package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
)

// ChromedpRenderer renders markup in headless Chrome. One browser is shared,
// every render gets its own tab.
type ChromedpRenderer struct {
	opts          Options
	logger        *zap.Logger
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// NewChromedpRenderer starts the browser allocator, or connects to
// opts.RemoteURL when set.
func NewChromedpRenderer(opts Options) (*ChromedpRenderer, error) {
	opts.Timeout = timeoutOr(opts.Timeout)
	r := &ChromedpRenderer{opts: opts, logger: logInternal.Or(opts.Logger).Named("chromedp")}

	if opts.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
		r.newBrowser()
		return r, nil
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	r.newBrowser()
	return r, nil
}

func (r *ChromedpRenderer) newBrowser() {
	r.browserCtx, r.browserCancel = chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
}

// start launches the browser on first use, or again once it has gone away,
// and returns its context. The launch is bounded by ctx; a failed launch is
// retried by the next render.
func (r *ChromedpRenderer) start(ctx context.Context) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		if r.browserCtx.Err() == nil {
			return r.browserCtx, nil
		}
		r.logger.Warn("browser went away, relaunching")
		r.started = false
		r.newBrowser()
	}

	browserCtx, browserCancel := r.browserCtx, r.browserCancel
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(browserCtx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		browserCancel()
		r.newBrowser()
		return nil, err
	}
	r.started = true
	return browserCtx, nil
}

// Render loads markup into a fresh tab sized w×h and captures it as PNG.
func (r *ChromedpRenderer) Render(ctx context.Context, markup string, w, h int) (image.Image, error) {
	if err := validate(markup, w, h); err != nil {
		return nil, err
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	browserCtx, err := r.start(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("browser start timed out after %v", r.opts.Timeout), err)
		}
		return nil, NewRenderError(ErrCodeRenderFailed, "start browser", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()
	// tie the tab to the caller's deadline
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	html := WrapMarkup(markup, w, h)
	var shot []byte
	err = chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(w), int64(h), 1, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithClip(&page.Viewport{X: 0, Y: 0, Width: float64(w), Height: float64(h), Scale: 1}).
				WithCaptureBeyondViewport(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("markup rendering timed out after %v", r.opts.Timeout), err)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}

	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "decode screenshot", err)
	}
	r.logger.Debug("markup rendered",
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Duration("duration", time.Since(start)))
	return img, nil
}

// Close shuts the browser down.
func (r *ChromedpRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

var _ Renderer = (*ChromedpRenderer)(nil)
