package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
)

const defaultWkhtmltoimagePath = "wkhtmltoimage"

// WkhtmltoimageRenderer runs the wkhtmltoimage binary once per render.
type WkhtmltoimageRenderer struct {
	opts   Options
	logger *zap.Logger
}

// NewWkhtmltoimageRenderer resolves the binary and returns the adapter.
func NewWkhtmltoimageRenderer(opts Options) (*WkhtmltoimageRenderer, error) {
	opts.Timeout = timeoutOr(opts.Timeout)
	if opts.BinaryPath == "" {
		opts.BinaryPath = defaultWkhtmltoimagePath
	}
	path, err := resolveBinaryPath(opts.BinaryPath)
	if err != nil {
		return nil, NewRenderError(ErrCodeBinaryNotFound,
			fmt.Sprintf("wkhtmltoimage binary not found at %q", opts.BinaryPath), err)
	}
	opts.BinaryPath = path
	return &WkhtmltoimageRenderer{opts: opts, logger: logInternal.Or(opts.Logger).Named("wkhtmltoimage")}, nil
}

func resolveBinaryPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return exec.LookPath(path)
}

// Render writes the wrapped markup to a temp file and converts it to PNG.
func (r *WkhtmltoimageRenderer) Render(ctx context.Context, markup string, w, h int) (image.Image, error) {
	if err := validate(markup, w, h); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	dir, err := os.MkdirTemp(r.opts.TempDir, "qrlabel-render-*")
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "create temp dir", err)
	}
	defer os.RemoveAll(dir)

	htmlPath := filepath.Join(dir, "label.html")
	outPath := filepath.Join(dir, "label.png")
	if err := os.WriteFile(htmlPath, []byte(WrapMarkup(markup, w, h)), 0o600); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "write markup", err)
	}

	args := []string{
		"--quiet",
		"--format", "png",
		"--width", strconv.Itoa(w),
		"--height", strconv.Itoa(h),
		"--disable-smart-width",
		"--disable-javascript",
		htmlPath, outPath,
	}
	cmd := exec.CommandContext(ctx, r.opts.BinaryPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("markup rendering timed out after %v", r.opts.Timeout), err)
		}
		r.logger.Error("wkhtmltoimage failed",
			zap.Error(err),
			zap.String("stderr", stderr.String()))
		return nil, NewRenderError(ErrCodeRenderFailed, "wkhtmltoimage execution failed: "+stderr.String(), err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "read output", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "decode output", err)
	}
	return img, nil
}

func (r *WkhtmltoimageRenderer) Close() error { return nil }

var _ Renderer = (*WkhtmltoimageRenderer)(nil)
