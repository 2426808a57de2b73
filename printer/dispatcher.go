package printer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	imgInternal "github.com/AlexStarov/qrlabel-GoLang-lib/image"
	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
	logInternal "github.com/AlexStarov/qrlabel-GoLang-lib/log"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// Cut requests a cut after each label on models with a cutter.
	Cut bool
	// Open replaces the default Open, mainly for tests.
	Open   Opener
	Logger *zap.Logger
}

// Dispatcher encodes label bitmaps and sends them to printers. Jobs to the
// same printer address are sent one at a time.
type Dispatcher struct {
	opts   DispatcherOptions
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewDispatcher returns a dispatcher with defaults applied.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Open == nil {
		opts.Open = Open
	}
	return &Dispatcher{
		opts:   opts,
		logger: logInternal.Or(opts.Logger).Named("dispatcher"),
		locks:  make(map[string]chan struct{}),
	}
}

// Job is an encoded instruction stream ready for a transport.
type Job struct {
	Label  label.Spec
	Model  Model
	Rotate bool
	Data   []byte
}

// Encode resolves the label and model and builds the instruction stream for
// img. It does no I/O.
func (d *Dispatcher) Encode(img image.Image, labelCode string, cfg Config) (*Job, error) {
	spec, err := label.Lookup(labelCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabelCode, labelCode)
	}
	model, err := LookupModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	size := img.Bounds().Size()
	ok, rotate := spec.Fits(size.X, size.Y)
	if !ok {
		return nil, fmt.Errorf("%w: %dx%d on %s", ErrBitmapSize, size.X, size.Y, spec)
	}

	job := &Job{Label: spec, Model: model, Rotate: rotate}
	switch model.Protocol {
	case ESCPOS:
		job.Data, err = EncodeESCPOS(img, spec, model, rotate)
	default:
		conv := &imgInternal.Converter{Threshold: 0.5}
		job.Data, err = EncodeBrother(conv.ToBitmap(img), spec, model, BrotherOptions{
			Cut:    d.opts.Cut,
			Rotate: rotate,
		})
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Dispatch encodes img for the label and printer and writes it in a single
// job. Label and model errors are reported before any connection is made.
func (d *Dispatcher) Dispatch(ctx context.Context, img image.Image, labelCode string, cfg Config) error {
	job, err := d.Encode(img, labelCode, cfg)
	if err != nil {
		return err
	}
	return d.Send(ctx, job.Data, cfg)
}

// Send writes an encoded stream to the printer.
func (d *Dispatcher) Send(ctx context.Context, data []byte, cfg Config) error {
	backend, err := NormalizeBackend(cfg.Backend)
	if err != nil {
		return err
	}
	fail := func(op string, err error) error {
		return &TransportError{Op: op, Backend: backend, Address: cfg.Address, Err: err}
	}

	unlock, err := d.lock(ctx, backend+"|"+cfg.Address)
	if err != nil {
		return fail("open", err)
	}
	defer unlock()

	start := time.Now()
	t, err := d.opts.Open(ctx, cfg, OpenOptions{DialTimeout: d.opts.DialTimeout, Logger: d.logger})
	if err != nil {
		return fail("open", err)
	}
	closed := false
	defer func() {
		if !closed {
			cerr := t.Close()
			logInternal.PrintIfErr("close after failed write", &cerr)
		}
	}()

	if dl, ok := t.(deadliner); ok {
		deadline := time.Now().Add(d.opts.WriteTimeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		switch err := dl.SetWriteDeadline(deadline); {
		case errors.Is(err, os.ErrNoDeadline):
			// device files
			d.logger.Debug("transport has no write deadline", zap.String("address", cfg.Address))
		case err != nil:
			return fail("open", err)
		}
	}

	if err := writeAll(t, data); err != nil {
		return fail("write", err)
	}
	closed = true
	if err := t.Close(); err != nil {
		return fail("close", err)
	}

	d.logger.Info("label sent",
		zap.String("backend", backend),
		zap.String("address", cfg.Address),
		zap.String("model", cfg.Model),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// lock serialises jobs per printer address. It gives up when ctx ends.
func (d *Dispatcher) lock(ctx context.Context, key string) (func(), error) {
	d.mu.Lock()
	ch, ok := d.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		d.locks[key] = ch
	}
	d.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
