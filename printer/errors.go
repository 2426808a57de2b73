package printer

import (
	"errors"
	"fmt"

	"github.com/AlexStarov/qrlabel-GoLang-lib/label"
)

var (
	// ErrUnknownLabelCode also matches label.ErrUnknownCode.
	ErrUnknownLabelCode        = fmt.Errorf("printer: %w", label.ErrUnknownCode)
	ErrUnsupportedPrinterModel = errors.New("printer: unsupported printer model")
	ErrUnknownPrinter          = errors.New("printer: unknown printer")
	ErrUnsupportedBackend      = errors.New("printer: unsupported backend")
	// ErrBitmapSize is returned for a bitmap that matches the label in
	// neither orientation.
	ErrBitmapSize = errors.New("printer: bitmap does not match label")
	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("printer: transport error")
)

// TransportError wraps a failure to open, write to or close a printer
// connection.
type TransportError struct {
	Op      string // open, write, close
	Backend string
	Address string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("printer: %s %s %s: %v", e.Op, e.Backend, e.Address, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
