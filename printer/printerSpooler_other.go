//go:build !windows

package printer

import "fmt"

func openSpooler(printerName string) (Transport, error) {
	return nil, fmt.Errorf("%w: spooler printing of %q is only supported on Windows", ErrUnsupportedBackend, printerName)
}
