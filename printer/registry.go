package printer

import (
	"fmt"
	"sort"
	"strings"
)

// Backend names.
const (
	BackendNetwork = "network"
	BackendLPD     = "lpd"
	BackendUSB     = "usb"
	BackendSerial  = "serial"
	BackendFile    = "file"
	BackendSpooler = "spooler"
)

var backendAliases = map[string]string{
	"network":      BackendNetwork,
	"tcp":          BackendNetwork,
	"raw":          BackendNetwork,
	"lpd":          BackendLPD,
	"usb":          BackendUSB,
	"pyusb":        BackendUSB,
	"serial":       BackendSerial,
	"file":         BackendFile,
	"linux_kernel": BackendFile,
	"spooler":      BackendSpooler,
	"windows":      BackendSpooler,
}

// NormalizeBackend maps a backend name or alias to its canonical name.
func NormalizeBackend(name string) (string, error) {
	b, ok := backendAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
	}
	return b, nil
}

// Config addresses one printer.
type Config struct {
	Backend string
	Address string
	Model   string
}

// Validate checks the backend and model names.
func (c Config) Validate() error {
	if _, err := NormalizeBackend(c.Backend); err != nil {
		return err
	}
	if c.Address == "" {
		return fmt.Errorf("printer: empty address")
	}
	_, err := LookupModel(c.Model)
	return err
}

// Registry is the static printer configuration.
type Registry struct {
	Printers         map[string]Config
	DefaultPrinter   string
	DefaultLabelSize string
}

// Resolve returns the printer named key, or the default printer for an
// empty key, together with the name used.
func (r Registry) Resolve(key string) (Config, string, error) {
	if key == "" {
		key = r.DefaultPrinter
	}
	cfg, ok := r.Printers[key]
	if !ok {
		return Config{}, key, fmt.Errorf("%w: %q", ErrUnknownPrinter, key)
	}
	return cfg, key, nil
}

// LabelCode returns code, or the default label size when code is empty.
func (r Registry) LabelCode(code string) string {
	if code == "" {
		return r.DefaultLabelSize
	}
	return code
}

// Names lists the configured printers, sorted.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.Printers))
	for k := range r.Printers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks every printer and the defaults.
func (r Registry) Validate() error {
	for name, c := range r.Printers {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("printer %q: %w", name, err)
		}
	}
	if r.DefaultPrinter != "" {
		if _, ok := r.Printers[r.DefaultPrinter]; !ok {
			return fmt.Errorf("%w: default printer %q", ErrUnknownPrinter, r.DefaultPrinter)
		}
	}
	return nil
}
