package printer

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	rawPort = "9100"
	lpdPort = "515"
)

// OpenOptions tune Open.
type OpenOptions struct {
	DialTimeout time.Duration
	Logger      *zap.Logger
}

// Opener connects to a printer.
type Opener func(ctx context.Context, cfg Config, opts OpenOptions) (Transport, error)

// Open connects to the printer described by cfg.
//
//	network  tcp://host[:9100]   (port 515 is spoken to as LPD)
//	lpd      lpd://host[:515][/queue]
//	usb      usb://0x04f9:0x2042
//	serial   serial:///dev/ttyUSB0?baud=115200
//	file     file:///dev/usb/lp0
//	spooler  printer name (Windows only)
func Open(ctx context.Context, cfg Config, opts OpenOptions) (Transport, error) {
	backend, err := NormalizeBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendNetwork:
		host, port, queue, err := splitNetworkAddress(cfg.Address, rawPort)
		if err != nil {
			return nil, err
		}
		conn, err := dial(ctx, host, port, opts.DialTimeout)
		if err != nil {
			return nil, err
		}
		if port == lpdPort {
			return NewLPDTransport(conn, queue, opts.Logger), nil
		}
		return NewRawTransport(conn), nil

	case BackendLPD:
		host, port, queue, err := splitNetworkAddress(cfg.Address, lpdPort)
		if err != nil {
			return nil, err
		}
		conn, err := dial(ctx, host, port, opts.DialTimeout)
		if err != nil {
			return nil, err
		}
		return NewLPDTransport(conn, queue, opts.Logger), nil

	case BackendUSB:
		vid, pid, err := parseUSBAddress(cfg.Address)
		if err != nil {
			return nil, err
		}
		return openUSB(vid, pid)

	case BackendSerial:
		port, baud, err := parseSerialAddress(cfg.Address)
		if err != nil {
			return nil, err
		}
		return openSerial(port, baud, opts.Logger)

	case BackendFile:
		path := strings.TrimPrefix(cfg.Address, "file://")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
		if err != nil {
			return nil, err
		}
		return NewRawTransport(f), nil

	case BackendSpooler:
		return openSpooler(cfg.Address)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
}

func dial(ctx context.Context, host, port string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
}

// splitNetworkAddress accepts "tcp://host:port/queue", "host:port" and
// "host".
func splitNetworkAddress(addr, defaultPort string) (host, port, queue string, err error) {
	if !strings.Contains(addr, "://") {
		addr = "tcp://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", "", "", fmt.Errorf("printer: invalid address %q: %w", addr, err)
	}
	host, port = u.Hostname(), u.Port()
	if host == "" {
		return "", "", "", fmt.Errorf("printer: no host in address %q", addr)
	}
	if port == "" {
		port = defaultPort
	}
	return host, port, strings.Trim(u.Path, "/"), nil
}

// parseUSBAddress reads "usb://0x04f9:0x2042" or "04f9:2042". A trailing
// serial number ("/000A1B2C3D4E") is ignored.
func parseUSBAddress(addr string) (vid, pid uint16, err error) {
	s := strings.TrimPrefix(addr, "usb://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("printer: invalid usb address %q", addr)
	}
	var ids [2]uint16
	for i, p := range parts {
		p = strings.TrimPrefix(strings.ToLower(p), "0x")
		v, err := strconv.ParseUint(p, 16, 16)
		if err != nil {
			return 0, 0, fmt.Errorf("printer: invalid usb address %q: %w", addr, err)
		}
		ids[i] = uint16(v)
	}
	return ids[0], ids[1], nil
}

const defaultBaudRate = 9600

// parseSerialAddress reads "serial:///dev/ttyUSB0?baud=115200", "COM3" or
// "/dev/ttyUSB0".
func parseSerialAddress(addr string) (port string, baud int, err error) {
	baud = defaultBaudRate
	if !strings.HasPrefix(addr, "serial://") {
		return addr, baud, nil
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", 0, fmt.Errorf("printer: invalid serial address %q: %w", addr, err)
	}
	port = u.Path
	if u.Host != "" {
		port = u.Host + u.Path
	}
	if b := u.Query().Get("baud"); b != "" {
		baud, err = strconv.Atoi(b)
		if err != nil || baud <= 0 {
			return "", 0, fmt.Errorf("printer: invalid baud rate %q", b)
		}
	}
	return port, baud, nil
}
