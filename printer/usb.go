package printer

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
)

type usbConn struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint
}

var errUSBNotFound = errors.New("usb printer not found")

func findUSBPrinter(ctx *gousb.Context, vid, pid gousb.ID) (*gousb.Device, error) {
	dev, err := ctx.OpenDeviceWithVIDPID(vid, pid)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: %s:%s", errUSBNotFound, vid, pid)
	}
	return dev, nil
}

// openUSB claims the printer interface of the first device matching vid:pid
// and writes to its first bulk OUT endpoint.
func openUSB(vid, pid uint16) (Transport, error) {
	ctx := gousb.NewContext()
	dev, err := findUSBPrinter(ctx, gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, err
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, err
	}

	conn := &usbConn{ctx: ctx, dev: dev, cfg: cfg, intf: intf}
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && conn.out == nil:
			conn.out, err = intf.OutEndpoint(ep.Number)
		case ep.Direction == gousb.EndpointDirectionIn && conn.in == nil:
			conn.in, _ = intf.InEndpoint(ep.Number)
		}
		if err != nil {
			conn.Close()
			return nil, err
		}
	}
	if conn.out == nil {
		conn.Close()
		return nil, fmt.Errorf("usb %s:%s: no bulk OUT endpoint", gousb.ID(vid), gousb.ID(pid))
	}
	return NewRawTransport(conn), nil
}

func (u *usbConn) Read(p []byte) (int, error) {
	if u.in != nil {
		return u.in.Read(p)
	}
	return 0, fmt.Errorf("USB read not supported")
}

func (u *usbConn) Write(p []byte) (int, error) {
	return u.out.Write(p)
}

func (u *usbConn) Close() error {
	if u.intf != nil {
		u.intf.Close()
	}
	var err error
	if u.cfg != nil {
		err = u.cfg.Close()
	}
	if u.dev != nil {
		if cerr := u.dev.Close(); err == nil {
			err = cerr
		}
	}
	if u.ctx != nil {
		if cerr := u.ctx.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
