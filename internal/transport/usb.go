package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/gousb"
)

// Black Magic Probe trace capture defaults.
const (
	DefaultVID       = 0x1d50
	DefaultPID       = 0x6018
	DefaultInterface = 5
	DefaultEndpoint  = 0x85
)

// USBConfig selects the probe and its trace endpoint.
type USBConfig struct {
	VID       uint16
	PID       uint16
	Interface int
	Endpoint  uint8 // endpoint address, direction bit included
	// DevicePath is "bus-port"; empty selects the first matching probe.
	DevicePath string
}

// DefaultUSBConfig returns the configuration for a Black Magic Probe.
func DefaultUSBConfig() USBConfig {
	return USBConfig{
		VID:       DefaultVID,
		PID:       DefaultPID,
		Interface: DefaultInterface,
		Endpoint:  DefaultEndpoint,
	}
}

// ParseDevicePath splits a "bus-port" device path.
func ParseDevicePath(path string) (bus, port int, err error) {
	b, p, ok := strings.Cut(path, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid device path %q", path)
	}
	if bus, err = strconv.Atoi(b); err != nil {
		return 0, 0, fmt.Errorf("invalid device path %q: %w", path, err)
	}
	if port, err = strconv.Atoi(p); err != nil {
		return 0, 0, fmt.Errorf("invalid device path %q: %w", path, err)
	}
	return bus, port, nil
}

// matches reports whether desc is the probe selected by cfg.
func (cfg USBConfig) matches(desc *gousb.DeviceDesc) bool {
	if desc.Vendor != gousb.ID(cfg.VID) || desc.Product != gousb.ID(cfg.PID) {
		return false
	}
	if cfg.DevicePath == "" {
		return true
	}
	bus, port, err := ParseDevicePath(cfg.DevicePath)
	return err == nil && desc.Bus == bus && desc.Port == port
}

// USB reads trace data from a bulk IN endpoint of a debug probe.
type USB struct {
	ctx       *gousb.Context
	dev       *gousb.Device
	conf      *gousb.Config
	intf      *gousb.Interface
	ep        *gousb.InEndpoint
	closeOnce sync.Once
}

// newContext creates the libusb context. gousb panics when libusb cannot be
// initialised.
var newContext = gousb.NewContext

func openContext() (ctx *gousb.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok {
				rerr = fmt.Errorf("%v", r)
			}
			ctx, err = nil, newStatusError(StatusInitFailed, rerr)
		}
	}()
	return newContext(), nil
}

// OpenUSB opens the probe and claims its trace interface. Failures carry the
// Status of the step that failed.
func OpenUSB(cfg USBConfig) (_ *USB, err error) {
	if cfg.DevicePath != "" {
		if _, _, err := ParseDevicePath(cfg.DevicePath); err != nil {
			return nil, newStatusError(StatusNoDevPath, err)
		}
	}
	gctx, err := openContext()
	if err != nil {
		return nil, err
	}
	u := &USB{ctx: gctx}
	defer func() {
		if err != nil {
			u.Close()
		}
	}()

	devs, err := u.ctx.OpenDevices(cfg.matches)
	for i, d := range devs {
		if i == 0 {
			u.dev = d
		} else {
			d.Close()
		}
	}
	if u.dev == nil {
		if err != nil {
			return nil, newStatusError(StatusNoAccess, err)
		}
		return nil, newStatusError(StatusNoInterface, errors.New("no probe found"))
	}
	if err := u.dev.SetAutoDetach(true); err != nil {
		return nil, newStatusError(StatusNoAccess, err)
	}
	num, err := u.dev.ActiveConfigNum()
	if err != nil {
		return nil, newStatusError(StatusNoAccess, err)
	}
	if u.conf, err = u.dev.Config(num); err != nil {
		return nil, newStatusError(StatusNoAccess, err)
	}
	if u.intf, err = u.conf.Interface(cfg.Interface, 0); err != nil {
		return nil, newStatusError(StatusNoInterface, err)
	}
	if u.ep, err = u.intf.InEndpoint(int(cfg.Endpoint & 0x7F)); err != nil {
		return nil, newStatusError(StatusNoPipe, err)
	}
	return u, nil
}

// ReadContext implements Transport.
func (u *USB) ReadContext(ctx context.Context, p []byte) (int, error) {
	n, err := u.ep.ReadContext(ctx, p)
	if err != nil && ctx.Err() != nil {
		return n, ctx.Err()
	}
	return n, err
}

// Close implements Transport.
func (u *USB) Close() error {
	var errs []error
	u.closeOnce.Do(func() {
		if u.intf != nil {
			u.intf.Close()
		}
		if u.conf != nil {
			errs = append(errs, u.conf.Close())
		}
		if u.dev != nil {
			errs = append(errs, u.dev.Close())
		}
		errs = append(errs, u.ctx.Close())
	})
	return errors.Join(errs...)
}
