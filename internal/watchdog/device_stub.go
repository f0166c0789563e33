//go:build !linux

package watchdog

import (
	"errors"
	"time"
)

// DefaultDevice is the kernel watchdog device node.
const DefaultDevice = "/dev/watchdog"

// Device is not available on non-Linux platforms.
type Device struct{}

// Open returns an error on non-Linux platforms.
func Open(path string) (*Device, error) {
	return nil, errors.New("watchdog: not supported on this platform (requires Linux)")
}

func (d *Device) Enable(time.Duration) error {
	return nil
}

func (d *Device) Refresh() {}

func (d *Device) Arm(time.Duration) error {
	return nil
}

func (d *Device) BootCause() (BootCause, error) {
	return CausePowerOn, nil
}

func (d *Device) Close() error {
	return nil
}
