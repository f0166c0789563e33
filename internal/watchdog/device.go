//go:build linux

package watchdog

import (
	"fmt"
	"log"
	"math"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the kernel watchdog device node.
const DefaultDevice = "/dev/watchdog"

// Boot status bits from linux/watchdog.h.
const (
	wdiofExtern1    = 0x0004
	wdiofExtern2    = 0x0008
	wdiofPowerUnder = 0x0010
	wdiofCardReset  = 0x0020
)

// magicClose disarms drivers that support it when written before close.
var magicClose = []byte("V")

// Device is the Linux kernel watchdog. Opening the device starts it.
// The kernel only supports whole-second timeouts; shorter timeouts are
// rounded up to one second.
type Device struct {
	f      *os.File
	failed atomic.Bool
}

// Open opens the watchdog device at path.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open watchdog %s: %w", path, err)
	}
	return &Device{f: f}, nil
}

// Enable implements Watchdog.
func (d *Device) Enable(timeout time.Duration) error {
	if err := d.setTimeout(timeout); err != nil {
		return err
	}
	d.Refresh()
	return nil
}

// Refresh implements Watchdog. A failing refresh is logged once; the
// watchdog then resets the board, which is the intended outcome.
func (d *Device) Refresh() {
	if _, err := d.f.Write([]byte{0}); err != nil {
		if d.failed.CompareAndSwap(false, true) {
			log.Printf("watchdog refresh failed: %v", err)
		}
	}
}

// Arm implements Watchdog.
func (d *Device) Arm(timeout time.Duration) error {
	return d.setTimeout(timeout)
}

func (d *Device) setTimeout(timeout time.Duration) error {
	secs := int(math.Ceil(timeout.Seconds()))
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(int(d.f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		return fmt.Errorf("set watchdog timeout %ds: %w", secs, err)
	}
	return nil
}

// BootCause reads the driver's boot status. A board without any reported
// cause is taken to have been powered on.
func (d *Device) BootCause() (BootCause, error) {
	status, err := unix.IoctlGetInt(int(d.f.Fd()), unix.WDIOC_GETBOOTSTATUS)
	if err != nil {
		return CausePowerOn, fmt.Errorf("read watchdog boot status: %w", err)
	}
	return decodeBootStatus(status), nil
}

func decodeBootStatus(status int) BootCause {
	var c BootCause
	if status&wdiofCardReset != 0 {
		c |= CauseWatchdog
	}
	if status&(wdiofExtern1|wdiofExtern2) != 0 {
		c |= CauseExternal
	}
	if status&wdiofPowerUnder != 0 {
		c |= CauseBrownOut
	}
	if c == 0 {
		c = CausePowerOn
	}
	return c
}

// Close disarms the watchdog with the magic close character.
func (d *Device) Close() error {
	var errs []error
	if _, err := d.f.Write(magicClose); err != nil {
		errs = append(errs, fmt.Errorf("disarm watchdog: %w", err))
	}
	if err := d.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close watchdog: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
