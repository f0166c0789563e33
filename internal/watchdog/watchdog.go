// Package watchdog provides the hardware watchdog that resets the board when
// the controller stops refreshing it, and the boot-cause report read after a
// reset.
package watchdog

import (
	"strings"
	"time"
)

// Watchdog is a hardware reset timer.
type Watchdog interface {
	// Enable starts (or restarts) the watchdog with timeout and refreshes it.
	Enable(timeout time.Duration) error

	// Refresh restarts the countdown.
	Refresh()

	// Arm sets a new timeout without further refreshes. It is used to commit
	// a controlled reset: arm the shortest timeout and stop refreshing.
	Arm(timeout time.Duration) error

	// Close disarms the watchdog where the hardware allows it.
	Close() error
}

// BootCause is the set of reset sources reported at boot.
type BootCause uint8

const (
	CauseWatchdog BootCause = 1 << iota
	CausePowerOn
	CauseExternal
	CauseBrownOut
)

// Has reports whether c includes x.
func (c BootCause) Has(x BootCause) bool {
	return c&x != 0
}

func (c BootCause) String() string {
	var parts []string
	if c.Has(CauseWatchdog) {
		parts = append(parts, "watchdog")
	}
	if c.Has(CausePowerOn) {
		parts = append(parts, "power-on")
	}
	if c.Has(CauseExternal) {
		parts = append(parts, "external")
	}
	if c.Has(CauseBrownOut) {
		parts = append(parts, "brown-out")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// Noop is a Watchdog that does nothing, for hosts without a watchdog device.
type Noop struct{}

func (Noop) Enable(time.Duration) error {
	return nil
}

func (Noop) Refresh() {}

func (Noop) Arm(time.Duration) error {
	return nil
}

func (Noop) Close() error {
	return nil
}
