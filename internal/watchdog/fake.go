package watchdog

import (
	"sync"
	"time"

	"github.com/sweeney/gate-controller/internal/clock"
)

// Fake is a Watchdog for simulation. Hook Check into the fake clock's advance
// notifications; when the countdown lapses, onFire runs once, which is where
// a simulated board resets itself.
type Fake struct {
	mu        sync.Mutex
	clock     clock.Clock
	onFire    func()
	enabled   bool
	timeout   time.Duration
	last      time.Time
	fired     bool
	refreshes int
	maxGap    time.Duration

	// EnableError, if set, will be returned by Enable.
	EnableError error
}

// NewFake creates a disabled Fake.
func NewFake(clk clock.Clock, onFire func()) *Fake {
	return &Fake{clock: clk, onFire: onFire}
}

// Enable implements Watchdog.
func (f *Fake) Enable(timeout time.Duration) error {
	if f.EnableError != nil {
		return f.EnableError
	}
	f.mu.Lock()
	f.enabled = true
	f.timeout = timeout
	f.last = f.clock.Now()
	f.mu.Unlock()
	return nil
}

// Refresh implements Watchdog.
func (f *Fake) Refresh() {
	now := f.clock.Now()
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.enabled || f.fired {
		return
	}
	if gap := now.Sub(f.last); gap > f.maxGap {
		f.maxGap = gap
	}
	f.last = now
	f.refreshes++
}

// Arm implements Watchdog. Like the hardware, changing the prescaler
// restarts the countdown.
func (f *Fake) Arm(timeout time.Duration) error {
	f.mu.Lock()
	f.enabled = true
	f.timeout = timeout
	f.last = f.clock.Now()
	f.mu.Unlock()
	return nil
}

// Close implements Watchdog.
func (f *Fake) Close() error {
	f.mu.Lock()
	f.enabled = false
	f.mu.Unlock()
	return nil
}

// Check fires the watchdog if the countdown has lapsed at now.
func (f *Fake) Check(now time.Time) {
	f.mu.Lock()
	if !f.enabled || f.fired || now.Sub(f.last) <= f.timeout {
		f.mu.Unlock()
		return
	}
	f.fired = true
	fn := f.onFire
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Fired reports whether the watchdog has reset the board.
func (f *Fake) Fired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fired
}

// Enabled reports whether the watchdog is running.
func (f *Fake) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// Timeout returns the current timeout.
func (f *Fake) Timeout() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeout
}

// Refreshes returns the number of refreshes since the last ResetStats.
func (f *Fake) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

// MaxGap returns the longest interval between consecutive refreshes since
// the last ResetStats.
func (f *Fake) MaxGap() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxGap
}

// ResetStats clears the refresh statistics and restarts gap measurement at
// the current time.
func (f *Fake) ResetStats() {
	now := f.clock.Now()
	f.mu.Lock()
	f.refreshes = 0
	f.maxGap = 0
	f.last = now
	f.mu.Unlock()
}
