// Package clock abstracts time so the controller's blocking delays can run
// against the wall clock on hardware and against simulated time in tests.
package clock

import "time"

// Clock provides the current time and blocking delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Real is the wall clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// Sleep blocks for d.
func (Real) Sleep(d time.Duration) { time.Sleep(d) }
