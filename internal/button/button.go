// Package button turns falling edges on the push-button line into gate
// intents. Each edge is settled for the debounce delay; if the line is then
// still low, the source waits for release (refreshing the watchdog) and
// commits exactly one intent: an interrupt when the gate is moving, otherwise
// a latched press for the main loop.
package button

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/sweeney/gate-controller/internal/clock"
	"github.com/sweeney/gate-controller/internal/gpio"
	"github.com/sweeney/gate-controller/internal/logic"
	"github.com/sweeney/gate-controller/internal/watchdog"
)

// Target consumes committed intents.
type Target interface {
	// Interrupt halts the gate if it is moving and reports whether it did.
	// It completes the stop, persistence and state update before returning.
	Interrupt() bool

	// Press latches a toggle request for the main loop.
	Press()
}

// Counts reports what the source has seen since startup.
type Counts struct {
	Edges      int64
	Presses    int64
	Interrupts int64
}

// Source is the button intent stream.
type Source struct {
	clock  clock.Clock
	wdt    watchdog.Watchdog
	timing logic.Timing
	target Target
	btn    gpio.Button

	// pending is the edge latch. Edges arriving while one is pending
	// collapse into it.
	pending chan struct{}
	busy    atomic.Bool

	edges      atomic.Int64
	presses    atomic.Int64
	interrupts atomic.Int64
}

// NewSource creates a Source committing intents to target. The button is
// attached separately because its driver needs Edge as a callback.
func NewSource(clk clock.Clock, wdt watchdog.Watchdog, timing logic.Timing, target Target) *Source {
	return &Source{
		clock:   clk,
		wdt:     wdt,
		timing:  timing,
		target:  target,
		pending: make(chan struct{}, 1),
	}
}

// Attach sets the button line the source reads.
func (s *Source) Attach(btn gpio.Button) {
	s.btn = btn
}

// Edge records a falling edge. It never blocks and is safe to call from a
// driver's event goroutine.
func (s *Source) Edge() {
	s.edges.Add(1)
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// Service handles pending edges on the calling goroutine and returns when
// none remain. A call made while another is already handling an edge
// returns immediately; the edge stays latched and is handled afterwards,
// as a second interrupt would be on hardware.
func (s *Source) Service() {
	if !s.busy.CompareAndSwap(false, true) {
		return
	}
	defer s.busy.Store(false)

	for {
		select {
		case <-s.pending:
			s.handle(context.Background())
		default:
			return
		}
	}
}

// Run handles edges until ctx is cancelled.
func (s *Source) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.pending:
			if s.busy.CompareAndSwap(false, true) {
				s.handle(ctx)
				s.busy.Store(false)
			}
		}
	}
}

// Counts returns the edge and intent counters.
func (s *Source) Counts() Counts {
	return Counts{
		Edges:      s.edges.Load(),
		Presses:    s.presses.Load(),
		Interrupts: s.interrupts.Load(),
	}
}

func (s *Source) handle(ctx context.Context) {
	s.clock.Sleep(s.timing.ButtonDebounce)
	s.wdt.Refresh()

	if !s.held() {
		return
	}

	for s.held() {
		if ctx.Err() != nil {
			return
		}
		s.clock.Sleep(s.timing.ShortDelay)
		s.wdt.Refresh()
	}

	if s.target.Interrupt() {
		s.interrupts.Add(1)
		return
	}
	s.target.Press()
	s.presses.Add(1)
}

// held reports whether the line is low. A read failure counts as released
// so a broken line cannot hold the source forever.
func (s *Source) held() bool {
	if s.btn == nil {
		return false
	}
	pressed, err := s.btn.Pressed()
	if err != nil {
		log.Printf("button read failed: %v", err)
		return false
	}
	return pressed
}
