// Package sim is a simulated gate board. It runs the real controller, button
// source and actuator against a fake clock, fake pins, an in-memory EEPROM
// and a fake watchdog. The EEPROM and the pins outlive resets; everything
// else is rebuilt on every boot, as it is on hardware.
//
// A Board is driven from a single goroutine. Button activity and faults are
// scheduled on the clock ahead of time and run nested inside whatever sleep
// the firmware is in when they come due, which is how an interrupt preempts
// a blocking delay.
package sim

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sweeney/gate-controller/internal/actuator"
	"github.com/sweeney/gate-controller/internal/button"
	"github.com/sweeney/gate-controller/internal/clock"
	"github.com/sweeney/gate-controller/internal/console"
	"github.com/sweeney/gate-controller/internal/gate"
	"github.com/sweeney/gate-controller/internal/gpio"
	"github.com/sweeney/gate-controller/internal/logic"
	"github.com/sweeney/gate-controller/internal/nvs"
	"github.com/sweeney/gate-controller/internal/watchdog"
)

// Epoch is the simulated power-on instant. Scheduling offsets are measured
// from it.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrBoardDown is returned when the board is held in reset.
	ErrBoardDown = errors.New("sim: board is in reset")

	// ErrBoardUp is returned by Boot on a running board.
	ErrBoardUp = errors.New("sim: board is already running")
)

// Phase is a reset phase reported by the controller.
type Phase struct {
	At    time.Time
	Phase gate.ResetPhase
}

// Board is a simulated gate board.
type Board struct {
	Clock  *clock.Fake
	Timing logic.Timing
	Pins   *gpio.FakeWriter
	NVS    *Journal

	// OnEvent and OnReset, if set, receive the controller's notifications
	// after the board has recorded them.
	OnEvent func(logic.Event)
	OnReset func(gate.ResetPhase)

	up     bool
	cause  watchdog.BootCause
	boots  int
	resets int

	lines  []string
	events []logic.Event
	phases []Phase

	life context.Context
	kill context.CancelFunc
	wdt  *watchdog.Fake
	btn  *gpio.FakeButton
	src  *button.Source
	ctrl *gate.Controller
}

// New creates a powered-off board with an erased EEPROM. The first Boot
// reports a power-on reset.
func New(timing logic.Timing) *Board {
	clk := clock.NewFake(Epoch)
	b := &Board{
		Clock:  clk,
		Timing: timing,
		Pins:   gpio.NewFakeWriter(clk.Now),
		NVS:    NewJournal(clk.Now),
		cause:  watchdog.CausePowerOn,
	}
	clk.OnAdvance(func(now time.Time) {
		if b.wdt != nil {
			b.wdt.Check(now)
		}
	})
	return b
}

// Boot brings the board out of reset and runs the controller's startup
// sequence.
func (b *Board) Boot() error {
	if b.up {
		return ErrBoardUp
	}
	b.boots++
	b.Pins.WriteError = nil
	b.life, b.kill = context.WithCancel(context.Background())
	b.wdt = watchdog.NewFake(b.Clock, func() { b.reset(watchdog.CauseWatchdog) })

	b.ctrl = gate.New(gate.Config{
		Clock:    b.Clock,
		Bridge:   actuator.New(b.Pins, b.Clock, b.Timing.RelaySwitching),
		Store:    nvs.NewStore(b.NVS),
		Watchdog: b.wdt,
		Console:  console.New(lineSink{b}),
		Timing:   b.Timing,
		Notify: func(e logic.Event) {
			b.events = append(b.events, e)
			if b.OnEvent != nil {
				b.OnEvent(e)
			}
		},
		OnReset: func(p gate.ResetPhase) {
			b.phases = append(b.phases, Phase{At: b.Clock.Now(), Phase: p})
			if b.OnReset != nil {
				b.OnReset(p)
			}
		},
	})
	b.src = button.NewSource(b.Clock, b.wdt, b.Timing, b.ctrl)
	b.btn = gpio.NewFakeButton(b.src.Edge)
	b.src.Attach(b.btn)

	cause := b.cause
	b.cause = 0
	b.up = true
	if err := b.ctrl.Boot(cause); err != nil {
		b.up = false
		b.kill()
		return err
	}
	return nil
}

// RunFor runs main-loop iterations until at least d of simulated time has
// passed or the board resets. An iteration that starts a movement runs it to
// completion, so the clock may end past d.
func (b *Board) RunFor(d time.Duration) error {
	if !b.up {
		return ErrBoardDown
	}
	deadline := b.Clock.Now().Add(d)
	for b.up && b.Clock.Now().Before(deadline) {
		if err := b.ctrl.Step(b.life); err != nil {
			return err
		}
	}
	return nil
}

// PressAt pushes the button at t and releases it hold later.
func (b *Board) PressAt(t, hold time.Duration) {
	b.lineAt(t, true)
	b.lineAt(t+hold, false)
}

// BounceAt makes the contact chatter from t: edges alternating transitions
// evenly spread over span, starting with a press. The line then settles low
// at t+span and is released hold later.
func (b *Board) BounceAt(t time.Duration, edges int, span, hold time.Duration) {
	step := span / time.Duration(edges)
	for i := 0; i < edges; i++ {
		b.lineAt(t+time.Duration(i)*step, i%2 == 0)
	}
	b.PressAt(t+span, hold)
}

// Wedge stalls the firmware at t for d without refreshing the watchdog.
func (b *Board) Wedge(t, d time.Duration) {
	b.Clock.At(Epoch.Add(t), func() {
		if b.up {
			b.Clock.Sleep(d)
		}
	})
}

// ResetAt pulls the external reset line at t.
func (b *Board) ResetAt(t time.Duration) {
	b.Clock.At(Epoch.Add(t), func() { b.reset(watchdog.CauseExternal) })
}

func (b *Board) lineAt(t time.Duration, low bool) {
	b.Clock.At(Epoch.Add(t), func() {
		if !b.up {
			return
		}
		if !low {
			b.btn.Release()
			return
		}
		b.btn.Press()
		b.src.Service()
	})
}

// reset holds the board in reset: outputs drop, the console goes quiet and
// the firmware unwinds. The next Boot reports cause.
func (b *Board) reset(cause watchdog.BootCause) {
	if !b.up {
		return
	}
	b.up = false
	b.resets++
	b.cause |= cause
	b.wdt.Close()
	b.Pins.PowerCycle()
	b.Pins.WriteError = ErrBoardDown
	b.kill()
}

// Up reports whether the board is running.
func (b *Board) Up() bool { return b.up }

// Boots returns the number of boots.
func (b *Board) Boots() int { return b.boots }

// Resets returns the number of resets, watchdog or external.
func (b *Board) Resets() int { return b.resets }

// Elapsed returns the simulated time since power-on.
func (b *Board) Elapsed() time.Duration { return b.Clock.Now().Sub(Epoch) }

// Controller returns the controller of the current boot.
func (b *Board) Controller() *gate.Controller { return b.ctrl }

// Source returns the button source of the current boot.
func (b *Board) Source() *button.Source { return b.src }

// Watchdog returns the watchdog of the current boot.
func (b *Board) Watchdog() *watchdog.Fake { return b.wdt }

// Lines returns every console line across boots.
func (b *Board) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Logged reports whether any console line contains substr.
func (b *Board) Logged(substr string) bool {
	for _, l := range b.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// History returns every output change across boots.
func (b *Board) History() []gpio.Change { return b.Pins.History() }

// Events returns every state entry across boots.
func (b *Board) Events() []logic.Event {
	out := make([]logic.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Phases returns every reset phase across boots.
func (b *Board) Phases() []Phase {
	out := make([]Phase, len(b.phases))
	copy(out, b.phases)
	return out
}

// lineSink collects console output while the board is up.
type lineSink struct{ b *Board }

func (s lineSink) Write(p []byte) (int, error) {
	if s.b.up {
		s.b.lines = append(s.b.lines, strings.TrimRight(string(p), "\r\n"))
	}
	return len(p), nil
}
