// Package gate is the gate controller: the state machine that turns button
// intents and travel timeouts into H-bridge commands, persists terminal
// states, keeps the watchdog fed, and performs the scheduled controlled
// reset after a long idle period.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/gate-controller/internal/actuator"
	"github.com/sweeney/gate-controller/internal/clock"
	"github.com/sweeney/gate-controller/internal/gpio"
	"github.com/sweeney/gate-controller/internal/logic"
	"github.com/sweeney/gate-controller/internal/nvs"
	"github.com/sweeney/gate-controller/internal/watchdog"
)

// ErrControlledReset is returned by Run when a controlled reset was
// committed but the watchdog did not reset the board. The process should
// exit without disarming the watchdog so the supervisor (or the watchdog
// itself) restarts it.
var ErrControlledReset = errors.New("gate: controlled reset committed")

// ResetPhase identifies a step of the scheduled reset.
type ResetPhase string

const (
	ResetScheduled ResetPhase = "RESET_SCHEDULED"
	ResetCommitted ResetPhase = "CONTROLLED_RESET"
)

// Config holds the controller's collaborators.
type Config struct {
	Clock    clock.Clock
	Bridge   *actuator.HBridge
	Store    *nvs.Store
	Watchdog watchdog.Watchdog
	// Console receives the status log, one line per event.
	Console *log.Logger
	Timing  logic.Timing

	// Notify, if set, is called on every state entry. It is called with the
	// controller locked and must not block or call back into the Controller.
	Notify func(logic.Event)

	// OnReset, if set, is called when a scheduled reset is armed and when it
	// is committed.
	OnReset func(ResetPhase)
}

// Controller owns the gate state.
type Controller struct {
	clock   clock.Clock
	bridge  *actuator.HBridge
	store   *nvs.Store
	wdt     watchdog.Watchdog
	console *log.Logger
	timing  logic.Timing
	notify  func(logic.Event)
	onReset func(ResetPhase)

	// pressed is the latch set by the button source and consumed by Run.
	pressed atomic.Bool

	mu        sync.Mutex
	state     logic.State
	moving    bool
	since     time.Time
	sched     *logic.IdleScheduler
	counts    logic.EventCounts
	bootCause watchdog.BootCause
	recovered bool
}

// New creates a Controller. Boot must be called before Run.
func New(cfg Config) *Controller {
	return &Controller{
		clock:   cfg.Clock,
		bridge:  cfg.Bridge,
		store:   cfg.Store,
		wdt:     cfg.Watchdog,
		console: cfg.Console,
		timing:  cfg.Timing,
		notify:  cfg.Notify,
		onReset: cfg.OnReset,
		sched:   logic.NewIdleScheduler(cfg.Timing.RegularReset, cfg.Timing.ResetDelay),
	}
}

// Boot runs the startup sequence: outputs off, boot-cause narration,
// breadcrumb check, state restore, watchdog enable. The gate never moves
// at boot whatever the stored state.
func (c *Controller) Boot(cause watchdog.BootCause) error {
	c.bridge.Stop()
	c.console.Print("Gate controller booting")
	c.console.Print("I/O initialized")
	c.console.Print("Interrupts enabled")

	if cause.Has(watchdog.CauseWatchdog) {
		c.console.Print("System restarted via watchdog reset")
	}
	if cause.Has(watchdog.CausePowerOn) {
		c.console.Print("System experienced a power-on reset")
	}
	if cause.Has(watchdog.CauseExternal) {
		c.console.Print("System experienced an external reset")
	}
	if cause.Has(watchdog.CauseBrownOut) {
		c.console.Print("System experienced a brown-out reset")
	}

	recovered, err := c.store.TakeResetBreadcrumb()
	if err != nil {
		log.Printf("nvs: %v", err)
	}
	if recovered {
		c.console.Print("System recovered from controlled reset")
	}

	state, err := c.store.ReadState()
	if err != nil {
		log.Printf("nvs: %v", err)
		c.console.Print("Stored state unreadable, assuming gate closed")
		if errors.Is(err, nvs.ErrUnknownState) {
			// The fallback becomes the stored state.
			if err := c.store.WriteState(logic.StateClosed); err != nil {
				log.Printf("nvs: %v", err)
			}
		}
	}
	c.console.Print("EEPROM read complete")

	if err := c.wdt.Enable(c.timing.WatchdogTimeout); err != nil {
		return fmt.Errorf("enable watchdog: %w", err)
	}
	c.console.Print("Watchdog timer enabled")
	c.console.Print("Gate controller ready")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.bootCause = cause
	c.recovered = recovered
	c.enter(state, state, logic.CauseBoot)
	return nil
}

// Run is the main loop. It returns nil when ctx is cancelled, or
// ErrControlledReset if a committed controlled reset did not take effect.
func (c *Controller) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if err := c.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one main-loop iteration: refresh the watchdog, act on a latched
// press (a movement runs to completion or interruption inside the step),
// wait one tick and account idle time.
func (c *Controller) Step(ctx context.Context) error {
	c.wdt.Refresh()

	if c.pressed.Swap(false) {
		c.toggle(ctx)
	}

	start := c.clock.Now()
	c.clock.Sleep(c.timing.Tick)
	elapsed := c.clock.Now().Sub(start)

	c.mu.Lock()
	action := c.sched.Advance(elapsed, c.moving)
	c.mu.Unlock()

	switch action {
	case logic.ActionArm:
		c.console.Printf("Scheduled reset after %s of inactivity", hours(c.timing.RegularReset))
		c.mu.Lock()
		c.counts.ScheduledResets++
		c.mu.Unlock()
		if c.onReset != nil {
			c.onReset(ResetScheduled)
		}
	case logic.ActionCommit:
		return c.controlledReset(ctx)
	}
	return nil
}

// Press latches a toggle request. Rapid presses collapse into one.
func (c *Controller) Press() {
	c.mu.Lock()
	c.sched.Touch()
	c.counts.Presses++
	c.mu.Unlock()
	c.pressed.Store(true)
}

// Interrupt stops the gate if it is moving, parks it at the terminal it was
// heading toward and persists that terminal. It reports whether the gate
// was moving.
func (c *Controller) Interrupt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.moving {
		return false
	}
	c.sched.Touch()
	c.counts.Interrupts++

	c.console.Print("Emergency stop: gate halted immediately")
	c.bridge.Stop()
	c.wdt.Refresh()

	from := c.state
	to, _ := logic.Next(from, logic.InputInterrupt)
	switch from {
	case logic.StateOpening:
		c.console.Print("Gate movement interrupted while opening. Considering gate open")
	case logic.StateClosing:
		c.console.Print("Gate movement interrupted while closing. Considering gate closed")
	}
	c.park(from, to, logic.CauseInterrupt)
	return true
}

// Shutdown stops the gate for a normal process exit. A gate in motion is
// parked as if interrupted so the store holds a terminal state.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bridge.Stop()
	c.console.Print("Gate controller shutting down")
	if !c.moving {
		return
	}
	from := c.state
	to, _ := logic.Next(from, logic.InputInterrupt)
	c.park(from, to, logic.CauseShutdown)
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State          logic.State
	Moving         bool
	Since          time.Time
	IdleFor        time.Duration
	ResetScheduled bool
	Counts         logic.EventCounts
	BootCause      watchdog.BootCause
	Recovered      bool
	Outputs        gpio.Levels
}

// Snapshot returns the current controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:          c.state,
		Moving:         c.moving,
		Since:          c.since,
		IdleFor:        c.sched.Idle(),
		ResetScheduled: c.sched.Scheduled(),
		Counts:         c.counts,
		BootCause:      c.bootCause,
		Recovered:      c.recovered,
		Outputs:        c.bridge.Levels(),
	}
}

// State returns the current gate state.
func (c *Controller) State() logic.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Moving reports whether the motor is energized.
func (c *Controller) Moving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moving
}

func (c *Controller) toggle(ctx context.Context) {
	c.wdt.Refresh()

	c.mu.Lock()
	c.sched.Touch()
	from := c.state
	c.mu.Unlock()

	to, ok := logic.Next(from, logic.InputPress)
	if !ok {
		// Reversing mid-travel (Opening -> Closing) is not a permitted
		// transition; a press during motion is an interrupt, handled by
		// the button source. Only a race lands here.
		c.console.Print("Gate currently moving, press ignored")
		return
	}
	if to == logic.StateOpening {
		c.console.Print("Gate currently closed, opening")
	} else {
		c.console.Print("Gate currently open, closing")
	}
	c.move(ctx, from, to)
}

// move drives the gate from a terminal into a motion state and dwells for
// the travel time. The dwell ends early when an interrupt clears the
// movement flag; the interrupt has then already stopped and persisted.
func (c *Controller) move(ctx context.Context, from, to logic.State) {
	c.bridge.Stop()
	c.wdt.Refresh()
	c.clock.Sleep(c.timing.RelaySwitching)

	c.mu.Lock()
	if c.state != from || c.moving {
		c.mu.Unlock()
		return
	}
	var err error
	if to == logic.StateOpening {
		err = c.bridge.DriveOpen()
	} else {
		err = c.bridge.DriveClose()
	}
	if err != nil {
		c.bridge.Stop()
		c.mu.Unlock()
		log.Printf("drive %v: %v", to, err)
		c.console.Print("Relay drive failed, gate stopped")
		return
	}
	if to == logic.StateOpening {
		c.bridge.Indicate(actuator.IndicateOpening)
	} else {
		c.bridge.Indicate(actuator.IndicateClosing)
	}
	c.moving = true
	c.sched.Touch()
	c.enter(from, to, logic.CauseButton)
	c.mu.Unlock()

	for travelled := time.Duration(0); travelled < c.timing.GateOperation; travelled += c.timing.ShortDelay {
		c.clock.Sleep(c.timing.ShortDelay)
		c.wdt.Refresh()
		if !c.Moving() || ctx.Err() != nil {
			return
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.moving || c.state != to {
		return
	}
	c.bridge.Stop()
	dest, _ := logic.Next(to, logic.InputMotionTimeout)
	c.park(to, dest, logic.CauseTimeout)
	if dest == logic.StateOpen {
		c.console.Printf("%s have passed, setting gate to fully open", seconds(c.timing.GateOperation))
	} else {
		c.console.Printf("%s have passed, setting gate to fully closed", seconds(c.timing.GateOperation))
	}
}

// controlledReset parks the gate, leaves the breadcrumb and lets the
// watchdog expire.
func (c *Controller) controlledReset(ctx context.Context) error {
	c.console.Print("Performing controlled system reset")

	c.mu.Lock()
	if c.moving {
		c.bridge.Stop()
		from := c.state
		c.park(from, from.Destination(), logic.CauseShutdown)
	}
	c.mu.Unlock()

	if err := c.store.SetResetBreadcrumb(); err != nil {
		log.Printf("nvs: %v", err)
	}
	if c.onReset != nil {
		c.onReset(ResetCommitted)
	}
	if err := c.wdt.Arm(c.timing.WatchdogShort); err != nil {
		log.Printf("arm watchdog: %v", err)
	}

	grace := c.timing.WatchdogTimeout + 2*time.Second
	for start := c.clock.Now(); c.clock.Now().Sub(start) < grace; {
		if ctx.Err() != nil {
			return nil
		}
		c.clock.Sleep(c.timing.ShortDelay)
	}
	return ErrControlledReset
}

// park enters a terminal state after the coils are off. Caller holds mu.
func (c *Controller) park(from, to logic.State, cause logic.Cause) {
	c.moving = false
	c.sched.Touch()
	if err := c.store.WriteState(to); err != nil {
		log.Printf("nvs: %v", err)
	}
	switch to {
	case logic.StateOpen:
		c.counts.Opened++
	case logic.StateClosed:
		c.counts.Closed++
	}
	c.enter(from, to, cause)
}

// enter records and reports a state entry. Caller holds mu.
func (c *Controller) enter(from, to logic.State, cause logic.Cause) {
	if !logic.Permitted(from, to) {
		log.Printf("gate: transition %v -> %v not permitted (%s)", from, to, cause)
	}
	now := c.clock.Now()
	c.state = to
	c.since = now
	c.console.Printf("State: Gate %s", to)
	if c.notify != nil {
		c.notify(logic.Event{
			Timestamp: now,
			Type:      logic.EventFor(to),
			State:     to,
			From:      from,
			Cause:     cause,
		})
	}
}

func seconds(d time.Duration) string {
	if d == time.Second {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", int(d/time.Second))
}

func hours(d time.Duration) string {
	if d == time.Hour {
		return "1 hour"
	}
	if d%time.Hour != 0 {
		return d.String()
	}
	return fmt.Sprintf("%d hours", int(d/time.Hour))
}
