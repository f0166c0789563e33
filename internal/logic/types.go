// Package logic contains the pure domain model of the gate: its four states,
// their persisted encoding, the transition table, and the idle/reset schedule.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time / time.Duration parameters.
package logic

import "time"

// State is the gate state. The numeric values are the persisted encoding.
type State uint8

const (
	StateClosed  State = 0
	StateClosing State = 1
	StateOpening State = 2
	StateOpen    State = 3
)

// String returns the display name used in the status log ("State: Gate Open").
func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateClosing:
		return "Closing"
	case StateOpening:
		return "Opening"
	case StateOpen:
		return "Open"
	}
	return "Unknown"
}

// Encode returns the byte stored in non-volatile memory for s.
func (s State) Encode() byte {
	return byte(s)
}

// Decode parses a persisted byte. ok is false for bytes outside the encoding.
func Decode(b byte) (s State, ok bool) {
	if b > byte(StateOpen) {
		return StateClosed, false
	}
	return State(b), true
}

// Moving reports whether the motor is energized in s.
func (s State) Moving() bool {
	return s == StateOpening || s == StateClosing
}

// Stable reports whether s is a terminal rest state.
func (s State) Stable() bool {
	return s == StateOpen || s == StateClosed
}

// Destination returns the terminal state a motion state is heading toward.
// Stable states are their own destination.
func (s State) Destination() State {
	switch s {
	case StateOpening:
		return StateOpen
	case StateClosing:
		return StateClosed
	}
	return s
}

// Coerce maps a value read back from non-volatile memory onto a stable state.
// A transient value can only be present after an unclean reset mid-motion; the
// gate parks at the terminal it was heading toward and never resumes motion.
func (s State) Coerce() State {
	return s.Destination()
}

// Input is a controller input of the state machine.
type Input string

const (
	InputPress         Input = "PRESS"
	InputInterrupt     Input = "INTERRUPT"
	InputMotionTimeout Input = "MOTION_TIMEOUT"
)

// EventType names a state entry published to observers.
type EventType string

const (
	EventClosed  EventType = "GATE_CLOSED"
	EventClosing EventType = "GATE_CLOSING"
	EventOpening EventType = "GATE_OPENING"
	EventOpen    EventType = "GATE_OPEN"
)

// Cause explains why a state was entered.
type Cause string

const (
	CauseBoot      Cause = "boot"
	CauseButton    Cause = "button"
	CauseTimeout   Cause = "timeout"
	CauseInterrupt Cause = "interrupt"
	CauseShutdown  Cause = "shutdown"
)

// Event represents a state entry to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State
	From      State
	Cause     Cause
}

// EventFor returns the event type announcing entry into s.
func EventFor(s State) EventType {
	switch s {
	case StateClosing:
		return EventClosing
	case StateOpening:
		return EventOpening
	case StateOpen:
		return EventOpen
	}
	return EventClosed
}

// EventCounts tracks the number of gate operations since startup.
type EventCounts struct {
	Presses         int
	Interrupts      int
	Opened          int
	Closed          int
	ScheduledResets int
}

// Timing holds the controller's timing constants.
type Timing struct {
	// GateOperation is the full travel time in either direction.
	GateOperation time.Duration
	// RelaySwitching is the dead-time between deenergizing and energizing coils.
	RelaySwitching time.Duration
	ButtonDebounce time.Duration
	// ShortDelay is the granule of every wait that refreshes the watchdog.
	ShortDelay time.Duration
	// Tick is the main loop period.
	Tick            time.Duration
	ResetDelay      time.Duration
	RegularReset    time.Duration
	WatchdogTimeout time.Duration
	// WatchdogShort is the timeout armed to commit a controlled reset.
	WatchdogShort time.Duration
}

// Firmware timing constants.
const (
	GateOperationTime   = 30000 * time.Millisecond
	RelaySwitchingDelay = 100 * time.Millisecond
	ButtonDebounceDelay = 250 * time.Millisecond
	ShortDelay          = 10 * time.Millisecond
	TickDelay           = 1 * time.Millisecond
	ResetDelay          = 5000 * time.Millisecond
	RegularResetHours   = 6
	WatchdogTimeout     = 1000 * time.Millisecond
	WatchdogShort       = 15 * time.Millisecond
)

// DefaultTiming returns the firmware timing constants.
func DefaultTiming() Timing {
	return Timing{
		GateOperation:   GateOperationTime,
		RelaySwitching:  RelaySwitchingDelay,
		ButtonDebounce:  ButtonDebounceDelay,
		ShortDelay:      ShortDelay,
		Tick:            TickDelay,
		ResetDelay:      ResetDelay,
		RegularReset:    RegularResetHours * time.Hour,
		WatchdogTimeout: WatchdogTimeout,
		WatchdogShort:   WatchdogShort,
	}
}
