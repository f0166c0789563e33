package logic

import "time"

// Action is what the idle scheduler asks the controller to do.
type Action int

const (
	ActionNone Action = iota
	// ActionArm schedules a controlled reset.
	ActionArm
	// ActionCommit performs the scheduled controlled reset.
	ActionCommit
)

func (a Action) String() string {
	switch a {
	case ActionArm:
		return "arm"
	case ActionCommit:
		return "commit"
	}
	return "none"
}

// IdleScheduler implements the two-phase scheduled reset: after regular of
// continuous idleness a reset is armed and the timer restarts; after a further
// delay of idleness the reset is committed. Any user intent or state
// transition calls Touch, which aborts a pending reset.
//
// Not safe for concurrent use; the controller guards it with its mutex.
type IdleScheduler struct {
	regular   time.Duration
	delay     time.Duration
	idle      time.Duration
	scheduled bool
}

// NewIdleScheduler creates a scheduler arming after regular and committing
// delay later.
func NewIdleScheduler(regular, delay time.Duration) *IdleScheduler {
	return &IdleScheduler{regular: regular, delay: delay}
}

// Advance accounts for elapsed time. The idle timer only runs while the gate
// is not moving.
func (s *IdleScheduler) Advance(elapsed time.Duration, moving bool) Action {
	if moving {
		return ActionNone
	}
	s.idle += elapsed

	if !s.scheduled {
		if s.idle >= s.regular {
			s.scheduled = true
			s.idle = 0
			return ActionArm
		}
		return ActionNone
	}

	if s.idle >= s.delay {
		return ActionCommit
	}
	return ActionNone
}

// Touch zeros the idle timer and clears a pending reset.
func (s *IdleScheduler) Touch() {
	s.idle = 0
	s.scheduled = false
}

// Idle returns the idle timer.
func (s *IdleScheduler) Idle() time.Duration {
	return s.idle
}

// Scheduled reports whether a controlled reset is armed.
func (s *IdleScheduler) Scheduled() bool {
	return s.scheduled
}
