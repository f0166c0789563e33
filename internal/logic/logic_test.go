package logic

import (
	"testing"
	"time"
)

func TestStateEncoding(t *testing.T) {
	tests := []struct {
		state State
		b     byte
		name  string
	}{
		{StateClosed, 0, "Closed"},
		{StateClosing, 1, "Closing"},
		{StateOpening, 2, "Opening"},
		{StateOpen, 3, "Open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Encode(); got != tt.b {
				t.Errorf("Encode: got %d, want %d", got, tt.b)
			}
			got, ok := Decode(tt.b)
			if !ok {
				t.Fatalf("Decode(%d): not ok", tt.b)
			}
			if got != tt.state {
				t.Errorf("Decode(%d): got %v, want %v", tt.b, got, tt.state)
			}
			if got.String() != tt.name {
				t.Errorf("String: got %q, want %q", got.String(), tt.name)
			}
		})
	}
}

func TestDecodeUnknownByte(t *testing.T) {
	for _, b := range []byte{4, 0x7F, 0xFF} {
		s, ok := Decode(b)
		if ok {
			t.Errorf("Decode(0x%02x): expected not ok", b)
		}
		if s != StateClosed {
			t.Errorf("Decode(0x%02x): got %v, want Closed", b, s)
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in, want State
	}{
		{StateClosed, StateClosed},
		{StateClosing, StateClosed},
		{StateOpening, StateOpen},
		{StateOpen, StateOpen},
	}
	for _, tt := range tests {
		if got := tt.in.Coerce(); got != tt.want {
			t.Errorf("%v.Coerce(): got %v, want %v", tt.in, got, tt.want)
		}
		if !tt.in.Coerce().Stable() {
			t.Errorf("%v.Coerce() is not stable", tt.in)
		}
	}
}

func TestMovingIsExactlyTransient(t *testing.T) {
	for _, s := range []State{StateClosed, StateClosing, StateOpening, StateOpen} {
		if s.Moving() == s.Stable() {
			t.Errorf("%v: Moving=%v Stable=%v", s, s.Moving(), s.Stable())
		}
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		from   State
		in     Input
		want   State
		wantOK bool
	}{
		{StateClosed, InputPress, StateOpening, true},
		{StateOpen, InputPress, StateClosing, true},
		{StateOpening, InputMotionTimeout, StateOpen, true},
		{StateClosing, InputMotionTimeout, StateClosed, true},
		{StateOpening, InputInterrupt, StateOpen, true},
		{StateClosing, InputInterrupt, StateClosed, true},
		{StateOpen, InputInterrupt, StateOpen, true},
		{StateClosed, InputInterrupt, StateClosed, true},
		{StateOpening, InputPress, StateOpening, false},
		{StateClosing, InputPress, StateClosing, false},
		{StateOpen, InputMotionTimeout, StateOpen, false},
		{StateClosed, InputMotionTimeout, StateClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+string(tt.in), func(t *testing.T) {
			got, ok := Next(tt.from, tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("got (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
			if ok && !Permitted(tt.from, got) {
				t.Errorf("Next produced a transition Permitted rejects: %v -> %v", tt.from, got)
			}
		})
	}
}

func TestPermittedRejectsDirectionChange(t *testing.T) {
	if Permitted(StateOpening, StateClosing) {
		t.Error("Opening -> Closing must not be permitted")
	}
	if Permitted(StateClosing, StateOpening) {
		t.Error("Closing -> Opening must not be permitted")
	}
	if Permitted(StateClosed, StateOpen) {
		t.Error("Closed -> Open must pass through Opening")
	}
}

func TestEventFor(t *testing.T) {
	want := map[State]EventType{
		StateClosed:  EventClosed,
		StateClosing: EventClosing,
		StateOpening: EventOpening,
		StateOpen:    EventOpen,
	}
	for s, e := range want {
		if got := EventFor(s); got != e {
			t.Errorf("EventFor(%v): got %s, want %s", s, got, e)
		}
	}
}

func TestDefaultTiming(t *testing.T) {
	tm := DefaultTiming()
	if tm.GateOperation != 30*time.Second {
		t.Errorf("GateOperation: got %v", tm.GateOperation)
	}
	if tm.RelaySwitching != 100*time.Millisecond {
		t.Errorf("RelaySwitching: got %v", tm.RelaySwitching)
	}
	if tm.ButtonDebounce != 250*time.Millisecond {
		t.Errorf("ButtonDebounce: got %v", tm.ButtonDebounce)
	}
	if tm.ShortDelay != 10*time.Millisecond {
		t.Errorf("ShortDelay: got %v", tm.ShortDelay)
	}
	if tm.ResetDelay != 5*time.Second {
		t.Errorf("ResetDelay: got %v", tm.ResetDelay)
	}
	if tm.RegularReset != 6*time.Hour {
		t.Errorf("RegularReset: got %v", tm.RegularReset)
	}
	if tm.WatchdogTimeout != time.Second || tm.WatchdogShort != 15*time.Millisecond {
		t.Errorf("watchdog: got %v / %v", tm.WatchdogTimeout, tm.WatchdogShort)
	}
}

// --- IdleScheduler ---

func TestIdleSchedulerArmsThenCommits(t *testing.T) {
	s := NewIdleScheduler(6*time.Hour, 5*time.Second)

	if a := s.Advance(6*time.Hour-time.Millisecond, false); a != ActionNone {
		t.Fatalf("before threshold: got %v", a)
	}
	if s.Scheduled() {
		t.Fatal("should not be scheduled before threshold")
	}

	if a := s.Advance(time.Millisecond, false); a != ActionArm {
		t.Fatalf("at threshold: got %v, want arm", a)
	}
	if !s.Scheduled() {
		t.Fatal("should be scheduled after arming")
	}
	if s.Idle() != 0 {
		t.Errorf("idle timer should restart on arming, got %v", s.Idle())
	}

	if a := s.Advance(4999*time.Millisecond, false); a != ActionNone {
		t.Fatalf("before reset delay: got %v", a)
	}
	if a := s.Advance(time.Millisecond, false); a != ActionCommit {
		t.Fatalf("at reset delay: got %v, want commit", a)
	}
}

func TestIdleSchedulerTouchAborts(t *testing.T) {
	s := NewIdleScheduler(time.Hour, 5*time.Second)
	s.Advance(time.Hour, false)
	if !s.Scheduled() {
		t.Fatal("expected armed")
	}

	s.Advance(4*time.Second, false)
	s.Touch()
	if s.Scheduled() {
		t.Error("Touch should clear the scheduled latch")
	}
	if s.Idle() != 0 {
		t.Errorf("Touch should zero the idle timer, got %v", s.Idle())
	}
	if a := s.Advance(2*time.Second, false); a != ActionNone {
		t.Errorf("after Touch: got %v, want none", a)
	}
}

func TestIdleSchedulerPausedWhileMoving(t *testing.T) {
	s := NewIdleScheduler(time.Minute, time.Second)
	s.Advance(59*time.Second, false)
	if a := s.Advance(10*time.Minute, true); a != ActionNone {
		t.Errorf("moving: got %v, want none", a)
	}
	if s.Idle() != 59*time.Second {
		t.Errorf("idle should not accumulate while moving, got %v", s.Idle())
	}
}
