package sim

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/gate-controller/internal/gpio"
	"github.com/sweeney/gate-controller/internal/logic"
	"github.com/sweeney/gate-controller/internal/nvs"
)

func newBoard(t *testing.T, timing logic.Timing, stored logic.State) *Board {
	t.Helper()
	b := New(timing)
	b.NVS.Poke(nvs.OffsetState, stored.Encode())
	b.NVS.Poke(nvs.OffsetBreadcrumb, 0)
	if err := b.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	return b
}

func boot(t *testing.T, stored logic.State) *Board {
	t.Helper()
	return newBoard(t, logic.DefaultTiming(), stored)
}

func run(t *testing.T, b *Board, d time.Duration) {
	t.Helper()
	if err := b.RunFor(d); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func stored(t *testing.T, b *Board) byte {
	t.Helper()
	v, err := b.NVS.Load(nvs.OffsetState)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	return v
}

func at(d time.Duration) time.Time {
	return Epoch.Add(d)
}

// find returns the first change at or after from matching pred.
func find(h []gpio.Change, from int, pred func(gpio.Levels) bool) (int, gpio.Change, bool) {
	for i := from; i < len(h); i++ {
		if pred(h[i].Levels) {
			return i, h[i], true
		}
	}
	return -1, gpio.Change{}, false
}

func energized(h []gpio.Change) bool {
	_, _, ok := find(h, 0, gpio.Levels.AnyCoil)
	return ok
}

func loggedSince(b *Board, from int, substr string) bool {
	for _, l := range b.Lines()[from:] {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func TestPressOpensClosedGate(t *testing.T) {
	b := boot(t, logic.StateClosed)
	b.PressAt(time.Second, 300*time.Millisecond)
	run(t, b, 40*time.Second)

	if !b.Logged("Gate currently closed, opening") {
		t.Errorf("missing opening line in %q", b.Lines())
	}

	h := b.History()
	i, on, ok := find(h, 0, gpio.Levels.OpenCoils)
	if !ok {
		t.Fatal("open coils never energized")
	}
	if !on.Levels[gpio.RelayOpenA] || !on.Levels[gpio.RelayOpenB] || on.Levels.CloseCoils() {
		t.Errorf("drive levels: %v", on.Levels)
	}
	release := at(1300 * time.Millisecond)
	if d := on.At.Sub(release); d < 100*time.Millisecond || d > 110*time.Millisecond {
		t.Errorf("coils energized %v after the press, want 100-110ms", d)
	}

	_, off, ok := find(h, i+1, func(l gpio.Levels) bool { return !l.AnyCoil() })
	if !ok {
		t.Fatal("coils never released")
	}
	if got := off.At.Sub(on.At); got != 30*time.Second {
		t.Errorf("energized for %v, want 30s", got)
	}

	if got := stored(t, b); got != logic.StateOpen.Encode() {
		t.Errorf("stored state: got %d, want %d", got, logic.StateOpen.Encode())
	}
	if got := b.Controller().State(); got != logic.StateOpen {
		t.Errorf("state: got %v, want Open", got)
	}
	if !b.Logged("setting gate to fully open") {
		t.Errorf("missing completion line in %q", b.Lines())
	}
}

func TestSecondPressInterruptsClosing(t *testing.T) {
	b := boot(t, logic.StateOpen)
	b.PressAt(0, 300*time.Millisecond)
	b.PressAt(5*time.Second, 300*time.Millisecond)
	run(t, b, 10*time.Second)

	for _, want := range []string{
		"Gate currently open, closing",
		"Emergency stop: gate halted immediately",
		"Gate movement interrupted while closing. Considering gate closed",
	} {
		if !b.Logged(want) {
			t.Errorf("missing %q in %q", want, b.Lines())
		}
	}

	events := b.Events()
	last := events[len(events)-1]
	if last.Type != logic.EventClosed || last.From != logic.StateClosing || last.Cause != logic.CauseInterrupt {
		t.Fatalf("last event: %+v", last)
	}
	if !last.Timestamp.Equal(at(5300 * time.Millisecond)) {
		t.Errorf("interrupt committed at %v, want on release", last.Timestamp.Sub(Epoch))
	}

	h := b.History()
	i, _, ok := find(h, 0, gpio.Levels.CloseCoils)
	if !ok {
		t.Fatal("close coils never energized")
	}
	_, off, ok := find(h, i+1, func(l gpio.Levels) bool { return !l.AnyCoil() })
	if !ok {
		t.Fatal("coils never released")
	}
	if d := off.At.Sub(last.Timestamp); d < 0 || d > time.Millisecond {
		t.Errorf("coils released %v after the interrupt, want within 1ms", d)
	}

	if got := stored(t, b); got != logic.StateClosed.Encode() {
		t.Errorf("stored state: got %d", got)
	}
	if got := b.Controller().State(); got != logic.StateClosed {
		t.Errorf("state: got %v", got)
	}
}

func TestBootCoercesMotionState(t *testing.T) {
	tests := []struct {
		stored logic.State
		want   logic.State
	}{
		{logic.StateOpening, logic.StateOpen},
		{logic.StateClosing, logic.StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.stored.String(), func(t *testing.T) {
			b := boot(t, tt.stored)

			if got := b.Controller().State(); got != tt.want {
				t.Errorf("state: got %v, want %v", got, tt.want)
			}
			events := b.Events()
			if len(events) != 1 || events[0].State != tt.want || events[0].Cause != logic.CauseBoot {
				t.Errorf("boot events: %+v", events)
			}
			if !b.Logged("State: Gate " + tt.want.String()) {
				t.Errorf("missing state line in %q", b.Lines())
			}

			run(t, b, 2*time.Second)
			if energized(b.History()) {
				t.Error("relays actuated without a press")
			}
			if got := b.Controller().State(); got != tt.want {
				t.Errorf("state after idle: got %v, want %v", got, tt.want)
			}
		})
	}
}

func checkScheduledReset(t *testing.T, b *Board, regular time.Duration, line string) {
	t.Helper()

	if b.Up() {
		t.Fatal("board still running after the reset delay")
	}
	if b.Resets() != 1 {
		t.Errorf("resets: got %d, want 1", b.Resets())
	}
	for _, want := range []string{line, "Performing controlled system reset"} {
		if !b.Logged(want) {
			t.Errorf("missing %q in %q", want, b.Lines())
		}
	}

	phases := b.Phases()
	if len(phases) != 2 {
		t.Fatalf("phases: %+v", phases)
	}
	if !phases[0].At.Equal(at(regular)) {
		t.Errorf("scheduled at %v, want %v", phases[0].At.Sub(Epoch), regular)
	}
	if got := phases[1].At.Sub(phases[0].At); got != b.Timing.ResetDelay {
		t.Errorf("committed %v after scheduling, want %v", got, b.Timing.ResetDelay)
	}
	if v, _ := b.NVS.Load(nvs.OffsetBreadcrumb); v != 1 {
		t.Errorf("breadcrumb: got %d, want 1", v)
	}

	n := len(b.Lines())
	if err := b.Boot(); err != nil {
		t.Fatalf("reboot: %v", err)
	}
	for _, want := range []string{"System restarted via watchdog reset", "System recovered from controlled reset"} {
		if !loggedSince(b, n, want) {
			t.Errorf("missing %q after reboot in %q", want, b.Lines()[n:])
		}
	}
	if v, _ := b.NVS.Load(nvs.OffsetBreadcrumb); v != 0 {
		t.Errorf("breadcrumb not cleared: %d", v)
	}
	if energized(b.History()) {
		t.Error("relays actuated across the reset")
	}
}

func TestScheduledResetAfterSixHours(t *testing.T) {
	if testing.Short() {
		t.Skip("six simulated hours at a 1ms tick")
	}
	b := boot(t, logic.StateClosed)
	run(t, b, 6*time.Hour+10*time.Second)

	checkScheduledReset(t, b, 6*time.Hour, "Scheduled reset after 6 hours of inactivity")
}

func TestScheduledResetScaled(t *testing.T) {
	timing := logic.DefaultTiming()
	timing.RegularReset = 2 * time.Second
	timing.ResetDelay = 500 * time.Millisecond

	b := newBoard(t, timing, logic.StateClosed)
	run(t, b, 10*time.Second)

	checkScheduledReset(t, b, 2*time.Second, "Scheduled reset after 2s of inactivity")
}

func TestBounceGivesOnePress(t *testing.T) {
	b := boot(t, logic.StateClosed)
	b.BounceAt(time.Second, 10, 50*time.Millisecond, 550*time.Millisecond)
	run(t, b, 3*time.Second)

	counts := b.Source().Counts()
	if counts.Edges != 6 {
		t.Errorf("falling edges: got %d, want 6", counts.Edges)
	}
	if counts.Presses != 1 || counts.Interrupts != 0 {
		t.Errorf("intents: %+v", counts)
	}

	var opening int
	for _, e := range b.Events() {
		if e.Type == logic.EventOpening {
			opening++
			if e.From != logic.StateClosed {
				t.Errorf("opening from %v", e.From)
			}
		}
	}
	if opening != 1 {
		t.Errorf("opening transitions: got %d, want 1", opening)
	}
}

func TestWedgedLoopResetsBoard(t *testing.T) {
	for _, st := range []logic.State{logic.StateClosed, logic.StateOpen} {
		t.Run(st.String(), func(t *testing.T) {
			b := boot(t, st)
			b.Wedge(2*time.Second, 1200*time.Millisecond)
			run(t, b, 5*time.Second)

			if b.Up() || b.Resets() != 1 {
				t.Fatalf("up=%v resets=%d, want a watchdog reset", b.Up(), b.Resets())
			}
			if b.Pins.Levels() != (gpio.Levels{}) {
				t.Errorf("outputs survived the reset: %v", b.Pins.Levels())
			}

			n := len(b.Lines())
			if err := b.Boot(); err != nil {
				t.Fatalf("reboot: %v", err)
			}
			if !loggedSince(b, n, "System restarted via watchdog reset") {
				t.Errorf("missing watchdog line in %q", b.Lines()[n:])
			}
			if loggedSince(b, n, "System recovered from controlled reset") {
				t.Error("an involuntary reset must not look controlled")
			}
			if loggedSince(b, n, "power-on") {
				t.Error("power-on reported after a watchdog reset")
			}
			if got := b.Controller().State(); got != st {
				t.Errorf("state: got %v, want %v", got, st)
			}

			run(t, b, 2*time.Second)
			if energized(b.History()) {
				t.Error("relays actuated across the reset")
			}
		})
	}
}

func TestBoardLifecycle(t *testing.T) {
	b := boot(t, logic.StateClosed)
	if err := b.Boot(); !errors.Is(err, ErrBoardUp) {
		t.Errorf("second boot: got %v, want ErrBoardUp", err)
	}
	if b.Boots() != 1 {
		t.Errorf("boots: got %d", b.Boots())
	}
	if !b.Logged("System experienced a power-on reset") {
		t.Errorf("first boot should report power-on: %q", b.Lines())
	}

	b.ResetAt(time.Second)
	run(t, b, 2*time.Second)
	if b.Up() {
		t.Fatal("board survived the reset line")
	}
	if err := b.RunFor(time.Second); !errors.Is(err, ErrBoardDown) {
		t.Errorf("run while down: got %v, want ErrBoardDown", err)
	}

	n := len(b.Lines())
	if err := b.Boot(); err != nil {
		t.Fatalf("reboot: %v", err)
	}
	if !loggedSince(b, n, "System experienced an external reset") {
		t.Errorf("missing external reset line in %q", b.Lines()[n:])
	}
	if b.Boots() != 2 || b.Resets() != 1 {
		t.Errorf("boots=%d resets=%d", b.Boots(), b.Resets())
	}
}

func TestJournalRecordsStores(t *testing.T) {
	b := boot(t, logic.StateClosed)
	b.PressAt(time.Second, 300*time.Millisecond)
	run(t, b, 40*time.Second)

	stores := b.NVS.Stores()
	if len(stores) != 1 {
		t.Fatalf("stores: %+v", stores)
	}
	w := stores[0]
	if w.Off != nvs.OffsetState || w.Value != logic.StateOpen.Encode() {
		t.Errorf("store: %+v", w)
	}
	if !w.At.Equal(at(31400 * time.Millisecond)) {
		t.Errorf("stored at %v, want on arrival", w.At.Sub(Epoch))
	}
}

func TestErasedStoreHoldsTerminalAcrossResets(t *testing.T) {
	timing := logic.DefaultTiming()
	timing.RegularReset = 2 * time.Second
	timing.ResetDelay = 500 * time.Millisecond

	b := New(timing)
	if err := b.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	if !b.Logged("Stored state unreadable, assuming gate closed") {
		t.Fatal("erased store should fall back to closed")
	}
	run(t, b, 10*time.Second)
	if b.Up() {
		t.Fatal("board did not perform the scheduled reset")
	}
	if v := stored(t, b); v != logic.StateClosed.Encode() {
		t.Errorf("after controlled reset: state byte 0x%02x, want Closed", v)
	}
	if v, _ := b.NVS.Load(nvs.OffsetBreadcrumb); v != 1 {
		t.Errorf("breadcrumb: got %d, want 1", v)
	}

	if err := b.Boot(); err != nil {
		t.Fatalf("reboot: %v", err)
	}
	b.Controller().Shutdown()
	if v := stored(t, b); v != logic.StateClosed.Encode() {
		t.Errorf("after shutdown: state byte 0x%02x, want Closed", v)
	}
}
