package watchdog

import (
	"testing"
	"time"

	"github.com/sweeney/gate-controller/internal/clock"
)

func TestFakeFiresWithoutRefresh(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	fires := 0
	wdt := NewFake(clk, func() { fires++ })
	clk.OnAdvance(wdt.Check)

	if err := wdt.Enable(time.Second); err != nil {
		t.Fatalf("enable: %v", err)
	}

	for i := 0; i < 100; i++ {
		clk.Sleep(10 * time.Millisecond)
		wdt.Refresh()
	}
	if wdt.Fired() {
		t.Fatal("should not fire while refreshed")
	}
	if got := wdt.MaxGap(); got != 10*time.Millisecond {
		t.Errorf("max gap: got %v, want 10ms", got)
	}

	clk.Sleep(1200 * time.Millisecond)
	if !wdt.Fired() {
		t.Fatal("should fire after 1.2s without refresh")
	}
	if fires != 1 {
		t.Errorf("fires: got %d, want 1", fires)
	}

	clk.Sleep(5 * time.Second)
	if fires != 1 {
		t.Errorf("watchdog must fire once, got %d", fires)
	}
}

func TestFakeArmShortTimeout(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	wdt := NewFake(clk, nil)
	clk.OnAdvance(wdt.Check)
	wdt.Enable(time.Second)

	clk.Sleep(500 * time.Millisecond)
	wdt.Arm(15 * time.Millisecond)
	clk.Sleep(15 * time.Millisecond)
	if wdt.Fired() {
		t.Fatal("should not fire at exactly the timeout")
	}
	clk.Sleep(time.Millisecond)
	if !wdt.Fired() {
		t.Fatal("should fire after the armed timeout")
	}
}

func TestFakeDisabledNeverFires(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	wdt := NewFake(clk, nil)
	clk.OnAdvance(wdt.Check)

	clk.Sleep(time.Hour)
	if wdt.Fired() {
		t.Error("disabled watchdog fired")
	}

	wdt.Enable(time.Second)
	wdt.Close()
	clk.Sleep(time.Hour)
	if wdt.Fired() {
		t.Error("closed watchdog fired")
	}
}

func TestBootCauseString(t *testing.T) {
	tests := []struct {
		c    BootCause
		want string
	}{
		{0, "none"},
		{CauseWatchdog, "watchdog"},
		{CausePowerOn | CauseBrownOut, "power-on,brown-out"},
		{CauseWatchdog | CauseExternal, "watchdog,external"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("%d: got %q, want %q", tt.c, got, tt.want)
		}
	}
}
