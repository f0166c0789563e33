package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// GPIO
	// ------------------------------------------------------------

	switch cfg.GPIO.Driver {
	case DriverGPIOCDev, DriverRPi:
	default:
		return fmt.Errorf("gpio: unknown driver %q", cfg.GPIO.Driver)
	}

	switch cfg.GPIO.Button.Driver {
	case "", DriverGPIOCDev, DriverRPi:
	case DriverEvdev:
		if cfg.GPIO.Button.Device == "" {
			return fmt.Errorf("gpio: evdev button requires a device")
		}
	default:
		return fmt.Errorf("gpio: unknown button driver %q", cfg.GPIO.Button.Driver)
	}

	p := cfg.GPIO.Pins
	lines := []struct {
		name string
		pin  int
	}{
		{"relay_open_a", p.RelayOpenA},
		{"relay_open_b", p.RelayOpenB},
		{"relay_close_a", p.RelayCloseA},
		{"relay_close_b", p.RelayCloseB},
		{"led_opening", p.LEDOpening},
		{"led_closing", p.LEDClosing},
	}
	if cfg.GPIO.Button.Driver != DriverEvdev {
		lines = append(lines, struct {
			name string
			pin  int
		}{"button", p.Button})
	}

	owner := make(map[int]string)
	for _, l := range lines {
		if l.pin < 0 {
			return fmt.Errorf("gpio: %s: negative pin %d", l.name, l.pin)
		}
		if prev, ok := owner[l.pin]; ok {
			return fmt.Errorf("gpio: %s and %s share pin %d", prev, l.name, l.pin)
		}
		owner[l.pin] = l.name
	}

	// ------------------------------------------------------------
	// NVS
	// ------------------------------------------------------------

	switch cfg.NVS.Driver {
	case NVSFile:
		if cfg.NVS.Path == "" {
			return fmt.Errorf("nvs: file driver requires a path")
		}
	case NVSEEPROM:
		if cfg.NVS.Addr == 0 || cfg.NVS.Addr > 0x7F {
			return fmt.Errorf("nvs: invalid i2c address 0x%x", cfg.NVS.Addr)
		}
	default:
		return fmt.Errorf("nvs: unknown driver %q", cfg.NVS.Driver)
	}

	// ------------------------------------------------------------
	// TIMING
	// ------------------------------------------------------------

	t := cfg.Timing
	positive := []struct {
		name string
		v    int64
	}{
		{"gate_operation_ms", t.GateOperationMs},
		{"relay_switching_ms", t.RelaySwitchingMs},
		{"button_debounce_ms", t.ButtonDebounceMs},
		{"short_delay_ms", t.ShortDelayMs},
		{"tick_ms", t.TickMs},
		{"reset_delay_ms", t.ResetDelayMs},
		{"regular_reset_hours", t.RegularResetHours},
		{"watchdog_timeout_ms", t.WatchdogTimeoutMs},
		{"watchdog_short_ms", t.WatchdogShortMs},
	}
	for _, f := range positive {
		if f.v <= 0 {
			return fmt.Errorf("timing: %s must be positive, got %d", f.name, f.v)
		}
	}

	// Every wait refreshes the watchdog at short_delay granularity; leave
	// at least half the timeout as slack.
	if t.ShortDelayMs*2 > t.WatchdogTimeoutMs {
		return fmt.Errorf("timing: short_delay_ms %d leaves no slack under watchdog_timeout_ms %d",
			t.ShortDelayMs, t.WatchdogTimeoutMs)
	}
	if t.TickMs*2 > t.WatchdogTimeoutMs {
		return fmt.Errorf("timing: tick_ms %d leaves no slack under watchdog_timeout_ms %d",
			t.TickMs, t.WatchdogTimeoutMs)
	}
	if t.ButtonDebounceMs >= t.WatchdogTimeoutMs {
		return fmt.Errorf("timing: button_debounce_ms %d must be below watchdog_timeout_ms %d",
			t.ButtonDebounceMs, t.WatchdogTimeoutMs)
	}
	if t.RelaySwitchingMs >= t.WatchdogTimeoutMs {
		return fmt.Errorf("timing: relay_switching_ms %d must be below watchdog_timeout_ms %d",
			t.RelaySwitchingMs, t.WatchdogTimeoutMs)
	}
	if t.WatchdogShortMs >= t.WatchdogTimeoutMs {
		return fmt.Errorf("timing: watchdog_short_ms %d must be below watchdog_timeout_ms %d",
			t.WatchdogShortMs, t.WatchdogTimeoutMs)
	}

	if cfg.HeartbeatMs < 0 {
		return fmt.Errorf("heartbeat_ms must not be negative")
	}

	return nil
}
