// Package config loads the daemon configuration from YAML. Every field has a
// default, so an empty or missing file yields the reference wiring and the
// firmware timing constants.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/gate-controller/internal/gpio"
	"github.com/sweeney/gate-controller/internal/logic"
	"github.com/sweeney/gate-controller/internal/nvs"
)

// GPIO drivers.
const (
	DriverGPIOCDev = "gpiocdev"
	DriverRPi      = "rpi"
	DriverEvdev    = "evdev"
)

// NVS drivers.
const (
	NVSFile   = "file"
	NVSEEPROM = "eeprom"
)

// Config is the daemon configuration.
type Config struct {
	GPIO        GPIOConfig     `yaml:"gpio"`
	NVS         NVSConfig      `yaml:"nvs"`
	Serial      SerialConfig   `yaml:"serial"`
	Watchdog    WatchdogConfig `yaml:"watchdog"`
	MQTT        MQTTConfig     `yaml:"mqtt"`
	HTTP        HTTPConfig     `yaml:"http"`
	HeartbeatMs int64          `yaml:"heartbeat_ms"`
	Timing      TimingConfig   `yaml:"timing"`
}

// ---- GPIO ----

type GPIOConfig struct {
	Driver    string       `yaml:"driver"` // "gpiocdev" or "rpi"
	Chip      string       `yaml:"chip"`
	ActiveLow bool         `yaml:"active_low"` // relay boards that energize on a low line
	Pins      PinsConfig   `yaml:"pins"`
	Button    ButtonConfig `yaml:"button"`
}

type PinsConfig struct {
	RelayOpenA  int `yaml:"relay_open_a"`
	RelayOpenB  int `yaml:"relay_open_b"`
	RelayCloseA int `yaml:"relay_close_a"`
	RelayCloseB int `yaml:"relay_close_b"`
	LEDOpening  int `yaml:"led_opening"`
	LEDClosing  int `yaml:"led_closing"`
	Button      int `yaml:"button"`
}

type ButtonConfig struct {
	// Driver overrides the GPIO driver for the button; "evdev" reads a
	// key from an input device instead of a line.
	Driver string `yaml:"driver"`
	Device string `yaml:"device"`
	Key    int    `yaml:"key"`
}

// ---- STORAGE ----

type NVSConfig struct {
	Driver string `yaml:"driver"` // "file" or "eeprom"
	Path   string `yaml:"path"`
	Bus    string `yaml:"bus"`
	Addr   uint16 `yaml:"addr"`
}

// ---- SERIAL / WATCHDOG ----

type SerialConfig struct {
	Device string `yaml:"device"` // empty disables the serial console
}

type WatchdogConfig struct {
	Device string `yaml:"device"` // empty runs without a hardware watchdog
}

// ---- NETWORK ----

type MQTTConfig struct {
	Broker   string `yaml:"broker"` // empty disables MQTT
	ClientID string `yaml:"client_id"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status page
}

// ---- TIMING ----

type TimingConfig struct {
	GateOperationMs   int64 `yaml:"gate_operation_ms"`
	RelaySwitchingMs  int64 `yaml:"relay_switching_ms"`
	ButtonDebounceMs  int64 `yaml:"button_debounce_ms"`
	ShortDelayMs      int64 `yaml:"short_delay_ms"`
	TickMs            int64 `yaml:"tick_ms"`
	ResetDelayMs      int64 `yaml:"reset_delay_ms"`
	RegularResetHours int64 `yaml:"regular_reset_hours"`
	WatchdogTimeoutMs int64 `yaml:"watchdog_timeout_ms"`
	WatchdogShortMs   int64 `yaml:"watchdog_short_ms"`
}

// Default returns the reference configuration.
func Default() Config {
	pins := gpio.DefaultPins()
	t := logic.DefaultTiming()
	return Config{
		GPIO: GPIOConfig{
			Driver: DriverGPIOCDev,
			Chip:   "gpiochip0",
			Pins: PinsConfig{
				RelayOpenA:  pins.Outputs[gpio.RelayOpenA],
				RelayOpenB:  pins.Outputs[gpio.RelayOpenB],
				RelayCloseA: pins.Outputs[gpio.RelayCloseA],
				RelayCloseB: pins.Outputs[gpio.RelayCloseB],
				LEDOpening:  pins.Outputs[gpio.LEDOpening],
				LEDClosing:  pins.Outputs[gpio.LEDClosing],
				Button:      pins.Button,
			},
			Button: ButtonConfig{Key: gpio.DefaultKey},
		},
		NVS: NVSConfig{
			Driver: NVSFile,
			Path:   "/var/lib/gate-controller/nvs.bin",
			Addr:   nvs.DefaultEEPROMAddr,
		},
		Watchdog:    WatchdogConfig{Device: "/dev/watchdog"},
		MQTT:        MQTTConfig{ClientID: "gate-controller"},
		HTTP:        HTTPConfig{Addr: ":80"},
		HeartbeatMs: (15 * time.Minute).Milliseconds(),
		Timing: TimingConfig{
			GateOperationMs:   t.GateOperation.Milliseconds(),
			RelaySwitchingMs:  t.RelaySwitching.Milliseconds(),
			ButtonDebounceMs:  t.ButtonDebounce.Milliseconds(),
			ShortDelayMs:      t.ShortDelay.Milliseconds(),
			TickMs:            t.Tick.Milliseconds(),
			ResetDelayMs:      t.ResetDelay.Milliseconds(),
			RegularResetHours: logic.RegularResetHours,
			WatchdogTimeoutMs: t.WatchdogTimeout.Milliseconds(),
			WatchdogShortMs:   t.WatchdogShort.Milliseconds(),
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML from r over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// GateTiming converts the timing section.
func (c Config) GateTiming() logic.Timing {
	ms := func(v int64) time.Duration { return time.Duration(v) * time.Millisecond }
	t := c.Timing
	return logic.Timing{
		GateOperation:   ms(t.GateOperationMs),
		RelaySwitching:  ms(t.RelaySwitchingMs),
		ButtonDebounce:  ms(t.ButtonDebounceMs),
		ShortDelay:      ms(t.ShortDelayMs),
		Tick:            ms(t.TickMs),
		ResetDelay:      ms(t.ResetDelayMs),
		RegularReset:    time.Duration(t.RegularResetHours) * time.Hour,
		WatchdogTimeout: ms(t.WatchdogTimeoutMs),
		WatchdogShort:   ms(t.WatchdogShortMs),
	}
}

// PinMap converts the pin section.
func (c GPIOConfig) PinMap() gpio.Pins {
	return gpio.Pins{
		Outputs: [gpio.NumOutputs]int{
			gpio.RelayOpenA:  c.Pins.RelayOpenA,
			gpio.RelayOpenB:  c.Pins.RelayOpenB,
			gpio.RelayCloseA: c.Pins.RelayCloseA,
			gpio.RelayCloseB: c.Pins.RelayCloseB,
			gpio.LEDOpening:  c.Pins.LEDOpening,
			gpio.LEDClosing:  c.Pins.LEDClosing,
		},
		Button: c.Pins.Button,
	}
}

// Heartbeat returns the heartbeat interval; zero disables it.
func (c Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}
