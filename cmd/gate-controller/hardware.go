package main

import (
	"fmt"
	"log"

	"github.com/sweeney/gate-controller/internal/config"
	"github.com/sweeney/gate-controller/internal/gpio"
	"github.com/sweeney/gate-controller/internal/nvs"
	"github.com/sweeney/gate-controller/internal/watchdog"
)

func openOutputs(cfg config.GPIOConfig) (gpio.Writer, error) {
	pins := cfg.PinMap()
	switch cfg.Driver {
	case config.DriverRPi:
		return gpio.NewRPiWriter(pins)
	default:
		return gpio.NewRealWriter(cfg.Chip, pins, cfg.ActiveLow)
	}
}

// openButton opens the push button. onEdge is called on every press from
// the driver's event goroutine.
func openButton(cfg config.GPIOConfig, onEdge func()) (gpio.Button, error) {
	driver := cfg.Button.Driver
	if driver == "" {
		driver = cfg.Driver
	}
	switch driver {
	case config.DriverEvdev:
		return gpio.NewEvdevButton(cfg.Button.Device, cfg.Button.Key, onEdge)
	case config.DriverRPi:
		return gpio.NewRPiButton(cfg.Pins.Button, onEdge)
	default:
		return gpio.NewRealButton(cfg.Chip, cfg.Pins.Button, onEdge)
	}
}

func openNVS(cfg config.NVSConfig) (nvs.Device, error) {
	switch cfg.Driver {
	case config.NVSEEPROM:
		return nvs.OpenEEPROM(cfg.Bus, cfg.Addr)
	case config.NVSFile:
		return nvs.OpenFile(cfg.Path)
	}
	return nil, fmt.Errorf("unknown nvs driver %q", cfg.Driver)
}

// openWatchdog opens the hardware watchdog and reads why the board last
// reset. Without a device the controller runs unguarded.
func openWatchdog(cfg config.WatchdogConfig) (watchdog.Watchdog, watchdog.BootCause, error) {
	if cfg.Device == "" {
		return watchdog.Noop{}, 0, nil
	}
	dev, err := watchdog.Open(cfg.Device)
	if err != nil {
		return nil, 0, err
	}
	cause, err := dev.BootCause()
	if err != nil {
		log.Printf("watchdog: read boot cause: %v", err)
	}
	return dev, cause, nil
}
