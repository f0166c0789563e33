// Package actuator drives the gate motor through a four-relay H-bridge and
// the two motion LEDs. Two coils energize for open, the other two for close;
// all four off is motor off. A direction is only energized after every coil
// has been off for the dead-time, so opposing coils never conduct together.
package actuator

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/gate-controller/internal/clock"
	"github.com/sweeney/gate-controller/internal/gpio"
)

// ErrDeadTime is returned when a direction is requested before the coils
// have been off for the dead-time.
var ErrDeadTime = errors.New("actuator: relay dead-time not observed")

// Indication is what the status LEDs display.
type Indication int

const (
	IndicateStopped Indication = iota
	IndicateOpening
	IndicateClosing
)

func (i Indication) String() string {
	switch i {
	case IndicateOpening:
		return "opening"
	case IndicateClosing:
		return "closing"
	}
	return "stopped"
}

// HBridge owns the relay and LED outputs.
type HBridge struct {
	mu       sync.Mutex
	out      gpio.Writer
	clock    clock.Clock
	deadTime time.Duration
	levels   gpio.Levels
	lastOff  time.Time
}

// New creates an HBridge writing to out. The outputs are not touched until
// the first command.
func New(out gpio.Writer, clk clock.Clock, deadTime time.Duration) *HBridge {
	return &HBridge{
		out:      out,
		clock:    clk,
		deadTime: deadTime,
	}
}

// Stop deenergizes all four coils and clears both LEDs. It is idempotent
// and always safe.
func (h *HBridge) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.levels.AnyCoil() {
		h.lastOff = h.clock.Now()
	}
	h.levels = gpio.Levels{}
	if err := h.out.Write(h.levels); err != nil {
		log.Printf("actuator: stop: %v", err)
	}
}

// DriveOpen energizes the open-direction pair and only that pair.
func (h *HBridge) DriveOpen() error {
	return h.drive(gpio.RelayOpenA, gpio.RelayOpenB)
}

// DriveClose energizes the close-direction pair and only that pair.
func (h *HBridge) DriveClose() error {
	return h.drive(gpio.RelayCloseA, gpio.RelayCloseB)
}

func (h *HBridge) drive(a, b gpio.Output) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.levels.AnyCoil() {
		return fmt.Errorf("%w: coils still energized", ErrDeadTime)
	}
	if off := h.clock.Now().Sub(h.lastOff); off < h.deadTime {
		return fmt.Errorf("%w: coils off for %v, need %v", ErrDeadTime, off, h.deadTime)
	}

	next := h.levels
	next[a] = true
	next[b] = true
	if err := h.out.Write(next); err != nil {
		return fmt.Errorf("energize %v+%v: %w", a, b, err)
	}
	h.levels = next
	return nil
}

// Indicate sets the LEDs to one of three mutually exclusive displays.
func (h *HBridge) Indicate(i Indication) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.levels[gpio.LEDOpening] = i == IndicateOpening
	h.levels[gpio.LEDClosing] = i == IndicateClosing
	if err := h.out.Write(h.levels); err != nil {
		log.Printf("actuator: indicate %v: %v", i, err)
	}
}

// Levels returns the commanded output levels.
func (h *HBridge) Levels() gpio.Levels {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.levels
}

// Energized reports whether any coil is commanded on.
func (h *HBridge) Energized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.levels.AnyCoil()
}
