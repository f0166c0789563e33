//go:build linux

package gpio

import (
	"fmt"

	"github.com/hjkoskel/govattu"
	wgpio "github.com/warthog618/gpio"
)

// RPiWriter drives the outputs through the BCM283x registers. Writes are not
// atomic across lines, so lines going inactive are cleared before any line is
// set.
type RPiWriter struct {
	hw   govattu.Vattu
	pins [NumOutputs]uint8
}

// NewRPiWriter maps the GPIO registers and configures the outputs, all off.
func NewRPiWriter(pins Pins) (*RPiWriter, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	w := &RPiWriter{hw: hw}
	for i, p := range pins.Outputs {
		w.pins[i] = uint8(p)
		hw.PinMode(w.pins[i], govattu.ALToutput)
		hw.PinClear(w.pins[i])
	}
	return w, nil
}

// Write implements Writer.
func (w *RPiWriter) Write(l Levels) error {
	for i, on := range l {
		if !on {
			w.hw.PinClear(w.pins[i])
		}
	}
	for i, on := range l {
		if on {
			w.hw.PinSet(w.pins[i])
		}
	}
	return nil
}

// Close implements Writer.
func (w *RPiWriter) Close() error {
	for _, p := range w.pins {
		w.hw.PinClear(p)
	}
	return w.hw.Close()
}

// RPiButton reads the push button through the BCM283x registers with the
// kernel's edge detection.
type RPiButton struct {
	pin *wgpio.Pin
}

// NewRPiButton configures the button pin with pull-up and calls onEdge on
// every falling edge.
func NewRPiButton(offset int, onEdge func()) (*RPiButton, error) {
	if err := wgpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	pin := wgpio.NewPin(offset)
	pin.Input()
	pin.PullUp()
	if err := pin.Watch(wgpio.EdgeFalling, func(*wgpio.Pin) {
		onEdge()
	}); err != nil {
		wgpio.Close()
		return nil, fmt.Errorf("watch button pin %d: %w", offset, err)
	}
	return &RPiButton{pin: pin}, nil
}

// Pressed implements Button.
func (b *RPiButton) Pressed() (bool, error) {
	return b.pin.Read() == wgpio.Low, nil
}

// Close implements Button.
func (b *RPiButton) Close() error {
	b.pin.Unwatch()
	return wgpio.Close()
}
