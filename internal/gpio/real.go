//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives the outputs through the Linux GPIO character device.
// All six lines are requested together so every Write is one atomic update.
type RealWriter struct {
	lines  *gpiocdev.Lines
	values []int
}

// NewRealWriter requests the output lines on chip, all initially inactive.
// activeLow suits relay boards whose inputs are pulled to ground to energize.
func NewRealWriter(chip string, pins Pins, activeLow bool) (*RealWriter, error) {
	offsets := make([]int, NumOutputs)
	copy(offsets, pins.Outputs[:])

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsOutput(make([]int, NumOutputs)...),
		gpiocdev.WithConsumer(Consumer),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	lines, err := gpiocdev.RequestLines(chip, offsets, opts...)
	if err != nil {
		return nil, fmt.Errorf("request output lines %v: %w", offsets, err)
	}

	return &RealWriter{
		lines:  lines,
		values: make([]int, NumOutputs),
	}, nil
}

// Write sets all outputs in a single request.
func (w *RealWriter) Write(l Levels) error {
	for i, on := range l {
		w.values[i] = 0
		if on {
			w.values[i] = 1
		}
	}
	if err := w.lines.SetValues(w.values); err != nil {
		return fmt.Errorf("set outputs: %w", err)
	}
	return nil
}

// Close deenergizes every output before releasing the lines.
func (w *RealWriter) Close() error {
	var errs []error

	if err := w.lines.SetValues(make([]int, NumOutputs)); err != nil {
		errs = append(errs, fmt.Errorf("clear outputs: %w", err))
	}
	if err := w.lines.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close outputs: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealButton reads the push button through the Linux GPIO character device.
type RealButton struct {
	line *gpiocdev.Line
}

// NewRealButton requests the button line as an input with pull-up and calls
// onEdge from the library's event goroutine on every falling edge.
func NewRealButton(chip string, offset int, onEdge func()) (*RealButton, error) {
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithConsumer(Consumer),
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			onEdge()
		}))
	if err != nil {
		return nil, fmt.Errorf("request button pin %d: %w", offset, err)
	}
	return &RealButton{line: line}, nil
}

// Pressed returns true while the line is held low.
func (b *RealButton) Pressed() (bool, error) {
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return v == 0, nil
}

// Close releases the button line.
func (b *RealButton) Close() error {
	if err := b.line.Close(); err != nil {
		return fmt.Errorf("close button pin: %w", err)
	}
	return nil
}
