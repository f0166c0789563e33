//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealWriter is not available on non-Linux platforms.
type RealWriter struct{}

// NewRealWriter returns an error on non-Linux platforms.
func NewRealWriter(chip string, pins Pins, activeLow bool) (*RealWriter, error) {
	return nil, errUnsupported
}

// Write is not implemented on non-Linux platforms.
func (w *RealWriter) Write(l Levels) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (w *RealWriter) Close() error { return nil }

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns an error on non-Linux platforms.
func NewRealButton(chip string, offset int, onEdge func()) (*RealButton, error) {
	return nil, errUnsupported
}

// Pressed is not implemented on non-Linux platforms.
func (b *RealButton) Pressed() (bool, error) { return false, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error { return nil }

// NewRPiWriter returns an error on non-Linux platforms.
func NewRPiWriter(pins Pins) (Writer, error) { return nil, errUnsupported }

// NewRPiButton returns an error on non-Linux platforms.
func NewRPiButton(offset int, onEdge func()) (Button, error) { return nil, errUnsupported }

// DefaultKey is the key code reported by common USB push buttons (KEY_ENTER).
const DefaultKey = 28

// NewEvdevButton returns an error on non-Linux platforms.
func NewEvdevButton(device string, key int, onEdge func()) (Button, error) {
	return nil, errUnsupported
}
