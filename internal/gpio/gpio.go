// Package gpio binds the gate's logical I/O to hardware: four relay coils and
// two status LEDs driven as one output set, and the push button input.
// The default implementation uses the Linux GPIO character device.
// The rpi and evdev drivers are alternatives for boards without a usable
// gpiochip or with a USB push button. The fake implementations allow testing
// without hardware.
package gpio

import "fmt"

// Output names a driven line.
type Output int

const (
	RelayOpenA Output = iota
	RelayOpenB
	RelayCloseA
	RelayCloseB
	LEDOpening
	LEDClosing
	NumOutputs
)

func (o Output) String() string {
	switch o {
	case RelayOpenA:
		return "RELAY_OPEN_A"
	case RelayOpenB:
		return "RELAY_OPEN_B"
	case RelayCloseA:
		return "RELAY_CLOSE_A"
	case RelayCloseB:
		return "RELAY_CLOSE_B"
	case LEDOpening:
		return "LED_OPENING"
	case LEDClosing:
		return "LED_CLOSING"
	}
	return fmt.Sprintf("OUTPUT_%d", int(o))
}

// Levels holds the logical level of every output (true = energized / lit).
type Levels [NumOutputs]bool

// OpenCoils reports whether either open-direction coil is energized.
func (l Levels) OpenCoils() bool {
	return l[RelayOpenA] || l[RelayOpenB]
}

// CloseCoils reports whether either close-direction coil is energized.
func (l Levels) CloseCoils() bool {
	return l[RelayCloseA] || l[RelayCloseB]
}

// AnyCoil reports whether any relay coil is energized.
func (l Levels) AnyCoil() bool {
	return l.OpenCoils() || l.CloseCoils()
}

// Writer drives the relay and LED outputs.
type Writer interface {
	// Write sets every output to the given logical level.
	// Lines going inactive are released before lines going active.
	Write(l Levels) error

	// Close deenergizes all outputs and releases GPIO resources.
	Close() error
}

// Button reads the push button.
type Button interface {
	// Pressed returns the logical button state.
	// The line is active-low: raw low = pressed.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Pins maps the outputs and the button to line offsets.
type Pins struct {
	Outputs [NumOutputs]int
	Button  int
}

// Pin definitions (BCM numbering)
const (
	PinRelayOpenA  = 5
	PinRelayOpenB  = 6
	PinRelayCloseA = 13
	PinRelayCloseB = 19
	PinLEDOpening  = 20
	PinLEDClosing  = 21
	PinButton      = 17
)

// DefaultPins returns the reference wiring.
func DefaultPins() Pins {
	return Pins{
		Outputs: [NumOutputs]int{
			RelayOpenA:  PinRelayOpenA,
			RelayOpenB:  PinRelayOpenB,
			RelayCloseA: PinRelayCloseA,
			RelayCloseB: PinRelayCloseB,
			LEDOpening:  PinLEDOpening,
			LEDClosing:  PinLEDClosing,
		},
		Button: PinButton,
	}
}

// Consumer is the label the daemon requests lines under.
const Consumer = "gate-controller"
