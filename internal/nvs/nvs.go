// Package nvs provides the gate's non-volatile store: two single-byte slots
// holding the last authoritative gate state and the controlled-reset
// breadcrumb, on top of a byte-addressable device.
package nvs

import (
	"errors"
	"fmt"

	"github.com/sweeney/gate-controller/internal/logic"
)

// Layout of the persisted image. All other offsets are unused.
const (
	OffsetState      = 0x00
	OffsetBreadcrumb = 0x01
)

// Erased is the value an erased EEPROM cell reads back as.
const Erased = 0xFF

var (
	// ErrUnknownState is returned when the state slot holds a byte outside the
	// encoding. ReadState still returns StateClosed alongside it.
	ErrUnknownState = errors.New("nvs: unknown gate state")

	// ErrNotStable is returned when asked to persist a motion state.
	ErrNotStable = errors.New("nvs: only stable states are persisted")
)

// Device is a byte-addressable persistent memory.
type Device interface {
	// Load returns the byte at off.
	Load(off int) (byte, error)

	// Store writes b at off.
	Store(off int, b byte) error

	// Close releases the device.
	Close() error
}

// Store implements the gate's persistence contract on a Device.
type Store struct {
	dev Device
}

// NewStore creates a Store backed by dev.
func NewStore(dev Device) *Store {
	return &Store{dev: dev}
}

// ReadState returns the persisted gate state. Motion states are coerced to
// the terminal they were heading toward. A byte outside the encoding yields
// StateClosed with an error wrapping ErrUnknownState; a device error also
// yields StateClosed.
func (s *Store) ReadState() (logic.State, error) {
	b, err := s.dev.Load(OffsetState)
	if err != nil {
		return logic.StateClosed, fmt.Errorf("read gate state: %w", err)
	}
	st, ok := logic.Decode(b)
	if !ok {
		return logic.StateClosed, fmt.Errorf("%w: 0x%02x", ErrUnknownState, b)
	}
	return st.Coerce(), nil
}

// WriteState persists st. The write is skipped when the slot already holds
// st, to spare the medium's write endurance.
func (s *Store) WriteState(st logic.State) error {
	if !st.Stable() {
		return fmt.Errorf("%w: %v", ErrNotStable, st)
	}
	if b, err := s.dev.Load(OffsetState); err == nil && b == st.Encode() {
		return nil
	}
	if err := s.dev.Store(OffsetState, st.Encode()); err != nil {
		return fmt.Errorf("write gate state: %w", err)
	}
	return nil
}

// SetResetBreadcrumb marks the upcoming reset as intentional.
func (s *Store) SetResetBreadcrumb() error {
	if err := s.dev.Store(OffsetBreadcrumb, 1); err != nil {
		return fmt.Errorf("write reset breadcrumb: %w", err)
	}
	return nil
}

// TakeResetBreadcrumb reports whether the previous reset was a controlled
// one and clears the slot.
func (s *Store) TakeResetBreadcrumb() (bool, error) {
	b, err := s.dev.Load(OffsetBreadcrumb)
	if err != nil {
		return false, fmt.Errorf("read reset breadcrumb: %w", err)
	}
	if b == 0 {
		return false, nil
	}
	if err := s.dev.Store(OffsetBreadcrumb, 0); err != nil {
		return b == 1, fmt.Errorf("clear reset breadcrumb: %w", err)
	}
	// Only 1 is written by us; anything else is an erased or corrupt cell.
	return b == 1, nil
}

// Raw returns the raw bytes of both slots.
func (s *Store) Raw() (state, breadcrumb byte, err error) {
	if state, err = s.dev.Load(OffsetState); err != nil {
		return 0, 0, fmt.Errorf("read gate state: %w", err)
	}
	if breadcrumb, err = s.dev.Load(OffsetBreadcrumb); err != nil {
		return 0, 0, fmt.Errorf("read reset breadcrumb: %w", err)
	}
	return state, breadcrumb, nil
}

// Close closes the underlying device.
func (s *Store) Close() error {
	return s.dev.Close()
}
