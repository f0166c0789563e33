package nvs

import (
	"fmt"
	"sync"
)

// MemorySize is the size of a Memory device.
const MemorySize = 16

// Memory is an in-memory Device. It survives simulated resets as long as the
// same value is reused, and counts writes per offset.
type Memory struct {
	mu     sync.Mutex
	cells  [MemorySize]byte
	writes [MemorySize]int

	// StoreError, if set, will be returned by Store.
	StoreError error
}

// NewMemory creates an erased Memory device.
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.cells {
		m.cells[i] = Erased
	}
	return m
}

// Load implements Device.
func (m *Memory) Load(off int) (byte, error) {
	if off < 0 || off >= MemorySize {
		return 0, fmt.Errorf("offset %d out of range", off)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells[off], nil
}

// Store implements Device.
func (m *Memory) Store(off int, b byte) error {
	if off < 0 || off >= MemorySize {
		return fmt.Errorf("offset %d out of range", off)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StoreError != nil {
		return m.StoreError
	}
	m.cells[off] = b
	m.writes[off]++
	return nil
}

// Poke sets a cell without counting it as a write. Tests use it to plant
// images such as an unclean shutdown mid-motion.
func (m *Memory) Poke(off int, b byte) {
	m.mu.Lock()
	m.cells[off] = b
	m.mu.Unlock()
}

// Writes returns the number of Store calls at off.
func (m *Memory) Writes(off int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[off]
}

// Close implements Device.
func (m *Memory) Close() error {
	return nil
}
