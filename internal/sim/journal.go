package sim

import (
	"sync"
	"time"

	"github.com/sweeney/gate-controller/internal/nvs"
)

// Write is one store to the simulated EEPROM.
type Write struct {
	At    time.Time
	Off   int
	Value byte
}

// Journal is the board's EEPROM: an nvs.Memory that also records every
// store with the simulated time it happened.
type Journal struct {
	*nvs.Memory
	now func() time.Time

	mu     sync.Mutex
	stores []Write
}

// NewJournal creates an erased Journal stamping stores with now.
func NewJournal(now func() time.Time) *Journal {
	return &Journal{Memory: nvs.NewMemory(), now: now}
}

// Store implements nvs.Device.
func (j *Journal) Store(off int, b byte) error {
	if err := j.Memory.Store(off, b); err != nil {
		return err
	}
	j.mu.Lock()
	j.stores = append(j.stores, Write{At: j.now(), Off: off, Value: b})
	j.mu.Unlock()
	return nil
}

// Stores returns every successful store, oldest first.
func (j *Journal) Stores() []Write {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Write, len(j.stores))
	copy(out, j.stores)
	return out
}
