package gpio

import (
	"sync"
	"time"
)

// Change is one recorded Write.
type Change struct {
	At     time.Time
	Levels Levels
}

// FakeWriter is a test double that records every Write with a timestamp.
type FakeWriter struct {
	mu      sync.Mutex
	now     func() time.Time
	levels  Levels
	history []Change

	// WriteError, if set, will be returned by Write (levels are not changed).
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeWriter creates a FakeWriter stamping writes with now.
func NewFakeWriter(now func() time.Time) *FakeWriter {
	return &FakeWriter{now: now}
}

// Write records the levels.
func (f *FakeWriter) Write(l Levels) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.levels = l
	f.history = append(f.history, Change{At: f.now(), Levels: l})
	return nil
}

// Levels returns the current output levels.
func (f *FakeWriter) Levels() Levels {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels
}

// History returns a copy of every recorded write.
func (f *FakeWriter) History() []Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Change, len(f.history))
	copy(out, f.history)
	return out
}

// PowerCycle drops every output, as a board reset does, without recording a
// write.
func (f *FakeWriter) PowerCycle() {
	f.mu.Lock()
	f.levels = Levels{}
	f.mu.Unlock()
}

// Close marks the writer as closed and clears the outputs.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = Levels{}
	f.Closed = true
	return nil
}

// FakeButton is a test double for the push button.
type FakeButton struct {
	mu      sync.Mutex
	pressed bool
	onEdge  func()

	// ReadError, if set, will be returned by Pressed.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeButton creates a released FakeButton calling onEdge on every
// falling edge.
func NewFakeButton(onEdge func()) *FakeButton {
	return &FakeButton{onEdge: onEdge}
}

// Press pulls the line low and raises a falling edge.
func (b *FakeButton) Press() {
	b.mu.Lock()
	b.pressed = true
	fn := b.onEdge
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Release lets the line float high. Rising edges raise no callback.
func (b *FakeButton) Release() {
	b.mu.Lock()
	b.pressed = false
	b.mu.Unlock()
}

// Pressed returns the scripted line state.
func (b *FakeButton) Pressed() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ReadError != nil {
		return false, b.ReadError
	}
	return b.pressed, nil
}

// Close marks the button as closed.
func (b *FakeButton) Close() error {
	b.mu.Lock()
	b.Closed = true
	b.mu.Unlock()
	return nil
}
