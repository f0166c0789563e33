package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Fake is a simulated clock. Time only moves inside Sleep. Callbacks scheduled
// with At run on the sleeping goroutine when simulated time reaches them, which
// is how tests model an edge interrupt preempting a blocking delay. Callbacks
// may themselves call Sleep; the outer Sleep then ends no earlier than the
// time the nested one reached.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending callbackHeap
	hooks   []func(time.Time)
}

// NewFake creates a Fake clock reading start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the simulated time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// At schedules fn to run when simulated time reaches t. Callbacks due at the
// same instant run in the order they were scheduled.
func (f *Fake) At(t time.Time, fn func()) {
	f.mu.Lock()
	f.seq++
	heap.Push(&f.pending, &callback{at: t, seq: f.seq, fn: fn})
	f.mu.Unlock()
}

// AfterFunc schedules fn to run d after the current simulated time.
func (f *Fake) AfterFunc(d time.Duration, fn func()) {
	f.At(f.Now().Add(d), fn)
}

// OnAdvance registers fn to be called each time simulated time moves.
func (f *Fake) OnAdvance(fn func(now time.Time)) {
	f.mu.Lock()
	f.hooks = append(f.hooks, fn)
	f.mu.Unlock()
}

// Pending returns the number of callbacks not yet run.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending.Len()
}

// Sleep advances simulated time by d, running due callbacks in time order.
func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for f.pending.Len() > 0 && !f.pending[0].at.After(target) {
		c := heap.Pop(&f.pending).(*callback)
		if c.at.After(f.now) {
			f.now = c.at
		}
		now := f.now
		f.mu.Unlock()

		f.advanced(now)
		c.fn()

		f.mu.Lock()
		if f.now.After(target) {
			target = f.now
		}
	}
	f.now = target
	f.mu.Unlock()

	f.advanced(target)
}

func (f *Fake) advanced(now time.Time) {
	f.mu.Lock()
	hooks := f.hooks
	f.mu.Unlock()
	for _, h := range hooks {
		h(now)
	}
}

type callback struct {
	at  time.Time
	seq uint64
	fn  func()
}

type callbackHeap []*callback

func (h callbackHeap) Len() int { return len(h) }

func (h callbackHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h callbackHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *callbackHeap) Push(x any) { *h = append(*h, x.(*callback)) }

func (h *callbackHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}
