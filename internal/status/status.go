// Package status provides a thread-safe status tracker for the gate-controller daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gate-controller/internal/gpio"
	"github.com/sweeney/gate-controller/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	GateOperationMs int64
	DeadTimeMs      int64
	DebounceMs      int64
	RegularResetMs  int64
	HeartbeatMs     int64
	Driver          string
	Broker          string
	HTTPAddr        string
}

// Gate is the controller state as published.
type Gate struct {
	State          logic.State
	Moving         bool
	Since          time.Time
	ResetScheduled bool
	// Relays is "OPEN", "CLOSE" or "OFF" depending on the energized pair.
	Relays string
	Counts logic.EventCounts
}

// RelayPair names the energized coil pair for display.
func RelayPair(l gpio.Levels) string {
	switch {
	case l.OpenCoils():
		return "OPEN"
	case l.CloseCoils():
		return "CLOSE"
	}
	return "OFF"
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Gate          Gate
	Ready         bool
	BootCause     string
	Recovered     bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the gate state and marks the tracker ready.
func (t *Tracker) Update(g Gate) {
	t.mu.Lock()
	t.snap.Gate = g
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetBoot records how the controller came up.
func (t *Tracker) SetBoot(cause string, recovered bool) {
	t.mu.Lock()
	t.snap.BootCause = cause
	t.snap.Recovered = recovered
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
