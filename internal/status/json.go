package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Gate          GateJSON     `json:"gate"`
	Ready         bool         `json:"ready"`
	BootCause     string       `json:"boot_cause,omitempty"`
	Recovered     bool         `json:"recovered_from_controlled_reset"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// GateJSON is the JSON representation of the gate state.
type GateJSON struct {
	State          string `json:"state"`
	Moving         bool   `json:"moving"`
	Since          string `json:"since,omitempty"`
	Relays         string `json:"relays"`
	ResetScheduled bool   `json:"reset_scheduled"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Presses         int `json:"presses"`
	Interrupts      int `json:"interrupts"`
	Opened          int `json:"opened"`
	Closed          int `json:"closed"`
	ScheduledResets int `json:"scheduled_resets"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	GateOperationMs int64  `json:"gate_operation_ms"`
	DeadTimeMs      int64  `json:"relay_dead_time_ms"`
	DebounceMs      int64  `json:"debounce_ms"`
	RegularResetMs  int64  `json:"regular_reset_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	Driver          string `json:"gpio_driver"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
}

// StateName returns the gate state for display, or UNKNOWN before the
// controller has booted.
func (s Snapshot) StateName() string {
	if !s.Ready {
		return "UNKNOWN"
	}
	return s.Gate.State.String()
}

func buildInner(snap Snapshot) StatusInner {
	relays := snap.Gate.Relays
	if relays == "" {
		relays = "OFF"
	}
	inner := StatusInner{
		Gate: GateJSON{
			State:          snap.StateName(),
			Moving:         snap.Gate.Moving,
			Relays:         relays,
			ResetScheduled: snap.Gate.ResetScheduled,
		},
		Ready:         snap.Ready,
		BootCause:     snap.BootCause,
		Recovered:     snap.Recovered,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Presses:         snap.Gate.Counts.Presses,
			Interrupts:      snap.Gate.Counts.Interrupts,
			Opened:          snap.Gate.Counts.Opened,
			Closed:          snap.Gate.Counts.Closed,
			ScheduledResets: snap.Gate.Counts.ScheduledResets,
		},
		Config: ConfigJSON{
			GateOperationMs: snap.Config.GateOperationMs,
			DeadTimeMs:      snap.Config.DeadTimeMs,
			DebounceMs:      snap.Config.DebounceMs,
			RegularResetMs:  snap.Config.RegularResetMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			Driver:          snap.Config.Driver,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}
	if !snap.Gate.Since.IsZero() {
		inner.Gate.Since = snap.Gate.Since.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
