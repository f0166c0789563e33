// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gate-controller/internal/logic"
)

// Topic is the MQTT topic for gate state events.
const Topic = "home/gate/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/gate/controller/system"

// System event names.
const (
	EventStartup         = "STARTUP"
	EventShutdown        = "SHUTDOWN"
	EventHeartbeat       = "HEARTBEAT"
	EventReconnected     = "RECONNECTED"
	EventResetScheduled  = "RESET_SCHEDULED"
	EventControlledReset = "CONTROLLED_RESET"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a gate event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "CONTROLLED_RESET"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Gate GatePayload `json:"gate"`
}

// GatePayload contains the gate event details.
type GatePayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	From      string `json:"from"`
	Cause     string `json:"cause"`
}

// FormatPayload creates the JSON payload for a gate event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Gate: GatePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			State:     event.State.String(),
			From:      event.From.String(),
			Cause:     string(event.Cause),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
