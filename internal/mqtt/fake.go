package mqtt

import (
	"github.com/sweeney/gate-controller/internal/logic"
)

// Message is one publish as the broker would see it.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Events and Payloads hold the gate events in publish order.
	Events   []logic.Event
	Payloads [][]byte

	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Messages interleaves both topics in publish order.
	Messages []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the gate event.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.Messages = append(f.Messages, Message{Topic: Topic, Payload: payload})
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.Messages = append(f.Messages, Message{Topic: TopicSystem, Payload: payload, Retained: event.Retained})
	return nil
}

// EventTypes returns the type of every recorded gate event.
func (f *FakePublisher) EventTypes() []logic.EventType {
	var out []logic.EventType
	for _, e := range f.Events {
		out = append(out, e.Type)
	}
	return out
}

// SystemNames returns the name of every recorded system event.
func (f *FakePublisher) SystemNames() []string {
	var out []string
	for _, e := range f.SystemEvents {
		out = append(out, e.Event)
	}
	return out
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events and injected failures.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
