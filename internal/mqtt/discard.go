package mqtt

import "github.com/sweeney/gate-controller/internal/logic"

// Discard is a Publisher for installations without a broker. It accepts and
// drops every message and never reports a connection.
type Discard struct{}

func (Discard) Publish(logic.Event) error { return nil }

func (Discard) PublishSystem(SystemEvent) error { return nil }

func (Discard) Close() error { return nil }

func (Discard) IsConnected() bool { return false }
