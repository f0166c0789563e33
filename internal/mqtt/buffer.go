package mqtt

import "log"

// queuedMsg is a serialized message waiting for the broker.
type queuedMsg struct {
	topic     string
	payload   []byte
	qos       byte
	retained  bool
	heartbeat bool
}

// outbox holds messages published while disconnected, in publish order.
// Only the newest heartbeat is kept, and when full a queued heartbeat is
// evicted before any gate or lifecycle event. Callers synchronize.
type outbox struct {
	msgs     []queuedMsg
	capacity int
	dropped  int
	warned   bool
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{
		msgs:     make([]queuedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg queuedMsg) {
	if msg.heartbeat {
		if i := o.heartbeatIndex(); i >= 0 {
			o.remove(i)
		}
	}
	if len(o.msgs) == o.capacity {
		i := o.heartbeatIndex()
		if i < 0 {
			i = 0
		}
		if !o.warned {
			log.Printf("mqtt: outbox full (%d messages), dropping %s", o.capacity, o.msgs[i].topic)
			o.warned = true
		}
		o.remove(i)
		o.dropped++
	}
	o.msgs = append(o.msgs, msg)
}

func (o *outbox) heartbeatIndex() int {
	for i, m := range o.msgs {
		if m.heartbeat {
			return i
		}
	}
	return -1
}

func (o *outbox) remove(i int) {
	o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
}

// drain returns the queued messages oldest first and empties the outbox.
func (o *outbox) drain() []queuedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := make([]queuedMsg, len(o.msgs))
	copy(out, o.msgs)
	o.msgs = o.msgs[:0]
	o.warned = false
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
