package mqtt

import (
	"testing"
)

func gateMsg(id byte) queuedMsg {
	return queuedMsg{topic: Topic, payload: []byte{id}, qos: 1}
}

func heartbeatMsg(id byte) queuedMsg {
	return queuedMsg{topic: TopicSystem, payload: []byte{id}, qos: 1, heartbeat: true}
}

func payloads(msgs []queuedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(4)
	if got := o.drain(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestOutboxPreservesOrder(t *testing.T) {
	o := newOutbox(8)
	for i := byte(0); i < 5; i++ {
		o.push(gateMsg(i))
	}
	got := payloads(o.drain())
	if string(got) != string([]byte{0, 1, 2, 3, 4}) {
		t.Errorf("drain order: got %v", got)
	}
	if o.len() != 0 {
		t.Errorf("len after drain: got %d, want 0", o.len())
	}
}

func TestOutboxKeepsNewestHeartbeat(t *testing.T) {
	o := newOutbox(8)
	o.push(heartbeatMsg(10))
	o.push(gateMsg(1))
	o.push(heartbeatMsg(11))
	o.push(heartbeatMsg(12))

	got := payloads(o.drain())
	if string(got) != string([]byte{1, 12}) {
		t.Errorf("got %v, want [1 12]", got)
	}
}

func TestOutboxOverflow(t *testing.T) {
	tests := []struct {
		name    string
		pushes  []queuedMsg
		want    []byte
		dropped int
	}{
		{
			name:    "oldest gate event evicted",
			pushes:  []queuedMsg{gateMsg(0), gateMsg(1), gateMsg(2), gateMsg(3)},
			want:    []byte{1, 2, 3},
			dropped: 1,
		},
		{
			name:    "heartbeat evicted before gate events",
			pushes:  []queuedMsg{gateMsg(0), heartbeatMsg(9), gateMsg(1), gateMsg(2)},
			want:    []byte{0, 1, 2},
			dropped: 1,
		},
		{
			name:    "heartbeat replaced without eviction",
			pushes:  []queuedMsg{gateMsg(0), heartbeatMsg(8), gateMsg(1), heartbeatMsg(9)},
			want:    []byte{0, 1, 9},
			dropped: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOutbox(3)
			for _, m := range tt.pushes {
				o.push(m)
			}
			if o.dropped != tt.dropped {
				t.Errorf("dropped: got %d, want %d", o.dropped, tt.dropped)
			}
			got := payloads(o.drain())
			if string(got) != string(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutboxDrainRearmsWarning(t *testing.T) {
	o := newOutbox(1)
	o.push(gateMsg(0))
	o.push(gateMsg(1))
	if !o.warned {
		t.Fatal("expected overflow warning")
	}
	o.drain()
	if o.warned {
		t.Error("drain should clear the overflow warning")
	}
	if o.dropped != 1 {
		t.Errorf("dropped survives drain: got %d, want 1", o.dropped)
	}
}

func TestOutboxMinimumCapacity(t *testing.T) {
	o := newOutbox(0)
	o.push(gateMsg(7))
	if o.len() != 1 {
		t.Fatalf("len: got %d, want 1", o.len())
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(4)
	o.push(queuedMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"status":{}}`),
		qos:      1,
		retained: true,
	})

	got := o.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != TopicSystem {
		t.Errorf("topic: got %s, want %s", got[0].topic, TopicSystem)
	}
	if string(got[0].payload) != `{"status":{}}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 || !got[0].retained {
		t.Errorf("qos/retained: got %d/%v", got[0].qos, got[0].retained)
	}
}
