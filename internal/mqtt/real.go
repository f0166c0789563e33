package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/gate-controller/internal/logic"
)

// outboxCapacity bounds the messages held while the broker is unreachable.
const outboxCapacity = 256

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed in order on reconnection.
type RealPublisher struct {
	client paho.Client
	topic  string
	now    func() time.Time

	mu  sync.Mutex
	box *outbox
}

// NewRealPublisher creates a publisher for the given broker. It does not
// wait for the connection; paho keeps retrying in the background.
func NewRealPublisher(broker, clientID string) *RealPublisher {
	p := &RealPublisher{
		topic: Topic,
		now:   time.Now,
		box:   newOutbox(outboxCapacity),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     EventShutdown,
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		}).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(paho.Client) {
	p.mu.Lock()
	pending := p.box.drain()
	dropped := p.box.dropped
	p.mu.Unlock()

	if len(pending) > 0 {
		log.Printf("mqtt: connected, replaying %d buffered messages (%d dropped since start)", len(pending), dropped)
	}
	for _, msg := range pending {
		if err := p.send(msg); err != nil {
			log.Printf("mqtt: replay: %v", err)
		}
	}

	payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: EventReconnected})
	if err == nil {
		p.enqueue(queuedMsg{topic: TopicSystem, payload: payload, qos: 1})
	}
}

// Publish sends a gate event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: gate transitions are rare and each one matters.
	return p.enqueue(queuedMsg{topic: p.topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.enqueue(queuedMsg{
		topic:     TopicSystem,
		payload:   payload,
		qos:       1,
		retained:  event.Retained,
		heartbeat: event.Event == EventHeartbeat,
	})
}

// enqueue sends msg now if connected, otherwise buffers it.
func (p *RealPublisher) enqueue(msg queuedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.box.push(msg)
		p.mu.Unlock()
		return nil
	}
	if err := p.send(msg); err != nil {
		p.mu.Lock()
		p.box.push(msg)
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *RealPublisher) send(msg queuedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.box.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
