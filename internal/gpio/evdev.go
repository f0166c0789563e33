//go:build linux

package gpio

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/kenshaw/evdev"
)

// DefaultKey is the key code reported by common USB push buttons (KEY_ENTER).
const DefaultKey = 28

// EvdevButton is a push button presented by the kernel as an input device,
// such as a USB arcade button that reports a single key.
type EvdevButton struct {
	dev    *evdev.Evdev
	key    evdev.KeyType
	down   atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEvdevButton opens the input device and calls onEdge on every key-down
// of key. Auto-repeat events are ignored.
func NewEvdevButton(device string, key int, onEdge func()) (*EvdevButton, error) {
	dev, err := evdev.OpenFile(device)
	if err != nil {
		return nil, fmt.Errorf("open evdev %s: %w", device, err)
	}
	log.Printf("opened button device: %s (vendor 0x%04x, product 0x%04x)",
		dev.Name(), dev.ID().Vendor, dev.ID().Product)

	ctx, cancel := context.WithCancel(context.Background())
	b := &EvdevButton{
		dev:    dev,
		key:    evdev.KeyType(key),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go b.watch(ctx, onEdge)
	return b, nil
}

func (b *EvdevButton) watch(ctx context.Context, onEdge func()) {
	defer close(b.done)
	ch := b.dev.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			if event == nil {
				return
			}
			switch event.Type.(type) {
			case evdev.KeyType:
				if evdev.KeyType(event.Code) != b.key {
					continue
				}
				switch event.Value {
				case 1:
					b.down.Store(true)
					onEdge()
				case 0:
					b.down.Store(false)
				}
			}
		}
	}
}

// Pressed implements Button.
func (b *EvdevButton) Pressed() (bool, error) {
	return b.down.Load(), nil
}

// Close implements Button.
func (b *EvdevButton) Close() error {
	b.cancel()
	<-b.done
	return b.dev.Close()
}
