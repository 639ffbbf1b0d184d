package daemon

import (
	"sync"

	"github.com/dawikk/hubbridge/internal/hub"
)

const subscriberBuffer = 128

// Broker fans engine events out to any number of subscribers. Publish is
// called from the session worker goroutine and must never block, so a
// subscriber that falls behind loses events rather than stalling the
// engine.
type Broker struct {
	mu   sync.Mutex
	subs map[chan hub.Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[chan hub.Event]struct{}{}}
}

func (b *Broker) Publish(ev hub.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a receive channel and a cancel function. Cancel is
// idempotent and closes the channel.
func (b *Broker) Subscribe() (<-chan hub.Event, func()) {
	ch := make(chan hub.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
