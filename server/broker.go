package server

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/onnwee/chat-tender/backend/chat"
	"github.com/onnwee/chat-tender/backend/telemetry"
)

const subscriberBuffer = 64

// Broker fans chat records out to SSE subscribers. Publishing never blocks: a
// subscriber that cannot keep up has records dropped rather than stalling the
// acquisition loop.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]chan *chat.Record
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]chan *chat.Record)}
}

// Subscribe registers a new subscriber and returns its id and receive channel. The
// caller must Unsubscribe with the returned id when done.
func (b *Broker) Subscribe() (string, <-chan *chat.Record) {
	id := uuid.New().String()
	ch := make(chan *chat.Record, subscriberBuffer)
	b.mu.Lock()
	b.subs[id] = ch
	n := len(b.subs)
	b.mu.Unlock()
	telemetry.SetSSESubscribers(n)
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id string) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	n := len(b.subs)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
	telemetry.SetSSESubscribers(n)
}

// Publish delivers a record to every subscriber, dropping it for any whose buffer
// is full.
func (b *Broker) Publish(rec *chat.Record) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- rec:
		default:
			slog.Debug("dropping record for slow subscriber", slog.String("subscriber", id))
		}
	}
}

// Len returns the current subscriber count.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
