// Package event provides the in-process publish/subscribe bus
package event

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Handler receives a published payload
type Handler func(payload any)

// SubscriptionID identifies a registration for Unsubscribe
// Zero is never issued
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus dispatches payloads to topic subscribers
//
// Architecture:
//   - Synchronous dispatch on the publisher's goroutine
//   - Handlers run in subscription order
//   - A panicking handler is logged and skipped; later handlers still run
//   - Subscribe and Unsubscribe are safe from inside handlers; the set of
//     handlers for a publish is fixed when Publish starts
type Bus struct {
	mu     sync.Mutex
	topics map[Topic][]subscription
	owner  map[SubscriptionID]Topic
	nextID SubscriptionID
	log    *log.Logger
}

// NewBus creates an empty bus; nil logger discards output
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Bus{
		topics: make(map[Topic][]subscription),
		owner:  make(map[SubscriptionID]Topic),
		log:    logger,
	}
}

// Subscribe registers handler for topic
func (b *Bus) Subscribe(topic Topic, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: handler})
	b.owner[id] = topic
	return id
}

// Once registers a handler removed before its first invocation
func (b *Bus) Once(topic Topic, handler Handler) SubscriptionID {
	var id SubscriptionID
	id = b.Subscribe(topic, func(payload any) {
		b.Unsubscribe(id)
		handler(payload)
	})
	return id
}

// Unsubscribe removes a registration; unknown ids are ignored
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, ok := b.owner[id]
	if !ok {
		return
	}
	delete(b.owner, id)

	subs := b.topics[topic]
	for i, s := range subs {
		if s.id == id {
			// Copy so in-flight Publish snapshots stay intact
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.topics, topic)
			} else {
				b.topics[topic] = next
			}
			return
		}
	}
}

// Publish invokes every handler of topic with payload
// Returns the number of handlers that completed without panicking
func (b *Bus) Publish(topic Topic, payload any) int {
	b.mu.Lock()
	subs := b.topics[topic]
	b.mu.Unlock()

	delivered := 0
	for _, s := range subs {
		if b.invoke(topic, s, payload) {
			delivered++
		}
	}
	return delivered
}

func (b *Bus) invoke(topic Topic, s subscription, payload any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panic", "topic", topic, "subscription", s.id, "panic", r)
			ok = false
		}
	}()
	s.handler(payload)
	return true
}

// Clear removes every handler of topic
func (b *Bus) Clear(topic Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.topics[topic] {
		delete(b.owner, s.id)
	}
	delete(b.topics, topic)
}

// ClearAll removes every handler
func (b *Bus) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.topics = make(map[Topic][]subscription)
	b.owner = make(map[SubscriptionID]Topic)
}

// HandlerCount returns the number of handlers registered for topic
func (b *Bus) HandlerCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}
