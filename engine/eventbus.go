package engine

import (
	"sync"
	"time"
)

type EventType int

type SubscriberID int

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type subscription struct {
	id    SubscriberID
	fn    func(Event)
	types []EventType // nil means all types
}

// EventBus fans lifecycle events out to in-process subscribers.
// Handlers run on the emitter's goroutine, so they must not block.
type EventBus struct {
	mu     sync.RWMutex
	subs   []subscription
	lastID SubscriberID
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler for every event.
func (eb *EventBus) Subscribe(fn func(Event)) SubscriberID {
	return eb.add(fn, nil)
}

// SubscribeTypes registers a handler for the listed event types only.
func (eb *EventBus) SubscribeTypes(fn func(Event), types ...EventType) SubscriberID {
	return eb.add(fn, types)
}

func (eb *EventBus) add(fn func(Event), types []EventType) SubscriberID {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.lastID++
	eb.subs = append(eb.subs, subscription{id: eb.lastID, fn: fn, types: types})
	return eb.lastID
}

// Unsubscribe removes a subscriber by ID.
func (eb *EventBus) Unsubscribe(id SubscriberID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i := range eb.subs {
		if eb.subs[i].id == id {
			eb.subs = append(eb.subs[:i], eb.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers an event to all matching subscribers in registration
// order.
func (eb *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	eb.mu.RLock()
	subs := make([]subscription, len(eb.subs))
	copy(subs, eb.subs)
	eb.mu.RUnlock()

	for _, s := range subs {
		if s.wants(evt.Type) {
			s.fn(evt)
		}
	}
}

func (s *subscription) wants(t EventType) bool {
	if s.types == nil {
		return true
	}
	for _, want := range s.types {
		if want == t {
			return true
		}
	}
	return false
}
