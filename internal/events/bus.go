package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(SessionCreatedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case SessionCreatedEvent:
		event.Publish(b.dispatcher, e)
	case SessionEndedEvent:
		event.Publish(b.dispatcher, e)
	case SubscriberJoinedEvent:
		event.Publish(b.dispatcher, e)
	case SubscriberLeftEvent:
		event.Publish(b.dispatcher, e)
	case SubscriberDroppedEvent:
		event.Publish(b.dispatcher, e)
	case EncoderFatalEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives (type inference)
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e SessionEndedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(SessionCreatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionEndedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SubscriberJoinedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SubscriberLeftEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SubscriberDroppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EncoderFatalEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
