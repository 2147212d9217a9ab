// Package events provides the in-process event bus used to fan out
// circuit library, simulation job, and maintenance notifications.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a category of event.
type EventType string

// Event types published across the system.
const (
	CircuitSaved   EventType = "circuit_saved"
	CircuitUpdated EventType = "circuit_updated"
	CircuitDeleted EventType = "circuit_deleted"

	JobStarted   EventType = "job_started"
	JobProgress  EventType = "job_progress"
	JobCompleted EventType = "job_completed"
	JobFailed    EventType = "job_failed"

	BackupCompleted EventType = "backup_completed"
	BackupFailed    EventType = "backup_failed"

	MaintenanceCompleted EventType = "maintenance_completed"
	SystemStatusChanged  EventType = "system_status_changed"
	ErrorOccurred        EventType = "error_occurred"
)

// AllEventTypes lists every event type the bus publishes. Stream
// consumers subscribe to this set when no filter is given.
var AllEventTypes = []EventType{
	CircuitSaved,
	CircuitUpdated,
	CircuitDeleted,
	JobStarted,
	JobProgress,
	JobCompleted,
	JobFailed,
	BackupCompleted,
	BackupFailed,
	MaintenanceCompleted,
	SystemStatusChanged,
	ErrorOccurred,
}

// Event is a published event with its payload.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data,omitempty"`
}

// Handler receives published events. Handlers must not block; slow
// consumers should hand off to their own channel.
type Handler func(event *Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus is a threadsafe publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventType][]subscription
	log      zerolog.Logger
}

// NewBus creates an event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for an event type. The returned
// function removes the subscription; long-lived subscribers may
// discard it.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[eventType]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers an event to every handler subscribed to its type.
// Delivery is synchronous and in subscription order.
func (b *Bus) Publish(module string, data EventData) {
	event := &Event{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}

	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(event.Type)).
		Str("module", module).
		Int("handlers", len(subs)).
		Msg("Publishing event")

	for _, sub := range subs {
		sub.handler(event)
	}
}
