package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is an in-process notification published by the session layer so that
// terminal surfaces (display, printer, metrics) can react without coupling to
// the business flows.
type Event struct {
	ID         string
	Topic      string
	OccurredAt time.Time
	Payload    any
}

// Handler consumes a single event. Handlers run synchronously on the
// publishing goroutine; slow work belongs in the handler's own goroutine.
type Handler func(ctx context.Context, evt Event)

// Bus is a minimal synchronous publish/subscribe hub.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the topic. Registration order is the
// delivery order.
func (b *Bus) Subscribe(topic string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish delivers the payload to every subscriber of the topic. A panicking
// handler is logged and does not prevent delivery to the remaining handlers.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) {
	evt := Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(ctx, h, evt)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("topic", evt.Topic).
				Str("event_id", evt.ID).
				Interface("panic", r).
				Msg("event_handler_panic")
		}
	}()
	h(ctx, evt)
}
