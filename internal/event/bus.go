// Package event provides an in-memory publish/subscribe bus used to
// stream analysis progress to interested listeners (the CLI printer).
package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topics published during an analysis run.
const (
	TopicAnalysisStarted   = "analysis.started"
	TopicDeviceParsed      = "analysis.device"
	TopicTopologyBuilt     = "analysis.topology"
	TopicValidationDone    = "analysis.validation"
	TopicAnalysisCompleted = "analysis.completed"
)

// Event is a typed message on the bus.
type Event struct {
	Topic     string
	Timestamp time.Time
	Payload   any
}

// Handler processes one event. Handlers must not block for long; Publish
// runs them synchronously in the caller's goroutine.
type Handler func(ctx context.Context, ev Event)

type handlerEntry struct {
	id      uint64
	handler Handler
}

// Bus is an in-memory event bus. Publish is synchronous; a panicking
// handler is recovered and logged so one listener cannot kill a run.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]handlerEntry
	allSubs  []handlerEntry
	nextID   uint64
	logger   *zap.Logger
}

// NewBus creates a new in-memory event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]handlerEntry),
		logger:   logger,
	}
}

// Publish dispatches an event synchronously to all matching handlers.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	topicHandlers := make([]handlerEntry, len(b.handlers[ev.Topic]))
	copy(topicHandlers, b.handlers[ev.Topic])
	allHandlers := make([]handlerEntry, len(b.allSubs))
	copy(allHandlers, b.allSubs)
	b.mu.RUnlock()

	for _, h := range topicHandlers {
		b.safeCall(ctx, h.handler, ev)
	}
	for _, h := range allHandlers {
		b.safeCall(ctx, h.handler, ev)
	}
}

// Subscribe registers a handler for a specific topic. Returns an
// unsubscribe function.
func (b *Bus) Subscribe(topic string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[topic] = append(b.handlers[topic], handlerEntry{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[topic]
		for i, e := range entries {
			if e.id == id {
				b.handlers[topic] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers a handler for every topic. Returns an
// unsubscribe function.
func (b *Bus) SubscribeAll(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.allSubs = append(b.allSubs, handlerEntry{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.allSubs {
			if e.id == id {
				b.allSubs = append(b.allSubs[:i], b.allSubs[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) safeCall(ctx context.Context, handler Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", ev.Topic),
				zap.Any("panic", r),
			)
		}
	}()
	handler(ctx, ev)
}
