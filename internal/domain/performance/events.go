package performance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TransitionEvent is emitted after a cycle status change has been written.
type TransitionEvent struct {
	TenantID string
	Cycle    Cycle
	From     string
	To       string
	At       time.Time
}

type Handler func(ctx context.Context, event TransitionEvent) error

// Queue runs work outside the caller's request. Enqueue reports false when
// the work was dropped.
type Queue interface {
	Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) bool
}

type subscription struct {
	name    string
	handler Handler
	queued  bool
}

// Outcome is what a publish produced before returning: warnings from the
// handlers that ran inline and the names of handlers handed to the queue.
type Outcome struct {
	Warnings []Warning
	Queued   []string
}

// Events routes transition events to handlers registered for the target status.
// Handlers run in registration order; a failing handler does not stop the rest.
type Events struct {
	mu    sync.RWMutex
	subs  map[string][]subscription
	queue Queue
}

func NewEvents() *Events {
	return &Events{subs: map[string][]subscription{}}
}

func (e *Events) Subscribe(status, name string, handler Handler) {
	e.subscribe(status, subscription{name: name, handler: handler})
}

// SubscribeQueued registers a handler that runs on the queue once one is set
// with UseQueue. Without a queue it runs inline like any other handler.
func (e *Events) SubscribeQueued(status, name string, handler Handler) {
	e.subscribe(status, subscription{name: name, handler: handler, queued: true})
}

func (e *Events) subscribe(status string, sub subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs[status] = append(e.subs[status], sub)
}

func (e *Events) UseQueue(queue Queue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = queue
}

// Handlers lists handler names registered for status.
func (e *Events) Handlers(status string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.subs[status]))
	for _, s := range e.subs[status] {
		names = append(names, s.name)
	}
	return names
}

func (e *Events) Publish(ctx context.Context, event TransitionEvent) Outcome {
	return e.publish(ctx, event, "")
}

// Replay re-runs a single named handler for event, for operator re-triggers.
func (e *Events) Replay(ctx context.Context, event TransitionEvent, name string) (Outcome, error) {
	for _, n := range e.Handlers(event.To) {
		if n == name {
			return e.publish(ctx, event, name), nil
		}
	}
	return Outcome{}, fmt.Errorf("%w: no handler %q for status %s", ErrNotFound, name, event.To)
}

func (e *Events) publish(ctx context.Context, event TransitionEvent, only string) Outcome {
	e.mu.RLock()
	subs := append([]subscription(nil), e.subs[event.To]...)
	queue := e.queue
	e.mu.RUnlock()

	var out Outcome
	for _, s := range subs {
		if only != "" && s.name != only {
			continue
		}
		if s.queued && queue != nil {
			handler := s.handler
			if queue.Enqueue(s.name, event.TenantID, func(ctx context.Context) (any, error) {
				return nil, handler(ctx, event)
			}) {
				out.Queued = append(out.Queued, s.name)
				continue
			}
			slog.Warn("cycle transition handler not queued", "handler", s.name, "cycleId", event.Cycle.ID, "to", event.To)
			out.Warnings = append(out.Warnings, Warning{Source: s.name, Message: "job queue full"})
			continue
		}
		if err := s.handler(ctx, event); err != nil {
			slog.Warn("cycle transition handler failed", "handler", s.name, "cycleId", event.Cycle.ID, "to", event.To, "err", err)
			out.Warnings = append(out.Warnings, Warning{Source: s.name, Message: err.Error()})
		}
	}
	return out
}
