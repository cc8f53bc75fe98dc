package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type Type string

const (
	TypeMaterialProgressRecorded Type = "material_progress_recorded"
	TypeSubmissionGraded         Type = "submission_graded"
	TypeEnrollmentCreated        Type = "enrollment_created"
	TypeDeadlineWindowEntered    Type = "deadline_window_entered"
	TypeCourseProgressChanged    Type = "course_progress_changed"
)

type Event interface {
	EventType() Type
}

type Handler func(ctx context.Context, e Event) error

// Publisher is the producer side of the bus.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus dispatches events to in-process handlers synchronously, in
// registration order. Handler errors and panics are logged and never reach
// the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]namedHandler)}
}

// Subscribe registers fn for t. name shows up in logs.
func (b *Bus) Subscribe(t Type, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], namedHandler{name: name, fn: fn})
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	_ = b.Deliver(ctx, e)
}

// Deliver behaves like Publish and also returns the joined handler errors,
// for producers that can retry later.
func (b *Bus) Deliver(ctx context.Context, e Event) error {
	if e == nil {
		return nil
	}

	b.mu.RLock()
	hs := append([]namedHandler(nil), b.handlers[e.EventType()]...)
	b.mu.RUnlock()

	if len(hs) == 0 {
		slog.DebugContext(ctx, "no handler for event", "event_type", e.EventType())
		return nil
	}

	var errs []error
	for _, h := range hs {
		if err := b.call(ctx, h, e); err != nil {
			slog.ErrorContext(ctx, "event handler failed",
				"event_type", e.EventType(),
				"handler", h.name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) call(ctx context.Context, h namedHandler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.fn(ctx, e)
}
