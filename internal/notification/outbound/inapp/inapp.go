// Package inapp delivers in-app notifications to live SSE subscribers. The
// inbox row itself is the durable copy, so a recipient without an open
// stream still counts as delivered.
package inapp

import (
	"context"
	"sync"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
)

const bufferSize = 10

type subscriber struct {
	ch chan entity.Message
}

type Hub struct {
	ins instrument.Instrumentation

	mu      sync.RWMutex
	streams map[int64]map[*subscriber]struct{}
}

func New(ins instrument.Instrumentation) *Hub {
	return &Hub{ins: ins, streams: make(map[int64]map[*subscriber]struct{})}
}

// Subscribe registers a stream for userID and closes it when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID int64) <-chan entity.Message {
	sub := &subscriber{ch: make(chan entity.Message, bufferSize)}

	h.mu.Lock()
	if h.streams[userID] == nil {
		h.streams[userID] = make(map[*subscriber]struct{})
	}
	h.streams[userID][sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if subs := h.streams[userID]; subs != nil {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.streams, userID)
			}
		}
		// Closed under the lock so Send never writes to a closed channel.
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch
}

// Send pushes msg to every open stream of the recipient. Slow subscribers
// drop messages rather than block the worker.
func (h *Hub) Send(ctx context.Context, msg entity.Message) error {
	_, span := h.ins.Tracer("notification.outbound.inapp").Start(ctx, "Send")
	defer span.End()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.streams[msg.Recipient.ID] {
		select {
		case sub.ch <- msg:
		default:
		}
	}

	return nil
}

// Subscribers returns the number of open streams for userID.
func (h *Hub) Subscribers(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID])
}
