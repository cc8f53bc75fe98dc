package eventlog

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// memoryRedeliveries caps redelivery of a failing record.
const memoryRedeliveries = 3

// Memory is an in-process Log for local runs and tests. Each group receives
// every record once; members of a group share its queue.
type Memory struct {
	mu     sync.RWMutex
	groups map[string]map[string]chan Delivery // topic -> group -> queue
	closed bool
	seq    atomic.Int64
}

func NewMemory() *Memory {
	return &Memory{groups: map[string]map[string]chan Delivery{}}
}

func (m *Memory) Publish(ctx context.Context, topic string, rec Record) error {
	if topic == "" {
		return ErrTopicRequired
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	d := Delivery{
		ID:        strconv.FormatInt(m.seq.Add(1), 10),
		Topic:     topic,
		Key:       rec.Key,
		Headers:   rec.Headers,
		Body:      rec.Body,
		Timestamp: time.Now(),
		Attempt:   1,
	}

	for _, q := range m.groups[topic] {
		select {
		case q <- d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) queue(topic, group string, size int) (chan Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.groups[topic] == nil {
		m.groups[topic] = map[string]chan Delivery{}
	}
	q, ok := m.groups[topic][group]
	if !ok {
		q = make(chan Delivery, max(size, 64))
		m.groups[topic][group] = q
	}
	return q, nil
}

func (m *Memory) Consume(ctx context.Context, topic string, h Handler, opts ...ConsumeOption) error {
	if err := validate(topic, h); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	q, err := m.queue(topic, co.group, co.maxInFlight)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d := <-q:
					m.handle(ctx, q, h, d)
				}
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (m *Memory) handle(ctx context.Context, q chan Delivery, h Handler, d Delivery) {
	if err := safeHandle(ctx, DriverMemory, h, d); err == nil {
		return
	} else if d.Attempt >= memoryRedeliveries {
		slog.ErrorContext(ctx, "memory eventlog: dropping record after redeliveries", "topic", d.Topic, "id", d.ID, "error", err)
		return
	}

	d.Attempt++
	select {
	case q <- d:
	default:
		slog.WarnContext(ctx, "memory eventlog: queue full, record dropped", "topic", d.Topic, "id", d.ID)
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
