// Package eventlog is the broker-neutral client for the LMS event log.
//
// Producers publish Records to topics; consumers register a Handler per topic
// under a consumer group. A handler returning nil acks the record; an error
// asks the broker to redeliver it (nack, uncommitted offset, or requeue,
// depending on the driver).
package eventlog

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrTopicRequired   = errors.New("eventlog: topic is required")
	ErrHandlerRequired = errors.New("eventlog: handler is required")
	ErrGroupRequired   = errors.New("eventlog: consumer group is required")
	ErrClosed          = errors.New("eventlog: client is closed")
)

// Log publishes and consumes records.
type Log interface {
	io.Closer
	Publisher
	Consumer
}

type Publisher interface {
	Publish(ctx context.Context, topic string, rec Record) error
}

type Consumer interface {
	// Consume blocks until ctx is done or the subscription fails.
	Consume(ctx context.Context, topic string, h Handler, opts ...ConsumeOption) error
}

// Record is an outgoing event.
type Record struct {
	// Key selects the Kafka partition and Pub/Sub ordering key.
	Key     string
	Headers map[string]string
	Body    []byte
}

// Delivery is an incoming event.
type Delivery struct {
	ID        string
	Topic     string
	Key       string
	Headers   map[string]string
	Body      []byte
	Timestamp time.Time
	// Attempt is 1 on first delivery when the broker reports it, else 0.
	Attempt int
}

// Header returns a header value or "".
func (d Delivery) Header(key string) string {
	return d.Headers[key]
}

type Handler func(ctx context.Context, d Delivery) error
