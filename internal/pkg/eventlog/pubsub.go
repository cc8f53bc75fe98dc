package eventlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

type PubSubConfig struct {
	ProjectID     string
	ClientOptions []option.ClientOption
}

// PubSub publishes headers as message attributes and the record key as the
// ordering key.
type PubSub struct {
	client *pubsub.Client

	mu   sync.Mutex
	pubs map[string]*pubsub.Publisher
}

func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("eventlog: pubsub project id is required")
	}

	c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("eventlog: pubsub client: %w", err)
	}
	return &PubSub{client: c, pubs: map[string]*pubsub.Publisher{}}, nil
}

func (p *PubSub) publisher(topic string) *pubsub.Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()

	pub, ok := p.pubs[topic]
	if !ok {
		pub = p.client.Publisher(topic)
		pub.EnableMessageOrdering = true
		p.pubs[topic] = pub
	}
	return pub
}

func (p *PubSub) Publish(ctx context.Context, topic string, rec Record) error {
	if topic == "" {
		return ErrTopicRequired
	}

	res := p.publisher(topic).Publish(ctx, &pubsub.Message{
		Data:        rec.Body,
		Attributes:  rec.Headers,
		OrderingKey: rec.Key,
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("eventlog: pubsub publish: %w", err)
	}
	return nil
}

func (p *PubSub) Consume(ctx context.Context, topic string, h Handler, opts ...ConsumeOption) error {
	if err := validate(topic, h); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)

	subName := co.subscription
	if subName == "" {
		if co.group == "" {
			return ErrGroupRequired
		}
		subName = strings.ReplaceAll(topic+"."+co.group, ".", "-")
	}

	sub := p.client.Subscriber(subName)
	sub.ReceiveSettings.NumGoroutines = co.concurrency
	sub.ReceiveSettings.MaxOutstandingMessages = co.maxInFlight

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		d := Delivery{
			ID:        m.ID,
			Topic:     topic,
			Key:       m.OrderingKey,
			Headers:   m.Attributes,
			Body:      m.Data,
			Timestamp: m.PublishTime,
		}
		if m.DeliveryAttempt != nil {
			d.Attempt = *m.DeliveryAttempt
		}

		if err := safeHandle(ctx, DriverPubSub, h, d); err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

func (p *PubSub) Close() error {
	p.mu.Lock()
	for _, pub := range p.pubs {
		pub.Stop()
	}
	p.pubs = nil
	p.mu.Unlock()

	return p.client.Close()
}
