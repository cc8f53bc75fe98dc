package eventlog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS uses core NATS queue subscriptions. Core NATS has no redelivery, so a
// handler error is logged by the caller and the record is lost; deploy
// JetStream or another driver where that matters.
type NATS struct {
	conn *nats.Conn
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, errors.New("eventlog: nats url is required")
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("eventlog: nats connect: %w", err)
	}
	return &NATS{conn: conn}, nil
}

func (n *NATS) Publish(ctx context.Context, topic string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	msg := nats.NewMsg(topic)
	msg.Data = rec.Body
	for k, v := range rec.Headers {
		msg.Header.Set(k, v)
	}
	if rec.Key != "" {
		msg.Header.Set("Kafka-Key", rec.Key)
	}

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("eventlog: nats publish: %w", err)
	}
	return n.conn.FlushWithContext(ctx)
}

func (n *NATS) Consume(ctx context.Context, topic string, h Handler, opts ...ConsumeOption) error {
	if err := validate(topic, h); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)

	msgs := make(chan *nats.Msg, co.maxInFlight)
	sub, err := n.conn.ChanQueueSubscribe(topic, co.group, msgs)
	if err != nil {
		return fmt.Errorf("eventlog: nats subscribe: %w", err)
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
				case m := <-msgs:
					headers := make(map[string]string, len(m.Header))
					for k := range m.Header {
						headers[k] = m.Header.Get(k)
					}
					d := Delivery{Topic: m.Subject, Key: m.Header.Get("Kafka-Key"), Headers: headers, Body: m.Data}
					_ = safeHandle(ctx, DriverNATS, h, d)
				}
			}
		}()
	}

	<-ctx.Done()
	uerr := sub.Drain()
	wg.Wait()
	return errors.Join(ctx.Err(), uerr)
}

func (n *NATS) Close() error {
	err := n.conn.Drain()
	n.conn.Close()
	return err
}
