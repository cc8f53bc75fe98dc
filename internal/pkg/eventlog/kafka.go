package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Dialer  *kafka.Dialer
}

// Kafka publishes with a hash balancer so records sharing a Key land on one
// partition, and consumes through consumer groups with explicit commits.
// Offsets are committed only after the handler succeeds; a failed record
// stops the partition reader, which resumes from the last commit.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  bool
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("eventlog: kafka brokers are required")
	}
	return &Kafka{brokers: cfg.Brokers, dialer: cfg.Dialer, writers: map[string]*kafka.Writer{}}, nil
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(k.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	if k.dialer != nil {
		w.Transport = &kafka.Transport{TLS: k.dialer.TLS, SASL: k.dialer.SASLMechanism}
	}
	k.writers[topic] = w
	return w, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, rec Record) error {
	if topic == "" {
		return ErrTopicRequired
	}

	w, err := k.writer(topic)
	if err != nil {
		return err
	}

	msg := kafka.Message{Key: []byte(rec.Key), Value: rec.Body, Time: time.Now()}
	for key, v := range rec.Headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("eventlog: kafka publish: %w", err)
	}
	return nil
}

func (k *Kafka) Consume(ctx context.Context, topic string, h Handler, opts ...ConsumeOption) error {
	if err := validate(topic, h); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrGroupRequired
	}

	// One reader per worker; the group coordinator spreads partitions across
	// them, which keeps per-key ordering. A failed record closes the reader
	// and a fresh one rejoins after a pause, resuming from the last commit.
	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				reader := kafka.NewReader(kafka.ReaderConfig{
					Brokers:  k.brokers,
					GroupID:  co.group,
					Topic:    topic,
					MaxBytes: 10e6,
					Dialer:   k.dialer,
				})
				err := k.readLoop(ctx, reader, h)
				_ = reader.Close()
				if ctx.Err() != nil {
					return
				}

				slog.WarnContext(ctx, "kafka reader stopped, rejoining", "topic", topic, "group", co.group, "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}()
	}

	wg.Wait()
	return ctx.Err()
}

func (k *Kafka) readLoop(ctx context.Context, reader *kafka.Reader, h Handler) error {
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		headers := make(map[string]string, len(m.Headers))
		for _, hd := range m.Headers {
			headers[hd.Key] = string(hd.Value)
		}

		d := Delivery{
			ID:        fmt.Sprintf("%d:%d", m.Partition, m.Offset),
			Topic:     m.Topic,
			Key:       string(m.Key),
			Headers:   headers,
			Body:      m.Value,
			Timestamp: m.Time,
		}

		if herr := safeHandle(ctx, DriverKafka, h, d); herr != nil {
			return herr
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			return err
		}
	}
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.closed = true
	var err error
	for _, w := range k.writers {
		err = errors.Join(err, w.Close())
	}
	k.writers = nil
	return err
}
