// Package idempotency deduplicates event processing by id using Redis.
//
// The guard is an optimisation: it lets consumers skip redelivered events
// cheaply. Downstream writes are idempotent on their own, so a Redis outage
// degrades to "process every delivery" instead of failing.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInProgress means another consumer holds the event; the caller should
	// return an error so the broker redelivers later.
	ErrInProgress = errors.New("event already in progress")
	// ErrDuplicate means the event was already processed.
	ErrDuplicate = errors.New("event already processed")
)

type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Guard runs a function at most once per key.
type Guard interface {
	Run(ctx context.Context, key string, fn func(context.Context) error) error
}

const (
	defaultLock = time.Minute
	defaultTTL  = 24 * time.Hour
)

type Option func(*Tracker)

// WithLockDuration bounds how long an in-progress marker survives a crash.
func WithLockDuration(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.lock = d
		}
	}
}

// WithStateTTL sets how long a completed marker is remembered.
func WithStateTTL(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.ttl = d
		}
	}
}

// Tracker is the Redis-backed Guard.
type Tracker struct {
	client redis.UniversalClient
	prefix string
	lock   time.Duration
	ttl    time.Duration
}

func New(client redis.UniversalClient, opts ...Option) *Tracker {
	t := &Tracker{client: client, prefix: "idempotency:", lock: defaultLock, ttl: defaultTTL}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Acquire marks key in progress, or reports the state somebody else left.
func (t *Tracker) Acquire(ctx context.Context, key string) (State, error) {
	fk := t.prefix + key

	ok, err := t.client.SetNX(ctx, fk, string(StateInProgress), t.lock).Result()
	if err != nil {
		return StateNone, err
	}
	if ok {
		return StateNone, nil
	}

	val, err := t.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SetNX and Get
		return t.Acquire(ctx, key)
	}
	if err != nil {
		return StateNone, err
	}
	return State(val), nil
}

func (t *Tracker) complete(ctx context.Context, key string) error {
	return t.client.Set(ctx, t.prefix+key, string(StateCompleted), t.ttl).Err()
}

// release drops the in-progress marker so a redelivery can retry.
func (t *Tracker) release(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.prefix+key).Err()
}

// Run executes fn unless key is completed or held. A failed fn releases the key.
func (t *Tracker) Run(ctx context.Context, key string, fn func(context.Context) error) error {
	state, err := t.Acquire(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "idempotency store unavailable, processing without guard", "key", key, "error", err)
		return fn(ctx)
	}

	switch state {
	case StateCompleted:
		return ErrDuplicate
	case StateInProgress:
		return ErrInProgress
	}

	if err := fn(ctx); err != nil {
		if relErr := t.release(context.WithoutCancel(ctx), key); relErr != nil {
			slog.WarnContext(ctx, "failed to release idempotency key", "key", key, "error", relErr)
		}
		return err
	}

	if err := t.complete(context.WithoutCancel(ctx), key); err != nil {
		slog.WarnContext(ctx, "failed to mark idempotency key completed", "key", key, "error", err)
	}
	return nil
}

// Noop runs every call. Used when Redis is disabled.
type Noop struct{}

func (Noop) Run(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}
