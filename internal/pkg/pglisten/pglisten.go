// Package pglisten wakes in-process workers through Postgres LISTEN/NOTIFY.
//
// Notifications are hints; listeners still poll, so a dropped connection or
// a missed notify only delays work until the next tick.
package pglisten

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// Execer is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx. Notifying
// inside a transaction delivers only after commit.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Notify sends payload on channel.
func Notify(ctx context.Context, db Execer, channel, payload string) error {
	_, err := db.Exec(ctx, "SELECT pg_notify($1, $2)", channel, payload)
	return err
}

// Listener holds one pooled connection in LISTEN mode.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	backoff func() retry.Backoff
}

func New(pool *pgxpool.Pool, channel string) *Listener {
	return &Listener{
		pool:    pool,
		channel: channel,
		backoff: func() retry.Backoff {
			return retry.WithCappedDuration(5*time.Second, retry.NewFibonacci(200*time.Millisecond))
		},
	}
}

// Run calls fn for every notification until ctx is done, reconnecting with
// capped Fibonacci backoff when the connection drops.
func (l *Listener) Run(ctx context.Context, fn func(payload string)) error {
	err := retry.Do(ctx, l.backoff(), func(ctx context.Context) error {
		err := l.listen(ctx, fn)
		if err == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil
		}

		slog.WarnContext(ctx, "pglisten: connection lost, reconnecting", "channel", l.channel, "error", err)
		return retry.RetryableError(err)
	})

	slog.InfoContext(ctx, "pglisten: listener exited", "channel", l.channel)
	return err
}

func (l *Listener) listen(ctx context.Context, fn func(payload string)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	slog.InfoContext(ctx, "pglisten: listening", "channel", l.channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			// A connection returned mid-LISTEN must not go back to the pool.
			_ = conn.Conn().Close(context.WithoutCancel(ctx))
			return err
		}
		fn(n.Payload)
	}
}
