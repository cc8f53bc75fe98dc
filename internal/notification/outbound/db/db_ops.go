package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
)

func (s *DB) ListFailed(ctx context.Context, limit, offset int) (_ []entity.Notification, err error) {
	ctx, span := s.startSpan(ctx, "ListFailed")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE state = 'failed'
		ORDER BY updated_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}

	items, err := pgx.CollectRows(rows, scanNotification)
	return items, mapError(err)
}

func (s *DB) ListDeliveries(ctx context.Context, notificationID int64) (_ []entity.Delivery, err error) {
	ctx, span := s.startSpan(ctx, "ListDeliveries")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT notification_id, channel, state, attempts, next_attempt_at, last_error, delivered_at
		FROM notification_deliveries
		WHERE notification_id = $1
		ORDER BY channel`, notificationID)
	if err != nil {
		return nil, mapError(err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Delivery, error) {
		var d entity.Delivery
		err := row.Scan(&d.NotificationID, &d.Channel, &d.State, &d.Attempts, &d.NextAttemptAt, &d.LastError, &d.DeliveredAt)
		return d, err
	})
	return items, mapError(err)
}

func (s *DB) ListAttempts(ctx context.Context, notificationID int64) (_ []entity.Attempt, err error) {
	ctx, span := s.startSpan(ctx, "ListAttempts")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT notification_id, channel, attempt_no, attempted_at, outcome, error_detail, latency_ms
		FROM delivery_attempts
		WHERE notification_id = $1
		ORDER BY attempted_at, channel, attempt_no`, notificationID)
	if err != nil {
		return nil, mapError(err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Attempt, error) {
		var a entity.Attempt
		err := row.Scan(&a.NotificationID, &a.Channel, &a.AttemptNo, &a.AttemptedAt, &a.Outcome, &a.ErrorDetail, &a.LatencyMs)
		return a, err
	})
	return items, mapError(err)
}

func (s *DB) ChannelMetrics(ctx context.Context, since time.Time) (_ []entity.ChannelMetrics, err error) {
	ctx, span := s.startSpan(ctx, "ChannelMetrics")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT channel,
		       count(*),
		       count(*) FILTER (WHERE outcome = 'success'),
		       COALESCE(avg(latency_ms), 0)::FLOAT8,
		       COALESCE(percentile_cont(0.95) WITHIN GROUP (ORDER BY latency_ms), 0)::FLOAT8
		FROM delivery_attempts
		WHERE attempted_at >= $1
		GROUP BY channel
		ORDER BY channel`, since)
	if err != nil {
		return nil, mapError(err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.ChannelMetrics, error) {
		var m entity.ChannelMetrics
		err := row.Scan(&m.Channel, &m.Attempts, &m.Successes, &m.AvgLatencyMs, &m.P95LatencyMs)
		return m, err
	})
	return items, mapError(err)
}
