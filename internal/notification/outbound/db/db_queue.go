package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
)

// ClaimDeliveries leases up to limit due deliveries on the given channels.
// Rows locked by another worker are skipped; a lease that ran out makes the
// row claimable again. Each claim carries the stored locked_until so later
// writes can prove they still own the row.
func (s *DB) ClaimDeliveries(ctx context.Context, now, leaseUntil time.Time, channels []entity.Channel, limit int) (_ []entity.Claim, err error) {
	ctx, span := s.startSpan(ctx, "ClaimDeliveries")
	defer func() { s.endSpan(span, err) }()

	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.String())
	}

	rows, err := s.conn.Query(ctx, `
		WITH due AS (
			SELECT notification_id, channel
			FROM notification_deliveries
			WHERE state = 'pending'
			  AND next_attempt_at <= $1
			  AND (locked_until IS NULL OR locked_until <= $1)
			  AND channel = ANY($3)
			ORDER BY next_attempt_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_deliveries d
		SET locked_until = $2, updated_at = $1
		FROM due, notifications n
		WHERE d.notification_id = due.notification_id
		  AND d.channel = due.channel
		  AND n.id = d.notification_id
		RETURNING d.notification_id, d.channel, d.attempts, n.recipient_id, n.type, n.payload, n.created_at, d.locked_until`,
		now, leaseUntil, names, limit)
	if err != nil {
		return nil, mapError(err)
	}

	claims, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Claim, error) {
		var c entity.Claim
		err := row.Scan(&c.NotificationID, &c.Channel, &c.Attempts, &c.RecipientID, &c.Type, &c.Payload, &c.CreatedAt, &c.LeaseUntil)
		return c, err
	})
	return claims, mapError(err)
}

// PostponeDelivery releases a claim without counting an attempt.
func (s *DB) PostponeDelivery(ctx context.Context, c entity.Claim, until time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "PostponeDelivery")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE notification_deliveries
		SET next_attempt_at = $3, locked_until = NULL, updated_at = now()
		WHERE notification_id = $1 AND channel = $2 AND state = 'pending' AND locked_until = $4`,
		c.NotificationID, c.Channel.String(), until, c.LeaseUntil)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrLeaseLost
	}
	return nil
}

// CompleteAttempt appends the attempt, moves the delivery and refolds the
// notification state, all in one transaction. The notification row is
// locked first so sibling channels finishing together fold in turn. The
// delivery only moves while it still holds res.LeaseUntil; otherwise nothing
// is written and entity.ErrLeaseLost is returned.
func (s *DB) CompleteAttempt(ctx context.Context, res entity.AttemptResult) (_ entity.State, _ bool, err error) {
	ctx, span := s.startSpan(ctx, "CompleteAttempt")
	defer func() { s.endSpan(span, err) }()

	var (
		next    entity.State
		changed bool
	)
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var current entity.State
		if err := tx.QueryRow(ctx, `SELECT state FROM notifications WHERE id = $1 FOR UPDATE`, res.NotificationID).
			Scan(&current); err != nil {
			return err
		}

		var deliveredAt *time.Time
		if res.State == entity.StateDelivered {
			deliveredAt = &res.NextAttemptAt
		}
		tag, err := tx.Exec(ctx, `
			UPDATE notification_deliveries
			SET state = $3, attempts = $4, next_attempt_at = $5, locked_until = NULL,
			    last_error = $6, delivered_at = COALESCE($7, delivered_at), updated_at = now()
			WHERE notification_id = $1 AND channel = $2 AND state = 'pending' AND locked_until = $8`,
			res.NotificationID, res.Channel.String(), res.State.String(), res.AttemptNo,
			res.NextAttemptAt, res.ErrorDetail, deliveredAt, res.LeaseUntil)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return entity.ErrLeaseLost
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO delivery_attempts (notification_id, channel, attempt_no, attempted_at, outcome, error_detail, latency_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			res.NotificationID, res.Channel.String(), res.AttemptNo, res.AttemptedAt,
			res.Outcome.String(), res.ErrorDetail, res.LatencyMs); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `SELECT state FROM notification_deliveries WHERE notification_id = $1`, res.NotificationID)
		if err != nil {
			return err
		}
		states, err := pgx.CollectRows(rows, pgx.RowTo[entity.State])
		if err != nil {
			return err
		}

		next = entity.AggregateState(states)
		if next == current {
			return nil
		}

		changed = true
		_, err = tx.Exec(ctx, `UPDATE notifications SET state = $2, updated_at = now() WHERE id = $1`,
			res.NotificationID, next.String())
		return err
	})
	if err != nil {
		return "", false, mapError(err)
	}

	return next, changed, nil
}
