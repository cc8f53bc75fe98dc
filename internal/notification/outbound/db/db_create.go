package db

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/pglisten"
)

func (s *DB) CreateNotification(ctx context.Context, n entity.Notification, channels []entity.Channel) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "CreateNotification")
	defer func() { s.endSpan(span, err) }()

	inserted := false
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO notifications (id, recipient_id, type, subject_entity_id, payload, dedup_key, state, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			ON CONFLICT (dedup_key) DO NOTHING`,
			n.ID, n.RecipientID, n.Type.String(), n.SubjectEntityID, n.Payload, n.DedupKey, entity.StatePending.String(), n.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, ch := range channels {
			batch.Queue(`
				INSERT INTO notification_deliveries (notification_id, channel, state, next_attempt_at, updated_at)
				VALUES ($1, $2, $3, $4, $4)`,
				n.ID, ch.String(), entity.StatePending.String(), n.CreatedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		inserted = true
		return pglisten.Notify(ctx, tx, WakeChannel, strconv.FormatInt(n.ID, 10))
	})
	if err != nil {
		return false, mapError(err)
	}

	return inserted, nil
}
