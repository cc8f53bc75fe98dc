package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
)

const notificationColumns = `id, recipient_id, type, subject_entity_id, payload, dedup_key, state, read_at, created_at`

// inAppTargeted limits inbox queries to notifications that carry an in-app
// delivery; a recipient who opted out of in_app never gets one.
const inAppTargeted = `EXISTS (
	SELECT 1 FROM notification_deliveries d
	WHERE d.notification_id = notifications.id AND d.channel = 'in_app')`

func scanNotification(row pgx.CollectableRow) (entity.Notification, error) {
	var n entity.Notification
	err := row.Scan(&n.ID, &n.RecipientID, &n.Type, &n.SubjectEntityID, &n.Payload, &n.DedupKey, &n.State, &n.ReadAt, &n.CreatedAt)
	return n, err
}

func (s *DB) ListInbox(ctx context.Context, recipientID int64, status entity.InboxStatus, limit, offset int) (_ []entity.Notification, err error) {
	ctx, span := s.startSpan(ctx, "ListInbox")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1
		  AND `+inAppTargeted+`
		  AND ($2 = 'all' OR ($2 = 'unread' AND read_at IS NULL) OR ($2 = 'read' AND read_at IS NOT NULL))
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`, recipientID, string(status), limit, offset)
	if err != nil {
		return nil, mapError(err)
	}

	items, err := pgx.CollectRows(rows, scanNotification)
	return items, mapError(err)
}

func (s *DB) CountUnread(ctx context.Context, recipientID int64) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "CountUnread")
	defer func() { s.endSpan(span, err) }()

	var n int64
	err = s.conn.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE recipient_id = $1 AND read_at IS NULL AND `+inAppTargeted, recipientID).Scan(&n)
	return n, mapError(err)
}

// MarkRead keeps the first read_at; it reports whether the row exists in the
// recipient's inbox.
func (s *DB) MarkRead(ctx context.Context, notificationID, recipientID int64, at time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkRead")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE notifications
		SET read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND recipient_id = $2 AND `+inAppTargeted, notificationID, recipientID, at)
	if err != nil {
		return false, mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *DB) MarkAllRead(ctx context.Context, recipientID int64, at time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "MarkAllRead")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE notifications SET read_at = $2
		WHERE recipient_id = $1 AND read_at IS NULL AND `+inAppTargeted, recipientID, at)
	if err != nil {
		return 0, mapError(err)
	}

	return tag.RowsAffected(), nil
}
