package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
)

type ListInboxInput struct {
	Status string `validate:"omitempty,oneof=all unread read"`
	Limit  int    `validate:"omitempty,gte=1,lte=100"`
	Offset int    `validate:"omitempty,gte=0"`
}

func (s *Usecase) ListInbox(ctx context.Context, in ListInboxInput) ([]entity.Notification, error) {
	ctx, span := s.startSpan(ctx, "ListInbox")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	if in.Status == "" {
		in.Status = string(entity.InboxStatusAll)
	}
	if in.Limit == 0 {
		in.Limit = 20
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	items, err := s.repoDB.ListInbox(ctx, clm.UserID, entity.InboxStatus(in.Status), in.Limit, in.Offset)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list inbox", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

func (s *Usecase) CountUnread(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "CountUnread")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.repoDB.CountUnread(ctx, clm.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count unread", "user_id", clm.UserID, "error", err)
		return 0, goerror.NewServer(err)
	}

	return n, nil
}

type MarkReadInput struct {
	NotificationID int64 `validate:"required,gt=0"`
	RecipientID    int64 `validate:"required,gt=0"`
}

// MarkRead sets read_at once; repeating it is a no-op. A notification that
// belongs to another recipient reads as not found.
func (s *Usecase) MarkRead(ctx context.Context, in MarkReadInput) error {
	ctx, span := s.startSpan(ctx, "MarkRead")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	updated, err := s.repoDB.MarkRead(ctx, in.NotificationID, in.RecipientID, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark read", "user_id", in.RecipientID, "notification_id", in.NotificationID, "error", err)
		return goerror.NewServer(err)
	}
	if !updated {
		return goerror.NewBusiness("inbox notification not found", goerror.CodeNotFound)
	}

	return nil
}

// MarkInboxRead is MarkRead for the authenticated user.
func (s *Usecase) MarkInboxRead(ctx context.Context, notificationID int64) error {
	clm, err := s.requireAuth(ctx)
	if err != nil {
		return err
	}

	return s.MarkRead(ctx, MarkReadInput{NotificationID: notificationID, RecipientID: clm.UserID})
}

func (s *Usecase) MarkAllInboxRead(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "MarkAllInboxRead")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return 0, err
	}

	n, err := s.repoDB.MarkAllRead(ctx, clm.UserID, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark all inbox read", "user_id", clm.UserID, "error", err)
		return 0, goerror.NewServer(err)
	}

	return n, nil
}

// StreamNotifications registers a live stream for the authenticated user and
// closes it when ctx is done.
func (s *Usecase) StreamNotifications(ctx context.Context) (<-chan entity.Message, error) {
	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	return s.stream.Subscribe(ctx, clm.UserID), nil
}
