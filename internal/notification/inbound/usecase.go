package inbound

import (
	"context"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/notification/usecase"
)

type ucConsumer interface {
	ConsumeSubmissionGraded(ctx context.Context, in usecase.ConsumeSubmissionGradedInput) error
	ConsumeEnrollmentCreated(ctx context.Context, in usecase.ConsumeEnrollmentCreatedInput) error
	ConsumeDeadlineWindowEntered(ctx context.Context, in usecase.ConsumeDeadlineWindowEnteredInput) error
}

type ucStream interface {
	StreamNotifications(ctx context.Context) (<-chan entity.Message, error)
}

type ucWorker interface {
	ProcessDue(ctx context.Context) (int, error)
}

type uc interface {
	ucStream

	ListInbox(ctx context.Context, in usecase.ListInboxInput) ([]entity.Notification, error)
	CountUnread(ctx context.Context) (int64, error)
	MarkInboxRead(ctx context.Context, notificationID int64) error
	MarkAllInboxRead(ctx context.Context) (int64, error)

	ListFailed(ctx context.Context, in usecase.ListFailedInput) ([]usecase.FailedNotification, error)
	ListAttempts(ctx context.Context, in usecase.ListAttemptsInput) ([]entity.Attempt, error)
	Metrics(ctx context.Context, in usecase.MetricsInput) (*usecase.ChannelMetricsOutput, error)
	ExportFailed(ctx context.Context) (*usecase.ExportOutput, error)
}
