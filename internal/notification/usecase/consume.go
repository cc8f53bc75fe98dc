package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type ConsumeSubmissionGradedInput struct {
	EventID      string
	SubmissionID int64     `validate:"required,gt=0"`
	StudentID    int64     `validate:"required,gt=0"`
	DeadlineID   int64     `validate:"gte=0"`
	CourseID     int64     `validate:"required,gt=0"`
	Score        float64   `validate:"gte=0"`
	MaxScore     float64   `validate:"gte=0"`
	GradedAt     time.Time `validate:"required"`
	Regrade      bool
	Revision     int `validate:"gte=0"`
}

func (s *Usecase) ConsumeSubmissionGraded(ctx context.Context, in ConsumeSubmissionGradedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeSubmissionGraded")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "rejected submission graded event", "event_id", in.EventID, "error", err)
		return nil
	}

	return s.consume(ctx, in.EventID, event.SubmissionGraded{
		EventID:          in.EventID,
		SubmissionID:     in.SubmissionID,
		StudentID:        in.StudentID,
		AssignmentOrQuiz: in.DeadlineID,
		CourseID:         in.CourseID,
		Score:            in.Score,
		MaxScore:         in.MaxScore,
		GradedAt:         in.GradedAt,
		Regrade:          in.Regrade,
		Revision:         in.Revision,
	})
}

type ConsumeEnrollmentCreatedInput struct {
	EventID      string
	EnrollmentID int64 `validate:"required,gt=0"`
	StudentID    int64 `validate:"required,gt=0"`
	CourseID     int64 `validate:"required,gt=0"`
	EnrolledAt   time.Time
}

func (s *Usecase) ConsumeEnrollmentCreated(ctx context.Context, in ConsumeEnrollmentCreatedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeEnrollmentCreated")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "rejected enrollment created event", "event_id", in.EventID, "error", err)
		return nil
	}

	return s.consume(ctx, in.EventID, event.EnrollmentCreated{
		EventID:      in.EventID,
		EnrollmentID: in.EnrollmentID,
		StudentID:    in.StudentID,
		CourseID:     in.CourseID,
		EnrolledAt:   in.EnrolledAt,
	})
}

type ConsumeDeadlineWindowEnteredInput struct {
	EventID    string
	DeadlineID int64     `validate:"required,gt=0"`
	CourseID   int64     `validate:"required,gt=0"`
	Kind       string    `validate:"required,oneof=assignment quiz"`
	Title      string    `validate:"max=500"`
	DueAt      time.Time `validate:"required"`
	Tier       string    `validate:"required,oneof=normal high urgent"`
}

func (s *Usecase) ConsumeDeadlineWindowEntered(ctx context.Context, in ConsumeDeadlineWindowEnteredInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeDeadlineWindowEntered")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "rejected deadline window entered event", "event_id", in.EventID, "error", err)
		return nil
	}

	return s.consume(ctx, in.EventID, event.DeadlineWindowEntered{
		EventID:    in.EventID,
		DeadlineID: in.DeadlineID,
		CourseID:   in.CourseID,
		Kind:       in.Kind,
		Title:      in.Title,
		DueAt:      in.DueAt,
		Tier:       in.Tier,
	})
}

// consume dispatches e at most once per event id. The dedup key still
// guards correctness when the idempotency store is unavailable.
func (s *Usecase) consume(ctx context.Context, eventID string, e event.Event) error {
	run := func(ctx context.Context) error {
		_, err := s.Dispatch(ctx, e)
		if err != nil && goerror.IsClientError(err) {
			slog.WarnContext(ctx, "rejected event", "event_id", eventID, "event_type", e.EventType(), "error", err)
			return nil
		}
		return err
	}

	if eventID == "" {
		return run(ctx)
	}

	err := s.guard.Run(ctx, "notification:"+eventID, run)
	if errors.Is(err, idempotency.ErrDuplicate) {
		slog.InfoContext(ctx, "skipped duplicate event", "event_id", eventID, "event_type", e.EventType())
		return nil
	}
	return err
}
