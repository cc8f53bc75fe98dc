package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
	"github.com/shandysiswandi/coursepulse/internal/shared/urgency"
)

// HandleEvent is the event bus entry point.
func (s *Usecase) HandleEvent(ctx context.Context, e event.Event) error {
	_, err := s.Dispatch(ctx, e)
	return err
}

// Dispatch expands e into notifications and persists the ones that are new
// and not suppressed by preference. It returns only the rows it created.
func (s *Usecase) Dispatch(ctx context.Context, e event.Event) (_ []entity.Notification, err error) {
	ctx, span := s.startSpan(ctx, "Dispatch")
	defer span.End()

	rc, err := s.resolveContext(ctx, e)
	if err != nil {
		return nil, err
	}

	drafts := entity.Expand(e, rc)
	if len(drafts) == 0 {
		slog.DebugContext(ctx, "event expands to no notification", "event_type", e.EventType())
		return nil, nil
	}

	defaults := s.defaultChannels()
	now := s.clock.Now()
	created := make([]entity.Notification, 0, len(drafts))

	for _, d := range drafts {
		prefs, err := s.repoDB.ListPreferences(ctx, d.RecipientID, d.Type)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo list preferences", "recipient_id", d.RecipientID, "type", d.Type, "error", err)
			return created, goerror.NewServer(err)
		}

		channels := entity.ResolveChannels(defaults, prefs)
		if len(channels) == 0 {
			slog.InfoContext(ctx, "suppressed by preference", "recipient_id", d.RecipientID, "type", d.Type, "dedup_key", d.DedupKey)
			continue
		}

		n := entity.Notification{
			ID:              s.uid.Generate(),
			RecipientID:     d.RecipientID,
			Type:            d.Type,
			SubjectEntityID: d.SubjectEntityID,
			Payload:         d.Payload,
			DedupKey:        d.DedupKey,
			State:           entity.StatePending,
			CreatedAt:       now,
		}

		inserted, err := s.repoDB.CreateNotification(ctx, n, channels)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo create notification", "dedup_key", d.DedupKey, "error", err)
			return created, goerror.NewServer(err)
		}
		if !inserted {
			slog.DebugContext(ctx, "duplicate notification discarded", "dedup_key", d.DedupKey)
			continue
		}

		created = append(created, n)
	}

	slog.InfoContext(ctx, "event dispatched",
		"event_type", e.EventType(),
		"drafts", len(drafts),
		"created", len(created),
	)

	return created, nil
}

// resolveContext loads what expansion needs beyond the event itself. A
// missing course or user is not fatal: expansion proceeds with blanks.
func (s *Usecase) resolveContext(ctx context.Context, e event.Event) (entity.Context, error) {
	var (
		rc        entity.Context
		courseID  int64
		studentID int64
	)

	switch ev := e.(type) {
	case event.CourseProgressChanged:
		if ev.Milestone == event.MilestoneStarted {
			return rc, nil
		}
		courseID, studentID = ev.CourseID, ev.StudentID
	case event.SubmissionGraded:
		courseID = ev.CourseID
	case event.EnrollmentCreated:
		courseID, studentID = ev.CourseID, ev.StudentID
	case event.DeadlineWindowEntered:
		if !urgency.Tier(ev.Tier).Notifiable() {
			return rc, nil
		}
		courseID = ev.CourseID

		students, err := s.repoDB.ListPendingStudents(ctx, ev.CourseID, ev.DeadlineID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo list pending students", "deadline_id", ev.DeadlineID, "error", err)
			return rc, goerror.NewServer(err)
		}
		rc.Students = students
	default:
		return rc, nil
	}

	if courseID > 0 {
		course, err := s.repoDB.GetCourse(ctx, courseID)
		switch {
		case errors.Is(err, goerror.ErrNotFound):
			slog.WarnContext(ctx, "course not found for notification", "course_id", courseID)
		case err != nil:
			slog.ErrorContext(ctx, "failed to repo get course", "course_id", courseID, "error", err)
			return rc, goerror.NewServer(err)
		default:
			rc.Course = *course
		}
	}

	if studentID > 0 {
		student, err := s.repoDB.GetRecipient(ctx, studentID)
		switch {
		case errors.Is(err, goerror.ErrNotFound):
			slog.WarnContext(ctx, "student not found for notification", "student_id", studentID)
		case err != nil:
			slog.ErrorContext(ctx, "failed to repo get recipient", "user_id", studentID, "error", err)
			return rc, goerror.NewServer(err)
		default:
			rc.StudentName = student.FullName
		}
	}

	return rc, nil
}
