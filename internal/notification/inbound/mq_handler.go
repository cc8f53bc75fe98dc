package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/coursepulse/internal/notification/usecase"
	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, d eventlog.Delivery) context.Context {
	if cid := d.Header(event.HeaderCorrelationID); cid != "" {
		return instrument.SetCorrelationID(ctx, cid)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func eventID(bodyID string, d eventlog.Delivery) string {
	if bodyID != "" {
		return bodyID
	}
	return d.Header(event.HeaderEventID)
}

func (h *MQHandler) SubmissionGraded(ctx context.Context, d eventlog.Delivery) error {
	ctx = h.ensureCorrelationID(ctx, d)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "SubmissionGraded")
	defer span.End()

	slog.InfoContext(ctx, "consume: submission graded", "msg_id", d.ID, "msg_body", string(d.Body))

	var payload event.SubmissionGraded
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of submission graded", "msg_body", string(d.Body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeSubmissionGraded(ctx, usecase.ConsumeSubmissionGradedInput{
		EventID:      eventID(payload.EventID, d),
		SubmissionID: payload.SubmissionID,
		StudentID:    payload.StudentID,
		DeadlineID:   payload.AssignmentOrQuiz,
		CourseID:     payload.CourseID,
		Score:        payload.Score,
		MaxScore:     payload.MaxScore,
		GradedAt:     payload.GradedAt,
		Regrade:      payload.Regrade,
		Revision:     payload.Revision,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume submission graded", "msg_body", string(d.Body), "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) EnrollmentCreated(ctx context.Context, d eventlog.Delivery) error {
	ctx = h.ensureCorrelationID(ctx, d)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "EnrollmentCreated")
	defer span.End()

	slog.InfoContext(ctx, "consume: enrollment created", "msg_id", d.ID, "msg_body", string(d.Body))

	var payload event.EnrollmentCreated
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of enrollment created", "msg_body", string(d.Body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeEnrollmentCreated(ctx, usecase.ConsumeEnrollmentCreatedInput{
		EventID:      eventID(payload.EventID, d),
		EnrollmentID: payload.EnrollmentID,
		StudentID:    payload.StudentID,
		CourseID:     payload.CourseID,
		EnrolledAt:   payload.EnrolledAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume enrollment created", "msg_body", string(d.Body), "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) DeadlineWindowEntered(ctx context.Context, d eventlog.Delivery) error {
	ctx = h.ensureCorrelationID(ctx, d)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "DeadlineWindowEntered")
	defer span.End()

	slog.InfoContext(ctx, "consume: deadline window entered", "msg_id", d.ID, "msg_body", string(d.Body))

	var payload event.DeadlineWindowEntered
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of deadline window entered", "msg_body", string(d.Body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeDeadlineWindowEntered(ctx, usecase.ConsumeDeadlineWindowEnteredInput{
		EventID:    eventID(payload.EventID, d),
		DeadlineID: payload.DeadlineID,
		CourseID:   payload.CourseID,
		Kind:       payload.Kind,
		Title:      payload.Title,
		DueAt:      payload.DueAt,
		Tier:       payload.Tier,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume deadline window entered", "msg_body", string(d.Body), "error", err)
		return err
	}

	return nil
}
