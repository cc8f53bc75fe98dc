package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/progress/usecase"
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

func (h *MQHandler) MaterialProgressRecorded(ctx context.Context, d eventlog.Delivery) error {
	ctx = h.ensureCorrelationID(ctx, d)

	ctx, span := h.ins.Tracer("progress.inbound.mq").Start(ctx, "MaterialProgressRecorded")
	defer span.End()

	slog.InfoContext(ctx, "consume: material progress recorded", "msg_id", d.ID, "msg_body", string(d.Body))

	var payload event.MaterialProgressRecorded
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of material progress recorded", "msg_body", string(d.Body), "error", err)
		return nil
	}

	eventID := payload.EventID
	if eventID == "" {
		eventID = d.Header(event.HeaderEventID)
	}

	if err := h.uc.ConsumeMaterialProgress(ctx, usecase.ConsumeMaterialProgressInput{
		EventID: eventID,
		RecordMaterialProgressInput: usecase.RecordMaterialProgressInput{
			StudentID:   payload.StudentID,
			MaterialID:  payload.MaterialID,
			CourseID:    payload.CourseID,
			Status:      payload.Status,
			ProgressPct: payload.ProgressPct,
			TimeSpent:   payload.TimeSpentSeconds,
			Timestamp:   payload.Timestamp,
			Reset:       payload.Reset,
		},
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume material progress recorded", "msg_body", string(d.Body), "error", err)
		return err
	}

	return nil
}
