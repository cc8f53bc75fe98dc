package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
)

type ConsumeMaterialProgressInput struct {
	EventID string
	RecordMaterialProgressInput
}

// ConsumeMaterialProgress handles one event log delivery. Client errors
// (invalid or unknown entities) are logged and swallowed so the broker does
// not redeliver them; server errors are returned for redelivery.
func (s *Usecase) ConsumeMaterialProgress(ctx context.Context, in ConsumeMaterialProgressInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeMaterialProgress")
	defer span.End()

	run := func(ctx context.Context) error {
		_, err := s.RecordMaterialProgress(ctx, in.RecordMaterialProgressInput)
		if err != nil && goerror.IsClientError(err) {
			slog.WarnContext(ctx, "rejected material progress event", "event_id", in.EventID, "error", err)
			return nil
		}
		return err
	}

	if in.EventID == "" {
		return run(ctx)
	}

	err := s.guard.Run(ctx, "progress:"+in.EventID, run)
	if errors.Is(err, idempotency.ErrDuplicate) {
		slog.InfoContext(ctx, "skipped duplicate material progress event", "event_id", in.EventID)
		return nil
	}
	return err
}
