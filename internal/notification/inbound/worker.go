package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/coursepulse/internal/pkg/goroutine"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
)

// waker delivers wake-up hints, e.g. Postgres LISTEN.
type waker interface {
	Run(ctx context.Context, fn func(payload string)) error
}

// RegisterWorker starts the delivery loop. It drains due deliveries whenever
// a wake hint arrives or the poll ticker fires, until a batch comes back
// empty.
func RegisterWorker(
	ctx context.Context,
	routine *goroutine.Manager,
	w waker,
	uc ucWorker,
	uuid uid.StringID,
	poll time.Duration,
) {
	if poll <= 0 {
		poll = 5 * time.Second
	}

	wake := make(chan struct{}, 1)
	notify := func(string) {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	if w != nil {
		routine.Go(ctx, func(ctx context.Context) error {
			return w.Run(ctx, notify)
		})
	}

	routine.Go(ctx, func(ctx context.Context) error {
		slog.InfoContext(ctx, "notification delivery worker started", "poll_interval", poll.String())

		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "notification delivery worker stopped")
				return nil
			case <-ticker.C:
			case <-wake:
			}

			drain(ctx, uc, uuid)
		}
	})
}

func drain(ctx context.Context, uc ucWorker, uuid uid.StringID) {
	for ctx.Err() == nil {
		rctx := instrument.SetCorrelationID(ctx, uuid.Generate())
		n, err := uc.ProcessDue(rctx)
		if err != nil {
			slog.ErrorContext(rctx, "failed to process due deliveries", "error", err)
			return
		}
		if n == 0 {
			return
		}
	}
}
