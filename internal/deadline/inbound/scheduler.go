package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
)

// Scheduler runs the deadline window sweep on a fixed interval.
type Scheduler struct {
	s    *gocron.Scheduler
	uc   ucSweep
	uuid uid.StringID
	ins  instrument.Instrumentation
	ctx  context.Context
}

func NewScheduler(ctx context.Context, uc ucSweep, uuid uid.StringID, ins instrument.Instrumentation, every time.Duration) (*Scheduler, error) {
	if every <= 0 {
		every = 5 * time.Minute
	}

	sc := &Scheduler{s: gocron.NewScheduler(time.UTC), uc: uc, uuid: uuid, ins: ins, ctx: ctx}
	sc.s.SingletonModeAll()

	if _, err := sc.s.Every(every).Do(sc.run); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scheduler) Start() { sc.s.StartAsync() }

func (sc *Scheduler) Stop() { sc.s.Stop() }

func (sc *Scheduler) run() {
	if sc.ctx.Err() != nil {
		return
	}

	ctx := instrument.SetCorrelationID(sc.ctx, sc.uuid.Generate())
	ctx, span := sc.ins.Tracer("deadline.inbound.scheduler").Start(ctx, "Sweep")
	defer span.End()

	res, err := sc.uc.Sweep(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "deadline sweep failed", "error", err)
		return
	}

	slog.InfoContext(ctx, "deadline sweep finished",
		"scanned", res.Scanned,
		"entered", res.Entered,
		"failed", res.Failed,
	)
}
