package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type SweepResult struct {
	Scanned int
	Entered int
	Failed  int
}

// Sweep classifies every visible item inside the high window and emits
// DeadlineWindowEntered once per (item, tier). A failed dispatch drops the
// mark so the next sweep tries again.
func (s *Usecase) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := s.startSpan(ctx, "Sweep")
	defer span.End()

	var res SweepResult
	now := s.clock.Now()
	th := s.thresholds()

	items, err := s.repoDB.ListUpcoming(ctx, 0, now, now.Add(th.High), 0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list deadlines for sweep", "error", err)
		return res, err
	}
	res.Scanned = len(items)

	for _, item := range items {
		tier := th.Classify(item.DueAt, now)
		if !tier.Notifiable() {
			continue
		}

		marked, err := s.repoDB.MarkWindow(ctx, item.ID, tier)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo mark deadline window", "deadline_id", item.ID, "tier", tier, "error", err)
			res.Failed++
			continue
		}
		if !marked {
			continue
		}

		ev := event.DeadlineWindowEntered{
			EventID:    fmt.Sprintf("deadline:%d:%s", item.ID, tier),
			DeadlineID: item.ID,
			CourseID:   item.CourseID,
			Kind:       string(item.Kind),
			Title:      item.Title,
			DueAt:      item.DueAt,
			Tier:       tier.String(),
		}

		if err := s.bus.Deliver(ctx, ev); err != nil {
			res.Failed++
			if err := s.repoDB.UnmarkWindow(context.WithoutCancel(ctx), item.ID, tier); err != nil {
				slog.ErrorContext(ctx, "failed to repo unmark deadline window", "deadline_id", item.ID, "tier", tier, "error", err)
			}
			continue
		}

		res.Entered++
		slog.InfoContext(ctx, "deadline entered window", "deadline_id", item.ID, "course_id", item.CourseID, "tier", tier)
	}

	return res, nil
}
