package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/coursepulse/internal/deadline/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
)

type ListUpcomingInput struct {
	CourseID   int64 `validate:"omitempty,gt=0"`
	WithinDays int   `validate:"omitempty,gte=1,lte=365"`
	Limit      int   `validate:"omitempty,gte=1,lte=200"`
}

// ListUpcoming returns visible items not yet due, each with its tier, all
// classified against one captured now.
func (s *Usecase) ListUpcoming(ctx context.Context, in ListUpcomingInput) ([]entity.Upcoming, error) {
	ctx, span := s.startSpan(ctx, "ListUpcoming")
	defer span.End()

	if in.WithinDays == 0 {
		in.WithinDays = 14
	}
	if in.Limit == 0 {
		in.Limit = 50
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	now := s.clock.Now()
	until := now.Add(time.Duration(in.WithinDays) * 24 * time.Hour)

	items, err := s.repoDB.ListUpcoming(ctx, in.CourseID, now, until, in.Limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list upcoming deadlines", "course_id", in.CourseID, "error", err)
		return nil, goerror.NewServer(err)
	}

	th := s.thresholds()
	out := make([]entity.Upcoming, 0, len(items))
	for _, item := range items {
		if !item.DueAt.After(now) {
			continue
		}
		out = append(out, entity.Upcoming{Item: item, Tier: th.Classify(item.DueAt, now)})
	}

	return out, nil
}
