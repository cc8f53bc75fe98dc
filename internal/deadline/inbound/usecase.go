package inbound

import (
	"context"

	"github.com/shandysiswandi/coursepulse/internal/deadline/entity"
	"github.com/shandysiswandi/coursepulse/internal/deadline/usecase"
)

type ucSweep interface {
	Sweep(ctx context.Context) (usecase.SweepResult, error)
}

type uc interface {
	ucSweep

	ListUpcoming(ctx context.Context, in usecase.ListUpcomingInput) ([]entity.Upcoming, error)
}
