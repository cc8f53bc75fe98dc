package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/coursepulse/internal/deadline/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
	"github.com/shandysiswandi/coursepulse/internal/shared/urgency"
)

type repoDB interface {
	// ListUpcoming returns visible items with from < due_at <= until, by
	// due date. courseID 0 means every course; limit 0 means no limit.
	ListUpcoming(ctx context.Context, courseID int64, from, until time.Time, limit int) ([]entity.Item, error)
	// MarkWindow records that item entered tier; false when already marked.
	MarkWindow(ctx context.Context, deadlineID int64, tier urgency.Tier) (bool, error)
	UnmarkWindow(ctx context.Context, deadlineID int64, tier urgency.Tier) error
}

type deliverer interface {
	Deliver(ctx context.Context, e event.Event) error
}

type Usecase struct {
	repoDB    repoDB
	bus       deliverer
	cfg       config.Config
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoDB     repoDB
	Bus        deliverer
	Config     config.Config
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func NewDeadline(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		bus:       dep.Bus,
		cfg:       dep.Config,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("deadline.usecase").Start(ctx, name)
}

func (s *Usecase) thresholds() urgency.Thresholds {
	return urgency.ThresholdsFromDays(
		s.cfg.GetInt("urgency.urgent_within_days"),
		s.cfg.GetInt("urgency.high_within_days"),
	)
}
