package usecase

import (
	"context"
	"time"

	"github.com/moby/locker"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
	"github.com/shandysiswandi/coursepulse/internal/progress/entity"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type repoDB interface {
	GetMaterial(ctx context.Context, materialID int64) (*entity.Material, error)
	IsEnrolled(ctx context.Context, studentID, courseID int64) (bool, error)

	GetSummary(ctx context.Context, studentID, courseID int64) (*entity.Summary, error)
	ListSummaries(ctx context.Context, studentID int64) ([]entity.Summary, error)
	ListMaterialRecords(ctx context.Context, studentID, courseID int64) ([]entity.MaterialRecord, error)

	// InPairTx runs fn in one transaction holding the pair's advisory lock.
	InPairTx(ctx context.Context, studentID, courseID int64, fn func(ctx context.Context, tx entity.PairTx) error) error
}

type repoMQ interface {
	PublishProgressChanged(ctx context.Context, ev event.CourseProgressChanged) error
}

type Usecase struct {
	repoDB    repoDB
	repoMQ    repoMQ
	bus       event.Publisher
	locks     *locker.Locker
	guard     idempotency.Guard
	cfg       config.Config
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation
	backoff   func() retry.Backoff
}

type Dependency struct {
	RepoDB      repoDB
	RepoMQ      repoMQ
	Bus         event.Publisher
	Locks       *locker.Locker
	Idempotency idempotency.Guard
	Config      config.Config
	Clock       clock.Clocker
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
}

func NewProgress(dep Dependency) *Usecase {
	locks := dep.Locks
	if locks == nil {
		locks = locker.New()
	}
	guard := dep.Idempotency
	if guard == nil {
		guard = idempotency.Noop{}
	}

	return &Usecase{
		repoDB:    dep.RepoDB,
		repoMQ:    dep.RepoMQ,
		bus:       dep.Bus,
		locks:     locks,
		guard:     guard,
		cfg:       dep.Config,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
		backoff:   conflictBackoff,
	}
}

// conflictBackoff paces retries after serialization failures and deadlocks.
func conflictBackoff() retry.Backoff {
	b := retry.NewFibonacci(10 * time.Millisecond)
	b = retry.WithCappedDuration(250*time.Millisecond, b)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(6, b)
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("progress.usecase").Start(ctx, name)
}

func (s *Usecase) milestoneConfig() entity.MilestoneConfig {
	ms := s.cfg.GetIntArray("progress.milestones")
	if len(ms) == 0 {
		ms = []int{50, 100}
	}
	return entity.MilestoneConfig{
		Milestones:  ms,
		EmitStarted: s.cfg.GetBool("progress.emit_started"),
	}
}
