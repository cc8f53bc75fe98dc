package progress

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moby/locker"

	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goroutine"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/router"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
	"github.com/shandysiswandi/coursepulse/internal/progress/inbound"
	"github.com/shandysiswandi/coursepulse/internal/progress/outbound/db"
	"github.com/shandysiswandi/coursepulse/internal/progress/outbound/mq"
	"github.com/shandysiswandi/coursepulse/internal/progress/usecase"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type Dependency struct {
	Ctx         context.Context
	DBConn      *pgxpool.Pool
	EventLog    eventlog.Log
	Bus         *event.Bus
	Idempotency idempotency.Guard
	Config      config.Config
	Instrument  instrument.Instrumentation
	UUID        uid.StringID
	Clock       clock.Clocker
	Goroutine   *goroutine.Manager
	Validator   validator.Validator
	Router      *router.Router
}

func New(dep Dependency) error {
	uc := usecase.NewProgress(usecase.Dependency{
		RepoDB:      db.NewDB(dep.DBConn, dep.Instrument),
		RepoMQ:      mq.New(dep.EventLog, dep.UUID, dep.Instrument),
		Bus:         dep.Bus,
		Locks:       locker.New(),
		Idempotency: dep.Idempotency,
		Config:      dep.Config,
		Clock:       dep.Clock,
		Validator:   dep.Validator,
		Instrument:  dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.EventLog, dep.UUID, uc, dep.Instrument)
	}

	return nil
}
