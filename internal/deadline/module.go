package deadline

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shandysiswandi/coursepulse/internal/deadline/inbound"
	"github.com/shandysiswandi/coursepulse/internal/deadline/outbound/db"
	"github.com/shandysiswandi/coursepulse/internal/deadline/usecase"
	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/router"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type Dependency struct {
	Ctx        context.Context
	DBConn     *pgxpool.Pool
	Bus        *event.Bus
	Config     config.Config
	Instrument instrument.Instrumentation
	UUID       uid.StringID
	Clock      clock.Clocker
	Validator  validator.Validator
	Router     *router.Router
}

// New wires the module and returns a stop func for the sweep scheduler.
func New(dep Dependency) (func(), error) {
	uc := usecase.NewDeadline(usecase.Dependency{
		RepoDB:     db.NewDB(dep.DBConn, dep.Instrument),
		Bus:        dep.Bus,
		Config:     dep.Config,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	if dep.Ctx == nil || !dep.Config.GetBool("modules.deadline.sweep_enabled") {
		return func() {}, nil
	}

	sc, err := inbound.NewScheduler(dep.Ctx, uc, dep.UUID, dep.Instrument, dep.Config.GetSecond("deadline.sweep_interval_seconds"))
	if err != nil {
		return nil, err
	}
	sc.Start()

	return sc.Stop, nil
}
