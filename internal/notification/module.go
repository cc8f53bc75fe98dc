package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/notification/inbound"
	"github.com/shandysiswandi/coursepulse/internal/notification/outbound/db"
	"github.com/shandysiswandi/coursepulse/internal/notification/outbound/email"
	"github.com/shandysiswandi/coursepulse/internal/notification/outbound/inapp"
	"github.com/shandysiswandi/coursepulse/internal/notification/usecase"
	"github.com/shandysiswandi/coursepulse/internal/pkg/alert"
	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goroutine"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/mail"
	"github.com/shandysiswandi/coursepulse/internal/pkg/pglisten"
	"github.com/shandysiswandi/coursepulse/internal/pkg/router"
	"github.com/shandysiswandi/coursepulse/internal/pkg/storage"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
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
	UID         uid.NumberID
	UUID        uid.StringID
	Clock       clock.Clocker
	Goroutine   *goroutine.Manager
	Validator   validator.Validator
	Router      *router.Router
	Mail        mail.Mail
	// Storage is nil when exports are disabled.
	Storage storage.Storage
	Alert   alert.Alerter
}

func New(dep Dependency) error {
	hub := inapp.New(dep.Instrument)

	uc := usecase.NewNotification(usecase.Dependency{
		RepoDB: db.NewDB(dep.DBConn, dep.Instrument),
		Senders: usecase.Senders{
			entity.ChannelInApp: hub,
			entity.ChannelEmail: email.New(dep.Mail, dep.Instrument),
		},
		Stream:      hub,
		Storage:     dep.Storage,
		Alert:       dep.Alert,
		Idempotency: dep.Idempotency,
		UID:         dep.UID,
		UUID:        dep.UUID,
		Config:      dep.Config,
		Clock:       dep.Clock,
		Validator:   dep.Validator,
		Instrument:  dep.Instrument,
	})

	dep.Bus.Subscribe(event.TypeCourseProgressChanged, "notification.dispatch", uc.HandleEvent)
	dep.Bus.Subscribe(event.TypeDeadlineWindowEntered, "notification.dispatch", uc.HandleEvent)

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	if dep.Ctx == nil {
		return nil
	}

	inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.EventLog, dep.UUID, uc, dep.Instrument)
	if dep.Config.GetBool("modules.notification.worker_enabled") {
		inbound.RegisterWorker(dep.Ctx, dep.Goroutine,
			pglisten.New(dep.DBConn, db.WakeChannel),
			uc, dep.UUID,
			dep.Config.GetSecond("notification.worker.poll_interval_seconds"),
		)
	}

	return nil
}
