package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/coursepulse/internal/deadline"
	"github.com/shandysiswandi/coursepulse/internal/notification"
	"github.com/shandysiswandi/coursepulse/internal/progress"
)

// initModules wires notification first so its bus subscriptions exist before
// progress and the deadline sweep start publishing.
func (a *App) initModules() {
	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:         a.ctx,
			DBConn:      a.dbConn,
			EventLog:    a.eventLog,
			Bus:         a.bus,
			Idempotency: a.idemp,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			UUID:        a.uuid,
			Clock:       a.clock,
			Goroutine:   a.goroutine,
			Validator:   a.validator,
			Router:      a.router,
			Mail:        a.mail,
			Storage:     a.storage,
			Alert:       a.alert,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.progress.enabled") {
		if err := progress.New(progress.Dependency{
			Ctx:         a.ctx,
			DBConn:      a.dbConn,
			EventLog:    a.eventLog,
			Bus:         a.bus,
			Idempotency: a.idemp,
			Config:      a.config,
			Instrument:  a.ins,
			UUID:        a.uuid,
			Clock:       a.clock,
			Goroutine:   a.goroutine,
			Validator:   a.validator,
			Router:      a.router,
		}); err != nil {
			slog.Error("failed to init module progress", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.deadline.enabled") {
		stop, err := deadline.New(deadline.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			Bus:        a.bus,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Validator:  a.validator,
			Router:     a.router,
		})
		if err != nil {
			slog.Error("failed to init module deadline", "error", err)
			os.Exit(1)
		}
		a.stopSweep = stop
	}
}
