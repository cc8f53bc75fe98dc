package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shandysiswandi/coursepulse/internal/pkg/alert"
	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goroutine"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/jwt"
	"github.com/shandysiswandi/coursepulse/internal/pkg/mail"
	"github.com/shandysiswandi/coursepulse/internal/pkg/router"
	"github.com/shandysiswandi/coursepulse/internal/pkg/storage"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation
	alert  *alert.Rollbar

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Guard
	mail      mail.Mail
	eventLog  eventlog.Log
	storage   storage.Storage
	bus       *event.Bus

	// server
	router     *router.Router
	httpServer *http.Server
	sseServer  *http.Server

	// stopSweep stops the deadline scheduler.
	stopSweep func()

	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initMigration()
	app.initCache()
	app.initMail()
	app.initStorage()
	app.initEventLog()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
