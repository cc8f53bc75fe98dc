package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/segmentio/kafka-go"
	"google.golang.org/api/option"

	"github.com/shandysiswandi/coursepulse/internal/pkg/alert"
	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goroutine"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/jwt"
	"github.com/shandysiswandi/coursepulse/internal/pkg/mail"
	"github.com/shandysiswandi/coursepulse/internal/pkg/migrate"
	"github.com/shandysiswandi/coursepulse/internal/pkg/router"
	"github.com/shandysiswandi/coursepulse/internal/pkg/storage"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
	"github.com/shandysiswandi/coursepulse/migrations"
)

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	a.alert = alert.NewRollbar(alert.Config{
		Enabled:     a.config.GetBool("alert.rollbar.enabled"),
		Token:       a.config.GetString("alert.rollbar.token"),
		Environment: a.config.GetString("instrument.env"),
		ServerHost:  a.config.GetString("alert.rollbar.server_host"),
		CodeVersion: a.config.GetString("instrument.service_version"),
	})

	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		LogLevel:         a.config.GetString("instrument.log_level"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		Reporter:         a.alert,
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.bus = event.NewBus()

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake()
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

func (a *App) initJWT() {
	defaultJWT, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		slog.Error("failed to init jwt token", "error", err)
		os.Exit(1)
	}
	a.jwt = defaultJWT
}

func (a *App) initDatabase() {
	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = int32(a.config.GetInt("database.pool.max_conns"))
	config.MinConns = int32(a.config.GetInt("database.pool.min_conns"))
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

func (a *App) initMigration() {
	if !a.config.GetBool("database.migrate_on_start") {
		return
	}

	if err := migrate.Up(a.ctx, a.dbConn, migrations.FS); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
}

func (a *App) initCache() {
	url := a.config.GetString("redis.url")
	if url == "" {
		slog.Warn("redis is not configured, event idempotency relies on dedup keys only")
		a.idemp = idempotency.Noop{}
		return
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
	a.idemp = idempotency.New(a.cacheConn,
		idempotency.WithLockDuration(a.config.GetSecond("redis.idempotency.lock_seconds")),
		idempotency.WithStateTTL(a.config.GetMinute("redis.idempotency.ttl_minutes")),
	)
}

func (a *App) initMail() {
	m, err := mail.New(mail.Config{
		Driver:          a.config.GetString("mail.driver"),
		From:            a.config.GetString("mail.from"),
		SMTPHost:        a.config.GetString("mail.smtp.host"),
		SMTPPort:        a.config.GetInt("mail.smtp.port"),
		SMTPUsername:    a.config.GetString("mail.smtp.username"),
		SMTPPassword:    a.config.GetString("mail.smtp.password"),
		SendGridAPIKey:  a.config.GetString("mail.sendgrid.api_key"),
		SendGridBaseURL: a.config.GetString("mail.sendgrid.base_url"),
	})
	if err != nil {
		slog.Error("failed to init mail", "error", err)
		os.Exit(1)
	}

	a.mail = m
}

// initStorage leaves a.storage nil when no driver is configured; exports
// then answer 503.
func (a *App) initStorage() {
	driver := strings.TrimSpace(a.config.GetString("storage.driver"))
	if driver == "" {
		slog.Info("object storage disabled")
		return
	}

	stg, err := storage.NewFromDriver(a.ctx, storage.Options{
		Driver:         driver,
		Bucket:         strings.TrimSpace(a.config.GetString("storage.bucket")),
		Endpoint:       strings.TrimSpace(a.config.GetString("storage.endpoint")),
		Region:         strings.TrimSpace(a.config.GetString("storage.region")),
		AccessKey:      strings.TrimSpace(a.config.GetString("storage.access_key")),
		SecretKey:      strings.TrimSpace(a.config.GetString("storage.secret_key")),
		UsePathStyle:   a.config.GetBool("storage.use_path_style"),
		UseSSL:         a.config.GetBool("storage.use_ssl"),
		GoogleAccessID: strings.TrimSpace(a.config.GetString("storage.gcs.signer_access_id")),
		PrivateKey:     []byte(a.config.GetString("storage.gcs.signer_private_key")),
	})
	if err != nil {
		slog.Error("failed to init storage", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.storage = stg
}

func (a *App) initEventLog() {
	driver := a.config.GetString("eventlog.driver")

	var pubsubOpts []option.ClientOption
	if v := strings.TrimSpace(a.config.GetString("eventlog.pubsub.endpoint")); v != "" {
		pubsubOpts = append(pubsubOpts, option.WithEndpoint(v), option.WithoutAuthentication())
	}
	if v := strings.TrimSpace(a.config.GetString("eventlog.pubsub.credentials_file")); v != "" {
		pubsubOpts = append(pubsubOpts, option.WithCredentialsFile(v))
	}

	el, err := eventlog.NewFromDriver(a.ctx, driver, eventlog.FactoryOptions{
		NATS: eventlog.NATSConfig{
			URL: a.config.GetString("eventlog.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("eventlog.nats.name")),
				nats.MaxReconnects(a.config.GetInt("eventlog.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("eventlog.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("eventlog.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("eventlog.nats.retry_on_failed_connect")),
			},
		},
		Kafka: eventlog.KafkaConfig{
			Brokers: a.config.GetArray("eventlog.kafka.brokers"),
			Dialer: &kafka.Dialer{
				Timeout:   a.config.GetSecond("eventlog.kafka.dial_timeout_seconds"),
				DualStack: true,
				ClientID:  a.config.GetString("instrument.service_name"),
			},
		},
		NSQ: eventlog.NSQConfig{
			ProducerAddr: a.config.GetString("eventlog.nsq.producer_addr"),
			NSQDAddrs:    a.config.GetArray("eventlog.nsq.nsqd_addrs"),
			LookupdAddrs: a.config.GetArray("eventlog.nsq.lookupd_addrs"),
		},
		PubSub: eventlog.PubSubConfig{
			ProjectID:     a.config.GetString("eventlog.pubsub.project_id"),
			ClientOptions: pubsubOpts,
		},
	})
	if err != nil {
		slog.Error("failed to init event log", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.eventLog = el
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}

	// The stream endpoint lives on its own listener without a write timeout.
	a.sseServer = &http.Server{
		Addr:              a.config.GetString("app.server.sse.address"),
		Handler:           routerWithCORS,
		ReadHeaderTimeout: a.config.GetSecond("app.server.sse.read_header_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "EventLog",
			fn: func(context.Context) error {
				return a.eventLog.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				if a.cacheConn == nil {
					return nil
				}
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				a.dbConn.Close()

				return nil
			},
		},
		{
			name: "Mail",
			fn: func(context.Context) error {
				return a.mail.Close()
			},
		},
		{
			name: "Storage",
			fn: func(context.Context) error {
				if a.storage == nil {
					return nil
				}
				return a.storage.Close()
			},
		},
		{
			name: "Rollbar",
			fn: func(context.Context) error {
				return a.alert.Close()
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
