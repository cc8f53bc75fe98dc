package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/jwt"
	"github.com/shandysiswandi/coursepulse/internal/pkg/storage"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
)

type repoDB interface {
	GetCourse(ctx context.Context, courseID int64) (*entity.Course, error)
	GetRecipient(ctx context.Context, userID int64) (*entity.Recipient, error)
	// ListPendingStudents returns actively enrolled students of courseID
	// without a submission for deadlineID.
	ListPendingStudents(ctx context.Context, courseID, deadlineID int64) ([]int64, error)
	ListPreferences(ctx context.Context, userID int64, t entity.Type) ([]entity.Preference, error)
	GetTemplate(ctx context.Context, t entity.Type, ch entity.Channel) (*entity.Template, error)

	// CreateNotification inserts n with one pending delivery per channel.
	// It returns false when the dedup key already exists.
	CreateNotification(ctx context.Context, n entity.Notification, channels []entity.Channel) (bool, error)

	ClaimDeliveries(ctx context.Context, now, leaseUntil time.Time, channels []entity.Channel, limit int) ([]entity.Claim, error)
	// PostponeDelivery and CompleteAttempt only write while the claim's lease
	// is still the one stored on the row; otherwise they return
	// entity.ErrLeaseLost.
	PostponeDelivery(ctx context.Context, c entity.Claim, until time.Time) error
	// CompleteAttempt records one attempt and returns the notification state
	// and whether this call changed it.
	CompleteAttempt(ctx context.Context, res entity.AttemptResult) (entity.State, bool, error)

	ListInbox(ctx context.Context, recipientID int64, status entity.InboxStatus, limit, offset int) ([]entity.Notification, error)
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
	MarkRead(ctx context.Context, notificationID, recipientID int64, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipientID int64, at time.Time) (int64, error)

	ListFailed(ctx context.Context, limit, offset int) ([]entity.Notification, error)
	ListDeliveries(ctx context.Context, notificationID int64) ([]entity.Delivery, error)
	ListAttempts(ctx context.Context, notificationID int64) ([]entity.Attempt, error)
	ChannelMetrics(ctx context.Context, since time.Time) ([]entity.ChannelMetrics, error)
}

// sender is a channel adapter.
type sender interface {
	Send(ctx context.Context, msg entity.Message) error
}

// Senders maps each channel to its adapter.
type Senders map[entity.Channel]sender

type streamer interface {
	Subscribe(ctx context.Context, userID int64) <-chan entity.Message
}

type alerter interface {
	Alert(ctx context.Context, err error, fields map[string]any)
}

type Usecase struct {
	repoDB    repoDB
	senders   Senders
	breakers  map[entity.Channel]*gobreaker.CircuitBreaker[struct{}]
	stream    streamer
	storage   storage.Storage
	alert     alerter
	guard     idempotency.Guard
	uid       uid.NumberID
	uuid      uid.StringID
	cfg       config.Config
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation

	attempts metric.Int64Counter
	latency  metric.Float64Histogram
}

type Dependency struct {
	RepoDB      repoDB
	Senders     Senders
	Stream      streamer
	Storage     storage.Storage
	Alert       alerter
	Idempotency idempotency.Guard
	UID         uid.NumberID
	UUID        uid.StringID
	Config      config.Config
	Clock       clock.Clocker
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
}

func NewNotification(dep Dependency) *Usecase {
	uc := &Usecase{
		repoDB:    dep.RepoDB,
		senders:   dep.Senders,
		stream:    dep.Stream,
		storage:   dep.Storage,
		alert:     dep.Alert,
		guard:     dep.Idempotency,
		uid:       dep.UID,
		uuid:      dep.UUID,
		cfg:       dep.Config,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
	}
	if uc.guard == nil {
		uc.guard = idempotency.Noop{}
	}

	uc.breakers = make(map[entity.Channel]*gobreaker.CircuitBreaker[struct{}], len(dep.Senders))
	for ch := range dep.Senders {
		uc.breakers[ch] = newBreaker(ch, dep.Config)
	}

	meter := dep.Instrument.Meter("notification.usecase")
	var err error
	uc.attempts, err = meter.Int64Counter("notification.delivery.attempts", metric.WithDescription("Delivery attempts by channel and outcome"))
	if err != nil {
		slog.Error("failed to create delivery attempt counter", "error", err)
	}
	uc.latency, err = meter.Float64Histogram("notification.delivery.latency", metric.WithDescription("Delivery attempt latency"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create delivery latency histogram", "error", err)
	}

	return uc
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func (s *Usecase) requireAuth(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("authentication required", goerror.CodeUnauthorized)
	}

	return clm, nil
}

// defaultChannels returns the configured channels that have an adapter.
func (s *Usecase) defaultChannels() []entity.Channel {
	raw := s.cfg.GetArray("notification.channels.defaults")
	if len(raw) == 0 {
		raw = []string{entity.ChannelInApp.String(), entity.ChannelEmail.String()}
	}

	out := make([]entity.Channel, 0, len(raw))
	for _, r := range raw {
		ch, ok := entity.ChannelFromString(r)
		if !ok {
			continue
		}
		if _, wired := s.senders[ch]; !wired {
			continue
		}
		out = append(out, ch)
	}
	return lo.Uniq(out)
}
