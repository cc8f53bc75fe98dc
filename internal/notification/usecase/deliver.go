package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goroutine"
)

type deliveryPolicy struct {
	maxAttempts    int
	baseDelay      time.Duration
	maxDelay       time.Duration
	jitterPercent  uint64
	lease          time.Duration
	attemptTimeout time.Duration
	batchSize      int
	concurrency    int
	breakerOpen    time.Duration
}

func (s *Usecase) policy() deliveryPolicy {
	p := deliveryPolicy{
		maxAttempts:    s.cfg.GetInt("notification.retry.max_attempts"),
		baseDelay:      s.cfg.GetMillisecond("notification.retry.base_delay_ms"),
		maxDelay:       s.cfg.GetMillisecond("notification.retry.max_delay_ms"),
		jitterPercent:  uint64(max(s.cfg.GetInt("notification.retry.jitter_percent"), 0)),
		lease:          s.cfg.GetSecond("notification.worker.lease_seconds"),
		attemptTimeout: s.cfg.GetSecond("notification.worker.attempt_timeout_seconds"),
		batchSize:      s.cfg.GetInt("notification.worker.batch_size"),
		concurrency:    s.cfg.GetInt("notification.worker.concurrency"),
		breakerOpen:    breakerOpenTimeout(s.cfg),
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = 5
	}
	if p.baseDelay <= 0 {
		p.baseDelay = 2 * time.Second
	}
	if p.maxDelay < p.baseDelay {
		p.maxDelay = max(10*time.Minute, p.baseDelay)
	}
	if p.lease <= 0 {
		p.lease = time.Minute
	}
	if p.attemptTimeout <= 0 {
		p.attemptTimeout = 10 * time.Second
	}
	if p.batchSize <= 0 {
		p.batchSize = 50
	}
	if p.concurrency <= 0 {
		p.concurrency = 8
	}
	return p
}

// claimLimit caps a batch so every claim can finish its attempt before the
// lease runs out, even when each attempt uses its full timeout.
func (p deliveryPolicy) claimLimit() int {
	rounds := max(int(p.lease/p.attemptTimeout), 1)
	return min(p.batchSize, p.concurrency*rounds)
}

// backoff is the delay before the attempt that follows attemptNo.
func (p deliveryPolicy) backoff(attemptNo int) time.Duration {
	b := retry.NewExponential(p.baseDelay)
	if p.jitterPercent > 0 {
		b = retry.WithJitterPercent(p.jitterPercent, b)
	}
	b = retry.WithCappedDuration(p.maxDelay, b)

	var d time.Duration
	for range max(attemptNo, 1) {
		next, stop := b.Next()
		if stop {
			break
		}
		d = next
	}
	return d
}

func breakerOpenTimeout(cfg config.Config) time.Duration {
	if d := cfg.GetSecond("notification.breaker.open_seconds"); d > 0 {
		return d
	}
	return 30 * time.Second
}

func newBreaker(ch entity.Channel, cfg config.Config) *gobreaker.CircuitBreaker[struct{}] {
	threshold := cfg.GetUint32("notification.breaker.failure_threshold")
	if threshold == 0 {
		threshold = 5
	}
	halfOpen := cfg.GetUint32("notification.breaker.half_open_requests")
	if halfOpen == 0 {
		halfOpen = 1
	}

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notification." + ch.String(),
		MaxRequests: halfOpen,
		Interval:    cfg.GetSecond("notification.breaker.interval_seconds"),
		Timeout:     breakerOpenTimeout(cfg),
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		// A recipient-specific rejection says nothing about channel health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, entity.ErrPermanent)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// availableChannels lists channels whose breaker is not open.
func (s *Usecase) availableChannels() []entity.Channel {
	out := make([]entity.Channel, 0, len(s.breakers))
	for ch, cb := range s.breakers {
		if cb.State() == gobreaker.StateOpen {
			continue
		}
		out = append(out, ch)
	}
	slices.Sort(out)
	return out
}

// ProcessDue claims one batch of due deliveries and attempts each of them
// on a bounded pool. It returns the number of claimed deliveries.
func (s *Usecase) ProcessDue(ctx context.Context) (int, error) {
	ctx, span := s.startSpan(ctx, "ProcessDue")
	defer span.End()

	channels := s.availableChannels()
	if len(channels) == 0 {
		return 0, nil
	}

	p := s.policy()
	now := s.clock.Now()

	claims, err := s.repoDB.ClaimDeliveries(ctx, now, now.Add(p.lease), channels, p.claimLimit())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo claim deliveries", "error", err)
		return 0, goerror.NewServer(err)
	}
	if len(claims) == 0 {
		return 0, nil
	}

	pool := goroutine.NewManager(p.concurrency)
	for _, c := range claims {
		err := pool.Submit(ctx, func(ctx context.Context) error {
			s.deliver(ctx, p, c)
			return nil
		})
		if err != nil {
			// Unsubmitted claims become claimable again once the lease ends.
			slog.WarnContext(ctx, "stopped submitting deliveries", "error", err)
			break
		}
	}
	_ = pool.Wait()

	return len(claims), nil
}

func (s *Usecase) deliver(ctx context.Context, p deliveryPolicy, c entity.Claim) {
	ctx, span := s.startSpan(ctx, "Deliver")
	defer span.End()

	started := s.clock.Now()
	if started.Add(p.attemptTimeout).After(c.LeaseUntil) {
		// Not enough lease left for a bounded attempt; the next claim retries it.
		slog.WarnContext(ctx, "delivery lease too short to attempt",
			"notification_id", c.NotificationID,
			"channel", c.Channel,
			"lease_until", c.LeaseUntil,
		)
		return
	}

	sendErr := s.attempt(ctx, p, c)

	if errors.Is(sendErr, gobreaker.ErrOpenState) || errors.Is(sendErr, gobreaker.ErrTooManyRequests) {
		until := started.Add(p.breakerOpen)
		if err := s.repoDB.PostponeDelivery(ctx, c, until); err != nil {
			slog.ErrorContext(ctx, "failed to repo postpone delivery", "notification_id", c.NotificationID, "channel", c.Channel, "error", err)
		}
		return
	}
	if ctx.Err() != nil {
		// Shutting down; the lease hands the claim to the next worker.
		return
	}

	outcome := classifyOutcome(sendErr)
	attemptNo := c.Attempts + 1
	state := entity.NextState(outcome, attemptNo, p.maxAttempts)
	finished := s.clock.Now()

	res := entity.AttemptResult{
		Attempt: entity.Attempt{
			NotificationID: c.NotificationID,
			Channel:        c.Channel,
			AttemptNo:      attemptNo,
			AttemptedAt:    started,
			Outcome:        outcome,
			LatencyMs:      finished.Sub(started).Milliseconds(),
		},
		State:         state,
		NextAttemptAt: finished,
		LeaseUntil:    c.LeaseUntil,
	}
	if sendErr != nil {
		res.ErrorDetail = sendErr.Error()
	}
	if state == entity.StatePending {
		res.NextAttemptAt = finished.Add(p.backoff(attemptNo))
	}

	s.recordMetrics(ctx, res.Attempt)

	notifState, changed, err := s.repoDB.CompleteAttempt(ctx, res)
	if errors.Is(err, entity.ErrLeaseLost) {
		slog.WarnContext(ctx, "delivery reclaimed by another worker, attempt discarded",
			"notification_id", c.NotificationID,
			"channel", c.Channel,
			"attempt_no", attemptNo,
			"outcome", outcome,
		)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo complete attempt",
			"notification_id", c.NotificationID,
			"channel", c.Channel,
			"attempt_no", attemptNo,
			"error", err,
		)
		return
	}

	switch {
	case state == entity.StatePending:
		slog.WarnContext(ctx, "delivery attempt failed, retry scheduled",
			"notification_id", c.NotificationID,
			"channel", c.Channel,
			"attempt_no", attemptNo,
			"outcome", outcome,
			"next_attempt_at", res.NextAttemptAt,
			"error", sendErr,
		)
	case state == entity.StateFailed:
		slog.ErrorContext(ctx, "delivery failed",
			"notification_id", c.NotificationID,
			"channel", c.Channel,
			"attempt_no", attemptNo,
			"outcome", outcome,
			"error", sendErr,
		)
	}

	if changed && notifState == entity.StateFailed && s.alert != nil {
		alertErr := fmt.Errorf("notification %d failed", c.NotificationID)
		if sendErr != nil {
			alertErr = fmt.Errorf("notification %d failed: %w", c.NotificationID, sendErr)
		}
		s.alert.Alert(ctx, alertErr, map[string]any{
			"notification_id": c.NotificationID,
			"type":            c.Type.String(),
			"recipient_id":    c.RecipientID,
			"channel":         c.Channel.String(),
			"attempts":        attemptNo,
		})
	}
}

// attempt renders and sends one claim through the channel breaker. The
// per-attempt timeout covers rendering as well as the send.
func (s *Usecase) attempt(ctx context.Context, p deliveryPolicy, c entity.Claim) error {
	snd, ok := s.senders[c.Channel]
	if !ok {
		return entity.Permanent(fmt.Errorf("no adapter for channel %q", c.Channel))
	}

	actx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	msg, err := s.render(actx, c)
	if err == nil {
		_, err = s.breakers[c.Channel].Execute(func() (struct{}, error) {
			return struct{}{}, snd.Send(actx, msg)
		})
	}
	if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func classifyOutcome(err error) entity.Outcome {
	switch {
	case err == nil:
		return entity.OutcomeSuccess
	case errors.Is(err, entity.ErrPermanent):
		return entity.OutcomePermanentError
	case errors.Is(err, context.DeadlineExceeded):
		return entity.OutcomeTimeout
	default:
		return entity.OutcomeError
	}
}

func (s *Usecase) recordMetrics(ctx context.Context, a entity.Attempt) {
	attrs := metric.WithAttributes(
		attribute.String("channel", a.Channel.String()),
		attribute.String("outcome", a.Outcome.String()),
	)
	if s.attempts != nil {
		s.attempts.Add(ctx, 1, attrs)
	}
	if s.latency != nil {
		s.latency.Record(ctx, float64(a.LatencyMs), attrs)
	}
}
