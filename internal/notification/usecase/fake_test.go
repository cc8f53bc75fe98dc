package usecase

import (
	"bytes"
	"context"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/jwt"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
)

type deliveryKey struct {
	id int64
	ch entity.Channel
}

type memDelivery struct {
	entity.Delivery
	lockedUntil time.Time
}

type memRepo struct {
	mu         sync.Mutex
	courses    map[int64]entity.Course
	users      map[int64]entity.Recipient
	pending    map[int64][]int64
	prefs      []entity.Preference
	templates  map[templateKey]entity.Template
	notifs     map[int64]*entity.Notification
	byKey      map[string]int64
	deliveries map[deliveryKey]*memDelivery
	attempts   []entity.Attempt
	postponed  int
	createErr  error
	// stallReads makes GetRecipient block until its context ends.
	stallReads atomic.Bool
}

func newMemRepo() *memRepo {
	r := &memRepo{
		courses:    map[int64]entity.Course{},
		users:      map[int64]entity.Recipient{},
		pending:    map[int64][]int64{},
		templates:  map[templateKey]entity.Template{},
		notifs:     map[int64]*entity.Notification{},
		byKey:      map[string]int64{},
		deliveries: map[deliveryKey]*memDelivery{},
	}
	for _, t := range []entity.Type{
		entity.TypeCourseCompleted, entity.TypeCourseStudentCompleted, entity.TypeCourseMilestone,
		entity.TypeSubmissionGraded, entity.TypeDeadlineDueSoon,
		entity.TypeEnrollmentWelcome, entity.TypeEnrollmentNewStudent,
	} {
		for _, ch := range []entity.Channel{entity.ChannelInApp, entity.ChannelEmail} {
			r.setTemplate(t, ch, "{{.course_title}}", "Hi {{.recipient_name}}")
		}
	}
	return r
}

type templateKey struct {
	t  entity.Type
	ch entity.Channel
}

func (r *memRepo) setTemplate(t entity.Type, ch entity.Channel, subject, body string) {
	r.templates[templateKey{t, ch}] = entity.Template{Type: t, Channel: ch, Subject: subject, Body: body}
}

func (r *memRepo) GetCourse(_ context.Context, id int64) (*entity.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &c, nil
}

func (r *memRepo) GetRecipient(ctx context.Context, id int64) (*entity.Recipient, error) {
	if r.stallReads.Load() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &u, nil
}

func (r *memRepo) ListPendingStudents(_ context.Context, _, deadlineID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.pending[deadlineID]), nil
}

func (r *memRepo) ListPreferences(_ context.Context, userID int64, t entity.Type) ([]entity.Preference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Preference
	for _, p := range r.prefs {
		if p.UserID == userID && p.Type == t {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memRepo) GetTemplate(_ context.Context, t entity.Type, ch entity.Channel) (*entity.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[templateKey{t, ch}]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &tpl, nil
}

func (r *memRepo) CreateNotification(_ context.Context, n entity.Notification, channels []entity.Channel) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return false, r.createErr
	}
	if _, ok := r.byKey[n.DedupKey]; ok {
		return false, nil
	}
	r.byKey[n.DedupKey] = n.ID
	r.notifs[n.ID] = &n
	for _, ch := range channels {
		r.deliveries[deliveryKey{n.ID, ch}] = &memDelivery{Delivery: entity.Delivery{
			NotificationID: n.ID, Channel: ch, State: entity.StatePending, NextAttemptAt: n.CreatedAt,
		}}
	}
	return true, nil
}

func (r *memRepo) sortedDeliveryKeys() []deliveryKey {
	keys := make([]deliveryKey, 0, len(r.deliveries))
	for k := range r.deliveries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b deliveryKey) int {
		if a.id != b.id {
			return int(a.id - b.id)
		}
		if a.ch < b.ch {
			return -1
		}
		if a.ch > b.ch {
			return 1
		}
		return 0
	})
	return keys
}

func (r *memRepo) ClaimDeliveries(_ context.Context, now, leaseUntil time.Time, channels []entity.Channel, limit int) ([]entity.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Claim
	for _, k := range r.sortedDeliveryKeys() {
		if len(out) == limit {
			break
		}
		d := r.deliveries[k]
		if d.State != entity.StatePending || d.NextAttemptAt.After(now) || d.lockedUntil.After(now) || !slices.Contains(channels, k.ch) {
			continue
		}
		d.lockedUntil = leaseUntil
		n := r.notifs[k.id]
		out = append(out, entity.Claim{
			NotificationID: k.id, Channel: k.ch, Attempts: d.Attempts,
			RecipientID: n.RecipientID, Type: n.Type, Payload: n.Payload, CreatedAt: n.CreatedAt,
			LeaseUntil: leaseUntil,
		})
	}
	return out, nil
}

// owns reports whether d is still pending under the given lease.
func (d *memDelivery) owns(lease time.Time) bool {
	return d.State == entity.StatePending && d.lockedUntil.Equal(lease)
}

func (r *memRepo) PostponeDelivery(_ context.Context, c entity.Claim, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.deliveries[deliveryKey{c.NotificationID, c.Channel}]
	if !d.owns(c.LeaseUntil) {
		return entity.ErrLeaseLost
	}
	d.NextAttemptAt = until
	d.lockedUntil = time.Time{}
	r.postponed++
	return nil
}

func (r *memRepo) CompleteAttempt(_ context.Context, res entity.AttemptResult) (entity.State, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.deliveries[deliveryKey{res.NotificationID, res.Channel}]
	if !d.owns(res.LeaseUntil) {
		return "", false, entity.ErrLeaseLost
	}
	r.attempts = append(r.attempts, res.Attempt)

	d.State = res.State
	d.Attempts = res.AttemptNo
	d.NextAttemptAt = res.NextAttemptAt
	d.LastError = res.ErrorDetail
	d.lockedUntil = time.Time{}

	var states []entity.State
	for k, other := range r.deliveries {
		if k.id == res.NotificationID {
			states = append(states, other.State)
		}
	}
	n := r.notifs[res.NotificationID]
	next := entity.AggregateState(states)
	changed := next != n.State
	n.State = next
	return next, changed, nil
}

// inInbox reports whether id has an in-app delivery. Callers hold r.mu.
func (r *memRepo) inInbox(id int64) bool {
	_, ok := r.deliveries[deliveryKey{id, entity.ChannelInApp}]
	return ok
}

func (r *memRepo) ListInbox(_ context.Context, recipientID int64, status entity.InboxStatus, limit, offset int) ([]entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Notification
	for _, n := range r.notifs {
		if n.RecipientID != recipientID || !r.inInbox(n.ID) {
			continue
		}
		if status == entity.InboxStatusUnread && n.ReadAt != nil || status == entity.InboxStatusRead && n.ReadAt == nil {
			continue
		}
		out = append(out, *n)
	}
	slices.SortFunc(out, func(a, b entity.Notification) int { return int(b.ID - a.ID) })
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(len(out), offset+limit)], nil
}

func (r *memRepo) CountUnread(_ context.Context, recipientID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, x := range r.notifs {
		if x.RecipientID == recipientID && x.ReadAt == nil && r.inInbox(x.ID) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) MarkRead(_ context.Context, id, recipientID int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifs[id]
	if !ok || n.RecipientID != recipientID || !r.inInbox(id) {
		return false, nil
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	return true, nil
}

func (r *memRepo) MarkAllRead(_ context.Context, recipientID int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c int64
	for _, n := range r.notifs {
		if n.RecipientID == recipientID && n.ReadAt == nil && r.inInbox(n.ID) {
			n.ReadAt = &at
			c++
		}
	}
	return c, nil
}

func (r *memRepo) ListFailed(_ context.Context, limit, offset int) ([]entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Notification
	for _, n := range r.notifs {
		if n.State == entity.StateFailed {
			out = append(out, *n)
		}
	}
	slices.SortFunc(out, func(a, b entity.Notification) int { return int(a.ID - b.ID) })
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(len(out), offset+limit)], nil
}

func (r *memRepo) ListDeliveries(_ context.Context, id int64) ([]entity.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Delivery
	for _, k := range r.sortedDeliveryKeys() {
		if k.id == id {
			out = append(out, r.deliveries[k].Delivery)
		}
	}
	return out, nil
}

func (r *memRepo) ListAttempts(_ context.Context, id int64) ([]entity.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Attempt
	for _, a := range r.attempts {
		if a.NotificationID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) ChannelMetrics(_ context.Context, since time.Time) ([]entity.ChannelMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	by := map[entity.Channel]*entity.ChannelMetrics{}
	for _, a := range r.attempts {
		if a.AttemptedAt.Before(since) {
			continue
		}
		m := by[a.Channel]
		if m == nil {
			m = &entity.ChannelMetrics{Channel: a.Channel}
			by[a.Channel] = m
		}
		m.Attempts++
		if a.Outcome == entity.OutcomeSuccess {
			m.Successes++
		}
	}
	out := make([]entity.ChannelMetrics, 0, len(by))
	for _, m := range by {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b entity.ChannelMetrics) int {
		if a.Channel < b.Channel {
			return -1
		}
		return 1
	})
	return out, nil
}

func (r *memRepo) byType(t entity.Type) []entity.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Notification
	for _, n := range r.notifs {
		if n.Type == t {
			out = append(out, *n)
		}
	}
	slices.SortFunc(out, func(a, b entity.Notification) int { return int(a.RecipientID - b.RecipientID) })
	return out
}

func (r *memRepo) delivery(id int64, ch entity.Channel) entity.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deliveries[deliveryKey{id, ch}].Delivery
}

// fakeSender fails the first failures calls with err. onSend runs before
// every send, outside the sender lock.
type fakeSender struct {
	mu       sync.Mutex
	sent     []entity.Message
	failures int
	err      error
	block    bool
	onSend   func(entity.Message)
}

func (f *fakeSender) Send(ctx context.Context, msg entity.Message) error {
	if f.onSend != nil {
		f.onSend(msg)
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeStream struct{}

func (fakeStream) Subscribe(context.Context, int64) <-chan entity.Message { return nil }

type fakeAlert struct {
	calls atomic.Int32
}

func (f *fakeAlert) Alert(context.Context, error, map[string]any) { f.calls.Add(1) }

type fakeStorage struct {
	key  string
	data []byte
}

func (f *fakeStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	f.key, f.data = key, buf.Bytes()
	return nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.example.com/" + key + "?sig=x", nil
}

func (f *fakeStorage) Close() error { return nil }

type seqID struct{ n atomic.Int64 }

func (s *seqID) Generate() int64 { return s.n.Add(1) }

type fixedUUID string

func (f fixedUUID) Generate() string { return string(f) }

const testConfig = `
notification:
  channels:
    defaults: [in_app, email]
  retry:
    max_attempts: 3
    base_delay_ms: 1000
    max_delay_ms: 60000
    jitter_percent: 0
  worker:
    concurrency: 2
    batch_size: 10
    lease_seconds: 60
    attempt_timeout_seconds: 1
  breaker:
    failure_threshold: 3
    open_seconds: 30
`

type fixture struct {
	uc      *Usecase
	repo    *memRepo
	inApp   *fakeSender
	email   *fakeSender
	alert   *fakeAlert
	storage *fakeStorage
	clock   *clock.Fixed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, testConfig)
}

func newFixtureWithConfig(t *testing.T, yaml string) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := &fixture{
		repo:    newMemRepo(),
		inApp:   &fakeSender{},
		email:   &fakeSender{},
		alert:   &fakeAlert{},
		storage: &fakeStorage{},
		clock:   clock.NewFixed(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)),
	}
	f.repo.courses[10] = entity.Course{ID: 10, TeacherID: 99, Title: "Go 101"}
	f.repo.users[1] = entity.Recipient{ID: 1, Email: "ana@example.com", FullName: "Ana"}
	f.repo.users[2] = entity.Recipient{ID: 2, Email: "ben@example.com", FullName: "Ben"}
	f.repo.users[99] = entity.Recipient{ID: 99, Email: "teach@example.com", FullName: "Teach"}

	f.uc = NewNotification(Dependency{
		RepoDB:     f.repo,
		Senders:    Senders{entity.ChannelInApp: f.inApp, entity.ChannelEmail: f.email},
		Stream:     fakeStream{},
		Storage:    f.storage,
		Alert:      f.alert,
		UID:        &seqID{},
		UUID:       fixedUUID("0190-export"),
		Config:     cfg,
		Clock:      f.clock,
		Validator:  v,
		Instrument: instrument.NewNoop(),
	})
	return f
}

func authed(userID int64) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: userID})
}
