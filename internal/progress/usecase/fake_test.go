package usecase

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
	"github.com/shandysiswandi/coursepulse/internal/progress/entity"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type recKey struct{ student, material int64 }
type pairKeyT struct{ student, course int64 }

// memRepo keeps everything in maps; InPairTx works on a copy and commits it
// when fn succeeds.
type memRepo struct {
	mu         sync.Mutex
	materials  map[int64]entity.Material
	enrolled   map[pairKeyT]bool
	records    map[recKey]entity.MaterialRecord
	summaries  map[pairKeyT]entity.Summary
	conflicts  int
	txAttempts int
}

func newMemRepo() *memRepo {
	return &memRepo{
		materials: map[int64]entity.Material{},
		enrolled:  map[pairKeyT]bool{},
		records:   map[recKey]entity.MaterialRecord{},
		summaries: map[pairKeyT]entity.Summary{},
	}
}

func (r *memRepo) addCourse(courseID int64, materialIDs ...int64) {
	for _, id := range materialIDs {
		r.materials[id] = entity.Material{ID: id, CourseID: courseID, Active: true}
	}
}

func (r *memRepo) GetMaterial(_ context.Context, id int64) (*entity.Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.materials[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &m, nil
}

func (r *memRepo) IsEnrolled(_ context.Context, s, c int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enrolled[pairKeyT{s, c}], nil
}

func (r *memRepo) GetSummary(_ context.Context, s, c int64) (*entity.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum, ok := r.summaries[pairKeyT{s, c}]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &sum, nil
}

func (r *memRepo) ListSummaries(_ context.Context, s int64) ([]entity.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Summary
	for k, v := range r.summaries {
		if k.student == s {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memRepo) ListMaterialRecords(_ context.Context, s, c int64) ([]entity.MaterialRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.MaterialRecord
	for k, v := range r.records {
		if k.student == s && v.CourseID == c {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memRepo) InPairTx(ctx context.Context, _, _ int64, fn func(context.Context, entity.PairTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.txAttempts++
	if r.conflicts > 0 {
		r.conflicts--
		return goerror.ErrSerialization
	}

	tx := &memTx{repo: r, records: map[recKey]entity.MaterialRecord{}, summaries: map[pairKeyT]entity.Summary{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for k, v := range tx.records {
		r.records[k] = v
	}
	for k, v := range tx.summaries {
		r.summaries[k] = v
	}
	return nil
}

type memTx struct {
	repo      *memRepo
	records   map[recKey]entity.MaterialRecord
	summaries map[pairKeyT]entity.Summary
}

func (t *memTx) GetRecord(_ context.Context, s, m int64) (*entity.MaterialRecord, error) {
	if v, ok := t.records[recKey{s, m}]; ok {
		return &v, nil
	}
	if v, ok := t.repo.records[recKey{s, m}]; ok {
		return &v, nil
	}
	return nil, goerror.ErrNotFound
}

func (t *memTx) UpsertRecord(_ context.Context, rec entity.MaterialRecord) error {
	t.records[recKey{rec.StudentID, rec.MaterialID}] = rec
	return nil
}

func (t *memTx) ListActiveRecords(_ context.Context, s, c int64) ([]entity.MaterialRecord, error) {
	merged := map[recKey]entity.MaterialRecord{}
	for k, v := range t.repo.records {
		merged[k] = v
	}
	for k, v := range t.records {
		merged[k] = v
	}
	var out []entity.MaterialRecord
	for k, v := range merged {
		m, ok := t.repo.materials[k.material]
		if k.student == s && v.CourseID == c && ok && m.Active {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *memTx) CountActiveMaterials(_ context.Context, c int64) (int, error) {
	n := 0
	for _, m := range t.repo.materials {
		if m.CourseID == c && m.Active {
			n++
		}
	}
	return n, nil
}

func (t *memTx) GetSummary(_ context.Context, s, c int64) (*entity.Summary, error) {
	if v, ok := t.summaries[pairKeyT{s, c}]; ok {
		return &v, nil
	}
	if v, ok := t.repo.summaries[pairKeyT{s, c}]; ok {
		return &v, nil
	}
	return nil, goerror.ErrNotFound
}

func (t *memTx) SaveSummary(_ context.Context, s entity.Summary) error {
	s.ReachedMilestones = slices.Clone(s.ReachedMilestones)
	t.summaries[pairKeyT{s.StudentID, s.CourseID}] = s
	return nil
}

type fakeMQ struct {
	mu     sync.Mutex
	events []event.CourseProgressChanged
	err    error
}

func (f *fakeMQ) PublishProgressChanged(_ context.Context, ev event.CourseProgressChanged) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

type fakeBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (f *fakeBus) Publish(_ context.Context, e event.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeBus) milestones() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.(event.CourseProgressChanged).Milestone)
	}
	return out
}

type fixture struct {
	uc    *Usecase
	repo  *memRepo
	mq    *fakeMQ
	bus   *fakeBus
	clock *clock.Fixed
}

func newFixture(t *testing.T, yaml string) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := &fixture{
		repo:  newMemRepo(),
		mq:    &fakeMQ{},
		bus:   &fakeBus{},
		clock: clock.NewFixed(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)),
	}
	f.uc = NewProgress(Dependency{
		RepoDB:     f.repo,
		RepoMQ:     f.mq,
		Bus:        f.bus,
		Config:     cfg,
		Clock:      f.clock,
		Validator:  v,
		Instrument: instrument.NewNoop(),
	})
	f.uc.backoff = func() retry.Backoff {
		return retry.WithMaxRetries(3, retry.NewConstant(time.Millisecond))
	}
	return f
}
