package usecase

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/coursepulse/internal/deadline/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/clock"
	"github.com/shandysiswandi/coursepulse/internal/pkg/config"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/validator"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
	"github.com/shandysiswandi/coursepulse/internal/shared/urgency"
)

type markKey struct {
	id   int64
	tier urgency.Tier
}

type memRepo struct {
	items   []entity.Item
	marks   map[markKey]bool
	listErr error
}

func (r *memRepo) ListUpcoming(_ context.Context, courseID int64, from, until time.Time, limit int) ([]entity.Item, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []entity.Item
	for _, it := range r.items {
		if !it.Visible || !it.DueAt.After(from) || it.DueAt.After(until) {
			continue
		}
		if courseID != 0 && it.CourseID != courseID {
			continue
		}
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b entity.Item) int { return a.DueAt.Compare(b.DueAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) MarkWindow(_ context.Context, id int64, tier urgency.Tier) (bool, error) {
	k := markKey{id, tier}
	if r.marks[k] {
		return false, nil
	}
	r.marks[k] = true
	return true, nil
}

func (r *memRepo) UnmarkWindow(_ context.Context, id int64, tier urgency.Tier) error {
	delete(r.marks, markKey{id, tier})
	return nil
}

type fakeBus struct {
	events []event.DeadlineWindowEntered
	err    error
}

func (b *fakeBus) Deliver(_ context.Context, e event.Event) error {
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, e.(event.DeadlineWindowEntered))
	return nil
}

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newUsecase(t *testing.T, repo *memRepo, bus *fakeBus) (*Usecase, *clock.Fixed) {
	t.Helper()
	cfg, err := config.NewViperFromBytes("yaml", []byte("urgency:\n  urgent_within_days: 1\n  high_within_days: 3\n"))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)
	clk := clock.NewFixed(now)

	return NewDeadline(Dependency{
		RepoDB:     repo,
		Bus:        bus,
		Config:     cfg,
		Clock:      clk,
		Validator:  v,
		Instrument: instrument.NewNoop(),
	}), clk
}

func TestListUpcoming(t *testing.T) {
	repo := &memRepo{marks: map[markKey]bool{}, items: []entity.Item{
		{ID: 1, Kind: entity.KindAssignment, CourseID: 10, Title: "essay", DueAt: now.Add(20 * time.Hour), Visible: true},
		{ID: 2, Kind: entity.KindQuiz, CourseID: 10, Title: "quiz", DueAt: now.Add(50 * time.Hour), Visible: true},
		{ID: 3, Kind: entity.KindAssignment, CourseID: 20, Title: "lab", DueAt: now.Add(5 * 24 * time.Hour), Visible: true},
		{ID: 4, Kind: entity.KindAssignment, CourseID: 10, Title: "overdue", DueAt: now.Add(-time.Hour), Visible: true},
		{ID: 5, Kind: entity.KindQuiz, CourseID: 10, Title: "hidden", DueAt: now.Add(time.Hour), Visible: false},
	}}
	uc, _ := newUsecase(t, repo, &fakeBus{})

	t.Run("classifies and orders by due date", func(t *testing.T) {
		got, err := uc.ListUpcoming(context.Background(), ListUpcomingInput{})

		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})
		assert.Equal(t, urgency.Urgent, got[0].Tier)
		assert.Equal(t, urgency.High, got[1].Tier)
		assert.Equal(t, urgency.Normal, got[2].Tier)
	})

	t.Run("filters by course", func(t *testing.T) {
		got, err := uc.ListUpcoming(context.Background(), ListUpcomingInput{CourseID: 20})

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(3), got[0].ID)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := uc.ListUpcoming(context.Background(), ListUpcomingInput{Limit: 1000})
		assert.Equal(t, goerror.CodeInvalidInput, goerror.CodeOf(err))
	})

	t.Run("repository failure", func(t *testing.T) {
		failing, _ := newUsecase(t, &memRepo{listErr: errors.New("down")}, &fakeBus{})
		_, err := failing.ListUpcoming(context.Background(), ListUpcomingInput{})
		assert.Equal(t, goerror.CodeInternal, goerror.CodeOf(err))
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("high then urgent yields exactly one extra event", func(t *testing.T) {
		// Arrange
		repo := &memRepo{marks: map[markKey]bool{}, items: []entity.Item{
			{ID: 1, Kind: entity.KindAssignment, CourseID: 10, Title: "essay", DueAt: now.Add(60 * time.Hour), Visible: true},
		}}
		bus := &fakeBus{}
		uc, clk := newUsecase(t, repo, bus)

		// Act
		res1, err := uc.Sweep(ctx)
		require.NoError(t, err)
		_, err = uc.Sweep(ctx)
		require.NoError(t, err)
		clk.Advance(40 * time.Hour)
		res3, err := uc.Sweep(ctx)
		require.NoError(t, err)
		_, err = uc.Sweep(ctx)
		require.NoError(t, err)

		// Assert
		assert.Equal(t, 1, res1.Entered)
		assert.Equal(t, 1, res3.Entered)
		require.Len(t, bus.events, 2)
		assert.Equal(t, "high", bus.events[0].Tier)
		assert.Equal(t, "urgent", bus.events[1].Tier)
		assert.Equal(t, "deadline:1:urgent", bus.events[1].EventID)
	})

	t.Run("normal items are skipped", func(t *testing.T) {
		repo := &memRepo{marks: map[markKey]bool{}, items: []entity.Item{
			{ID: 2, CourseID: 10, DueAt: now.Add(71 * time.Hour), Visible: true},
			{ID: 3, CourseID: 10, DueAt: now.Add(80 * time.Hour), Visible: true},
		}}
		bus := &fakeBus{}
		uc, _ := newUsecase(t, repo, bus)

		res, err := uc.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Len(t, bus.events, 1)
	})

	t.Run("failed dispatch is retried next sweep", func(t *testing.T) {
		repo := &memRepo{marks: map[markKey]bool{}, items: []entity.Item{
			{ID: 4, CourseID: 10, DueAt: now.Add(2 * time.Hour), Visible: true},
		}}
		bus := &fakeBus{err: errors.New("db down")}
		uc, _ := newUsecase(t, repo, bus)

		res, err := uc.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
		assert.Empty(t, repo.marks)

		bus.err = nil
		res, err = uc.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Entered)
		assert.Len(t, bus.events, 1)
	})
}
