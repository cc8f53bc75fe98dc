package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
	"github.com/shandysiswandi/coursepulse/internal/progress/entity"
)

const milestonesYAML = `
progress:
  milestones: [50, 100]
  emit_started: false
`

func completeInput(student, material int64, at time.Time) RecordMaterialProgressInput {
	return RecordMaterialProgressInput{
		StudentID:   student,
		MaterialID:  material,
		Status:      "completed",
		ProgressPct: 100,
		Timestamp:   at,
	}
}

func TestRecordMaterialProgress(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)

	t.Run("half the course emits the 50 milestone once", func(t *testing.T) {
		// Arrange
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1, 2, 3, 4)
		f.repo.enrolled[pairKeyT{7, 100}] = true

		// Act
		_, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 1, at))
		require.NoError(t, err)
		sum, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 2, at))
		require.NoError(t, err)
		replay, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 1, at))
		require.NoError(t, err)

		// Assert
		assert.Equal(t, 50, sum.OverallPct)
		assert.Equal(t, 2, sum.CompletedCount)
		assert.Equal(t, 4, sum.TotalCount)
		assert.Equal(t, sum.OverallPct, replay.OverallPct)
		assert.Equal(t, sum.CompletedCount, replay.CompletedCount)
		assert.Equal(t, []string{"50"}, f.bus.milestones())
		assert.Len(t, f.mq.events, 1)
	})

	t.Run("completing every material emits completed once", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1, 2, 3, 4)
		f.repo.enrolled[pairKeyT{7, 100}] = true

		var sum *entity.Summary
		for _, m := range []int64{1, 2, 3, 4, 4, 2} {
			var err error
			sum, err = f.uc.RecordMaterialProgress(ctx, completeInput(7, m, at))
			require.NoError(t, err)
		}

		assert.Equal(t, 100, sum.OverallPct)
		assert.True(t, sum.IsCompleted)
		require.NotNil(t, sum.CompletedAt)
		assert.Equal(t, []string{"50", "completed"}, f.bus.milestones())
	})

	t.Run("replaying an event yields the same summary", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1, 2, 3)
		f.repo.enrolled[pairKeyT{7, 100}] = true
		in := RecordMaterialProgressInput{StudentID: 7, MaterialID: 2, Status: "in_progress", ProgressPct: 30, TimeSpent: 90, Timestamp: at}

		first, err := f.uc.RecordMaterialProgress(ctx, in)
		require.NoError(t, err)
		for range 5 {
			again, err := f.uc.RecordMaterialProgress(ctx, in)
			require.NoError(t, err)
			assert.Equal(t, *first, *again)
		}
	})

	t.Run("late in_progress does not undo a completion", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1, 2)
		f.repo.enrolled[pairKeyT{7, 100}] = true

		_, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 1, at))
		require.NoError(t, err)
		sum, err := f.uc.RecordMaterialProgress(ctx, RecordMaterialProgressInput{
			StudentID: 7, MaterialID: 1, Status: "in_progress", ProgressPct: 20, Timestamp: at.Add(-time.Hour),
		})
		require.NoError(t, err)

		assert.Equal(t, 1, sum.CompletedCount)
		assert.Equal(t, entity.StatusCompleted, f.repo.records[recKey{7, 1}].Status)
	})

	t.Run("reset lowers progress", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1, 2)
		f.repo.enrolled[pairKeyT{7, 100}] = true

		_, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 1, at))
		require.NoError(t, err)
		sum, err := f.uc.RecordMaterialProgress(ctx, RecordMaterialProgressInput{
			StudentID: 7, MaterialID: 1, Status: "not_started", Timestamp: at.Add(time.Hour), Reset: true,
		})
		require.NoError(t, err)

		assert.Equal(t, 0, sum.CompletedCount)
		assert.Equal(t, 0, sum.OverallPct)
	})

	t.Run("inactive materials are excluded from the total", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1, 2)
		f.repo.materials[3] = entity.Material{ID: 3, CourseID: 100, Active: false}
		f.repo.enrolled[pairKeyT{7, 100}] = true

		sum, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 1, at))
		require.NoError(t, err)

		assert.Equal(t, 2, sum.TotalCount)
		assert.Equal(t, 50, sum.OverallPct)
	})

	t.Run("concurrent events for different materials are all kept", func(t *testing.T) {
		// Arrange
		f := newFixture(t, milestonesYAML)
		ids := []int64{1, 2, 3, 4, 5, 6, 7, 8}
		f.repo.addCourse(100, ids...)
		f.repo.enrolled[pairKeyT{7, 100}] = true

		// Act
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, id, at))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// Assert
		sum, err := f.uc.GetSummary(ctx, GetSummaryInput{StudentID: 7, CourseID: 100})
		require.NoError(t, err)
		assert.Equal(t, 8, sum.CompletedCount)
		assert.True(t, sum.IsCompleted)
		assert.Equal(t, []string{"50", "completed"}, f.bus.milestones())
	})

	t.Run("serialization failures are retried", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1, 2)
		f.repo.enrolled[pairKeyT{7, 100}] = true
		f.repo.conflicts = 2

		sum, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 1, at))

		require.NoError(t, err)
		assert.Equal(t, 50, sum.OverallPct)
		assert.Equal(t, 3, f.repo.txAttempts)
	})

	t.Run("unknown material", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)

		_, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 99, at))

		assert.Equal(t, goerror.CodeNotFound, goerror.CodeOf(err))
	})

	t.Run("course mismatch", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1)
		f.repo.enrolled[pairKeyT{7, 100}] = true
		in := completeInput(7, 1, at)
		in.CourseID = 200

		_, err := f.uc.RecordMaterialProgress(ctx, in)

		assert.Equal(t, goerror.CodeNotFound, goerror.CodeOf(err))
	})

	t.Run("student not enrolled", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1)

		_, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 1, at))

		assert.Equal(t, goerror.CodeNotFound, goerror.CodeOf(err))
		assert.Zero(t, f.repo.txAttempts)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		in := completeInput(7, 1, at)
		in.ProgressPct = 140
		in.Status = "finished"

		_, err := f.uc.RecordMaterialProgress(ctx, in)

		assert.Equal(t, goerror.CodeInvalidInput, goerror.CodeOf(err))
	})

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.repo.addCourse(100, 1)
		f.repo.enrolled[pairKeyT{7, 100}] = true
		f.mq.err = errors.New("broker down")

		sum, err := f.uc.RecordMaterialProgress(ctx, completeInput(7, 1, at))

		require.NoError(t, err)
		assert.True(t, sum.IsCompleted)
	})

	t.Run("started milestone when enabled", func(t *testing.T) {
		f := newFixture(t, "progress:\n  milestones: \"50,100\"\n  emit_started: true\n")
		f.repo.addCourse(100, 1, 2, 3, 4)
		f.repo.enrolled[pairKeyT{7, 100}] = true

		_, err := f.uc.RecordMaterialProgress(ctx, RecordMaterialProgressInput{
			StudentID: 7, MaterialID: 1, Status: "in_progress", ProgressPct: 5, Timestamp: at,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"started"}, f.bus.milestones())
	})
}

type onceGuard struct {
	seen map[string]bool
}

func (g *onceGuard) Run(ctx context.Context, key string, fn func(context.Context) error) error {
	if g.seen[key] {
		return idempotency.ErrDuplicate
	}
	if err := fn(ctx); err != nil {
		return err
	}
	g.seen[key] = true
	return nil
}

func TestConsumeMaterialProgress(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)

	t.Run("duplicate event id is skipped", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)
		f.uc.guard = &onceGuard{seen: map[string]bool{}}
		f.repo.addCourse(100, 1, 2)
		f.repo.enrolled[pairKeyT{7, 100}] = true
		in := ConsumeMaterialProgressInput{EventID: "evt-1", RecordMaterialProgressInput: completeInput(7, 1, at)}

		require.NoError(t, f.uc.ConsumeMaterialProgress(ctx, in))
		require.NoError(t, f.uc.ConsumeMaterialProgress(ctx, in))

		assert.Equal(t, 1, f.repo.txAttempts)
	})

	t.Run("client errors are acknowledged", func(t *testing.T) {
		f := newFixture(t, milestonesYAML)

		err := f.uc.ConsumeMaterialProgress(ctx, ConsumeMaterialProgressInput{
			EventID:                     "evt-2",
			RecordMaterialProgressInput: completeInput(7, 404, at),
		})

		assert.NoError(t, err)
	})
}
