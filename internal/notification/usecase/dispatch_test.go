package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/idempotency"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type memGuard struct {
	mu   sync.Mutex
	done map[string]bool
}

func (g *memGuard) Run(ctx context.Context, key string, fn func(context.Context) error) error {
	g.mu.Lock()
	if g.done[key] {
		g.mu.Unlock()
		return idempotency.ErrDuplicate
	}
	g.mu.Unlock()

	if err := fn(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	g.done[key] = true
	g.mu.Unlock()
	return nil
}

func TestDispatchCourseCompleted(t *testing.T) {
	t.Parallel()

	t.Run("student and teacher are notified once", func(t *testing.T) {
		t.Parallel()

		// Arrange
		f := newFixture(t)
		e := event.CourseProgressChanged{StudentID: 1, CourseID: 10, Milestone: event.MilestoneCompleted, OverallPct: 100}

		// Act
		first, err := f.uc.Dispatch(context.Background(), e)
		require.NoError(t, err)
		second, err := f.uc.Dispatch(context.Background(), e)
		require.NoError(t, err)

		// Assert
		require.Len(t, first, 2)
		assert.Empty(t, second)

		student := f.repo.byType(entity.TypeCourseCompleted)
		require.Len(t, student, 1)
		assert.Equal(t, int64(1), student[0].RecipientID)
		assert.Equal(t, "Go 101", student[0].Payload["course_title"])
		assert.Equal(t, "Ana", student[0].Payload["student_name"])

		teacher := f.repo.byType(entity.TypeCourseStudentCompleted)
		require.Len(t, teacher, 1)
		assert.Equal(t, int64(99), teacher[0].RecipientID)

		assert.Equal(t, entity.StatePending, f.repo.delivery(student[0].ID, entity.ChannelInApp).State)
		assert.Equal(t, entity.StatePending, f.repo.delivery(student[0].ID, entity.ChannelEmail).State)
	})

	t.Run("missing course still notifies the student", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		e := event.CourseProgressChanged{StudentID: 1, CourseID: 404, Milestone: event.MilestoneCompleted, OverallPct: 100}

		created, err := f.uc.Dispatch(context.Background(), e)

		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, entity.TypeCourseCompleted, created[0].Type)
	})

	t.Run("started is silent", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		e := event.CourseProgressChanged{StudentID: 1, CourseID: 10, Milestone: event.MilestoneStarted, OverallPct: 5}

		created, err := f.uc.Dispatch(context.Background(), e)

		require.NoError(t, err)
		assert.Empty(t, created)
	})
}

func TestDispatchSubmissionGraded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	graded := event.SubmissionGraded{
		EventID: "e-1", SubmissionID: 500, StudentID: 1, AssignmentOrQuiz: 7, CourseID: 10,
		Score: 8, MaxScore: 10, GradedAt: f.clock.Now(),
	}

	created, err := f.uc.Dispatch(context.Background(), graded)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "submission_graded:1:500:500:graded", created[0].DedupKey)

	// Redelivery of the same grade.
	created, err = f.uc.Dispatch(context.Background(), graded)
	require.NoError(t, err)
	assert.Empty(t, created)

	regrade := graded
	regrade.EventID, regrade.Regrade, regrade.Revision, regrade.Score = "e-2", true, 2, 9
	created, err = f.uc.Dispatch(context.Background(), regrade)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "submission_graded:1:500:500:regraded-r2", created[0].DedupKey)

	assert.Len(t, f.repo.byType(entity.TypeSubmissionGraded), 2)
}

func TestDispatchDeadlineTiers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.pending[7] = []int64{1, 2}
	due := f.clock.Now().Add(30 * time.Hour)
	e := event.DeadlineWindowEntered{DeadlineID: 7, CourseID: 10, Kind: "assignment", Title: "Essay", DueAt: due}

	e.Tier = "normal"
	created, err := f.uc.Dispatch(context.Background(), e)
	require.NoError(t, err)
	assert.Empty(t, created)

	e.Tier = "high"
	created, err = f.uc.Dispatch(context.Background(), e)
	require.NoError(t, err)
	assert.Len(t, created, 2)

	e.Tier = "high"
	created, err = f.uc.Dispatch(context.Background(), e)
	require.NoError(t, err)
	assert.Empty(t, created)

	e.Tier = "urgent"
	created, err = f.uc.Dispatch(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "urgent", created[0].Payload["tier"])

	assert.Len(t, f.repo.byType(entity.TypeDeadlineDueSoon), 4)
}

func TestDispatchPreferences(t *testing.T) {
	t.Parallel()

	t.Run("all disabled suppresses the notification", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.repo.prefs = []entity.Preference{{UserID: 1, Type: entity.TypeEnrollmentWelcome, Channel: entity.ChannelAll, Enabled: false}}

		created, err := f.uc.Dispatch(context.Background(), event.EnrollmentCreated{EnrollmentID: 3, StudentID: 1, CourseID: 10})

		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, entity.TypeEnrollmentNewStudent, created[0].Type)
		assert.Empty(t, f.repo.byType(entity.TypeEnrollmentWelcome))
	})

	t.Run("email disabled keeps in-app only", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.repo.prefs = []entity.Preference{{UserID: 1, Type: entity.TypeEnrollmentWelcome, Channel: entity.ChannelEmail, Enabled: false}}

		_, err := f.uc.Dispatch(context.Background(), event.EnrollmentCreated{EnrollmentID: 3, StudentID: 1, CourseID: 10})
		require.NoError(t, err)

		welcome := f.repo.byType(entity.TypeEnrollmentWelcome)
		require.Len(t, welcome, 1)
		ds, err := f.repo.ListDeliveries(context.Background(), welcome[0].ID)
		require.NoError(t, err)
		require.Len(t, ds, 1)
		assert.Equal(t, entity.ChannelInApp, ds[0].Channel)
	})
}

func TestDispatchRepoFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.createErr = errors.New("db down")

	_, err := f.uc.Dispatch(context.Background(), event.EnrollmentCreated{EnrollmentID: 3, StudentID: 1, CourseID: 10})

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, goerror.TypeServer, gerr.Type())
}

func TestConsume(t *testing.T) {
	t.Parallel()

	t.Run("invalid event is dropped", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		err := f.uc.ConsumeDeadlineWindowEntered(context.Background(), ConsumeDeadlineWindowEnteredInput{
			EventID: "e-1", DeadlineID: 7, CourseID: 10, Kind: "exam", DueAt: f.clock.Now(), Tier: "urgent",
		})

		require.NoError(t, err)
		assert.Empty(t, f.repo.byType(entity.TypeDeadlineDueSoon))
	})

	t.Run("same event id is dispatched once", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		guard := &memGuard{done: map[string]bool{}}
		f.uc.guard = guard
		in := ConsumeEnrollmentCreatedInput{EventID: "e-9", EnrollmentID: 3, StudentID: 1, CourseID: 10}

		require.NoError(t, f.uc.ConsumeEnrollmentCreated(context.Background(), in))
		require.NoError(t, f.uc.ConsumeEnrollmentCreated(context.Background(), in))

		assert.True(t, guard.done["notification:e-9"])
		assert.Len(t, f.repo.byType(entity.TypeEnrollmentWelcome), 1)
	})

	t.Run("repository failure is returned for redelivery", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.repo.createErr = errors.New("db down")

		err := f.uc.ConsumeSubmissionGraded(context.Background(), ConsumeSubmissionGradedInput{
			EventID: "e-3", SubmissionID: 500, StudentID: 1, CourseID: 10, GradedAt: f.clock.Now(),
		})

		require.Error(t, err)
	})
}
