package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/coursepulse/internal/notification/usecase"
	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type fakeConsumerUC struct {
	graded    []usecase.ConsumeSubmissionGradedInput
	enrolled  []usecase.ConsumeEnrollmentCreatedInput
	deadlines []usecase.ConsumeDeadlineWindowEnteredInput
	cid       string
	err       error
}

func (f *fakeConsumerUC) ConsumeSubmissionGraded(ctx context.Context, in usecase.ConsumeSubmissionGradedInput) error {
	f.graded = append(f.graded, in)
	f.cid = instrument.GetCorrelationID(ctx)
	return f.err
}

func (f *fakeConsumerUC) ConsumeEnrollmentCreated(ctx context.Context, in usecase.ConsumeEnrollmentCreatedInput) error {
	f.enrolled = append(f.enrolled, in)
	f.cid = instrument.GetCorrelationID(ctx)
	return f.err
}

func (f *fakeConsumerUC) ConsumeDeadlineWindowEntered(ctx context.Context, in usecase.ConsumeDeadlineWindowEnteredInput) error {
	f.deadlines = append(f.deadlines, in)
	f.cid = instrument.GetCorrelationID(ctx)
	return f.err
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func newHandler(uc ucConsumer) *MQHandler {
	return &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}
}

func TestMQHandler_SubmissionGraded(t *testing.T) {
	t.Run("maps the payload", func(t *testing.T) {
		// Arrange
		uc := &fakeConsumerUC{}
		d := eventlog.Delivery{
			Headers: map[string]string{event.HeaderCorrelationID: "cid-1"},
			Body: []byte(`{"event_id":"e-1","submission_id":500,"student_id":7,"assignment_or_quiz_id":3,` +
				`"course_id":100,"score":8.5,"max_score":10,"graded_at":"2026-04-01T07:00:00Z","regrade":true,"revision":2}`),
		}

		// Act
		err := newHandler(uc).SubmissionGraded(context.Background(), d)

		// Assert
		require.NoError(t, err)
		require.Len(t, uc.graded, 1)
		got := uc.graded[0]
		assert.Equal(t, "e-1", got.EventID)
		assert.Equal(t, int64(500), got.SubmissionID)
		assert.Equal(t, int64(3), got.DeadlineID)
		assert.InDelta(t, 8.5, got.Score, 0.001)
		assert.True(t, got.Regrade)
		assert.Equal(t, 2, got.Revision)
		assert.Equal(t, time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC), got.GradedAt.UTC())
		assert.Equal(t, "cid-1", uc.cid)
	})

	t.Run("malformed body is acked", func(t *testing.T) {
		uc := &fakeConsumerUC{}

		err := newHandler(uc).SubmissionGraded(context.Background(), eventlog.Delivery{Body: []byte(`[`)})

		assert.NoError(t, err)
		assert.Empty(t, uc.graded)
	})
}

func TestMQHandler_EnrollmentCreated(t *testing.T) {
	t.Run("event id falls back to the header", func(t *testing.T) {
		uc := &fakeConsumerUC{}
		d := eventlog.Delivery{
			Headers: map[string]string{event.HeaderEventID: "evt-header"},
			Body:    []byte(`{"enrollment_id":9,"student_id":7,"course_id":100}`),
		}

		err := newHandler(uc).EnrollmentCreated(context.Background(), d)

		require.NoError(t, err)
		require.Len(t, uc.enrolled, 1)
		assert.Equal(t, "evt-header", uc.enrolled[0].EventID)
		assert.Equal(t, int64(9), uc.enrolled[0].EnrollmentID)
		assert.Equal(t, "generated", uc.cid)
	})

	t.Run("usecase failure asks for redelivery", func(t *testing.T) {
		uc := &fakeConsumerUC{err: errors.New("db down")}

		err := newHandler(uc).EnrollmentCreated(context.Background(), eventlog.Delivery{Body: []byte(`{"event_id":"e2"}`)})

		assert.Error(t, err)
	})
}

func TestMQHandler_DeadlineWindowEntered(t *testing.T) {
	uc := &fakeConsumerUC{}
	d := eventlog.Delivery{
		Body: []byte(`{"event_id":"e-3","deadline_id":4,"course_id":100,"kind":"quiz","title":"Quiz 1",` +
			`"due_at":"2026-04-02T08:00:00Z","tier":"urgent"}`),
	}

	err := newHandler(uc).DeadlineWindowEntered(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, uc.deadlines, 1)
	assert.Equal(t, "quiz", uc.deadlines[0].Kind)
	assert.Equal(t, "urgent", uc.deadlines[0].Tier)
	assert.Equal(t, int64(4), uc.deadlines[0].DeadlineID)
}
