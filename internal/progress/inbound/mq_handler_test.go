package inbound

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/progress/usecase"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type fakeConsumerUC struct {
	got []usecase.ConsumeMaterialProgressInput
	cid string
	err error
}

func (f *fakeConsumerUC) ConsumeMaterialProgress(ctx context.Context, in usecase.ConsumeMaterialProgressInput) error {
	f.got = append(f.got, in)
	f.cid = instrument.GetCorrelationID(ctx)
	return f.err
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func TestMQHandler_MaterialProgressRecorded(t *testing.T) {
	t.Run("maps the payload and keeps the correlation id", func(t *testing.T) {
		// Arrange
		uc := &fakeConsumerUC{}
		h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}
		d := eventlog.Delivery{
			Headers: map[string]string{event.HeaderCorrelationID: "cid-7", event.HeaderEventID: "evt-header"},
			Body:    []byte(`{"student_id":7,"material_id":11,"course_id":100,"status":"completed","progress_pct":100,"time_spent_seconds":60,"timestamp":"2026-04-01T07:00:00Z"}`),
		}

		// Act
		err := h.MaterialProgressRecorded(context.Background(), d)

		// Assert
		require.NoError(t, err)
		require.Len(t, uc.got, 1)
		assert.Equal(t, "evt-header", uc.got[0].EventID)
		assert.Equal(t, int64(7), uc.got[0].StudentID)
		assert.Equal(t, "completed", uc.got[0].Status)
		assert.Equal(t, int64(60), uc.got[0].TimeSpent)
		assert.Equal(t, "cid-7", uc.cid)
	})

	t.Run("malformed body is acked", func(t *testing.T) {
		uc := &fakeConsumerUC{}
		h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}

		err := h.MaterialProgressRecorded(context.Background(), eventlog.Delivery{Body: []byte(`{`)})

		assert.NoError(t, err)
		assert.Empty(t, uc.got)
	})

	t.Run("usecase failure asks for redelivery", func(t *testing.T) {
		uc := &fakeConsumerUC{err: errors.New("db down")}
		h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}

		err := h.MaterialProgressRecorded(context.Background(), eventlog.Delivery{Body: []byte(`{"event_id":"e1"}`)})

		assert.Error(t, err)
		assert.Equal(t, "generated", uc.cid)
		assert.Equal(t, "e1", uc.got[0].EventID)
	})
}
