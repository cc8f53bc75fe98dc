package inapp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
)

func TestHub(t *testing.T) {
	t.Run("delivers to the recipient only", func(t *testing.T) {
		// Arrange
		hub := New(instrument.NewNoop())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		mine := hub.Subscribe(ctx, 1)
		other := hub.Subscribe(ctx, 2)

		// Act
		err := hub.Send(context.Background(), entity.Message{NotificationID: 7, Recipient: entity.Recipient{ID: 1}})

		// Assert
		require.NoError(t, err)
		select {
		case msg := <-mine:
			assert.Equal(t, int64(7), msg.NotificationID)
		case <-time.After(time.Second):
			t.Fatal("message not received")
		}
		assert.Empty(t, other)
	})

	t.Run("closes the stream when the context ends", func(t *testing.T) {
		hub := New(instrument.NewNoop())
		ctx, cancel := context.WithCancel(context.Background())

		stream := hub.Subscribe(ctx, 1)
		require.Equal(t, 1, hub.Subscribers(1))

		cancel()

		select {
		case _, ok := <-stream:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("stream not closed")
		}
		assert.Eventually(t, func() bool { return hub.Subscribers(1) == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("full buffer drops instead of blocking", func(t *testing.T) {
		hub := New(instrument.NewNoop())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_ = hub.Subscribe(ctx, 1)

		for i := range bufferSize + 5 {
			require.NoError(t, hub.Send(context.Background(), entity.Message{NotificationID: int64(i), Recipient: entity.Recipient{ID: 1}}))
		}
	})
}
