package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	t.Run("CollectsErrors", func(t *testing.T) {
		m := NewManager(2)
		m.Go(context.Background(), func(context.Context) error { return errors.New("a") })
		m.Go(context.Background(), func(context.Context) error { return nil })

		err := m.Wait()

		assert.ErrorContains(t, err, "a")
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		m := NewManager(1)
		m.Go(context.Background(), func(context.Context) error { panic("oops") })

		assert.NoError(t, m.Wait())
	})

	t.Run("SubmitBlocksUntilSlotFree", func(t *testing.T) {
		m := NewManager(1)
		release := make(chan struct{})
		var ran atomic.Int32

		require.NoError(t, m.Submit(context.Background(), func(context.Context) error {
			<-release
			ran.Add(1)
			return nil
		}))

		done := make(chan error, 1)
		go func() {
			done <- m.Submit(context.Background(), func(context.Context) error {
				ran.Add(1)
				return nil
			})
		}()

		select {
		case <-done:
			t.Fatal("second submit should block while the pool is full")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		require.NoError(t, <-done)
		require.NoError(t, m.Wait())
		assert.Equal(t, int32(2), ran.Load())
	})

	t.Run("SubmitHonorsContext", func(t *testing.T) {
		m := NewManager(1)
		block := make(chan struct{})
		require.NoError(t, m.Submit(context.Background(), func(context.Context) error { <-block; return nil }))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := m.Submit(ctx, func(context.Context) error { return nil })

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		close(block)
		_ = m.Wait()
	})

	t.Run("SubmitAfterWait", func(t *testing.T) {
		m := NewManager(1)
		require.NoError(t, m.Wait())
		assert.ErrorIs(t, m.Submit(context.Background(), func(context.Context) error { return nil }), ErrClosed)
	})
}
