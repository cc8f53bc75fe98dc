package idempotency

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestTrackerFallsBackWhenRedisIsDown(t *testing.T) {
	// Arrange: nothing listens on this port.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	tracker := New(client)
	ran := false

	// Act
	err := tracker.Run(context.Background(), "evt", func(context.Context) error {
		ran = true
		return nil
	})

	// Assert
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestNoop(t *testing.T) {
	calls := 0
	for range 2 {
		_ = Noop{}.Run(context.Background(), "k", func(context.Context) error { calls++; return nil })
	}
	assert.Equal(t, 2, calls)
}
