package urgency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		dueAt time.Time
		want  Tier
	}{
		{name: "exactly one day is urgent", dueAt: now.Add(day), want: Urgent},
		{name: "one day and a second is high", dueAt: now.Add(day + time.Second), want: High},
		{name: "exactly three days is high", dueAt: now.Add(3 * day), want: High},
		{name: "beyond three days is normal", dueAt: now.Add(3*day + time.Second), want: Normal},
		{name: "overdue is urgent", dueAt: now.Add(-time.Hour), want: Urgent},
		{name: "due now is urgent", dueAt: now, want: Urgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.dueAt, now))
		})
	}
}

func TestClassify_MonotonicAsNowAdvances(t *testing.T) {
	// Arrange
	dueAt := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	now := dueAt.Add(-10 * day)
	prev := Classify(dueAt, now)

	// Act & Assert
	for now.Before(dueAt) {
		now = now.Add(37 * time.Minute)
		got := Classify(dueAt, now)
		assert.GreaterOrEqual(t, got.Rank(), prev.Rank(), "tier went backwards at %s", now)
		prev = got
	}
	assert.Equal(t, Urgent, prev)
}

func TestThresholdsFromDays(t *testing.T) {
	t.Run("custom", func(t *testing.T) {
		th := ThresholdsFromDays(2, 5)
		now := time.Now()
		assert.Equal(t, Urgent, th.Classify(now.Add(2*day), now))
		assert.Equal(t, High, th.Classify(now.Add(4*day), now))
		assert.Equal(t, Normal, th.Classify(now.Add(6*day), now))
	})

	t.Run("invalid falls back to defaults", func(t *testing.T) {
		assert.Equal(t, DefaultThresholds(), ThresholdsFromDays(0, -1))
	})

	t.Run("high never below urgent", func(t *testing.T) {
		th := ThresholdsFromDays(4, 2)
		assert.Equal(t, th.Urgent, th.High)
	})
}

func TestTier(t *testing.T) {
	assert.True(t, Urgent.Notifiable())
	assert.True(t, High.Notifiable())
	assert.False(t, Normal.Notifiable())
	assert.False(t, Tier("soon").IsValid())
	assert.True(t, Normal.IsValid())
}
