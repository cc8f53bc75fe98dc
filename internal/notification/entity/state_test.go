package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateState(t *testing.T) {
	tests := []struct {
		name string
		in   []State
		want State
	}{
		{name: "no channels", in: nil, want: StatePending},
		{name: "all delivered", in: []State{StateDelivered, StateDelivered}, want: StateDelivered},
		{name: "one still pending", in: []State{StateFailed, StatePending}, want: StatePending},
		{name: "terminal with a failure", in: []State{StateDelivered, StateFailed}, want: StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateState(tt.in))
		})
	}
}

func TestNextState(t *testing.T) {
	assert.Equal(t, StateDelivered, NextState(OutcomeSuccess, 5, 5))
	assert.Equal(t, StateFailed, NextState(OutcomePermanentError, 1, 5))
	assert.Equal(t, StatePending, NextState(OutcomeTimeout, 4, 5))
	assert.Equal(t, StateFailed, NextState(OutcomeError, 5, 5))
}

func TestPermanent(t *testing.T) {
	base := errors.New("mailbox does not exist")
	err := fmt.Errorf("send: %w", Permanent(base))

	assert.ErrorIs(t, err, ErrPermanent)
	assert.ErrorIs(t, err, base)
	assert.NoError(t, Permanent(nil))
}

func TestResolveChannels(t *testing.T) {
	defaults := []Channel{ChannelInApp, ChannelEmail}

	t.Run("no preferences keeps defaults", func(t *testing.T) {
		assert.Equal(t, defaults, ResolveChannels(defaults, nil))
	})

	t.Run("all disabled suppresses everything", func(t *testing.T) {
		got := ResolveChannels(defaults, []Preference{{Channel: ChannelAll, Enabled: false}})
		assert.Empty(t, got)
	})

	t.Run("specific row overrides all", func(t *testing.T) {
		got := ResolveChannels(defaults, []Preference{
			{Channel: ChannelAll, Enabled: false},
			{Channel: ChannelInApp, Enabled: true},
		})
		assert.Equal(t, []Channel{ChannelInApp}, got)
	})

	t.Run("preference cannot add a channel outside defaults", func(t *testing.T) {
		got := ResolveChannels([]Channel{ChannelInApp}, []Preference{{Channel: ChannelEmail, Enabled: true}})
		assert.Equal(t, []Channel{ChannelInApp}, got)
	})
}
