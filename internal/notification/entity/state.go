package entity

import (
	"errors"
	"slices"
)

// ErrPermanent marks adapter errors that no retry can fix.
var ErrPermanent = errors.New("permanent delivery error")

// ErrLeaseLost is returned when a delivery was reclaimed by another worker
// after the caller's lease ran out.
var ErrLeaseLost = errors.New("delivery lease lost")

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }

func (e permanentError) Unwrap() []error { return []error{e.err, ErrPermanent} }

// Permanent wraps err so that errors.Is(err, ErrPermanent) holds.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// AggregateState folds per-channel delivery states into the notification
// state: delivered when every channel delivered, failed once all channels are
// terminal and one of them failed, pending otherwise.
func AggregateState(channels []State) State {
	if len(channels) == 0 {
		return StatePending
	}
	if !slices.ContainsFunc(channels, func(s State) bool { return !s.Terminal() }) {
		if slices.Contains(channels, StateFailed) {
			return StateFailed
		}
		return StateDelivered
	}
	return StatePending
}

// NextState decides the delivery state after attemptNo attempts ended with
// outcome.
func NextState(outcome Outcome, attemptNo, maxAttempts int) State {
	switch outcome {
	case OutcomeSuccess:
		return StateDelivered
	case OutcomePermanentError:
		return StateFailed
	}
	if attemptNo >= maxAttempts {
		return StateFailed
	}
	return StatePending
}

// ResolveChannels intersects the configured default channels with the
// recipient's preferences for one type. A channel-specific row wins over an
// "all" row; no row means enabled.
func ResolveChannels(defaults []Channel, prefs []Preference) []Channel {
	all := true
	byChannel := make(map[Channel]bool, len(prefs))
	for _, p := range prefs {
		if p.Channel == ChannelAll {
			all = p.Enabled
			continue
		}
		byChannel[p.Channel] = p.Enabled
	}

	out := make([]Channel, 0, len(defaults))
	for _, ch := range defaults {
		enabled, ok := byChannel[ch]
		if !ok {
			enabled = all
		}
		if enabled {
			out = append(out, ch)
		}
	}
	return out
}
