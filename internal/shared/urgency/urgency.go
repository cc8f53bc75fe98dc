// Package urgency classifies a due date against "now" into a tier.
package urgency

import "time"

type Tier string

const (
	Normal Tier = "normal"
	High   Tier = "high"
	Urgent Tier = "urgent"
)

const day = 24 * time.Hour

// Thresholds are inclusive upper bounds on the time left before due_at.
type Thresholds struct {
	Urgent time.Duration
	High   time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{Urgent: day, High: 3 * day}
}

// ThresholdsFromDays builds thresholds from whole days, falling back to the
// defaults for non-positive values. High is never below Urgent.
func ThresholdsFromDays(urgentDays, highDays int) Thresholds {
	t := DefaultThresholds()
	if urgentDays > 0 {
		t.Urgent = time.Duration(urgentDays) * day
	}
	if highDays > 0 {
		t.High = time.Duration(highDays) * day
	}
	if t.High < t.Urgent {
		t.High = t.Urgent
	}
	return t
}

// Classify is total: overdue items are Urgent. Callers drop due_at <= now
// from upcoming sets before classifying.
func (t Thresholds) Classify(dueAt, now time.Time) Tier {
	left := dueAt.Sub(now)
	switch {
	case left <= t.Urgent:
		return Urgent
	case left <= t.High:
		return High
	default:
		return Normal
	}
}

// Classify uses DefaultThresholds.
func Classify(dueAt, now time.Time) Tier {
	return DefaultThresholds().Classify(dueAt, now)
}

// Rank orders tiers; a higher rank is more urgent.
func (t Tier) Rank() int {
	switch t {
	case Urgent:
		return 2
	case High:
		return 1
	default:
		return 0
	}
}

func (t Tier) IsValid() bool {
	return t == Normal || t == High || t == Urgent
}

// Notifiable reports whether entering t warrants a "due soon" notification.
func (t Tier) Notifiable() bool {
	return t == Urgent || t == High
}

func (t Tier) String() string { return string(t) }
