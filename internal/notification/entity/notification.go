package entity

import (
	"time"

	"github.com/shandysiswandi/coursepulse/internal/pkg/valueobject"
)

type Notification struct {
	ID              int64
	RecipientID     int64
	Type            Type
	SubjectEntityID int64
	Payload         valueobject.JSONMap
	DedupKey        string
	State           State
	ReadAt          *time.Time
	CreatedAt       time.Time
}

type Delivery struct {
	NotificationID int64
	Channel        Channel
	State          State
	Attempts       int
	NextAttemptAt  time.Time
	LastError      string
	DeliveredAt    *time.Time
}

type Attempt struct {
	NotificationID int64
	Channel        Channel
	AttemptNo      int
	AttemptedAt    time.Time
	Outcome        Outcome
	ErrorDetail    string
	LatencyMs      int64
}

// Claim is a delivery leased to one worker.
type Claim struct {
	NotificationID int64
	Channel        Channel
	Attempts       int
	RecipientID    int64
	Type           Type
	Payload        valueobject.JSONMap
	CreatedAt      time.Time
	// LeaseUntil is the lock written by the claim; it doubles as the fencing
	// token for writes back to the delivery.
	LeaseUntil time.Time
}

// AttemptResult is what the worker writes back after one attempt.
type AttemptResult struct {
	Attempt
	State         State
	NextAttemptAt time.Time
	LeaseUntil    time.Time
}

type Preference struct {
	UserID  int64
	Type    Type
	Channel Channel
	Enabled bool
}

type Template struct {
	Type    Type
	Channel Channel
	Subject string
	Body    string
}

type Recipient struct {
	ID       int64
	Email    string
	FullName string
}

type Course struct {
	ID        int64
	TeacherID int64
	Title     string
}

// Message is a rendered notification handed to a channel adapter.
type Message struct {
	NotificationID int64
	Type           Type
	Recipient      Recipient
	Subject        string
	Body           string
	Payload        valueobject.JSONMap
	CreatedAt      time.Time
}

type ChannelMetrics struct {
	Channel      Channel
	Attempts     int64
	Successes    int64
	AvgLatencyMs float64
	P95LatencyMs float64
}

func (m ChannelMetrics) SuccessRate() float64 {
	if m.Attempts == 0 {
		return 0
	}
	return float64(m.Successes) / float64(m.Attempts)
}
