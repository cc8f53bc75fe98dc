package inbound

import (
	"time"

	"github.com/shandysiswandi/coursepulse/internal/pkg/valueobject"
)

type NotificationResponse struct {
	ID              int64               `json:"id"`
	Type            string              `json:"type"`
	SubjectEntityID int64               `json:"subject_entity_id"`
	Payload         valueobject.JSONMap `json:"payload" swaggertype:"object"`
	State           string              `json:"state"`
	ReadAt          *time.Time          `json:"read_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

type NotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

type DeliveryResponse struct {
	Channel       string     `json:"channel"`
	State         string     `json:"state"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastError     string     `json:"last_error"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
}

type FailedNotificationResponse struct {
	NotificationResponse
	RecipientID int64              `json:"recipient_id"`
	DedupKey    string             `json:"dedup_key"`
	Deliveries  []DeliveryResponse `json:"deliveries"`
}

type FailedNotificationsResponse struct {
	Notifications []FailedNotificationResponse `json:"notifications"`
}

type AttemptResponse struct {
	Channel     string    `json:"channel"`
	AttemptNo   int       `json:"attempt_no"`
	AttemptedAt time.Time `json:"attempted_at"`
	Outcome     string    `json:"outcome"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	LatencyMs   int64     `json:"latency_ms"`
}

type AttemptsResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
}

type ChannelMetricsResponse struct {
	Channel      string  `json:"channel"`
	Attempts     int64   `json:"attempts"`
	Successes    int64   `json:"successes"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
}

type MetricsResponse struct {
	Since    time.Time                `json:"since"`
	Channels []ChannelMetricsResponse `json:"channels"`
}

type ExportResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StreamMessage is the SSE data frame.
type StreamMessage struct {
	ID        int64               `json:"id"`
	Type      string              `json:"type"`
	Subject   string              `json:"subject"`
	Body      string              `json:"body"`
	Payload   valueobject.JSONMap `json:"payload"`
	CreatedAt time.Time           `json:"created_at"`
}
