package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/valueobject"
)

type FailedNotification struct {
	entity.Notification
	Deliveries []entity.Delivery
}

type ListFailedInput struct {
	Limit  int `validate:"omitempty,gte=1,lte=100"`
	Offset int `validate:"omitempty,gte=0"`
}

func (s *Usecase) ListFailed(ctx context.Context, in ListFailedInput) ([]FailedNotification, error) {
	ctx, span := s.startSpan(ctx, "ListFailed")
	defer span.End()

	if _, err := s.requireAuth(ctx); err != nil {
		return nil, err
	}

	if in.Limit == 0 {
		in.Limit = 20
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.listFailed(ctx, in.Limit, in.Offset)
}

func (s *Usecase) listFailed(ctx context.Context, limit, offset int) ([]FailedNotification, error) {
	rows, err := s.repoDB.ListFailed(ctx, limit, offset)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list failed notifications", "error", err)
		return nil, goerror.NewServer(err)
	}

	out := make([]FailedNotification, 0, len(rows))
	for _, n := range rows {
		ds, err := s.repoDB.ListDeliveries(ctx, n.ID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo list deliveries", "notification_id", n.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
		out = append(out, FailedNotification{Notification: n, Deliveries: ds})
	}

	return out, nil
}

type ListAttemptsInput struct {
	NotificationID int64 `validate:"required,gt=0"`
}

func (s *Usecase) ListAttempts(ctx context.Context, in ListAttemptsInput) ([]entity.Attempt, error) {
	ctx, span := s.startSpan(ctx, "ListAttempts")
	defer span.End()

	if _, err := s.requireAuth(ctx); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	items, err := s.repoDB.ListAttempts(ctx, in.NotificationID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list attempts", "notification_id", in.NotificationID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

type MetricsInput struct {
	SinceMinutes int `validate:"omitempty,gte=1,lte=43200"`
}

type ChannelMetricsOutput struct {
	Since    time.Time
	Channels []entity.ChannelMetrics
}

func (s *Usecase) Metrics(ctx context.Context, in MetricsInput) (*ChannelMetricsOutput, error) {
	ctx, span := s.startSpan(ctx, "Metrics")
	defer span.End()

	if _, err := s.requireAuth(ctx); err != nil {
		return nil, err
	}

	if in.SinceMinutes == 0 {
		in.SinceMinutes = 60
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	since := s.clock.Now().Add(-time.Duration(in.SinceMinutes) * time.Minute)
	items, err := s.repoDB.ChannelMetrics(ctx, since)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo channel metrics", "since", since, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ChannelMetricsOutput{Since: since, Channels: items}, nil
}

type ExportOutput struct {
	Key       string
	URL       string
	Count     int
	ExpiresAt time.Time
}

type exportRecord struct {
	ID              int64               `json:"id"`
	RecipientID     int64               `json:"recipient_id"`
	Type            string              `json:"type"`
	SubjectEntityID int64               `json:"subject_entity_id"`
	DedupKey        string              `json:"dedup_key"`
	Payload         valueobject.JSONMap `json:"payload"`
	CreatedAt       time.Time           `json:"created_at"`
	Deliveries      []exportDelivery    `json:"deliveries"`
}

type exportDelivery struct {
	Channel   string `json:"channel"`
	State     string `json:"state"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

const exportPageSize = 500

// ExportFailed writes every failed notification as NDJSON to object storage
// and returns a presigned download link.
func (s *Usecase) ExportFailed(ctx context.Context) (*ExportOutput, error) {
	ctx, span := s.startSpan(ctx, "ExportFailed")
	defer span.End()

	if _, err := s.requireAuth(ctx); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, goerror.NewBusiness("export storage is not configured", goerror.CodeUnavailable)
	}

	var (
		buf   bytes.Buffer
		count int
	)
	enc := json.NewEncoder(&buf)
	for offset := 0; ; offset += exportPageSize {
		page, err := s.listFailed(ctx, exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, n := range page {
			if err := enc.Encode(toExportRecord(n)); err != nil {
				return nil, goerror.NewServer(err)
			}
		}
		count += len(page)
		if len(page) < exportPageSize {
			break
		}
	}

	now := s.clock.Now().UTC()
	key := fmt.Sprintf("exports/failed-notifications/%s-%s.ndjson", now.Format("20060102T150405Z"), s.uuid.Generate())

	if err := s.storage.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "application/x-ndjson"); err != nil {
		slog.ErrorContext(ctx, "failed to upload failed notification export", "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	expiry := s.cfg.GetMinute("notification.export.url_expiry_minutes")
	if expiry <= 0 {
		expiry = time.Hour
	}
	url, err := s.storage.PresignGet(ctx, key, expiry)
	if err != nil {
		slog.ErrorContext(ctx, "failed to presign failed notification export", "key", key, "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "failed notifications exported", "key", key, "count", count)

	return &ExportOutput{Key: key, URL: url, Count: count, ExpiresAt: now.Add(expiry)}, nil
}

func toExportRecord(n FailedNotification) exportRecord {
	rec := exportRecord{
		ID:              n.ID,
		RecipientID:     n.RecipientID,
		Type:            n.Type.String(),
		SubjectEntityID: n.SubjectEntityID,
		DedupKey:        n.DedupKey,
		Payload:         n.Payload,
		CreatedAt:       n.CreatedAt,
		Deliveries:      make([]exportDelivery, 0, len(n.Deliveries)),
	}
	for _, d := range n.Deliveries {
		rec.Deliveries = append(rec.Deliveries, exportDelivery{
			Channel:   d.Channel.String(),
			State:     d.State.String(),
			Attempts:  d.Attempts,
			LastError: d.LastError,
		})
	}
	return rec
}
