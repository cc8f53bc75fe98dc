package inbound

import (
	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/notification/usecase"
	"github.com/shandysiswandi/coursepulse/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// ListInbox returns the authenticated user's notifications.
// @Summary List inbox
// @Description Returns inbox notifications for the authenticated user, newest first.
// @Tags Inbox
// @Security BearerAuth
// @Produce json
// @Param status query string false "Filter by status (all|read|unread)"
// @Param limit query int false "Pagination limit"
// @Param offset query int false "Pagination offset"
// @Success 200 {object} router.successResponse{data=NotificationsResponse} "Notification list"
// @Failure 400 {object} router.errorResponse "Invalid query parameters"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/inbox [get]
func (h *HTTPEndpoint) ListInbox(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt("limit", 0)
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt("offset", 0)
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListInbox(r.Context(), usecase.ListInboxInput{
		Status: r.GetQuery("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toNotificationResponse(item))
	}

	return NotificationsResponse{Notifications: resp}, nil
}

// CountUnread returns the number of unread notifications.
// @Summary Count unread
// @Tags Inbox
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=UnreadCountResponse} "Unread count"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/inbox/unread-count [get]
func (h *HTTPEndpoint) CountUnread(r *router.Request) (any, error) {
	n, err := h.uc.CountUnread(r.Context())
	if err != nil {
		return nil, err
	}

	return UnreadCountResponse{Unread: n}, nil
}

// MarkInboxRead marks a notification as read. Repeating it is a no-op.
// @Summary Mark inbox read
// @Tags Inbox
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 204 "No Content"
// @Failure 400 {object} router.errorResponse "Invalid notification id"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 404 {object} router.errorResponse "Notification not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/inbox/{id}/read [patch]
func (h *HTTPEndpoint) MarkInboxRead(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	return nil, h.uc.MarkInboxRead(r.Context(), id)
}

// MarkAllInboxRead marks every unread notification as read.
// @Summary Mark all inbox read
// @Tags Inbox
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=MarkAllReadResponse} "Updated rows"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/inbox/read-all [put]
func (h *HTTPEndpoint) MarkAllInboxRead(r *router.Request) (any, error) {
	n, err := h.uc.MarkAllInboxRead(r.Context())
	if err != nil {
		return nil, err
	}

	return MarkAllReadResponse{Updated: n}, nil
}

// ListFailed returns notifications in the failed state with their deliveries.
// @Summary List failed notifications
// @Tags Notification Ops
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Pagination limit"
// @Param offset query int false "Pagination offset"
// @Success 200 {object} router.successResponse{data=FailedNotificationsResponse} "Failed notifications"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/ops/failed [get]
func (h *HTTPEndpoint) ListFailed(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt("limit", 0)
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt("offset", 0)
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListFailed(r.Context(), usecase.ListFailedInput{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}

	resp := make([]FailedNotificationResponse, 0, len(items))
	for _, item := range items {
		ds := make([]DeliveryResponse, 0, len(item.Deliveries))
		for _, d := range item.Deliveries {
			ds = append(ds, DeliveryResponse{
				Channel:       d.Channel.String(),
				State:         d.State.String(),
				Attempts:      d.Attempts,
				NextAttemptAt: d.NextAttemptAt,
				LastError:     d.LastError,
				DeliveredAt:   d.DeliveredAt,
			})
		}
		resp = append(resp, FailedNotificationResponse{
			NotificationResponse: toNotificationResponse(item.Notification),
			RecipientID:          item.RecipientID,
			DedupKey:             item.DedupKey,
			Deliveries:           ds,
		})
	}

	return FailedNotificationsResponse{Notifications: resp}, nil
}

// ListAttempts returns the delivery attempt trail of one notification.
// @Summary List delivery attempts
// @Tags Notification Ops
// @Security BearerAuth
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} router.successResponse{data=AttemptsResponse} "Attempts"
// @Failure 400 {object} router.errorResponse "Invalid notification id"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/ops/notifications/{id}/attempts [get]
func (h *HTTPEndpoint) ListAttempts(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListAttempts(r.Context(), usecase.ListAttemptsInput{NotificationID: id})
	if err != nil {
		return nil, err
	}

	resp := make([]AttemptResponse, 0, len(items))
	for _, a := range items {
		resp = append(resp, AttemptResponse{
			Channel:     a.Channel.String(),
			AttemptNo:   a.AttemptNo,
			AttemptedAt: a.AttemptedAt,
			Outcome:     a.Outcome.String(),
			ErrorDetail: a.ErrorDetail,
			LatencyMs:   a.LatencyMs,
		})
	}

	return AttemptsResponse{Attempts: resp}, nil
}

// Metrics returns per-channel delivery metrics over a recent window.
// @Summary Delivery metrics
// @Tags Notification Ops
// @Security BearerAuth
// @Produce json
// @Param since_minutes query int false "Window in minutes (default 60)"
// @Success 200 {object} router.successResponse{data=MetricsResponse} "Metrics"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/ops/metrics [get]
func (h *HTTPEndpoint) Metrics(r *router.Request) (any, error) {
	since, err := r.GetQueryInt("since_minutes", 0)
	if err != nil {
		return nil, err
	}

	out, err := h.uc.Metrics(r.Context(), usecase.MetricsInput{SinceMinutes: since})
	if err != nil {
		return nil, err
	}

	resp := MetricsResponse{Since: out.Since, Channels: make([]ChannelMetricsResponse, 0, len(out.Channels))}
	for _, m := range out.Channels {
		resp.Channels = append(resp.Channels, ChannelMetricsResponse{
			Channel:      m.Channel.String(),
			Attempts:     m.Attempts,
			Successes:    m.Successes,
			SuccessRate:  m.SuccessRate(),
			AvgLatencyMs: m.AvgLatencyMs,
			P95LatencyMs: m.P95LatencyMs,
		})
	}

	return resp, nil
}

// ExportFailed uploads failed notifications as NDJSON and returns a link.
// @Summary Export failed notifications
// @Tags Notification Ops
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=ExportResponse} "Export location"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 503 {object} router.errorResponse "Storage not configured"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/ops/failed/export [post]
func (h *HTTPEndpoint) ExportFailed(r *router.Request) (any, error) {
	out, err := h.uc.ExportFailed(r.Context())
	if err != nil {
		return nil, err
	}

	return ExportResponse{Key: out.Key, URL: out.URL, Count: out.Count, ExpiresAt: out.ExpiresAt}, nil
}

func toNotificationResponse(n entity.Notification) NotificationResponse {
	return NotificationResponse{
		ID:              n.ID,
		Type:            n.Type.String(),
		SubjectEntityID: n.SubjectEntityID,
		Payload:         n.Payload,
		State:           n.State.String(),
		ReadAt:          n.ReadAt,
		CreatedAt:       n.CreatedAt,
	}
}
