package inbound

import (
	"net/http"

	"github.com/shandysiswandi/coursepulse/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/notification/inbox", end.ListInbox)
	r.GET("/api/v1/notification/inbox/unread-count", end.CountUnread)
	r.PATCH("/api/v1/notification/inbox/:id/read", end.MarkInboxRead)
	r.PUT("/api/v1/notification/inbox/read-all", end.MarkAllInboxRead)

	r.GETRaw("/api/v1/notification/stream", http.HandlerFunc(end.StreamNotifications))

	r.GET("/api/v1/notification/ops/failed", end.ListFailed)
	r.POST("/api/v1/notification/ops/failed/export", end.ExportFailed)
	r.GET("/api/v1/notification/ops/notifications/:id/attempts", end.ListAttempts)
	r.GET("/api/v1/notification/ops/metrics", end.Metrics)
}
