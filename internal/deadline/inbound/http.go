package inbound

import (
	"time"

	"github.com/shandysiswandi/coursepulse/internal/deadline/usecase"
	"github.com/shandysiswandi/coursepulse/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/deadline/upcoming", end.ListUpcoming)
}

type HTTPEndpoint struct {
	uc uc
}

type UpcomingResponse struct {
	ID       int64     `json:"id"`
	Kind     string    `json:"kind"`
	CourseID int64     `json:"course_id"`
	Title    string    `json:"title"`
	DueAt    time.Time `json:"due_at"`
	Tier     string    `json:"tier"`
}

type UpcomingListResponse struct {
	Items []UpcomingResponse `json:"items"`
}

// ListUpcoming returns visible deadlines that are not yet due.
// @Summary List upcoming deadlines
// @Tags Deadline
// @Security BearerAuth
// @Produce json
// @Param course_id query string false "Course ID"
// @Param within_days query int false "Horizon in days (default 14)"
// @Param limit query int false "Max items (default 50)"
// @Success 200 {object} router.successResponse{data=UpcomingListResponse} "Upcoming deadlines"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/deadline/upcoming [get]
func (h *HTTPEndpoint) ListUpcoming(r *router.Request) (any, error) {
	courseID, err := r.GetQueryInt64("course_id")
	if err != nil {
		return nil, err
	}
	within, err := r.GetQueryInt("within_days", 0)
	if err != nil {
		return nil, err
	}
	limit, err := r.GetQueryInt("limit", 0)
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListUpcoming(r.Context(), usecase.ListUpcomingInput{
		CourseID:   courseID,
		WithinDays: within,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	resp := UpcomingListResponse{Items: make([]UpcomingResponse, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, UpcomingResponse{
			ID:       it.ID,
			Kind:     string(it.Kind),
			CourseID: it.CourseID,
			Title:    it.Title,
			DueAt:    it.DueAt,
			Tier:     it.Tier.String(),
		})
	}

	return resp, nil
}
