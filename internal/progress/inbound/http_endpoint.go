package inbound

import (
	"github.com/shandysiswandi/coursepulse/internal/pkg/router"
	"github.com/shandysiswandi/coursepulse/internal/progress/usecase"
)

type HTTPEndpoint struct {
	uc uc
}

// RecordProgress applies one material interaction synchronously.
// @Summary Record material progress
// @Description Applies a material interaction and returns the recomputed course summary.
// @Tags Progress
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body RecordProgressRequest true "Progress event"
// @Success 200 {object} router.successResponse{data=SummaryResponse} "Course summary"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 404 {object} router.errorResponse "Material or enrollment not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/progress/events [post]
func (h *HTTPEndpoint) RecordProgress(r *router.Request) (any, error) {
	var req RecordProgressRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	sum, err := h.uc.RecordMaterialProgress(r.Context(), usecase.RecordMaterialProgressInput{
		StudentID:   req.StudentID,
		MaterialID:  req.MaterialID,
		CourseID:    req.CourseID,
		Status:      req.Status,
		ProgressPct: req.ProgressPct,
		TimeSpent:   req.TimeSpentSeconds,
		Timestamp:   req.Timestamp,
		Reset:       req.Reset,
	})
	if err != nil {
		return nil, err
	}

	return toSummaryResponse(*sum), nil
}

// GetSummary returns one course summary.
// @Summary Get course progress
// @Tags Progress
// @Security BearerAuth
// @Produce json
// @Param student_id path string true "Student ID"
// @Param course_id path string true "Course ID"
// @Success 200 {object} router.successResponse{data=SummaryResponse} "Course summary"
// @Failure 404 {object} router.errorResponse "Not found"
// @Router /api/v1/progress/students/{student_id}/courses/{course_id} [get]
func (h *HTTPEndpoint) GetSummary(r *router.Request) (any, error) {
	studentID, err := r.GetParamInt64("student_id")
	if err != nil {
		return nil, err
	}
	courseID, err := r.GetParamInt64("course_id")
	if err != nil {
		return nil, err
	}

	sum, err := h.uc.GetSummary(r.Context(), usecase.GetSummaryInput{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return nil, err
	}

	return toSummaryResponse(*sum), nil
}

// ListSummaries returns every course summary of a student.
// @Summary List course progress
// @Tags Progress
// @Security BearerAuth
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} router.successResponse{data=SummariesResponse} "Course summaries"
// @Router /api/v1/progress/students/{student_id}/courses [get]
func (h *HTTPEndpoint) ListSummaries(r *router.Request) (any, error) {
	studentID, err := r.GetParamInt64("student_id")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListSummaries(r.Context(), usecase.ListSummariesInput{StudentID: studentID})
	if err != nil {
		return nil, err
	}

	resp := SummariesResponse{Courses: make([]SummaryResponse, 0, len(items))}
	for _, item := range items {
		resp.Courses = append(resp.Courses, toSummaryResponse(item))
	}

	return resp, nil
}

// @Summary List material progress
// @Tags Progress
// @Security BearerAuth
// @Produce json
// @Param student_id path string true "Student ID"
// @Param course_id path string true "Course ID"
// @Success 200 {object} router.successResponse{data=MaterialRecordsResponse} "Material records"
// @Router /api/v1/progress/students/{student_id}/courses/{course_id}/materials [get]
func (h *HTTPEndpoint) ListMaterials(r *router.Request) (any, error) {
	studentID, err := r.GetParamInt64("student_id")
	if err != nil {
		return nil, err
	}
	courseID, err := r.GetParamInt64("course_id")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListMaterials(r.Context(), usecase.ListMaterialsInput{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return nil, err
	}

	resp := MaterialRecordsResponse{Materials: make([]MaterialRecordResponse, 0, len(items))}
	for _, item := range items {
		resp.Materials = append(resp.Materials, MaterialRecordResponse{
			MaterialID:       item.MaterialID,
			Status:           item.Status.String(),
			ProgressPct:      item.ProgressPct,
			TimeSpentSeconds: item.TimeSpent,
			LastAccessedAt:   item.LastAccessedAt,
		})
	}

	return resp, nil
}
