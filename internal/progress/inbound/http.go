package inbound

import "github.com/shandysiswandi/coursepulse/internal/pkg/router"

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/progress/events", end.RecordProgress)
	r.GET("/api/v1/progress/students/:student_id/courses", end.ListSummaries)
	r.GET("/api/v1/progress/students/:student_id/courses/:course_id", end.GetSummary)
	r.GET("/api/v1/progress/students/:student_id/courses/:course_id/materials", end.ListMaterials)
}
