package inbound

import (
	"time"

	"github.com/shandysiswandi/coursepulse/internal/progress/entity"
)

// RecordProgressRequest mirrors the event log body. event_id is accepted
// but not tracked.
type RecordProgressRequest struct {
	EventID          string    `json:"event_id"`
	StudentID        int64     `json:"student_id"`
	MaterialID       int64     `json:"material_id"`
	CourseID         int64     `json:"course_id,omitempty"`
	Status           string    `json:"status"`
	ProgressPct      int       `json:"progress_pct"`
	TimeSpentSeconds int64     `json:"time_spent_seconds"`
	Reset            bool      `json:"reset"`
	Timestamp        time.Time `json:"timestamp"`
}

type SummaryResponse struct {
	StudentID         int64      `json:"student_id"`
	CourseID          int64      `json:"course_id"`
	CompletedCount    int        `json:"completed_count"`
	TotalCount        int        `json:"total_count"`
	OverallPct        int        `json:"overall_pct"`
	IsCompleted       bool       `json:"is_completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	LastActivityAt    *time.Time `json:"last_activity_at,omitempty"`
	ReachedMilestones []string   `json:"reached_milestones"`
}

func toSummaryResponse(s entity.Summary) SummaryResponse {
	reached := s.ReachedMilestones
	if reached == nil {
		reached = []string{}
	}
	return SummaryResponse{
		StudentID:         s.StudentID,
		CourseID:          s.CourseID,
		CompletedCount:    s.CompletedCount,
		TotalCount:        s.TotalCount,
		OverallPct:        s.OverallPct,
		IsCompleted:       s.IsCompleted,
		CompletedAt:       s.CompletedAt,
		LastActivityAt:    s.LastActivityAt,
		ReachedMilestones: reached,
	}
}

type SummariesResponse struct {
	Courses []SummaryResponse `json:"courses"`
}

type MaterialRecordResponse struct {
	MaterialID       int64     `json:"material_id"`
	Status           string    `json:"status"`
	ProgressPct      int       `json:"progress_pct"`
	TimeSpentSeconds int64     `json:"time_spent_seconds"`
	LastAccessedAt   time.Time `json:"last_accessed_at"`
}

type MaterialRecordsResponse struct {
	Materials []MaterialRecordResponse `json:"materials"`
}
