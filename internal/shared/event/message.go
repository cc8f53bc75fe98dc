package event

import (
	"strconv"
	"time"
)

// MaterialProgressRecorded is published by the LMS whenever a student
// interacts with a course material.
type MaterialProgressRecorded struct {
	EventID          string    `json:"event_id"`
	StudentID        int64     `json:"student_id"`
	MaterialID       int64     `json:"material_id"`
	CourseID         int64     `json:"course_id"`
	Status           string    `json:"status"`
	ProgressPct      int       `json:"progress_pct"`
	TimeSpentSeconds int64     `json:"time_spent_seconds"`
	Reset            bool      `json:"reset"`
	Timestamp        time.Time `json:"timestamp"`
}

type SubmissionGraded struct {
	EventID          string    `json:"event_id"`
	SubmissionID     int64     `json:"submission_id"`
	StudentID        int64     `json:"student_id"`
	AssignmentOrQuiz int64     `json:"assignment_or_quiz_id"`
	CourseID         int64     `json:"course_id"`
	Score            float64   `json:"score"`
	MaxScore         float64   `json:"max_score"`
	GradedAt         time.Time `json:"graded_at"`
	Regrade          bool      `json:"regrade"`
	Revision         int       `json:"revision"`
}

type EnrollmentCreated struct {
	EventID      string    `json:"event_id"`
	EnrollmentID int64     `json:"enrollment_id"`
	StudentID    int64     `json:"student_id"`
	CourseID     int64     `json:"course_id"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

// DeadlineWindowEntered fires when a deadline item moves into a tighter
// urgency tier.
type DeadlineWindowEntered struct {
	EventID    string    `json:"event_id"`
	DeadlineID int64     `json:"deadline_id"`
	CourseID   int64     `json:"course_id"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	DueAt      time.Time `json:"due_at"`
	Tier       string    `json:"tier"`
}

// CourseProgressChanged is emitted by the progress aggregator. Milestone is
// MilestoneStarted, MilestoneCompleted or a percentage such as "50".
type CourseProgressChanged struct {
	StudentID  int64     `json:"student_id"`
	CourseID   int64     `json:"course_id"`
	Milestone  string    `json:"milestone"`
	OverallPct int       `json:"overall_pct"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MilestonePct parses a percentage milestone; ok is false for named ones.
func (e CourseProgressChanged) MilestonePct() (pct int, ok bool) {
	n, err := strconv.Atoi(e.Milestone)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (MaterialProgressRecorded) EventType() Type { return TypeMaterialProgressRecorded }
func (SubmissionGraded) EventType() Type         { return TypeSubmissionGraded }
func (EnrollmentCreated) EventType() Type        { return TypeEnrollmentCreated }
func (DeadlineWindowEntered) EventType() Type    { return TypeDeadlineWindowEntered }
func (CourseProgressChanged) EventType() Type    { return TypeCourseProgressChanged }
