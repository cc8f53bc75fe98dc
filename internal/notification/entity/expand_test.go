package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

func TestExpand(t *testing.T) {
	course := Course{ID: 10, TeacherID: 99, Title: "Go 101"}

	t.Run("completion notifies student and teacher", func(t *testing.T) {
		drafts := Expand(event.CourseProgressChanged{StudentID: 1, CourseID: 10, Milestone: event.MilestoneCompleted, OverallPct: 100},
			Context{Course: course, StudentName: "Ana"})

		require.Len(t, drafts, 2)
		assert.Equal(t, TypeCourseCompleted, drafts[0].Type)
		assert.Equal(t, int64(1), drafts[0].RecipientID)
		assert.Equal(t, TypeCourseStudentCompleted, drafts[1].Type)
		assert.Equal(t, int64(99), drafts[1].RecipientID)
		assert.Equal(t, "Ana", drafts[1].Payload.GetString("student_name"))
		assert.NotEqual(t, drafts[0].DedupKey, drafts[1].DedupKey)
	})

	t.Run("percentage milestone notifies the student only", func(t *testing.T) {
		drafts := Expand(event.CourseProgressChanged{StudentID: 1, CourseID: 10, Milestone: "50"}, Context{Course: course})

		require.Len(t, drafts, 1)
		assert.Equal(t, TypeCourseMilestone, drafts[0].Type)
		assert.Equal(t, int64(50), drafts[0].Payload.GetInt64("milestone"))
	})

	t.Run("started expands to nothing", func(t *testing.T) {
		assert.Empty(t, Expand(event.CourseProgressChanged{StudentID: 1, CourseID: 10, Milestone: event.MilestoneStarted}, Context{Course: course}))
	})

	t.Run("regrade gets its own bucket only past the first revision", func(t *testing.T) {
		first := Expand(event.SubmissionGraded{SubmissionID: 7, StudentID: 1}, Context{})
		sameRev := Expand(event.SubmissionGraded{SubmissionID: 7, StudentID: 1, Regrade: true, Revision: 1}, Context{})
		second := Expand(event.SubmissionGraded{SubmissionID: 7, StudentID: 1, Regrade: true, Revision: 2}, Context{})

		require.Len(t, first, 1)
		assert.Equal(t, first[0].DedupKey, sameRev[0].DedupKey)
		assert.NotEqual(t, first[0].DedupKey, second[0].DedupKey)
	})

	t.Run("deadline addresses every pending student per tier", func(t *testing.T) {
		due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		rc := Context{Course: course, Students: []int64{1, 2, 3}}

		high := Expand(event.DeadlineWindowEntered{DeadlineID: 5, CourseID: 10, DueAt: due, Tier: "high"}, rc)
		urgent := Expand(event.DeadlineWindowEntered{DeadlineID: 5, CourseID: 10, DueAt: due, Tier: "urgent"}, rc)
		normal := Expand(event.DeadlineWindowEntered{DeadlineID: 5, CourseID: 10, DueAt: due, Tier: "normal"}, rc)

		require.Len(t, high, 3)
		require.Len(t, urgent, 3)
		assert.Empty(t, normal)
		assert.NotEqual(t, high[0].DedupKey, urgent[0].DedupKey)
		assert.Equal(t, "2026-03-01T12:00:00Z", high[0].Payload.GetString("due_at"))
	})

	t.Run("enrollment welcomes the student and tells the teacher", func(t *testing.T) {
		drafts := Expand(event.EnrollmentCreated{EnrollmentID: 3, StudentID: 1, CourseID: 10}, Context{Course: course})

		require.Len(t, drafts, 2)
		assert.Equal(t, TypeEnrollmentWelcome, drafts[0].Type)
		assert.Equal(t, TypeEnrollmentNewStudent, drafts[1].Type)
	})

	t.Run("deterministic keys", func(t *testing.T) {
		e := event.EnrollmentCreated{EnrollmentID: 3, StudentID: 1, CourseID: 10}
		a := Expand(e, Context{Course: course})
		b := Expand(e, Context{Course: course})
		assert.Equal(t, a[0].DedupKey, b[0].DedupKey)
	})
}
