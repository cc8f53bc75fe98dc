package entity

import (
	"time"

	"github.com/shandysiswandi/coursepulse/internal/pkg/valueobject"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
	"github.com/shandysiswandi/coursepulse/internal/shared/urgency"
)

// Draft is an addressed notification before preferences and dedup apply.
type Draft struct {
	RecipientID     int64
	Type            Type
	SubjectEntityID int64
	DedupKey        string
	Payload         valueobject.JSONMap
}

// Context carries what Expand cannot derive from the event alone.
type Context struct {
	Course      Course
	StudentName string
	// Students are the recipients of a deadline notification: actively
	// enrolled and without a submission.
	Students []int64
}

func newDraft(t Type, recipientID, subjectID int64, bucket string, payload valueobject.JSONMap) Draft {
	return Draft{
		RecipientID:     recipientID,
		Type:            t,
		SubjectEntityID: subjectID,
		DedupKey:        DedupKey(t, recipientID, subjectID, bucket),
		Payload:         payload,
	}
}

// Expand turns one domain event into zero or more drafts.
func Expand(e event.Event, rc Context) []Draft {
	switch ev := e.(type) {
	case event.CourseProgressChanged:
		return expandCourseProgress(ev, rc)
	case event.SubmissionGraded:
		return expandSubmissionGraded(ev, rc)
	case event.DeadlineWindowEntered:
		return expandDeadline(ev, rc)
	case event.EnrollmentCreated:
		return expandEnrollment(ev, rc)
	default:
		return nil
	}
}

func expandCourseProgress(ev event.CourseProgressChanged, rc Context) []Draft {
	base := valueobject.JSONMap{
		"student_id":   ev.StudentID,
		"course_id":    ev.CourseID,
		"course_title": rc.Course.Title,
		"student_name": rc.StudentName,
		"overall_pct":  ev.OverallPct,
	}

	if ev.Milestone == event.MilestoneCompleted {
		bucket := BucketCourseCompleted(ev.StudentID, ev.CourseID)
		out := []Draft{newDraft(TypeCourseCompleted, ev.StudentID, ev.CourseID, bucket, base)}
		if rc.Course.TeacherID > 0 {
			out = append(out, newDraft(TypeCourseStudentCompleted, rc.Course.TeacherID, ev.CourseID, bucket, base.Merge(nil)))
		}
		return out
	}

	pct, ok := ev.MilestonePct()
	if !ok || pct <= 0 || pct >= 100 {
		return nil
	}

	payload := base.Merge(valueobject.JSONMap{"milestone": pct})
	return []Draft{newDraft(TypeCourseMilestone, ev.StudentID, ev.CourseID, BucketCourseMilestone(ev.StudentID, ev.CourseID, pct), payload)}
}

func expandSubmissionGraded(ev event.SubmissionGraded, rc Context) []Draft {
	payload := valueobject.JSONMap{
		"submission_id": ev.SubmissionID,
		"deadline_id":   ev.AssignmentOrQuiz,
		"course_id":     ev.CourseID,
		"course_title":  rc.Course.Title,
		"score":         ev.Score,
		"max_score":     ev.MaxScore,
		"regrade":       ev.Regrade,
		"revision":      ev.Revision,
	}
	bucket := BucketSubmissionGraded(ev.SubmissionID, ev.Regrade, ev.Revision)
	return []Draft{newDraft(TypeSubmissionGraded, ev.StudentID, ev.SubmissionID, bucket, payload)}
}

func expandDeadline(ev event.DeadlineWindowEntered, rc Context) []Draft {
	tier := urgency.Tier(ev.Tier)
	if !tier.Notifiable() {
		return nil
	}

	out := make([]Draft, 0, len(rc.Students))
	for _, studentID := range rc.Students {
		payload := valueobject.JSONMap{
			"deadline_id":  ev.DeadlineID,
			"course_id":    ev.CourseID,
			"course_title": rc.Course.Title,
			"kind":         ev.Kind,
			"title":        ev.Title,
			"due_at":       ev.DueAt.UTC().Format(time.RFC3339),
			"tier":         tier.String(),
		}
		out = append(out, newDraft(TypeDeadlineDueSoon, studentID, ev.DeadlineID, BucketDeadline(ev.DeadlineID, studentID, tier), payload))
	}
	return out
}

func expandEnrollment(ev event.EnrollmentCreated, rc Context) []Draft {
	payload := valueobject.JSONMap{
		"enrollment_id": ev.EnrollmentID,
		"student_id":    ev.StudentID,
		"course_id":     ev.CourseID,
		"course_title":  rc.Course.Title,
		"student_name":  rc.StudentName,
	}
	bucket := BucketEnrollment(ev.EnrollmentID)

	out := []Draft{newDraft(TypeEnrollmentWelcome, ev.StudentID, ev.EnrollmentID, bucket, payload)}
	if rc.Course.TeacherID > 0 {
		out = append(out, newDraft(TypeEnrollmentNewStudent, rc.Course.TeacherID, ev.EnrollmentID, bucket, payload.Merge(nil)))
	}
	return out
}
