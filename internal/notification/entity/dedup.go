package entity

import (
	"fmt"
	"strconv"

	"github.com/shandysiswandi/coursepulse/internal/shared/urgency"
)

// DedupKey is the single builder for notification dedup keys. Two drafts
// with the same key describe the same notification.
func DedupKey(t Type, recipientID, subjectEntityID int64, bucket string) string {
	return fmt.Sprintf("%s:%d:%d:%s", t, recipientID, subjectEntityID, bucket)
}

func BucketCourseCompleted(studentID, courseID int64) string {
	return fmt.Sprintf("%d:%d:completed", studentID, courseID)
}

func BucketCourseMilestone(studentID, courseID int64, pct int) string {
	return fmt.Sprintf("%d:%d:milestone-%d", studentID, courseID, pct)
}

// BucketSubmissionGraded keys the first grade of a submission. A regrade
// with a revision past the first gets its own bucket so it notifies again.
func BucketSubmissionGraded(submissionID int64, regrade bool, revision int) string {
	if regrade && revision > 1 {
		return strconv.FormatInt(submissionID, 10) + ":regraded-r" + strconv.Itoa(revision)
	}
	return strconv.FormatInt(submissionID, 10) + ":graded"
}

func BucketDeadline(deadlineID, studentID int64, tier urgency.Tier) string {
	return fmt.Sprintf("%d:%d:%s", deadlineID, studentID, tier)
}

func BucketEnrollment(enrollmentID int64) string {
	return strconv.FormatInt(enrollmentID, 10) + ":created"
}
