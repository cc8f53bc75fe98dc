// Package event holds the messages shared between modules, both on the
// event log and on the in-process bus.
package event

// Event log topics.
const (
	TopicMaterialProgressRecorded = "lms.material.progress.recorded"
	TopicSubmissionGraded         = "lms.submission.graded"
	TopicEnrollmentCreated        = "lms.enrollment.created"
	TopicDeadlineWindowEntered    = "lms.deadline.window.entered"
	TopicCourseProgressChanged    = "lms.course.progress.changed"
)

// Consumer groups, one per consuming module.
const (
	GroupProgress     = "progress"
	GroupNotification = "notification"
)

// Headers carried next to every event log body.
const (
	HeaderCorrelationID = "cID"
	HeaderEventID       = "eID"
)

// Milestone values besides a plain percentage such as "50".
const (
	MilestoneStarted   = "started"
	MilestoneCompleted = "completed"
)
