package entity

import (
	"strings"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	// ChannelAll only appears in preference rows.
	ChannelAll Channel = "all"
)

func ChannelFromString(raw string) (Channel, bool) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(raw))); c {
	case ChannelInApp, ChannelEmail:
		return c, true
	default:
		return "", false
	}
}

func (c Channel) String() string { return string(c) }

type Type string

const (
	TypeCourseCompleted        Type = "course_completed"
	TypeCourseStudentCompleted Type = "course_student_completed"
	TypeCourseMilestone        Type = "course_milestone"
	TypeSubmissionGraded       Type = "submission_graded"
	TypeDeadlineDueSoon        Type = "deadline_due_soon"
	TypeEnrollmentWelcome      Type = "enrollment_welcome"
	TypeEnrollmentNewStudent   Type = "enrollment_new_student"
)

func (t Type) String() string { return string(t) }

// State is shared by notifications and their per-channel deliveries.
type State string

const (
	StatePending   State = "pending"
	StateDelivered State = "delivered"
	StateFailed    State = "failed"
)

func (s State) String() string { return string(s) }

func (s State) Terminal() bool { return s == StateDelivered || s == StateFailed }

type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeError          Outcome = "error"
	OutcomeTimeout        Outcome = "timeout"
	OutcomePermanentError Outcome = "permanent_error"
)

func (o Outcome) String() string { return string(o) }

type InboxStatus string

const (
	InboxStatusAll    InboxStatus = "all"
	InboxStatusUnread InboxStatus = "unread"
	InboxStatusRead   InboxStatus = "read"
)
