package entity

import "strings"

// Status of one material for one student. Values are ordered.
type Status int16

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (s Status) IsValid() bool {
	return s >= StatusNotStarted && s <= StatusCompleted
}

func ParseStatus(v string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "not_started":
		return StatusNotStarted, true
	case "in_progress":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	default:
		return StatusNotStarted, false
	}
}
