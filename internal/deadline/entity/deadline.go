package entity

import (
	"time"

	"github.com/shandysiswandi/coursepulse/internal/shared/urgency"
)

type Kind string

const (
	KindAssignment Kind = "assignment"
	KindQuiz       Kind = "quiz"
)

func (k Kind) IsValid() bool { return k == KindAssignment || k == KindQuiz }

type Item struct {
	ID       int64
	Kind     Kind
	CourseID int64
	Title    string
	DueAt    time.Time
	Visible  bool
}

type Upcoming struct {
	Item
	Tier urgency.Tier
}
