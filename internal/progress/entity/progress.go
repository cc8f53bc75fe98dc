package entity

import (
	"context"
	"time"
)

type Material struct {
	ID       int64
	CourseID int64
	Title    string
	Active   bool
}

type MaterialRecord struct {
	StudentID      int64
	MaterialID     int64
	CourseID       int64
	Status         Status
	ProgressPct    int
	TimeSpent      int64 // seconds
	LastAccessedAt time.Time
}

// Interaction is one incoming progress report for a material.
type Interaction struct {
	StudentID  int64
	MaterialID int64
	CourseID   int64
	Status     Status
	Progress   int
	TimeSpent  int64
	At         time.Time
	Reset      bool
}

type Summary struct {
	StudentID         int64
	CourseID          int64
	CompletedCount    int
	TotalCount        int
	OverallPct        int
	IsCompleted       bool
	CompletedAt       *time.Time
	LastActivityAt    *time.Time
	ReachedMilestones []string
}

// PairTx is the storage view of one (student, course) pair inside a
// transaction that holds the pair's lock.
type PairTx interface {
	GetRecord(ctx context.Context, studentID, materialID int64) (*MaterialRecord, error)
	UpsertRecord(ctx context.Context, rec MaterialRecord) error
	ListActiveRecords(ctx context.Context, studentID, courseID int64) ([]MaterialRecord, error)
	CountActiveMaterials(ctx context.Context, courseID int64) (int, error)
	GetSummary(ctx context.Context, studentID, courseID int64) (*Summary, error)
	SaveSummary(ctx context.Context, s Summary) error
}
