package entity

import (
	"slices"
	"strconv"
	"time"
)

const (
	MilestoneStarted   = "started"
	MilestoneCompleted = "completed"
)

// MergeRecord applies in to cur (nil on first interaction). Without Reset
// every field merges by max, so applying the same set of interactions in
// any order, any number of times, gives the same record. regressed reports
// an incoming status lower than the stored one; that status is ignored.
func MergeRecord(cur *MaterialRecord, in Interaction) (rec MaterialRecord, regressed bool) {
	incoming := MaterialRecord{
		StudentID:      in.StudentID,
		MaterialID:     in.MaterialID,
		CourseID:       in.CourseID,
		Status:         in.Status,
		ProgressPct:    clampPct(in.Progress),
		TimeSpent:      max(in.TimeSpent, 0),
		LastAccessedAt: in.At,
	}
	if incoming.Status == StatusCompleted {
		incoming.ProgressPct = 100
	}

	if cur == nil || in.Reset {
		return incoming, false
	}

	rec = *cur
	if in.Status < cur.Status {
		regressed = true
	} else {
		rec.Status = in.Status
	}
	rec.ProgressPct = max(cur.ProgressPct, incoming.ProgressPct)
	rec.TimeSpent = max(cur.TimeSpent, incoming.TimeSpent)
	if incoming.LastAccessedAt.After(cur.LastAccessedAt) {
		rec.LastAccessedAt = incoming.LastAccessedAt
	}
	if rec.Status == StatusCompleted {
		rec.ProgressPct = 100
	}
	return rec, regressed
}

// RoundPct is completed/total*100 rounded half-up, 0 for an empty course.
func RoundPct(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (completed*200 + total) / (2 * total)
}

// ComputeSummary derives the summary from every record of the pair
// (restricted to active materials) and the active material count. prev
// carries completed_at and the reached milestones forward.
func ComputeSummary(studentID, courseID int64, records []MaterialRecord, total int, prev *Summary, now time.Time) Summary {
	s := Summary{StudentID: studentID, CourseID: courseID, TotalCount: total}

	for _, r := range records {
		if r.Status == StatusCompleted {
			s.CompletedCount++
		}
		if s.LastActivityAt == nil || r.LastAccessedAt.After(*s.LastActivityAt) {
			at := r.LastAccessedAt
			s.LastActivityAt = &at
		}
	}
	s.CompletedCount = min(s.CompletedCount, total)
	s.OverallPct = RoundPct(s.CompletedCount, total)
	s.IsCompleted = total > 0 && s.CompletedCount == total

	if prev != nil {
		s.ReachedMilestones = slices.Clone(prev.ReachedMilestones)
	}

	if s.IsCompleted {
		switch {
		case prev != nil && prev.IsCompleted && prev.CompletedAt != nil:
			s.CompletedAt = prev.CompletedAt
		default:
			at := now
			s.CompletedAt = &at
		}
	}
	return s
}

type MilestoneConfig struct {
	// Percentages; 100 is represented by MilestoneCompleted.
	Milestones  []int
	EmitStarted bool
}

// CrossedMilestones returns the milestones next reaches for the first time
// and next with them recorded in ReachedMilestones. A completion in the
// same step absorbs percentage milestones without emitting them.
func CrossedMilestones(prev *Summary, next Summary, cfg MilestoneConfig) ([]string, Summary) {
	reached := make(map[string]struct{}, len(next.ReachedMilestones))
	for _, m := range next.ReachedMilestones {
		reached[m] = struct{}{}
	}

	var out []string
	mark := func(m string, emit bool) {
		if _, ok := reached[m]; ok {
			return
		}
		reached[m] = struct{}{}
		next.ReachedMilestones = append(next.ReachedMilestones, m)
		if emit {
			out = append(out, m)
		}
	}

	if next.LastActivityAt != nil {
		mark(MilestoneStarted, cfg.EmitStarted)
	}

	pcts := slices.Clone(cfg.Milestones)
	slices.Sort(pcts)
	for _, p := range slices.Compact(pcts) {
		if p <= 0 || p >= 100 || next.OverallPct < p {
			continue
		}
		mark(strconv.Itoa(p), !next.IsCompleted)
	}

	wasCompleted := prev != nil && prev.IsCompleted
	if next.IsCompleted && !wasCompleted {
		mark(MilestoneCompleted, true)
	}

	return out, next
}

func clampPct(v int) int {
	return min(max(v, 0), 100)
}
