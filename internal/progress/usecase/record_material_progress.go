package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/progress/entity"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type RecordMaterialProgressInput struct {
	StudentID   int64     `validate:"required,gt=0"`
	MaterialID  int64     `validate:"required,gt=0"`
	CourseID    int64     `validate:"omitempty,gt=0"`
	Status      string    `validate:"required,oneof=not_started in_progress completed"`
	ProgressPct int       `validate:"gte=0,lte=100"`
	TimeSpent   int64     `validate:"gte=0"`
	Timestamp   time.Time `validate:"required"`
	Reset       bool
}

// RecordMaterialProgress applies one interaction and recomputes the course
// summary of the pair. Milestones reached for the first time are published
// after commit; publishing problems are logged only.
func (s *Usecase) RecordMaterialProgress(ctx context.Context, in RecordMaterialProgressInput) (_ *entity.Summary, err error) {
	ctx, span := s.startSpan(ctx, "RecordMaterialProgress")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	status, _ := entity.ParseStatus(in.Status)

	material, err := s.repoDB.GetMaterial(ctx, in.MaterialID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("material not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get material", "material_id", in.MaterialID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !material.Active || (in.CourseID != 0 && in.CourseID != material.CourseID) {
		return nil, goerror.NewBusiness("material not found", goerror.CodeNotFound)
	}

	enrolled, err := s.repoDB.IsEnrolled(ctx, in.StudentID, material.CourseID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo check enrollment", "student_id", in.StudentID, "course_id", material.CourseID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !enrolled {
		return nil, goerror.NewBusiness("enrollment not found", goerror.CodeNotFound)
	}

	interaction := entity.Interaction{
		StudentID:  in.StudentID,
		MaterialID: in.MaterialID,
		CourseID:   material.CourseID,
		Status:     status,
		Progress:   in.ProgressPct,
		TimeSpent:  in.TimeSpent,
		At:         in.Timestamp.UTC(),
		Reset:      in.Reset,
	}

	key := pairKey(in.StudentID, material.CourseID)
	s.locks.Lock(key)
	defer func() { _ = s.locks.Unlock(key) }()

	var (
		summary    entity.Summary
		milestones []string
	)
	err = retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		var txErr error
		summary, milestones, txErr = s.aggregate(ctx, interaction)
		if errors.Is(txErr, goerror.ErrSerialization) {
			slog.WarnContext(ctx, "progress aggregation conflict, retrying", "student_id", in.StudentID, "course_id", material.CourseID)
			return retry.RetryableError(txErr)
		}
		return txErr
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to aggregate course progress", "student_id", in.StudentID, "course_id", material.CourseID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.emit(ctx, summary, milestones)

	return &summary, nil
}

func (s *Usecase) aggregate(ctx context.Context, in entity.Interaction) (summary entity.Summary, milestones []string, err error) {
	err = s.repoDB.InPairTx(ctx, in.StudentID, in.CourseID, func(ctx context.Context, tx entity.PairTx) error {
		cur, err := tx.GetRecord(ctx, in.StudentID, in.MaterialID)
		if err != nil && !errors.Is(err, goerror.ErrNotFound) {
			return err
		}

		rec, regressed := entity.MergeRecord(cur, in)
		if regressed {
			slog.WarnContext(ctx, "ignored material status regression",
				"student_id", in.StudentID,
				"material_id", in.MaterialID,
				"stored_status", cur.Status.String(),
				"incoming_status", in.Status.String(),
			)
		}
		if err := tx.UpsertRecord(ctx, rec); err != nil {
			return err
		}

		records, err := tx.ListActiveRecords(ctx, in.StudentID, in.CourseID)
		if err != nil {
			return err
		}
		total, err := tx.CountActiveMaterials(ctx, in.CourseID)
		if err != nil {
			return err
		}
		prev, err := tx.GetSummary(ctx, in.StudentID, in.CourseID)
		if err != nil && !errors.Is(err, goerror.ErrNotFound) {
			return err
		}

		next := entity.ComputeSummary(in.StudentID, in.CourseID, records, total, prev, s.clock.Now())
		milestones, next = entity.CrossedMilestones(prev, next, s.milestoneConfig())
		summary = next

		return tx.SaveSummary(ctx, next)
	})
	return summary, milestones, err
}

func (s *Usecase) emit(ctx context.Context, summary entity.Summary, milestones []string) {
	for _, m := range milestones {
		ev := event.CourseProgressChanged{
			StudentID:  summary.StudentID,
			CourseID:   summary.CourseID,
			Milestone:  m,
			OverallPct: summary.OverallPct,
			OccurredAt: s.clock.Now(),
		}

		slog.InfoContext(ctx, "course progress milestone reached",
			"student_id", ev.StudentID,
			"course_id", ev.CourseID,
			"milestone", m,
			"overall_pct", ev.OverallPct,
		)

		if s.bus != nil {
			s.bus.Publish(ctx, ev)
		}
		if s.repoMQ != nil {
			if err := s.repoMQ.PublishProgressChanged(ctx, ev); err != nil {
				slog.ErrorContext(ctx, "failed to publish course progress changed", "student_id", ev.StudentID, "course_id", ev.CourseID, "milestone", m, "error", err)
			}
		}
	}
}

func pairKey(studentID, courseID int64) string {
	return strconv.FormatInt(studentID, 10) + ":" + strconv.FormatInt(courseID, 10)
}
