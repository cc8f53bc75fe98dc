package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/progress/entity"
)

type GetSummaryInput struct {
	StudentID int64 `validate:"required,gt=0"`
	CourseID  int64 `validate:"required,gt=0"`
}

func (s *Usecase) GetSummary(ctx context.Context, in GetSummaryInput) (*entity.Summary, error) {
	ctx, span := s.startSpan(ctx, "GetSummary")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	summary, err := s.repoDB.GetSummary(ctx, in.StudentID, in.CourseID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("course progress not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get summary", "student_id", in.StudentID, "course_id", in.CourseID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return summary, nil
}

type ListSummariesInput struct {
	StudentID int64 `validate:"required,gt=0"`
}

func (s *Usecase) ListSummaries(ctx context.Context, in ListSummariesInput) ([]entity.Summary, error) {
	ctx, span := s.startSpan(ctx, "ListSummaries")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	items, err := s.repoDB.ListSummaries(ctx, in.StudentID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list summaries", "student_id", in.StudentID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

type ListMaterialsInput struct {
	StudentID int64 `validate:"required,gt=0"`
	CourseID  int64 `validate:"required,gt=0"`
}

func (s *Usecase) ListMaterials(ctx context.Context, in ListMaterialsInput) ([]entity.MaterialRecord, error) {
	ctx, span := s.startSpan(ctx, "ListMaterials")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	items, err := s.repoDB.ListMaterialRecords(ctx, in.StudentID, in.CourseID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list material records", "student_id", in.StudentID, "course_id", in.CourseID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}
