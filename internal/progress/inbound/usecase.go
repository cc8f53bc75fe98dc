package inbound

import (
	"context"

	"github.com/shandysiswandi/coursepulse/internal/progress/entity"
	"github.com/shandysiswandi/coursepulse/internal/progress/usecase"
)

type ucConsumer interface {
	ConsumeMaterialProgress(ctx context.Context, in usecase.ConsumeMaterialProgressInput) error
}

type uc interface {
	ucConsumer

	RecordMaterialProgress(ctx context.Context, in usecase.RecordMaterialProgressInput) (*entity.Summary, error)
	GetSummary(ctx context.Context, in usecase.GetSummaryInput) (*entity.Summary, error)
	ListSummaries(ctx context.Context, in usecase.ListSummariesInput) ([]entity.Summary, error)
	ListMaterials(ctx context.Context, in usecase.ListMaterialsInput) ([]entity.MaterialRecord, error)
}
