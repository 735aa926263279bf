package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/not-right-now/video-to-webp/internal/domain/entity"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.ConversionJob) error
	Update(ctx context.Context, job *entity.ConversionJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ConversionJob, error)
}
