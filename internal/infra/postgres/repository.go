package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/not-right-now/video-to-webp/internal/domain/entity"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.ConversionJob) error {
	query := `
		INSERT INTO conversion_jobs (
			id, user_id, video_key, webp_key, status, frames_used,
			achieved_quality, file_size, source_duration, output_bytes,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, job.WebPKey, string(job.Status),
		job.FramesUsed, job.AchievedQuality, job.FileSize,
		job.SourceDuration, job.OutputBytes,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.ConversionJob) error {
	query := `
		UPDATE conversion_jobs SET
			status=$2, webp_key=$3, frames_used=$4, achieved_quality=$5,
			source_duration=$6, output_bytes=$7, attempt=$8,
			error_message=$9, updated_at=$10, completed_at=$11
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.WebPKey, job.FramesUsed,
		job.AchievedQuality, job.SourceDuration, job.OutputBytes,
		job.Attempt, job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ConversionJob, error) {
	query := `
		SELECT id, user_id, video_key, webp_key, status, frames_used,
			achieved_quality, file_size, source_duration, output_bytes,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		FROM conversion_jobs WHERE id=$1`

	job := &entity.ConversionJob{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &job.WebPKey, &status,
		&job.FramesUsed, &job.AchievedQuality, &job.FileSize,
		&job.SourceDuration, &job.OutputBytes,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}
