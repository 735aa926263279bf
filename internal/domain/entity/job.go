package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// ConversionJob tracks one video-to-WebP conversion request through the
// worker pipeline.
type ConversionJob struct {
	ID              uuid.UUID
	UserID          string
	VideoKey        string
	WebPKey         string
	Status          JobStatus
	FramesUsed      int
	AchievedQuality int
	FileSize        int64
	SourceDuration  float64
	OutputBytes     int64
	Attempt         int
	MaxAttempts     int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewConversionJob(userID, videoKey string, fileSize int64, maxAttempts int) *ConversionJob {
	now := time.Now().UTC()
	return &ConversionJob{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *ConversionJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *ConversionJob) MarkCompleted(webpKey string, framesUsed, quality int, sourceDuration float64, outputBytes int64) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.WebPKey = webpKey
	j.FramesUsed = framesUsed
	j.AchievedQuality = quality
	j.SourceDuration = sourceDuration
	j.OutputBytes = outputBytes
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *ConversionJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *ConversionJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
