package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConversionJob(t *testing.T) {
	job := NewConversionJob("user-1", "user-1/clip.mp4", 1024, 3)

	assert.NotEqual(t, "", job.ID.String())
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, "user-1", job.UserID)
	assert.Equal(t, "user-1/clip.mp4", job.VideoKey)
	assert.Equal(t, int64(1024), job.FileSize)
	assert.Equal(t, 0, job.Attempt)
	assert.Equal(t, 3, job.MaxAttempts)
}

func TestJobLifecycle(t *testing.T) {
	job := NewConversionJob("user-1", "clip.mp4", 1024, 3)

	job.MarkProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.Equal(t, 1, job.Attempt)

	job.MarkCompleted("user-1/abc.webp", 60, 80, 10.5, 200_000)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, "user-1/abc.webp", job.WebPKey)
	assert.Equal(t, 60, job.FramesUsed)
	assert.Equal(t, 80, job.AchievedQuality)
	assert.Equal(t, 10.5, job.SourceDuration)
	assert.Equal(t, int64(200_000), job.OutputBytes)
}

func TestJobRetryBudget(t *testing.T) {
	job := NewConversionJob("user-1", "clip.mp4", 1024, 2)
	assert.True(t, job.CanRetry())

	job.MarkProcessing()
	job.MarkFailed("decode blew up")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "decode blew up", job.ErrorMessage)
	assert.True(t, job.CanRetry())

	job.MarkProcessing()
	job.MarkFailed("decode blew up again")
	assert.False(t, job.CanRetry())
}
