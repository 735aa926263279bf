package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/not-right-now/video-to-webp/internal/converter"
	"github.com/not-right-now/video-to-webp/internal/domain/entity"
)

func newJobConfigUseCase(defaults converter.Config) *ConvertVideoUseCase {
	return NewConvertVideoUseCase(
		nil, nil, nil, nil, nil, nil, nil, nil,
		zap.NewNop(),
		ConvertVideoConfig{TempDir: "/tmp", MaxRetries: 3, Defaults: defaults},
	)
}

func TestJobConfigDefaultsWhenOptionsEmpty(t *testing.T) {
	uc := newJobConfigUseCase(converter.DefaultConfig())

	cfg := uc.jobConfig(entity.ConversionOptions{})

	assert.Equal(t, converter.DefaultQuality, cfg.Quality)
	assert.Equal(t, converter.DefaultMaxFrames, cfg.MaxFrames)
	assert.True(t, cfg.PreserveTiming)
	assert.Zero(t, cfg.SizeTargetBytes)
}

func TestJobConfigOptionsOverrideDefaults(t *testing.T) {
	uc := newJobConfigUseCase(converter.DefaultConfig())

	off := false
	cfg := uc.jobConfig(entity.ConversionOptions{
		Width:           640,
		Quality:         50,
		FPS:             12,
		PreserveTiming:  &off,
		MaxFrames:       90,
		SizeTargetBytes: 500 * 1024,
	})

	assert.Equal(t, 640, cfg.Width)
	assert.Zero(t, cfg.Height, "unset height stays at the default")
	assert.Equal(t, 50, cfg.Quality)
	assert.Equal(t, 12.0, cfg.FPS)
	assert.False(t, cfg.PreserveTiming)
	assert.Equal(t, 90, cfg.MaxFrames)
	assert.Equal(t, int64(500*1024), cfg.SizeTargetBytes)
}

func TestJobConfigNilPreserveTimingKeepsDefault(t *testing.T) {
	defaults := converter.DefaultConfig()
	uc := newJobConfigUseCase(defaults)

	cfg := uc.jobConfig(entity.ConversionOptions{Quality: 60})

	assert.True(t, cfg.PreserveTiming, "absent flag must not flip the default")
	assert.Equal(t, 60, cfg.Quality)
}
