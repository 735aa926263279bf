package converter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultQuality, cfg.Quality)
	assert.True(t, cfg.PreserveTiming)
	assert.Equal(t, DefaultMaxFrames, cfg.MaxFrames)
	assert.Zero(t, cfg.SizeTargetBytes)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := Config{PreserveTiming: true}.Normalize()
	assert.Equal(t, DefaultQuality, cfg.Quality)
	assert.Equal(t, DefaultFPS, cfg.FPS)
	assert.Equal(t, DefaultMaxFrames, cfg.MaxFrames)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := Config{Quality: 55, FPS: 12, MaxFrames: NoFrameLimit}.Normalize()
	assert.Equal(t, 55, cfg.Quality)
	assert.Equal(t, 12.0, cfg.FPS)
	assert.Equal(t, NoFrameLimit, cfg.MaxFrames)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative width", Config{Width: -1, Quality: 80, FPS: 30, MaxFrames: 180}},
		{"negative height", Config{Height: -10, Quality: 80, FPS: 30, MaxFrames: 180}},
		{"quality over 100", Config{Quality: 101, FPS: 30, MaxFrames: 180}},
		{"negative quality", Config{Quality: -1, FPS: 30, MaxFrames: 180}},
		{"zero fps in manual mode", Config{Quality: 80, FPS: 0, PreserveTiming: false, MaxFrames: 180}},
		{"negative frame ceiling", Config{Quality: 80, FPS: 30, MaxFrames: -5}},
		{"negative size target", Config{Quality: 80, FPS: 30, MaxFrames: 180, SizeTargetBytes: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestValidateAllowsManualModeWithoutFPSCheckWhenPreserving(t *testing.T) {
	// FPS is ignored while timing preservation is on.
	cfg := Config{Quality: 80, FPS: 0, PreserveTiming: true, MaxFrames: 180}
	assert.NoError(t, cfg.Validate())
}
