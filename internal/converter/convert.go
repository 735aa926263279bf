package converter

import (
	"context"

	"go.uber.org/zap"

	"github.com/not-right-now/video-to-webp/internal/infra/ffmpeg"
	"github.com/not-right-now/video-to-webp/internal/infra/imaging"
	"github.com/not-right-now/video-to-webp/internal/infra/webp"
)

// ConvertFile is the one-shot entry point: it wires the default ffmpeg
// decoder, imaging transformer and WebP encoder and runs a single
// conversion. Callers doing repeated conversions with shared settings should
// construct a Converter once instead.
func ConvertFile(ctx context.Context, inputPath, outputPath string, cfg Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conv, err := New(
		ffmpeg.NewDecoder(logger),
		imaging.NewTransformer(),
		webp.NewEncoder(logger),
		cfg,
		logger,
	)
	if err != nil {
		return nil, err
	}
	return conv.Convert(ctx, inputPath, outputPath)
}
