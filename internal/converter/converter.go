package converter

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/not-right-now/video-to-webp/internal/domain/port"
	"github.com/not-right-now/video-to-webp/internal/infra/metrics"
)

// Result is the terminal value of one conversion call. The output file only
// exists when Success is true.
type Result struct {
	Success         bool
	OutputPath      string
	BytesWritten    int64
	FramesUsed      int
	AchievedQuality int
	SourceDuration  time.Duration
	OutputDuration  time.Duration
}

// Converter runs the decode → select → transform → encode pipeline with a
// fixed configuration. It holds no mutable state across calls, so a single
// instance may be shared by concurrent conversions.
type Converter struct {
	decoder     port.FrameDecoder
	transformer port.FrameTransformer
	encoder     port.AnimationEncoder
	cfg         Config
	logger      *zap.Logger
}

// New validates cfg (after filling defaults) and returns a reusable
// converter.
func New(
	decoder port.FrameDecoder,
	transformer port.FrameTransformer,
	encoder port.AnimationEncoder,
	cfg Config,
	logger *zap.Logger,
) (*Converter, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		decoder:     decoder,
		transformer: transformer,
		encoder:     encoder,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Config returns the converter's effective configuration.
func (c *Converter) Config() Config {
	return c.cfg
}

// Convert turns the video at inputPath into an animated WebP at outputPath.
// The output file is created atomically on success and never left behind on
// failure.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	log := c.logger.With(zap.String("input", inputPath), zap.String("output", outputPath))

	if _, err := os.Stat(inputPath); err != nil {
		return nil, fmt.Errorf("%w: input file: %v", ErrDecode, err)
	}

	stream, err := c.decoder.Decode(ctx, inputPath, decodeBound(c.cfg.MaxFrames))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	meta := stream.Metadata
	metrics.FramesDecodedTotal.Add(float64(len(stream.Frames)))
	log.Info("video decoded",
		zap.Int("frames", len(stream.Frames)),
		zap.Duration("duration", meta.Duration),
		zap.Float64("native_fps", meta.NativeFPS),
		zap.Int("width", meta.Width),
		zap.Int("height", meta.Height),
	)

	outW, outH := targetDimensions(meta.Width, meta.Height, c.cfg.Width, c.cfg.Height)

	// When the decode resource bound truncated the stream, plan against the
	// decoded span instead of the container duration so frame sampling only
	// targets frames that actually exist.
	planDuration := meta.Duration
	if n := len(stream.Frames); meta.FrameCountEstimate > n {
		interval := encoderTick
		if meta.NativeFPS > 0 {
			interval = time.Duration(float64(time.Second) / meta.NativeFPS)
		}
		planDuration = stream.Frames[n-1].Timestamp - stream.Frames[0].Timestamp + interval
		log.Warn("decode truncated by resource bound, preserving timing of decoded span",
			zap.Int("decoded_frames", n),
			zap.Int("estimated_frames", meta.FrameCountEstimate),
			zap.Duration("span", planDuration),
		)
	}

	// Transformed frames are cached by source index: size-search probes
	// select overlapping subsets and the target dimensions never change
	// between probes.
	transformed := make(map[int]image.Image, len(stream.Frames))

	build := func(ctx context.Context, frameCeiling, quality int) ([]byte, SelectionPlan, error) {
		probeCfg := c.cfg
		probeCfg.MaxFrames = frameCeiling

		plan, err := BuildPlan(stream.Frames, planDuration, probeCfg)
		if err != nil {
			return nil, nil, err
		}

		animFrames := make([]port.AnimationFrame, 0, len(plan))
		for _, entry := range plan {
			img, ok := transformed[entry.FrameIndex]
			if !ok {
				img, err = c.transformer.Resize(stream.Frames[entry.FrameIndex].Image, outW, outH)
				if err != nil {
					return nil, nil, fmt.Errorf("%w: frame %d: %v", ErrTransform, entry.FrameIndex, err)
				}
				transformed[entry.FrameIndex] = img
			}
			animFrames = append(animFrames, port.AnimationFrame{Image: img, Duration: entry.Duration})
		}

		metrics.EncodeProbesTotal.Inc()
		data, err := c.encoder.Encode(ctx, animFrames, quality)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return data, plan, nil
	}

	var (
		data    []byte
		plan    SelectionPlan
		quality = c.cfg.Quality
	)
	if c.cfg.SizeTargetBytes > 0 {
		res, optErr := optimizeSize(ctx, c.cfg.SizeTargetBytes, c.cfg.MaxFrames, c.cfg.Quality, build)
		if optErr != nil {
			if res.exceeded {
				// Search exhausted: report the smallest probe so the caller
				// can see how far off the budget was, but write nothing.
				return &Result{
					Success:         false,
					OutputPath:      outputPath,
					FramesUsed:      len(res.plan),
					AchievedQuality: res.quality,
					SourceDuration:  meta.Duration,
					OutputDuration:  res.plan.TotalDuration(),
				}, optErr
			}
			return nil, optErr
		}
		data, plan, quality = res.data, res.plan, res.quality
		log.Info("size target met",
			zap.Int64("target_bytes", c.cfg.SizeTargetBytes),
			zap.Int("bytes", len(data)),
			zap.Int("frames", len(plan)),
			zap.Int("quality", quality),
		)
	} else {
		data, plan, err = build(ctx, c.cfg.MaxFrames, quality)
		if err != nil {
			return nil, err
		}
	}

	if err := writeAtomic(outputPath, data); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}

	result := &Result{
		Success:         true,
		OutputPath:      outputPath,
		BytesWritten:    int64(len(data)),
		FramesUsed:      len(plan),
		AchievedQuality: quality,
		SourceDuration:  meta.Duration,
		OutputDuration:  plan.TotalDuration(),
	}
	log.Info("conversion complete",
		zap.Int64("bytes_written", result.BytesWritten),
		zap.Int("frames_used", result.FramesUsed),
		zap.Duration("output_duration", result.OutputDuration),
	)
	return result, nil
}

// decodeOverscan widens the decode resource bound over the selection
// ceiling, so subsampling still spans the whole clip for typical sources
// while memory stays bounded for very long ones.
const decodeOverscan = 4

func decodeBound(maxFrames int) int {
	if maxFrames >= NoFrameLimit/decodeOverscan {
		return 0 // unbounded
	}
	return maxFrames * decodeOverscan
}

// targetDimensions resolves the output size: both zero passes the source
// through, a single zero derives the missing side from the source aspect
// ratio.
func targetDimensions(srcW, srcH, cfgW, cfgH int) (int, int) {
	switch {
	case cfgW == 0 && cfgH == 0:
		return srcW, srcH
	case srcW <= 0 || srcH <= 0:
		// No usable source dimensions to derive an aspect ratio from.
		return cfgW, cfgH
	case cfgW == 0:
		w := srcW * cfgH / srcH
		if w < 1 {
			w = 1
		}
		return w, cfgH
	case cfgH == 0:
		h := srcH * cfgW / srcW
		if h < 1 {
			h = 1
		}
		return cfgW, h
	default:
		return cfgW, cfgH
	}
}

// writeAtomic finalizes the output via temp-file-then-rename so a failed
// conversion never leaves a partial file at the destination.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".vid2webp-*.webp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp output: %w", err)
	}
	// CreateTemp opens the file as 0600; the finished artifact should carry
	// regular file permissions.
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}
