package webp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kovidgoyal/imaging"
	"go.uber.org/zap"

	"github.com/not-right-now/video-to-webp/internal/domain/port"
)

// Encoder muxes frames into an animated WebP with the libwebp command-line
// tools: img2webp for animations (it takes a per-frame duration, which the
// timing model depends on) and cwebp for single-frame output.
type Encoder struct {
	logger *zap.Logger
}

func NewEncoder(logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encoder{logger: logger}
}

func (e *Encoder) Encode(ctx context.Context, frames []port.AnimationFrame, quality int) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to encode")
	}

	tmpDir, err := os.MkdirTemp("", "vid2webp-encode-")
	if err != nil {
		return nil, fmt.Errorf("create encode dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = filepath.Join(tmpDir, fmt.Sprintf("frame_%04d.png", i))
		if err := imaging.Save(f.Image, paths[i]); err != nil {
			return nil, fmt.Errorf("dump frame %d: %w", i, err)
		}
	}

	outPath := filepath.Join(tmpDir, "out.webp")

	var cmd *exec.Cmd
	if len(frames) == 1 {
		cmd = exec.CommandContext(ctx, "cwebp", singleFrameArgs(paths[0], outPath, quality)...)
	} else {
		cmd = exec.CommandContext(ctx, "img2webp", animationArgs(paths, frames, outPath, quality)...)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s: %w, output: %s", cmd.Path, err, string(output))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read encoded webp: %w", err)
	}

	e.logger.Debug("webp encoded",
		zap.Int("frames", len(frames)),
		zap.Int("quality", quality),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

// animationArgs builds the img2webp invocation: global encode settings
// first, then each frame preceded by its display duration in milliseconds.
func animationArgs(paths []string, frames []port.AnimationFrame, outPath string, quality int) []string {
	args := []string{
		"-o", outPath,
		"-loop", "0",
		"-mixed",
		"-m", "6",
		"-q", strconv.Itoa(quality),
	}
	for i, f := range frames {
		args = append(args, "-d", strconv.FormatInt(durationMs(f.Duration), 10), paths[i])
	}
	return args
}

func singleFrameArgs(path, outPath string, quality int) []string {
	return []string{
		"-q", strconv.Itoa(quality),
		"-m", "6",
		path,
		"-o", outPath,
	}
}

func durationMs(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return ms
}
