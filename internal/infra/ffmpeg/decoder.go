package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kovidgoyal/imaging"
	ffmpeg_go "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"github.com/not-right-now/video-to-webp/internal/domain/port"
)

// trailingSlack is how many frames past the requested bound are decoded so
// the final kept frame's display duration can be estimated from a real
// successor timestamp.
const trailingSlack = 2

// Decoder extracts frames and timing metadata from a video container by
// driving ffmpeg/ffprobe.
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// Decode dumps up to maxFrames (+slack) frames to a temporary directory as
// PNG, loads them with their presentation timestamps and returns the lot
// together with container metadata. maxFrames <= 0 decodes the whole stream.
func (d *Decoder) Decode(ctx context.Context, path string, maxFrames int) (*port.DecodedStream, error) {
	meta, err := d.probeMetadata(path)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "vid2webp-frames-")
	if err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pattern := filepath.Join(tmpDir, "frame_%06d.png")
	outArgs := ffmpeg_go.KwArgs{"vsync": "0"}
	if maxFrames > 0 {
		outArgs["frames:v"] = maxFrames + trailingSlack
	}

	var stderr bytes.Buffer
	err = ffmpeg_go.Input(path).
		Output(pattern, outArgs).
		OverWriteOutput().
		WithErrorOutput(&stderr).
		Silent(true).
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction: %w, output: %s", err, stderr.String())
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "frame_*.png"))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frames decoded from %s", path)
	}
	sort.Strings(files)

	timestamps, tsErr := d.frameTimestamps(ctx, path, len(files))
	if tsErr != nil {
		d.logger.Warn("could not read frame timestamps, synthesizing from frame rate",
			zap.String("input", path), zap.Error(tsErr))
	}

	frames := make([]port.SourceFrame, 0, len(files))
	for i, file := range files {
		img, err := imaging.Open(file)
		if err != nil {
			return nil, fmt.Errorf("load frame %s: %w", file, err)
		}
		frames = append(frames, port.SourceFrame{
			Image:     img,
			Timestamp: frameTimestamp(timestamps, i, meta.NativeFPS),
			Index:     i,
		})
	}

	if meta.Width == 0 || meta.Height == 0 {
		bounds := frames[0].Image.Bounds()
		meta.Width = bounds.Dx()
		meta.Height = bounds.Dy()
	}
	if meta.Duration <= 0 {
		// Some containers misreport or omit duration; fall back to the last
		// decoded timestamp plus one native frame interval.
		meta.Duration = frames[len(frames)-1].Timestamp + fpsInterval(meta.NativeFPS)
	}
	if meta.FrameCountEstimate == 0 {
		meta.FrameCountEstimate = len(frames)
	}

	d.logger.Info("frames decoded",
		zap.String("input", path),
		zap.Int("count", len(frames)),
		zap.Duration("duration", meta.Duration),
		zap.Float64("native_fps", meta.NativeFPS),
	)

	return &port.DecodedStream{Frames: frames, Metadata: meta}, nil
}

func (d *Decoder) probeMetadata(path string) (port.StreamMetadata, error) {
	raw, err := ffmpeg_go.Probe(path)
	if err != nil {
		return port.StreamMetadata{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(raw)
}

// frameTimestamps reads per-frame presentation timestamps without decoding
// pixel data. The expected count is only a hint for allocation.
func (d *Decoder) frameTimestamps(ctx context.Context, path string, hint int) ([]time.Duration, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "frame=pts_time",
		"-of", "csv=p=0",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe frames: %w", err)
	}
	return parseTimestamps(string(out), hint), nil
}

// parseProbe extracts the first video stream's metadata from ffprobe JSON.
func parseProbe(raw string) (port.StreamMetadata, error) {
	var info struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType    string `json:"codec_type"`
			Width        int    `json:"width"`
			Height       int    `json:"height"`
			AvgFrameRate string `json:"avg_frame_rate"`
			RFrameRate   string `json:"r_frame_rate"`
			NbFrames     string `json:"nb_frames"`
			Duration     string `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return port.StreamMetadata{}, fmt.Errorf("parse probe output: %w", err)
	}

	var meta port.StreamMetadata
	found := false
	for _, s := range info.Streams {
		if s.CodecType != "video" {
			continue
		}
		found = true
		meta.Width = s.Width
		meta.Height = s.Height

		meta.NativeFPS = parseRational(s.AvgFrameRate)
		if meta.NativeFPS <= 0 {
			meta.NativeFPS = parseRational(s.RFrameRate)
		}
		if n, err := strconv.Atoi(s.NbFrames); err == nil {
			meta.FrameCountEstimate = n
		}
		if meta.Duration <= 0 {
			meta.Duration = parseSeconds(s.Duration)
		}
		break
	}
	if !found {
		return port.StreamMetadata{}, fmt.Errorf("no video stream found")
	}

	if d := parseSeconds(info.Format.Duration); d > 0 {
		meta.Duration = d
	}
	if meta.NativeFPS <= 0 {
		meta.NativeFPS = 30
	}
	if meta.FrameCountEstimate == 0 && meta.Duration > 0 {
		meta.FrameCountEstimate = int(meta.Duration.Seconds() * meta.NativeFPS)
	}
	return meta, nil
}

// parseTimestamps reads ffprobe csv output, one pts_time per line. Lines
// that do not parse ("N/A", side data) are skipped.
func parseTimestamps(out string, hint int) []time.Duration {
	if hint < 0 {
		hint = 0
	}
	ts := make([]time.Duration, 0, hint)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, ","))
		if line == "" {
			continue
		}
		secs, err := strconv.ParseFloat(line, 64)
		if err != nil {
			continue
		}
		ts = append(ts, time.Duration(secs*float64(time.Second)))
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}

// parseRational converts ffprobe rate strings like "30000/1001" or "25".
func parseRational(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseSeconds(s string) time.Duration {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func frameTimestamp(ts []time.Duration, i int, fps float64) time.Duration {
	if i < len(ts) {
		return ts[i]
	}
	return time.Duration(i) * fpsInterval(fps)
}

func fpsInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	return time.Duration(float64(time.Second) / fps)
}
