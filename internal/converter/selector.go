package converter

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/not-right-now/video-to-webp/internal/domain/port"
)

// encoderTick is the resolution of WebP frame durations (stored in
// milliseconds by the container). Rounding drift within a plan stays under
// one tick.
const encoderTick = time.Millisecond

// PlanEntry assigns a display duration to one surviving source frame.
type PlanEntry struct {
	FrameIndex int
	Duration   time.Duration
}

// SelectionPlan is the ordered list of surviving frames with their output
// display durations. It is built once per conversion attempt and consumed by
// the encoder; optimizer probes always build a fresh plan.
type SelectionPlan []PlanEntry

// TotalDuration is the playback length of the plan.
func (p SelectionPlan) TotalDuration() time.Duration {
	var total time.Duration
	for _, e := range p {
		total += e.Duration
	}
	return total
}

// BuildPlan decides which source frames survive and how long each one is
// displayed, honoring the frame ceiling in cfg.MaxFrames.
//
// With cfg.PreserveTiming, durations come from source timestamps so the plan
// plays back in the source's wall-clock length: when all frames fit under the
// ceiling each frame holds until the next one's timestamp and the final frame
// absorbs the remainder of the stream duration; when the source has more
// frames than the ceiling, frames are picked against an evenly spaced
// timestamp grid (closest frame at or before each grid point, earlier index
// on ties) and each pick holds for one grid step.
//
// Without PreserveTiming, min(N, ceiling) evenly sampled frames each hold for
// exactly 1/cfg.FPS.
func BuildPlan(frames []port.SourceFrame, total time.Duration, cfg Config) (SelectionPlan, error) {
	n := len(frames)
	if n == 0 {
		return nil, fmt.Errorf("%w: stream contains no frames", ErrDecode)
	}

	if !cfg.PreserveTiming {
		return uniformPlan(n, cfg)
	}

	if total <= 0 {
		// Duration metadata missing and no usable timestamps: fall back to
		// one tick per frame so the plan stays valid.
		total = time.Duration(n) * encoderTick
	}

	if n <= cfg.MaxFrames {
		return timestampPlan(frames, total), nil
	}
	return sampledPlan(frames, total, cfg.MaxFrames), nil
}

// uniformPlan implements manual-fps mode: source timestamps are ignored.
func uniformPlan(n int, cfg Config) (SelectionPlan, error) {
	count := n
	if count > cfg.MaxFrames {
		count = cfg.MaxFrames
	}
	frameDur := time.Duration(float64(time.Second) / cfg.FPS)
	if frameDur < encoderTick {
		frameDur = encoderTick
	}

	plan := make(SelectionPlan, 0, count)
	for _, idx := range evenIndices(n, count) {
		plan = append(plan, PlanEntry{FrameIndex: idx, Duration: frameDur})
	}
	return plan, nil
}

// timestampPlan keeps every frame; frame i is displayed until frame i+1 was
// presented in the source, and the last frame absorbs the stream tail.
func timestampPlan(frames []port.SourceFrame, total time.Duration) SelectionPlan {
	n := len(frames)
	base := frames[0].Timestamp
	totalMs := durationMs(total)

	plan := make(SelectionPlan, 0, n)
	var accMs int64
	for i := 0; i < n-1; i++ {
		d := durationMs(frames[i+1].Timestamp-base) - durationMs(frames[i].Timestamp-base)
		if d < 1 {
			d = 1
		}
		accMs += d
		plan = append(plan, PlanEntry{FrameIndex: i, Duration: msDuration(d)})
	}

	last := totalMs - accMs
	if last < 1 {
		last = 1
	}
	return append(plan, PlanEntry{FrameIndex: n - 1, Duration: msDuration(last)})
}

// sampledPlan selects exactly ceiling frames against an evenly spaced target
// grid spanning [0, total). Selected indices are strictly increasing: if a
// sparse stretch of timestamps would re-pick a frame, the next unused index
// is taken instead so the plan stays deterministic and exactly ceiling long.
func sampledPlan(frames []port.SourceFrame, total time.Duration, ceiling int) SelectionPlan {
	n := len(frames)
	base := frames[0].Timestamp
	totalMs := durationMs(total)

	tsMs := make([]int64, n)
	for i, f := range frames {
		tsMs[i] = durationMs(f.Timestamp - base)
	}

	gridMs := func(k int) int64 {
		return int64(math.Round(float64(k) * float64(totalMs) / float64(ceiling)))
	}

	plan := make(SelectionPlan, 0, ceiling)
	prev := -1
	for k := 0; k < ceiling; k++ {
		target := gridMs(k)

		// Latest frame at or before the grid point; equal timestamps
		// resolve to the earliest index of the run.
		pick := sort.Search(n, func(i int) bool { return tsMs[i] > target }) - 1
		if pick < 0 {
			pick = 0
		}
		for pick > 0 && tsMs[pick-1] == tsMs[pick] {
			pick--
		}

		// A sparse or stalled stretch of timestamps would re-pick a frame;
		// take the next unused index instead so indices stay strictly
		// increasing and the plan stays exactly ceiling long.
		if pick <= prev {
			pick = prev + 1
		}
		// Leave one unused index per remaining grid point, so a cluster of
		// early timestamps under a long trailing gap cannot exhaust the
		// frame range before the grid does.
		if max := n - ceiling + k; pick > max {
			pick = max
		}
		prev = pick

		var d int64
		if k == ceiling-1 {
			d = totalMs - gridMs(k)
		} else {
			d = gridMs(k+1) - gridMs(k)
		}
		if d < 1 {
			d = 1
		}
		plan = append(plan, PlanEntry{FrameIndex: pick, Duration: msDuration(d)})
	}
	return plan
}

// evenIndices spreads count picks evenly across [0, n).
func evenIndices(n, count int) []int {
	if count <= 0 || n <= 0 {
		return nil
	}
	if count == 1 {
		return []int{0}
	}
	if count >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, count)
	for i := range out {
		out[i] = i * (n - 1) / (count - 1)
	}
	return out
}

func durationMs(d time.Duration) int64 {
	return int64(math.Round(float64(d) / float64(time.Millisecond)))
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
