package converter

import (
	"context"
	"fmt"
)

// Size-search step constants. Quality drops in fixed decrements to a floor
// before the frame count is halved; both axes are monotonic so the search is
// deterministic and terminates.
const (
	qualityStep  = 10
	qualityFloor = 10
	minPlanSize  = 2
)

// buildFunc runs one full conversion probe (selection, transform, encode) at
// the given frame ceiling and quality and returns the encoded bytes with the
// plan that produced them.
type buildFunc func(ctx context.Context, frameCeiling, quality int) ([]byte, SelectionPlan, error)

type sizeResult struct {
	data     []byte
	plan     SelectionPlan
	quality  int
	exceeded bool
}

// optimizeSize searches the (frame count, quality) space for the largest
// encoding at or under target bytes, preferring frame fidelity and quality
// over aggressive downsampling: the requested settings are probed first and
// accepted outright when they fit, quality is stepped down next, and only
// then is the frame ceiling halved (to a floor of two frames, below which an
// animation stops being one).
//
// When even the floor probe is too large, the smallest achieved result is
// returned together with ErrSizeTargetUnmet so callers can detect that the
// budget was missed; the target is never exceeded silently.
func optimizeSize(ctx context.Context, target int64, startFrames, startQuality int, build buildFunc) (sizeResult, error) {
	var best sizeResult
	haveBest := false

	frames := startFrames
	for {
		for _, q := range qualityLadder(startQuality) {
			data, plan, err := build(ctx, frames, q)
			if err != nil {
				return sizeResult{}, err
			}

			res := sizeResult{data: data, plan: plan, quality: q}
			if int64(len(data)) <= target {
				return res, nil
			}
			if !haveBest || len(data) < len(best.data) {
				best = res
				haveBest = true
			}
		}

		if frames <= minPlanSize {
			break
		}
		frames /= 2
		if frames < minPlanSize {
			frames = minPlanSize
		}
	}

	best.exceeded = true
	return best, fmt.Errorf("%w: smallest achievable encoding is %d bytes (target %d)",
		ErrSizeTargetUnmet, len(best.data), target)
}

// qualityLadder lists the qualities probed at one frame count, from the
// requested value down to the floor in fixed steps. A request already at or
// below the floor is probed as-is.
func qualityLadder(start int) []int {
	if start <= qualityFloor {
		return []int{start}
	}
	ladder := make([]int, 0, (start-qualityFloor)/qualityStep+2)
	for q := start; q > qualityFloor; q -= qualityStep {
		ladder = append(ladder, q)
	}
	return append(ladder, qualityFloor)
}
