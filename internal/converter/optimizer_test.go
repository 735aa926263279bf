package converter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBuild produces an output whose byte length is frames*quality*scale, so
// both search axes shrink it predictably. Every probe is recorded.
func fakeBuild(scale int, probes *[][2]int) buildFunc {
	return func(_ context.Context, frames, quality int) ([]byte, SelectionPlan, error) {
		if probes != nil {
			*probes = append(*probes, [2]int{frames, quality})
		}
		plan := make(SelectionPlan, frames)
		for i := range plan {
			plan[i] = PlanEntry{FrameIndex: i, Duration: encoderTick}
		}
		return make([]byte, frames*quality*scale), plan, nil
	}
}

func TestOptimizeSizeAcceptsFirstProbe(t *testing.T) {
	var probes [][2]int
	res, err := optimizeSize(context.Background(), 200_000, 100, 80, fakeBuild(10, &probes))
	require.NoError(t, err)

	assert.Len(t, probes, 1)
	assert.Equal(t, [2]int{100, 80}, probes[0])
	assert.Equal(t, 80, res.quality)
	assert.Len(t, res.plan, 100)
	assert.False(t, res.exceeded)
}

func TestOptimizeSizeStepsQualityBeforeFrames(t *testing.T) {
	// 100 frames: q80 -> 80000, q70 -> 70000. Target sits between them.
	var probes [][2]int
	res, err := optimizeSize(context.Background(), 75_000, 100, 80, fakeBuild(10, &probes))
	require.NoError(t, err)

	require.Equal(t, [][2]int{{100, 80}, {100, 70}}, probes)
	assert.Equal(t, 70, res.quality)
	assert.Len(t, res.plan, 100)
	assert.Len(t, res.data, 70_000)
}

func TestOptimizeSizeHalvesFramesAfterQualityFloor(t *testing.T) {
	// The whole quality ladder at 100 frames overshoots (its floor probe
	// is 100*10*10 = 10000 bytes), so the frame count is halved and the
	// ladder restarted from the requested quality.
	var probes [][2]int
	res, err := optimizeSize(context.Background(), 7_000, 100, 80, fakeBuild(10, &probes))
	require.NoError(t, err)

	require.Len(t, probes, 16)
	assert.Equal(t, [2]int{100, 80}, probes[0])
	assert.Equal(t, [2]int{100, 10}, probes[7], "ladder must end on the quality floor")
	assert.Equal(t, [2]int{50, 80}, probes[8], "frame halving restarts the ladder at the requested quality")
	assert.Equal(t, 10, res.quality)
	assert.Len(t, res.plan, 50)
	assert.Len(t, res.data, 5_000)
}

func TestOptimizeSizeUnmetReturnsSmallest(t *testing.T) {
	res, err := optimizeSize(context.Background(), 10, 16, 80, fakeBuild(10, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeTargetUnmet))

	// Smallest achievable is the floor probe: 2 frames at quality 10.
	assert.True(t, res.exceeded)
	assert.Equal(t, 10, res.quality)
	assert.Len(t, res.plan, 2)
	assert.Len(t, res.data, 200)
}

func TestOptimizeSizeStopsAtTwoFrames(t *testing.T) {
	var probes [][2]int
	_, err := optimizeSize(context.Background(), 1, 9, 50, fakeBuild(1, &probes))
	require.Error(t, err)

	// Frame counts visited: 9, 4, 2. Never 1.
	for _, p := range probes {
		assert.GreaterOrEqual(t, p[0], minPlanSize)
	}
	assert.Equal(t, [2]int{2, 10}, probes[len(probes)-1])
}

func TestOptimizeSizePropagatesBuildErrors(t *testing.T) {
	boom := fmt.Errorf("probe blew up")
	_, err := optimizeSize(context.Background(), 100, 10, 80,
		func(context.Context, int, int) ([]byte, SelectionPlan, error) {
			return nil, nil, boom
		})
	require.ErrorIs(t, err, boom)
}

func TestQualityLadder(t *testing.T) {
	assert.Equal(t, []int{80, 70, 60, 50, 40, 30, 20, 10}, qualityLadder(80))
	assert.Equal(t, []int{75, 65, 55, 45, 35, 25, 15, 10}, qualityLadder(75))
	assert.Equal(t, []int{10}, qualityLadder(10))
	assert.Equal(t, []int{5}, qualityLadder(5))
}
