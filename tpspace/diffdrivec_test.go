package tpspace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDiffDriveC() *DiffDriveC {
	return NewDiffDriveC(121, 1.0, 1.0, 0.1, 1.0, Circle{R: 0.3})
}

func TestDiffDriveCInverseMapStraightAhead(t *testing.T) {
	t.Parallel()
	p := newTestDiffDriveC()
	ctx := DefaultContext()

	k, d, exact := p.InverseMap(ctx, 1.0, 0)
	assert.True(t, exact)
	assert.Equal(t, p.Alpha2Index(0), k)
	assert.InDelta(t, 1.0, d, 1e-9) // refDistance is 1, so normalized == absolute here
}

func TestDiffDriveCInverseMapStraightBehind(t *testing.T) {
	t.Parallel()
	p := newTestDiffDriveC()
	ctx := DefaultContext()

	// x<0, K=+1: sign mismatch branch, clamps to the last index with a large inexact distance.
	k, _, exact := p.InverseMap(ctx, -1.0, 0)
	assert.False(t, exact)
	assert.Equal(t, p.AlphaCount()-1, k)
}

func TestDiffDriveCInverseMapCurvedTarget(t *testing.T) {
	t.Parallel()
	p := newTestDiffDriveC()
	ctx := DefaultContext()

	k, d, _ := p.InverseMap(ctx, 0.5, 0.5)
	require.GreaterOrEqual(t, k, 0)
	require.Less(t, k, p.AlphaCount())
	assert.Greater(t, d, 0.0)
}

func TestDiffDriveCForwardInverseRoundTrip(t *testing.T) {
	t.Parallel()
	p := newTestDiffDriveC()
	ctx := DefaultContext()

	for _, k := range []int{p.AlphaCount() / 2, p.AlphaCount()/2 + 10, p.AlphaCount()/2 - 10} {
		step, ok := p.GetPathStepForDist(ctx, k, 0.3)
		require.True(t, ok)
		pose := p.GetPathPose(ctx, k, step)

		gotK, _, _ := p.InverseMap(ctx, pose.X, pose.Y)
		alphaWant := p.Index2Alpha(k)
		alphaGot := p.Index2Alpha(gotK)
		assert.InDelta(t, alphaWant, alphaGot, 2*math.Pi/float64(p.AlphaCount())+1e-6)
	}
}

func TestDiffDriveCGetPathStepForDistScalesWithVMax(t *testing.T) {
	t.Parallel()
	p := newTestDiffDriveC()
	ctx := DefaultContext()

	step, ok := p.GetPathStepForDist(ctx, p.Alpha2Index(0), p.VMax*PathTimeStep*10)
	require.True(t, ok)
	assert.Equal(t, 10, step)
}

func TestDiffDriveCGetPathPoseStraightLineWhenWZero(t *testing.T) {
	t.Parallel()
	p := newTestDiffDriveC()
	ctx := DefaultContext()

	k := p.Alpha2Index(0)
	pose := p.GetPathPose(ctx, k, 5)
	assert.InDelta(t, p.VMax*5*PathTimeStep, pose.X, 1e-9)
	assert.InDelta(t, 0, pose.Y, 1e-9)
	assert.InDelta(t, 0, pose.Phi, 1e-9)
}

func TestDiffDriveCUpdateTPObstacleMonotonicDecrease(t *testing.T) {
	t.Parallel()
	p := newTestDiffDriveC()
	ctx := DefaultContext()
	k := p.Alpha2Index(0)

	init := p.InitTPObstacle(k)
	afterFar := p.UpdateTPObstacle(ctx, 100, 100, k, init)
	assert.Equal(t, init, afterFar)

	afterNear := p.UpdateTPObstacle(ctx, 0.5, 0, k, afterFar)
	assert.Less(t, afterNear, afterFar)
}

// TestDiffDriveCInverseMapQuarterCirclePoint is scenario 4 from SPEC_FULL.md §8: K=+1,
// V_max=W_max=1, (x, y) = (0, 1). Tracing inverseMap_WS2TP (DiffDrive_C.cpp:88-148) by hand for
// these inputs: R = (x^2+y^2)/(2y) = 0.5, theta = atan2(x, |R|-y) = atan2(0, -0.5) = pi (already
// in [0, 2*pi)), so d is the *unclamped* R's arc length pi*(0.5 + turningRadiusReference) —
// geometrically a half-circle from (0,0) facing +x to (0,1), not the quarter-circle the
// distillation's "d = pi/2*(1+turningRadiusReference)" text suggests. k, by contrast, comes from
// the *clamped* R (Rmin = |V_MAX/W_MAX| = 1 > 0.5), giving a = pi*V_MAX/(W_MAX*Rmin) = pi exactly,
// matching the distillation's k = Alpha2Index(pi). This test follows the original source's
// algorithm rather than the distilled text for d; see DESIGN.md.
func TestDiffDriveCInverseMapQuarterCirclePoint(t *testing.T) {
	t.Parallel()
	const turningRadiusReference = 0.1
	p := NewDiffDriveC(121, 1.0, 1.0, turningRadiusReference, 1.0, Circle{R: 0.2})
	ctx := DefaultContext()

	k, d, exact := p.InverseMap(ctx, 0, 1)
	assert.False(t, exact) // |R|=0.5 < Rmin=1, so the solution is clamped
	assert.Equal(t, p.Alpha2Index(math.Pi), k)
	assert.InDelta(t, math.Pi*(0.5+turningRadiusReference), d, 1e-9)
}

func TestDiffDriveCIsIntoDomainAlwaysTrue(t *testing.T) {
	t.Parallel()
	p := newTestDiffDriveC()
	assert.True(t, p.IsIntoDomain(1000, -1000))
}
