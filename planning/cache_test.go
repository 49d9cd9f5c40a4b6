package planning

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRai22/selfdriving/kinematics"
)

type fakeObstacleProvider struct {
	points []r2.Point
}

func (f fakeObstacleProvider) WithinSquare(center r2.Point, halfSide float64) []r2.Point {
	var out []r2.Point
	for _, p := range f.points {
		d := p.Sub(center)
		if math.Abs(d.X) <= halfSide && math.Abs(d.Y) <= halfSide {
			out = append(out, p)
		}
	}
	return out
}

func TestObstacleCacheClipsToSquare(t *testing.T) {
	t.Parallel()
	provider := fakeObstacleProvider{points: []r2.Point{
		{X: 0.5, Y: 0},   // inside
		{X: 100, Y: 100}, // outside
	}}
	cache := newObstacleCache(provider, 1.0)

	local := cache.localObstacles(NodeID(0), kinematics.NewPose(0, 0, 0))
	require.Len(t, local, 1)
	assert.InDelta(t, 0.5, local[0].X, 1e-9)
}

func TestObstacleCacheInvalidatesOnPoseChange(t *testing.T) {
	t.Parallel()
	provider := fakeObstacleProvider{points: []r2.Point{{X: 0.5, Y: 0}}}
	cache := newObstacleCache(provider, 1.0)

	first := cache.localObstacles(NodeID(0), kinematics.NewPose(0, 0, 0))
	require.Len(t, first, 1)
	assert.InDelta(t, 0.5, first[0].X, 1e-9)

	second := cache.localObstacles(NodeID(0), kinematics.NewPose(1, 0, 0))
	require.Len(t, second, 1)
	assert.InDelta(t, -0.5, second[0].X, 1e-9)
}

func TestObstacleCacheReusesEntryWhenPoseUnchanged(t *testing.T) {
	t.Parallel()
	provider := fakeObstacleProvider{points: []r2.Point{{X: 0.5, Y: 0}}}
	cache := newObstacleCache(provider, 1.0)

	pose := kinematics.NewPose(0, 0, 0)
	first := cache.localObstacles(NodeID(0), pose)
	second := cache.localObstacles(NodeID(0), pose)
	assert.Equal(t, first, second)
}
