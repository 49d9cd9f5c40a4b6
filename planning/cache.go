package planning

import (
	"github.com/golang/geo/r2"

	"github.com/SRai22/selfdriving/kinematics"
)

// obstacleProvider is the minimal slice of obstacles.Provider the cache needs: a square-clipped
// point query, so the cache isn't tied to a concrete provider implementation.
type obstacleProvider interface {
	WithinSquare(center r2.Point, halfSide float64) []r2.Point
}

// cacheEntry is a local-obstacle cache entry (SPEC_FULL.md §3): the node pose the cache was
// computed at, plus the obstacle points within MAX_XY_DIST of it, expressed in the node's local
// frame.
type cacheEntry struct {
	pose   kinematics.Pose
	points []r2.Point
}

// obstacleCache is the arena-style local-obstacle cache (Design Notes: "store entries by dense
// index... for O(1) access rather than a map"): a slice indexed by NodeID, grown on append.
type obstacleCache struct {
	entries []*cacheEntry
	maxDist float64
	global  obstacleProvider
}

func newObstacleCache(global obstacleProvider, maxDist float64) *obstacleCache {
	return &obstacleCache{global: global, maxDist: maxDist}
}

// localObstacles returns the cached local-frame obstacle points for node id at the given pose,
// rebuilding the entry if it is missing or the node's pose has changed since it was computed.
func (c *obstacleCache) localObstacles(id NodeID, pose kinematics.Pose) []r2.Point {
	for len(c.entries) <= int(id) {
		c.entries = append(c.entries, nil)
	}
	e := c.entries[id]
	if e != nil && e.pose == pose {
		return e.points
	}

	nearby := c.global.WithinSquare(r2.Point{X: pose.X, Y: pose.Y}, c.maxDist)
	local := make([]r2.Point, len(nearby))
	for i, p := range nearby {
		rel := kinematics.NewPose(p.X, p.Y, 0).RelativeTo(pose)
		local[i] = r2.Point{X: rel.X, Y: rel.Y}
	}

	e = &cacheEntry{pose: pose, points: local}
	c.entries[id] = e
	return local
}
