// Package obstacles provides the static obstacle point-cloud abstraction the planner queries
// against: the full point buffer, and a closest-point-2D lookup used for sampling rejection and
// local-obstacle-cache construction.
package obstacles

import (
	"math"

	"github.com/golang/geo/r2"
)

// Provider is the external interface the planner consumes (SPEC_FULL.md §4.5): a point buffer and
// a closest-point query, both in whatever frame the caller passes coordinates in.
type Provider interface {
	// Points returns every obstacle point, in no particular order.
	Points() []r2.Point
	// Size returns the number of obstacle points.
	Size() int
	// ClosestPoint returns the obstacle point nearest to `from` and its distance. ok is false when
	// the cloud is empty.
	ClosestPoint(from r2.Point) (point r2.Point, dist float64, ok bool)
	// WithinSquare returns the points lying within an axis-aligned square of the given half-side,
	// centered at center. Used by the planner's local-obstacle cache (SPEC_FULL.md §4.8).
	WithinSquare(center r2.Point, halfSide float64) []r2.Point
}

// PointCloud2D is the in-tree Provider implementation: a flat buffer of 2D points queried by
// linear scan. The spec explicitly sanctions this for present scale ("a linear scan is acceptable
// for the present scale") — no k-d tree or spatial-hash library exists anywhere in the example
// pack, so a fabricated dependency would be worse than a documented, bounded-scale linear scan.
type PointCloud2D struct {
	points []r2.Point
}

// NewPointCloud2D builds a PointCloud2D from the given points; the slice is copied so the caller
// may reuse or mutate its own buffer afterward.
func NewPointCloud2D(points []r2.Point) *PointCloud2D {
	cp := make([]r2.Point, len(points))
	copy(cp, points)
	return &PointCloud2D{points: cp}
}

// Add appends a single obstacle point.
func (pc *PointCloud2D) Add(p r2.Point) {
	pc.points = append(pc.points, p)
}

// Points implements Provider.
func (pc *PointCloud2D) Points() []r2.Point { return pc.points }

// Size implements Provider.
func (pc *PointCloud2D) Size() int { return len(pc.points) }

// ClosestPoint implements Provider via a linear scan over the buffer.
func (pc *PointCloud2D) ClosestPoint(from r2.Point) (r2.Point, float64, bool) {
	if len(pc.points) == 0 {
		return r2.Point{}, 0, false
	}
	best := pc.points[0]
	bestDist := from.Sub(best).Norm()
	for _, p := range pc.points[1:] {
		d := from.Sub(p).Norm()
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist, true
}

// WithinSquare returns the subset of points lying within an axis-aligned square of the given
// half-side, centered at `center`. Used to build a local-obstacle cache entry (SPEC_FULL.md §4.8):
// square clipping on |Δx|,|Δy| before any frame transform, cheaper than a circular clip and exact
// enough since every PTG's reach is itself bounded by its reference distance along either axis.
func (pc *PointCloud2D) WithinSquare(center r2.Point, halfSide float64) []r2.Point {
	var out []r2.Point
	for _, p := range pc.points {
		d := p.Sub(center)
		if math.Abs(d.X) <= halfSide && math.Abs(d.Y) <= halfSide {
			out = append(out, p)
		}
	}
	return out
}
