// Package tpspace implements Parameterized Trajectory Generators (PTGs): families of motion
// primitives indexed by a discrete direction alpha and a continuous arc-length-like distance d,
// together with the workspace<->TP-space maps the planner needs to use them.
package tpspace

import (
	"github.com/SRai22/selfdriving/kinematics"
)

// Context carries the per-query dynamic state a PTG needs to shape a trajectory: the robot's
// local velocity at the start of the segment, the relative target direction, and how much of the
// PTG's rated speed to use. This replaces the source's interior-mutable "dynamic state" (set once
// via updateDynamicState and read back later) with an explicit value threaded through every call,
// so concurrent evaluation across candidates never races on shared PTG fields.
type Context struct {
	LocalVelocity  kinematics.Twist
	RelativeTarget kinematics.Pose
	TargetRelSpeed float64
}

// DefaultContext returns an at-rest context: robot initially at rest, aimed straight ahead, full
// speed. The planner's per-candidate context uses the same target and speed but takes the local
// velocity from the parent node's twist.
func DefaultContext() Context {
	return Context{
		RelativeTarget: kinematics.NewPose(1, 0, 0),
		TargetRelSpeed: 1,
	}
}

// RobotShape is a minimal collision shape query: whether a point in the robot's local frame lies
// inside the footprint, and the shape's circumscribing radius (used by the quartic-root collision
// code).
type RobotShape interface {
	Contains(x, y float64) bool
	Radius() float64
}

// Circle is the simplest RobotShape: a disk of the given radius centered at the origin.
type Circle struct {
	R float64
}

// Contains implements RobotShape.
func (c Circle) Contains(x, y float64) bool { return x*x+y*y <= c.R*c.R }

// Radius implements RobotShape.
func (c Circle) Radius() float64 { return c.R }

// TPObstacles holds, for one PTG direction, the running free-distance (the distance along that
// trajectory before the robot shape would collide with any obstacle folded in so far), one entry
// per direction. InitTPObstacle and UpdateTPObstacle work on a single direction's float64 value:
// Init returns the PTG's reference distance ("no collision within horizon") and Update only ever
// decreases it (§4.1). The planner keeps that single value per candidate and does not use this type.
type TPObstacles []float64

// PTG is the capability interface every trajectory-generator family implements; see spec §4.1.
// All numeric queries return an explicit ok/exact flag instead of using error control flow — a
// PTG that cannot realize a query reports that through its return values, never a panic or error.
type PTG interface {
	// AlphaCount returns the number of discretized directions, K.
	AlphaCount() int
	// Index2Alpha maps a direction index k in [0, K) to an angle in (-pi, pi].
	Index2Alpha(k int) float64
	// Alpha2Index maps an angle to the nearest direction index.
	Alpha2Index(alpha float64) int
	// RefDistance returns the PTG's reference (horizon) distance, used to normalize d.
	RefDistance() float64
	// RobotShape returns the shared robot footprint used for collision queries.
	RobotShape() RobotShape

	// GetPathStepForDist returns the integer time-step index along direction k at which the
	// trajectory has traveled distance d (absolute arc-length, not normalized). ok is false if k
	// cannot reach d.
	GetPathStepForDist(ctx Context, k int, d float64) (step int, ok bool)
	// GetPathPose returns the trajectory pose at (k, step), in the parent frame.
	GetPathPose(ctx Context, k int, step int) kinematics.Pose
	// GetPathTwist returns the trajectory twist at (k, step), in the parent frame.
	GetPathTwist(ctx Context, k int, step int) kinematics.Twist

	// InverseMap returns the best (k, d) pair realizing the relative workspace offset (x, y).
	// exact is false when the PTG had to clamp or snap to produce an answer. d is normalized by
	// RefDistance (comparable across PTGs with different horizons, for TP-space neighbor search);
	// callers that need an absolute arc-length distance for GetPathStepForDist / TP-obstacle
	// queries must multiply by RefDistance() first.
	InverseMap(ctx Context, x, y float64) (k int, d float64, exact bool)
	// IsIntoDomain reports whether (x, y) is reachable by some direction of this PTG.
	IsIntoDomain(x, y float64) bool

	// InitTPObstacle returns the seeded "no collision" free distance for direction k.
	InitTPObstacle(k int) float64
	// UpdateTPObstacle folds a single local-frame point obstacle (ox, oy) into the running
	// free-distance `out` for direction k, monotonically decreasing it.
	UpdateTPObstacle(ctx Context, ox, oy float64, k int, out float64) float64
}
