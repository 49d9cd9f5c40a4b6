package tpspace

import "math"

// PathTimeStep is the fixed time resolution used to discretize every PTG's trajectory into
// integer steps (spec §4.3's "PATH_TIME_STEP = 10 ms"); this package reuses the same resolution
// for DiffDrive-C rather than inventing a second one, since nothing about constant-curvature arcs
// calls for a different granularity.
const PathTimeStep = 10e-3

// maxSweepSteps bounds how far SweepCollisionDistance marches before giving up; at PathTimeStep
// resolution this covers well beyond any PTG's reference distance at realistic speeds.
const maxSweepSteps = 4000

// SweepCollisionDistance marches forward along direction k in PathTimeStep increments, returning
// the first accumulated arc-length distance at which the local-frame point obstacle (ox, oy)
// falls inside the robot's shape, capped at maxDist. This is the "dense simulated sweep" collision
// strategy DiffDrive-C uses (SPEC_FULL.md §4.2): each obstacle is checked against the trajectory
// walked step by step on every call, rather than solved for in closed form; nothing is precomputed
// (HolonomicBlend instead solves a closed-form quartic — see holonomicblend.go).
func SweepCollisionDistance(shape RobotShape, poseAt func(step int) (x, y, phi float64), ox, oy, maxDist float64) (float64, bool) {
	prevX, prevY, _ := poseAt(0)
	dist := 0.0
	for step := 0; step < maxSweepSteps; step++ {
		x, y, phi := poseAt(step)
		if step > 0 {
			dist += math.Hypot(x-prevX, y-prevY)
		}
		prevX, prevY = x, y

		dx, dy := ox-x, oy-y
		sinPhi, cosPhi := math.Sincos(-phi)
		bx := dx*cosPhi - dy*sinPhi
		by := dx*sinPhi + dy*cosPhi
		if shape.Contains(bx, by) {
			return dist, true
		}
		if dist >= maxDist {
			break
		}
	}
	return maxDist, false
}
