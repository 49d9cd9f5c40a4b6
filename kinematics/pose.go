// Package kinematics defines the SE(2) pose and twist types shared by every planning and
// trajectory-generator component.
package kinematics

import "math"

// Pose is a rigid-body pose in the plane: position (X, Y) and heading Phi, in radians, measured
// counter-clockwise from the X axis. Poses compose like SE(2) transforms: a child Pose expressed
// relative to a parent Pose is turned into a world-frame Pose via Compose.
type Pose struct {
	X, Y, Phi float64
}

// NewPose returns a Pose with heading normalized to (-pi, pi].
func NewPose(x, y, phi float64) Pose {
	return Pose{X: x, Y: y, Phi: WrapToPi(phi)}
}

// WrapToPi normalizes an angle in radians to (-pi, pi].
func WrapToPi(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// WrapTo2Pi normalizes an angle in radians to [0, 2*pi).
func WrapTo2Pi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Compose returns the world-frame pose obtained by applying the relative pose `rel` (expressed in
// this pose's local frame) on top of this pose.
func (p Pose) Compose(rel Pose) Pose {
	sinPhi, cosPhi := math.Sincos(p.Phi)
	return NewPose(
		p.X+rel.X*cosPhi-rel.Y*sinPhi,
		p.Y+rel.X*sinPhi+rel.Y*cosPhi,
		p.Phi+rel.Phi,
	)
}

// Inverse returns the pose such that p.Compose(p.Inverse()) is the identity pose.
func (p Pose) Inverse() Pose {
	sinPhi, cosPhi := math.Sincos(p.Phi)
	return NewPose(
		-p.X*cosPhi-p.Y*sinPhi,
		p.X*sinPhi-p.Y*cosPhi,
		-p.Phi,
	)
}

// RelativeTo returns `p` expressed in the local frame of `origin`: origin.Compose(p.RelativeTo(origin)) == p.
func (p Pose) RelativeTo(origin Pose) Pose {
	return origin.Inverse().Compose(p)
}

// DistanceTo returns the Euclidean distance between two poses' positions, ignoring heading.
func (p Pose) DistanceTo(o Pose) float64 {
	dx, dy := p.X-o.X, p.Y-o.Y
	return math.Hypot(dx, dy)
}

// HeadingDiff returns the smallest-magnitude angular difference p.Phi - o.Phi, in (-pi, pi].
func (p Pose) HeadingDiff(o Pose) float64 {
	return WrapToPi(p.Phi - o.Phi)
}

// InBBox reports whether p lies within the inclusive-open box [min, max) per axis.
func (p Pose) InBBox(min, max Pose) bool {
	return p.X >= min.X && p.X < max.X &&
		p.Y >= min.Y && p.Y < max.Y &&
		p.Phi >= min.Phi && p.Phi < max.Phi
}
