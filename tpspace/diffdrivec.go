package tpspace

import (
	"math"

	"github.com/SRai22/selfdriving/kinematics"
	"github.com/SRai22/selfdriving/logging"
	"github.com/SRai22/selfdriving/utils"
)

// DiffDriveC is the constant-curvature-arc PTG family ("C" type in the PTG literature): every
// direction alpha traces a circular arc of constant radius R(alpha) = (VMax/WMax)*(pi/alpha),
// grounded directly on DiffDrive_C.cpp's ptgDiffDriveSteeringFunction / inverseMap_WS2TP. K's sign
// selects forward (+1) vs backward (-1) paths.
type DiffDriveC struct {
	uniformDiscretization

	VMax, WMax float64
	K          float64

	// TurningRadiusReference is added to the arc radius before computing arc-length distance in
	// InverseMap, matching the source's `turningRadiusReference` member (accounts for the offset
	// between the kinematic center and the point whose path is being solved for).
	TurningRadiusReference float64

	refDistance float64
	shape       RobotShape

	logger logging.Logger
}

// SetLogger installs a logger used to report NumericFailure conditions (SPEC_FULL.md §7) at Debug
// level; the planner scopes this via logger.Sublogger("tpspace.diffdrive") before wiring it in.
func (p *DiffDriveC) SetLogger(logger logging.Logger) { p.logger = logger }

// NewDiffDriveC builds a DiffDriveC PTG with K alpha values uniformly discretized over (-pi, pi].
func NewDiffDriveC(k int, vMax, wMax, turningRadiusReference, refDistance float64, shape RobotShape) *DiffDriveC {
	return &DiffDriveC{
		uniformDiscretization:  newUniformDiscretization(k),
		VMax:                   vMax,
		WMax:                   wMax,
		K:                      1,
		TurningRadiusReference: turningRadiusReference,
		refDistance:            refDistance,
		shape:                  shape,
	}
}

// RefDistance implements PTG.
func (p *DiffDriveC) RefDistance() float64 { return p.refDistance }

// RobotShape implements PTG.
func (p *DiffDriveC) RobotShape() RobotShape { return p.shape }

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// steeringFunction returns the constant-curvature (v, w) pair for direction alpha; ported from
// ptgDiffDriveSteeringFunction. v is the same magnitude for every alpha: only the turn rate (and
// hence the radius) changes, which is what lets GetPathStepForDist solve t = d/VMax directly
// without needing to know k.
func (p *DiffDriveC) steeringFunction(alpha float64) (v, w float64) {
	v = p.VMax * sign(p.K)
	w = (alpha / math.Pi) * p.WMax * sign(p.K)
	return v, w
}

// IsIntoDomain implements PTG: every point in the plane is reachable by some arc of this family.
func (p *DiffDriveC) IsIntoDomain(x, y float64) bool { return true }

// InverseMap implements PTG, ported from DiffDrive_C::inverseMap_WS2TP.
func (p *DiffDriveC) InverseMap(ctx Context, x, y float64) (int, float64, bool) {
	exact := true
	var d float64
	var k int

	if y != 0 {
		r := (utils.Square(x) + utils.Square(y)) / (2 * y)
		rMin := math.Abs(p.VMax / p.WMax)

		var theta float64
		if p.K > 0 {
			if y > 0 {
				theta = math.Atan2(x, math.Abs(r)-y)
			} else {
				theta = math.Atan2(x, y+math.Abs(r))
			}
		} else {
			if y > 0 {
				theta = math.Atan2(-x, math.Abs(r)-y)
			} else {
				theta = math.Atan2(-x, y+math.Abs(r))
			}
		}
		theta = kinematics.WrapTo2Pi(theta)

		d = theta * (math.Abs(r) + p.TurningRadiusReference)

		if math.Abs(r) < rMin {
			exact = false
			r = rMin * sign(r)
		}

		a := math.Pi * p.VMax / (p.WMax * r)
		k = p.Alpha2Index(a)
	} else if sign(x) == sign(p.K) {
		k = p.Alpha2Index(0)
		d = x
	} else {
		k = p.AlphaCount() - 1
		d = 1e3
		exact = false
	}

	return k, d / p.refDistance, exact
}

// GetPathPose implements PTG with the closed-form unicycle solution for constant (v, w).
func (p *DiffDriveC) GetPathPose(ctx Context, k int, step int) kinematics.Pose {
	alpha := p.Index2Alpha(k)
	v, w := p.steeringFunction(alpha)
	t := float64(step) * PathTimeStep

	if w == 0 {
		return kinematics.NewPose(v*t, 0, 0)
	}
	phi := w * t
	x := (v / w) * math.Sin(phi)
	y := (v / w) * (1 - math.Cos(phi))
	return kinematics.NewPose(x, y, phi)
}

// GetPathTwist implements PTG: the local twist is constant along the whole arc, rotated into the
// parent frame at the trajectory's current heading.
func (p *DiffDriveC) GetPathTwist(ctx Context, k int, step int) kinematics.Twist {
	alpha := p.Index2Alpha(k)
	v, w := p.steeringFunction(alpha)
	phi := w * float64(step) * PathTimeStep
	return kinematics.Twist{Vx: v, Vy: 0, Omega: w}.ToWorld(phi)
}

// GetPathStepForDist implements PTG. |v| = VMax for every direction, so the step index is the
// same closed-form computation regardless of k.
func (p *DiffDriveC) GetPathStepForDist(ctx Context, k int, d float64) (int, bool) {
	if p.VMax <= 0 {
		if p.logger != nil {
			p.logger.Debugw("numeric failure: non-positive VMax", "vMax", p.VMax)
		}
		return 0, false
	}
	t := d / p.VMax
	return int(math.Round(t / PathTimeStep)), true
}

// InitTPObstacle implements PTG: with an unbounded domain, every direction starts clear out to the
// reference distance.
func (p *DiffDriveC) InitTPObstacle(k int) float64 { return p.refDistance }

// UpdateTPObstacle implements PTG via a dense forward sweep (no closed-form collision solution
// exists for this family, unlike HolonomicBlend's quartic).
func (p *DiffDriveC) UpdateTPObstacle(ctx Context, ox, oy float64, k int, out float64) float64 {
	poseAt := func(step int) (x, y, phi float64) {
		ps := p.GetPathPose(ctx, k, step)
		return ps.X, ps.Y, ps.Phi
	}
	d, hit := SweepCollisionDistance(p.shape, poseAt, ox, oy, out)
	if hit && d < out {
		return d
	}
	return out
}
