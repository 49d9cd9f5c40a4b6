package tpspace

import (
	"fmt"
	"math"

	"github.com/SRai22/selfdriving/kinematics"
	"github.com/SRai22/selfdriving/logging"
	"github.com/SRai22/selfdriving/tpspace/exprs"
	"github.com/SRai22/selfdriving/tpspace/polyroots"
	"github.com/SRai22/selfdriving/utils"
	"gonum.org/v1/gonum/mat"
)

// holoEps is the epsilon for detecting 1/0 degenerate cases in the ramp-blend equations, matching
// HolonomicBlend::eps in the original source.
const holoEps = 1e-4

// HolonomicBlend is the ramped-velocity-blend PTG family for holonomic bases: starting from the
// robot's current local velocity (vxi, vyi), it ramps linearly over T_ramp seconds to a target
// velocity (vxf, vyf) = vf*(cos(dir), sin(dir)), then holds that velocity. Ported from
// HolonomicBlend.cpp.
type HolonomicBlend struct {
	uniformDiscretization

	VMax, WMax, TRampMax   float64
	TurningRadiusReference float64

	exprV, exprW, exprTRamp exprs.Expr

	refDistance float64
	shape       RobotShape

	logger logging.Logger
}

// SetLogger installs a logger used to report NumericFailure conditions (SPEC_FULL.md §7) at Debug
// level; the planner scopes this via logger.Sublogger("tpspace.holonomicblend") before wiring it
// in.
func (p *HolonomicBlend) SetLogger(logger logging.Logger) { p.logger = logger }

// NewHolonomicBlend builds a HolonomicBlend PTG. exprV/exprW/exprTRamp are compiled once via the
// exprs package; pass "V_MAX", "W_MAX", "T_ramp_max" for the source's defaults, or a custom
// expression referencing dir/target_dir/target_dist/target_x/target_y/target_phi/
// target_rel_speed/trimmable_speed/V_MAX/W_MAX/T_ramp_max/vxi/vyi/wi to trim speed near the goal.
func NewHolonomicBlend(k int, vMax, wMax, tRampMax, turningRadiusReference, refDistance float64, shape RobotShape, exprV, exprW, exprTRamp string) (*HolonomicBlend, error) {
	cv, err := exprs.Compile(exprV)
	if err != nil {
		return nil, fmt.Errorf("holonomicblend: expr_V: %w", err)
	}
	cw, err := exprs.Compile(exprW)
	if err != nil {
		return nil, fmt.Errorf("holonomicblend: expr_W: %w", err)
	}
	ct, err := exprs.Compile(exprTRamp)
	if err != nil {
		return nil, fmt.Errorf("holonomicblend: expr_T_ramp: %w", err)
	}
	return &HolonomicBlend{
		uniformDiscretization:  newUniformDiscretization(k),
		VMax:                   vMax,
		WMax:                   wMax,
		TRampMax:               tRampMax,
		TurningRadiusReference: turningRadiusReference,
		exprV:                  cv,
		exprW:                  cw,
		exprTRamp:              ct,
		refDistance:            refDistance,
		shape:                  shape,
	}, nil
}

// RefDistance implements PTG.
func (p *HolonomicBlend) RefDistance() float64 { return p.refDistance }

// RobotShape implements PTG.
func (p *HolonomicBlend) RobotShape() RobotShape { return p.shape }

// IsIntoDomain implements PTG: the blend can steer towards any direction, so every point is
// reachable (mirroring PTG_IsIntoDomain's inverseMap_WS2TP-based check always succeeding in
// practice for this family).
func (p *HolonomicBlend) IsIntoDomain(x, y float64) bool { return true }

func signWithZero(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// holoParams are the direction-dependent ramp parameters computed once per (direction, context)
// pair, matching HolonomicBlend::InternalParams.
type holoParams struct {
	dir           float64
	vf, wf, tRamp float64
	vxi, vyi, wi  float64
	vxf, vyf      float64
}

func (p *HolonomicBlend) exprVars(ctx Context, dir float64) map[string]float64 {
	return map[string]float64{
		"dir":              dir,
		"target_dir":       math.Atan2(ctx.RelativeTarget.Y, ctx.RelativeTarget.X),
		"target_dist":      math.Hypot(ctx.RelativeTarget.X, ctx.RelativeTarget.Y),
		"target_x":         ctx.RelativeTarget.X,
		"target_y":         ctx.RelativeTarget.Y,
		"target_phi":       ctx.RelativeTarget.Phi,
		"target_rel_speed": ctx.TargetRelSpeed,
		"trimmable_speed":  ctx.TargetRelSpeed,
		"V_MAX":            p.VMax,
		"W_MAX":            p.WMax,
		"T_ramp_max":       p.TRampMax,
		"vxi":              ctx.LocalVelocity.Vx,
		"vyi":              ctx.LocalVelocity.Vy,
		"wi":               ctx.LocalVelocity.Omega,
	}
}

// paramsForDir evaluates the user expressions and derives the full ramp-target state for a given
// direction, matching internal_params_from_dir_and_dynstate.
func (p *HolonomicBlend) paramsForDir(ctx Context, dir float64) holoParams {
	vars := p.exprVars(ctx, dir)

	vf, err := p.exprV.Eval(vars)
	if err != nil {
		vf = p.VMax
	}
	vf = math.Abs(vf)

	wf, err := p.exprW.Eval(vars)
	if err != nil {
		wf = p.WMax
	}
	wf = signWithZero(dir) * math.Abs(wf)

	tRamp, err := p.exprTRamp.Eval(vars)
	if err != nil || tRamp <= 0 {
		tRamp = p.TRampMax
	}

	return holoParams{
		dir:   dir,
		vf:    vf,
		wf:    wf,
		tRamp: tRamp,
		vxi:   ctx.LocalVelocity.Vx,
		vyi:   ctx.LocalVelocity.Vy,
		wi:    ctx.LocalVelocity.Omega,
		vxf:   vf * math.Cos(dir),
		vyf:   vf * math.Sin(dir),
	}
}

// calcTransDistanceBelowTrampABC numerically integrates sqrt(a*t^2+b*t+c) over [0,T] via the
// trapezoidal rule, 20 steps — ported directly from
// calc_trans_distance_t_below_Tramp_abc_numeric, whose own comment notes the closed-form
// antiderivative was measured slower and less robust than this.
func calcTransDistanceBelowTrampABC(t, a, b, c float64) float64 {
	const numSteps = 20
	dt := t / numSteps
	evalAt := math.Sqrt(c)
	d := 0.0
	tt := 0.0
	for i := 0; i < numSteps; i++ {
		tt += dt
		v := a*tt*tt + b*tt + c
		if v < 0 {
			v = 0
		}
		next := math.Sqrt(v)
		d += dt * (evalAt + next) * 0.5
		evalAt = next
	}
	return d
}

// calcTransDistanceBelowTramp is the line-integral distance travelled up to time t (t <= T_ramp),
// handling the degenerate 1/0 cases, ported from calc_trans_distance_t_below_Tramp.
func calcTransDistanceBelowTramp(k2, k4, vxi, vyi, t float64) float64 {
	c := utils.Square(vxi) + utils.Square(vyi)
	if math.Abs(k2) > holoEps || math.Abs(k4) > holoEps {
		a := 4 * (utils.Square(k2) + utils.Square(k4))
		b := 4 * (k2*vxi + k4*vyi)
		if math.Abs(b) < holoEps && math.Abs(c) < holoEps {
			return math.Sqrt(a) * t * t * 0.5
		}
		return calcTransDistanceBelowTrampABC(t, a, b, c)
	}
	return math.Sqrt(c) * t
}

// internalGetPathDist returns the total distance travelled at the given step, ported from
// internal_getPathDist.
func (p *HolonomicBlend) internalGetPathDist(step int, pp holoParams) float64 {
	t := float64(step) * PathTimeStep
	tr2 := 1 / (2 * pp.tRamp)
	k2 := (pp.vxf - pp.vxi) * tr2
	k4 := (pp.vyf - pp.vyi) * tr2

	if t < pp.tRamp {
		return calcTransDistanceBelowTramp(k2, k4, pp.vxi, pp.vyi, t)
	}
	return (t-pp.tRamp)*p.VMax + calcTransDistanceBelowTramp(k2, k4, pp.vxi, pp.vyi, pp.tRamp)
}

// translationAt returns the path-frame position and velocity at time t, ported from the
// translational part of getPathPose.
func translationAt(pp holoParams, t float64) (x, y, vx, vy float64) {
	if t < pp.tRamp {
		tr2 := 1 / (2 * pp.tRamp)
		x = pp.vxi*t + t*t*tr2*(pp.vxf-pp.vxi)
		y = pp.vyi*t + t*t*tr2*(pp.vyf-pp.vyi)
		vx = pp.vxi + t/pp.tRamp*(pp.vxf-pp.vxi)
		vy = pp.vyi + t/pp.tRamp*(pp.vyf-pp.vyi)
		return
	}
	x = pp.tRamp*0.5*(pp.vxi+pp.vxf) + (t-pp.tRamp)*pp.vxf
	y = pp.tRamp*0.5*(pp.vyi+pp.vyf) + (t-pp.tRamp)*pp.vyf
	vx, vy = pp.vxf, pp.vyf
	return
}

// rotationAt returns the heading and angular velocity at time t, ported from the rotational part
// of getPathPose (the quadratic-ramp-then-hold heading profile).
func rotationAt(pp holoParams, t float64) (phi, omega float64) {
	if t < pp.tRamp {
		tr2 := 1 / (2 * pp.tRamp)
		a := tr2 * (pp.wf - pp.wi)
		b := pp.wi
		c := -pp.dir

		roots := polyroots.Quadratic(a, b, c)
		if len(roots) != 2 {
			return 0, 0
		}
		tSolve := math.Max(roots[0], roots[1])
		if t > tSolve {
			return pp.dir, 0
		}
		phi = pp.wi*t + t*t*tr2*(pp.wf-pp.wi)
		omega = pp.wi + t/pp.tRamp*(pp.wf-pp.wi)
		return phi, omega
	}

	tSolve := (pp.dir-pp.tRamp*0.5*(pp.wi+pp.wf))/pp.wf + pp.tRamp
	if t > tSolve {
		return pp.dir, 0
	}
	return pp.tRamp*0.5*(pp.wi+pp.wf) + (t-pp.tRamp)*pp.wf, pp.wf
}

// GetPathPose implements PTG.
func (p *HolonomicBlend) GetPathPose(ctx Context, k int, step int) kinematics.Pose {
	dir := p.Index2Alpha(k)
	pp := p.paramsForDir(ctx, dir)
	t := float64(step) * PathTimeStep

	x, y, _, _ := translationAt(pp, t)
	phi, _ := rotationAt(pp, t)
	return kinematics.NewPose(x, y, phi)
}

// GetPathTwist implements PTG.
func (p *HolonomicBlend) GetPathTwist(ctx Context, k int, step int) kinematics.Twist {
	dir := p.Index2Alpha(k)
	pp := p.paramsForDir(ctx, dir)
	t := float64(step) * PathTimeStep

	_, _, vx, vy := translationAt(pp, t)
	phi, omega := rotationAt(pp, t)
	return kinematics.Twist{Vx: vx, Vy: vy, Omega: omega}.ToWorld(phi)
}

// GetPathStepForDist implements PTG, ported from getPathStepForDist.
func (p *HolonomicBlend) GetPathStepForDist(ctx Context, k int, dist float64) (int, bool) {
	dir := p.Index2Alpha(k)
	pp := p.paramsForDir(ctx, dir)
	tr2 := 1 / (2 * pp.tRamp)
	k2 := (pp.vxf - pp.vxi) * tr2
	k4 := (pp.vyf - pp.vyi) * tr2

	distAtTramp := calcTransDistanceBelowTramp(k2, k4, pp.vxi, pp.vyi, pp.tRamp)

	var tSolved float64
	if dist >= distAtTramp {
		tSolved = pp.tRamp + (dist-distAtTramp)/p.VMax
	} else if math.Abs(k2) < holoEps && math.Abs(k4) < holoEps {
		tSolved = dist / p.VMax
	} else {
		a := 4 * (k2*k2 + k4*k4)
		b := 4 * (k2*pp.vxi + k4*pp.vyi)
		c := pp.vxi*pp.vxi + pp.vyi*pp.vyi

		if math.Abs(b) < holoEps && math.Abs(c) < holoEps {
			tSolved = math.Sqrt2 * math.Sqrt(dist) / math.Pow(a, 0.25)
		} else {
			tSolved = pp.tRamp * 0.6
			for iters := 0; iters < 10; iters++ {
				errv := calcTransDistanceBelowTrampABC(tSolved, a, b, c) - dist
				diff := math.Sqrt(a*tSolved*tSolved + b*tSolved + c)
				if math.Abs(diff) < 1e-40 {
					break
				}
				tSolved -= errv / diff
				if tSolved < 0 {
					tSolved = 0
				}
				if math.Abs(errv) < 1e-3 {
					break
				}
			}
		}
	}

	if tSolved < 0 {
		if p.logger != nil {
			p.logger.Debugw("numeric failure: step-for-dist solved negative time", "dist", dist)
		}
		return 0, false
	}
	return int(math.Round(tSolved / PathTimeStep)), true
}

// InverseMap implements PTG via the source's Newton iteration over q=[t, vxf, vyf, T_ramp],
// solving for the (t, alpha) pair that realizes workspace offset (x, y). Uses gonum's mat.Dense
// LU solve for the 4x4 Jacobian system in place of MRPT's hand-rolled CMatrixDouble44::lu_solve.
func (p *HolonomicBlend) InverseMap(ctx Context, x, y float64) (int, float64, bool) {
	if x == 0 && y == 0 {
		return 0, 0, false
	}
	const relSpeedReachStop = 0.10 * 1.05
	const errThreshold = 1e-3

	vxi, vyi := ctx.LocalVelocity.Vx, ctx.LocalVelocity.Vy
	norm := math.Hypot(x, y)

	q := []float64{p.TRampMax * 1.1, p.VMax * x / norm, p.VMax * y / norm, p.TRampMax}

	errMod := math.MaxFloat64
	solved := false

	for iter := 0; iter < 25 && !solved; iter++ {
		t, vxf, vyf, tRamp := q[0], q[1], q[2], q[3]
		alpha := math.Atan2(vyf, vxf)

		vars := p.exprVars(ctx, alpha)
		vfEval, err := p.exprV.Eval(vars)
		if err != nil {
			vfEval = p.VMax
		}
		vMaxSq := math.Abs(vfEval) * math.Abs(vfEval)
		stopAtTarget := vMaxSq < relSpeedReachStop*relSpeedReachStop

		tr1 := 1 / tRamp
		tr2 := 1 / (2 * tRamp)

		r := make([]float64, 4)
		j := mat.NewDense(4, 4, nil)

		if t >= tRamp {
			r[0] = 0.5*tRamp*(vxi+vxf) + (t-tRamp)*vxf - x
			r[1] = 0.5*tRamp*(vyi+vyf) + (t-tRamp)*vyf - y

			j.Set(0, 0, vxf)
			j.Set(0, 1, 0.5*tRamp+t)
			j.Set(1, 0, vyf)
			j.Set(1, 2, 0.5*tRamp+t)
			if stopAtTarget {
				j.Set(0, 3, 0.5*(vxi-vxf))
				j.Set(1, 3, 0.5*(vyi-vyf))
			} else {
				q[3] = p.TRampMax
				j.Set(3, 3, 1)
			}
		} else {
			r[0] = vxi*t + t*t*tr2*(vxf-vxi) - x
			r[1] = vyi*t + t*t*tr2*(vyf-vyi) - y

			j.Set(0, 0, vxi+t*tr1*(vxf-vxi))
			j.Set(0, 1, tr2*t*t)
			j.Set(1, 0, vyi+t*tr1*(vyf-vyi))
			j.Set(1, 2, tr2*t*t)
			if stopAtTarget {
				j.Set(0, 3, -t*t*tr2*(vxf-vxi))
				j.Set(1, 3, -t*t*tr2*(vyf-vyi))
			} else {
				q[3] = p.TRampMax
				j.Set(3, 3, 1)
			}
		}

		r[2] = vxf*vxf + vyf*vyf - vMaxSq
		if stopAtTarget {
			r[3] = tRamp - t
		} else {
			r[3] = 0
		}
		if stopAtTarget {
			j.Set(3, 0, -1)
			j.Set(3, 3, 1)
		}
		j.Set(2, 1, 2*vxf)
		j.Set(2, 2, 2*vyf)

		rVec := mat.NewDense(4, 1, r)
		var dq mat.Dense
		if err := dq.Solve(j, rVec); err != nil {
			break
		}
		for i := 0; i < 4; i++ {
			q[i] -= dq.At(i, 0)
		}

		errMod = math.Hypot(math.Hypot(r[0], r[1]), math.Hypot(r[2], r[3]))
		solved = errMod < errThreshold
	}

	if !solved || q[0] < 0 {
		if p.logger != nil {
			p.logger.Debugw("numeric failure: inverse map Newton iteration did not converge", "errMod", errMod)
		}
		return 0, 0, false
	}

	alpha := math.Atan2(q[2], q[1])
	k := p.Alpha2Index(alpha)
	tRamp := q[3]
	vxf, vyf := q[1], q[2]

	step := int(q[0] / PathTimeStep)
	pp := holoParams{vf: math.Hypot(vxf, vyf), vxi: vxi, vyi: vyi, vxf: vxf, vyf: vyf, tRamp: tRamp}
	d := p.internalGetPathDist(step, pp)

	return k, d / p.refDistance, true
}

// InitTPObstacle implements PTG.
func (p *HolonomicBlend) InitTPObstacle(k int) float64 { return p.refDistance }

// UpdateTPObstacle implements PTG via the closed-form quartic/cubic/quadratic collision solve,
// ported from updateTPObstacleSingle — the one PTG family in this package with an exact algebraic
// collision time, because the ramp trajectory's squared distance to a point obstacle is a quartic
// in t.
func (p *HolonomicBlend) UpdateTPObstacle(ctx Context, ox, oy float64, k int, out float64) float64 {
	r := p.shape.Radius()
	dir := p.Index2Alpha(k)
	pp := p.paramsForDir(ctx, dir)
	tr2 := 1 / (2 * pp.tRamp)
	tr2Abs := pp.tRamp * 0.5
	tRampThres099 := pp.tRamp * 0.99
	tRampThres101 := pp.tRamp * 1.01

	k2 := (pp.vxf - pp.vxi) * tr2
	k4 := (pp.vyf - pp.vyi) * tr2

	a := utils.Square(k2) + utils.Square(k4)
	b := k2*pp.vxi*2 + k4*pp.vyi*2
	c := -(k2*ox*2 + k4*oy*2 - utils.Square(pp.vxi) - utils.Square(pp.vyi))
	d := -(ox*pp.vxi*2 + oy*pp.vyi*2)
	e := -utils.Square(r) + utils.Square(ox) + utils.Square(oy)

	var roots []float64
	switch {
	case math.Abs(a) > holoEps:
		roots = polyroots.Quartic(a, b, c, d, e)
	case math.Abs(b) > holoEps:
		roots = polyroots.Cubic(b, c, d, e)
	default:
		roots = polyroots.Quadratic(c, d, e)
	}

	solT := -1.0
	for _, root := range roots {
		if !math.IsNaN(root) && !math.IsInf(root, 0) && root >= 0 && root <= tRampThres101 {
			if solT < 0 || root < solT {
				solT = root
			}
		}
	}

	if solT < 0 || solT > tRampThres101 {
		solT = -1
		c1 := tr2Abs*(pp.vxi-pp.vxf) - ox
		c2 := tr2Abs*(pp.vyi-pp.vyf) - oy

		xa := pp.vf * pp.vf
		xb := 2 * (c1*pp.vxf + c2*pp.vyf)
		xc := c1*c1 + c2*c2 - r*r

		discr := xb*xb - 4*xa*xc
		if discr >= 0 {
			sq := math.Sqrt(discr)
			t0 := (-xb + sq) / (2 * xa)
			t1 := (-xb - sq) / (2 * xa)

			switch {
			case t0 < pp.tRamp && t1 < pp.tRamp:
				solT = -1
			case t0 < pp.tRamp && t1 >= tRampThres099:
				solT = t1
			case t1 < pp.tRamp && t0 >= tRampThres099:
				solT = t0
			case t1 >= tRampThres099 && t0 >= tRampThres099:
				solT = math.Min(t0, t1)
			}
		}
	}

	if solT < 0 {
		return out
	}

	var dist float64
	if solT < pp.tRamp {
		dist = calcTransDistanceBelowTramp(k2, k4, pp.vxi, pp.vyi, solT)
	} else {
		dist = (solT-pp.tRamp)*p.VMax + calcTransDistanceBelowTramp(k2, k4, pp.vxi, pp.vyi, pp.tRamp)
	}

	if dist < out {
		return dist
	}
	return out
}
