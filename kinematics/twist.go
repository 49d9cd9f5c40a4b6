package kinematics

import "math"

// Twist is a world-frame planar velocity: linear (Vx, Vy) and angular (Omega).
type Twist struct {
	Vx, Vy, Omega float64
}

// ToLocal rotates a world-frame twist into the local frame of a body at heading phi (rotation by
// -phi), per the data model's "local twist obtained by rotating by -phi".
func (t Twist) ToLocal(phi float64) Twist {
	sinPhi, cosPhi := math.Sincos(-phi)
	return Twist{
		Vx:    t.Vx*cosPhi - t.Vy*sinPhi,
		Vy:    t.Vx*sinPhi + t.Vy*cosPhi,
		Omega: t.Omega,
	}
}

// ToWorld rotates a local-frame twist (at heading phi) into the world frame.
func (t Twist) ToWorld(phi float64) Twist {
	sinPhi, cosPhi := math.Sincos(phi)
	return Twist{
		Vx:    t.Vx*cosPhi - t.Vy*sinPhi,
		Vy:    t.Vx*sinPhi + t.Vy*cosPhi,
		Omega: t.Omega,
	}
}

// Speed returns the magnitude of the linear velocity component.
func (t Twist) Speed() float64 {
	return math.Hypot(t.Vx, t.Vy)
}

// State is the (pose, twist) tuple the data model calls "kinematic state".
type State struct {
	Pose  Pose
	Twist Twist
}
