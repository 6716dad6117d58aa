package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// MulElem returns the component-wise product of a and b.
func MulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// MaxElem returns the largest component of v.
func MaxElem(v mgl64.Vec3) float64 {
	return math.Max(v[0], math.Max(v[1], v[2]))
}

// AbsElem returns v with every component replaced by its absolute value.
func AbsElem(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}

// Yaw returns the rotation of q about the Z axis, measured by projecting
// the rotated X axis onto the XY plane.
func Yaw(q mgl64.Quat) float64 {
	x := q.Rotate(mgl64.Vec3{1, 0, 0})
	if x[0] == 0 && x[1] == 0 {
		return 0
	}
	return math.Atan2(x[1], x[0])
}

// QuatFromYaw returns a rotation of angle radians about the Z axis.
func QuatFromYaw(angle float64) mgl64.Quat {
	return mgl64.QuatRotate(angle, mgl64.Vec3{0, 0, 1})
}

// TRS is a translation/rotation/scale triple. It composes the way scene
// graphs propagate transforms: rotation and scale apply to child positions,
// shear from combined rotation+scale is not represented.
type TRS struct {
	Pos   mgl64.Vec3
	Rot   mgl64.Quat
	Scale mgl64.Vec3
}

// IdentityTRS returns the identity transform.
func IdentityTRS() TRS {
	return TRS{Rot: mgl64.QuatIdent(), Scale: mgl64.Vec3{1, 1, 1}}
}

// Mul returns the composition parent * child, i.e. child expressed in the
// parent's frame.
func (t TRS) Mul(child TRS) TRS {
	return TRS{
		Pos:   t.Pos.Add(t.Rot.Rotate(MulElem(child.Pos, t.Scale))),
		Rot:   t.Rot.Mul(child.Rot).Normalize(),
		Scale: MulElem(t.Scale, child.Scale),
	}
}

// LookAtQuat returns the rotation that points the +Z axis from eye toward
// target, keeping +Y as close to up as possible. Degenerate inputs
// (target == eye, or looking along up) fall back to stable axes.
func LookAtQuat(eye, target, up mgl64.Vec3) mgl64.Quat {
	forward := target.Sub(eye)
	if forward.Len() == 0 {
		return mgl64.QuatIdent()
	}
	forward = forward.Normalize()

	right := up.Cross(forward)
	if right.Len() < 1e-9 {
		right = mgl64.Vec3{1, 0, 0}.Cross(forward)
		if right.Len() < 1e-9 {
			right = mgl64.Vec3{0, 0, 1}.Cross(forward)
		}
	}
	right = right.Normalize()
	newUp := forward.Cross(right)

	m := mgl64.Mat4FromCols(
		right.Vec4(0),
		newUp.Vec4(0),
		forward.Vec4(0),
		mgl64.Vec4{0, 0, 0, 1},
	)
	return mgl64.Mat4ToQuat(m).Normalize()
}
