package constraint

import "github.com/go-gl/mathgl/mgl64"

// Slerp interpolates along the shortest arc from a to b. The endpoints are
// returned unchanged for t <= 0 and t >= 1.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t)
}

// Lerp interpolates linearly from a to b. t == 1 yields b exactly.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
