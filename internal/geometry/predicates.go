package geometry

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Occlusion tests run in the (angle, height, radius) pseudo-space: points
// are mgl64.Vec3 values whose X component is an angle and therefore
// periodic. Diff below is the only place the wrap is applied; the
// predicates themselves are plain linear algebra on its output.

// Diff returns the vector from b to a in pseudo-space, with the angular
// component normalized around ±π.
func Diff(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{NormAngle(a.X() - b.X()), a.Y() - b.Y(), a.Z() - b.Z()}
}

// A ConeChecker tests containment in an infinite right circular cone. Tip
// is the apex, Dir the axis direction, and R the cone radius at axial
// distance H; together R and H fix the opening angle.
//
// The visibility graph uses it to approximate the shadow behind one bud as
// seen from another: the apex sits where the inner tangents of the two
// buds cross, and the sample base is the occluding bud itself.
type ConeChecker struct {
	Tip mgl64.Vec3
	Dir mgl64.Vec3
	R   float64
	H   float64
}

// Contains reports whether the point lies strictly inside the cone. Dir
// does not have to be normalized.
func (c ConeChecker) Contains(p mgl64.Vec3) bool {
	diff := Diff(p, c.Tip)
	axis := c.Dir.Normalize()

	coneDist := diff.Dot(axis)
	if coneDist < 0 {
		return false
	}

	radius := c.R * coneDist / c.H
	orthDist := diff.Sub(axis.Mul(coneDist)).Len()
	return orthDist < radius
}

// A PlaneChecker tests which side of a plane a point lies on. The plane
// passes through Ref with the given Normal.
//
// It is the fallback occlusion test when two bud circles overlap and no
// clean cone can be formed: the plane through the tested bud,
// perpendicular to the sight line, separates what is still visible from
// what is hidden behind it.
type PlaneChecker struct {
	Normal mgl64.Vec3
	Ref    mgl64.Vec3
}

// Keep reports whether the point lies on the visible (non-occluded) side
// of the plane, i.e. the side the normal points away from.
func (c PlaneChecker) Keep(p mgl64.Vec3) bool {
	return c.Normal.Dot(Diff(p, c.Ref)) >= 0
}
