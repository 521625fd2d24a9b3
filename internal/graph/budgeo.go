// Package graph builds the bud visibility graph: which buds can see each
// other across the cylinder surface without another bud in between, and
// the axes (helices) running through groups of opposite neighbours.
package graph

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/magnolia/internal/geometry"
	"github.com/talgya/magnolia/internal/meristem"
)

// DirVector returns the direction vector from b2 to b1 in the
// (angle, height, radius) pseudo-space, with the angular part normalized.
func DirVector(b1, b2 *meristem.Bud) mgl64.Vec3 {
	return mgl64.Vec3{
		geometry.NormAngle(b1.Angle - b2.Angle),
		b1.Height - b2.Height,
		b1.Radius - b2.Radius,
	}
}

// MiddlePoint returns the approximate crossing point of the inner tangents
// of the two buds: the point on the segment between them that splits it in
// proportion to their sizes.
func MiddlePoint(b1, b2 *meristem.Bud) mgl64.Vec3 {
	dir := DirVector(b2, b1)
	lineLen := dir.Len()
	normed := dir.Mul(1 / lineLen)

	d1 := (b1.Scale * lineLen) / (b1.Scale + b2.Scale)

	return mgl64.Vec3{
		geometry.NormAngle(b1.Angle + d1*normed.X()),
		b1.Height + d1*normed.Y(),
		b1.Radius + d1*normed.Z(),
	}
}

// OcclusionCone returns the cone predicate for the region hidden behind b2
// as seen from b1. The apex sits at the inner tangent crossing and the
// cone widens at the rate set by b2's size at its distance from the apex.
func OcclusionCone(b1, b2 *meristem.Bud) geometry.ConeChecker {
	dir := DirVector(b2, b1)
	apex := MiddlePoint(b1, b2)
	h := geometry.Diff(b2.Vec(), apex).Len()
	return geometry.ConeChecker{Tip: apex, Dir: dir, R: b2.Scale, H: h}
}

// PlaneBetween returns the separating plane predicate used when the two
// bud circles overlap: the plane through b2 perpendicular to the direction
// from b1, keeping everything on b1's side.
func PlaneBetween(b1, b2 *meristem.Bud) geometry.PlaneChecker {
	return geometry.PlaneChecker{Normal: DirVector(b1, b2), Ref: b2.Vec()}
}

// LineDistance measures the distance of buds from the 3-space line through
// two reference buds.
type LineDistance struct {
	ref *meristem.Bud
	dir mgl64.Vec3
}

// NewLineDistance builds the checker for the line through b1 and b2.
func NewLineDistance(b1, b2 *meristem.Bud) LineDistance {
	return LineDistance{ref: b1, dir: DirVector(b1, b2)}
}

// Distance returns the distance of the bud from the line.
func (l LineDistance) Distance(b *meristem.Bud) float64 {
	diff := mgl64.Vec3{
		geometry.NormAngle(b.Angle - l.ref.Angle),
		b.Height - l.ref.Height,
		b.Radius - l.ref.Radius,
	}
	return diff.Cross(l.dir).Len() / l.dir.Len()
}

// A LinearFunc is the 2D line through two buds in the (angle·radius,
// height) plane. Eval returns the line's height at a bud's angle.
//
// When the two buds share an angle the line is parallel to the height
// axis and no height function exists; Eval then returns the queried bud's
// own height for that angle (trivially "on the line") and a far-off
// sentinel everywhere else.
type LinearFunc struct {
	b1       *meristem.Bud
	slope    float64
	vertical bool
}

// NewLinearFunc builds the line through b1 and b2. Both buds are assumed
// to sit at the same radius.
func NewLinearFunc(b1, b2 *meristem.Bud) LinearFunc {
	dx := b1.Angle2X(b2.Angle - b1.Angle)
	if dx == 0 {
		return LinearFunc{b1: b1, vertical: true}
	}
	return LinearFunc{b1: b1, slope: (b2.Height - b1.Height) / dx}
}

// Eval returns the height of the line at the given bud's angle.
func (f LinearFunc) Eval(b *meristem.Bud) float64 {
	if f.vertical {
		if b.Angle == f.b1.Angle {
			return b.Height
		}
		return b.Height + 10000
	}
	return f.slope*b.Angle2X(b.Angle-f.b1.Angle) + f.b1.Height
}

// OnLine reports whether the bud lies on the line to within its own scale.
func (f LinearFunc) OnLine(b *meristem.Bud) bool {
	return math.Abs(f.Eval(b)-b.Height) < b.Scale
}
