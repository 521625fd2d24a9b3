// Package meristem holds the bud entity and the growing collection of
// placed buds that positioners and the visibility graph operate on.
package meristem

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/magnolia/internal/geometry"
)

// A Bud is one primordium on the cylindrical stem surface.
//
// Angle is the rotation around the cylinder in radians, normalized to ±π.
// Height is the position along the stem axis. Radius is the distance from
// the central axis (the cylinder radius at this bud), and Scale is the
// bud's own circle radius in the (angle·radius, height) plane.
type Bud struct {
	ID     int
	Angle  float64
	Height float64
	Radius float64
	Scale  float64
}

// Offset returns the bud's cartesian offset from the stem origin. The bud
// sits on a circle in the XZ plane, so plain trigonometry does the trick.
func (b *Bud) Offset() mgl64.Vec3 {
	return CylToCart(b.Angle, b.Height, b.Radius)
}

// CylToCart converts a cylindrical (angle, height, radius) point to a
// cartesian one.
func CylToCart(angle, height, radius float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(angle) * radius, height, math.Cos(angle) * radius}
}

// Angle2X maps an angle to pseudo-2D coordinates: x is the angle scaled by
// the cylinder radius, y is the height. Without the radius factor two buds
// at the same angle but different radii would get the same x, and no width
// or occlusion comparison would work.
func (b *Bud) Angle2X(angle float64) float64 {
	return geometry.NormAngle(angle) * b.Radius
}

// Distance returns the distance between this bud and the other one in the
// pseudo-2D plane.
func (b *Bud) Distance(o *Bud) float64 {
	return math.Hypot(b.Angle2X(b.Angle-o.Angle), b.Height-o.Height)
}

// Opposite reports whether b1 and b2 sit on opposite sides of this bud:
// their angular offsets cancel out and their mean height matches this
// bud's height, both to a precision of 1% of the cylinder radius.
func (b *Bud) Opposite(b1, b2 *Bud) bool {
	anglesDiff := math.Abs(b.Angle2X(b1.Angle-b.Angle) + b.Angle2X(b2.Angle-b.Angle))
	heightDiff := math.Abs(math.Abs(b1.Height+b2.Height)/2 - math.Abs(b.Height))
	return anglesDiff < b.Radius/100 && heightDiff < b.Radius/100
}

// Circle projects the bud onto the unit packing plane: angles stay in
// radians and heights and scales are divided by the cylinder radius, so
// the two axes stay commensurable for the geometry kernel.
func (b *Bud) Circle() geometry.Circle {
	return geometry.Circle{Angle: b.Angle, Height: b.Height / b.Radius, Scale: b.Scale / b.Radius}
}

// Vec returns the bud's position in the (angle, height, radius)
// pseudo-space the occlusion predicates work in.
func (b *Bud) Vec() mgl64.Vec3 {
	return mgl64.Vec3{b.Angle, b.Height, b.Radius}
}

func (b *Bud) String() string {
	return fmt.Sprintf("<Bud %d (angle=%.3f, height=%.3f, radius=%.3f, scale=%.3f)>",
		b.ID, b.Angle, b.Height, b.Radius, b.Scale)
}
