// Package geometry is the kernel of the phyllotaxis simulation: angle
// normalization on the periodic cylinder surface, distances in the
// (angle, height) plane, circle packing primitives and the occlusion
// predicates used by the visibility graph.
//
// Everything here is pure: no package state, no side effects. Angles are
// radians; the angular axis wraps at ±π.
package geometry

import (
	"errors"
	"math"
	"sort"
)

// Sentinel errors for the recoverable failure modes of the kernel.
// Callers are expected to fall back rather than abort: a missing front or a
// degenerate circle pair is a normal outcome of tight packings.
var (
	// ErrNoFront is returned when no valid front can be constructed,
	// i.e. some circle has no touching neighbour to its angular left
	// before the chain returns to its start.
	ErrNoFront = errors.New("geometry: no valid front")

	// ErrDegenerate is returned when two circles coincide and a tangent
	// construction between them has no solution.
	ErrDegenerate = errors.New("geometry: degenerate circle pair")

	// ErrNotQuadratic is returned when a quadratic solve is requested
	// with a zero leading coefficient. Unlike a negative discriminant
	// this is invalid input, not a geometric "no intersection".
	ErrNotQuadratic = errors.New("geometry: leading coefficient is zero")

	// ErrNoRoots is returned when a quadratic has no real roots.
	ErrNoRoots = errors.New("geometry: no real roots")
)

// Epsilon is the default tolerance for approximate float comparisons.
const Epsilon = 0.001

// NormAngle wraps the given angle around ±π.
//
// The result is always in [-π, π), it is idempotent and 2π-periodic.
func NormAngle(angle float64) float64 {
	a := math.Mod(angle+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// ApproxEqual reports whether a and b differ by less than diff.
func ApproxEqual(a, b, diff float64) bool {
	return math.Abs(a-b) < diff
}

// CylinderDist returns the Euclidean distance between two (angle, height)
// points on the unwrapped cylinder surface. The angular difference is
// normalized, so the shortest way around the cylinder is always used.
//
// The result is NOT scaled by the cylinder radius; callers that mix
// cylinders of different radii must scale the angular axis themselves.
func CylinderDist(a1, h1, a2, h2 float64) float64 {
	return math.Hypot(NormAngle(a1-a2), h1-h2)
}

// SolveQuadratic returns the real roots of a*x² + b*x + c = 0, largest
// first. A negative discriminant yields ErrNoRoots ("no intersection"),
// while a zero leading coefficient yields ErrNotQuadratic since the input
// is not a quadratic at all.
func SolveQuadratic(a, b, c float64) (x0, x1 float64, err error) {
	if a == 0 {
		return 0, 0, ErrNotQuadratic
	}
	discr := b*b - 4*a*c
	switch {
	case discr < 0:
		return 0, 0, ErrNoRoots
	case discr == 0:
		x := -0.5 * b / a
		return x, x, nil
	}

	// The usual numerically stable form: avoid cancellation by picking
	// the sign of the square root to match b.
	var q float64
	if b > 0 {
		q = -0.5 * (b + math.Sqrt(discr))
	} else {
		q = -0.5 * (b - math.Sqrt(discr))
	}
	x0, x1 = q/a, c/q
	if x0 < x1 {
		x0, x1 = x1, x0
	}
	return x0, x1, nil
}

// A Circle is a circle on the unwrapped cylinder surface: its center sits
// at (Angle, Height) and its radius is Scale. It is the unit the packing
// routines work with; buds project down to circles before packing.
type Circle struct {
	Angle  float64
	Height float64
	Scale  float64
}

// Distance returns the distance between the centers of two circles.
func (c Circle) Distance(o Circle) float64 {
	return CylinderDist(c.Angle, c.Height, o.Angle, o.Height)
}

// Intersecting reports whether the two circles properly overlap. Tangent
// circles are not considered intersecting, with a small epsilon of slack.
func Intersecting(c1, c2 Circle) bool {
	return c1.Distance(c2) < c1.Scale+c2.Scale-1e-7
}

// CheckCollisions reports whether the circle overlaps any circle in the
// given list.
func CheckCollisions(c Circle, against []Circle) bool {
	for _, o := range against {
		if Intersecting(c, o) {
			return true
		}
	}
	return false
}

// ByHeight returns a copy of the circles sorted by height, highest first.
func ByHeight(circles []Circle) []Circle {
	out := make([]Circle, len(circles))
	copy(out, circles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Height > out[j].Height })
	return out
}

// ByAngle returns a copy of the circles sorted by angle, descending.
func ByAngle(circles []Circle) []Circle {
	out := make([]Circle, len(circles))
	copy(out, circles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Angle > out[j].Angle })
	return out
}

// Touching returns the indices of all circles touching circles[i],
// preserving the order of the input list. Two circles touch when their
// center distance is below the sum of their radii plus the precision.
func Touching(i int, circles []Circle, precision float64) []int {
	var out []int
	for j, c := range circles {
		if j == i {
			continue
		}
		if circles[i].Distance(c) < c.Scale+circles[i].Scale+precision {
			out = append(out, j)
		}
	}
	return out
}

// FirstGap scans the circles cyclically, sorted by angle, and returns the
// angular midpoint of the first gap wide enough to admit a new circle of
// the given radius. ok is false when the ring is closed.
//
// A single circle is its own cyclic neighbour; the gap is then the rest of
// the ring and the midpoint is the diametrically opposite angle.
func FirstGap(circles []Circle, radius float64) (angle float64, ok bool) {
	if len(circles) == 0 {
		return 0, false
	}
	if len(circles) == 1 {
		c := circles[0]
		if 2*c.Scale+2*radius < 2*math.Pi {
			return NormAngle(c.Angle - math.Pi), true
		}
		return 0, false
	}

	sorted := ByAngle(circles)
	for i, c1 := range sorted {
		c2 := sorted[(i+1)%len(sorted)]
		dist := math.Abs(NormAngle(c1.Angle - c2.Angle))
		if c1.Scale+c2.Scale+2*radius < dist {
			return NormAngle(c1.Angle - dist/2), true
		}
	}
	return 0, false
}

// ClosestCircle returns the position of a circle of the given radius that
// is simultaneously tangent to c1 and c2, choosing the solution with the
// greater height (new growth always settles upward). This is the
// intersection of two circles centered on c1 and c2 with radii
// c1.Scale+radius and c2.Scale+radius.
//
// Returns ErrDegenerate when c1 and c2 coincide.
func ClosestCircle(c1, c2 Circle, radius float64) (Circle, error) {
	r1 := c1.Scale + radius
	r2 := c2.Scale + radius
	d := c1.Distance(c2)

	if ApproxEqual(d, 0, Epsilon) {
		return Circle{}, ErrDegenerate
	}

	a := (r1*r1 - r2*r2 + d*d) / (2 * d)
	var h float64
	if r1 >= math.Abs(a) {
		h = math.Sqrt(r1*r1 - a*a)
	}

	dx := NormAngle(c2.Angle - c1.Angle)
	dy := c2.Height - c1.Height

	midx := c1.Angle + a*dx/d
	midy := c1.Height + a*dy/d

	x1, y1 := midx+h*dy/d, midy-h*dx/d
	x2, y2 := midx-h*dy/d, midy+h*dx/d

	if y1 > y2 {
		return Circle{Angle: NormAngle(x1), Height: y1, Scale: radius}, nil
	}
	return Circle{Angle: NormAngle(x2), Height: y2, Scale: radius}, nil
}

// Front extracts the current growth front from the circles: the zigzag
// ring of mutually tangent circles bounding the packing from above. Each
// member touches the one on its angular left; the chain starts at the
// highest circle and follows left neighbours until it closes.
//
// Returns ErrNoFront when some circle has no touching left neighbour
// before the chain revisits its start. The walk tracks visited circles, so
// it always terminates.
func Front(circles []Circle) ([]Circle, error) {
	if len(circles) == 0 {
		return nil, nil
	}

	sorted := ByHeight(circles)
	const precision = 0.1

	seen := make(map[int]bool, len(sorted))
	front := []Circle{sorted[0]}
	cur := 0
	for {
		next, err := highestLeft(cur, sorted, precision)
		if err != nil {
			return nil, err
		}
		if next == 0 || seen[next] {
			return front, nil
		}
		seen[next] = true
		front = append(front, sorted[next])
		cur = next
	}
}

// highestLeft returns the index of the highest circle touching
// circles[i] on its angular left. The list must be sorted by height
// descending, so the first touching left neighbour is the highest one.
func highestLeft(i int, circles []Circle, precision float64) (int, error) {
	for _, j := range Touching(i, circles, precision) {
		if NormAngle(circles[j].Angle-circles[i].Angle) > 0 {
			return j, nil
		}
	}
	return 0, ErrNoFront
}

// CycleRing rotates a ring of circles by n positions, moving the last
// circle to the front each time. The ring is assumed sorted by angle.
// When the moved circle crosses the ±π discontinuity its angle is shifted
// by 2π so the sequence stays contiguous for downstream arithmetic.
func CycleRing(ring []Circle, n int) []Circle {
	if len(ring) == 0 {
		return nil
	}
	out := make([]Circle, len(ring))
	copy(out, ring)

	for ; n > 0; n-- {
		last := out[len(out)-1]
		first := last
		if math.Abs(last.Angle-out[0].Angle) > math.Pi {
			first = Circle{Angle: last.Angle - 2*math.Pi, Height: last.Height, Scale: last.Scale}
		}
		copy(out[1:], out[:len(out)-1])
		out[0] = first
	}
	return out
}
