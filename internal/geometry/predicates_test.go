package geometry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDiff(t *testing.T) {
	a := mgl64.Vec3{math.Pi - 0.1, 2, 3}
	b := mgl64.Vec3{-math.Pi + 0.1, 1, 1}
	got := Diff(a, b)

	// The angular component takes the short way around the seam.
	if !ApproxEqual(got.X(), -0.2, 1e-9) {
		t.Errorf("angular diff = %v, want -0.2", got.X())
	}
	if got.Y() != 1 || got.Z() != 2 {
		t.Errorf("linear components = %v, %v", got.Y(), got.Z())
	}
}

func TestConeCheckerContains(t *testing.T) {
	// Unit cone opening upward from the origin: radius 1 at height 1.
	cone := ConeChecker{
		Tip: mgl64.Vec3{0, 0, 0},
		Dir: mgl64.Vec3{0, 1, 0},
		R:   1,
		H:   1,
	}

	cases := []struct {
		name string
		p    mgl64.Vec3
		want bool
	}{
		{"on the axis", mgl64.Vec3{0, 1, 0}, true},
		{"inside near the axis", mgl64.Vec3{0.3, 1, 0}, true},
		{"on the surface is outside", mgl64.Vec3{1, 1, 0}, false},
		{"outside sideways", mgl64.Vec3{1.5, 1, 0}, false},
		{"behind the apex", mgl64.Vec3{0, -1, 0}, false},
		{"apex itself", mgl64.Vec3{0, 0, 0}, false},
		{"deep and wide", mgl64.Vec3{2, 3, 0}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cone.Contains(tc.p); got != tc.want {
				t.Errorf("Contains(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}

func TestConeCheckerWrapsAngle(t *testing.T) {
	// Cone sitting right at the seam, opening toward +angle.
	cone := ConeChecker{
		Tip: mgl64.Vec3{math.Pi - 0.1, 0, 0},
		Dir: mgl64.Vec3{1, 0, 0},
		R:   1,
		H:   1,
	}
	// A point just past the seam is right in front of the apex.
	if !cone.Contains(mgl64.Vec3{-math.Pi + 0.5, 0.1, 0}) {
		t.Error("cone failed to see across the seam")
	}
}

func TestPlaneCheckerKeep(t *testing.T) {
	// Plane through the origin, normal along +height.
	plane := PlaneChecker{
		Normal: mgl64.Vec3{0, 1, 0},
		Ref:    mgl64.Vec3{0, 0, 0},
	}

	cases := []struct {
		name string
		p    mgl64.Vec3
		want bool
	}{
		{"above", mgl64.Vec3{0, 1, 0}, true},
		{"on the plane", mgl64.Vec3{1, 0, 2}, true},
		{"below", mgl64.Vec3{0, -1, 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := plane.Keep(tc.p); got != tc.want {
				t.Errorf("Keep(%v) = %v, want %v", tc.p, got, tc.want)
			}
		})
	}
}
