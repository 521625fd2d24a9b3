package graph

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/talgya/magnolia/internal/geometry"
	"github.com/talgya/magnolia/internal/meristem"
)

// helixStep is the angular sampling step for drawing helices, 5 degrees.
const helixStep = 5 * math.Pi / 180

// A Helix is the line of buds through two reference buds, parameterized
// by a constant angle/height slope. Two degenerate forms exist: a circle
// when the buds share a height, and a vertical line when they share an
// angle.
type Helix struct {
	kind helixKind
	b1   meristem.Bud
	b2   meristem.Bud

	// slope of the membership test: Δangle per Δheight.
	slope float64
}

type helixKind uint8

const (
	helixProper helixKind = iota
	helixCircle
	helixVertical
)

// HelixThrough derives the unique helix through the two buds.
func HelixThrough(b1, b2 *meristem.Bud) Helix {
	hdiff := b2.Height - b1.Height
	adiff := geometry.NormAngle(b2.Angle - b1.Angle)
	if b2.Height < b1.Height {
		hdiff, adiff = -hdiff, -adiff
	}

	h := Helix{b1: *b1, b2: *b2}
	switch {
	case math.Abs(hdiff) < geometry.Epsilon:
		h.kind = helixCircle
	case math.Abs(adiff) < geometry.Epsilon:
		h.kind = helixVertical
	default:
		h.slope = math.Atan(adiff / hdiff)
	}
	return h
}

// Slope returns the angle change per unit height, zero for the
// degenerate forms.
func (h Helix) Slope() float64 { return h.slope }

// Anchors returns copies of the two buds the helix was derived from.
func (h Helix) Anchors() (meristem.Bud, meristem.Bud) { return h.b1, h.b2 }

// Kind names the helix form.
func (h Helix) Kind() string {
	switch h.kind {
	case helixCircle:
		return "circle"
	case helixVertical:
		return "vertical"
	default:
		return "helix"
	}
}

// Contains reports whether the bud lies on the helix, to within the bud's
// own scale (scaled down for steep helices so the band stays narrow).
func (h Helix) Contains(b *meristem.Bud) bool {
	switch h.kind {
	case helixCircle:
		return math.Abs(b.Height-h.b1.Height) < geometry.Epsilon
	case helixVertical:
		return math.Abs(geometry.NormAngle(b.Angle-h.b1.Angle)) < geometry.Epsilon
	}

	angleDiff := geometry.NormAngle(b.Angle - h.b1.Angle)
	heightDiff := geometry.NormAngle(h.slope * (b.Height - h.b1.Height))
	return math.Abs(angleDiff-heightDiff) < math.Min(1, math.Abs(h.slope))*b.Scale
}

// Points samples cartesian points along the helix from the stem base up to
// the given height, for display. Consecutive points are one sampling step
// apart; the samples sit just outside the reference bud's surface.
func (h Helix) Points(height float64) []mgl64.Vec3 {
	r := h.b1.Radius + h.b1.Scale

	switch h.kind {
	case helixCircle:
		out := make([]mgl64.Vec3, 0, 72)
		for a := 0.0; a < 2*math.Pi; a += helixStep {
			out = append(out, meristem.CylToCart(a, h.b1.Height, r))
		}
		return out

	case helixVertical:
		n := int(math.Round(height))
		out := make([]mgl64.Vec3, 0, max(n, 0))
		for y := 0; y < n; y++ {
			out = append(out, meristem.CylToCart(h.b1.Angle, float64(y), r))
		}
		return out
	}

	// The proper helix is the unit helix shifted to b1 and stretched so
	// it passes through b2: angle(t) = b1.angle + t,
	// height(t) = b1.height + slope·t.
	hdiff := h.b2.Height - h.b1.Height
	adiff := geometry.NormAngle(h.b2.Angle - h.b1.Angle)
	slope := hdiff / adiff

	// Walk t from where the helix crosses height 0 up to the requested
	// height, in angular steps.
	i0 := int(math.Round(-h.b1.Height / (slope * helixStep)))
	iend := int(math.Round((height - h.b1.Height) / (slope * helixStep)))
	lo, hi := min(i0, iend), max(i0, iend)

	out := make([]mgl64.Vec3, 0, hi-lo)
	for i := lo; i < hi; i++ {
		t := float64(i) * helixStep
		out = append(out, meristem.CylToCart(
			geometry.NormAngle(t+h.b1.Angle),
			slope*t+h.b1.Height,
			r,
		))
	}
	return out
}
