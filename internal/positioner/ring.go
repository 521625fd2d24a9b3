package positioner

import (
	"math"

	"github.com/talgya/magnolia/internal/geometry"
)

// A Ring places perRing evenly spaced buds around each ring, then rotates
// the next ring by a fixed angle offset and raises it so consecutive
// rings touch.
type Ring struct {
	cursor

	// Angle is the rotation between consecutive rings.
	Angle float64

	radius    float64
	budScale  float64
	perRing   int
	angleStep float64

	// 0 means derive the ring height so rings are tangent.
	heightOverride float64

	ring      int
	ringPlace int
}

// RingOption tweaks ring construction.
type RingOption func(*Ring)

// WithRingHeight fixes the distance between rings instead of deriving it
// from tangency.
func WithRingHeight(h float64) RingOption {
	return func(r *Ring) { r.heightOverride = h }
}

// WithRingScale fixes the bud scale instead of spacing buds to span the
// circumference.
func WithRingScale(s float64) RingOption {
	return func(r *Ring) { r.budScale = s }
}

// WithRingStart sets the starting angle and height.
func WithRingStart(angle, height float64) RingOption {
	return func(r *Ring) {
		r.cursor = newCursor(angle, height)
	}
}

// NewRing builds a ring positioner rotating each ring by angle, with
// perRing buds per ring.
func NewRing(angle float64, perRing int, opts ...RingOption) *Ring {
	r := &Ring{
		cursor:    newCursor(0, 0),
		Angle:     angle,
		radius:    BaseRadius,
		perRing:   perRing,
		angleStep: 2 * math.Pi / float64(perRing),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.budScale == 0 {
		r.budScale = angleSpacedScale(r.radius, perRing)
	}
	return r
}

// RingHeight returns the vertical distance between consecutive rings:
// either the fixed override, or the height at which a bud of the next
// ring, laterally offset by the ring rotation, touches the ring below
// (Pythagoras on the angular offset).
func (r *Ring) RingHeight() float64 {
	if r.heightOverride != 0 {
		return r.heightOverride
	}
	lat := math.Abs(math.Mod(r.Angle, r.angleStep))
	if lat > r.angleStep/2 {
		lat = r.angleStep - lat
	}
	lat *= r.radius
	return math.Sqrt(math.Abs(4*r.budScale*r.budScale - lat*lat))
}

// Reset rewinds to the first bud of the first ring.
func (r *Ring) Reset() {
	r.cursor.reset()
	r.ring = 0
	r.ringPlace = 0
}

// NextPos returns the placement of the next bud, advancing around the
// current ring or up to the next one when the ring is full.
func (r *Ring) NextPos() (Pos, error) {
	if r.ringPlace < r.perRing {
		r.currentAngle -= r.angleStep
		r.ringPlace++
	} else {
		r.nextRing()
	}
	return Pos{
		Angle:  geometry.NormAngle(r.currentAngle),
		Height: r.currentHeight,
		Radius: r.radius,
		Scale:  r.budScale,
	}, nil
}

// nextRing advances to the first bud of the following ring.
func (r *Ring) nextRing() {
	r.ring++
	r.ringPlace = 1
	r.currentAngle = geometry.NormAngle(r.Angle*float64(r.ring) + r.startAngle)
	r.currentHeight += r.RingHeight()
}

// A ChangingRing is a Ring whose buds shrink by a percentage at every
// ring transition; optionally the ring's own radius shrinks with them.
type ChangingRing struct {
	Ring

	// Delta is the per-ring shrink in percent.
	Delta float64

	// ShrinkRadius also pulls each ring closer to the stem axis.
	ShrinkRadius bool

	baseScale  float64
	baseRadius float64
}

// NewChangingRing builds a shrinking ring positioner. delta is the
// percentage by which each ring's buds are smaller than the previous
// ring's.
func NewChangingRing(angle float64, perRing int, delta float64, shrinkRadius bool, opts ...RingOption) *ChangingRing {
	c := &ChangingRing{
		Ring:         *NewRing(angle, perRing, opts...),
		Delta:        delta,
		ShrinkRadius: shrinkRadius,
	}
	c.baseScale = c.budScale
	c.baseRadius = c.radius
	return c
}

// Reset restores the original bud scale and radius along with the cursor.
func (c *ChangingRing) Reset() {
	c.Ring.Reset()
	c.budScale = c.baseScale
	c.radius = c.baseRadius
}

// NextPos places the next bud, shrinking the ring on every transition.
func (c *ChangingRing) NextPos() (Pos, error) {
	if c.ringPlace >= c.perRing {
		factor := 1 - c.Delta/100
		c.budScale *= factor
		if c.ShrinkRadius {
			c.radius *= factor
		}
	}
	return c.Ring.NextPos()
}
