package positioner

import (
	"log/slog"
	"math"

	"github.com/talgya/magnolia/internal/entropy"
	"github.com/talgya/magnolia/internal/geometry"
)

// packState tracks which phase of growth the packer is in. Transitions
// are monotonic: once the ground ring closes the packer never returns to
// it.
type packState uint8

const (
	stateBootstrap packState = iota
	stateGroundRing
	stateFrontPacking
)

// A LowestAvailable packer simulates physically realistic growth: each
// new bud settles into the lowest spot where it touches two of its
// predecessors, like a ball dropped onto the pile.
//
// Packing runs on the unit cylinder: angles in radians, heights and
// circle radii divided by the stem radius, so both axes share units and
// the geometry kernel's radius-free distances apply directly.
type LowestAvailable struct {
	cursor

	// Decay is the percentage each bud is smaller than the previous one.
	Decay float64

	// JitterPct randomizes the decay by up to ±JitterPct percent of
	// itself, breaking perfect regularity. Requires a Source.
	JitterPct float64

	radius     float64
	startScale float64
	scale      float64

	rng    entropy.Source
	state  packState
	placed []geometry.Circle
}

// NewLowestAvailable builds a gap packer. startSize is the scale of the
// first bud; decay shrinks each following bud by that percentage, and
// jitterPct randomizes the shrink using the given source (nil disables
// jitter).
func NewLowestAvailable(startSize, decay, jitterPct float64, rng entropy.Source) *LowestAvailable {
	return &LowestAvailable{
		cursor:     newCursor(0, 0),
		Decay:      decay,
		JitterPct:  jitterPct,
		radius:     BaseRadius,
		startScale: startSize,
		scale:      startSize,
		rng:        rng,
	}
}

// Reset forgets all placed circles and rewinds to the bootstrap state.
func (l *LowestAvailable) Reset() {
	l.cursor.reset()
	l.scale = l.startScale
	l.state = stateBootstrap
	l.placed = nil
}

// groundHeight is the packing-plane height of the base ring.
func (l *LowestAvailable) groundHeight() float64 {
	return l.startHeight / l.radius
}

// NextPos computes where the next bud settles.
func (l *LowestAvailable) NextPos() (Pos, error) {
	r := l.scale / l.radius
	ground := l.groundHeight()

	var c geometry.Circle
	switch l.state {
	case stateBootstrap:
		// The very first bud goes opposite the start angle on the base.
		c = geometry.Circle{
			Angle:  geometry.NormAngle(l.currentAngle + math.Pi),
			Height: ground,
			Scale:  r,
		}
		l.state = stateGroundRing

	case stateGroundRing:
		angle, ok := l.groundGap(r, ground)
		if ok {
			c = geometry.Circle{Angle: angle, Height: ground, Scale: r}
			break
		}
		l.state = stateFrontPacking
		fallthrough

	case stateFrontPacking:
		c = l.packNext(r)
	}

	l.placed = append(l.placed, c)
	l.decayScale()

	return Pos{
		Angle:  geometry.NormAngle(c.Angle),
		Height: c.Height * l.radius,
		Radius: l.radius,
		Scale:  c.Scale * l.radius,
	}, nil
}

// groundGap looks for an angular gap on the base ring wide enough for a
// circle of radius r. The ring is still open only while the last placed
// circle sits on the ground.
func (l *LowestAvailable) groundGap(r, ground float64) (float64, bool) {
	last := l.placed[len(l.placed)-1]
	if !geometry.ApproxEqual(last.Height, ground, geometry.Epsilon) {
		return 0, false
	}

	var ring []geometry.Circle
	for _, c := range l.placed {
		if geometry.ApproxEqual(c.Height, ground, geometry.Epsilon) {
			ring = append(ring, c)
		}
	}
	return geometry.FirstGap(ring, r)
}

// packNext finds the lowest position where a circle of radius r rests
// tangent on two members of the current front.
//
// Candidates are generated from consecutive front pairs across three
// cyclic rotations of the front, so pairs spanning the ±π discontinuity
// are seen with contiguous angles. A candidate colliding with any of the
// most recently placed circles is discarded; older circles are buried and
// cannot be reached. Of the survivors the lowest wins.
func (l *LowestAvailable) packNext(r float64) geometry.Circle {
	front, err := geometry.Front(l.placed)
	if err != nil || len(front) < 2 {
		// No constructible front: fall back to the raw circles sorted
		// by angle and treat them as the resting surface.
		front = geometry.ByAngle(l.placed)
	}

	recent := l.placed
	if n := 2 * len(front); len(recent) > n {
		recent = recent[len(recent)-n:]
	}

	best := geometry.Circle{}
	found := false
	for rot := 0; rot < 3; rot++ {
		ring := geometry.CycleRing(front, rot)
		for i := 0; i+1 < len(ring); i++ {
			c, err := geometry.ClosestCircle(ring[i], ring[i+1], r)
			if err != nil {
				continue
			}
			if geometry.CheckCollisions(c, recent) {
				continue
			}
			if !found || c.Height < best.Height {
				best, found = c, true
			}
		}
	}
	if found {
		return best
	}

	// Every tangent spot collides (extremely tight packing or a
	// degenerate front). Rest the new circle on top of the highest one.
	slog.Warn("gap packer found no tangent candidate, stacking on top",
		"placed", len(l.placed), "front", len(front))
	top := geometry.ByHeight(l.placed)[0]
	return geometry.Circle{
		Angle:  geometry.NormAngle(top.Angle),
		Height: top.Height + top.Scale + r,
		Scale:  r,
	}
}

// decayScale shrinks the next bud by the configured decay, jittered.
func (l *LowestAvailable) decayScale() {
	if l.Decay == 0 {
		return
	}
	d := l.Decay + entropy.Jitter(l.rng, l.Decay*l.JitterPct/100)
	l.scale *= 1 - d/100
}
