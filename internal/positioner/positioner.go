// Package positioner implements the placement algorithms that decide
// where each new bud goes: fixed rings, shrinking rings, a constant
// divergence angle, and physically-motivated lowest-gap packing.
//
// A positioner is a small state machine: each NextPos call advances the
// cursor by one bud and returns the placement tuple the caller applies to
// a bud record it owns. Reset rewinds to the start values.
package positioner

import (
	"math"

	"github.com/talgya/magnolia/internal/meristem"
)

// BaseRadius is the default cylinder radius buds are placed on.
const BaseRadius = 3.0

// A Pos is one placement: where the next bud goes and how big it is.
type Pos struct {
	Angle  float64 `json:"angle"`
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
	Scale  float64 `json:"scale"`
}

// A Positioner produces successive bud placements according to a growth
// model. Implementations are single-caller: NextPos mutates cursor state.
type Positioner interface {
	// NextPos computes the placement of the next bud.
	NextPos() (Pos, error)

	// Reset rewinds the positioner to its start state.
	Reset()
}

// cursor is the state every positioner drags along: the current angle and
// height plus the values Reset rewinds to.
type cursor struct {
	startAngle    float64
	startHeight   float64
	currentAngle  float64
	currentHeight float64
}

func newCursor(startAngle, startHeight float64) cursor {
	return cursor{
		startAngle:    startAngle,
		startHeight:   startHeight,
		currentAngle:  startAngle,
		currentHeight: startHeight,
	}
}

func (c *cursor) reset() {
	c.currentAngle = c.startAngle
	c.currentHeight = c.startHeight
}

// Recalculate re-runs the positioner over an existing collection,
// rewriting the positions of every bud from the given index on. Used when
// a parameter change must reshape already-placed rings in place.
func Recalculate(p Positioner, buds []*meristem.Bud, index int) error {
	p.Reset()
	for i, b := range buds {
		pos, err := p.NextPos()
		if err != nil {
			return err
		}
		if i < index {
			continue
		}
		b.Angle = pos.Angle
		b.Height = pos.Height
		b.Radius = pos.Radius
		b.Scale = pos.Scale
	}
	return nil
}

// angleSpacedScale returns the bud scale that makes perRing buds span the
// circumference of a cylinder of the given radius.
func angleSpacedScale(radius float64, perRing int) float64 {
	return math.Pi * radius / float64(perRing)
}
