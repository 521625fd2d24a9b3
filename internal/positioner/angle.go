package positioner

import (
	"math"

	"github.com/talgya/magnolia/internal/geometry"
)

// An Angle positioner advances by a constant divergence angle, wrapping
// onto a new row whenever a full turn completes. Rows interlock: the
// lateral step grows with the divergence angle so neighbouring buds never
// overlap, and the vertical step shrinks correspondingly.
type Angle struct {
	cursor

	// Divergence is the rotation between consecutive rows.
	Divergence float64

	radius    float64
	budScale  float64
	perRow    int
	angleStep float64
	latStep   float64
	verStep   float64
	row       int
}

// NewAngle builds an angle positioner with the given divergence angle and
// buds per row.
func NewAngle(divergence float64, perRow int) *Angle {
	a := &Angle{
		cursor:     newCursor(0, 0),
		Divergence: divergence,
		radius:     BaseRadius,
		budScale:   angleSpacedScale(BaseRadius, perRow),
		perRow:     perRow,
	}
	a.calcSteps()
	return a
}

// calcSteps derives the lateral and vertical steps. If the divergence is
// small each bud lies flush against the previous one, so the lateral step
// is a full bud diameter in angle space; past 45° it must widen to keep
// rows from overlapping. The vertical step is the complementary leg.
func (a *Angle) calcSteps() {
	twoR := 2 * math.Pi / float64(a.perRow)
	a.angleStep = twoR * math.Sin(a.Divergence)
	a.latStep = math.Max(twoR, a.angleStep*2)
	a.verStep = 2 * a.budScale * math.Cos(a.Divergence)
	a.row = 0
}

// Reset rewinds to the first bud of the first row.
func (a *Angle) Reset() {
	a.cursor.reset()
	a.row = 0
}

// NextPos returns the placement of the next bud.
func (a *Angle) NextPos() (Pos, error) {
	a.currentAngle += a.latStep

	if a.currentAngle > 2*math.Pi {
		a.row++
		a.currentAngle = math.Mod(float64(a.row)*a.angleStep, a.latStep)
		a.currentHeight += a.verStep
	}

	return Pos{
		Angle:  geometry.NormAngle(a.currentAngle),
		Height: a.currentHeight,
		Radius: a.radius,
		Scale:  a.budScale,
	}, nil
}
