// Package flatview renders a meristem unrolled onto the plane as SVG:
// the cylinder is cut along angle ±π and flattened, so each bud becomes
// a circle at (angle·radius, height). Buds crossing the cut are drawn
// twice, once on each edge, so the seam reads correctly.
package flatview

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/jbeda/geom"

	"github.com/talgya/magnolia/internal/meristem"
)

// Styles for the rendered layers.
const (
	defaultStyle = "stroke-width: 0.05; stroke-linecap: round; fill: none"
	budStyle     = "stroke: black"
	frontStyle   = "stroke: red; fill: rgba(255,0,0,0.1)"
	axisStyle    = "stroke: green; stroke-dasharray: 0.2 0.2"
)

// SVG is a minimal SVG serialization helper.
type SVG struct {
	writer io.Writer
}

func NewSVG(w io.Writer) *SVG {
	return &SVG{w}
}

func (svg *SVG) printf(format string, a ...any) (int, error) {
	return fmt.Fprintf(svg.writer, format, a...)
}

func extraparams(s []string) string {
	ep := ""
	for i := 0; i < len(s); i++ {
		if strings.Index(s[i], "=") > 0 {
			ep += s[i] + " "
		} else if len(s[i]) > 0 {
			ep += fmt.Sprintf("style='%s' ", s[i])
		}
	}
	return ep
}

func (svg *SVG) Start(viewBox geom.Rect, s ...string) {
	svg.printf(`<?xml version="1.0"?>
<svg version="1.1"
     viewBox="%f %f %f %f"
     xmlns="http://www.w3.org/2000/svg" %s>
`, viewBox.Min.X, viewBox.Min.Y, viewBox.Width(), viewBox.Height(), extraparams(s))
}

func (svg *SVG) End() {
	svg.printf("</svg>\n")
}

func (svg *SVG) Circle(c geom.Coord, r float64, s ...string) {
	svg.printf("<circle cx='%f' cy='%f' r='%f' %s/>\n", c.X, c.Y, r, extraparams(s))
}

func (svg *SVG) Line(p1, p2 geom.Coord, s ...string) {
	svg.printf("<line x1='%f' y1='%f' x2='%f' y2='%f' %s/>\n", p1.X, p1.Y, p2.X, p2.Y, extraparams(s))
}

func (svg *SVG) Polyline(pts []geom.Coord, s ...string) {
	if len(pts) == 0 {
		return
	}
	svg.printf("<polyline points='")
	for i, p := range pts {
		if i > 0 {
			svg.printf(" ")
		}
		svg.printf("%f,%f", p.X, p.Y)
	}
	svg.printf("' %s/>\n", extraparams(s))
}

// flatCoord maps a bud to the unrolled plane. SVG y grows downward, so
// height is negated to draw the stem growing up.
func flatCoord(b *meristem.Bud) geom.Coord {
	return geom.Coord{X: b.Angle2X(b.Angle), Y: -b.Height}
}

// A View renders buds, and optionally the front and axis overlays, to
// one SVG document.
type View struct {
	Buds  []*meristem.Bud
	Front []*meristem.Bud
	Axes  [][]*meristem.Bud
}

// Bounds returns the view box: the full unrolled circumference wide,
// tall enough for the highest bud, with a half-bud margin all around.
func (v *View) Bounds() geom.Rect {
	if len(v.Buds) == 0 {
		return geom.Rect{Min: geom.Coord{X: -1, Y: -1}, Max: geom.Coord{X: 1, Y: 1}}
	}

	margin := 0.0
	top, halfWidth := 0.0, 0.0
	for _, b := range v.Buds {
		if w := math.Pi * b.Radius; w > halfWidth {
			halfWidth = w
		}
		if h := b.Height + b.Scale; h > top {
			top = h
		}
		if b.Scale > margin {
			margin = b.Scale
		}
	}

	r := geom.Rect{
		Min: geom.Coord{X: -halfWidth, Y: -top},
		Max: geom.Coord{X: halfWidth, Y: 0},
	}
	r.ExpandToContainCoord(geom.Coord{X: -halfWidth - margin, Y: -top - margin})
	r.ExpandToContainCoord(geom.Coord{X: halfWidth + margin, Y: margin})
	return r
}

// Render writes the complete SVG document.
func (v *View) Render(w io.Writer) {
	svg := NewSVG(w)
	svg.Start(v.Bounds(), defaultStyle)

	for _, b := range v.Buds {
		v.drawBud(svg, b, budStyle)
	}
	for _, b := range v.Front {
		v.drawBud(svg, b, frontStyle)
	}
	for _, axis := range v.Axes {
		pts := make([]geom.Coord, len(axis))
		for i, b := range axis {
			pts[i] = flatCoord(b)
		}
		svg.Polyline(pts, axisStyle)
	}

	svg.End()
}

// drawBud draws a bud circle, duplicating it across the seam when it
// overlaps the ±π cut.
func (v *View) drawBud(svg *SVG, b *meristem.Bud, style string) {
	c := flatCoord(b)
	svg.Circle(c, b.Scale, style)

	circumference := 2 * math.Pi * b.Radius
	if c.X+b.Scale > circumference/2 {
		svg.Circle(geom.Coord{X: c.X - circumference, Y: c.Y}, b.Scale, style)
	}
	if c.X-b.Scale < -circumference/2 {
		svg.Circle(geom.Coord{X: c.X + circumference, Y: c.Y}, b.Scale, style)
	}
}
