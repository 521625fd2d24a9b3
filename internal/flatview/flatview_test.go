package flatview

import (
	"math"
	"strings"
	"testing"

	"github.com/talgya/magnolia/internal/meristem"
)

func TestRenderBasics(t *testing.T) {
	m := meristem.New()
	m.Add(0, 1, 3, 0.5)
	b2 := m.Add(1, 2, 3, 0.5)

	v := &View{Buds: m.Buds(), Front: []*meristem.Bud{b2}}
	var out strings.Builder
	v.Render(&out)
	got := out.String()

	if !strings.HasPrefix(got, "<?xml") {
		t.Error("missing XML declaration")
	}
	if !strings.HasSuffix(got, "</svg>\n") {
		t.Error("document not closed")
	}
	if n := strings.Count(got, "<circle"); n != 3 {
		t.Errorf("drew %d circles, want 2 buds + 1 front overlay", n)
	}
	if !strings.Contains(got, "stroke: red") {
		t.Error("front overlay not styled")
	}
}

func TestRenderSeamDuplication(t *testing.T) {
	m := meristem.New()
	m.Add(math.Pi-0.05, 1, 3, 0.5)

	v := &View{Buds: m.Buds()}
	var out strings.Builder
	v.Render(&out)

	// A bud overlapping the cut is drawn on both edges.
	if n := strings.Count(out.String(), "<circle"); n != 2 {
		t.Errorf("drew %d circles, want the bud and its seam twin", n)
	}
}

func TestRenderAxes(t *testing.T) {
	m := meristem.New()
	b1 := m.Add(0, 1, 3, 0.3)
	b2 := m.Add(0.5, 2, 3, 0.3)

	v := &View{
		Buds: m.Buds(),
		Axes: [][]*meristem.Bud{{b1, b2}},
	}
	var out strings.Builder
	v.Render(&out)
	got := out.String()

	if !strings.Contains(got, "<polyline") {
		t.Error("axis polyline missing")
	}
	if !strings.Contains(got, "stroke: green") {
		t.Error("axis overlay not styled")
	}
}

func TestBounds(t *testing.T) {
	m := meristem.New()
	m.Add(0, 4, 3, 0.5)

	v := &View{Buds: m.Buds()}
	r := v.Bounds()

	halfWidth := math.Pi * 3
	if r.Min.X > -halfWidth || r.Max.X < halfWidth {
		t.Errorf("bounds %v narrower than the unrolled circumference", r)
	}
	// Top of the bud plus margin, negated for SVG.
	if r.Min.Y > -4.5 {
		t.Errorf("bounds %v do not reach the highest bud", r)
	}
}

func TestBoundsEmpty(t *testing.T) {
	v := &View{}
	r := v.Bounds()
	if r.Width() <= 0 || r.Height() <= 0 {
		t.Errorf("empty view bounds %v degenerate", r)
	}
}
