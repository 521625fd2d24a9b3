package meristem

import (
	"math"
	"sort"

	"github.com/talgya/magnolia/internal/geometry"
)

// A Meristem owns the growing set of placed buds for one simulation run.
// Buds live in a dense arena indexed by their ID, so references between
// buds (graph adjacency, fronts, axes) are plain integers and snapshots
// are cheap. A Meristem must not be mutated concurrently; callers
// serialize placement and queries.
type Meristem struct {
	buds   []*Bud
	nextID int
}

// New returns an empty meristem.
func New() *Meristem {
	return &Meristem{}
}

// Add places a new bud with the given position and returns it. The
// meristem assigns the ID; callers never pick their own. The angle is
// normalized on the way in, so stored buds always satisfy the ±π range.
func (m *Meristem) Add(angle, height, radius, scale float64) *Bud {
	b := &Bud{
		ID:     m.nextID,
		Angle:  geometry.NormAngle(angle),
		Height: height,
		Radius: radius,
		Scale:  scale,
	}
	m.nextID++
	m.buds = append(m.buds, b)
	return b
}

// Len returns the number of placed buds.
func (m *Meristem) Len() int {
	return len(m.buds)
}

// Buds returns the placed buds in placement order. The slice is shared;
// callers must not modify it.
func (m *Meristem) Buds() []*Bud {
	return m.buds
}

// Get returns the bud with the given ID, or nil.
func (m *Meristem) Get(id int) *Bud {
	for _, b := range m.buds {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Remove deletes the given bud by identity. Removing a bud that is not in
// the meristem does nothing.
func (m *Meristem) Remove(bud *Bud) {
	for i, b := range m.buds {
		if b == bud {
			m.buds = append(m.buds[:i], m.buds[i+1:]...)
			return
		}
	}
}

// Move reorders the given bud to the given index, shifting the buds in
// between. Negative indexes count from the end; out-of-bounds indexes
// leave the order unchanged.
func (m *Meristem) Move(bud *Bud, index int) {
	if index > len(m.buds) || -index > len(m.buds) {
		return
	}
	if index < 0 {
		index = len(m.buds) + index
	}
	m.Remove(bud)
	if index > len(m.buds) {
		index = len(m.buds)
	}
	m.buds = append(m.buds[:index], append([]*Bud{bud}, m.buds[index:]...)...)
}

// Truncate drops all buds from the given index on.
func (m *Meristem) Truncate(index int) {
	if index < 0 || index >= len(m.buds) {
		return
	}
	m.buds = m.buds[:index]
}

// Closest returns all buds other than the given one, sorted by their
// distance to it, nearest first.
func (m *Meristem) Closest(bud *Bud) []*Bud {
	out := make([]*Bud, 0, len(m.buds))
	for _, b := range m.buds {
		if b != bud {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return bud.Distance(out[i]) < bud.Distance(out[j])
	})
	return out
}

// Radius returns the meristem's radius: the max radius over all buds.
func (m *Meristem) Radius() float64 {
	var r float64
	for _, b := range m.buds {
		r = math.Max(r, b.Radius)
	}
	return r
}

// Height returns the meristem's height: the top of its highest bud.
func (m *Meristem) Height() float64 {
	var h float64
	for _, b := range m.buds {
		h = math.Max(h, b.Height+b.Scale)
	}
	return h
}
