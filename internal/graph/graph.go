package graph

import (
	"log/slog"

	"github.com/talgya/magnolia/internal/meristem"
)

// Epsilon of slack when deciding whether two bud circles touch.
const touchSlack = 0.0001

// Reachable filters the candidates down to the buds the selected bud can
// see without an intervening occluder. Candidates must be sorted by
// distance from selected, nearest first; the result preserves that order.
//
// The nearest remaining candidate is always visible. If its circle
// overlaps the selected bud's, further candidates behind the separating
// plane through it are dropped; if the circles are disjoint, further
// candidates inside the occlusion cone behind it are dropped. The scan
// then continues with whatever survived.
//
// The selected bud itself is never part of the result; if it shows up as
// the nearest candidate the remaining buds pass through unfiltered, since
// nothing occludes itself.
func Reachable(selected *meristem.Bud, candidates []*meristem.Bud) []*meristem.Bud {
	var out []*meristem.Bud
	rest := candidates

	for len(rest) > 0 {
		tested := rest[0]
		if tested == selected {
			out = append(out, rest[1:]...)
			break
		}

		if selected.Distance(tested) <= selected.Scale+tested.Scale+touchSlack {
			plane := PlaneBetween(selected, tested)
			filtered := rest[:0:0]
			for _, b := range rest[1:] {
				if plane.Keep(b.Vec()) {
					filtered = append(filtered, b)
				}
			}
			rest = filtered
		} else {
			cone := OcclusionCone(selected, tested)
			filtered := rest[:0:0]
			for _, b := range rest[1:] {
				if !cone.Contains(b.Vec()) {
					filtered = append(filtered, b)
				}
			}
			rest = filtered
		}

		out = append(out, tested)
	}
	return out
}

// A Graph maps each bud to the ordered list of buds it can reach in a
// direct line of sight over the cylinder surface. Adjacency is stored as
// bud IDs into the meristem arena, nearest neighbour first.
type Graph struct {
	m     *meristem.Meristem
	nodes map[int][]int

	// RefreshNeighbours controls whether inserting a bud also recomputes
	// the neighbour lists of every bud it became adjacent to. A new bud
	// between two previously-adjacent buds severs their mutual
	// visibility, which only a refresh picks up; skipping it keeps
	// insertion cheap at the cost of slightly stale adjacency. The
	// refresh is O(n²) in the worst case.
	RefreshNeighbours bool
}

// New returns an empty graph over the given meristem.
func New(m *meristem.Meristem, refreshNeighbours bool) *Graph {
	return &Graph{m: m, nodes: make(map[int][]int), RefreshNeighbours: refreshNeighbours}
}

// AddNode inserts a bud into the graph and computes its neighbours.
func (g *Graph) AddNode(bud *meristem.Bud) {
	neighbours := Reachable(bud, g.m.Closest(bud))
	g.nodes[bud.ID] = ids(neighbours)

	if !g.RefreshNeighbours {
		return
	}
	for _, n := range neighbours {
		g.nodes[n.ID] = ids(Reachable(n, g.m.Closest(n)))
	}
}

// Rebuild recomputes the whole graph from the current meristem contents.
func (g *Graph) Rebuild() {
	g.nodes = make(map[int][]int, g.m.Len())
	for _, b := range g.m.Buds() {
		g.nodes[b.ID] = ids(Reachable(b, g.m.Closest(b)))
	}
	slog.Debug("visibility graph rebuilt", "buds", g.m.Len())
}

// Size returns the number of buds in the graph.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Neighbours returns the buds reachable from the given bud, nearest
// first. The result is nil for buds the graph has never seen.
func (g *Graph) Neighbours(bud *meristem.Bud) []*meristem.Bud {
	idList, ok := g.nodes[bud.ID]
	if !ok {
		return nil
	}
	out := make([]*meristem.Bud, 0, len(idList))
	for _, id := range idList {
		if b := g.m.Get(id); b != nil {
			out = append(out, b)
		}
	}
	return out
}

// AxisPairs returns the pairs of neighbours sitting on opposite sides of
// the bud. Each neighbour is consumed by at most one pair, so every axis
// through the bud is reported once.
func (g *Graph) AxisPairs(bud *meristem.Bud) [][2]*meristem.Bud {
	neighbours := g.Neighbours(bud)
	used := make(map[int]bool)
	var pairs [][2]*meristem.Bud

	for i, n := range neighbours {
		if used[n.ID] {
			continue
		}
		for _, c := range neighbours[i+1:] {
			if used[c.ID] {
				continue
			}
			if bud.Opposite(n, c) {
				used[n.ID], used[c.ID] = true, true
				pairs = append(pairs, [2]*meristem.Bud{n, c})
				break
			}
		}
	}
	return pairs
}

// Axes returns the helices running through the bud's opposite neighbour
// pairs.
func (g *Graph) Axes(bud *meristem.Bud) []Helix {
	pairs := g.AxisPairs(bud)
	out := make([]Helix, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, HelixThrough(p[0], p[1]))
	}
	return out
}

// AllAxes returns the helices through every opposite neighbour pair in
// the graph. Each anchor pair contributes one helix regardless of how
// many buds report it.
func (g *Graph) AllAxes() []Helix {
	seen := make(map[[2]int]bool)
	var out []Helix
	for _, b := range g.m.Buds() {
		for _, p := range g.AxisPairs(b) {
			key := [2]int{p[0].ID, p[1].ID}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, HelixThrough(p[0], p[1]))
		}
	}
	return out
}

// OnLine returns all buds in the meristem lying on the given helix.
func (g *Graph) OnLine(h Helix) []*meristem.Bud {
	var out []*meristem.Bud
	for _, b := range g.m.Buds() {
		if h.Contains(b) {
			out = append(out, b)
		}
	}
	return out
}

func ids(buds []*meristem.Bud) []int {
	out := make([]int, len(buds))
	for i, b := range buds {
		out[i] = b.ID
	}
	return out
}
