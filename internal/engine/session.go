package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/magnolia/internal/geometry"
	"github.com/talgya/magnolia/internal/graph"
	"github.com/talgya/magnolia/internal/meristem"
	"github.com/talgya/magnolia/internal/positioner"
)

// A Session ties together the state a growing plant needs: the meristem
// holding the buds, the visibility graph over them, and the positioner
// deciding where the next bud goes. All methods are safe for concurrent
// use; the API server reads while the engine steps.
type Session struct {
	mu sync.Mutex

	meristem *meristem.Meristem
	graph    *graph.Graph
	pos      positioner.Positioner
	posName  string

	onPlace []func(*meristem.Bud)
}

// NewSession creates a session growing with the given positioner. name
// labels the positioner in status reports and persisted runs.
// refreshNeighbours controls whether adding a bud also refreshes the
// adjacency of the buds it can see.
func NewSession(pos positioner.Positioner, name string, refreshNeighbours bool) *Session {
	m := meristem.New()
	return &Session{
		meristem: m,
		graph:    graph.New(m, refreshNeighbours),
		pos:      pos,
		posName:  name,
	}
}

// OnPlace registers a callback invoked after every placed bud. Callbacks
// run under the session lock; keep them short.
func (s *Session) OnPlace(fn func(*meristem.Bud)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPlace = append(s.onPlace, fn)
}

// Positioner returns the label of the active positioner.
func (s *Session) Positioner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posName
}

// Step grows the meristem by one bud and returns it.
func (s *Session) Step() (*meristem.Bud, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.pos.NextPos()
	if err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	b := s.meristem.Add(pos.Angle, pos.Height, pos.Radius, pos.Scale)
	s.graph.AddNode(b)

	for _, fn := range s.onPlace {
		fn(b)
	}
	return b, nil
}

// StepN grows the meristem by n buds, stopping at the first error.
func (s *Session) StepN(n int) error {
	for i := 0; i < n; i++ {
		if _, err := s.Step(); err != nil {
			return fmt.Errorf("bud %d of %d: %w", i+1, n, err)
		}
	}
	return nil
}

// Restart clears the meristem and rewinds the positioner.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pos.Reset()
	s.meristem.Truncate(0)
	s.graph.Rebuild()
	slog.Info("session restarted", "positioner", s.posName)
}

// Len returns the number of buds placed so far.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meristem.Len()
}

// Buds returns a snapshot of all placed buds, oldest first.
func (s *Session) Buds() []*meristem.Bud {
	s.mu.Lock()
	defer s.mu.Unlock()
	buds := s.meristem.Buds()
	out := make([]*meristem.Bud, len(buds))
	copy(out, buds)
	return out
}

// Get returns the bud with the given id, or nil.
func (s *Session) Get(id int) *meristem.Bud {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meristem.Get(id)
}

// Neighbours returns the buds visible from the bud with the given id.
func (s *Session) Neighbours(id int) ([]*meristem.Bud, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.meristem.Get(id)
	if b == nil {
		return nil, fmt.Errorf("no bud with id %d", id)
	}
	return s.graph.Neighbours(b), nil
}

// Front returns the buds forming the current packing front, left to
// right. An empty meristem yields an empty front.
func (s *Session) Front() ([]*meristem.Bud, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buds := s.meristem.Buds()
	if len(buds) == 0 {
		return nil, nil
	}

	circles := make([]geometry.Circle, len(buds))
	byCircle := make(map[geometry.Circle][]*meristem.Bud, len(buds))
	for i, b := range buds {
		circles[i] = b.Circle()
		byCircle[circles[i]] = append(byCircle[circles[i]], b)
	}

	front, err := geometry.Front(circles)
	if err != nil {
		return nil, fmt.Errorf("front: %w", err)
	}

	// Coincident buds project to equal circles; consume the matches in
	// placement order so every front member maps to a distinct bud.
	out := make([]*meristem.Bud, 0, len(front))
	for _, c := range front {
		if matches := byCircle[c]; len(matches) > 0 {
			out = append(out, matches[0])
			byCircle[c] = matches[1:]
		}
	}
	return out, nil
}

// Axes returns the helices running through opposite neighbour pairs.
func (s *Session) Axes() []graph.Helix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.AllAxes()
}

// OnLine returns the buds lying on the given helix.
func (s *Session) OnLine(h graph.Helix) []*meristem.Bud {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.OnLine(h)
}

// Radius returns the widest bud radius, Height the top of the meristem.
func (s *Session) Radius() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meristem.Radius()
}

func (s *Session) Height() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meristem.Height()
}
