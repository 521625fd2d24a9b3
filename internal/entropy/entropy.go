// Package entropy provides the random sources injected into positioners.
// Every source is explicitly seeded so packing runs are reproducible: the
// same seed and parameters always grow the same meristem.
package entropy

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// A Source yields values in [0, 1). Implementations are not safe for
// concurrent use; each simulation session owns its own source.
type Source interface {
	Float64() float64
}

// Seeded is a plain PRNG source.
type Seeded struct {
	rng *rand.Rand
}

// NewSeeded returns a deterministic source for the given seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns the next value in [0, 1).
func (s *Seeded) Float64() float64 {
	return s.rng.Float64()
}

// Simplex is a smooth noise source: consecutive values drift rather than
// jump, which gives bud-size jitter an organic, wavelike quality instead
// of white noise. Sampled along a 1D line through a seeded simplex field.
type Simplex struct {
	noise opensimplex.Noise
	t     float64
	step  float64
}

// NewSimplex returns a smooth source for the given seed. step controls
// how fast consecutive samples decorrelate; 0 falls back to a default.
func NewSimplex(seed int64, step float64) *Simplex {
	if step == 0 {
		step = 0.1
	}
	return &Simplex{noise: opensimplex.NewNormalized(seed), step: step}
}

// Float64 returns the next value in [0, 1).
func (s *Simplex) Float64() float64 {
	v := s.noise.Eval2(s.t, 0)
	s.t += s.step
	return v
}

// Jitter maps the source's next value onto [-magnitude, +magnitude].
func Jitter(src Source, magnitude float64) float64 {
	if src == nil || magnitude == 0 {
		return 0
	}
	return (2*src.Float64() - 1) * magnitude
}
