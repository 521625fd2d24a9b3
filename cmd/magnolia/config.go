package main

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"

	"github.com/talgya/magnolia/internal/phi"
)

// Config holds the parameters for a growth run.
type Config struct {
	// Positioner selects the placement algorithm:
	// ring, changing-ring, angle, or lowest.
	Positioner string

	Buds int   // number of buds to place, 0 = grow until stopped
	Seed int64 // RNG seed; same seed, same plant

	// Noise selects the jitter source for the lowest packer:
	// uniform, simplex, or remote (random.org, needs RANDOM_ORG_KEY).
	Noise string

	// Ring and changing-ring parameters.
	RingAngle    float64 // rotation between rings, unit: deg
	PerRing      int     // buds per ring
	RingHeight   float64 // fixed ring spacing, 0 derives it from tangency
	Delta        float64 // per-ring shrink, unit: percent
	ShrinkRadius bool    // shrink the stem radius along with the buds

	// Angle positioner parameters.
	Divergence float64 // divergence angle, unit: deg

	// Lowest packer parameters.
	StartSize float64 // scale of the first bud
	Decay     float64 // per-bud shrink, unit: percent
	Jitter    float64 // decay randomization, unit: percent of decay

	// RefreshNeighbours also refreshes the adjacency of the buds a new
	// bud can see, at the cost of extra work per placement.
	RefreshNeighbours bool

	DBPath  string  // SQLite path, empty disables persistence
	APIPort int     // HTTP port, 0 disables the API
	Speed   float64 // buds per second, 0 = as fast as possible
}

// DefaultConf are the default parameters.
var DefaultConf = &Config{
	Positioner: "lowest",
	Buds:       200,
	Seed:       42,
	Noise:      "uniform",
	RingAngle:  60,
	PerRing:    6,
	Delta:      3,
	Divergence: phi.GoldenAngleDeg,
	StartSize:  1.0,
	Decay:      1.5,
	Jitter:     20,
	DBPath:     "data/magnolia.db",
	APIPort:    8080,
	Speed:      10,
}

// ParseConfig parses the TOML config file whose path is provided.
func ParseConfig(path string) (*Config, error) {
	// config file overwrites default parameters
	conf := *DefaultConf
	_, err := toml.DecodeFile(path, &conf)
	return &conf, err
}

// Validate rejects parameter combinations no positioner can honor.
func (c *Config) Validate() error {
	switch c.Positioner {
	case "ring", "changing-ring", "angle", "lowest":
	default:
		return fmt.Errorf("unknown positioner %q (use: ring, changing-ring, angle, lowest)", c.Positioner)
	}
	switch c.Noise {
	case "uniform", "simplex", "remote":
	default:
		return fmt.Errorf("unknown noise source %q (use: uniform, simplex, remote)", c.Noise)
	}
	if c.PerRing < 1 {
		return fmt.Errorf("per_ring must be at least 1, got %d", c.PerRing)
	}
	if c.StartSize <= 0 {
		return fmt.Errorf("start_size must be positive, got %g", c.StartSize)
	}
	if c.Decay < 0 || c.Decay >= 100 {
		return fmt.Errorf("decay must be in [0, 100), got %g", c.Decay)
	}
	if c.Buds < 0 {
		return fmt.Errorf("buds must not be negative, got %d", c.Buds)
	}
	return nil
}

// degrees to radians, configs read better in degrees.
func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
