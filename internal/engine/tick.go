// Package engine drives growth sessions: a paced loop placing one bud
// per tick until a target count is reached or the positioner gives up.
package engine

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// Engine paces a session, placing one bud per tick. Interval and MaxBuds
// are set before Run; speed, tick count and the running flag are shared
// with the API goroutines and therefore atomic.
type Engine struct {
	Interval time.Duration // base tick interval
	MaxBuds  int           // stop after this many buds, 0 = unlimited

	tick    atomic.Uint64
	speed   atomic.Uint64 // float64 bits
	running atomic.Bool
}

// NewEngine creates an engine with default pacing.
func NewEngine() *Engine {
	e := &Engine{Interval: 100 * time.Millisecond}
	e.SetSpeed(1.0)
	return e
}

// Tick returns the number of buds this engine has placed.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// Speed returns the pacing multiplier: 1.0 = one bud per Interval,
// 0 = paused.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the pacing multiplier, effective from the next tick.
func (e *Engine) SetSpeed(v float64) { e.speed.Store(math.Float64bits(v)) }

// Running reports whether the loop is active.
func (e *Engine) Running() bool { return e.running.Load() }

// Run grows the session one bud per tick. Blocks until Stop is called,
// MaxBuds is reached, or the positioner fails.
func (e *Engine) Run(s *Session) error {
	e.running.Store(true)
	slog.Info("growth engine started",
		"positioner", s.Positioner(), "speed", e.Speed(), "max_buds", e.MaxBuds)

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused. Sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if e.MaxBuds > 0 && s.Len() >= e.MaxBuds {
			break
		}

		start := time.Now()

		if _, err := s.Step(); err != nil {
			e.running.Store(false)
			slog.Error("growth engine halted", "tick", e.Tick(), "error", err)
			return err
		}
		e.tick.Add(1)

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	e.running.Store(false)
	slog.Info("growth engine stopped", "tick", e.Tick(), "buds", s.Len())
	return nil
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.running.Store(false)
}
