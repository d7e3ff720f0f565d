// Package engine exposes the host-facing surface of the falling-sand
// simulation: an Engine is configured once, painted into, stepped and
// sampled.
package engine

import (
	"log/slog"

	"github.com/df-mc/sandfall/engine/world"
	"github.com/df-mc/sandfall/engine/world/sched"
)

// Config contains options for creating an Engine. The zero value is usable:
// it yields an unbounded, unseeded world without persistence.
type Config struct {
	// Log is the Logger used for simulation information and warnings. If
	// nil, Log is set to slog.Default().
	Log *slog.Logger
	// Seed seeds the simulation's random generator. Two single-threaded runs
	// with the same seed and the same inputs behave identically.
	Seed uint64
	// Width and Height bound the world when both are positive. A bounded
	// world has a floor, walls and a ceiling; steam condenses near its top.
	// When zero, the world is unbounded and grows chunks in every direction.
	Width, Height int
	// ChunkBudget caps the number of chunks simulated per tick. Chunks over
	// budget are deferred to the next tick, visible in Stats. Defaults to
	// 100.
	ChunkBudget int
	// Parallel enables the four-colour parallel chunk passes. The order of
	// random tie-breaks may differ subtly from serial runs.
	Parallel bool
	// CondensationChance is the per-second chance of steam condensing away
	// from the top of a bounded world. Defaults to 0.006.
	CondensationChance float64
	// RigidHandler is offered connected rigid-solid regions periodically.
	// If nil, no extraction takes place.
	RigidHandler world.RigidHandler
	// RigidInterval is the tick interval between rigid region scans.
	// Defaults to 60.
	RigidInterval int
	// RigidMinSize is the smallest region offered to the RigidHandler.
	// Defaults to 8.
	RigidMinSize int
	// SpatialIndex maintains a coarse spatial hash accelerating radius
	// queries of effect kernels. The engine behaves identically without it.
	SpatialIndex bool
	// Provider persists chunks between runs. If nil, the world starts empty
	// and Save is a no-op.
	Provider world.Provider
}

// New creates an Engine using the fields of conf.
func (conf Config) New() *Engine {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	metrics := sched.NewMetrics()
	w := world.Config{
		Log:                conf.Log,
		Seed:               conf.Seed,
		Width:              conf.Width,
		Height:             conf.Height,
		ChunkBudget:        conf.ChunkBudget,
		Parallel:           conf.Parallel,
		CondensationChance: conf.CondensationChance,
		RigidHandler:       conf.RigidHandler,
		RigidInterval:      conf.RigidInterval,
		RigidMinSize:       conf.RigidMinSize,
		SpatialIndex:       conf.SpatialIndex,
		Provider:           conf.Provider,
		Metrics:            metrics,
	}.New()
	return &Engine{conf: conf, w: w, metrics: metrics, log: conf.Log}
}

// New creates an Engine with a default Config. Passing a width and height
// bounds the world; omitting both leaves it unbounded.
func New(dimensions ...int) *Engine {
	var conf Config
	if len(dimensions) >= 2 {
		conf.Width, conf.Height = dimensions[0], dimensions[1]
	}
	return conf.New()
}
