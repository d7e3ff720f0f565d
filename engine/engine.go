package engine

import (
	"log/slog"

	"github.com/df-mc/sandfall/engine/material"
	"github.com/df-mc/sandfall/engine/world"
	"github.com/df-mc/sandfall/engine/world/sched"
)

// Engine drives a falling-sand world on behalf of a host. A host paints
// materials in, calls Update at its own cadence and samples cells for
// display. An Engine is not safe for concurrent use: Update must have
// finished before cells are read or written.
type Engine struct {
	conf    Config
	log     *slog.Logger
	w       *world.World
	metrics *sched.Metrics

	ticks uint64
}

// Update advances the simulation by the time step passed, in seconds. Steps
// are clamped to 1/30 s so a stalled host does not produce a simulation
// jump.
func (e *Engine) Update(dt float64) {
	e.w.Step(dt)
	e.ticks++
}

// Paint fills a disk of cells with the material passed. The eraser material
// removes particles instead. Painting an unregistered material id returns
// world.ErrInvalidMaterial and modifies nothing.
func (e *Engine) Paint(x, y, radius int, id material.ID, temp ...float64) error {
	_, err := e.w.Paint(world.Pos{x, y}, radius, id, temp...)
	return err
}

// Cell returns the state of a single cell: its material id, temperature,
// remaining life and whether it is a burning fuse. ok is false for vacant
// cells; reads outside every chunk are vacant, never an error.
func (e *Engine) Cell(x, y int) (id material.ID, temp float64, life float64, burning bool, ok bool) {
	p := e.w.At(world.Pos{x, y})
	if p == nil {
		return material.Empty, 0, 0, false, false
	}
	l, _ := p.Life()
	return p.Material(), p.Temperature(), l, p.Burning(), true
}

// Snapshot returns a dense view of the rectangle between the two corners,
// inclusive, indexed [y][x]. Vacant cells are nil.
func (e *Engine) Snapshot(minX, minY, maxX, maxY int) [][]*world.CellState {
	return e.w.Snapshot(world.Rect{Min: world.Pos{minX, minY}, Max: world.Pos{maxX, maxY}})
}

// DeltaEncoder returns an encoder producing delta frames of the rectangle
// passed, for hosts streaming cell states elsewhere.
func (e *Engine) DeltaEncoder(minX, minY, maxX, maxY int) *world.DeltaEncoder {
	return world.NewDeltaEncoder(world.Rect{Min: world.Pos{minX, minY}, Max: world.Pos{maxX, maxY}})
}

// Clear removes every particle from the world.
func (e *Engine) Clear() {
	e.w.Clear()
}

// Save persists all loaded chunks through the configured provider.
func (e *Engine) Save() error {
	return e.w.Save()
}

// World returns the underlying world for hosts that need the full chunk
// manager surface. The ownership rules of the Engine apply unchanged.
func (e *Engine) World() *world.World {
	return e.w
}

// Stats describes the current load of the engine.
type Stats struct {
	// Ticks is the number of Update calls completed.
	Ticks uint64
	// Particles and Chunks count the world contents.
	Particles, Chunks int
	// ActiveChunks and DeferredChunks describe the most recent tick's chunk
	// selection.
	ActiveChunks, DeferredChunks int
	// TotalDeferred accumulates budget deferrals across all ticks.
	TotalDeferred uint64
}

// Stats returns the current engine statistics.
func (e *Engine) Stats() Stats {
	snap := e.metrics.Snapshot()
	return Stats{
		Ticks:          e.ticks,
		Particles:      e.w.ParticleCount(),
		Chunks:         e.w.ChunkCount(),
		ActiveChunks:   snap.ActiveChunks,
		DeferredChunks: snap.DeferredChunks,
		TotalDeferred:  snap.TotalDeferred,
	}
}

// Close saves the world if a provider is configured and releases it.
func (e *Engine) Close() error {
	if e.conf.Provider == nil {
		return nil
	}
	if err := e.w.Save(); err != nil {
		return err
	}
	return e.conf.Provider.Close()
}
