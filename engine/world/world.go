package world

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/df-mc/sandfall/engine/material"
	"github.com/df-mc/sandfall/engine/world/rigid"
	"github.com/df-mc/sandfall/engine/world/sched"
	"github.com/df-mc/sandfall/engine/world/spatial"
)

// ErrInvalidMaterial is returned when a host attempts to place a material id
// that is not registered.
var ErrInvalidMaterial = errors.New("invalid material id")

// RigidHandler is the collaborator that takes ownership of extracted rigid
// regions. The world offers regions found in active chunks; a handler that
// returns true claims the cells and the world removes them from the grid.
// Transformed cells come back through World.Install.
type RigidHandler interface {
	HandleRegion(cells []rigid.Cell) bool
}

// Config holds the options of a World. The zero value is usable; defaults are
// applied by New.
type Config struct {
	// Log is the logger used for simulation warnings. It defaults to
	// slog.Default().
	Log *slog.Logger
	// Seed seeds the simulation's random generator. Single-threaded runs
	// with an equal seed are reproducible.
	Seed uint64
	// Width and Height bound the world when both are positive. Cells outside
	// the bounds are treated as solid for movement and painting outside them
	// is a no-op. When zero, the world is unbounded and sparse.
	Width, Height int
	// ChunkBudget caps the number of chunks simulated per tick. Defaults to
	// 100.
	ChunkBudget int
	// Parallel processes the four-colour chunk partition on multiple
	// goroutines. Tie-break order may differ subtly from serial runs.
	Parallel bool
	// CondensationChance is the per-second probability with which steam away
	// from the top of a bounded world condenses back to water. Defaults to
	// 0.006.
	CondensationChance float64
	// RigidHandler, if set, is offered connected rigid-solid regions found in
	// active chunks every RigidInterval ticks.
	RigidHandler RigidHandler
	// RigidInterval is the tick interval of rigid region scans. Defaults to
	// 60.
	RigidInterval int
	// RigidMinSize is the smallest region handed to the RigidHandler.
	// Defaults to 8.
	RigidMinSize int
	// SpatialIndex maintains a coarse spatial hash of all particles,
	// accelerating the radius queries of effect kernels.
	SpatialIndex bool
	// Provider persists chunks. Chunks absent from memory are loaded through
	// it and Save stores all loaded chunks back. It may be nil.
	Provider Provider
	// Metrics receives scheduling counters. It may be nil.
	Metrics *sched.Metrics
}

// New creates a World using the config passed.
func (conf Config) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.ChunkBudget <= 0 {
		conf.ChunkBudget = 100
	}
	if conf.CondensationChance <= 0 {
		conf.CondensationChance = 0.006
	}
	if conf.RigidInterval <= 0 {
		conf.RigidInterval = 60
	}
	if conf.RigidMinSize <= 0 {
		conf.RigidMinSize = 8
	}
	w := &World{
		conf:   conf,
		chunks: make(map[ChunkPos]*Chunk),
		r:      rand.New(rand.NewPCG(conf.Seed, conf.Seed^0x9e3779b97f4a7c15)),
		sched: sched.Config{
			Log:     conf.Log,
			Budget:  conf.ChunkBudget,
			Metrics: conf.Metrics,
		}.New(),
	}
	if conf.Width > 0 && conf.Height > 0 {
		w.bounds = Rect{Max: Pos{conf.Width - 1, conf.Height - 1}}
		w.bounded = true
	}
	if conf.SpatialIndex {
		w.spatial = spatial.NewGrid(32)
	}
	return w
}

// World manages a sparse set of chunks and the particles within them. It is
// the chunk manager of the simulation: every read and write of a cell by
// world coordinate passes through it. A World is not safe for concurrent use;
// the host owns it between ticks and the tick owns it while running.
type World struct {
	conf Config

	chunks map[ChunkPos]*Chunk

	bounds  Rect
	bounded bool

	r    *rand.Rand
	tick int64

	sched   *sched.Scheduler
	spatial *spatial.Grid
}

// At returns the particle at the cell position passed, or nil if the cell is
// empty or its chunk does not exist. The pointer stays valid only until the
// next mutation of the world.
func (w *World) At(pos Pos) *Particle {
	c, ok := w.chunks[chunkPos(pos)]
	if !ok {
		if w.conf.Provider == nil {
			return nil
		}
		// A provider may hold the chunk on disk; reads must see saved cells.
		c = w.chunk(chunkPos(pos))
	}
	lx, ly := localPos(pos)
	return c.at(lx, ly)
}

// Set places a particle at the cell position, materialising the containing
// chunk if needed, and wakes the cell's neighbourhood.
func (w *World) Set(pos Pos, p Particle) {
	if w.bounded && !w.bounds.Contains(pos) {
		return
	}
	c := w.chunk(chunkPos(pos))
	lx, ly := localPos(pos)
	_, replaced := c.set(lx, ly, p)
	if w.spatial != nil && !replaced {
		w.spatial.Add(spatial.Cell{X: pos.X(), Y: pos.Y()})
	}
	w.wake(pos)
}

// Remove vacates the cell position, returning the particle that occupied it.
func (w *World) Remove(pos Pos) (Particle, bool) {
	c, ok := w.chunks[chunkPos(pos)]
	if !ok {
		return Particle{}, false
	}
	lx, ly := localPos(pos)
	p, removed := c.remove(lx, ly)
	if removed {
		if w.spatial != nil {
			w.spatial.Remove(spatial.Cell{X: pos.X(), Y: pos.Y()})
		}
		w.wake(pos)
	}
	return p, removed
}

// AddMaterial places a new particle of the material passed at the cell
// position, applying material-specific initial temperatures: painted lava
// arrives at 2500 degrees. Painting over a generator is a silent no-op unless
// the material painted is the eraser, which removes any particle instead of
// placing one. An unregistered id returns ErrInvalidMaterial.
func (w *World) AddMaterial(pos Pos, id material.ID, temp ...float64) error {
	if !material.Registered(id) {
		return fmt.Errorf("add material at %v: %w: %v", pos, ErrInvalidMaterial, id)
	}
	if id == material.Eraser {
		w.Remove(pos)
		return nil
	}
	if cur := w.At(pos); cur != nil && cur.mat == material.Generator {
		return nil
	}
	if id == material.Lava && len(temp) == 0 {
		temp = []float64{2500}
	}
	w.Set(pos, NewParticle(id, temp...))
	return nil
}

// Paint fills a disk of the radius passed with the material, by Euclidean
// distance from the centre. It returns the number of cells painted and the
// first error encountered validating the material.
func (w *World) Paint(centre Pos, radius int, id material.ID, temp ...float64) (int, error) {
	if !material.Registered(id) {
		return 0, fmt.Errorf("paint at %v: %w: %v", centre, ErrInvalidMaterial, id)
	}
	if radius < 0 {
		radius = 0
	}
	painted := 0
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			pos := centre.Add(dx, dy)
			if w.bounded && !w.bounds.Contains(pos) {
				continue
			}
			if err := w.AddMaterial(pos, id, temp...); err != nil {
				return painted, err
			}
			painted++
		}
	}
	return painted, nil
}

// Neighbours returns the eight Moore-neighbourhood particles around the cell
// position in row order, nil for vacant or out-of-world cells.
func (w *World) Neighbours(pos Pos) [8]*Particle {
	var out [8]*Particle
	i := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			out[i] = w.At(pos.Add(dx, dy))
			i++
		}
	}
	return out
}

// neighbourPos returns the world position of the i'th entry of Neighbours.
func neighbourPos(pos Pos, i int) Pos {
	offsets := [8][2]int{
		{-1, -1}, {0, -1}, {1, -1},
		{-1, 0}, {1, 0},
		{-1, 1}, {0, 1}, {1, 1},
	}
	return pos.Add(offsets[i][0], offsets[i][1])
}

// CleanupEmpty discards chunks holding no particles.
func (w *World) CleanupEmpty() {
	for pos, c := range w.chunks {
		if c.empty() {
			delete(w.chunks, pos)
		}
	}
}

// Clear removes every particle and chunk from the world.
func (w *World) Clear() {
	w.chunks = make(map[ChunkPos]*Chunk)
	if w.spatial != nil {
		w.spatial.Clear()
	}
}

// ParticleCount returns the total number of particles across all chunks.
func (w *World) ParticleCount() int {
	n := 0
	for _, c := range w.chunks {
		n += c.count()
	}
	return n
}

// ChunkCount returns the number of materialised chunks.
func (w *World) ChunkCount() int {
	return len(w.chunks)
}

// CurrentTick returns the number of ticks the world has simulated.
func (w *World) CurrentTick() int64 {
	return w.tick
}

// Bounds returns the configured world bounds and whether the world is
// bounded at all.
func (w *World) Bounds() (Rect, bool) {
	return w.bounds, w.bounded
}

// ParticlesWithin returns the positions of all particles within the radius of
// the centre. The spatial index serves the query when enabled; otherwise the
// disk is scanned cell by cell.
func (w *World) ParticlesWithin(centre Pos, radius float64) []Pos {
	if w.spatial != nil {
		cells := w.spatial.Nearby(spatial.Cell{X: centre.X(), Y: centre.Y()}, radius)
		out := make([]Pos, 0, len(cells))
		for _, c := range cells {
			out = append(out, Pos{c.X, c.Y})
		}
		return out
	}
	r := int(radius)
	var out []Pos
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx+dy*dy) > radius*radius {
				continue
			}
			pos := centre.Add(dx, dy)
			if w.At(pos) != nil {
				out = append(out, pos)
			}
		}
	}
	return out
}

// Install writes cells back onto the grid verbatim. It is the write-back half
// of the rigid-body hand-off: cells colliding with non-extracted particles
// overwrite them and are marked dirty.
func (w *World) Install(cells []rigid.Cell) {
	for _, c := range cells {
		pos := Pos{c.X, c.Y}
		if w.bounded && !w.bounds.Contains(pos) {
			continue
		}
		w.Set(pos, NewParticle(c.Material, c.Temp))
	}
}

// RigidAt implements rigid.Source: it returns the cell at the position if it
// holds a rigid-solid material.
func (w *World) RigidAt(x, y int) (rigid.Cell, bool) {
	p := w.At(Pos{x, y})
	if p == nil || !p.mat.RigidSolid() {
		return rigid.Cell{}, false
	}
	return rigid.Cell{X: x, Y: y, Material: p.mat, Temp: p.temp}, true
}

// chunk returns the chunk at the position, materialising it if absent. A
// provider, when configured, is consulted before a blank chunk is created.
func (w *World) chunk(pos ChunkPos) *Chunk {
	c, ok := w.chunks[pos]
	if ok {
		return c
	}
	c = &Chunk{}
	if w.conf.Provider != nil {
		records, found, err := w.conf.Provider.LoadChunk(pos)
		if err != nil {
			w.conf.Log.Error("load chunk", "chunkX", pos.X(), "chunkY", pos.Y(), "err", err)
		} else if found {
			w.populate(c, records)
			w.index(pos, c)
		}
	}
	w.chunks[pos] = c
	return c
}

func (w *World) populate(c *Chunk, records []SavedParticle) {
	for _, rec := range records {
		if !material.Registered(rec.Material) || rec.Material == material.Empty {
			continue
		}
		p := NewParticle(rec.Material, float64(rec.Temp))
		if rec.HasLife {
			p.life, p.hasLife = float64(rec.Life), true
		}
		p.burning = rec.Burning
		p.timeInState = float64(rec.TimeInState)
		c.set(int(rec.X), int(rec.Y), p)
	}
}

// index adds every particle of a freshly loaded chunk to the spatial grid.
func (w *World) index(pos ChunkPos, c *Chunk) {
	if w.spatial == nil {
		return
	}
	origin := pos.origin()
	for i := range c.particles {
		if c.particles[i].mat != material.Empty {
			w.spatial.Add(spatial.Cell{X: origin.X() + i%ChunkSize, Y: origin.Y() + i/ChunkSize})
		}
	}
}

// Save stores every loaded chunk through the configured provider.
func (w *World) Save() error {
	if w.conf.Provider == nil {
		return nil
	}
	for pos, c := range w.chunks {
		records := make([]SavedParticle, 0, 64)
		for i := range c.particles {
			p := &c.particles[i]
			if p.mat == material.Empty {
				continue
			}
			records = append(records, SavedParticle{
				X: uint8(i % ChunkSize), Y: uint8(i / ChunkSize),
				Material: p.mat,
				Temp:     float32(p.temp),
				Life:     float32(p.life), HasLife: p.hasLife,
				Burning:     p.burning,
				TimeInState: float32(p.timeInState),
			})
		}
		if err := w.conf.Provider.StoreChunk(pos, records); err != nil {
			return fmt.Errorf("save chunk %v: %w", pos, err)
		}
	}
	return nil
}

// wake marks the cell position and its eight neighbours for processing next
// tick. Neighbours in adjacent chunks make those chunks active. Only cells of
// already-materialised chunks are woken: waking must not materialise chunks.
func (w *World) wake(pos Pos) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			p := pos.Add(dx, dy)
			c, ok := w.chunks[chunkPos(p)]
			if !ok {
				continue
			}
			lx, ly := localPos(p)
			i := chunkIndex(lx, ly)
			if part := &c.particles[i]; part.mat != material.Empty {
				part.settled = 0
				c.markActive(i)
			}
		}
	}
}

// schedChunks implements sched.Source over the chunk map.
type schedChunks World

func (s *schedChunks) Chunks() []sched.ChunkPos {
	out := make([]sched.ChunkPos, 0, len(s.chunks))
	for pos := range s.chunks {
		out = append(out, sched.ChunkPos{X: pos.X(), Y: pos.Y()})
	}
	return out
}

func (s *schedChunks) Active(pos sched.ChunkPos) bool {
	c, ok := s.chunks[ChunkPos{pos.X, pos.Y}]
	return ok && c.needsSimulation()
}
