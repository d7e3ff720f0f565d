package world

import (
	"math/rand/v2"
	"sync"

	"github.com/segmentio/fasthash/fnv1a"

	"github.com/df-mc/sandfall/engine/material"
	"github.com/df-mc/sandfall/engine/world/rigid"
	"github.com/df-mc/sandfall/engine/world/sched"
)

type schedPos = sched.ChunkPos

const (
	// maxStep caps the time step of a single tick so long host pauses do not
	// turn into large simulation jumps.
	maxStep = 1.0 / 30

	// cleanupInterval is the tick interval at which empty chunks are
	// reclaimed.
	cleanupInterval = 300

	// parallelMargin is the width of the chunk rim whose cells parallel
	// colour passes defer to the serial pass. A particle's effects reach at
	// most three cells from it (toxic gas placed above a dissolved neighbour
	// wakes its own neighbours), so cells further in stay within their chunk.
	parallelMargin = 3
)

// Step advances the simulation by the time step passed, in seconds. The step
// is clamped to 1/30 s. A Step runs to completion before returning; the host
// must not touch the world while it runs.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	if dt > maxStep {
		dt = maxStep
	}
	w.tick++

	// One generator per tick, seeded from the simulation seed, keeps
	// single-threaded runs reproducible at the tick level.
	tr := rand.New(rand.NewPCG(w.tickSeed(0), w.tickSeed(1)))

	plan := w.sched.Plan((*schedChunks)(w))

	if w.conf.RigidHandler != nil && w.tick%int64(w.conf.RigidInterval) == 0 {
		w.offerRigidRegions(plan.Chunks)
	}

	if w.conf.Parallel {
		w.stepParallel(plan, dt)
	} else {
		for _, pos := range plan.Chunks {
			w.stepChunk(ChunkPos{pos.X, pos.Y}, dt, tr, nil)
		}
	}

	for _, pos := range plan.Chunks {
		if c, ok := w.chunks[ChunkPos{pos.X, pos.Y}]; ok {
			c.compactActive()
			c.dirty = false
		}
	}

	if w.tick%cleanupInterval == 0 {
		w.CleanupEmpty()
	}
}

func (w *World) tickSeed(stream uint64) uint64 {
	h := fnv1a.Init64
	h = fnv1a.AddUint64(h, w.conf.Seed)
	h = fnv1a.AddUint64(h, uint64(w.tick))
	h = fnv1a.AddUint64(h, stream)
	return h
}

// stepChunk services the active particles of one chunk, scanning rows bottom
// up so a particle that has just fallen is not serviced twice, with the
// column order shuffled to avoid a systematic sideways bias. If skipBorder is
// non-nil, cells within parallelMargin of the chunk edge are handed to it
// instead of being serviced; parallel colour passes use this to defer work
// that could write into a neighbouring chunk.
func (w *World) stepChunk(cpos ChunkPos, dt float64, r *rand.Rand, skipBorder func(Pos)) {
	c, ok := w.chunks[cpos]
	if !ok || len(c.active) == 0 {
		return
	}
	origin := cpos.origin()
	cols := r.Perm(ChunkSize)
	serviced := 0

	for y := ChunkSize - 1; y >= 0; y-- {
		for _, x := range cols {
			i := chunkIndex(x, y)
			if !c.isActive(i) {
				continue
			}
			p := &c.particles[i]
			if p.mat == material.Empty || p.lastTick >= w.tick {
				continue
			}
			pos := Pos{origin[0] + x, origin[1] + y}
			if skipBorder != nil && (x < parallelMargin || x >= ChunkSize-parallelMargin || y < parallelMargin || y >= ChunkSize-parallelMargin || material.Properties(p.mat).Yield > 0) {
				// Cells near the border, and explosives whose blast reaches
				// beyond the chunk, may write into neighbouring chunks.
				skipBorder(pos)
				continue
			}
			w.stepParticle(pos, p, dt, r)
			serviced++
		}
	}
	if w.conf.Metrics != nil {
		w.conf.Metrics.AddParticles(serviced)
	}
}

// stepParticle runs the per-particle pipeline: lifespan decay, temperature,
// state changes and effects, then movement.
func (w *World) stepParticle(pos Pos, p *Particle, dt float64, r *rand.Rand) {
	p.lastTick = w.tick

	if w.decay(pos, p, dt) {
		return
	}

	nb := w.Neighbours(pos)

	before := p.temp
	w.diffuseTemperature(p, nb, dt)
	if diff := p.temp - before; diff > 0.5 || diff < -0.5 {
		// Significant temperature movement counts as activity: the
		// neighbourhood must keep being visited for heat to propagate.
		p.settled = 0
		w.wake(pos)
	}

	if w.applyStateChanges(pos, p, nb, dt, r) {
		return
	}
	p.timeInState += dt

	if !p.mat.Stationary() {
		if w.move(pos, p, dt, r) {
			if w.conf.Metrics != nil {
				w.conf.Metrics.AddMoves(1)
			}
			return
		}
	}
	if p.settled < 255 {
		p.settled++
	}
}

// stepParallel processes the plan in four colour passes. Within one colour no
// two chunks are 8-adjacent, so interior cells may be serviced concurrently;
// cells near chunk borders are deferred to a serial pass afterwards, as their
// effects may cross into a neighbouring chunk.
func (w *World) stepParallel(plan sched.Plan, dt float64) {
	colours := plan.Colours()

	var mu sync.Mutex
	var border []Pos

	for colour, list := range colours {
		var wg sync.WaitGroup
		for _, pos := range list {
			wg.Add(1)
			go func(pos schedPos) {
				defer wg.Done()
				cr := rand.New(rand.NewPCG(
					w.tickSeed(uint64(colour)+2),
					fnv1a.AddUint64(fnv1a.Init64, uint64(uint32(pos.X))<<32|uint64(uint32(pos.Y))),
				))
				var local []Pos
				w.stepChunk(ChunkPos{pos.X, pos.Y}, dt, cr, func(p Pos) {
					local = append(local, p)
				})
				mu.Lock()
				border = append(border, local...)
				mu.Unlock()
			}(pos)
		}
		wg.Wait()
	}

	sr := rand.New(rand.NewPCG(w.tickSeed(6), w.tickSeed(7)))
	for _, pos := range border {
		if p := w.At(pos); p != nil && p.lastTick < w.tick {
			w.stepParticle(pos, p, dt, sr)
		}
	}
}

// offerRigidRegions flood-fills connected rigid-solid regions in the chunks
// passed and offers each to the configured handler. Claimed regions are
// removed from the grid; the handler owns their cells until it writes them
// back through Install.
func (w *World) offerRigidRegions(chunks []schedPos) {
	min := w.conf.RigidMinSize
	for _, pos := range chunks {
		origin := ChunkPos{pos.X, pos.Y}.origin()
		regions := rigid.Regions(w, origin.X(), origin.Y(), origin.X()+ChunkSize-1, origin.Y()+ChunkSize-1, min)
		for _, region := range regions {
			if !w.conf.RigidHandler.HandleRegion(region) {
				continue
			}
			for _, cell := range region {
				w.Remove(Pos{cell.X, cell.Y})
			}
		}
	}
}
