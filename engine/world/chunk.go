package world

import "github.com/df-mc/sandfall/engine/material"

const (
	// ChunkSize is the edge length of a chunk in cells.
	ChunkSize = 64
	// chunkArea is the cell count of a chunk.
	chunkArea = ChunkSize * ChunkSize

	// settleThreshold is the number of consecutive ticks a particle may sit
	// still before it is dropped from its chunk's active list.
	settleThreshold = 10
)

// Chunk is a square tile of cells and the unit of storage and activity
// tracking. Particle slots are held in a flat array for cache locality; an
// Empty material marks a vacant slot.
type Chunk struct {
	particles [chunkArea]Particle

	// dirty marks a mutation since the chunk was last simulated.
	dirty bool

	// active lists the flat indices of cells believed to need a visit. It is
	// a superset: stale entries accumulate and are removed by compactActive.
	// activeMask mirrors it as a bitset so entries are not duplicated.
	active     []uint16
	activeMask [chunkArea / 64]uint64

	// settled counts the particles that the most recent compactActive dropped
	// from the active list as settled.
	settled int
}

func chunkIndex(x, y int) int {
	return y*ChunkSize + x
}

// at returns the particle at the local coordinates, or nil if the slot is
// vacant or out of chunk bounds.
func (c *Chunk) at(x, y int) *Particle {
	if x < 0 || x >= ChunkSize || y < 0 || y >= ChunkSize {
		return nil
	}
	p := &c.particles[chunkIndex(x, y)]
	if p.mat == material.Empty {
		return nil
	}
	return p
}

// set places a particle in the slot at the local coordinates, returning the
// previous occupant if there was one. Dynamic particles placed in a vacant
// slot are appended to the active list.
func (c *Chunk) set(x, y int, p Particle) (Particle, bool) {
	i := chunkIndex(x, y)
	prev := c.particles[i]
	c.particles[i] = p
	c.dirty = true
	if p.dynamic {
		c.markActive(i)
	}
	return prev, prev.mat != material.Empty
}

// remove vacates the slot at the local coordinates, returning the particle
// that occupied it.
func (c *Chunk) remove(x, y int) (Particle, bool) {
	i := chunkIndex(x, y)
	prev := c.particles[i]
	if prev.mat == material.Empty {
		return Particle{}, false
	}
	c.particles[i] = Particle{}
	c.dirty = true
	return prev, true
}

// markActive queues the cell at the flat index for a visit next tick. Marking
// is idempotent: a cell already queued is not queued twice.
func (c *Chunk) markActive(i int) {
	w, b := i/64, uint(i%64)
	if c.activeMask[w]&(1<<b) != 0 {
		return
	}
	c.activeMask[w] |= 1 << b
	c.active = append(c.active, uint16(i))
}

func (c *Chunk) isActive(i int) bool {
	return c.activeMask[i/64]&(1<<uint(i%64)) != 0
}

// compactActive removes active entries whose particle is gone or has settled.
// Particles that decay or generate heat never settle: their state changes
// every tick regardless of movement.
func (c *Chunk) compactActive() {
	kept := c.active[:0]
	c.settled = 0
	for _, i := range c.active {
		p := &c.particles[i]
		keep := p.mat != material.Empty && p.settled < settleThreshold
		if p.mat != material.Empty && (p.hasLife || material.Properties(p.mat).HeatGen > 0) {
			keep = true
		}
		if keep {
			kept = append(kept, i)
			continue
		}
		if p.mat != material.Empty {
			c.settled++
		}
		c.activeMask[i/64] &^= 1 << uint(i%64)
	}
	c.active = kept
}

// needsSimulation reports whether the chunk holds work for the next tick.
func (c *Chunk) needsSimulation() bool {
	return c.dirty || len(c.active) > 0
}

// empty reports whether the chunk holds no particles at all.
func (c *Chunk) empty() bool {
	for i := range c.particles {
		if c.particles[i].mat != material.Empty {
			return false
		}
	}
	return true
}

// count returns the number of occupied cells in the chunk.
func (c *Chunk) count() int {
	n := 0
	for i := range c.particles {
		if c.particles[i].mat != material.Empty {
			n++
		}
	}
	return n
}

// clear vacates every slot of the chunk.
func (c *Chunk) clear() {
	c.particles = [chunkArea]Particle{}
	c.active = c.active[:0]
	c.activeMask = [chunkArea / 64]uint64{}
	c.settled = 0
	c.dirty = true
}
