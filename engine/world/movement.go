package world

import (
	"math/rand/v2"

	"github.com/df-mc/sandfall/engine/material"
)

// move computes and applies one lattice step for the particle at pos. It
// reports whether the particle moved. Movement is in place, guarded by the
// per-tick service stamp: the first particle to claim a cell wins and a later
// particle finds its chosen cell taken.
func (w *World) move(pos Pos, p *Particle, dt float64, r *rand.Rand) bool {
	switch {
	case p.mat.Powder():
		return w.movePowder(pos, p, r)
	case p.mat.Liquid():
		return w.moveLiquid(pos, p, r)
	case p.mat.Gas():
		return w.moveGas(pos, p, r)
	}
	return false
}

// movePowder tries straight down, then the two down diagonals in a random
// per-tick order.
func (w *World) movePowder(pos Pos, p *Particle, r *rand.Rand) bool {
	below := pos.Add(0, 1)
	if w.tryStep(pos, below, p, r) {
		return true
	}
	dir := randDir(r)
	if w.tryStep(pos, pos.Add(dir, 1), p, r) {
		return true
	}
	return w.tryStep(pos, pos.Add(-dir, 1), p, r)
}

// moveLiquid tries down, then the down diagonals, then sideways. The sideways
// step is probabilistic: viscous liquids spread slower.
func (w *World) moveLiquid(pos Pos, p *Particle, r *rand.Rand) bool {
	if w.tryStep(pos, pos.Add(0, 1), p, r) {
		return true
	}
	dir := randDir(r)
	if w.tryStep(pos, pos.Add(dir, 1), p, r) {
		return true
	}
	if w.tryStep(pos, pos.Add(-dir, 1), p, r) {
		return true
	}
	chance := max(0.1, 1-material.Properties(p.mat).Viscosity*0.1)
	if r.Float64() >= chance {
		return false
	}
	if w.tryStep(pos, pos.Add(dir, 0), p, r) {
		return true
	}
	return w.tryStep(pos, pos.Add(-dir, 0), p, r)
}

// moveGas mirrors the liquid rules upward. Fire is all rise: it never drifts
// sideways the way a heavy gas spreads under a ceiling.
func (w *World) moveGas(pos Pos, p *Particle, r *rand.Rand) bool {
	if w.tryStep(pos, pos.Add(0, -1), p, r) {
		return true
	}
	dir := randDir(r)
	if w.tryStep(pos, pos.Add(dir, -1), p, r) {
		return true
	}
	if w.tryStep(pos, pos.Add(-dir, -1), p, r) {
		return true
	}
	if p.mat == material.Fire {
		return false
	}
	if w.tryStep(pos, pos.Add(dir, 0), p, r) {
		return true
	}
	return w.tryStep(pos, pos.Add(-dir, 0), p, r)
}

// tryStep moves the particle from from to to if the target permits it: the
// target must be in bounds and either vacant or occupied by a strictly less
// dense particle (strictly denser for rising gases). Moving into an occupied
// cell swaps the two particles; sinking through a viscous occupant succeeds
// only part of the time.
func (w *World) tryStep(from, to Pos, p *Particle, r *rand.Rand) bool {
	if w.bounded && !w.bounds.Contains(to) {
		return false
	}
	target := w.At(to)
	if target == nil {
		moved, _ := w.Remove(from)
		moved.lastTick = w.tick
		moved.settled = 0
		w.Set(to, moved)
		return true
	}
	if target.mat == material.Generator || target.mat.Stationary() {
		return false
	}
	self := material.Properties(p.mat)
	other := material.Properties(target.mat)
	if self.Density < 0 {
		if other.Density <= self.Density {
			return false
		}
	} else if other.Density >= self.Density {
		return false
	}
	if other.Viscosity > 0 && r.Float64() >= 1/(1+other.Viscosity) {
		return false
	}
	w.swap(from, to)
	return true
}

// swap exchanges the particles at the two positions in place, stamping both
// as serviced this tick so the displaced particle is not serviced again.
func (w *World) swap(a, b Pos) {
	ca, cb := w.chunks[chunkPos(a)], w.chunks[chunkPos(b)]
	ax, ay := localPos(a)
	bx, by := localPos(b)
	ia, ib := chunkIndex(ax, ay), chunkIndex(bx, by)

	ca.particles[ia], cb.particles[ib] = cb.particles[ib], ca.particles[ia]
	for _, c := range []*Chunk{ca, cb} {
		c.dirty = true
	}
	for _, p := range []*Particle{&ca.particles[ia], &cb.particles[ib]} {
		if p.mat != material.Empty {
			p.lastTick = w.tick
			p.settled = 0
		}
	}
	ca.markActive(ia)
	cb.markActive(ib)
	w.wake(a)
	w.wake(b)
}

func randDir(r *rand.Rand) int {
	if r.Uint64()&1 == 0 {
		return -1
	}
	return 1
}
