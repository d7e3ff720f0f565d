package world

import (
	"math"
	"math/rand/v2"

	"github.com/df-mc/sandfall/engine/material"
)

const (
	// coolingRate drives unheated cells back towards the ambient temperature.
	coolingRate = 0.005
	// hysteresis buffers every melt/boil/freeze threshold so particles do not
	// oscillate across a transition boundary.
	hysteresis = 5.0
	// dtScale normalises per-tick probabilities and rates to a 60 Hz baseline
	// so behaviour stays comparable across host tick rates.
	dtScale = 60.0
	// highInertia damps temperature swings of stone, glass, ice and lava.
	highInertia = 0.2

	fuseBurnLife    = 4.0
	fireLife        = 1.0
	steamMinDwell   = 10.0
	plantGrowChance = 0.09
)

// decay counts a particle's lifespan down and applies its decay transform
// once the lifespan runs out. It reports whether the particle was transformed
// or removed, ending its pipeline for this tick.
func (w *World) decay(pos Pos, p *Particle, dt float64) bool {
	if p.mat == material.Fuse && p.burning && !p.hasLife {
		p.life, p.hasLife = fuseBurnLife, true
	}
	if !p.hasLife {
		return false
	}
	p.life -= dt
	if p.mat == material.Fuse && p.burning {
		p.setTemp(p.temp + 5*dt*dtScale)
	}
	p.colourOK = false
	if p.life > 0 {
		return false
	}

	switch p.mat {
	case material.Fire:
		p.ChangeType(material.Smoke, min(p.temp*0.6, 400))
	case material.Fuse:
		p.ChangeType(material.Ash, max(p.temp*0.5, AmbientTemp))
	case material.Steam, material.Smoke, material.ToxicGas:
		w.Remove(pos)
	default:
		p.hasLife = false
		return false
	}
	w.wake(pos)
	return true
}

// diffuseTemperature pulls the particle towards the conductivity-weighted
// mean of its neighbourhood, treating vacant neighbours as ambient air.
// Diffusion is in place: each particle reads whatever its neighbours hold at
// the moment it is serviced. The bias this introduces against a double
// buffer is small at the time steps the engine runs at and the policy is
// fixed; tests depend on it.
func (w *World) diffuseTemperature(p *Particle, nb [8]*Particle, dt float64) {
	if p.mat == material.Empty {
		return
	}
	props := material.Properties(p.mat)
	k := props.Conductivity
	switch p.mat {
	case material.Generator:
		k *= 0.1
	case material.Stone, material.Glass:
		k *= 0.3
	}
	scale := dt * dtScale

	emptyK := material.Properties(material.Empty).Conductivity
	tempSum, kSum := 0.0, 0.0
	for _, n := range nb {
		nt, nk := AmbientTemp, emptyK
		if n != nil {
			nt, nk = n.temp, material.Properties(n.mat).Conductivity
		}
		tempSum += nt * nk
		kSum += nk
	}

	t := p.temp
	if total := k + kSum; total > 0.001 {
		avg := (p.temp*k + tempSum) / total
		delta := (avg - p.temp) * min(k*0.8, 0.5)
		switch p.mat {
		case material.Lava, material.Stone, material.Glass, material.Ice:
			delta *= highInertia
		}
		t = p.temp + min(max(delta, -50), 50)*scale
	}

	// Ambient cooling and internal heat generation. Lava relaxes towards its
	// own solidification band instead of the ambient temperature, so a pool
	// left alone stays molten and only external cooling freezes it.
	rest := AmbientTemp
	if p.mat == material.Lava && t > 1000 {
		rest = 1000
	}
	t += (rest - t) * coolingRate * k * scale
	if props.HeatGen > 0 {
		t += props.HeatGen * scale
	}
	if p.mat == material.Fire {
		t = max(t, 800)
	}

	t = clampTemp(t)
	if diff := t - p.temp; diff > 0.01 || diff < -0.01 {
		p.temp = t
		p.colourOK = false
	}
}

// applyStateChanges evaluates the transition table for the particle, in
// order: ignition, melting, boiling, freezing and condensation, then the
// material-specific effects of lava, acid and plants. It reports whether the
// particle changed material or was consumed.
func (w *World) applyStateChanges(pos Pos, p *Particle, nb [8]*Particle, dt float64, r *rand.Rand) bool {
	props := material.Properties(p.mat)
	scale := dt * dtScale

	if ign, ok := props.Ignition.Value(); ok && props.Flammability > 0 {
		external, sourceTemp := false, p.temp
		for _, n := range nb {
			if n == nil {
				continue
			}
			if n.mat == material.Fire || n.mat == material.Lava || (n.mat == material.Fuse && n.burning) {
				external = true
				sourceTemp = max(sourceTemp, n.temp)
				break
			}
		}

		switch p.mat {
		case material.Plant, material.Wood, material.Coal, material.Oil, material.Gasoline:
			if external || p.temp >= ign+100 {
				life := fireLife
				switch p.mat {
				case material.Wood:
					life = 3
				case material.Coal:
					life = 4
				}
				p.ChangeType(material.Fire, max(sourceTemp, 800))
				p.life, p.hasLife = life, true
				w.wake(pos)
				return true
			}
		case material.Gunpowder:
			if external || p.temp >= ign+100 {
				w.Remove(pos)
				w.explode(pos, props.Yield, r)
				return true
			}
		case material.Fuse:
			if external && !p.burning {
				p.burning = true
				p.life, p.hasLife = fuseBurnLife, true
				p.setTemp(max(p.temp, ign+50))
				p.colourOK = false
				w.wake(pos)
			}
		}
	}

	if melt, ok := props.Melt.Value(); ok && p.temp >= melt+hysteresis {
		switch p.mat {
		case material.Sand:
			p.ChangeType(material.Glass, p.temp)
		case material.Glass:
			p.ChangeType(material.Lava, p.temp)
		case material.Ice:
			p.ChangeType(material.Water, p.temp)
		default:
			goto boil
		}
		w.wake(pos)
		return true
	}

boil:
	if boil, ok := props.Boil.Value(); ok && p.temp >= boil+hysteresis {
		switch p.mat {
		case material.Water:
			p.ChangeType(material.Steam, p.temp)
		case material.Acid, material.Slime:
			p.ChangeType(material.ToxicGas, p.temp)
		default:
			goto freeze
		}
		w.wake(pos)
		return true
	}

freeze:
	if freeze, ok := props.Freeze.Value(); ok && p.temp <= freeze-hysteresis {
		switch p.mat {
		case material.Lava:
			p.ChangeType(material.Stone, p.temp)
			w.wake(pos)
			return true
		case material.Water:
			p.ChangeType(material.Ice, p.temp)
			w.wake(pos)
			return true
		case material.Steam:
			if p.timeInState >= steamMinDwell {
				chance := w.conf.CondensationChance * dt
				if w.bounded && pos.Y() <= w.bounds.Min.Y()+5 {
					chance = 1
				}
				if r.Float64() < chance {
					p.ChangeType(material.Water)
					w.wake(pos)
					return true
				}
			}
		}
	}

	switch p.mat {
	case material.Lava:
		return w.lavaContact(pos, p, nb)
	case material.Acid:
		return w.corrode(pos, p, nb, scale, r)
	case material.Plant:
		w.growPlant(pos, p, nb, dt, r)
	}
	return false
}

// lavaContact solidifies water touching lava into a stone crust and throws
// steam off the contact. Only the four orthogonal neighbours count; diagonal
// contact leaves a gap the lava can still flow through.
func (w *World) lavaContact(pos Pos, p *Particle, nb [8]*Particle) bool {
	for _, i := range [4]int{1, 3, 4, 6} {
		n := nb[i]
		if n == nil || n.mat != material.Water {
			continue
		}
		npos := neighbourPos(pos, i)
		n.ChangeType(material.Stone, 100)
		w.wake(npos)
		above := npos.Add(0, -1)
		if w.bounded && !w.bounds.Contains(above) {
			continue
		}
		if q := w.At(above); q == nil || q.mat == material.Water {
			w.Set(above, NewParticle(material.Steam, max(p.temp*0.3, 101)))
		}
	}
	return false
}

// corrode dissolves one vulnerable neighbour of a corrosive particle per
// tick at most. Stone resists partially, sometimes degrading to sand instead
// of dissolving; anything dissolved outright releases toxic gas above it.
// The corrosive itself is occasionally spent in the process.
func (w *World) corrode(pos Pos, p *Particle, nb [8]*Particle, scale float64, r *rand.Rand) bool {
	power := material.Properties(p.mat).Corrosive
	if power <= 0 {
		return false
	}
	for i, n := range nb {
		if n == nil {
			continue
		}
		switch n.mat {
		case material.Acid, material.Glass, material.Generator, material.ToxicGas:
			continue
		}
		if r.Float64() >= power*scale {
			continue
		}
		npos := neighbourPos(pos, i)
		if n.mat == material.Stone && r.Float64() < 0.3 {
			n.ChangeType(material.Sand, n.temp)
			w.wake(npos)
		} else {
			gasTemp := p.temp * 0.8
			w.Remove(npos)
			if above := npos.Add(0, -1); !w.bounded || w.bounds.Contains(above) {
				w.Set(above, NewParticle(material.ToxicGas, gasTemp))
			}
		}
		if r.Float64() < 0.05*scale {
			w.Remove(pos)
			return true
		}
		break
	}
	return false
}

// growPlant reproduces a watered plant into one random vacant neighbour when
// the temperature suits growth.
func (w *World) growPlant(pos Pos, p *Particle, nb [8]*Particle, dt float64, r *rand.Rand) {
	watered := false
	var vacant []int
	for i, n := range nb {
		if n == nil {
			npos := neighbourPos(pos, i)
			if !w.bounded || w.bounds.Contains(npos) {
				vacant = append(vacant, i)
			}
			continue
		}
		if n.mat == material.Water {
			watered = true
		}
	}
	if !watered || len(vacant) == 0 || p.temp <= AmbientTemp || p.temp >= 50 {
		return
	}
	if r.Float64() >= plantGrowChance*dt {
		return
	}
	npos := neighbourPos(pos, vacant[r.IntN(len(vacant))])
	w.Set(npos, NewParticle(material.Plant, p.temp))
}

// explode fills a disk with fire and smoke. Cells are replaced regardless of
// their occupants: a blast makes no density checks. Particles just outside
// the disk are scorched so fires catch around the crater.
func (w *World) explode(centre Pos, yield float64, r *rand.Rand) {
	if yield <= 0 {
		yield = 4
	}
	radius := int(yield)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			distSq := float64(dx*dx + dy*dy)
			if distSq > yield*yield {
				continue
			}
			pos := centre.Add(dx, dy)
			if w.bounded && !w.bounds.Contains(pos) {
				continue
			}
			strength := max(1-math.Sqrt(distSq)/yield, 0)
			if r.Float64() >= strength*0.95 {
				continue
			}
			if r.Float64() < 0.6*strength {
				p := NewParticle(material.Fire, 800+strength*700)
				p.life, p.hasLife = fireLife*strength*0.5, true
				w.Set(pos, p)
			} else {
				p := NewParticle(material.Smoke, 400*strength)
				p.life, p.hasLife = 3*strength, true
				w.Set(pos, p)
			}
		}
	}

	// Scorch the ring around the blast. The spatial index, when present,
	// serves this radius query.
	outer := yield * 1.5
	for _, pos := range w.ParticlesWithin(centre, outer) {
		dx, dy := float64(pos.X()-centre.X()), float64(pos.Y()-centre.Y())
		d := math.Sqrt(dx*dx + dy*dy)
		if d <= yield {
			continue
		}
		if p := w.At(pos); p != nil {
			p.setTemp(p.temp + 100*(1-d/outer))
			w.wake(pos)
		}
	}
}
