package world

import (
	"math/rand/v2"

	"github.com/df-mc/sandfall/engine/material"
)

const (
	// AmbientTemp is the temperature unheated cells drift back towards.
	AmbientTemp = 20.0
	// MinTemp and MaxTemp bound every particle temperature.
	MinTemp = -273.15
	MaxTemp = 3000.0
)

// Particle is the material occupant of a single cell. Particles are owned
// exclusively by the chunk whose slot they occupy: they are handed out by
// pointer for in-place mutation during a tick and copied for anything that
// leaves the world.
type Particle struct {
	mat  material.ID
	temp float64

	// life is the remaining lifespan in seconds for decaying materials.
	life    float64
	hasLife bool

	burning     bool
	timeInState float64

	// lastTick records the tick the particle was last serviced in, so that a
	// particle moved into an unvisited cell is not serviced twice.
	lastTick int64

	dynamic bool
	settled uint8

	colour   [3]uint8
	colourOK bool
}

// NewParticle creates a particle of the material passed. The temperature, if
// any is given, is clamped to the material's own limits: fire never starts
// below 800 degrees, ice never above -5. Without a temperature the particle
// starts at whatever the clamps make of the ambient temperature.
func NewParticle(id material.ID, temp ...float64) Particle {
	t := AmbientTemp
	if len(temp) > 0 {
		t = temp[0]
	}
	p := Particle{mat: id, temp: t, dynamic: id.Dynamic()}
	p.initProperties()
	return p
}

func (p *Particle) initProperties() {
	switch p.mat {
	case material.Fire:
		p.temp = max(p.temp, 800)
	case material.Lava:
		p.temp = max(p.temp, 1800)
	case material.Steam:
		p.temp = max(p.temp, 101)
	case material.Generator:
		p.temp = max(p.temp, 300)
	case material.Ice:
		p.temp = min(p.temp, -5)
	case material.Sand:
		if p.temp > 1500 {
			p.temp = max(p.temp, 1500)
		}
	case material.Stone:
		if p.temp > 1000 {
			p.temp = max(p.temp, 1000)
		}
	}
	p.temp = clampTemp(p.temp)

	props := material.Properties(p.mat)
	p.life, p.hasLife = props.Life, props.Life > 0
	p.timeInState = 0
	p.colourOK = false
}

// Material returns the id of the material held by the particle.
func (p *Particle) Material() material.ID {
	return p.mat
}

// Temperature returns the particle temperature in degrees Celsius.
func (p *Particle) Temperature() float64 {
	return p.temp
}

// Life returns the remaining lifespan in seconds and whether the particle
// decays at all.
func (p *Particle) Life() (float64, bool) {
	return p.life, p.hasLife
}

// Burning reports whether the particle is a lit fuse.
func (p *Particle) Burning() bool {
	return p.burning
}

// TimeInState returns how long, in seconds, the particle has held its current
// material.
func (p *Particle) TimeInState() float64 {
	return p.timeInState
}

func (p *Particle) setTemp(t float64) {
	t = clampTemp(t)
	if t == p.temp {
		return
	}
	p.temp = t
	p.colourOK = false
}

// ChangeType switches the particle to a new material. If no temperature is
// passed, the documented phase-transition adjustments apply: steam condensing
// to water lands between ambient and 99 degrees, ice keeps the previous
// temperature capped at -5 degrees by its own clamp, solidifying lava yields
// stone below 1000. Settled counters, the time in state and the colour cache all reset.
func (p *Particle) ChangeType(id material.ID, temp ...float64) {
	oldMat, oldTemp := p.mat, p.temp
	p.mat = id
	p.dynamic = id.Dynamic()
	p.settled = 0
	p.burning = false
	if len(temp) > 0 {
		p.temp = temp[0]
	}
	p.initProperties()

	if len(temp) == 0 {
		switch id {
		case material.Fire, material.Lava, material.Steam, material.Generator, material.Ice:
			// initProperties applied the material's own clamp already.
		case material.Water:
			switch oldMat {
			case material.Steam:
				p.temp = min(max(oldTemp-20, AmbientTemp), 99)
			case material.Ice:
				p.temp = min(max(oldTemp+5, 1), AmbientTemp)
			}
		case material.Stone:
			p.temp = min(oldTemp-100, 999)
		case material.Glass:
			p.temp = max(oldTemp+20, 1500)
		case material.Ash:
			p.temp = max(oldTemp*0.5, AmbientTemp)
		case material.Smoke:
			p.temp = max(oldTemp*0.6, AmbientTemp)
		}
		p.temp = clampTemp(p.temp)
	}
	p.timeInState = 0
	p.colourOK = false
}

// Colour returns the display colour of the particle. The base material colour
// is modulated by temperature and material-specific rules; fire flickers
// using the generator passed, so its colour changes every call.
func (p *Particle) Colour(r *rand.Rand) [3]uint8 {
	if p.colourOK && p.mat != material.Fire {
		return p.colour
	}
	props := material.Properties(p.mat)
	cr := float64(props.Colour[0])
	cg := float64(props.Colour[1])
	cb := float64(props.Colour[2])

	switch p.mat {
	case material.Empty:
	case material.Fire:
		flicker := 0.85 + r.Float64()*0.3
		f := clamp01((p.temp - 500) / 600)
		cr = min(cr*flicker+f*60, 255)
		cg = min(cg*flicker*(1-f*0.6), 255)
		cb = max(cb*flicker*(1-f), 0)
	case material.Lava:
		f := clamp01((p.temp - 1000) / 800)
		cr = min(cr+f*50, 255)
		cg = min(cg+f*70, 255)
		cb = max(cb*(1-f*0.5), 0)
	case material.Generator:
		f := clamp01((p.temp - 300) / 1000)
		cr = min(cr+f*50, 255)
		cg = max(cg*(1-f*0.8), 0)
		cb = max(cb*(1-f*0.8), 0)
	case material.Steam, material.Smoke, material.ToxicGas:
		if p.hasLife && props.Life > 0 {
			f := max(p.life/props.Life, 0)
			fade := 0.6 * (1 - f)
			const gray = 80.0
			cr = cr*f + gray*fade
			cg = cg*f + gray*fade
			cb = cb*f + gray*fade
		}
	default:
		if p.mat == material.Fuse && p.burning {
			cr = min(cr+100, 255)
			cg = min(cg+50, 255)
			cb = max(cb-20, 0)
			break
		}
		f := min(max((p.temp-AmbientTemp)/150, -0.5), 1.5)
		abs := f
		if abs < 0 {
			abs = -abs
		}
		cr = min(max(cr+f*25, 0), 255)
		cg = min(max(cg+f*15, 0), 255)
		cb = min(max(cb+f*10-abs*15, 0), 255)
	}

	c := [3]uint8{uint8(cr), uint8(cg), uint8(cb)}
	p.colour, p.colourOK = c, true
	return c
}

func clampTemp(t float64) float64 {
	return min(max(t, MinTemp), MaxTemp)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
