// Package material holds the static data table describing every material a
// cell may hold. The table is built once at package initialisation and never
// mutated afterwards, so it may be shared freely between goroutines.
package material

import "strings"

// ID identifies a material with a small integer code. Codes are stable across
// versions so that snapshots and saved worlds remain interpretable: new
// materials must only ever be appended.
type ID uint8

const (
	Empty ID = iota
	Sand
	Water
	Stone
	Plant
	Fire
	Lava
	Glass
	Steam
	Oil
	Acid
	Coal
	Gunpowder
	Ice
	Wood
	Smoke
	ToxicGas
	Slime
	Gasoline
	Generator
	Fuse
	Ash
	Gold
	Iron

	// Eraser is a pseudo material: painting it removes particles instead of
	// placing them. It never occupies a cell.
	Eraser ID = 99
)

// Threshold is an optional temperature threshold in degrees Celsius. The zero
// value reports a material without the transition.
type Threshold struct {
	deg float64
	set bool
}

// Deg returns a set Threshold at the temperature passed.
func Deg(deg float64) Threshold {
	return Threshold{deg: deg, set: true}
}

// Value returns the threshold temperature and whether the threshold exists at
// all for the material.
func (t Threshold) Value() (float64, bool) {
	return t.deg, t.set
}

// Material describes the static properties of one material. Fields that hold
// zero values are simply absent: a Life of 0 means the material does not decay
// and a Yield of 0 means it does not explode.
type Material struct {
	// Name is a short display name used by hosts and inspection tooling.
	Name string
	// Density orders materials for displacement. Negative densities are
	// buoyant: such materials rise instead of fall.
	Density float64
	// Conductivity in [0, 1] weighs the material in temperature diffusion.
	Conductivity float64
	// Flammability in [0, 1] scales the probability of catching fire.
	Flammability float64
	// Viscosity resists flow. Liquids with a higher viscosity move sideways
	// less often and are harder to sink through.
	Viscosity float64
	// Corrosive is the per-tick probability factor with which the material
	// dissolves its neighbours.
	Corrosive float64
	// HeatGen is internal heat generated per scaled tick.
	HeatGen float64
	// Melt, Boil and Freeze drive phase transitions, each buffered by a fixed
	// hysteresis so particles do not oscillate across the boundary.
	Melt, Boil, Freeze Threshold
	// Ignition is the temperature at which a flammable material may catch.
	Ignition Threshold
	// Life is the lifespan in seconds before the material decays, for
	// materials such as fire and steam. 0 means the material is permanent.
	Life float64
	// Yield is the blast radius in cells when the material detonates.
	Yield float64
	// Colour is the base colour before temperature and life modulation.
	Colour [3]uint8
}

// table is indexed directly by ID. The material predicates and Properties are
// called for every particle every tick, so lookups must stay a plain array
// index.
var table [256]Material

var registered [256]bool

func register(id ID, m Material) {
	table[id] = m
	registered[id] = true
}

func init() {
	register(Empty, Material{Name: "Empty", Conductivity: 0.1, Viscosity: 1})
	register(Sand, Material{Name: "Sand", Density: 1.6, Conductivity: 0.3, Viscosity: 1, Melt: Deg(1500), Colour: [3]uint8{194, 178, 128}})
	register(Water, Material{Name: "Water", Density: 1, Conductivity: 0.6, Viscosity: 1, Boil: Deg(100), Freeze: Deg(0), Colour: [3]uint8{50, 100, 200}})
	register(Stone, Material{Name: "Stone", Density: 2.7, Conductivity: 0.2, Viscosity: 1, Colour: [3]uint8{100, 100, 100}})
	register(Plant, Material{Name: "Plant", Density: 0.4, Conductivity: 0.1, Flammability: 0.4, Viscosity: 1, Melt: Deg(200), Ignition: Deg(150), Colour: [3]uint8{50, 150, 50}})
	register(Fire, Material{Name: "Fire", Density: -2, Conductivity: 0.9, Viscosity: 1, Life: 1, Colour: [3]uint8{255, 69, 0}})
	register(Lava, Material{Name: "Lava", Density: 3.2, Conductivity: 0.8, Viscosity: 5, Melt: Deg(1800), Freeze: Deg(1000), Colour: [3]uint8{200, 50, 0}})
	register(Glass, Material{Name: "Glass", Density: 2.5, Conductivity: 0.4, Viscosity: 1, Melt: Deg(1800), Colour: [3]uint8{210, 230, 240}})
	register(Steam, Material{Name: "Steam", Density: -5, Conductivity: 0.7, Viscosity: 1, Freeze: Deg(99), Life: 10, Colour: [3]uint8{180, 180, 190}})
	register(Oil, Material{Name: "Oil", Density: 0.8, Conductivity: 0.4, Flammability: 0.9, Viscosity: 3, Boil: Deg(300), Ignition: Deg(200), Colour: [3]uint8{80, 70, 20}})
	register(Acid, Material{Name: "Acid", Density: 1.8, Conductivity: 0.5, Viscosity: 1, Corrosive: 0.15, Boil: Deg(200), Colour: [3]uint8{100, 255, 100}})
	register(Coal, Material{Name: "Coal", Density: 1.3, Conductivity: 0.2, Flammability: 1, Viscosity: 1, Melt: Deg(800), Ignition: Deg(250), Colour: [3]uint8{40, 40, 40}})
	register(Gunpowder, Material{Name: "Gunpowder", Density: 1.7, Conductivity: 0.1, Flammability: 1, Viscosity: 1, Ignition: Deg(150), Yield: 4, Colour: [3]uint8{60, 60, 70}})
	register(Ice, Material{Name: "Ice", Density: 0.92, Conductivity: 0.01, Viscosity: 1, Melt: Deg(1), Colour: [3]uint8{170, 200, 255}})
	register(Wood, Material{Name: "Wood", Density: 0.6, Conductivity: 0.2, Flammability: 0.6, Viscosity: 1, Melt: Deg(400), Ignition: Deg(200), Colour: [3]uint8{139, 69, 19}})
	register(Smoke, Material{Name: "Smoke", Density: -3, Conductivity: 0.1, Viscosity: 1, Life: 3, Colour: [3]uint8{150, 150, 150}})
	register(ToxicGas, Material{Name: "Toxic Gas", Density: -4, Conductivity: 0.1, Flammability: 0.1, Viscosity: 1, Corrosive: 0.02, Life: 5, Colour: [3]uint8{150, 200, 150}})
	register(Slime, Material{Name: "Slime", Density: 3.2, Conductivity: 0.3, Flammability: 0.1, Viscosity: 10, Boil: Deg(150), Colour: [3]uint8{100, 200, 100}})
	register(Gasoline, Material{Name: "Gasoline", Density: 0.8, Conductivity: 0.5, Flammability: 1, Viscosity: 2, Boil: Deg(80), Ignition: Deg(100), Colour: [3]uint8{255, 223, 186}})
	register(Generator, Material{Name: "Generator", Density: 100, Conductivity: 0.9, Viscosity: 1, HeatGen: 5, Colour: [3]uint8{255, 0, 0}})
	register(Fuse, Material{Name: "Fuse", Density: 5, Conductivity: 0.2, Flammability: 1, Viscosity: 1, Melt: Deg(150), Ignition: Deg(150), Colour: [3]uint8{100, 80, 60}})
	register(Ash, Material{Name: "Ash", Density: 0.9, Conductivity: 0.2, Viscosity: 1, Colour: [3]uint8{90, 90, 90}})
	register(Gold, Material{Name: "Gold", Density: 19.3, Conductivity: 0.8, Viscosity: 1, Melt: Deg(1064), Colour: [3]uint8{255, 215, 0}})
	register(Iron, Material{Name: "Iron", Density: 7.9, Conductivity: 0.7, Viscosity: 1, Melt: Deg(1538), Colour: [3]uint8{139, 139, 139}})
	register(Eraser, Material{Name: "Eraser", Viscosity: 1, Colour: [3]uint8{255, 0, 255}})
}

// Properties returns the static material record for the id passed. Unknown
// ids yield the zero Material; use Registered to validate ids arriving from a
// host.
func Properties(id ID) Material {
	return table[id]
}

// Registered reports whether the id names a known material.
func Registered(id ID) bool {
	return registered[id]
}

// ByName looks a material up by its display name, ignoring case differences.
// It returns false if no material carries the name.
func ByName(name string) (ID, bool) {
	for id := range len(table) {
		if registered[id] && strings.EqualFold(table[id].Name, name) {
			return ID(id), true
		}
	}
	return Empty, false
}

// All returns the ids of every registered material in ascending code order,
// including Empty and Eraser.
func All() []ID {
	ids := make([]ID, 0, 32)
	for id := range len(table) {
		if registered[id] {
			ids = append(ids, ID(id))
		}
	}
	return ids
}
