package world

import (
	"math/rand/v2"
	"testing"

	"github.com/df-mc/sandfall/engine/material"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

func TestFireDecaysToSmoke(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Fire))
	p := w.At(Pos{0, 0})
	if !w.decay(Pos{0, 0}, p, 1.5) {
		t.Fatal("fire past its lifespan must decay")
	}
	if p.Material() != material.Smoke {
		t.Fatalf("fire decayed to %v, expected smoke", p.Material())
	}
	if p.Temperature() > 400 {
		t.Fatalf("smoke from fire capped at 400 degrees, got %v", p.Temperature())
	}
}

func TestGasDecaysToNothing(t *testing.T) {
	w := testWorld(t, Config{})
	for _, id := range []material.ID{material.Steam, material.Smoke, material.ToxicGas} {
		w.Set(Pos{0, 0}, NewParticle(id))
		p := w.At(Pos{0, 0})
		life, _ := p.Life()
		if !w.decay(Pos{0, 0}, p, life+1) {
			t.Fatalf("%v past its lifespan must decay", material.Properties(id).Name)
		}
		if w.At(Pos{0, 0}) != nil {
			t.Fatalf("%v should decay to an empty cell", material.Properties(id).Name)
		}
	}
}

func TestBurntFuseLeavesAsh(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Fuse))
	p := w.At(Pos{0, 0})
	p.burning = true
	if w.decay(Pos{0, 0}, p, 1.0/60) {
		t.Fatal("a freshly lit fuse must not burn out instantly")
	}
	if life, ok := p.Life(); !ok || life <= 0 {
		t.Fatal("lighting a fuse must start its lifespan")
	}
	if !w.decay(Pos{0, 0}, p, fuseBurnLife) {
		t.Fatal("fuse should burn out")
	}
	if p.Material() != material.Ash {
		t.Fatalf("fuse burnt into %v, expected ash", p.Material())
	}
}

func TestSandMeltsToGlass(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Sand, 1600))
	p := w.At(Pos{0, 0})
	if !w.applyStateChanges(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1.0/60, testRand(1)) {
		t.Fatal("hot sand must melt")
	}
	if p.Material() != material.Glass {
		t.Fatalf("sand melted into %v", p.Material())
	}
}

func TestGlassMeltsToLava(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Glass, 1900))
	p := w.At(Pos{0, 0})
	if !w.applyStateChanges(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1.0/60, testRand(1)) {
		t.Fatal("hot glass must melt")
	}
	if p.Material() != material.Lava {
		t.Fatalf("glass melted into %v", p.Material())
	}
}

func TestWaterBoilsAndFreezes(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Water, 120))
	p := w.At(Pos{0, 0})
	if !w.applyStateChanges(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1.0/60, testRand(1)) || p.Material() != material.Steam {
		t.Fatalf("hot water should boil, got %v", p.Material())
	}

	w.Set(Pos{1, 0}, NewParticle(material.Water, -20))
	q := w.At(Pos{1, 0})
	if !w.applyStateChanges(Pos{1, 0}, q, w.Neighbours(Pos{1, 0}), 1.0/60, testRand(1)) || q.Material() != material.Ice {
		t.Fatalf("cold water should freeze, got %v", q.Material())
	}
}

func TestHysteresisSuppressesTransition(t *testing.T) {
	w := testWorld(t, Config{})
	// 102 degrees is past the boiling point but inside the hysteresis band.
	w.Set(Pos{0, 0}, NewParticle(material.Water, 102))
	p := w.At(Pos{0, 0})
	if w.applyStateChanges(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1.0/60, testRand(1)) {
		t.Fatal("water inside the hysteresis band must not boil")
	}
}

func TestLavaSolidifies(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Lava))
	p := w.At(Pos{0, 0})
	p.setTemp(900)
	if !w.applyStateChanges(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1.0/60, testRand(1)) || p.Material() != material.Stone {
		t.Fatalf("cold lava should solidify, got %v", p.Material())
	}
}

func TestWoodIgnitesFromFire(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Wood))
	w.Set(Pos{0, 1}, NewParticle(material.Fire))
	p := w.At(Pos{0, 0})
	if !w.applyStateChanges(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1.0/60, testRand(1)) {
		t.Fatal("wood next to fire must ignite")
	}
	if p.Material() != material.Fire {
		t.Fatalf("wood ignited into %v", p.Material())
	}
	if life, ok := p.Life(); !ok || life != 3 {
		t.Fatalf("burning wood should hold 3 seconds of fire, got %v", life)
	}
}

func TestCoalSelfIgnitesWhenOverheated(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Coal, 360))
	p := w.At(Pos{0, 0})
	if !w.applyStateChanges(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1.0/60, testRand(1)) {
		t.Fatal("coal 100 degrees past its ignition point must catch")
	}
	if life, ok := p.Life(); !ok || life != 4 {
		t.Fatalf("burning coal should hold 4 seconds of fire, got %v", life)
	}
}

func TestFuseLightsButDoesNotTransform(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Fuse))
	w.Set(Pos{1, 0}, NewParticle(material.Fire))
	p := w.At(Pos{0, 0})
	if w.applyStateChanges(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1.0/60, testRand(1)) {
		t.Fatal("lighting a fuse must not replace it")
	}
	if !p.Burning() {
		t.Fatal("fuse next to fire should be burning")
	}
}

func TestGunpowderExplodes(t *testing.T) {
	w := testWorld(t, Config{Seed: 2})
	w.Set(Pos{10, 10}, NewParticle(material.Gunpowder))
	w.Set(Pos{11, 10}, NewParticle(material.Fire))
	p := w.At(Pos{10, 10})
	if !w.applyStateChanges(Pos{10, 10}, p, w.Neighbours(Pos{10, 10}), 1.0/60, testRand(9)) {
		t.Fatal("gunpowder next to fire must detonate")
	}
	rect := Rect{Min: Pos{5, 5}, Max: Pos{15, 15}}
	fire := findAll(w, rect, material.Fire)
	smoke := findAll(w, rect, material.Smoke)
	if len(fire)+len(smoke) < 3 {
		t.Fatalf("blast left too little behind: %v fire, %v smoke", len(fire), len(smoke))
	}
}

func TestAcidCorrodesNeighbour(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Acid))
	w.Set(Pos{0, 1}, NewParticle(material.Stone))
	p := w.At(Pos{0, 0})
	// A scale of 60 pushes every per-tick probability to certainty.
	w.corrode(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 60, testRand(4))
	if q := w.At(Pos{0, 1}); q != nil && q.Material() == material.Stone {
		t.Fatal("stone neighbour survived a guaranteed corrosion roll")
	}
}

func TestAcidSparesGlassAndGenerator(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Acid))
	w.Set(Pos{0, 1}, NewParticle(material.Glass))
	w.Set(Pos{1, 0}, NewParticle(material.Generator))
	p := w.At(Pos{0, 0})
	for i := range 50 {
		w.corrode(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 60, testRand(uint64(i)))
		if w.At(Pos{0, 0}) == nil {
			break
		}
	}
	if q := w.At(Pos{0, 1}); q == nil || q.Material() != material.Glass {
		t.Fatal("glass must be immune to acid")
	}
	if q := w.At(Pos{1, 0}); q == nil || q.Material() != material.Generator {
		t.Fatal("generators must be immune to acid")
	}
}

func TestPlantGrowsBesideWater(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Plant, 30))
	w.Set(Pos{1, 0}, NewParticle(material.Water))
	p := w.At(Pos{0, 0})
	r := testRand(6)
	grown := false
	for range 1000 {
		w.growPlant(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1, r)
		if len(findAll(w, Rect{Min: Pos{-2, -2}, Max: Pos{3, 2}}, material.Plant)) > 1 {
			grown = true
			break
		}
	}
	if !grown {
		t.Fatal("watered plant at growth temperature never reproduced")
	}
}

func TestPlantNeedsWaterToGrow(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Plant, 30))
	p := w.At(Pos{0, 0})
	r := testRand(6)
	for range 1000 {
		w.growPlant(Pos{0, 0}, p, w.Neighbours(Pos{0, 0}), 1, r)
	}
	if len(findAll(w, Rect{Min: Pos{-2, -2}, Max: Pos{3, 2}}, material.Plant)) != 1 {
		t.Fatal("plant reproduced without adjacent water")
	}
}

func TestSteamCondensesNearTop(t *testing.T) {
	w := testWorld(t, Config{Width: 32, Height: 32})
	w.Set(Pos{5, 2}, NewParticle(material.Steam))
	p := w.At(Pos{5, 2})
	p.setTemp(80)
	p.timeInState = steamMinDwell
	if !w.applyStateChanges(Pos{5, 2}, p, w.Neighbours(Pos{5, 2}), 1.0/60, testRand(8)) {
		t.Fatal("cooled steam near the top of a bounded world must condense")
	}
	if p.Material() != material.Water {
		t.Fatalf("steam condensed into %v", p.Material())
	}
	if p.Temperature() > 99 {
		t.Fatalf("condensed water should land at or below 99 degrees, got %v", p.Temperature())
	}
}

func TestSteamNeedsDwellToCondense(t *testing.T) {
	w := testWorld(t, Config{Width: 32, Height: 32})
	w.Set(Pos{5, 2}, NewParticle(material.Steam))
	p := w.At(Pos{5, 2})
	p.setTemp(80)
	p.timeInState = 1
	if w.applyStateChanges(Pos{5, 2}, p, w.Neighbours(Pos{5, 2}), 1.0/60, testRand(8)) {
		t.Fatal("fresh steam must not condense before its dwell time")
	}
}

func TestDiffusionPullsTowardsHotNeighbour(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Water))
	w.Set(Pos{1, 0}, NewParticle(material.Fire))
	p := w.At(Pos{0, 0})
	before := p.Temperature()
	w.diffuseTemperature(p, w.Neighbours(Pos{0, 0}), 1.0/60)
	if p.Temperature() <= before {
		t.Fatal("water beside fire must warm up")
	}
	if p.Temperature() > before+50 {
		t.Fatalf("single-tick delta must stay clamped, got %v", p.Temperature()-before)
	}
}

func TestIsolatedParticleCoolsTowardsAmbient(t *testing.T) {
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Water, 90))
	p := w.At(Pos{0, 0})
	for range 600 {
		w.diffuseTemperature(p, w.Neighbours(Pos{0, 0}), 1.0/60)
	}
	if p.Temperature() > 40 {
		t.Fatalf("lone hot water should cool towards ambient, still at %v", p.Temperature())
	}
	if p.Temperature() < AmbientTemp-1 {
		t.Fatalf("cooling must not undershoot ambient, at %v", p.Temperature())
	}
}

func TestGeneratorHoldsHeatAboveAmbient(t *testing.T) {
	// Internal heat generation balances diffusion well above the ambient
	// temperature an inert particle would settle at.
	w := testWorld(t, Config{})
	w.Set(Pos{0, 0}, NewParticle(material.Generator))
	p := w.At(Pos{0, 0})
	for range 2000 {
		w.diffuseTemperature(p, w.Neighbours(Pos{0, 0}), 1.0/60)
	}
	if p.Temperature() < 60 {
		t.Fatalf("generator equilibrium fell to %v, expected well above ambient", p.Temperature())
	}
}

func TestChangeTypeAdjustsPhaseTemperature(t *testing.T) {
	p := NewParticle(material.Steam, 150)
	p.ChangeType(material.Water)
	if temp := p.Temperature(); temp < AmbientTemp || temp > 99 {
		t.Fatalf("condensed steam should land between ambient and 99 degrees, got %v", temp)
	}

	q := NewParticle(material.Lava)
	q.ChangeType(material.Stone)
	if temp := q.Temperature(); temp > 999 {
		t.Fatalf("solidified lava should drop below 1000 degrees, got %v", temp)
	}
	if q.TimeInState() != 0 {
		t.Fatal("change of type must reset the time in state")
	}
}

func TestTemperatureClamps(t *testing.T) {
	p := NewParticle(material.Stone, 5000)
	if p.Temperature() != MaxTemp {
		t.Fatalf("creation temperature must clamp to %v, got %v", MaxTemp, p.Temperature())
	}
	p.setTemp(-400)
	if p.Temperature() != MinTemp {
		t.Fatalf("temperature must clamp to %v, got %v", MinTemp, p.Temperature())
	}
}

func TestFireColourFlickers(t *testing.T) {
	p := NewParticle(material.Fire)
	r := testRand(12)
	a, b := p.Colour(r), p.Colour(r)
	if a == b {
		// Two flicker samples agreeing exactly is possible but vanishingly
		// unlikely; a third sample removes any doubt.
		if c := p.Colour(r); c == a {
			t.Fatal("fire colour does not flicker")
		}
	}
}

func TestGasColourFadesWithLife(t *testing.T) {
	p := NewParticle(material.Smoke)
	r := testRand(13)
	fresh := p.Colour(r)
	p.life = 0.3
	p.colourOK = false
	faded := p.Colour(r)
	if fresh == faded {
		t.Fatal("smoke colour should fade as its life runs out")
	}
}
