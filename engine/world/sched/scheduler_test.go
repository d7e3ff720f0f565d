package sched

import "testing"

type fakeSource struct {
	chunks []ChunkPos
	active map[ChunkPos]bool
}

func (s *fakeSource) Chunks() []ChunkPos { return s.chunks }

func (s *fakeSource) Active(pos ChunkPos) bool { return s.active[pos] }

func TestPlanSelectsActiveChunks(t *testing.T) {
	src := &fakeSource{
		chunks: []ChunkPos{{0, 0}, {5, 5}, {9, 9}},
		active: map[ChunkPos]bool{{0, 0}: true},
	}
	s := Config{}.New()
	plan := s.Plan(src)
	if len(plan.Chunks) != 1 || plan.Chunks[0] != (ChunkPos{0, 0}) {
		t.Fatalf("expected only the active chunk, got %v", plan.Chunks)
	}
	if plan.Deferred != 0 {
		t.Fatalf("nothing should be deferred, got %v", plan.Deferred)
	}
}

func TestPlanIncludesNeighboursOfActivity(t *testing.T) {
	src := &fakeSource{
		chunks: []ChunkPos{{0, 0}, {1, 0}, {4, 4}},
		active: map[ChunkPos]bool{{0, 0}: true},
	}
	plan := Config{}.New().Plan(src)
	if len(plan.Chunks) != 2 {
		t.Fatalf("the neighbour of an active chunk must be selected too, got %v", plan.Chunks)
	}
}

func TestPlanBudgetDefersExcess(t *testing.T) {
	metrics := NewMetrics()
	src := &fakeSource{active: map[ChunkPos]bool{}}
	for x := int32(0); x < 10; x++ {
		pos := ChunkPos{X: x * 3}
		src.chunks = append(src.chunks, pos)
		src.active[pos] = true
	}
	s := Config{Budget: 4, Metrics: metrics}.New()

	plan := s.Plan(src)
	if len(plan.Chunks) != 4 {
		t.Fatalf("budget of 4 produced %v chunks", len(plan.Chunks))
	}
	if plan.Deferred != 6 {
		t.Fatalf("expected 6 deferred chunks, got %v", plan.Deferred)
	}
	snap := metrics.Snapshot()
	if snap.ActiveChunks != 4 || snap.DeferredChunks != 6 {
		t.Fatalf("metrics disagree with plan: %+v", snap)
	}

	// Deferred chunks are served first on the next tick; over three plans all
	// ten chunks must have run at least once.
	seen := map[ChunkPos]bool{}
	for _, pos := range plan.Chunks {
		seen[pos] = true
	}
	for range 2 {
		plan = s.Plan(src)
		for _, pos := range plan.Chunks {
			seen[pos] = true
		}
	}
	if len(seen) != 10 {
		t.Fatalf("budget rotation starved chunks: only %v of 10 ran", len(seen))
	}
}

func TestPlanDeterministicOrder(t *testing.T) {
	src := &fakeSource{
		chunks: []ChunkPos{{3, 1}, {-2, 0}, {0, 0}, {1, 1}},
		active: map[ChunkPos]bool{{3, 1}: true, {-2, 0}: true, {0, 0}: true, {1, 1}: true},
	}
	a := Config{}.New().Plan(src)
	b := Config{}.New().Plan(src)
	if len(a.Chunks) != len(b.Chunks) {
		t.Fatal("plans differ in size")
	}
	for i := range a.Chunks {
		if a.Chunks[i] != b.Chunks[i] {
			t.Fatalf("plan order not deterministic at %v: %v vs %v", i, a.Chunks, b.Chunks)
		}
	}
	for i := 1; i < len(a.Chunks); i++ {
		if a.Chunks[i-1].Morton() >= a.Chunks[i].Morton() {
			t.Fatalf("plan not in Morton order: %v", a.Chunks)
		}
	}
}

func TestColoursPartition(t *testing.T) {
	plan := Plan{Chunks: []ChunkPos{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 2}}}
	colours := plan.Colours()
	total := 0
	for _, group := range colours {
		total += len(group)
		// No two chunks within a colour may be 8-adjacent.
		for i := range group {
			for j := i + 1; j < len(group); j++ {
				dx, dy := group[i].X-group[j].X, group[i].Y-group[j].Y
				if dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1 {
					t.Fatalf("chunks %v and %v share a colour but are adjacent", group[i], group[j])
				}
			}
		}
	}
	if total != 5 {
		t.Fatalf("colour partition lost chunks: %v of 5", total)
	}
}

func TestMortonOrdersNegativesFirst(t *testing.T) {
	if (ChunkPos{X: -1, Y: -1}).Morton() >= (ChunkPos{X: 0, Y: 0}).Morton() {
		t.Fatal("negative chunk coordinates must sort before positive ones")
	}
}

func TestVanishedCarriedChunkDropped(t *testing.T) {
	src := &fakeSource{active: map[ChunkPos]bool{}}
	for x := int32(0); x < 4; x++ {
		pos := ChunkPos{X: x * 5}
		src.chunks = append(src.chunks, pos)
		src.active[pos] = true
	}
	s := Config{Budget: 2}.New()
	s.Plan(src)

	// The deferred chunks disappear before the next tick, e.g. cleaned up as
	// empty. They must not be planned again.
	src.chunks = src.chunks[:2]
	plan := s.Plan(src)
	for _, pos := range plan.Chunks {
		if pos.X > 5 {
			t.Fatalf("vanished chunk %v still planned", pos)
		}
	}
}
