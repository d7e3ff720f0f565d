// Package sched selects which chunks a simulation tick visits. Selection is
// budgeted: when more chunks need work than the tick may afford, the excess is
// deferred to the next tick rather than dropped, and the deferral is visible
// through Metrics.
package sched

import (
	"log/slog"
	"sort"
)

// ChunkPos identifies a chunk by its coordinates in chunk space.
type ChunkPos struct {
	X, Y int32
}

// Morton returns the Morton (Z-order) code of the position. Ordering passes
// by Morton code keeps chunks that are close in space close in iteration
// order, which keeps tick iteration deterministic and cache friendly.
func (p ChunkPos) Morton() uint64 {
	// Bias into unsigned space so negative coordinates sort before positive.
	x := uint32(p.X) ^ 0x80000000
	y := uint32(p.Y) ^ 0x80000000
	return interleave(x) | interleave(y)<<1
}

func interleave(v uint32) uint64 {
	x := uint64(v)
	x = (x | x<<16) & 0x0000ffff0000ffff
	x = (x | x<<8) & 0x00ff00ff00ff00ff
	x = (x | x<<4) & 0x0f0f0f0f0f0f0f0f
	x = (x | x<<2) & 0x3333333333333333
	x = (x | x<<1) & 0x5555555555555555
	return x
}

// colour returns the four-colour partition index of the position. No two
// chunks of the same colour are 8-adjacent.
func (p ChunkPos) colour() int {
	return int(p.X&1) | int(p.Y&1)<<1
}

// Source exposes the activity state of a chunk map to the scheduler.
type Source interface {
	// Chunks returns the positions of all materialised chunks.
	Chunks() []ChunkPos
	// Active reports whether the chunk at the position itself has pending
	// work: a dirty flag or a non-empty active list.
	Active(pos ChunkPos) bool
}

// Config holds the tunable parameters of a Scheduler. The zero value is
// usable; sensible defaults are applied by New.
type Config struct {
	// Log is the logger warnings about sustained deferral are sent to. It
	// defaults to slog.Default().
	Log *slog.Logger
	// Budget caps the number of chunks selected per tick. Chunks beyond the
	// budget carry over to the following tick. Defaults to 100.
	Budget int
	// Metrics receives per-tick counters. It may be nil.
	Metrics *Metrics
}

// New creates a Scheduler using the configuration passed.
func (c Config) New() *Scheduler {
	if c.Log == nil {
		c.Log = slog.Default()
	}
	if c.Budget <= 0 {
		c.Budget = 100
	}
	return &Scheduler{log: c.Log, budget: c.Budget, metrics: c.Metrics}
}

// Scheduler plans the set of chunks each tick visits.
type Scheduler struct {
	log     *slog.Logger
	budget  int
	metrics *Metrics

	// carried holds chunks deferred from the previous tick. They are served
	// first so a busy world cannot starve any chunk indefinitely.
	carried []ChunkPos

	deferredStreak int
}

// Plan is the outcome of selecting chunks for one tick.
type Plan struct {
	// Chunks holds the selected chunk positions in Morton order, deferred
	// carry-overs first.
	Chunks []ChunkPos
	// Deferred is the number of chunks that needed work but did not fit the
	// budget this tick.
	Deferred int
}

// Colours splits the plan into the four-colour partition used for parallel
// passes. Within one colour, no two chunks are 8-adjacent.
func (p Plan) Colours() [4][]ChunkPos {
	var out [4][]ChunkPos
	for _, pos := range p.Chunks {
		c := pos.colour()
		out[c] = append(out[c], pos)
	}
	return out
}

// Plan selects the chunks to simulate this tick. A chunk is a candidate if it
// has pending work itself or if any of its eight neighbouring chunks does.
func (s *Scheduler) Plan(src Source) Plan {
	all := src.Chunks()

	active := make(map[ChunkPos]struct{}, len(all))
	for _, pos := range all {
		if src.Active(pos) {
			active[pos] = struct{}{}
		}
	}

	seen := make(map[ChunkPos]struct{}, len(all))
	candidates := make([]ChunkPos, 0, len(all))

	// Deferred chunks from last tick go first, provided they still exist.
	for _, pos := range s.carried {
		if _, ok := seen[pos]; ok {
			continue
		}
		if !contains(all, pos) {
			continue
		}
		seen[pos] = struct{}{}
		candidates = append(candidates, pos)
	}

	fresh := make([]ChunkPos, 0, len(all))
	for _, pos := range all {
		if _, ok := seen[pos]; ok {
			continue
		}
		if _, ok := active[pos]; !ok && !neighbourActive(active, pos) {
			continue
		}
		seen[pos] = struct{}{}
		fresh = append(fresh, pos)
	}
	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].Morton() < fresh[j].Morton()
	})
	candidates = append(candidates, fresh...)

	plan := Plan{Chunks: candidates}
	if len(candidates) > s.budget {
		plan.Chunks = candidates[:s.budget]
		s.carried = append(s.carried[:0], candidates[s.budget:]...)
		plan.Deferred = len(s.carried)
	} else {
		s.carried = s.carried[:0]
	}

	if s.metrics != nil {
		s.metrics.observe(len(plan.Chunks), plan.Deferred)
	}
	if plan.Deferred > 0 {
		s.deferredStreak++
		if s.deferredStreak == 20 {
			s.log.Warn("chunk budget exceeded for 20 consecutive ticks", "budget", s.budget, "deferred", plan.Deferred)
			s.deferredStreak = 0
		}
	} else {
		s.deferredStreak = 0
	}
	return plan
}

func neighbourActive(active map[ChunkPos]struct{}, pos ChunkPos) bool {
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if _, ok := active[ChunkPos{X: pos.X + dx, Y: pos.Y + dy}]; ok {
				return true
			}
		}
	}
	return false
}

func contains(chunks []ChunkPos, pos ChunkPos) bool {
	for _, c := range chunks {
		if c == pos {
			return true
		}
	}
	return false
}
