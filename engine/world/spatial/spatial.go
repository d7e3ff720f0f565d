// Package spatial provides a coarse spatial hash over cell positions. It is
// an accelerator for radius queries by effect kernels; the simulation is
// correct without it.
package spatial

import (
	"math"
	"sync"

	"github.com/brentp/intintmap"
)

// Cell is a world cell position tracked by the grid.
type Cell struct {
	X, Y int
}

// Grid is a spatial hash keyed by coarse cells of a fixed edge length. The
// bucket index is kept in an integer-to-integer map to avoid boxing the
// packed keys on every lookup. A Grid is safe for concurrent use so that
// parallel colour passes may update it.
type Grid struct {
	mu      sync.Mutex
	size    int
	index   *intintmap.Map
	buckets [][]Cell
	free    []int64
	count   int
}

// NewGrid creates a grid with the coarse cell edge length passed. Edge
// lengths between 16 and 32 work well for the kernels the simulation runs.
func NewGrid(size int) *Grid {
	if size <= 0 {
		size = 32
	}
	return &Grid{
		size:  size,
		index: intintmap.New(1024, 0.6),
	}
}

func (g *Grid) key(c Cell) int64 {
	cx := int64(int32(floorDiv(c.X, g.size)))
	cy := int64(int32(floorDiv(c.Y, g.size)))
	return cx<<32 | (cy & 0xffffffff)
}

func floorDiv(a, n int) int {
	q := a / n
	if a%n != 0 && (a < 0) != (n < 0) {
		q--
	}
	return q
}

// Add records a cell position. Adding the same position twice stores it
// twice; callers keep the grid in sync with the particle store.
func (g *Grid) Add(c Cell) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.add(c)
}

func (g *Grid) add(c Cell) {
	k := g.key(c)
	slot, ok := g.index.Get(k)
	if !ok {
		if n := len(g.free); n > 0 {
			slot = g.free[n-1]
			g.free = g.free[:n-1]
			g.buckets[slot] = g.buckets[slot][:0]
		} else {
			slot = int64(len(g.buckets))
			g.buckets = append(g.buckets, nil)
		}
		g.index.Put(k, slot)
	}
	g.buckets[slot] = append(g.buckets[slot], c)
	g.count++
}

// Remove drops a cell position from the grid, reporting whether it was
// present.
func (g *Grid) Remove(c Cell) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remove(c)
}

func (g *Grid) remove(c Cell) bool {
	k := g.key(c)
	slot, ok := g.index.Get(k)
	if !ok {
		return false
	}
	b := g.buckets[slot]
	for i := range b {
		if b[i] == c {
			b[i] = b[len(b)-1]
			g.buckets[slot] = b[:len(b)-1]
			g.count--
			if len(g.buckets[slot]) == 0 {
				g.index.Del(k)
				g.free = append(g.free, slot)
			}
			return true
		}
	}
	return false
}

// Move relocates a tracked cell position.
func (g *Grid) Move(from, to Cell) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.remove(from) {
		g.add(to)
	}
}

// Nearby returns all tracked positions within the radius of the centre,
// measured by Euclidean distance.
func (g *Grid) Nearby(centre Cell, radius float64) []Cell {
	if radius <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	r := int(math.Ceil(radius))
	minX, maxX := floorDiv(centre.X-r, g.size), floorDiv(centre.X+r, g.size)
	minY, maxY := floorDiv(centre.Y-r, g.size), floorDiv(centre.Y+r, g.size)

	rsq := radius * radius
	var out []Cell
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			k := int64(int32(cx))<<32 | (int64(int32(cy)) & 0xffffffff)
			slot, ok := g.index.Get(k)
			if !ok {
				continue
			}
			for _, c := range g.buckets[slot] {
				dx, dy := float64(c.X-centre.X), float64(c.Y-centre.Y)
				if dx*dx+dy*dy <= rsq {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// Len returns the number of tracked positions.
func (g *Grid) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Clear drops every tracked position.
func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.index = intintmap.New(1024, 0.6)
	g.buckets = g.buckets[:0]
	g.free = g.free[:0]
	g.count = 0
}
