// Package rigid implements the hand-off between the cell grid and an
// off-lattice rigid-body collaborator. Connected regions of rigid-solid
// materials are extracted into bodies as plain value lists; bodies are later
// rasterised back onto the lattice. The package deliberately stops short of a
// full physics solver: integration here is a minimal default that hosts may
// replace.
package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df-mc/sandfall/engine/material"
)

// Cell is one extracted cell of a rigid body: a world position, its material
// and its temperature at extraction time.
type Cell struct {
	X, Y     int
	Material material.ID
	Temp     float64
}

// Source is the grid view a region scan reads from.
type Source interface {
	// RigidAt returns the cell at the world position if it holds a
	// rigid-solid material.
	RigidAt(x, y int) (Cell, bool)
}

// Regions flood-fills Moore-connected regions of rigid-solid cells within the
// inclusive rectangle passed and returns those of at least minSize cells.
// Regions touching the rectangle border may extend beyond it; the scan
// follows them wherever they lead.
func Regions(src Source, minX, minY, maxX, maxY, minSize int) [][]Cell {
	visited := make(map[[2]int]struct{})
	var regions [][]Cell

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if _, ok := visited[[2]int{x, y}]; ok {
				continue
			}
			start, ok := src.RigidAt(x, y)
			if !ok {
				visited[[2]int{x, y}] = struct{}{}
				continue
			}
			region := flood(src, visited, start)
			if len(region) >= minSize {
				regions = append(regions, region)
			}
		}
	}
	return regions
}

func flood(src Source, visited map[[2]int]struct{}, start Cell) []Cell {
	stack := []Cell{start}
	visited[[2]int{start.X, start.Y}] = struct{}{}
	var region []Cell

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		region = append(region, c)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				pos := [2]int{c.X + dx, c.Y + dy}
				if _, ok := visited[pos]; ok {
					continue
				}
				n, ok := src.RigidAt(pos[0], pos[1])
				if !ok {
					continue
				}
				visited[pos] = struct{}{}
				stack = append(stack, n)
			}
		}
	}
	return region
}

// Body is a rigid body extracted from the grid. Cell offsets are stored
// relative to the body's centre of mass; the transform maps them back to
// world space.
type Body struct {
	offsets []mgl64.Vec2
	cells   []Cell

	pos    mgl64.Vec2
	vel    mgl64.Vec2
	angle  float64
	angVel float64
}

// NewBody builds a body from the extracted cells passed. The body's position
// starts at the centre of mass of the cells, so rasterising immediately
// reproduces the extracted region.
func NewBody(cells []Cell) *Body {
	b := &Body{cells: append([]Cell(nil), cells...)}
	var cx, cy float64
	for _, c := range cells {
		cx += float64(c.X)
		cy += float64(c.Y)
	}
	n := float64(len(cells))
	b.pos = mgl64.Vec2{cx / n, cy / n}
	b.offsets = make([]mgl64.Vec2, len(cells))
	for i, c := range cells {
		b.offsets[i] = mgl64.Vec2{float64(c.X) - b.pos.X(), float64(c.Y) - b.pos.Y()}
	}
	return b
}

// Size returns the number of cells making up the body.
func (b *Body) Size() int {
	return len(b.cells)
}

// Position returns the world-space centre of mass of the body.
func (b *Body) Position() mgl64.Vec2 {
	return b.pos
}

// SetVelocity sets the linear velocity of the body in cells per second.
func (b *Body) SetVelocity(v mgl64.Vec2) {
	b.vel = v
}

// SetAngularVelocity sets the angular velocity in radians per second.
func (b *Body) SetAngularVelocity(w float64) {
	b.angVel = w
}

// Step advances the body by dt seconds under lattice gravity.
func (b *Body) Step(dt float64) {
	const gravity = 9.81
	b.vel = b.vel.Add(mgl64.Vec2{0, gravity * dt})
	b.pos = b.pos.Add(b.vel.Mul(dt))
	b.angle += b.angVel * dt
}

// Cells rasterises the body back onto the lattice: each cell offset is
// rotated and translated by the current transform and rounded to the nearest
// cell. Two offsets may round to the same cell after rotation; the later cell
// wins, matching the verbatim-install contract of the write-back.
func (b *Body) Cells() []Cell {
	rot := mgl64.Rotate2D(b.angle)
	out := make([]Cell, len(b.cells))
	for i, off := range b.offsets {
		p := rot.Mul2x1(off).Add(b.pos)
		c := b.cells[i]
		c.X = int(math.Round(p.X()))
		c.Y = int(math.Round(p.Y()))
		out[i] = c
	}
	return out
}
