package world

import (
	"strconv"

	"github.com/df-mc/sandfall/engine/material"
)

// CellState is the display-facing state of one occupied cell.
type CellState struct {
	Material    material.ID
	Temperature float64
	Colour      [3]uint8
}

// Snapshot returns a dense view of the inclusive rectangle passed, indexed
// [y][x] from the rectangle's minimum corner. Vacant cells are nil.
func (w *World) Snapshot(rect Rect) [][]*CellState {
	h := rect.Max.Y() - rect.Min.Y() + 1
	wd := rect.Max.X() - rect.Min.X() + 1
	if h <= 0 || wd <= 0 {
		return nil
	}
	out := make([][]*CellState, h)
	for y := range out {
		row := make([]*CellState, wd)
		for x := range row {
			p := w.At(Pos{rect.Min.X() + x, rect.Min.Y() + y})
			if p == nil {
				continue
			}
			row[x] = &CellState{
				Material:    p.mat,
				Temperature: p.temp,
				Colour:      p.Colour(w.r),
			}
		}
		out[y] = row
	}
	return out
}

// CellKey formats the sparse snapshot key of a cell position as "x,y".
func CellKey(pos Pos) string {
	return strconv.Itoa(pos.X()) + "," + strconv.Itoa(pos.Y())
}

// SparseSnapshot returns the occupied cells of the rectangle keyed by
// CellKey.
func (w *World) SparseSnapshot(rect Rect) map[string]CellState {
	out := make(map[string]CellState)
	for y := rect.Min.Y(); y <= rect.Max.Y(); y++ {
		for x := rect.Min.X(); x <= rect.Max.X(); x++ {
			pos := Pos{x, y}
			p := w.At(pos)
			if p == nil {
				continue
			}
			out[CellKey(pos)] = CellState{
				Material:    p.mat,
				Temperature: p.temp,
				Colour:      p.Colour(w.r),
			}
		}
	}
	return out
}

// Delta is one frame of a delta snapshot stream. A keyframe carries the full
// cell set in Added; other frames carry only the cells added or changed since
// the previous frame and the keys removed.
type Delta struct {
	Keyframe bool
	Added    map[string]CellState
	Removed  []string
}

// keyframeInterval is the period, in frames, of the full keyframes that
// resynchronise a consumer: every keyframeInterval'th frame is a keyframe.
const keyframeInterval = 60

// DeltaEncoder produces a stream of Deltas over a fixed rectangle of a
// world. Consumers that miss frames resynchronise on the next keyframe.
type DeltaEncoder struct {
	rect   Rect
	base   map[string]CellState
	frames int
}

// NewDeltaEncoder creates an encoder streaming the rectangle passed. The
// first frame emitted is always a keyframe.
func NewDeltaEncoder(rect Rect) *DeltaEncoder {
	return &DeltaEncoder{rect: rect}
}

// Encode captures the current cell states and returns the next frame of the
// stream.
func (e *DeltaEncoder) Encode(w *World) Delta {
	current := w.SparseSnapshot(e.rect)

	if e.base == nil || e.frames%keyframeInterval == 0 {
		e.base = current
		e.frames++
		return Delta{Keyframe: true, Added: current}
	}
	e.frames++

	d := Delta{Added: map[string]CellState{}}
	for key, state := range current {
		if prev, ok := e.base[key]; !ok || prev != state {
			d.Added[key] = state
		}
	}
	for key := range e.base {
		if _, ok := current[key]; !ok {
			d.Removed = append(d.Removed, key)
		}
	}
	e.base = current
	return d
}
