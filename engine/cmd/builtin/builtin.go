// Package builtin registers the standard host commands: selecting the paint
// material, painting, stepping the simulation, clearing the world and
// inspecting its state.
package builtin

import (
	"github.com/df-mc/sandfall/engine"
	"github.com/df-mc/sandfall/engine/cmd"
	"github.com/df-mc/sandfall/engine/material"
)

// Host is the surface the builtin commands drive: an engine plus the paint
// state and lifecycle of the process hosting it.
type Host interface {
	// Engine returns the engine commands act on.
	Engine() *engine.Engine
	// Material and SetMaterial access the currently selected paint material.
	Material() material.ID
	SetMaterial(id material.ID)
	// BrushRadius and SetBrushRadius access the brush radius. SetBrushRadius
	// clamps to [1, 20].
	BrushRadius() int
	SetBrushRadius(radius int)
	// Stop makes the host exit once the current command finishes.
	Stop()
}

// RegisterAll registers every builtin command against the host passed.
func RegisterAll(h Host) {
	cmd.Register(cmd.New("material", "Selects the material painted by /paint.", "/material <id|name>", materialCommand{h: h}))
	cmd.Register(cmd.New("materials", "Lists all materials and their codes.", "/materials", materialsCommand{}))
	cmd.Register(cmd.New("paint", "Paints a disk of the selected material.", "/paint <x> <y> [radius]", paintCommand{h: h}))
	cmd.Register(cmd.New("brush", "Adjusts the brush radius.", "/brush <+|-|radius>", brushCommand{h: h}))
	cmd.Register(cmd.New("step", "Advances the simulation by a number of ticks.", "/step [ticks]", stepCommand{h: h}))
	cmd.Register(cmd.New("cell", "Inspects a single cell.", "/cell <x> <y>", cellCommand{h: h}))
	cmd.Register(cmd.New("clear", "Removes every particle from the world.", "/clear", clearCommand{h: h}))
	cmd.Register(cmd.New("status", "Displays engine statistics.", "/status", statusCommand{h: h}))
	cmd.Register(cmd.New("help", "Lists the available commands.", "/help", helpCommand{}))
	cmd.Register(cmd.New("stop", "Exits the host.", "/stop", stopCommand{h: h}))
}
