package builtin

import (
	"errors"
	"sort"
	"strconv"

	"github.com/df-mc/sandfall/engine/cmd"
	"github.com/df-mc/sandfall/engine/material"
	"github.com/df-mc/sandfall/engine/world"
)

type materialCommand struct {
	h Host
}

func (c materialCommand) Run(args []string, _ cmd.Source, o *cmd.Output) {
	if len(args) != 1 {
		o.Error("usage: /material <id|name>")
		return
	}
	if n, err := strconv.Atoi(args[0]); err == nil {
		id := material.ID(n)
		if n < 0 || n > 255 || !material.Registered(id) {
			o.Errorf("unknown material id %v", args[0])
			return
		}
		c.h.SetMaterial(id)
		o.Printf("Selected %v (%v).", material.Properties(id).Name, n)
		return
	}
	id, ok := material.ByName(args[0])
	if !ok {
		o.Errorf("unknown material %q", args[0])
		return
	}
	c.h.SetMaterial(id)
	o.Printf("Selected %v (%v).", material.Properties(id).Name, uint8(id))
}

type materialsCommand struct{}

func (materialsCommand) Run(_ []string, _ cmd.Source, o *cmd.Output) {
	for _, id := range material.All() {
		m := material.Properties(id)
		o.Printf("%3d %-10s density=%-6.2f conductivity=%.2f", uint8(id), m.Name, m.Density, m.Conductivity)
	}
}

type paintCommand struct {
	h Host
}

func (c paintCommand) Run(args []string, _ cmd.Source, o *cmd.Output) {
	if len(args) != 2 && len(args) != 3 {
		o.Error("usage: /paint <x> <y> [radius]")
		return
	}
	x, errX := strconv.Atoi(args[0])
	y, errY := strconv.Atoi(args[1])
	if errX != nil || errY != nil {
		o.Error("coordinates must be integers")
		return
	}
	radius := c.h.BrushRadius()
	if len(args) == 3 {
		r, err := strconv.Atoi(args[2])
		if err != nil || r < 0 {
			o.Error("radius must be a non-negative integer")
			return
		}
		radius = r
	}
	id := c.h.Material()
	if err := c.h.Engine().Paint(x, y, radius, id); err != nil {
		if errors.Is(err, world.ErrInvalidMaterial) {
			o.Errorf("material %v is not paintable", uint8(id))
			return
		}
		o.Errorf("paint: %v", err)
		return
	}
	o.Printf("Painted %v at (%v, %v) with radius %v.", material.Properties(id).Name, x, y, radius)
}

type brushCommand struct {
	h Host
}

func (c brushCommand) Run(args []string, _ cmd.Source, o *cmd.Output) {
	if len(args) != 1 {
		o.Printf("Brush radius is %v.", c.h.BrushRadius())
		return
	}
	switch args[0] {
	case "+":
		c.h.SetBrushRadius(c.h.BrushRadius() + 1)
	case "-":
		c.h.SetBrushRadius(c.h.BrushRadius() - 1)
	default:
		r, err := strconv.Atoi(args[0])
		if err != nil {
			o.Error("usage: /brush <+|-|radius>")
			return
		}
		c.h.SetBrushRadius(r)
	}
	o.Printf("Brush radius is now %v.", c.h.BrushRadius())
}

type stepCommand struct {
	h Host
}

func (c stepCommand) Run(args []string, _ cmd.Source, o *cmd.Output) {
	n := 1
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			o.Error("usage: /step [ticks]")
			return
		}
		n = v
	} else if len(args) > 1 {
		o.Error("usage: /step [ticks]")
		return
	}
	for range n {
		c.h.Engine().Update(1.0 / 60)
	}
	o.Printf("Advanced %v tick(s).", n)
}

type cellCommand struct {
	h Host
}

func (c cellCommand) Run(args []string, _ cmd.Source, o *cmd.Output) {
	if len(args) != 2 {
		o.Error("usage: /cell <x> <y>")
		return
	}
	x, errX := strconv.Atoi(args[0])
	y, errY := strconv.Atoi(args[1])
	if errX != nil || errY != nil {
		o.Error("coordinates must be integers")
		return
	}
	id, temp, life, burning, ok := c.h.Engine().Cell(x, y)
	if !ok {
		o.Printf("(%v, %v) is empty.", x, y)
		return
	}
	msg := material.Properties(id).Name + " at " + strconv.FormatFloat(temp, 'f', 1, 64) + "°"
	if life > 0 {
		msg += ", " + strconv.FormatFloat(life, 'f', 1, 64) + "s left"
	}
	if burning {
		msg += ", burning"
	}
	o.Printf("(%v, %v): %v", x, y, msg)
}

type clearCommand struct {
	h Host
}

func (c clearCommand) Run(_ []string, _ cmd.Source, o *cmd.Output) {
	c.h.Engine().Clear()
	o.Print("World cleared.")
}

type statusCommand struct {
	h Host
}

func (c statusCommand) Run(_ []string, _ cmd.Source, o *cmd.Output) {
	stats := c.h.Engine().Stats()
	o.Printf("Ticks: %v | Particles: %v | Chunks: %v", stats.Ticks, stats.Particles, stats.Chunks)
	o.Printf("Active chunks: %v | Deferred: %v (total %v)", stats.ActiveChunks, stats.DeferredChunks, stats.TotalDeferred)
	o.Printf("Brush: %v (%v), radius %v", material.Properties(c.h.Material()).Name, uint8(c.h.Material()), c.h.BrushRadius())
}

type helpCommand struct{}

func (helpCommand) Run(_ []string, _ cmd.Source, o *cmd.Output) {
	commands := cmd.Commands()
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands[name]
		o.Printf("%-12s %v", c.Usage(), c.Description())
	}
}

type stopCommand struct {
	h Host
}

func (c stopCommand) Run(_ []string, _ cmd.Source, o *cmd.Output) {
	o.Print("Stopping.")
	c.h.Stop()
}
