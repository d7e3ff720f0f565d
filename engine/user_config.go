package engine

import (
	"fmt"
	"log/slog"

	"github.com/df-mc/sandfall/engine/world/save"
)

// UserConfig is the flat, disk-facing configuration of a sandfall host. It is
// the structure read from and written to a TOML file; Config turns it into
// the runtime Config of an Engine.
type UserConfig struct {
	World struct {
		// Name is the display name of the world, recorded in its save.
		Name string
		// Folder is the directory the world is persisted in. An empty
		// Folder disables persistence entirely.
		Folder string
		// Seed seeds the simulation's random generator.
		Seed uint64
		// Width and Height bound the world. Leaving both 0 keeps the world
		// unbounded.
		Width, Height int
	}
	Simulation struct {
		// TickRate is the number of simulation steps per second run by the
		// host loop.
		TickRate int
		// ChunkBudget caps the chunks simulated per tick.
		ChunkBudget int
		// Parallel enables the parallel chunk passes.
		Parallel bool
		// SpatialIndex enables the spatial hash accelerator.
		SpatialIndex bool
	}
	Brush struct {
		// Radius is the starting brush radius of the host, clamped to
		// [1, 20].
		Radius int
	}
}

// Config converts the user configuration to an engine Config, opening the
// world's save folder if one is set.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	conf := Config{
		Log:          log,
		Seed:         uc.World.Seed,
		Width:        uc.World.Width,
		Height:       uc.World.Height,
		ChunkBudget:  uc.Simulation.ChunkBudget,
		Parallel:     uc.Simulation.Parallel,
		SpatialIndex: uc.Simulation.SpatialIndex,
	}
	if uc.World.Folder != "" {
		db, err := save.Config{Log: log, Name: uc.World.Name, Seed: uc.World.Seed}.Open(uc.World.Folder)
		if err != nil {
			return conf, fmt.Errorf("open world folder: %w", err)
		}
		conf.Provider = db
	}
	return conf, nil
}

// DefaultConfig returns a UserConfig with sensible defaults for a CLI host.
func DefaultConfig() UserConfig {
	uc := UserConfig{}
	uc.World.Name = "World"
	uc.Simulation.TickRate = 60
	uc.Simulation.ChunkBudget = 100
	uc.Brush.Radius = 3
	return uc
}
