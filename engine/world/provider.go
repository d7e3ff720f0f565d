package world

import "github.com/df-mc/sandfall/engine/material"

// SavedParticle is the flat record a particle is persisted as: chunk-local
// coordinates plus the mutable state needed to reconstruct it.
type SavedParticle struct {
	X, Y        uint8
	Material    material.ID
	Temp        float32
	Life        float32
	HasLife     bool
	Burning     bool
	TimeInState float32
}

// Provider stores and loads chunk contents. Providers allow a World to keep
// its state across runs; worlds without a provider simply start empty.
// Implementations need not be safe for concurrent use: the World calls them
// from whichever goroutine owns it.
type Provider interface {
	// LoadChunk returns the records of the chunk at the position, with found
	// false if the provider has never stored the chunk.
	LoadChunk(pos ChunkPos) (records []SavedParticle, found bool, err error)
	// StoreChunk persists the records of the chunk at the position,
	// replacing whatever was stored before. An empty record list stores an
	// empty chunk.
	StoreChunk(pos ChunkPos, records []SavedParticle) error
	// Close flushes and releases the underlying storage.
	Close() error
}

// NopProvider is a Provider that stores nothing and loads nothing. It is the
// default for worlds that do not persist.
type NopProvider struct{}

// LoadChunk ...
func (NopProvider) LoadChunk(ChunkPos) ([]SavedParticle, bool, error) { return nil, false, nil }

// StoreChunk ...
func (NopProvider) StoreChunk(ChunkPos, []SavedParticle) error { return nil }

// Close ...
func (NopProvider) Close() error { return nil }
