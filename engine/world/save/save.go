// Package save implements a world.Provider backed by LevelDB. Each chunk is
// stored as one binary blob of particle records; a metadata record identifies
// the save and carries the simulation seed.
package save

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/df-mc/goleveldb/leveldb"
	"github.com/google/uuid"

	"github.com/df-mc/sandfall/engine/material"
	"github.com/df-mc/sandfall/engine/world"
)

// version is the on-disk format version. Every chunk blob carries it, and
// decodeChunk rejects blobs written under any other version.
const version = 1

const (
	keyMetadata = "meta"
	chunkPrefix = "c|"
)

// Metadata identifies a save and records when it was created and last
// written.
type Metadata struct {
	ID       uuid.UUID
	Name     string
	Seed     uint64
	Version  uint8
	Created  time.Time
	Modified time.Time
}

// Config holds the options of a DB.
type Config struct {
	// Log is used for storage warnings. It defaults to slog.Default().
	Log *slog.Logger
	// Name names a newly created save. Existing saves keep their name.
	Name string
	// Seed is recorded in the metadata of a newly created save.
	Seed uint64
}

// Open opens a LevelDB-backed provider in the directory passed, creating the
// database and its metadata if it does not exist yet.
func (conf Config) Open(dir string) (*DB, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Name == "" {
		conf.Name = "World"
	}
	ldb, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open save %v: %w", dir, err)
	}
	db := &DB{ldb: ldb, log: conf.Log, digests: map[world.ChunkPos]uint64{}}
	if err := db.loadMetadata(conf); err != nil {
		_ = ldb.Close()
		return nil, err
	}
	return db, nil
}

// Open opens the save at the directory passed with a default Config.
func Open(dir string) (*DB, error) {
	var conf Config
	return conf.Open(dir)
}

// DB is a world.Provider that persists chunks in a LevelDB database.
type DB struct {
	ldb  *leveldb.DB
	log  *slog.Logger
	meta Metadata

	// digests remembers the content hash of each chunk as last stored, so
	// unchanged chunks are not rewritten on every save.
	digests map[world.ChunkPos]uint64
}

// Metadata returns the metadata of the save.
func (db *DB) Metadata() Metadata {
	return db.meta
}

func (db *DB) loadMetadata(conf Config) error {
	data, err := db.ldb.Get([]byte(keyMetadata), nil)
	switch {
	case err == nil:
		return db.meta.unmarshal(data)
	case errors.Is(err, leveldb.ErrNotFound):
		db.meta = Metadata{
			ID:       uuid.New(),
			Name:     conf.Name,
			Seed:     conf.Seed,
			Version:  version,
			Created:  time.Now(),
			Modified: time.Now(),
		}
		return db.storeMetadata()
	default:
		return fmt.Errorf("load metadata: %w", err)
	}
}

func (db *DB) storeMetadata() error {
	if err := db.ldb.Put([]byte(keyMetadata), db.meta.marshal(), nil); err != nil {
		return fmt.Errorf("store metadata: %w", err)
	}
	return nil
}

func chunkKey(pos world.ChunkPos) []byte {
	key := make([]byte, len(chunkPrefix)+8)
	copy(key, chunkPrefix)
	binary.LittleEndian.PutUint32(key[len(chunkPrefix):], uint32(pos.X()))
	binary.LittleEndian.PutUint32(key[len(chunkPrefix)+4:], uint32(pos.Y()))
	return key
}

// LoadChunk reads the records of a chunk, with found false if the chunk was
// never stored.
func (db *DB) LoadChunk(pos world.ChunkPos) ([]world.SavedParticle, bool, error) {
	data, err := db.ldb.Get(chunkKey(pos), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load chunk %v: %w", pos, err)
	}
	records, err := decodeChunk(data)
	if err != nil {
		return nil, false, fmt.Errorf("load chunk %v: %w", pos, err)
	}
	db.digests[pos] = xxhash.Sum64(data)
	return records, true, nil
}

// StoreChunk writes the records of a chunk, skipping the write when the
// content matches what was stored before.
func (db *DB) StoreChunk(pos world.ChunkPos, records []world.SavedParticle) error {
	data := encodeChunk(records)
	digest := xxhash.Sum64(data)
	if prev, ok := db.digests[pos]; ok && prev == digest {
		return nil
	}
	if err := db.ldb.Put(chunkKey(pos), data, nil); err != nil {
		return fmt.Errorf("store chunk %v: %w", pos, err)
	}
	db.digests[pos] = digest
	db.meta.Modified = time.Now()
	return db.storeMetadata()
}

// Close flushes and closes the underlying database.
func (db *DB) Close() error {
	return db.ldb.Close()
}

// Chunk blobs hold a version byte, a record count and fixed-width records.
const recordSize = 1 + 1 + 1 + 4 + 4 + 1 + 1 + 4

func encodeChunk(records []world.SavedParticle) []byte {
	buf := make([]byte, 0, 5+len(records)*recordSize)
	buf = append(buf, version)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(records)))
	for _, rec := range records {
		buf = append(buf, rec.X, rec.Y, byte(rec.Material))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(rec.Temp))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(rec.Life))
		buf = append(buf, flag(rec.HasLife), flag(rec.Burning))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(rec.TimeInState))
	}
	return buf
}

func decodeChunk(data []byte) ([]world.SavedParticle, error) {
	if len(data) < 5 {
		return nil, errors.New("chunk blob truncated")
	}
	if data[0] != version {
		return nil, fmt.Errorf("unsupported chunk version %v", data[0])
	}
	n := int(binary.LittleEndian.Uint32(data[1:5]))
	body := data[5:]
	if len(body) != n*recordSize {
		return nil, fmt.Errorf("chunk blob holds %v bytes, need %v", len(body), n*recordSize)
	}
	records := make([]world.SavedParticle, 0, n)
	for i := 0; i < n; i++ {
		rec := body[i*recordSize:]
		records = append(records, world.SavedParticle{
			X:           rec[0],
			Y:           rec[1],
			Material:    material.ID(rec[2]),
			Temp:        math.Float32frombits(binary.LittleEndian.Uint32(rec[3:7])),
			Life:        math.Float32frombits(binary.LittleEndian.Uint32(rec[7:11])),
			HasLife:     rec[11] != 0,
			Burning:     rec[12] != 0,
			TimeInState: math.Float32frombits(binary.LittleEndian.Uint32(rec[13:17])),
		})
	}
	return records, nil
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Metadata blobs are length-prefixed strings and fixed-width integers.
func (m Metadata) marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(m.Version)
	buf.Write(m.ID[:])
	name := []byte(m.Name)
	var lead [4]byte
	binary.LittleEndian.PutUint32(lead[:], uint32(len(name)))
	buf.Write(lead[:])
	buf.Write(name)
	var num [8]byte
	binary.LittleEndian.PutUint64(num[:], m.Seed)
	buf.Write(num[:])
	binary.LittleEndian.PutUint64(num[:], uint64(m.Created.Unix()))
	buf.Write(num[:])
	binary.LittleEndian.PutUint64(num[:], uint64(m.Modified.Unix()))
	buf.Write(num[:])
	return buf.Bytes()
}

func (m *Metadata) unmarshal(data []byte) error {
	if len(data) < 1+16+4 {
		return errors.New("metadata truncated")
	}
	m.Version = data[0]
	copy(m.ID[:], data[1:17])
	nameLen := int(binary.LittleEndian.Uint32(data[17:21]))
	rest := data[21:]
	if len(rest) < nameLen+24 {
		return errors.New("metadata truncated")
	}
	m.Name = string(rest[:nameLen])
	rest = rest[nameLen:]
	m.Seed = binary.LittleEndian.Uint64(rest[:8])
	m.Created = time.Unix(int64(binary.LittleEndian.Uint64(rest[8:16])), 0)
	m.Modified = time.Unix(int64(binary.LittleEndian.Uint64(rest[16:24])), 0)
	return nil
}
