// Package voxel is the block store backing the authoritative world: lazily
// generated chunk columns over a flat, deterministic terrain.
package voxel

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"voxelguard.ai/internal/sim/catalogs"
	"voxelguard.ai/internal/sim/geom"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/mathx"
)

type Gen struct {
	Seed      int64
	BoundaryR int // blocks; 0 = unbounded
	MinY      int
	Height    int
	SurfaceY  int
	// SpawnClearR keeps decorations away from the origin.
	SpawnClearR int

	Air, Bedrock, Stone, Dirt, Grass, Ice, TallGrass uint16
}

// NewGen resolves the palette ids the generator needs.
func NewGen(cats *catalogs.Catalogs, seed int64, boundaryR, surfaceY int) (Gen, error) {
	g := Gen{Seed: seed, BoundaryR: boundaryR, MinY: 0, Height: 256, SurfaceY: surfaceY, SpawnClearR: 4}
	for id, dst := range map[string]*uint16{
		"AIR": &g.Air, "BEDROCK": &g.Bedrock, "STONE": &g.Stone, "DIRT": &g.Dirt,
		"GRASS": &g.Grass, "ICE": &g.Ice, "TALL_GRASS": &g.TallGrass,
	} {
		v, ok := cats.Blocks.Index[id]
		if !ok {
			return Gen{}, fmt.Errorf("missing block id in palette: %s", id)
		}
		*dst = v
	}
	if surfaceY <= g.MinY || surfaceY >= g.MinY+g.Height-1 {
		return Gen{}, fmt.Errorf("surface_y %d outside [%d,%d)", surfaceY, g.MinY+1, g.MinY+g.Height-1)
	}
	return g, nil
}

type Store struct {
	gen    Gen
	cats   *catalogs.Catalogs
	chunks map[ChunkKey]*Chunk
}

func NewStore(gen Gen, cats *catalogs.Catalogs) *Store {
	return &Store{gen: gen, cats: cats, chunks: map[ChunkKey]*Chunk{}}
}

func (s *Store) Gen() Gen { return s.gen }

// Loaded reports whether pos lies inside the world boundary. Vertical
// overflow is loaded and reads as air.
func (s *Store) Loaded(pos geom.BlockPos) bool {
	r := s.gen.BoundaryR
	if r <= 0 {
		return true
	}
	return pos.X >= -r && pos.X <= r && pos.Z >= -r && pos.Z <= r
}

func (s *Store) GetBlock(pos geom.BlockPos) (uint16, error) {
	if !s.Loaded(pos) {
		return 0, fmt.Errorf("block %s: %w", pos, host.ErrProbeUnavailable)
	}
	ly := pos.Y - s.gen.MinY
	if ly < 0 {
		return s.gen.Bedrock, nil
	}
	if ly >= s.gen.Height {
		return s.gen.Air, nil
	}
	ch := s.getOrGenChunk(mathx.FloorDiv(pos.X, ChunkSize), mathx.FloorDiv(pos.Z, ChunkSize))
	return ch.Get(mathx.Mod(pos.X, ChunkSize), ly, mathx.Mod(pos.Z, ChunkSize)), nil
}

func (s *Store) SetBlock(pos geom.BlockPos, b uint16) error {
	if !s.Loaded(pos) {
		return fmt.Errorf("block %s: %w", pos, host.ErrProbeUnavailable)
	}
	ly := pos.Y - s.gen.MinY
	if ly < 0 || ly >= s.gen.Height {
		return fmt.Errorf("block %s: outside build height", pos)
	}
	ch := s.getOrGenChunk(mathx.FloorDiv(pos.X, ChunkSize), mathx.FloorDiv(pos.Z, ChunkSize))
	ch.Set(mathx.Mod(pos.X, ChunkSize), ly, mathx.Mod(pos.Z, ChunkSize), b)
	return nil
}

// BlockName maps a palette id back to its catalog id.
func (s *Store) BlockName(b uint16) string {
	if int(b) < len(s.cats.Blocks.Palette) {
		return s.cats.Blocks.Palette[b]
	}
	return ""
}

func (s *Store) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// Digest hashes every generated chunk in key order.
func (s *Store) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	for _, k := range s.LoadedChunkKeys() {
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(k.CX)))
		h.Write(tmp[:])
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(k.CZ)))
		h.Write(tmp[:])
		d := s.chunks[k].Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) getOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.chunks[k]; ok {
		return ch
	}
	ch := newChunk(cx, cz, s.gen.Height)
	s.generateChunk(ch)
	ch.dirty = true
	_ = ch.Digest()
	s.chunks[k] = ch
	return ch
}

func (s *Store) generateChunk(ch *Chunk) {
	g := s.gen
	surf := g.SurfaceY - g.MinY
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wz := ch.CZ*ChunkSize + z
			ch.Set(x, 0, z, g.Bedrock)
			for y := 1; y < surf; y++ {
				b := g.Stone
				if y >= surf-3 {
					b = g.Dirt
				}
				ch.Set(x, y, z, b)
			}

			top := g.Grass
			nearSpawn := mathx.AbsInt(wx) <= g.SpawnClearR && mathx.AbsInt(wz) <= g.SpawnClearR
			if !nearSpawn {
				// Frozen ponds come in 8x8 patches.
				if mathx.Hash2(g.Seed, mathx.FloorDiv(wx, 8), mathx.FloorDiv(wz, 8))%100 < 6 {
					top = g.Ice
				} else if mathx.Hash2(g.Seed^0x5eed, wx, wz)%1000 < 40 {
					ch.Set(x, surf+1, z, g.TallGrass)
				}
			}
			ch.Set(x, surf, z, top)
		}
	}
}
