package anvil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/Tnze/go-mc/nbt"
)

// Chunks written since data version 2844 (21w43a) store the former Level
// fields at the root of the tree.
const flatChunkVersion = 2844

// Chunk is the decoded NBT tree of a single chunk. Worlds up to 1.17 wrap
// the chunk in a Level compound; newer worlds keep the same data at the
// root. Both shapes decode into this struct, and the accessor methods pick
// the populated side. Subtrees whose layout shifts between versions are
// kept as raw NBT.
type Chunk struct {
	DataVersion int32 `nbt:"DataVersion"`

	Level Level `nbt:"Level"`

	XPos          int32            `nbt:"xPos"`
	ZPos          int32            `nbt:"zPos"`
	YPos          int32            `nbt:"yPos"`
	Status        string           `nbt:"Status"`
	LastUpdate    int64            `nbt:"LastUpdate"`
	InhabitedTime int64            `nbt:"InhabitedTime"`
	Sections      []Section        `nbt:"sections"`
	BlockEntities []nbt.RawMessage `nbt:"block_entities"`
	Heightmaps    nbt.RawMessage   `nbt:"Heightmaps"`
}

// Level is the wrapper compound of chunks up to 1.17.
type Level struct {
	X int32 `nbt:"xPos"`
	Z int32 `nbt:"zPos"`

	Status           string `nbt:"Status"`
	TerrainPopulated bool   `nbt:"TerrainPopulated"`
	LastUpdate       int64  `nbt:"LastUpdate"`
	InhabitedTime    int64  `nbt:"InhabitedTime"`

	Sections  []Section `nbt:"Sections"`
	HeightMap []int32   `nbt:"HeightMap"`

	// Biomes switched from a byte array to an int array in 1.13.
	Biomes nbt.RawMessage `nbt:"Biomes"`

	Entities     []nbt.RawMessage `nbt:"Entities"`
	TileEntities []nbt.RawMessage `nbt:"TileEntities"`
}

// Section is one 16x16x16 slice of a chunk. Block storage comes in two
// generations: the flat Blocks array of pre 1.13 worlds and the
// palette indexed BlockStates of 1.13 to 1.17. Sections of 1.18 and newer
// worlds carry their blocks in a nested compound this package does not
// model, but Y and the light arrays still decode.
type Section struct {
	Y int8 `nbt:"Y"`

	Blocks []byte `nbt:"Blocks"`
	Add    []byte `nbt:"Add"`
	Data   []byte `nbt:"Data"`

	Palette     []nbt.RawMessage `nbt:"Palette"`
	BlockStates []int64          `nbt:"BlockStates"`

	BlockLight []byte `nbt:"BlockLight"`
	SkyLight   []byte `nbt:"SkyLight"`
}

var blankSection [4096]byte

// Empty reports whether the section stores no blocks: either no block
// storage at all, as in light only sections, or a pre 1.13 block array
// holding nothing but air.
func (s *Section) Empty() bool {
	if len(s.Blocks) == 0 {
		return len(s.Palette) == 0 && len(s.BlockStates) == 0
	}
	return bytes.Equal(blankSection[:], s.Blocks)
}

func (c *Chunk) flat() bool {
	return c.DataVersion >= flatChunkVersion
}

// Coords returns the chunk's world coordinates as recorded in its own
// tree.
func (c *Chunk) Coords() (x, z int) {
	if c.flat() {
		return int(c.XPos), int(c.ZPos)
	}
	return int(c.Level.X), int(c.Level.Z)
}

// SectionCount returns the number of sections the chunk stores, empty
// ones included.
func (c *Chunk) SectionCount() int {
	if c.flat() {
		return len(c.Sections)
	}
	return len(c.Level.Sections)
}

// PopulatedSections returns the chunk's sections that hold at least one
// block.
func (c *Chunk) PopulatedSections() []Section {
	sections := c.Level.Sections
	if c.flat() {
		sections = c.Sections
	}
	var populated []Section
	for _, s := range sections {
		if !s.Empty() {
			populated = append(populated, s)
		}
	}
	return populated
}

// GenerationStatus returns the world generator's progress marker for the
// chunk. Empty for worlds that predate chunk statuses.
func (c *Chunk) GenerationStatus() string {
	if c.flat() {
		return c.Status
	}
	return c.Level.Status
}

// DecodeChunk reads a single uncompressed chunk tree.
func DecodeChunk(r io.Reader) (*Chunk, error) {
	var c Chunk
	if _, err := nbt.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Chunk reads and decodes the chunk at the given coordinates. ok is false
// with a nil error when the chunk has never been generated. Failures to
// decode the tree wrap the decoder's error and name the coordinates.
func (r *Region) Chunk(chunkX, chunkZ int) (*Chunk, bool, error) {
	payload, ok, err := r.ChunkData(chunkX, chunkZ)
	if err != nil || !ok {
		return nil, false, err
	}
	c, err := DecodeChunk(bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("anvil: decode chunk (%d,%d): %w", chunkX, chunkZ, err)
	}
	return c, true, nil
}
