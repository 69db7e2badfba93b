package anvil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Tnze/go-mc/nbt"
	"github.com/google/go-cmp/cmp"
)

type legacySection struct {
	Y          int8   `nbt:"Y"`
	Blocks     []byte `nbt:"Blocks"`
	Data       []byte `nbt:"Data"`
	BlockLight []byte `nbt:"BlockLight"`
	SkyLight   []byte `nbt:"SkyLight"`
}

type legacyLevel struct {
	X                int32           `nbt:"xPos"`
	Z                int32           `nbt:"zPos"`
	LastUpdate       int64           `nbt:"LastUpdate"`
	InhabitedTime    int64           `nbt:"InhabitedTime"`
	TerrainPopulated int8            `nbt:"TerrainPopulated"`
	HeightMap        []int32         `nbt:"HeightMap"`
	Biomes           []byte          `nbt:"Biomes"`
	Sections         []legacySection `nbt:"Sections"`
}

type legacyTree struct {
	DataVersion int32       `nbt:"DataVersion"`
	Level       legacyLevel `nbt:"Level"`
}

type flatSection struct {
	Y          int8   `nbt:"Y"`
	BlockLight []byte `nbt:"BlockLight"`
}

type flatTree struct {
	DataVersion int32         `nbt:"DataVersion"`
	XPos        int32         `nbt:"xPos"`
	ZPos        int32         `nbt:"zPos"`
	YPos        int32         `nbt:"yPos"`
	Status      string        `nbt:"Status"`
	Sections    []flatSection `nbt:"sections"`
}

func encodeNBT(t *testing.T, tree interface{}) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := nbt.NewEncoder(&buf).Encode(tree, ""); err != nil {
		t.Fatalf("encode tree: %v", err)
	}
	return buf.Bytes()
}

// legacyChunkTree builds the NBT a 1.12 era world would store: a Level
// compound with one solid and one all air section.
func legacyChunkTree(t *testing.T, x, z int32) []byte {
	t.Helper()

	solid := legacySection{
		Y:          0,
		Blocks:     make([]byte, 4096),
		Data:       make([]byte, 2048),
		BlockLight: make([]byte, 2048),
		SkyLight:   make([]byte, 2048),
	}
	solid.Blocks[0] = 1
	air := legacySection{
		Y:          4,
		Blocks:     make([]byte, 4096),
		Data:       make([]byte, 2048),
		BlockLight: make([]byte, 2048),
		SkyLight:   make([]byte, 2048),
	}

	heightMap := make([]int32, 256)
	for i := range heightMap {
		heightMap[i] = 64
	}

	return encodeNBT(t, legacyTree{
		DataVersion: 1343,
		Level: legacyLevel{
			X:                x,
			Z:                z,
			LastUpdate:       123456,
			InhabitedTime:    789,
			TerrainPopulated: 1,
			HeightMap:        heightMap,
			Biomes:           make([]byte, 256),
			Sections:         []legacySection{solid, air},
		},
	})
}

func TestDecodeChunkLegacy(t *testing.T) {
	c, err := DecodeChunk(bytes.NewReader(legacyChunkTree(t, -3, 7)))
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}

	if x, z := c.Coords(); x != -3 || z != 7 {
		t.Fatalf("Coords() = (%d,%d), want (-3,7)", x, z)
	}
	if c.SectionCount() != 2 {
		t.Fatalf("SectionCount() = %d, want 2", c.SectionCount())
	}
	if populated := c.PopulatedSections(); len(populated) != 1 || populated[0].Y != 0 {
		t.Fatalf("PopulatedSections() = %d sections, want the single solid one at Y 0", len(populated))
	}
	if c.GenerationStatus() != "" {
		t.Fatalf("GenerationStatus() = %q, want empty for a pre status world", c.GenerationStatus())
	}
	if !c.Level.TerrainPopulated {
		t.Fatal("TerrainPopulated did not decode")
	}
	if c.Level.LastUpdate != 123456 || c.Level.InhabitedTime != 789 {
		t.Fatalf("timers = (%d,%d), want (123456,789)", c.Level.LastUpdate, c.Level.InhabitedTime)
	}

	wantHeights := make([]int32, 256)
	for i := range wantHeights {
		wantHeights[i] = 64
	}
	if diff := cmp.Diff(wantHeights, c.Level.HeightMap); diff != "" {
		t.Fatalf("HeightMap mismatch (-want +got):\n%s", diff)
	}

	var biomes []byte
	if err := c.Level.Biomes.Unmarshal(&biomes); err != nil {
		t.Fatalf("unmarshal raw Biomes: %v", err)
	}
	if len(biomes) != 256 {
		t.Fatalf("len(Biomes) = %d, want 256", len(biomes))
	}
}

func TestDecodeChunkFlat(t *testing.T) {
	payload := encodeNBT(t, flatTree{
		DataVersion: 3465,
		XPos:        12,
		ZPos:        -9,
		YPos:        -4,
		Status:      "minecraft:full",
		Sections: []flatSection{
			{Y: -4, BlockLight: make([]byte, 2048)},
			{Y: -3},
			{Y: -2},
		},
	})

	c, err := DecodeChunk(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}

	if x, z := c.Coords(); x != 12 || z != -9 {
		t.Fatalf("Coords() = (%d,%d), want (12,-9)", x, z)
	}
	if c.SectionCount() != 3 {
		t.Fatalf("SectionCount() = %d, want 3", c.SectionCount())
	}
	if c.GenerationStatus() != "minecraft:full" {
		t.Fatalf("GenerationStatus() = %q, want minecraft:full", c.GenerationStatus())
	}
	if c.YPos != -4 {
		t.Fatalf("YPos = %d, want -4", c.YPos)
	}
}

func TestDecodeChunkGarbage(t *testing.T) {
	if _, err := DecodeChunk(bytes.NewReader([]byte{0xff, 0x00, 0x13})); err == nil {
		t.Fatal("garbage decoded without error")
	}
}

func TestSectionEmpty(t *testing.T) {
	allAir := make([]byte, 4096)
	oneBlock := make([]byte, 4096)
	oneBlock[2048] = 7

	cases := []struct {
		name    string
		section Section
		want    bool
	}{
		{"all air blocks", Section{Blocks: allAir}, true},
		{"one block", Section{Blocks: oneBlock}, false},
		{"no storage", Section{BlockLight: make([]byte, 2048)}, true},
		{"palette storage", Section{BlockStates: make([]int64, 256), Palette: []nbt.RawMessage{}}, false},
	}
	for _, c := range cases {
		if got := c.section.Empty(); got != c.want {
			t.Errorf("%s: Empty() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRegionChunk(t *testing.T) {
	r := mustRegion(t, buildRegion(t,
		testChunk{x: 5, z: 9, scheme: byte(CompressionZlib), body: deflate(t, legacyChunkTree(t, 165, 297))},
		testChunk{x: 1, z: 1, scheme: byte(CompressionZlib), body: deflate(t, []byte("not NBT at all"))},
	))

	c, ok, err := r.Chunk(5, 9)
	if err != nil {
		t.Fatalf("Chunk(5,9): %v", err)
	}
	if !ok {
		t.Fatal("Chunk(5,9) reported absent")
	}
	if x, z := c.Coords(); x != 165 || z != 297 {
		t.Fatalf("Coords() = (%d,%d), want (165,297)", x, z)
	}

	if c, ok, err := r.Chunk(0, 0); c != nil || ok || err != nil {
		t.Fatalf("Chunk(0,0) = (%v,%v,%v), want (nil,false,nil)", c, ok, err)
	}

	_, ok, err = r.Chunk(1, 1)
	if err == nil {
		t.Fatal("chunk with a junk payload decoded without error")
	}
	if ok {
		t.Fatal("chunk with a junk payload reported ok")
	}
	if !strings.Contains(err.Error(), "(1,1)") {
		t.Fatalf("decode error %q does not name the chunk", err)
	}
}
