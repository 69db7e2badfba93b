package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/F1rsi/Minecraft-World-Analyzer/anvil"
)

// ChunkCoord is a world absolute chunk coordinate.
type ChunkCoord struct {
	X int `json:"x" yaml:"x"`
	Z int `json:"z" yaml:"z"`
}

// RegionPos is the position of a region file in the world grid, in units
// of 32 chunks.
type RegionPos struct {
	X int `json:"x" yaml:"x"`
	Z int `json:"z" yaml:"z"`
}

// Chunk returns the world coordinate of the region local slot (x,z).
func (p RegionPos) Chunk(x, z int) ChunkCoord {
	return ChunkCoord{X: p.X*32 + x, Z: p.Z*32 + z}
}

// parseRegionName extracts the grid position from a file name of the
// r.X.Z.mca form.
func parseRegionName(name string) (RegionPos, error) {
	parts := strings.Split(filepath.Base(name), ".")
	if len(parts) != 4 || parts[0] != "r" || parts[3] != "mca" {
		return RegionPos{}, fmt.Errorf("%s is not named like a region file", name)
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil {
		return RegionPos{}, fmt.Errorf("region file %s: %w", name, err)
	}
	z, err := strconv.Atoi(parts[2])
	if err != nil {
		return RegionPos{}, fmt.Errorf("region file %s: %w", name, err)
	}
	return RegionPos{X: x, Z: z}, nil
}

// World is the merged view of every region file in a world directory.
type World struct {
	chunks  map[ChunkCoord]*anvil.Chunk
	regions []RegionSummary
}

type regionResult struct {
	chunks  map[ChunkCoord]*anvil.Chunk
	summary RegionSummary
}

// OpenWorld reads every region file under root. Files that are not
// regions, cannot be opened, or carry a name the grid position cannot be
// read from are logged and skipped; chunks that fail inside an otherwise
// readable region are collected in that region's summary.
func OpenWorld(root string) (*World, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	type openRegion struct {
		pos    RegionPos
		region *anvil.Region
	}
	var regions []openRegion
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mca") {
			continue
		}
		pos, err := parseRegionName(entry.Name())
		if err != nil {
			slog.Warn("skipping file", "name", entry.Name(), "err", err)
			continue
		}
		region, err := anvil.OpenRegion(filepath.Join(root, entry.Name()))
		if err != nil {
			slog.Warn("skipping region", "name", entry.Name(), "err", err)
			continue
		}
		slog.Debug("discovered region", "name", entry.Name(), "pos", pos)
		regions = append(regions, openRegion{pos: pos, region: region})
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("no region files in %s", root)
	}

	var wg sync.WaitGroup
	wg.Add(len(regions))
	results := make(chan regionResult, len(regions))
	for _, or := range regions {
		go func(pos RegionPos, region *anvil.Region) {
			defer wg.Done()
			chunks, summary := readRegion(pos, region)
			results <- regionResult{chunks: chunks, summary: summary}
		}(or.pos, or.region)
	}
	wg.Wait()
	close(results)

	world := &World{chunks: make(map[ChunkCoord]*anvil.Chunk)}
	for res := range results {
		for coord, chunk := range res.chunks {
			world.chunks[coord] = chunk
		}
		world.regions = append(world.regions, res.summary)
	}
	sortRegionSummaries(world.regions)

	slog.Info("world read", "regions", len(world.regions), "chunks", len(world.chunks))
	return world, nil
}

// readRegion sweeps one region and lifts its chunks to world coordinates.
// Chunks are keyed by their slot in the file; a tree that recorded other
// coordinates counts as misplaced in the summary.
func readRegion(pos RegionPos, region *anvil.Region) (map[ChunkCoord]*anvil.Chunk, RegionSummary) {
	summary := newRegionSummary(pos, region)
	chunks := make(map[ChunkCoord]*anvil.Chunk)
	for _, res := range region.LoadChunks() {
		summary.observe(region, res, pos)
		if res.Present() {
			chunks[pos.Chunk(res.X, res.Z)] = res.Chunk
		}
	}
	return chunks, summary
}
