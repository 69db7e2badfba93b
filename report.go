package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/F1rsi/Minecraft-World-Analyzer/anvil"
)

// RegionSummary describes what one sweep found in a single region file.
type RegionSummary struct {
	Name string    `json:"name" yaml:"name"`
	Pos  RegionPos `json:"pos" yaml:"pos"`

	Sectors     int `json:"sectors" yaml:"sectors"`
	SectorsUsed int `json:"sectors_used" yaml:"sectors_used"`

	Present   int `json:"present" yaml:"present"`
	Failed    int `json:"failed" yaml:"failed"`
	Misplaced int `json:"misplaced" yaml:"misplaced"`

	OldestWrite uint32 `json:"oldest_write" yaml:"oldest_write"`
	NewestWrite uint32 `json:"newest_write" yaml:"newest_write"`

	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	occupied *bitset.BitSet
}

func newRegionSummary(pos RegionPos, region *anvil.Region) RegionSummary {
	return RegionSummary{
		Name:     region.Name,
		Pos:      pos,
		Sectors:  region.Sectors(),
		occupied: bitset.New(anvil.MaxChunks),
	}
}

// observe folds one sweep slot into the summary. Slots that exist but
// could not be read still count as occupied sectors; their failures are
// kept verbatim.
func (s *RegionSummary) observe(region *anvil.Region, res anvil.ChunkResult, pos RegionPos) {
	if res.Absent() {
		return
	}
	s.occupied.Set(uint(res.X*32 + res.Z))
	_, sectors := region.ChunkLocation(res.X, res.Z)
	s.SectorsUsed += int(sectors)

	if res.Err != nil {
		s.Failed++
		s.Errors = append(s.Errors, res.Err.Error())
		return
	}
	s.Present++

	if ts := region.Timestamp(res.X, res.Z); ts != 0 {
		if s.OldestWrite == 0 || ts < s.OldestWrite {
			s.OldestWrite = ts
		}
		if ts > s.NewestWrite {
			s.NewestWrite = ts
		}
	}

	if x, z := res.Chunk.Coords(); (ChunkCoord{X: x, Z: z}) != pos.Chunk(res.X, res.Z) {
		s.Misplaced++
	}
}

// Absent returns the number of slots never generated.
func (s *RegionSummary) Absent() int {
	return anvil.MaxChunks - s.Present - s.Failed
}

// Grid renders the region's 32x32 occupancy, one row per z, with '#' for
// stored slots and '.' for ungenerated ones.
func (s *RegionSummary) Grid() []string {
	rows := make([]string, 32)
	for z := 0; z < 32; z++ {
		row := make([]byte, 32)
		for x := 0; x < 32; x++ {
			if s.occupied.Test(uint(x*32 + z)) {
				row[x] = '#'
			} else {
				row[x] = '.'
			}
		}
		rows[z] = string(row)
	}
	return rows
}

func (s *RegionSummary) writeText(out io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "region %s (%d,%d)\n", s.Name, s.Pos.X, s.Pos.Z)
	fmt.Fprintf(&b, "  chunks: %d present, %d failed, %d absent\n", s.Present, s.Failed, s.Absent())
	if s.Misplaced > 0 {
		fmt.Fprintf(&b, "  misplaced: %d\n", s.Misplaced)
	}
	fmt.Fprintf(&b, "  sectors: %d used of %d in file\n", s.SectorsUsed, s.Sectors)
	fmt.Fprintf(&b, "  writes: %s to %s\n", formatWrite(s.OldestWrite), formatWrite(s.NewestWrite))
	for _, msg := range s.Errors {
		fmt.Fprintf(&b, "  error: %s\n", msg)
	}
	_, err := io.WriteString(out, b.String())
	return err
}

// writeGrid prints the occupancy grid below the textual summary.
func (s *RegionSummary) writeGrid(out io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "  occupancy (%d of %d slots):\n", s.occupied.Count(), anvil.MaxChunks)
	for _, row := range s.Grid() {
		fmt.Fprintf(&b, "    %s\n", row)
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func formatWrite(ts uint32) string {
	if ts == 0 {
		return "never"
	}
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05")
}

func sortRegionSummaries(regions []RegionSummary) {
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Pos.X != regions[j].Pos.X {
			return regions[i].Pos.X < regions[j].Pos.X
		}
		return regions[i].Pos.Z < regions[j].Pos.Z
	})
}

// WorldSummary is the rollup of a whole world directory.
type WorldSummary struct {
	Regions []RegionSummary `json:"regions" yaml:"regions"`

	Chunks    int `json:"chunks" yaml:"chunks"`
	Failed    int `json:"failed" yaml:"failed"`
	Misplaced int `json:"misplaced" yaml:"misplaced"`

	MinChunk ChunkCoord `json:"min_chunk" yaml:"min_chunk"`
	MaxChunk ChunkCoord `json:"max_chunk" yaml:"max_chunk"`
	Width    int        `json:"width" yaml:"width"`
	Depth    int        `json:"depth" yaml:"depth"`

	PopulatedSections int `json:"populated_sections" yaml:"populated_sections"`

	DataVersions map[int32]int  `json:"data_versions" yaml:"data_versions"`
	Statuses     map[string]int `json:"statuses" yaml:"statuses"`
}

// Summarize rolls the per region summaries and every decoded chunk up
// into one report.
func (w *World) Summarize() *WorldSummary {
	s := &WorldSummary{
		Regions:      w.regions,
		Chunks:       len(w.chunks),
		DataVersions: make(map[int32]int),
		Statuses:     make(map[string]int),
	}
	for _, reg := range w.regions {
		s.Failed += reg.Failed
		s.Misplaced += reg.Misplaced
	}

	first := true
	for coord, chunk := range w.chunks {
		if first {
			s.MinChunk, s.MaxChunk = coord, coord
			first = false
		} else {
			if coord.X < s.MinChunk.X {
				s.MinChunk.X = coord.X
			}
			if coord.Z < s.MinChunk.Z {
				s.MinChunk.Z = coord.Z
			}
			if coord.X > s.MaxChunk.X {
				s.MaxChunk.X = coord.X
			}
			if coord.Z > s.MaxChunk.Z {
				s.MaxChunk.Z = coord.Z
			}
		}

		s.DataVersions[chunk.DataVersion]++
		status := chunk.GenerationStatus()
		if status == "" {
			status = "none"
		}
		s.Statuses[status]++
		s.PopulatedSections += len(chunk.PopulatedSections())
	}
	if s.Chunks > 0 {
		s.Width = s.MaxChunk.X - s.MinChunk.X + 1
		s.Depth = s.MaxChunk.Z - s.MinChunk.Z + 1
	}
	return s
}

func (s *WorldSummary) writeText(out io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "world: %d regions, %d chunks", len(s.Regions), s.Chunks)
	if s.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", s.Failed)
	}
	if s.Misplaced > 0 {
		fmt.Fprintf(&b, ", %d misplaced", s.Misplaced)
	}
	b.WriteString("\n")
	if s.Chunks > 0 {
		fmt.Fprintf(&b, "bounds: (%d,%d) to (%d,%d), %dx%d chunks\n",
			s.MinChunk.X, s.MinChunk.Z, s.MaxChunk.X, s.MaxChunk.Z, s.Width, s.Depth)
	}
	fmt.Fprintf(&b, "populated sections: %d\n", s.PopulatedSections)

	versions := make([]int32, 0, len(s.DataVersions))
	for v := range s.DataVersions {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	b.WriteString("data versions:\n")
	for _, v := range versions {
		fmt.Fprintf(&b, "  %d: %d\n", v, s.DataVersions[v])
	}

	statuses := make([]string, 0, len(s.Statuses))
	for st := range s.Statuses {
		statuses = append(statuses, st)
	}
	sort.Strings(statuses)
	b.WriteString("statuses:\n")
	for _, st := range statuses {
		fmt.Fprintf(&b, "  %s: %d\n", st, s.Statuses[st])
	}

	if _, err := io.WriteString(out, b.String()); err != nil {
		return err
	}
	for i := range s.Regions {
		if _, err := io.WriteString(out, "\n"); err != nil {
			return err
		}
		if err := s.Regions[i].writeText(out); err != nil {
			return err
		}
	}
	return nil
}

// renderAs writes v in the requested format. The text form is supplied
// by the caller, the structured forms come from v's field tags.
func renderAs(format string, out io.Writer, v interface{}, text func(io.Writer) error) error {
	switch format {
	case "text":
		return text(out)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// writeOutput runs render against stdout or the named file. A destination
// ending in .zst is compressed on the way out.
func writeOutput(output string, render func(io.Writer) error) error {
	if output == "" {
		return render(os.Stdout)
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}

	var out io.Writer = f
	var zw *zstd.Encoder
	if strings.HasSuffix(output, ".zst") {
		if zw, err = zstd.NewWriter(f); err != nil {
			f.Close()
			return err
		}
		out = zw
	}

	err = render(out)
	if zw != nil {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
