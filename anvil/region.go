// Package anvil reads Minecraft worlds stored in the Anvil region format.
//
// A region file carries up to 1024 chunks in a 32x32 grid and is divided
// into 4096 byte sectors. The first sector holds one four byte location
// entry per chunk, the second holds the matching write timestamps, and the
// remaining sectors hold length prefixed, compressed chunk records:
//
//	offset    size       content
//	0         4096       locations: 3 byte sector offset, 1 byte sector count
//	4096      4096       timestamps: epoch seconds, big endian
//	8192...   4096 each  chunk records: 4 byte length, 1 byte compression, body
//
// A Region keeps the whole file in memory and never mutates it, so a single
// Region may be shared between goroutines without locking.
package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"
)

// SectorSize is the allocation unit of a region file. The header occupies
// the first two sectors.
const SectorSize = 4096

// MaxChunks is the number of chunk slots in a region, a 32x32 grid.
const MaxChunks = 1024

const headerSize = 2 * SectorSize

var ErrInvalidRegion = errors.New("anvil: not a region file")
var ErrOutOfBounds = errors.New("anvil: chunk data out of bounds")
var ErrUnsupportedCompression = errors.New("anvil: unsupported compression format")

// CompressionType identifies the scheme a chunk record's body is
// compressed with.
type CompressionType byte

const (
	CompressionGzip CompressionType = 1
	CompressionZlib CompressionType = 2
)

// Region is a single Anvil region file held entirely in memory. It is
// immutable once constructed.
type Region struct {
	// Name identifies the region in errors and reports, typically the
	// path the file was read from. It is never parsed.
	Name string

	data []byte
}

// OpenRegion reads an entire region file into memory.
func OpenRegion(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegion(path, data)
}

// NewRegion wraps an in-memory region file. Ownership of data passes to
// the returned Region. A buffer that is shorter than the two header
// sectors or not a whole number of sectors cannot be a region file and is
// rejected with ErrInvalidRegion.
func NewRegion(name string, data []byte) (*Region, error) {
	if len(data) < headerSize || len(data)%SectorSize != 0 {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrInvalidRegion, name, len(data))
	}
	return &Region{Name: name, data: data}, nil
}

// Sectors returns the number of sectors in the file, header included.
func (r *Region) Sectors() int {
	return len(r.data) / SectorSize
}

// HeaderOffset returns the byte offset of a chunk's location entry within
// the region header. Chunk coordinates may be region local or absolute,
// negatives included; they reduce to the 32x32 grid with a floored
// modulus, which for a power of two is a mask.
func HeaderOffset(chunkX, chunkZ int) int {
	return 4 * ((chunkX & 31) + (chunkZ & 31)*32)
}

// ChunkLocation returns the sector offset and sector count recorded for a
// chunk. Both are zero when the chunk has never been generated.
func (r *Region) ChunkLocation(chunkX, chunkZ int) (sectorOffset uint32, sectorCount uint8) {
	entry := binary.BigEndian.Uint32(r.data[HeaderOffset(chunkX, chunkZ):])
	return entry >> 8, uint8(entry & 0xff)
}

// ChunkExists reports whether the chunk has ever been written to the
// region.
func (r *Region) ChunkExists(chunkX, chunkZ int) bool {
	return binary.BigEndian.Uint32(r.data[HeaderOffset(chunkX, chunkZ):]) != 0
}

// Timestamp returns the epoch second of the chunk's last write, from the
// second header sector. Zero for chunks never written.
func (r *Region) Timestamp(chunkX, chunkZ int) uint32 {
	return binary.BigEndian.Uint32(r.data[SectorSize+HeaderOffset(chunkX, chunkZ):])
}

// ChunkData returns the decompressed payload of a chunk record. ok is
// false with a nil error when the chunk has never been generated. Records
// that reach outside the file fail with ErrOutOfBounds before any byte is
// touched. Gzip records and records with an unknown compression byte fail
// with ErrUnsupportedCompression; only zlib bodies are inflated.
func (r *Region) ChunkData(chunkX, chunkZ int) ([]byte, bool, error) {
	sectorOffset, sectorCount := r.ChunkLocation(chunkX, chunkZ)
	if sectorOffset == 0 && sectorCount == 0 {
		return nil, false, nil
	}

	// Sector offsets go up to 2^24-1, so the byte offset needs 64 bits.
	at := int64(sectorOffset) * SectorSize
	size := int64(len(r.data))
	if at+5 > size {
		return nil, false, fmt.Errorf("%w: chunk (%d,%d) record at byte %d of %d", ErrOutOfBounds, chunkX, chunkZ, at, size)
	}

	// The record length counts the compression byte plus the body.
	length := int64(binary.BigEndian.Uint32(r.data[at:]))
	if length < 1 || at+4+length > size {
		return nil, false, fmt.Errorf("%w: chunk (%d,%d) claims %d bytes at byte %d of %d", ErrOutOfBounds, chunkX, chunkZ, length, at, size)
	}

	body := r.data[at+5 : at+4+length]
	switch scheme := CompressionType(r.data[at+4]); scheme {
	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, fmt.Errorf("anvil: inflate chunk (%d,%d): %w", chunkX, chunkZ, err)
		}
		payload, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, false, fmt.Errorf("anvil: inflate chunk (%d,%d): %w", chunkX, chunkZ, err)
		}
		return payload, true, nil
	case CompressionGzip:
		return nil, false, fmt.Errorf("%w: chunk (%d,%d) is gzip compressed", ErrUnsupportedCompression, chunkX, chunkZ)
	default:
		return nil, false, fmt.Errorf("%w: chunk (%d,%d) uses scheme %d", ErrUnsupportedCompression, chunkX, chunkZ, scheme)
	}
}
