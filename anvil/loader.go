package anvil

// ChunkResult is one slot of a full region sweep.
type ChunkResult struct {
	// X and Z are region local coordinates in [0,31].
	X, Z int

	// Chunk is the decoded tree, nil when the slot is ungenerated or
	// could not be read.
	Chunk *Chunk

	// Err is the failure of this slot alone.
	Err error
}

// Present reports whether the slot holds a decoded chunk.
func (res ChunkResult) Present() bool {
	return res.Chunk != nil
}

// Absent reports whether the slot was never generated. Slots that exist
// but failed to read are neither present nor absent.
func (res ChunkResult) Absent() bool {
	return res.Chunk == nil && res.Err == nil
}

// LoadChunks decodes every chunk slot of the region. The result always
// has MaxChunks entries in x major order, so entry i describes the slot
// (i/32, i%32). Ungenerated slots appear with both Chunk and Err nil. A
// slot that fails to read or decode carries the failure in its Err and
// does not stop the sweep; callers that want the lot to fail together can
// check the Errs afterwards.
func (r *Region) LoadChunks() []ChunkResult {
	results := make([]ChunkResult, 0, MaxChunks)
	for x := 0; x < 32; x++ {
		for z := 0; z < 32; z++ {
			chunk, _, err := r.Chunk(x, z)
			results = append(results, ChunkResult{X: x, Z: z, Chunk: chunk, Err: err})
		}
	}
	return results
}
