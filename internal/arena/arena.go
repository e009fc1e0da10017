// Package arena implements two container-scoped allocation primitives.
//
// Vector[T] is the dense, append-only, integer-handle-addressed table that
// backs CodeContainer's label table, link table, and package compiler's
// virtual-register table — the "arena + opaque index handles" discipline
// spec.md §9 requires for the label/link/relocation cycle: no entry is ever
// freed individually or referenced by pointer, only by the uint32 Append
// returned.
//
// Arena is a chunked byte bump allocator with no equivalent free-standing
// concept in Go's GC'd memory model; its one real job in this module is
// scratch space handed to a builder.Pass for the lifetime of a single pass
// (see builder.Builder.RunPass), discarded wholesale when the pass returns
// rather than freed piece by piece.
//
// The growth policy mirrors the teacher's CodeSegment.grow in
// internal/asm/buffer.go: double the chunk size until it fits the request.
package arena

import "github.com/gyuseokByeon/asmjit/asmerr"

const initialChunkSize = 4096

// Arena is a chunked bump allocator. It never moves memory it has already
// handed out (each chunk is stable for its lifetime), so pointers it returns
// remain valid until Reset.
type Arena struct {
	chunks   [][]byte
	chunkCap int
	cur      []byte // remaining space in the active chunk
}

// New creates an Arena whose first chunk is initialChunkSize bytes.
func New() *Arena {
	a := &Arena{chunkCap: initialChunkSize}
	a.newChunk(initialChunkSize)
	return a
}

func (a *Arena) newChunk(size int) {
	chunk := make([]byte, size)
	a.chunks = append(a.chunks, chunk)
	a.cur = chunk
}

// Alloc reserves n bytes and returns them zeroed. It never returns an error
// in practice (Go's allocator panics on true OOM, same as the teacher's
// mmap-backed grow does for a JIT code segment) but returns one for
// interface symmetry with every other fallible operation in this module.
func (a *Arena) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, asmerr.New(asmerr.InvalidArgument, "negative arena allocation size %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	if len(a.cur) < n {
		size := a.chunkCap
		for size < n {
			size *= 2
		}
		a.chunkCap = size * 2
		a.newChunk(size)
	}
	b := a.cur[:n:n]
	a.cur = a.cur[n:]
	return b, nil
}

// Reset releases every chunk but the first, and rewinds the first chunk back
// to empty ("collapse arena to initial chunk").
func (a *Arena) Reset() {
	if len(a.chunks) == 0 {
		a.chunkCap = initialChunkSize
		a.newChunk(initialChunkSize)
		return
	}
	first := a.chunks[0]
	a.chunks = a.chunks[:1]
	a.chunkCap = initialChunkSize
	a.cur = first[:cap(first)]
}

// Bytes reports how many bytes of the live chunks are used up: everything
// handed out by Alloc plus the unused tail of any earlier chunk that was
// left behind when a new chunk was started (used only for diagnostics/tests).
func (a *Arena) Bytes() int {
	total := 0
	for _, c := range a.chunks {
		total += len(c)
	}
	return total - len(a.cur)
}
