package asm

// ConstEntry is one deduplicated byte pattern living in a ConstPool, grounded
// directly on the teacher's StaticConst (internal/asm, referenced from
// internal/asm/assembler_test.go's TestNewStaticConstPool /
// TestStaticConst_AddOffsetFinalizedCallback): identical byte patterns added
// to the same pool collapse to one entry, and callers can ask to be notified
// once the entry's final offset in the binary is known.
type ConstEntry struct {
	data []byte

	// firstUseOffset is the first-use marker passed to the AddConst call
	// that created this entry (package compiler passes its graph's node
	// count at that moment; see Compiler.cursorOffset). It does not change
	// on subsequent AddConst calls for the same pattern, and nothing in this
	// module reads it back.
	firstUseOffset uint64
	hasFirstUse    bool

	offsetInBinary uint64
	resolved       bool
	callbacks      []func(offsetInBinary uint64)

	// dispInPool is this entry's byte displacement from the start of its
	// own pool — the running sum of every distinct entry's length added
	// before it. Unlike offsetInBinary it is known immediately at AddConst
	// time (entries are only ever appended, never reordered), which is what
	// lets NewConst return a usable memory operand before the pool is
	// flushed: two identical AddConst calls dedup to the same entry and so
	// trivially report the same displacement.
	dispInPool uint64
}

// Bytes returns the deduplicated byte pattern.
func (c *ConstEntry) Bytes() []byte { return c.data }

// DispInPool returns the entry's byte displacement from the start of its
// pool, stable from the moment AddConst first creates the entry.
func (c *ConstEntry) DispInPool() uint64 { return c.dispInPool }

// AddOffsetFinalizedCallback registers fn to run once SetOffsetInBinary is
// called (i.e. once the pool has been flushed and this entry placed). If the
// offset is already known, fn runs immediately.
func (c *ConstEntry) AddOffsetFinalizedCallback(fn func(offsetInBinary uint64)) {
	if c.resolved {
		fn(c.offsetInBinary)
		return
	}
	c.callbacks = append(c.callbacks, fn)
}

// SetOffsetInBinary is called by Assembler.EmbedConstPool when the pool is
// written into a section (a function-local pool through the
// EmbedConstPool node Compiler.EndFunc appends, the global pool only when a
// caller embeds it), firing every registered callback.
func (c *ConstEntry) SetOffsetInBinary(offset uint64) {
	c.offsetInBinary = offset
	c.resolved = true
	for _, fn := range c.callbacks {
		fn(offset)
	}
}

// ConstPool deduplicates byte patterns added within one scope (a function's
// local pool, or the container's global pool).
type ConstPool struct {
	entries   []*ConstEntry
	byPattern map[string]*ConstEntry
	size      uint64
}

// NewConstPool creates an empty pool.
func NewConstPool() *ConstPool {
	return &ConstPool{byPattern: make(map[string]*ConstEntry)}
}

// AddConst returns the ConstEntry for data, creating one if this exact byte
// pattern has not been seen before in this pool, and recording
// firstUseOffset only the first time.
func (p *ConstPool) AddConst(data []byte, firstUseOffset uint64) *ConstEntry {
	key := string(data)
	if e, ok := p.byPattern[key]; ok {
		return e
	}
	e := &ConstEntry{
		data: append([]byte(nil), data...), firstUseOffset: firstUseOffset, hasFirstUse: true,
		dispInPool: p.size,
	}
	p.size += uint64(len(e.data))
	p.byPattern[key] = e
	p.entries = append(p.entries, e)
	return e
}

// Entries returns every distinct entry added so far, in insertion order.
func (p *ConstPool) Entries() []*ConstEntry { return p.entries }

// Len reports how many distinct byte patterns this pool holds.
func (p *ConstPool) Len() int { return len(p.entries) }
