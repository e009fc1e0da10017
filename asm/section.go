package asm

import "github.com/gyuseokByeon/asmjit/asmerr"

// SectionID is a dense, container-scoped section identifier. Section 0 is
// always ".text".
type SectionID uint32

// SectionFlags are OR-able attributes of a Section.
type SectionFlags uint32

const (
	SectionExecutable SectionFlags = 1 << iota
	SectionWritable
	SectionReadable
)

// Section is a named, append-only byte buffer with an alignment constraint.
// Its virtual offset is only meaningful after CodeContainer.Flatten.
type Section struct {
	id        SectionID
	name      string
	flags     SectionFlags
	alignment uint32

	buf []byte

	// voffset/vsize are populated by Flatten; voffset is ^uint64(0) until then.
	voffset uint64
	vsize   uint64
}

const unsetOffset = ^uint64(0)

func newSection(id SectionID, name string, flags SectionFlags, alignment uint32) *Section {
	if alignment == 0 {
		alignment = 1
	}
	return &Section{id: id, name: name, flags: flags, alignment: alignment, voffset: unsetOffset}
}

func (s *Section) ID() SectionID        { return s.id }
func (s *Section) Name() string         { return s.name }
func (s *Section) Flags() SectionFlags  { return s.flags }
func (s *Section) Alignment() uint32    { return s.alignment }
func (s *Section) Size() uint64         { return uint64(len(s.buf)) }
func (s *Section) Bytes() []byte        { return s.buf }
func (s *Section) VirtualOffset() uint64 { return s.voffset }

// grow appends n zero bytes to the section buffer with the geometric growth
// policy from the teacher's CodeSegment.grow (internal/asm/buffer.go),
// translated here into a slice append instead of an mmap remap since section
// buffers are plain heap memory, not executable pages (the JIT memory
// executor that would mmap the final image is an out-of-scope collaborator
// per spec.md §1).
func (s *Section) grow(n int) []byte {
	start := len(s.buf)
	s.buf = append(s.buf, make([]byte, n)...)
	return s.buf[start : start+n : start+n]
}

// Append writes b to the end of the section and returns the offset it was
// written at.
func (s *Section) Append(b []byte) uint64 {
	off := uint64(len(s.buf))
	copy(s.grow(len(b)), b)
	return off
}

// PatchSigned is the exported form of patchSigned, used by emitters outside
// this package (e.g. assembler.Assembler.EmbedLabelDelta) that need to patch
// an already-written field once both ends of a reference are known.
func (s *Section) PatchSigned(off uint64, value int64, width uint8) error {
	return s.patchSigned(off, value, width)
}

// patchSigned writes value, sign-checked to fit in width bytes, little
// endian, at byte offset off. It is the primitive used both by
// CodeContainer.BindLabel's immediate in-place patch and by
// CodeContainer.RelocateToBase.
func (s *Section) patchSigned(off uint64, value int64, width uint8) error {
	if off+uint64(width) > uint64(len(s.buf)) {
		return asmerr.New(asmerr.InvalidArgument, "patch at offset %d width %d exceeds section %q size %d", off, width, s.name, len(s.buf))
	}
	if !fitsSigned(value, width) {
		return asmerr.New(asmerr.RelocationOffsetOutOfRange, "value %d does not fit in signed %d-byte field", value, width)
	}
	putLE(s.buf[off:off+uint64(width)], uint64(value), width)
	return nil
}

// patchTruncated writes value truncated (unsigned) to width bytes, little
// endian, with no range check — used for absolute-to-absolute relocations
// per spec.md §4.1.
func (s *Section) patchTruncated(off uint64, value uint64, width uint8) error {
	if off+uint64(width) > uint64(len(s.buf)) {
		return asmerr.New(asmerr.InvalidArgument, "patch at offset %d width %d exceeds section %q size %d", off, width, s.name, len(s.buf))
	}
	putLE(s.buf[off:off+uint64(width)], value, width)
	return nil
}

func fitsSigned(v int64, width uint8) bool {
	switch width {
	case 1:
		return v >= -128 && v <= 127
	case 2:
		return v >= -32768 && v <= 32767
	case 4:
		return v >= -2147483648 && v <= 2147483647
	case 8:
		return true
	default:
		return false
	}
}

func putLE(dst []byte, v uint64, width uint8) {
	for i := uint8(0); i < width; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}
