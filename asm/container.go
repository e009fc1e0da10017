// Package asm implements the architecture-independent code-generation
// substrate: CodeContainer (sections, labels, relocations), the
// label/relocation resolution algorithm, and a small constant-pool
// supplement. It is deliberately free of any instruction-encoding or
// calling-convention knowledge; those are collaborator interfaces consumed
// by the assembler, builder, and compiler packages.
package asm

import (
	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asmerr"
	"github.com/gyuseokByeon/asmjit/internal/arena"
)

// CodeContainer owns every piece of state a single code-generation session
// produces: sections, the label table, the pending-link table, the
// relocation table, and the string-interning pool backing label/section
// names. The label/link/relocation graph is cyclic (a link can name a
// relocation, a relocation can name an expression that names labels back);
// per spec.md §9 it is owned by dense, append-only tables here and
// addressed by the opaque handles LabelID/LabelLinkID/RelocID, never by
// struct pointers.
//
// A CodeContainer is not safe for concurrent use; spec.md §5 scopes
// mutation to "one emitter, serialized by the caller" and this type does no
// internal locking.
type CodeContainer struct {
	archDesc arch.Descriptor

	sections      []*Section
	sectionByName map[string]SectionID

	labels     arena.Vector[LabelEntry]
	namedLabel map[labelKey]LabelID

	links  arena.Vector[LabelLink]
	relocs []RelocEntry

	baseAddr    *uint64
	hasBaseAddr bool

	globalConsts *ConstPool

	stringPool map[string]string

	assembler any
	builders  map[any]struct{}

	errHandler asmerr.Handler
}

// SetErrorHandler installs the container-level fallback error handler
// consulted by emitter.Base.ReportError when an emitter has none of its own.
func (c *CodeContainer) SetErrorHandler(h asmerr.Handler) { c.errHandler = h }

// ErrorHandler returns the container-level error handler, or nil.
func (c *CodeContainer) ErrorHandler() asmerr.Handler { return c.errHandler }

// NewCodeContainer constructs and initializes a CodeContainer for the given
// architecture, failing with asmerr.InvalidArgument ("invalid-arch") if id
// is not recognized. base is optional; pass nil to leave it absent, in
// which case absolute relocations resolve relative to 0 per spec.md §3.
func NewCodeContainer(id arch.ID, sub arch.SubID, base *uint64) (*CodeContainer, error) {
	desc, ok := arch.Describe(id, sub)
	if !ok {
		return nil, asmerr.New(asmerr.InvalidArgument, "invalid-arch: unrecognized architecture id %d", id)
	}
	c := &CodeContainer{archDesc: desc}
	c.resetState()
	if base != nil {
		b := *base
		c.baseAddr = &b
		c.hasBaseAddr = true
	}
	return c, nil
}

// Arch returns the architecture descriptor this container was built with.
func (c *CodeContainer) Arch() arch.Descriptor { return c.archDesc }

// BaseAddr returns the configured base address and whether one was ever
// supplied (spec.md's "absent until supplied" ⊥ state).
func (c *CodeContainer) BaseAddr() (uint64, bool) {
	if !c.hasBaseAddr {
		return 0, false
	}
	return *c.baseAddr, true
}

func (c *CodeContainer) resetState() {
	c.sections = nil
	c.sectionByName = make(map[string]SectionID)
	c.labels.Reset()
	c.namedLabel = make(map[labelKey]LabelID)
	c.links.Reset()
	c.relocs = nil
	c.baseAddr = nil
	c.hasBaseAddr = false
	c.globalConsts = NewConstPool()
	c.stringPool = make(map[string]string)
	c.assembler = nil
	c.builders = make(map[any]struct{})
	// Section 0 (".text") is always present; per spec.md §9 "the .text
	// section assumed at index 0 is implicit" — Reset re-creates it with
	// its default name/flags/alignment, matching the chosen resolution of
	// that open question (see DESIGN.md).
	c.sections = append(c.sections, newSection(0, ".text", SectionExecutable|SectionReadable, 16))
	c.sectionByName[".text"] = 0
}

// Reset releases every section and label, detaches every emitter, and
// (when freeArena is true) also drops the label and link tables' backing
// arrays instead of keeping them around for reuse — for a container that
// isn't about to be refilled to a similar size. The architecture descriptor
// survives a reset; the container is immediately reusable afterward either
// way.
func (c *CodeContainer) Reset(freeArena bool) {
	c.resetState()
	if freeArena {
		c.labels.Free()
		c.links.Free()
	}
}

// GlobalConstPool returns the container-wide constant pool (SPEC_FULL.md
// §4's supplemented StaticConstPool feature). It is written into a section
// only when a caller embeds it (Assembler.EmbedConstPool, or a Builder
// EmbedConstPool node); neither Flatten nor Builder/Compiler Finalize
// embeds it.
func (c *CodeContainer) GlobalConstPool() *ConstPool { return c.globalConsts }

func (c *CodeContainer) intern(s string) string {
	if v, ok := c.stringPool[s]; ok {
		return v
	}
	c.stringPool[s] = s
	return s
}

// --- Emitter attach/detach -------------------------------------------------

// AttachAssembler registers handle as the container's single active
// Assembler. It fails with asmerr.AlreadyAttached if another Assembler is
// already attached.
func (c *CodeContainer) AttachAssembler(handle any) error {
	if c.assembler != nil {
		return asmerr.New(asmerr.AlreadyAttached, "a different Assembler is already attached to this container")
	}
	c.assembler = handle
	return nil
}

// DetachAssembler unregisters handle, failing with asmerr.InvalidArgument if
// it is not the currently attached Assembler.
func (c *CodeContainer) DetachAssembler(handle any) error {
	if c.assembler == nil || c.assembler != handle {
		return asmerr.New(asmerr.InvalidArgument, "assembler is not attached to this container")
	}
	c.assembler = nil
	return nil
}

// AttachBuilder registers handle as one of (potentially many) attached
// Builder-family emitters.
func (c *CodeContainer) AttachBuilder(handle any) error {
	if _, ok := c.builders[handle]; ok {
		return asmerr.New(asmerr.AlreadyAttached, "emitter already attached to this container")
	}
	c.builders[handle] = struct{}{}
	return nil
}

// DetachBuilder unregisters handle.
func (c *CodeContainer) DetachBuilder(handle any) error {
	if _, ok := c.builders[handle]; !ok {
		return asmerr.New(asmerr.InvalidArgument, "builder is not attached to this container")
	}
	delete(c.builders, handle)
	return nil
}

// --- Sections ---------------------------------------------------------------

// NewSection creates and appends a new Section, failing with
// asmerr.LabelNameCollision-adjacent InvalidArgument if name is already in
// use.
func (c *CodeContainer) NewSection(name string, flags SectionFlags, alignment uint32) (*Section, error) {
	if _, exists := c.sectionByName[name]; exists {
		return nil, asmerr.New(asmerr.InvalidArgument, "section %q already exists", name)
	}
	id := SectionID(len(c.sections))
	s := newSection(id, c.intern(name), flags, alignment)
	c.sections = append(c.sections, s)
	c.sectionByName[name] = id
	return s, nil
}

// SectionByName looks up a section by its exact name.
func (c *CodeContainer) SectionByName(name string) (*Section, bool) {
	id, ok := c.sectionByName[name]
	if !ok {
		return nil, false
	}
	return c.sections[id], true
}

// SectionByID returns the section with the given dense id.
func (c *CodeContainer) SectionByID(id SectionID) (*Section, bool) {
	return c.sectionByID(id)
}

func (c *CodeContainer) sectionByID(id SectionID) (*Section, bool) {
	if int(id) >= len(c.sections) {
		return nil, false
	}
	return c.sections[id], true
}

// Sections returns every section in container order (section 0 is always
// ".text").
func (c *CodeContainer) Sections() []*Section { return c.sections }

// --- Labels -----------------------------------------------------------------

// NewLabel creates an anonymous, unbound label.
func (c *CodeContainer) NewLabel() LabelID {
	id := LabelID(c.labels.Len())
	c.labels.Append(LabelEntry{id: id, typ: LabelAnonymous, section: unboundSection, links: noLabelLink})
	return id
}

// NewNamedLabel creates a named label of the given type. Local labels
// require parent to name the enclosing global/function label; passing a
// non-nil parent for any other type is rejected. A duplicate (parent, name)
// pair fails with asmerr.LabelNameCollision.
func (c *CodeContainer) NewNamedLabel(name string, typ LabelType, parent *LabelID) (LabelID, error) {
	var parentID LabelID
	if typ == LabelLocal {
		if parent == nil {
			return 0, asmerr.New(asmerr.InvalidArgument, "local label %q requires a parent", name)
		}
		parentID = *parent
	} else if parent != nil {
		return 0, asmerr.New(asmerr.InvalidArgument, "only local labels may specify a parent")
	}
	key := labelKey{parent: parentID, name: name}
	if _, exists := c.namedLabel[key]; exists {
		return 0, asmerr.New(asmerr.LabelNameCollision, "label %q already exists in this scope", name)
	}
	interned := c.intern(name)
	id := LabelID(c.labels.Len())
	c.labels.Append(LabelEntry{
		id: id, typ: typ, parent: parentID, hasName: true, name: interned, section: unboundSection,
		links: noLabelLink,
	})
	c.namedLabel[key] = id
	return id, nil
}

// LabelEntry returns a read-only view of a label's current state.
func (c *CodeContainer) LabelEntry(id LabelID) (*LabelEntry, error) {
	e, ok := c.labels.At(uint32(id))
	if !ok {
		return nil, asmerr.New(asmerr.InvalidLabel, "no such label %d", id)
	}
	return e, nil
}

// LabelByName resolves a named label, optionally scoped to parent for local
// labels.
func (c *CodeContainer) LabelByName(name string, parent *LabelID) (LabelID, bool) {
	var parentID LabelID
	if parent != nil {
		parentID = *parent
	}
	id, ok := c.namedLabel[labelKey{parent: parentID, name: name}]
	return id, ok
}

// LabelCount returns the number of labels ever created in this container's
// current lifetime (the denseness invariant: every id below this is live).
func (c *CodeContainer) LabelCount() int { return c.labels.Len() }

// BindLabel fixes label id's location to (sectionID, offset), then walks and
// frees its pending LabelLink list per spec.md §4.6: links cooperating with
// a RelocEntry have their target metadata transferred for later resolution
// at RelocateToBase; links without one are patched in place immediately
// (they must share id's section — same-section jumps only).
func (c *CodeContainer) BindLabel(id LabelID, sectionID SectionID, offset uint64) error {
	entry, ok := c.labels.At(uint32(id))
	if !ok {
		return asmerr.New(asmerr.InvalidLabel, "no such label %d", id)
	}
	if entry.IsBound() {
		return asmerr.New(asmerr.LabelAlreadyBound, "label %d is already bound", id)
	}
	sec, ok := c.sectionByID(sectionID)
	if !ok {
		return asmerr.New(asmerr.InvalidSection, "no such section %d", sectionID)
	}
	if offset > sec.Size() {
		return asmerr.New(asmerr.InvalidArgument, "offset %d exceeds section %q size %d", offset, sec.name, sec.Size())
	}

	entry.section = sectionID
	entry.offset = offset

	linkID := entry.links
	entry.links = noLabelLink
	for linkID != noLabelLink {
		link, ok := c.links.At(uint32(linkID))
		if !ok {
			return asmerr.New(asmerr.InvalidArgument, "label %d: dangling link handle %d", id, linkID)
		}
		next := link.next
		if link.hasReloc {
			r := &c.relocs[link.relocID]
			r.targetSection = sectionID
			r.payloadImm = int64(offset)
			r.targetResolved = true
		} else {
			if link.sourceSection != sectionID {
				return asmerr.New(asmerr.InvalidArgument, "label %d: in-place link spans sections without a relocation", id)
			}
			srcSec, ok := c.sectionByID(link.sourceSection)
			if !ok {
				return asmerr.New(asmerr.InvalidSection, "no such section %d", link.sourceSection)
			}
			delta := int64(offset) - int64(link.sourceOffset) - int64(link.relBase)
			if err := srcSec.patchSigned(link.sourceOffset, delta, link.width); err != nil {
				return err
			}
		}
		linkID = next
	}
	return nil
}

// NewLabelLink registers a pending forward reference to target, to be
// resolved when target is bound (see BindLabel). Pass a non-nil relocID when
// this link cooperates with a RelocEntry for cross-section/absolute
// encoding; pass nil for a same-section immediate patch. The link is stored
// in c.links and threaded onto target's chain by LabelLinkID, never by a
// *LabelLink back-pointer — see LabelLinkID's doc comment.
func (c *CodeContainer) NewLabelLink(target LabelID, sourceSection SectionID, sourceOffset, relBase uint64, width uint8, relocID *RelocID) (LabelLinkID, error) {
	entry, ok := c.labels.At(uint32(target))
	if !ok {
		return noLabelLink, asmerr.New(asmerr.InvalidLabel, "no such label %d", target)
	}
	link := LabelLink{
		next:          entry.links,
		target:        target, sourceSection: sourceSection, sourceOffset: sourceOffset,
		relBase: relBase, width: width,
	}
	if relocID != nil {
		link.hasReloc = true
		link.relocID = *relocID
	}
	id := LabelLinkID(c.links.Append(link))
	entry.links = id
	return id, nil
}

// --- Relocations -------------------------------------------------------------

// NewRelocEntry allocates a RelocEntry for an already-known (or
// soon-to-be-bound-via-NewLabelLink) target, with an immediate payload —
// used for RelocAbsoluteToAbsolute/RelocRelativeToAbsolute/RelocAbsoluteToRelative.
func (c *CodeContainer) NewRelocEntry(kind RelocKind, sourceSection SectionID, sourceOffset uint64, width uint8, targetSection SectionID, payload int64) (*RelocEntry, error) {
	if width != 1 && width != 2 && width != 4 && width != 8 {
		return nil, asmerr.New(asmerr.InvalidArgument, "invalid relocation width %d", width)
	}
	r := RelocEntry{
		id: RelocID(len(c.relocs)), kind: kind,
		sourceSection: sourceSection, sourceOffset: sourceOffset, width: width,
		targetSection: targetSection, targetResolved: true, payloadImm: payload,
	}
	c.relocs = append(c.relocs, r)
	return &c.relocs[len(c.relocs)-1], nil
}

// NewExpressionReloc allocates a RelocExpression entry whose value is
// computed at RelocateToBase time by evaluating expr.
func (c *CodeContainer) NewExpressionReloc(sourceSection SectionID, sourceOffset uint64, width uint8, expr *Expression) (*RelocEntry, error) {
	if width != 1 && width != 2 && width != 4 && width != 8 {
		return nil, asmerr.New(asmerr.InvalidArgument, "invalid relocation width %d", width)
	}
	r := RelocEntry{
		id: RelocID(len(c.relocs)), kind: RelocExpression,
		sourceSection: sourceSection, sourceOffset: sourceOffset, width: width,
		payloadExpr: expr,
	}
	c.relocs = append(c.relocs, r)
	return &c.relocs[len(c.relocs)-1], nil
}

// NextRelocID previews the id NewRelocEntry/NewExpressionReloc will assign
// next — used by callers (Assembler.embed_label) that must create a
// LabelLink referencing a RelocEntry that does not exist yet.
func (c *CodeContainer) NextRelocID() RelocID { return RelocID(len(c.relocs)) }

// --- Layout & resolution -----------------------------------------------------

func alignUp(x, align uint64) uint64 {
	if align <= 1 {
		return x
	}
	return (x + align - 1) / align * align
}

// Flatten computes each section's virtual offset as a running, alignment-
// respecting sum, establishing the invariant
// section[i].offset + section[i].virtual_size <= section[i+1].offset.
func (c *CodeContainer) Flatten() error {
	var offset uint64
	for _, s := range c.sections {
		aligned := alignUp(offset, uint64(s.alignment))
		s.voffset = aligned
		s.vsize = uint64(len(s.buf))
		offset = aligned + s.vsize
	}
	return nil
}

// ResolveUnresolvedLinks reports asmerr.UnresolvedLabel for every label that
// is still referenced (by a pending LabelLink, or by an Expression-kind
// relocation) but never bound.
func (c *CodeContainer) ResolveUnresolvedLinks() error {
	var bad []LabelID
	c.labels.Each(func(id uint32, e *LabelEntry) {
		if e.links != noLabelLink {
			bad = append(bad, LabelID(id))
		}
	})
	if len(bad) > 0 {
		return asmerr.New(asmerr.UnresolvedLabel, "unresolved label(s): %v", bad)
	}
	for i := range c.relocs {
		r := &c.relocs[i]
		if r.kind != RelocExpression {
			continue
		}
		for _, lid := range r.payloadExpr.collectLabels(nil) {
			e, ok := c.labels.At(uint32(lid))
			if !ok || !e.IsBound() {
				return asmerr.New(asmerr.UnresolvedLabel, "label %d referenced by an expression relocation is not bound", lid)
			}
		}
	}
	return nil
}

// RelocateToBase applies every RelocEntry against the given base address,
// writing into each entry's source section. It does not mutate container
// state that would make a later call with a different base behave
// differently (RelocEntry payloads are fixed once their label is bound) —
// the base address is never sticky.
func (c *CodeContainer) RelocateToBase(base uint64) error {
	if err := c.ResolveUnresolvedLinks(); err != nil {
		return err
	}

	resolveLabel := func(id LabelID) (int64, error) {
		e, ok := c.labels.At(uint32(id))
		if !ok || !e.IsBound() {
			return 0, asmerr.New(asmerr.UnresolvedLabel, "label %d is not bound", id)
		}
		sec, ok := c.sectionByID(e.section)
		if !ok {
			return 0, asmerr.New(asmerr.InvalidSection, "label %d bound to unknown section %d", id, e.section)
		}
		return int64(base) + int64(sec.voffset) + int64(e.offset), nil
	}

	for i := range c.relocs {
		r := &c.relocs[i]

		srcSec, ok := c.sectionByID(r.sourceSection)
		if !ok {
			return asmerr.New(asmerr.InvalidSection, "relocation %d: unknown source section %d", r.id, r.sourceSection)
		}

		switch r.kind {
		case RelocAbsoluteToAbsolute:
			if err := srcSec.patchTruncated(r.sourceOffset, uint64(r.payloadImm), r.width); err != nil {
				return err
			}
		case RelocRelativeToAbsolute:
			tSec, ok := c.sectionByID(r.targetSection)
			if !ok {
				return asmerr.New(asmerr.InvalidSection, "relocation %d: unknown target section %d", r.id, r.targetSection)
			}
			value := int64(base) + int64(tSec.voffset) + r.payloadImm
			if err := srcSec.patchTruncated(r.sourceOffset, uint64(value), r.width); err != nil {
				return err
			}
		case RelocAbsoluteToRelative:
			tSec, ok := c.sectionByID(r.targetSection)
			if !ok {
				return asmerr.New(asmerr.InvalidSection, "relocation %d: unknown target section %d", r.id, r.targetSection)
			}
			target := int64(base) + int64(tSec.voffset) + r.payloadImm
			instrEnd := int64(base) + int64(srcSec.voffset) + int64(r.sourceOffset) + int64(r.width)
			value := target - instrEnd
			if err := srcSec.patchSigned(r.sourceOffset, value, r.width); err != nil {
				return err
			}
		case RelocExpression:
			value, err := r.payloadExpr.evaluate(resolveLabel)
			if err != nil {
				return err
			}
			if err := srcSec.patchSigned(r.sourceOffset, value, r.width); err != nil {
				return err
			}
		default:
			return asmerr.New(asmerr.InvalidArgument, "relocation %d: unknown kind %d", r.id, r.kind)
		}
	}
	return nil
}

// CopySectionData copies a single section's bytes into dest starting at
// dest[0], zero-filling any remainder of dest (the padding-to-alignment
// behavior of spec.md §6, typically used with dest sized to the section's
// post-Flatten virtual size).
func (c *CodeContainer) CopySectionData(dest []byte, sectionID SectionID) (int, error) {
	sec, ok := c.sectionByID(sectionID)
	if !ok {
		return 0, asmerr.New(asmerr.InvalidSection, "no such section %d", sectionID)
	}
	n := copy(dest, sec.buf)
	for i := n; i < len(dest); i++ {
		dest[i] = 0
	}
	return n, nil
}
