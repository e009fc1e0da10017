// Package assembler implements spec.md §4.3: a direct byte-writing emitter
// over an asm.CodeContainer, grounded on the teacher's
// internal/asm/buffer.go CodeSegment/Buffer geometric-growth design (here
// expressed per-section instead of one flat segment, since a CodeContainer
// holds several independently growable sections) and on
// internal/asm/golang_asm/golang_asm.go's GolangAsmBaseAssembler for the
// finalize-callback and instruction-encoder collaborator shape.
package assembler

import (
	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asm"
	"github.com/gyuseokByeon/asmjit/asmerr"
	"github.com/gyuseokByeon/asmjit/emitter"
)

// InstructionEncoder is the per-architecture instruction table this package
// defers to for the actual opcode bytes; spec.md §5/§9 keeps instruction
// encoding an external collaborator out of this module's scope, concrete
// for one architecture by the goasm package.
type InstructionEncoder interface {
	// Encode appends the bytes for instId with the given operands and
	// options to dst, returning the extended slice, the byte offset of the
	// single relocatable immediate field counted from the start of the
	// appended instruction (not from the start of dst), or -1 if the
	// instruction has none, and that field's width in bytes.
	Encode(dst []byte, instID arch.InstID, operands []arch.Operand, opts emitter.Options) (out []byte, immOffset int, immWidth uint8, err error)
}

// Assembler writes instruction bytes directly into a CodeContainer's
// sections, maintaining a cursor into the currently active section.
type Assembler struct {
	emitter.Base

	encoder InstructionEncoder

	active *asm.Section

	onFinalize []func(code []byte) error
}

// New creates an unattached Assembler over encoder (which may be nil until
// the first Emit, to allow tests that only exercise Align/Embed/Bind).
func New(encoder InstructionEncoder) *Assembler {
	a := &Assembler{encoder: encoder}
	a.Init(a)
	return a
}

// Attach binds a to container c's active section (".text" initially) and
// registers a as the container's sole Assembler.
func (a *Assembler) Attach(c *asm.CodeContainer) error {
	if err := a.AttachTo(c); err != nil {
		return err
	}
	if err := c.AttachAssembler(a); err != nil {
		a.Detach()
		return err
	}
	text, _ := c.SectionByName(".text")
	a.active = text
	return nil
}

// Detach releases a from its container.
func (a *Assembler) Detach() error {
	c := a.Container()
	if c == nil {
		return nil
	}
	if err := c.DetachAssembler(a); err != nil {
		return err
	}
	a.Base.Detach()
	a.active = nil
	return nil
}

// Section swaps the cursor to s's tail, per spec.md §4.3's section(s).
func (a *Assembler) Section(s *asm.Section) { a.active = s }

// ActiveSection returns the section the cursor currently points at.
func (a *Assembler) ActiveSection() *asm.Section { return a.active }

// Bind captures the current cursor offset in the active section as the
// binding site of id, running the container's forward-reference patch walk.
func (a *Assembler) Bind(id asm.LabelID) error {
	c := a.Container()
	if c == nil {
		return a.ReportError(asmerr.New(asmerr.NotInitialized, "assembler is not attached"), "bind")
	}
	if err := c.BindLabel(id, a.active.ID(), a.active.Size()); err != nil {
		return a.ReportError(err, "bind")
	}
	return nil
}

// Emit appends one instruction via the attached InstructionEncoder, passing
// it the merged option word (the pending extra register and inline comment
// are not handed to the encoder), and clearing the option word, extra
// register and inline comment afterwards on success (spec.md §4.2's
// observable side effect). Concrete arity wrappers below just pad operands.
//
// If exactly one operand carries a Label (spec.md §8 scenario 1's "jmp
// rel32" shape), Emit resolves it immediately against the active section:
// patching in place if the label is already bound, or registering a
// same-section LabelLink (relBase == the immediate's width, per this
// module's relative-addressing convention) if it is still forward. A label
// target bound in a different section is out of scope for this in-place
// path — use EmbedLabel for cross-section references.
func (a *Assembler) Emit(instID arch.InstID, operands ...arch.Operand) error {
	if a.encoder == nil {
		return a.ReportError(asmerr.New(asmerr.NotInitialized, "no instruction encoder installed"), "emit")
	}
	opts, _, _, _ := a.ResolveNextInstruction()
	base := a.active.Size()
	out, immOffset, immWidth, err := a.encoder.Encode(a.active.Bytes(), instID, operands, opts)
	if err != nil {
		return a.ReportError(err, "emit")
	}
	// Encode may append into the section's own spare capacity, which
	// Append's growth then overwrites; copy the new bytes out first.
	grown := append([]byte(nil), out[base:]...)
	a.active.Append(grown)

	if immOffset >= 0 {
		var labelOp *arch.Operand
		for i := range operands {
			if operands[i].Sig.OperandType() == arch.OperandLabel {
				labelOp = &operands[i]
				break
			}
		}
		if labelOp != nil {
			if err := a.patchOrLinkLabel(asm.LabelID(labelOp.Label), base+uint64(immOffset), immWidth); err != nil {
				return a.ReportError(err, "emit")
			}
		}
	}

	a.ClearPerInstructionState()
	return nil
}

// patchOrLinkLabel resolves a single in-place label reference at section
// offset immOffset, width bytes wide, using relBase == width.
func (a *Assembler) patchOrLinkLabel(target asm.LabelID, immOffset uint64, width uint8) error {
	c := a.Container()
	entry, err := c.LabelEntry(target)
	if err != nil {
		return err
	}
	if entry.IsBound() {
		if entry.Section() != a.active.ID() {
			return asmerr.New(asmerr.InvalidArgument, "label %d is bound in a different section; use EmbedLabel", target)
		}
		delta := int64(entry.Offset()) - int64(immOffset) - int64(width)
		return a.active.PatchSigned(immOffset, delta, width)
	}
	_, err = c.NewLabelLink(target, a.active.ID(), immOffset, uint64(width), width, nil)
	return err
}

func (a *Assembler) Emit0(instID arch.InstID) error { return a.Emit(instID) }
func (a *Assembler) Emit1(instID arch.InstID, o0 arch.Operand) error {
	return a.Emit(instID, o0)
}
func (a *Assembler) Emit2(instID arch.InstID, o0, o1 arch.Operand) error {
	return a.Emit(instID, o0, o1)
}
func (a *Assembler) Emit3(instID arch.InstID, o0, o1, o2 arch.Operand) error {
	return a.Emit(instID, o0, o1, o2)
}
func (a *Assembler) Emit4(instID arch.InstID, o0, o1, o2, o3 arch.Operand) error {
	return a.Emit(instID, o0, o1, o2, o3)
}
func (a *Assembler) Emit5(instID arch.InstID, o0, o1, o2, o3, o4 arch.Operand) error {
	return a.Emit(instID, o0, o1, o2, o3, o4)
}
func (a *Assembler) Emit6(instID arch.InstID, o0, o1, o2, o3, o4, o5 arch.Operand) error {
	return a.Emit(instID, o0, o1, o2, o3, o4, o5)
}

// Align pads the active section with zero bytes up to the next multiple of
// value (mode is reserved for future zero-vs-nop fill policies, matching
// spec.md's align(mode, value) signature; this encoder-free implementation
// always zero-fills).
func (a *Assembler) Align(mode uint8, value uint32) error {
	if value == 0 {
		return nil
	}
	cur := a.active.Size()
	rem := cur % uint64(value)
	if rem == 0 {
		return nil
	}
	a.active.Append(make([]byte, uint64(value)-rem))
	return nil
}

// Embed appends raw bytes verbatim.
func (a *Assembler) Embed(b []byte) uint64 { return a.active.Append(b) }

// EmbedDataArray repeats data (treated as one item of itemSize bytes)
// itemCount*repeatCount times; this mirrors spec.md's embed_data_array
// without a typed-item abstraction, since item interpretation is an
// InstructionEncoder/architecture concern out of this package's scope.
func (a *Assembler) EmbedDataArray(data []byte, itemCount, repeatCount int) uint64 {
	off := a.active.Size()
	for i := 0; i < itemCount*repeatCount; i++ {
		a.active.Append(data)
	}
	return off
}

// EmbedLabel reserves a width-byte absolute reference to target and always
// records a relative-to-absolute RelocEntry for it, written by
// RelocateToBase: with target's section/offset if target is already bound,
// otherwise together with a LabelLink that fills them in at Bind time.
// Nothing is written into the field at embed time.
func (a *Assembler) EmbedLabel(target asm.LabelID, width uint8) error {
	c := a.Container()
	off := a.active.Append(make([]byte, width))
	entry, err := c.LabelEntry(target)
	if err != nil {
		return a.ReportError(err, "embed_label")
	}
	if entry.IsBound() {
		_, err := c.NewRelocEntry(asm.RelocRelativeToAbsolute, a.active.ID(), off, width, entry.Section(), int64(entry.Offset()))
		if err != nil {
			return a.ReportError(err, "embed_label")
		}
		return nil
	}
	relocEntry, err := c.NewRelocEntry(asm.RelocRelativeToAbsolute, a.active.ID(), off, width, 0, 0)
	if err != nil {
		return a.ReportError(err, "embed_label")
	}
	relocID := relocEntry.ID()
	_, err = c.NewLabelLink(target, a.active.ID(), off, uint64(width), width, &relocID)
	if err != nil {
		return a.ReportError(err, "embed_label")
	}
	return nil
}

// EmbedSectionOffset writes target's section-local offset as a plain,
// base-independent width-byte value: the label's offset within its own
// section, with neither the base nor the section's Flatten-assigned virtual
// offset added. Useful for data such as a jump table entry that must stay
// valid however the container is eventually relocated. The value is taken
// immediately if target is already bound in any section, otherwise via a
// cooperating LabelLink at Bind time; either way it is written into the
// field by RelocateToBase.
func (a *Assembler) EmbedSectionOffset(target asm.LabelID, width uint8) error {
	c := a.Container()
	off := a.active.Append(make([]byte, width))
	entry, err := c.LabelEntry(target)
	if err != nil {
		return a.ReportError(err, "embed_section_offset")
	}
	if entry.IsBound() {
		_, err := c.NewRelocEntry(asm.RelocAbsoluteToAbsolute, a.active.ID(), off, width, entry.Section(), int64(entry.Offset()))
		if err != nil {
			return a.ReportError(err, "embed_section_offset")
		}
		return nil
	}
	relocEntry, err := c.NewRelocEntry(asm.RelocAbsoluteToAbsolute, a.active.ID(), off, width, 0, 0)
	if err != nil {
		return a.ReportError(err, "embed_section_offset")
	}
	relocID := relocEntry.ID()
	_, err = c.NewLabelLink(target, a.active.ID(), off, uint64(width), width, &relocID)
	if err != nil {
		return a.ReportError(err, "embed_section_offset")
	}
	return nil
}

// EmbedLabelPCRelative writes a signed, width-byte PC-relative displacement
// from the end of this field to target's final (base-resolved) address —
// the cross-section counterpart to EmbedLabelDelta, which only handles two
// labels already bound in the same section with no base involved at all.
// Like EmbedLabel, this always defers to RelocateToBase: even when target
// is already bound, a cross-section displacement depends on the sections'
// virtual offsets, which are only known after Flatten.
func (a *Assembler) EmbedLabelPCRelative(target asm.LabelID, width uint8) error {
	c := a.Container()
	off := a.active.Append(make([]byte, width))
	entry, err := c.LabelEntry(target)
	if err != nil {
		return a.ReportError(err, "embed_label_pc_relative")
	}
	if entry.IsBound() {
		_, err := c.NewRelocEntry(asm.RelocAbsoluteToRelative, a.active.ID(), off, width, entry.Section(), int64(entry.Offset()))
		if err != nil {
			return a.ReportError(err, "embed_label_pc_relative")
		}
		return nil
	}
	relocEntry, err := c.NewRelocEntry(asm.RelocAbsoluteToRelative, a.active.ID(), off, width, 0, 0)
	if err != nil {
		return a.ReportError(err, "embed_label_pc_relative")
	}
	relocID := relocEntry.ID()
	_, err = c.NewLabelLink(target, a.active.ID(), off, uint64(width), width, &relocID)
	if err != nil {
		return a.ReportError(err, "embed_label_pc_relative")
	}
	return nil
}

// EmbedLabelDelta writes base-relative minus target-relative (a - b) as a
// signed width-byte value, resolving immediately when both labels are
// already bound in the same section, and deferring to an expression
// RelocEntry otherwise.
func (a *Assembler) EmbedLabelDelta(minuend, subtrahend asm.LabelID, width uint8) error {
	c := a.Container()
	off := a.active.Append(make([]byte, width))
	ea, erra := c.LabelEntry(minuend)
	eb, errb := c.LabelEntry(subtrahend)
	if erra != nil {
		return a.ReportError(erra, "embed_label_delta")
	}
	if errb != nil {
		return a.ReportError(errb, "embed_label_delta")
	}
	if ea.IsBound() && eb.IsBound() && ea.Section() == eb.Section() {
		delta := int64(ea.Offset()) - int64(eb.Offset())
		if err := a.active.PatchSigned(off, delta, width); err != nil {
			return a.ReportError(err, "embed_label_delta")
		}
		return nil
	}
	expr := asm.NewExpression(asm.ExprSub, asm.LabelSlot(minuend), asm.LabelSlot(subtrahend))
	if _, err := c.NewExpressionReloc(a.active.ID(), off, width, expr); err != nil {
		return a.ReportError(err, "embed_label_delta")
	}
	return nil
}

// EmbedConstPool flushes every entry of pool into the active section,
// finalizing each entry's offset-in-binary callback, and returns the
// section offset the pool's first entry landed at.
func (a *Assembler) EmbedConstPool(pool *asm.ConstPool) uint64 {
	base := a.active.Size()
	for _, e := range pool.Entries() {
		// Callbacks may fill the entry's bytes (NewJumpTable does), so they
		// run before the bytes are copied into the section.
		e.SetOffsetInBinary(a.active.Size())
		a.active.Append(e.Bytes())
	}
	return base
}

// Comment sets the inline comment for the next Emit only.
func (a *Assembler) Comment(text string) { a.SetInlineComment(text) }

// AddOnFinalizeCallback registers fn to run, in registration order, when
// RunFinalizeCallbacks is called with the final code slice; nothing in this
// module calls RunFinalizeCallbacks on its own — grounded verbatim on the
// teacher's GolangAsmBaseAssembler.AddOnGenerateCallBack /
// onGenerateCallbacks, used there to patch jump tables after layout.
func (a *Assembler) AddOnFinalizeCallback(fn func(code []byte) error) {
	a.onFinalize = append(a.onFinalize, fn)
}

// RunFinalizeCallbacks invokes every registered finalize callback against
// code, in registration order, stopping at the first error.
func (a *Assembler) RunFinalizeCallbacks(code []byte) error {
	for _, cb := range a.onFinalize {
		if err := cb(code); err != nil {
			return err
		}
	}
	return nil
}
