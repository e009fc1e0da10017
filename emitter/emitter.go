// Package emitter provides the mixin shared by every concrete emitter
// (assembler.Assembler, builder.Builder, and by extension
// compiler.Compiler): the attached-container reference, the option-word and
// inline-comment/extra-register scratch slots consumed by one emit call,
// and the report_error routing contract from spec.md §6/§7.
//
// Per spec.md §9's design note ("model emitters as a capability set...
// rather than a deep inheritance chain"), Base deliberately stops short of
// knowing how to emit anything — Align/Embed/Comment and the instruction
// arity wrappers live on the concrete emitter types, since an Assembler
// realizes them as immediate byte writes while a Builder realizes them as
// graph nodes.
package emitter

import (
	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asm"
	"github.com/gyuseokByeon/asmjit/asmerr"
)

// Options is the global/per-instruction option word from spec.md §4.2. Its
// individual bit meanings are architecture- and encoder-specific (an
// InstructionEncoder concern out of this package's scope); Base only knows
// how to merge two option words together.
type Options uint32

// Merge ORs per-instruction options on top of the emitter's global options,
// matching spec.md's "global and per-instruction option merging".
func Merge(global, perInstruction Options) Options { return global | perInstruction }

// Base is embedded by every concrete emitter type.
type Base struct {
	container *asm.CodeContainer
	// self is the identity handle passed to CodeContainer.Attach*/Detach*
	// and to an ErrorHandler; it is set once by the concrete emitter's
	// constructor to a pointer to itself.
	self any

	globalOptions Options

	pendingOptions    Options
	hasPendingOptions bool

	extraReg    arch.RegID
	hasExtraReg bool

	inlineComment    string
	hasInlineComment bool

	handler asmerr.Handler
}

// Init wires self (the concrete emitter's own pointer) into the mixin; it
// must be called once, from the concrete emitter's constructor, before
// Attach.
func (b *Base) Init(self any) { b.self = self }

// Container returns the currently attached container, or nil.
func (b *Base) Container() *asm.CodeContainer { return b.container }

// SetGlobalOptions replaces the emitter's global option word. Per spec.md
// §9's "keep as an immutable configuration struct... mutated only through
// explicit setters that log the change" design note, this is the only
// mutator — there is deliberately no partial-bit-set helper.
func (b *Base) SetGlobalOptions(o Options) { b.globalOptions = o }

// GlobalOptions returns the emitter's global option word.
func (b *Base) GlobalOptions() Options { return b.globalOptions }

// SetNextOptions sets the option word merged into the very next emitted
// instruction only; it is cleared after that emit succeeds.
func (b *Base) SetNextOptions(o Options) {
	b.pendingOptions = o
	b.hasPendingOptions = true
}

// SetExtraReg reserves the masking/extra-register slot (e.g. AVX-512 {k})
// for the next instruction only.
func (b *Base) SetExtraReg(r arch.RegID) {
	b.extraReg = r
	b.hasExtraReg = true
}

// SetInlineComment attaches a comment valid only until the next emit.
func (b *Base) SetInlineComment(s string) {
	b.inlineComment = s
	b.hasInlineComment = true
}

// ResolveNextInstruction returns the merged option word, extra register (and
// whether one was set), and pending inline comment for the instruction about
// to be emitted.
func (b *Base) ResolveNextInstruction() (opts Options, extraReg arch.RegID, hasExtraReg bool, comment string) {
	opts = b.globalOptions
	if b.hasPendingOptions {
		opts = Merge(b.globalOptions, b.pendingOptions)
	}
	return opts, b.extraReg, b.hasExtraReg, b.inlineComment
}

// ClearPerInstructionState resets the option word, extra register, and
// inline comment slots. Every concrete emitter must call this after a
// successful emit — spec.md §4.2's "observable side effect: after every
// successful emit the per-instruction option word, extra register, and
// inline comment are reset."
func (b *Base) ClearPerInstructionState() {
	b.pendingOptions = 0
	b.hasPendingOptions = false
	b.extraReg = 0
	b.hasExtraReg = false
	b.inlineComment = ""
	b.hasInlineComment = false
}

// SetErrorHandler installs this emitter's own error handler, which takes
// precedence over the container's per spec.md §6.
func (b *Base) SetErrorHandler(h asmerr.Handler) { b.handler = h }

// ReportError implements spec.md §4.2's report_error: it consults the
// emitter's own handler, then the container's, returning err unchanged if
// neither is installed or if the handler that ran chose to propagate it.
func (b *Base) ReportError(err error, message string) error {
	if b.handler != nil {
		return b.handler.Handle(err, message, b.self)
	}
	if b.container != nil {
		if h := b.container.ErrorHandler(); h != nil {
			return h.Handle(err, message, b.self)
		}
	}
	return err
}

// NewLabel creates an anonymous label against the attached container.
func (b *Base) NewLabel() (asm.LabelID, error) {
	if b.container == nil {
		return 0, asmerr.New(asmerr.NotInitialized, "emitter is not attached to a container")
	}
	return b.container.NewLabel(), nil
}

// NewNamedLabel creates a named label against the attached container.
func (b *Base) NewNamedLabel(name string, typ asm.LabelType, parent *asm.LabelID) (asm.LabelID, error) {
	if b.container == nil {
		return 0, asmerr.New(asmerr.NotInitialized, "emitter is not attached to a container")
	}
	return b.container.NewNamedLabel(name, typ, parent)
}

// attachTo and detachFrom are called by the concrete emitter's
// Attach/Detach, which also performs the container.AttachAssembler /
// AttachBuilder call appropriate to its own kind.
func (b *Base) attachTo(c *asm.CodeContainer) error {
	if b.container != nil {
		return asmerr.New(asmerr.AlreadyAttached, "emitter is already attached to a container")
	}
	b.container = c
	return nil
}

func (b *Base) detach() {
	b.container = nil
}

// AttachTo is exported so assembler/builder constructors (outside this
// package) can drive the shared half of the attach sequence.
func (b *Base) AttachTo(c *asm.CodeContainer) error { return b.attachTo(c) }

// Detach is exported so assembler/builder Detach methods can drive the
// shared half of the detach sequence.
func (b *Base) Detach() { b.detach() }

// Self returns the identity handle passed to CodeContainer.Attach*/Detach*.
func (b *Base) Self() any { return b.self }
