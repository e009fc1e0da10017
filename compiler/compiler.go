// Package compiler implements spec.md §4.5: a Builder that additionally
// owns virtual registers and the function-structure node kinds
// (Func/FuncRet/Invoke/Jump), grounded on
// internal/engine/wazevo/backend/regalloc's VReg bit-packing for virtual
// register ids and on internal/asm/golang_asm/golang_asm.go's
// GolangAsmBaseAssembler for the calling-convention/jump-table shape a
// concrete ConventionLowerer (package goasm) plugs into.
package compiler

import (
	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asm"
	"github.com/gyuseokByeon/asmjit/asmerr"
	"github.com/gyuseokByeon/asmjit/assembler"
	"github.com/gyuseokByeon/asmjit/builder"
	"github.com/gyuseokByeon/asmjit/internal/arena"
)

// FuncSignature is the architecture-neutral parameter/result shape passed
// to AddFunc; a ConventionLowerer turns it into a concrete FuncDetail.
type FuncSignature struct {
	Params  []arch.Signature
	Results []arch.Signature
}

// FuncFrame is the calling-convention-derived stack layout of one function.
type FuncFrame struct {
	LocalsSize  uint32
	StackAlign  uint32
	SpillSlots  uint32
}

// FuncDetail is the lowered form of a FuncSignature: the physical (or, pre-
// allocation, virtual) registers backing each parameter, and the frame
// layout the prologue/epilogue must realize.
type FuncDetail struct {
	Signature FuncSignature
	ArgRegs   []arch.RegID
	Frame     FuncFrame
}

// ConventionLowerer is the external collaborator that knows one
// architecture's calling convention; spec.md keeps instruction encoding out
// of the core module's scope except for the one concrete goasm.Encoder
// wiring. Lower runs synchronously inside AddFunc (it only computes
// register/frame assignments); the Emit* methods run at Finalize, once a
// target Assembler is available to write bytes onto.
type ConventionLowerer interface {
	Lower(sig FuncSignature) (FuncDetail, error)
	EmitPrologue(target *assembler.Assembler, fn *FuncNode) error
	EmitEpilogue(target *assembler.Assembler, fn *FuncNode) error
	EmitInvoke(target *assembler.Assembler, inv *InvokeNode) error
}

// FuncNode is the opaque payload of a builder.KindFunc node.
type FuncNode struct {
	Detail FuncDetail
	Entry  asm.LabelID
	Exit   asm.LabelID
}

// InvokeNode is the opaque payload of a builder.KindInvoke node: a call
// through target (a bound physical or virtual register, or an operand the
// lowerer recognizes as a direct-call label) with the given argument and
// result registers.
type InvokeNode struct {
	Target  arch.RegID
	Args    []arch.RegID
	Results []arch.RegID
}

// funcScope is the Compiler's "current function" state — nil when idle.
type funcScope struct {
	node   *FuncNode
	locals *asm.ConstPool
}

// Compiler extends builder.Builder with VirtReg allocation and function
// structure. It embeds *builder.Builder rather than builder.Builder by
// value so a Compiler can be passed anywhere a *builder.Builder is
// expected (e.g. to a Pass) without the caller needing a type switch.
type Compiler struct {
	*builder.Builder

	virtRegs arena.Vector[VirtRegEntry]

	current *funcScope

	lowerer ConventionLowerer
}

// New creates an empty, unattached Compiler. lowerer may be nil until the
// first AddFunc call.
func New(lowerer ConventionLowerer) *Compiler {
	return &Compiler{Builder: builder.New(), lowerer: lowerer}
}

// InOpenFunc reports whether the Compiler is between AddFunc and EndFunc.
func (c *Compiler) InOpenFunc() bool { return c.current != nil }

// AddFunc lowers sig via the installed ConventionLowerer, creates a FuncNode
// with a fresh entry/exit label pair, appends it (and its entry label) to
// the graph, and transitions idle → open. Nested AddFunc calls fail with
// asmerr.FuncInFunc.
func (c *Compiler) AddFunc(sig FuncSignature) (*FuncNode, error) {
	if c.current != nil {
		return nil, asmerr.New(asmerr.FuncInFunc, "add_func called while a function is already open")
	}
	if c.lowerer == nil {
		return nil, asmerr.New(asmerr.NotInitialized, "no ConventionLowerer installed")
	}
	detail, err := c.lowerer.Lower(sig)
	if err != nil {
		return nil, asmerr.Wrap(asmerr.InvalidArgument, err, "lowering function signature")
	}
	entry, err := c.NewLabel()
	if err != nil {
		return nil, err
	}
	exit, err := c.NewLabel()
	if err != nil {
		return nil, err
	}

	fn := &FuncNode{Detail: detail, Entry: entry, Exit: exit}
	c.AddOpaque(builder.NewOpaqueNode(builder.KindFunc, fn))
	c.AddLabelNode(entry)

	c.current = &funcScope{node: fn}
	return fn, nil
}

// SetArg binds argument slot i of the currently open function to reg,
// overriding whatever the ConventionLowerer initially assigned (e.g. to
// pin an argument to a callee-saved register across a call).
func (c *Compiler) SetArg(i int, reg arch.RegID) error {
	if c.current == nil {
		return asmerr.New(asmerr.InvalidArgument, "set_arg called outside an open function")
	}
	if i < 0 || i >= len(c.current.node.Detail.ArgRegs) {
		return asmerr.New(asmerr.InvalidArgument, "argument index %d out of range", i)
	}
	c.current.node.Detail.ArgRegs[i] = reg
	return nil
}

// AddRet is legal only inside an open function; it appends a KindFuncRet
// node referencing the current FuncNode so a lowering pass can expand the
// architecture's return sequence.
func (c *Compiler) AddRet() error {
	if c.current == nil {
		return asmerr.New(asmerr.InvalidArgument, "add_ret called outside an open function")
	}
	c.AddOpaque(builder.NewOpaqueNode(builder.KindFuncRet, c.current.node))
	return nil
}

// EndFunc binds the exit label, flushes the function-local constant pool
// (if anything was added to it) as an EmbedConstPool node, appends the
// trailing end-sentinel, and transitions open → idle.
func (c *Compiler) EndFunc() error {
	if c.current == nil {
		return asmerr.New(asmerr.InvalidArgument, "end_func called outside an open function")
	}
	c.AddLabelNode(c.current.node.Exit)
	if c.current.locals != nil && c.current.locals.Len() > 0 {
		c.AddEmbedConstPool(c.current.locals)
	}
	c.AddSentinel()
	c.current = nil
	return nil
}

// ConstScope selects which pool NewConst dedups a byte pattern into.
type ConstScope uint8

const (
	ScopeLocal ConstScope = iota
	ScopeGlobal
)

// NewConst deduplicates data within scope and returns a memory operand
// referring to the backing entry, per spec.md §4.5: ScopeLocal requires an
// open function (its pool is flushed at EndFunc), ScopeGlobal dedups
// against the container's pool (flushed at finalize, i.e. whenever the
// caller embeds it). Two calls with an identical byte pattern within the
// same scope dedup to the same entry and so return operands with identical
// displacements.
//
// The returned operand's Reg is arch.NoReg: the entry's final address
// depends on where its pool is embedded, which is not known until Finalize,
// so there is no concrete base register to report here. A ConventionLowerer
// or InstructionEncoder that actually emits against the operand is
// responsible for substituting the real addressing (e.g. RIP-relative, or a
// dedicated data-segment register) before encoding.
func (c *Compiler) NewConst(scope ConstScope, data []byte) (arch.Operand, error) {
	switch scope {
	case ScopeLocal:
		if c.current == nil {
			return arch.Operand{}, asmerr.New(asmerr.InvalidArgument, "new_const(scope=local) called outside an open function")
		}
		if c.current.locals == nil {
			c.current.locals = asm.NewConstPool()
		}
		return constOperand(c.current.locals.AddConst(data, c.cursorOffset())), nil
	case ScopeGlobal:
		container := c.Container()
		if container == nil {
			return arch.Operand{}, asmerr.New(asmerr.NotInitialized, "compiler is not attached")
		}
		return constOperand(container.GlobalConstPool().AddConst(data, c.cursorOffset())), nil
	default:
		return arch.Operand{}, asmerr.New(asmerr.InvalidArgument, "unknown const scope %d", scope)
	}
}

func constOperand(e *asm.ConstEntry) arch.Operand {
	return arch.Operand{
		Sig:  arch.MakeSignature(arch.OperandMemory, arch.RegTypeNone, arch.GroupGeneral, uint8(len(e.Bytes()))),
		Reg:  arch.NoReg,
		Disp: int64(e.DispInPool()),
	}
}

// cursorOffset is a best-effort "first use" marker recorded on a new const
// entry: the node count so far in this graph, since actual byte offsets
// are only known after Finalize lowers the graph onto an Assembler.
func (c *Compiler) cursorOffset() uint64 {
	var n uint64
	for node := c.Head(); node != nil; node = node.Next() {
		n++
	}
	return n
}
