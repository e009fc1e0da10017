// Package goasm wires github.com/twitchyliquid64/golang-asm as this
// library's one concrete, shipped InstructionEncoder/ConventionLowerer
// pair, grounded on the teacher's internal/asm/golang_asm/golang_asm.go and
// internal/wasm/jit/asm/amd64/golang_asm.go. Everything else in this module
// (arch, asm, emitter, assembler, builder, compiler) stays encoder-agnostic
// per spec.md §6/§9; this package is the default backend a caller opts into.
package goasm

import (
	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"

	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asmerr"
	"github.com/gyuseokByeon/asmjit/emitter"
)

// Encoder satisfies assembler.InstructionEncoder by translating each
// instID/operands tuple into an obj.Prog appended to an internal
// obj.Builder, exactly as GolangAsmBaseAssembler does for its own
// instruction set.
//
// Label operands are the one case this package does NOT hand to
// golang-asm: golang-asm's own obj.TYPE_BRANCH/SetTarget relocation model
// would compete with this library's CodeContainer for ownership of the
// same jump, so a JMP/CALL to a Label is encoded directly as a fixed-width
// rel32 placeholder instead, leaving the patch to assembler.Assembler's own
// label resolution (see its Emit doc comment).
//
// Every other instruction really is assembled by golang-asm: Encode
// re-invokes Builder.Assemble after each AddInstruction and returns only
// the bytes appended since the previous call. This re-assembles the whole
// program each time (an O(n^2) cost across a function), a known
// simplification acceptable here because golang-asm itself exposes no
// incremental "assemble just this Prog" entry point; see DESIGN.md.
type Encoder struct {
	b        *goasm.Builder
	produced int
}

// NewEncoder creates an Encoder over a fresh golang-asm Builder for archStr
// (e.g. "amd64", "arm64" — passed straight through to goasm.NewBuilder).
func NewEncoder(archStr string) (*Encoder, error) {
	b, err := goasm.NewBuilder(archStr, 1024)
	if err != nil {
		return nil, asmerr.Wrap(asmerr.NotInitialized, err, "creating golang-asm builder")
	}
	return &Encoder{b: b}, nil
}

// Encode implements assembler.InstructionEncoder.
func (e *Encoder) Encode(dst []byte, instID arch.InstID, operands []arch.Operand, opts emitter.Options) ([]byte, int, uint8, error) {
	if (instID == JMP || instID == CALL) && len(operands) == 1 && operands[0].Sig.OperandType() == arch.OperandLabel {
		return e.encodeRelDirect(dst, instID)
	}

	prog, err := e.buildProg(instID, operands)
	if err != nil {
		return nil, 0, 0, err
	}
	e.b.AddInstruction(prog)

	code := e.b.Assemble()
	if e.produced > len(code) {
		return nil, 0, 0, asmerr.New(asmerr.InvalidArgument, "golang-asm builder shrank across Assemble calls")
	}
	newBytes := code[e.produced:]
	e.produced = len(code)
	return append(dst, newBytes...), -1, 0, nil
}

// encodeRelDirect emits a fixed 5-byte rel32 JMP/CALL with a zeroed
// placeholder displacement, leaving the real patch to the caller's
// CodeContainer-backed label resolution.
func (e *Encoder) encodeRelDirect(dst []byte, instID arch.InstID) ([]byte, int, uint8, error) {
	var opcode byte
	switch instID {
	case JMP:
		opcode = 0xE9
	case CALL:
		opcode = 0xE8
	}
	out := append(dst, opcode, 0, 0, 0, 0)
	return out, 1, 4, nil
}

// buildProg translates one instID/operands tuple into an obj.Prog, mapping
// register/memory/immediate operands onto Prog.From/Prog.To exactly as
// assemblerGoAsmImpl's CompileXToYInstruction family does.
func (e *Encoder) buildProg(instID arch.InstID, operands []arch.Operand) (*obj.Prog, error) {
	as, ok := instTable[instID]
	if !ok {
		return nil, asmerr.New(asmerr.InvalidArgument, "goasm: unknown instruction id %d", instID)
	}
	p := e.b.NewProg()
	p.As = as

	switch len(operands) {
	case 0:
		// RET, NOP: both Addrs stay TYPE_NONE.
	case 1:
		if err := setAddr(&p.To, operands[0]); err != nil {
			return nil, err
		}
	case 2:
		if err := setAddr(&p.From, operands[0]); err != nil {
			return nil, err
		}
		if err := setAddr(&p.To, operands[1]); err != nil {
			return nil, err
		}
	default:
		return nil, asmerr.New(asmerr.InvalidArgument, "goasm: instruction %d takes at most 2 operands, got %d", instID, len(operands))
	}
	return p, nil
}

func setAddr(a *obj.Addr, op arch.Operand) error {
	switch op.Sig.OperandType() {
	case arch.OperandRegister:
		reg, ok := toX86Reg(op.Reg)
		if !ok {
			return asmerr.New(asmerr.InvalidArgument, "goasm: unmapped physical register %d", op.Reg)
		}
		a.Type = obj.TYPE_REG
		a.Reg = reg
	case arch.OperandMemory:
		reg, ok := toX86Reg(op.Reg)
		if !ok {
			return asmerr.New(asmerr.InvalidArgument, "goasm: unmapped physical register %d", op.Reg)
		}
		a.Type = obj.TYPE_MEM
		a.Reg = reg
		a.Offset = op.Disp
		if op.Index != 0 {
			idx, ok := toX86Reg(op.Index)
			if !ok {
				return asmerr.New(asmerr.InvalidArgument, "goasm: unmapped index register %d", op.Index)
			}
			a.Index = idx
		}
	case arch.OperandImmediate:
		a.Type = obj.TYPE_CONST
		a.Offset = op.Imm
	default:
		return asmerr.New(asmerr.InvalidOperand, "goasm: unsupported operand type %d for a real golang-asm instruction", op.Sig.OperandType())
	}
	return nil
}
