package goasm

import (
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/gyuseokByeon/asmjit/arch"
)

// Instruction ids this package's Encoder understands. The set is
// deliberately small — spec.md keeps a full per-architecture instruction
// table out of this module's scope (§9 Non-goals); this is just enough to
// back Convention's prologue/epilogue/invoke sequences plus a handful of
// common data-movement/arithmetic ops a caller can use directly.
const (
	NOP arch.InstID = iota
	RET
	JMP
	CALL
	PUSHQ
	POPQ
	MOVQ
	ADDQ
	SUBQ
	LEAQ
)

// obj-level pseudo-ops (RET/JMP/NOP/CALL) are architecture-generic in
// golang-asm, exactly as the teacher's castAsGolangAsmInstruction table
// maps them (internal/wasm/jit/asm/amd64/golang_asm.go); the rest resolve
// through the x86-specific obj/x86 table.
var instTable = map[arch.InstID]obj.As{
	NOP:   obj.ANOP,
	RET:   obj.ARET,
	JMP:   obj.AJMP,
	CALL:  obj.ACALL,
	PUSHQ: x86.APUSHQ,
	POPQ:  x86.APOPQ,
	MOVQ:  x86.AMOVQ,
	ADDQ:  x86.AADDQ,
	SUBQ:  x86.ASUBQ,
	LEAQ:  x86.ALEAQ,
}
