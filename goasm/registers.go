package goasm

import (
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/gyuseokByeon/asmjit/arch"
)

// General-purpose amd64 register ids understood by this package's Encoder
// and ConventionLowerer. These are plain arch.RegID values (the low bit
// range, well below arch.VirtualRegID's tag bit) so a caller can pass them
// directly as Operand.Reg without going through a Compiler.
const (
	AX arch.RegID = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// physRegTable mirrors the teacher's castAsGolangAsmRegister-style mapping
// (internal/wasm/jit/asm/amd64/golang_asm.go): a direct lookup from this
// package's register ids to the x86.REG_* constants golang-asm's obj.Prog
// fields expect.
var physRegTable = [...]int16{
	AX: x86.REG_AX, CX: x86.REG_CX, DX: x86.REG_DX, BX: x86.REG_BX,
	SP: x86.REG_SP, BP: x86.REG_BP, SI: x86.REG_SI, DI: x86.REG_DI,
	R8: x86.REG_R8, R9: x86.REG_R9, R10: x86.REG_R10, R11: x86.REG_R11,
	R12: x86.REG_R12, R13: x86.REG_R13, R14: x86.REG_R14, R15: x86.REG_R15,
}

// argOrder is the SysV amd64 integer argument register order, used by
// Convention.Lower to assign FuncSignature.Params to registers.
var argOrder = []arch.RegID{DI, SI, DX, CX, R8, R9}

func toX86Reg(id arch.RegID) (int16, bool) {
	if int(id) < 0 || int(id) >= len(physRegTable) {
		return 0, false
	}
	return physRegTable[id], true
}
