package goasm

import (
	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asmerr"
	"github.com/gyuseokByeon/asmjit/assembler"
	"github.com/gyuseokByeon/asmjit/compiler"
)

// Convention is a minimal SysV-amd64-flavored compiler.ConventionLowerer:
// integer/pointer parameters are assigned to the standard argument
// registers in order, the prologue/epilogue manage a classic
// push-rbp/mov-rbp,rsp frame, and EmitInvoke lowers to a register-indirect
// CALL. It does not spill past six integer arguments onto the stack — the
// teacher's own GolangAsmBaseAssembler carries no calling-convention
// opinion at all (it leaves that entirely to its caller), so this is new
// code grounded on the well-known SysV ABI register order rather than on a
// specific teacher file.
type Convention struct {
	// FrameAlign overrides the stack alignment recorded on FuncFrame; 0
	// defaults to 16, matching SysV amd64.
	FrameAlign uint32
}

var _ compiler.ConventionLowerer = (*Convention)(nil)

// Lower assigns sig.Params to the leading integer argument registers in
// SysV order (DI, SI, DX, CX, R8, R9), failing once a signature needs more
// than those six slots.
func (c *Convention) Lower(sig compiler.FuncSignature) (compiler.FuncDetail, error) {
	if len(sig.Params) > len(argOrder) {
		return compiler.FuncDetail{}, asmerr.New(asmerr.InvalidArgument,
			"goasm: %d integer arguments exceeds the %d supported in registers", len(sig.Params), len(argOrder))
	}
	regs := make([]arch.RegID, len(sig.Params))
	copy(regs, argOrder[:len(sig.Params)])

	align := c.FrameAlign
	if align == 0 {
		align = 16
	}
	return compiler.FuncDetail{
		Signature: sig,
		ArgRegs:   regs,
		Frame:     compiler.FuncFrame{StackAlign: align},
	}, nil
}

// EmitPrologue writes the classic push-rbp / mov rbp,rsp frame, followed by
// a stack-size reservation when the lowered frame calls for one.
func (c *Convention) EmitPrologue(target *assembler.Assembler, fn *compiler.FuncNode) error {
	if err := target.Emit(PUSHQ, regOperand(BP)); err != nil {
		return err
	}
	if err := target.Emit(MOVQ, regOperand(SP), regOperand(BP)); err != nil {
		return err
	}
	if fn.Detail.Frame.LocalsSize == 0 {
		return nil
	}
	return target.Emit(SUBQ, immOperand(int64(fn.Detail.Frame.LocalsSize)), regOperand(SP))
}

// EmitEpilogue tears down the frame EmitPrologue built and returns.
func (c *Convention) EmitEpilogue(target *assembler.Assembler, fn *compiler.FuncNode) error {
	if err := target.Emit(MOVQ, regOperand(BP), regOperand(SP)); err != nil {
		return err
	}
	if err := target.Emit(POPQ, regOperand(BP)); err != nil {
		return err
	}
	return target.Emit(RET)
}

// EmitInvoke lowers a compiler.InvokeNode to a register-indirect CALL;
// argument/result register placement is the caller's responsibility (this
// convention assigns them on AddFunc/SetArg, not at the call site).
func (c *Convention) EmitInvoke(target *assembler.Assembler, inv *compiler.InvokeNode) error {
	return target.Emit(CALL, regOperand(inv.Target))
}

func regOperand(id arch.RegID) arch.Operand {
	return arch.Operand{
		Sig: arch.MakeSignature(arch.OperandRegister, arch.RegTypeGP, arch.GroupGeneral, 8),
		Reg: id,
	}
}

func immOperand(v int64) arch.Operand {
	return arch.Operand{
		Sig: arch.MakeSignature(arch.OperandImmediate, arch.RegTypeNone, arch.GroupGeneral, 8),
		Imm: v,
	}
}
