package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asm"
	"github.com/gyuseokByeon/asmjit/assembler"
	"github.com/gyuseokByeon/asmjit/emitter"
)

const nop arch.InstID = 1
const jmpRel32 arch.InstID = 2

type fakeEncoder struct{}

func (fakeEncoder) Encode(dst []byte, instID arch.InstID, operands []arch.Operand, _ emitter.Options) ([]byte, int, uint8, error) {
	switch instID {
	case nop:
		return append(dst, 0x90), -1, 0, nil
	case jmpRel32:
		return append(dst, 0xE9, 0, 0, 0, 0), 1, 4, nil
	default:
		panic("unknown inst")
	}
}

// fakeLowerer is a minimal ConventionLowerer: one argument register per
// parameter, a one-byte nop prologue/epilogue, and a nop standing in for a
// call instruction.
type fakeLowerer struct{}

func (fakeLowerer) Lower(sig FuncSignature) (FuncDetail, error) {
	regs := make([]arch.RegID, len(sig.Params))
	for i := range regs {
		regs[i] = arch.RegID(i)
	}
	return FuncDetail{Signature: sig, ArgRegs: regs, Frame: FuncFrame{LocalsSize: 0}}, nil
}

func (fakeLowerer) EmitPrologue(target *assembler.Assembler, fn *FuncNode) error {
	return target.Emit(nop)
}

func (fakeLowerer) EmitEpilogue(target *assembler.Assembler, fn *FuncNode) error {
	return target.Emit(nop)
}

func (fakeLowerer) EmitInvoke(target *assembler.Assembler, inv *InvokeNode) error {
	return target.Emit(nop)
}

func newContainer(t *testing.T) *asm.CodeContainer {
	t.Helper()
	c, err := asm.NewCodeContainer(arch.X64, arch.SubNone, nil)
	require.NoError(t, err)
	return c
}

func TestCompiler_VirtRegRoundtrip(t *testing.T) {
	c := New(fakeLowerer{})
	sig := arch.MakeSignature(arch.OperandRegister, arch.RegTypeGP, arch.GroupGeneral, 4)

	v := c.NewVirtReg(sig, "counter")
	require.True(t, v.IsVirtual())

	entry, ok := c.VirtRegEntry(v)
	require.True(t, ok)
	require.Equal(t, "counter", entry.Name())

	phys := arch.RegID(3)
	require.False(t, phys.IsVirtual())
}

func TestCompiler_ConstPoolDedupWithinScope(t *testing.T) {
	container := newContainer(t)
	c := New(fakeLowerer{})
	require.NoError(t, c.Attach(container))

	_, err := c.AddFunc(FuncSignature{})
	require.NoError(t, err)

	op1, err := c.NewConst(ScopeLocal, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	op2, err := c.NewConst(ScopeLocal, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	require.Equal(t, op1, op2)
	require.Equal(t, arch.NoReg, op1.Reg)
	require.Equal(t, arch.OperandMemory, op1.Sig.OperandType())

	op3, err := c.NewConst(ScopeLocal, []byte{9, 9, 9, 9, 9})
	require.NoError(t, err)
	require.NotEqual(t, op1.Disp, op3.Disp)
	require.Equal(t, int64(4), op3.Disp)

	require.NoError(t, c.EndFunc())
}

func TestCompiler_FuncInFuncFails(t *testing.T) {
	container := newContainer(t)
	c := New(fakeLowerer{})
	require.NoError(t, c.Attach(container))

	_, err := c.AddFunc(FuncSignature{})
	require.NoError(t, err)

	_, err = c.AddFunc(FuncSignature{})
	require.Error(t, err)
}

func TestCompiler_AddRetOutsideFuncFails(t *testing.T) {
	container := newContainer(t)
	c := New(fakeLowerer{})
	require.NoError(t, c.Attach(container))

	require.Error(t, c.AddRet())
}

func TestCompiler_EndFuncOutsideFuncFails(t *testing.T) {
	container := newContainer(t)
	c := New(fakeLowerer{})
	require.NoError(t, c.Attach(container))

	require.Error(t, c.EndFunc())
}

func TestCompiler_SetArgBindsSlot(t *testing.T) {
	container := newContainer(t)
	c := New(fakeLowerer{})
	require.NoError(t, c.Attach(container))

	params := []arch.Signature{arch.MakeSignature(arch.OperandRegister, arch.RegTypeGP, arch.GroupGeneral, 8)}
	fn, err := c.AddFunc(FuncSignature{Params: params})
	require.NoError(t, err)

	require.NoError(t, c.SetArg(0, arch.RegID(9)))
	require.Equal(t, arch.RegID(9), fn.Detail.ArgRegs[0])
	require.NoError(t, c.EndFunc())
}

func TestCompiler_FinalizeLowersFuncPrologueAndEpilogue(t *testing.T) {
	container := newContainer(t)
	c := New(fakeLowerer{})
	require.NoError(t, c.Attach(container))

	_, err := c.AddFunc(FuncSignature{})
	require.NoError(t, err)
	require.NoError(t, c.AddRet())
	require.NoError(t, c.EndFunc())

	a := assembler.New(fakeEncoder{})
	require.NoError(t, a.Attach(container))
	require.NoError(t, c.Finalize(a))

	// One nop from the prologue and one from the epilogue.
	require.Equal(t, []byte{0x90, 0x90}, a.ActiveSection().Bytes())
}

func TestJumpAnnotation_DeduplicatesTargets(t *testing.T) {
	container := newContainer(t)
	c := New(fakeLowerer{})
	require.NoError(t, c.Attach(container))

	l, err := c.NewLabel()
	require.NoError(t, err)

	ann := NewJumpAnnotation()
	ann.AddTarget(l)
	ann.AddTarget(l)
	require.Len(t, ann.Targets(), 1)
}

func TestCompiler_NewJumpTableFillsOffsetsOnFlush(t *testing.T) {
	container := newContainer(t)
	c := New(fakeLowerer{})
	require.NoError(t, c.Attach(container))

	l0, _ := c.NewLabel()
	l1, _ := c.NewLabel()

	table, err := c.NewJumpTable([]asm.LabelID{l0, l1})
	require.NoError(t, err)

	a := assembler.New(fakeEncoder{})
	require.NoError(t, a.Attach(container))

	text := a.ActiveSection()
	require.NoError(t, a.Bind(l0))
	text.Append(make([]byte, 20))
	require.NoError(t, a.Bind(l1))

	a.EmbedConstPool(container.GlobalConstPool())

	buf := table.Bytes()
	got := uint32(buf[4]) | uint32(buf[5])<<8 | uint32(buf[6])<<16 | uint32(buf[7])<<24
	require.Equal(t, uint32(20), got)
}
