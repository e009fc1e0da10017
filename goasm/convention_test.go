package goasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asm"
	"github.com/gyuseokByeon/asmjit/assembler"
	"github.com/gyuseokByeon/asmjit/compiler"
)

func sig(nParams int) compiler.FuncSignature {
	params := make([]arch.Signature, nParams)
	for i := range params {
		params[i] = arch.MakeSignature(arch.OperandRegister, arch.RegTypeGP, arch.GroupGeneral, 8)
	}
	return compiler.FuncSignature{Params: params}
}

func TestConvention_LowerAssignsArgRegistersInOrder(t *testing.T) {
	c := &Convention{}
	detail, err := c.Lower(sig(3))
	require.NoError(t, err)
	require.Equal(t, []arch.RegID{DI, SI, DX}, detail.ArgRegs)
	require.Equal(t, uint32(16), detail.Frame.StackAlign)
}

func TestConvention_LowerRejectsTooManyArgs(t *testing.T) {
	c := &Convention{}
	_, err := c.Lower(sig(len(argOrder) + 1))
	require.Error(t, err)
}

func TestConvention_LowerHonorsFrameAlignOverride(t *testing.T) {
	c := &Convention{FrameAlign: 32}
	detail, err := c.Lower(sig(0))
	require.NoError(t, err)
	require.Equal(t, uint32(32), detail.Frame.StackAlign)
}

func TestConvention_PrologueEpilogueRoundTrip(t *testing.T) {
	container, err := asm.NewCodeContainer(arch.X64, arch.SubNone, nil)
	require.NoError(t, err)

	enc, err := NewEncoder("amd64")
	require.NoError(t, err)

	a := assembler.New(enc)
	require.NoError(t, a.Attach(container))

	conv := &Convention{}
	detail, err := conv.Lower(sig(0))
	require.NoError(t, err)
	fn := &compiler.FuncNode{Detail: detail}

	require.NoError(t, conv.EmitPrologue(a, fn))
	require.NoError(t, conv.EmitEpilogue(a, fn))

	require.NotEmpty(t, a.ActiveSection().Bytes())
}

func TestConvention_EmitInvokeEmitsCall(t *testing.T) {
	container, err := asm.NewCodeContainer(arch.X64, arch.SubNone, nil)
	require.NoError(t, err)

	enc, err := NewEncoder("amd64")
	require.NoError(t, err)

	a := assembler.New(enc)
	require.NoError(t, a.Attach(container))

	conv := &Convention{}
	require.NoError(t, conv.EmitInvoke(a, &compiler.InvokeNode{Target: R10}))
	require.NotEmpty(t, a.ActiveSection().Bytes())
}
