package compiler

import (
	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asmerr"
	"github.com/gyuseokByeon/asmjit/assembler"
	"github.com/gyuseokByeon/asmjit/builder"
)

// AddInvoke appends a KindInvoke node describing a call through target with
// the given argument/result registers; legal in either state, matching
// spec.md's general Emitter emit-permission rule (idle or open).
func (c *Compiler) AddInvoke(target arch.RegID, args, results []arch.RegID) *builder.Node {
	return c.AddOpaque(builder.NewOpaqueNode(builder.KindInvoke, &InvokeNode{Target: target, Args: args, Results: results}))
}

// Finalize walks the graph head-to-tail and re-emits every node onto
// target, exactly like builder.Builder.Finalize, except that it also knows
// how to lower the compiler-owned KindFunc/KindFuncRet/KindInvoke nodes by
// delegating to the installed ConventionLowerer — the one extension point
// builder.Builder.Finalize deliberately refuses (see its own doc comment).
func (c *Compiler) Finalize(target *assembler.Assembler) error {
	if c.Container() == nil {
		return asmerr.New(asmerr.NotInitialized, "compiler is not attached")
	}
	for n := c.Head(); n != nil; n = n.Next() {
		switch n.Kind() {
		case builder.KindFunc:
			fn := n.Opaque().(*FuncNode)
			if c.lowerer == nil {
				return asmerr.New(asmerr.NotInitialized, "no ConventionLowerer installed")
			}
			if err := c.lowerer.EmitPrologue(target, fn); err != nil {
				return err
			}
		case builder.KindFuncRet:
			fn := n.Opaque().(*FuncNode)
			if err := c.lowerer.EmitEpilogue(target, fn); err != nil {
				return err
			}
		case builder.KindInvoke:
			inv := n.Opaque().(*InvokeNode)
			if err := c.lowerer.EmitInvoke(target, inv); err != nil {
				return err
			}
		default:
			if err := c.lowerNonCompilerNode(target, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// lowerNonCompilerNode handles every node kind builder.Builder.Finalize
// already knows how to lower; it is duplicated in miniature here (rather
// than calling builder.Builder.Finalize, which would re-walk the whole
// graph from the head) since Go has no way to invoke "the rest of an
// overridden method" on an embedded type.
func (c *Compiler) lowerNonCompilerNode(target *assembler.Assembler, n *builder.Node) error {
	switch n.Kind() {
	case builder.KindInstruction:
		return target.Emit(n.Inst.InstID, n.Inst.Operands...)
	case builder.KindJump:
		return target.Emit(n.Jump.Inst.InstID, n.Jump.Inst.Operands...)
	case builder.KindLabel:
		return target.Bind(n.LabelID())
	case builder.KindAlign:
		return target.Align(n.Align.Mode, n.Align.Value)
	case builder.KindEmbedData:
		target.Embed(n.EmbedData.Data)
		return nil
	case builder.KindEmbedConstPool:
		target.EmbedConstPool(n.EmbedConstPool.Pool)
		return nil
	case builder.KindComment:
		target.Comment(n.Text())
		return nil
	case builder.KindSentinel:
		return nil
	default:
		return asmerr.New(asmerr.InvalidArgument, "unknown node kind %d", n.Kind())
	}
}
