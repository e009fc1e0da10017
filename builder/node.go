// Package builder implements spec.md §4.4: a deferred-lowering Emitter that
// appends Node objects to a doubly-linked graph instead of writing bytes
// immediately, generalizing the teacher's internal/asm/amd64/impl.go
// nodeImpl (a singly-linked, instruction-only node tagged with jump-kind
// flags) to the full node-type enum spec.md §3 describes.
package builder

import (
	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asm"
	"github.com/gyuseokByeon/asmjit/emitter"
)

// Kind discriminates what a Node represents.
type Kind uint8

const (
	KindInstruction Kind = iota
	KindLabel
	KindAlign
	KindEmbedData
	KindEmbedConstPool
	KindComment
	KindSentinel
	KindFunc
	KindFuncRet
	KindInvoke
	KindJump
)

// InstPayload is the operand-level content of a KindInstruction (and, via
// JumpPayload.Inst, a KindJump) node.
type InstPayload struct {
	InstID   arch.InstID
	Operands []arch.Operand
	Options  emitter.Options
}

// AlignPayload is the content of a KindAlign node.
type AlignPayload struct {
	Mode  uint8
	Value uint32
}

// EmbedDataPayload is the content of a KindEmbedData node.
type EmbedDataPayload struct {
	Data []byte
}

// EmbedConstPoolPayload is the content of a KindEmbedConstPool node.
type EmbedConstPoolPayload struct {
	Pool *asm.ConstPool
}

// JumpDirection records whether a JumpNode's target precedes or follows it
// in program order at the time it was created — the forward/backward
// bookkeeping supplemented from the teacher's nodeFlagBackwardJump /
// nodeFlagShortForwardJump (SPEC_FULL.md §4).
type JumpDirection uint8

const (
	JumpDirectionUnknown JumpDirection = iota
	JumpForward
	JumpBackward
)

// JumpPayload is the content of a KindJump node: a normal instruction (whose
// Operands are expected to include one Label operand targeting Target, so
// Finalize's lowering reuses assembler.Assembler.Emit's built-in label
// resolution) plus the short/long-form bookkeeping.
type JumpPayload struct {
	Inst   InstPayload
	Target asm.LabelID
	// ShortFormEligible starts true for a forward jump, mirroring the
	// teacher's short-forward-jump flag. Nothing in this module clears it or
	// consults it: Finalize emits whatever form the InstructionEncoder
	// produces.
	ShortFormEligible bool
	Direction         JumpDirection
}

// Node is one entry in a Builder's graph. Exactly one of the typed payload
// fields is meaningful, selected by Kind; Label/Comment nodes carry their
// data directly; Func/FuncRet/Invoke node data is owned by package compiler
// (which imports builder) and stored here as Opaque to avoid an import
// cycle.
type Node struct {
	kind Kind

	prev, next *Node

	labelID asm.LabelID
	text    string
	opaque  any

	Inst           InstPayload
	Align          AlignPayload
	EmbedData      EmbedDataPayload
	EmbedConstPool EmbedConstPoolPayload
	Jump           JumpPayload
}

func (n *Node) Kind() Kind           { return n.kind }
func (n *Node) Prev() *Node          { return n.prev }
func (n *Node) Next() *Node          { return n.next }
func (n *Node) LabelID() asm.LabelID { return n.labelID }
func (n *Node) Text() string         { return n.text }
func (n *Node) Opaque() any          { return n.opaque }
func (n *Node) SetOpaque(v any)      { n.opaque = v }

func newInstNode(instID arch.InstID, operands []arch.Operand, opts emitter.Options) *Node {
	return &Node{kind: KindInstruction, Inst: InstPayload{InstID: instID, Operands: operands, Options: opts}}
}

func newLabelNode(id asm.LabelID) *Node {
	return &Node{kind: KindLabel, labelID: id}
}

func newAlignNode(mode uint8, value uint32) *Node {
	return &Node{kind: KindAlign, Align: AlignPayload{Mode: mode, Value: value}}
}

func newEmbedDataNode(data []byte) *Node {
	return &Node{kind: KindEmbedData, EmbedData: EmbedDataPayload{Data: data}}
}

func newEmbedConstPoolNode(pool *asm.ConstPool) *Node {
	return &Node{kind: KindEmbedConstPool, EmbedConstPool: EmbedConstPoolPayload{Pool: pool}}
}

func newCommentNode(text string) *Node {
	return &Node{kind: KindComment, text: text}
}

func newSentinelNode() *Node {
	return &Node{kind: KindSentinel}
}

func newJumpNode(instID arch.InstID, operands []arch.Operand, opts emitter.Options, target asm.LabelID, direction JumpDirection) *Node {
	return &Node{kind: KindJump, Jump: JumpPayload{
		Inst:              InstPayload{InstID: instID, Operands: operands, Options: opts},
		Target:            target,
		ShortFormEligible: direction == JumpForward,
		Direction:         direction,
	}}
}

// NewOpaqueNode creates a node of the given Kind (Func/FuncRet/Invoke)
// carrying a compiler-owned payload. Used only by package compiler.
func NewOpaqueNode(kind Kind, opaque any) *Node {
	return &Node{kind: kind, opaque: opaque}
}
