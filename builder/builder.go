package builder

import (
	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asm"
	"github.com/gyuseokByeon/asmjit/asmerr"
	"github.com/gyuseokByeon/asmjit/assembler"
	"github.com/gyuseokByeon/asmjit/emitter"
	"github.com/gyuseokByeon/asmjit/internal/arena"
)

// Pass is a named graph-rewrite step: it receives the Builder (for graph
// traversal/mutation), a scratch arena it may use freely (discarded after
// the pass returns), and the Builder's installed Logger.
type Pass func(b *Builder, scratch *arena.Arena, logger Logger)

// Builder appends Node objects to a doubly-linked graph rather than writing
// bytes immediately; it generalizes the teacher's per-function nodeImpl
// list (internal/asm/amd64/impl.go) into a standalone, re-lowerable
// emitter.
type Builder struct {
	emitter.Base

	head, tail *Node
	cursor     *Node

	logger Logger
}

// New creates an empty, unattached Builder.
func New() *Builder {
	b := &Builder{logger: discardLogger}
	b.Init(b)
	return b
}

// Attach binds b to container c as one of (potentially many) Builder-family
// emitters.
func (b *Builder) Attach(c *asm.CodeContainer) error {
	if err := b.AttachTo(c); err != nil {
		return err
	}
	if err := c.AttachBuilder(b); err != nil {
		b.Base.Detach()
		return err
	}
	return nil
}

// Detach releases b from its container.
func (b *Builder) Detach() error {
	c := b.Container()
	if c == nil {
		return nil
	}
	if err := c.DetachBuilder(b); err != nil {
		return err
	}
	b.Base.Detach()
	return nil
}

// SetLogger installs the Logger passes receive; passing nil restores the
// discard logger.
func (b *Builder) SetLogger(l Logger) {
	if l == nil {
		l = discardLogger
	}
	b.logger = l
}

// Logger returns the currently installed Logger (never nil).
func (b *Builder) Logger() Logger { return b.logger }

// Head returns the first node of the graph, or nil if empty.
func (b *Builder) Head() *Node { return b.head }

// Tail returns the last node of the graph, or nil if empty.
func (b *Builder) Tail() *Node { return b.tail }

// Cursor returns the current insertion point; Add* operations append
// immediately after it (or at the head, if nil).
func (b *Builder) Cursor() *Node { return b.cursor }

// SetCursor repositions the insertion point to n, which must already belong
// to this graph (or be nil, to reset to "insert at head").
func (b *Builder) SetCursor(n *Node) { b.cursor = n }

// AddAfter splices n into the graph immediately after ref. ref == nil
// inserts at the head.
func (b *Builder) AddAfter(ref, n *Node) {
	if ref == nil {
		n.prev, n.next = nil, b.head
		if b.head != nil {
			b.head.prev = n
		}
		b.head = n
		if b.tail == nil {
			b.tail = n
		}
		return
	}
	n.prev, n.next = ref, ref.next
	if ref.next != nil {
		ref.next.prev = n
	} else {
		b.tail = n
	}
	ref.next = n
}

// AddBefore splices n into the graph immediately before ref. ref == nil
// inserts at the tail.
func (b *Builder) AddBefore(ref, n *Node) {
	if ref == nil {
		n.next, n.prev = nil, b.tail
		if b.tail != nil {
			b.tail.next = n
		}
		b.tail = n
		if b.head == nil {
			b.head = n
		}
		return
	}
	n.next, n.prev = ref, ref.prev
	if ref.prev != nil {
		ref.prev.next = n
	} else {
		b.head = n
	}
	ref.prev = n
}

// add appends n at the cursor and advances the cursor to n, the shape every
// add_X convenience method shares.
func (b *Builder) add(n *Node) *Node {
	b.AddAfter(b.cursor, n)
	b.cursor = n
	return n
}

// Remove unlinks n from the graph. It is a no-op if n is not linked.
func (b *Builder) Remove(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if b.head == n {
		b.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if b.tail == n {
		b.tail = n.prev
	}
	if b.cursor == n {
		b.cursor = n.prev
	}
	n.prev, n.next = nil, nil
}

// RemoveRange unlinks every node from first through last (inclusive),
// walking forward via Next; first and last must belong to this graph with
// first at or before last.
func (b *Builder) RemoveRange(first, last *Node) {
	n := first
	for n != nil {
		next := n.next
		b.Remove(n)
		if n == last {
			break
		}
		n = next
	}
}

// RunPass executes p against b, logging entry/exit through b's Logger.
func (b *Builder) RunPass(name string, p Pass) {
	scratch := arena.New()
	b.logger.Printf("pass %s: start", name)
	p(b, scratch, b.logger)
	b.logger.Printf("pass %s: done", name)
}

// --- new_X / add_X pairs -----------------------------------------------------

func (b *Builder) NewInstruction(instID arch.InstID, operands ...arch.Operand) *Node {
	opts, _, _, _ := b.ResolveNextInstruction()
	n := newInstNode(instID, operands, opts)
	b.ClearPerInstructionState()
	return n
}

func (b *Builder) AddInstruction(instID arch.InstID, operands ...arch.Operand) *Node {
	return b.add(b.NewInstruction(instID, operands...))
}

func (b *Builder) NewLabelNode(id asm.LabelID) *Node { return newLabelNode(id) }
func (b *Builder) AddLabelNode(id asm.LabelID) *Node { return b.add(newLabelNode(id)) }

func (b *Builder) NewAlign(mode uint8, value uint32) *Node { return newAlignNode(mode, value) }
func (b *Builder) AddAlign(mode uint8, value uint32) *Node {
	return b.add(newAlignNode(mode, value))
}

func (b *Builder) NewEmbed(data []byte) *Node { return newEmbedDataNode(data) }
func (b *Builder) AddEmbed(data []byte) *Node { return b.add(newEmbedDataNode(data)) }

func (b *Builder) NewEmbedConstPool(pool *asm.ConstPool) *Node { return newEmbedConstPoolNode(pool) }
func (b *Builder) AddEmbedConstPool(pool *asm.ConstPool) *Node {
	return b.add(newEmbedConstPoolNode(pool))
}

func (b *Builder) NewComment(text string) *Node { return newCommentNode(text) }
func (b *Builder) AddComment(text string) *Node { return b.add(newCommentNode(text)) }

func (b *Builder) NewSentinel() *Node { return newSentinelNode() }
func (b *Builder) AddSentinel() *Node { return b.add(newSentinelNode()) }

// NewJump and AddJump create a KindJump node; direction is supplied by the
// caller (typically package compiler, which knows whether Target has
// already been bound in this graph) since a Builder alone cannot tell
// without a label-bound-at-node-creation-time side table.
func (b *Builder) NewJump(instID arch.InstID, operands []arch.Operand, target asm.LabelID, direction JumpDirection) *Node {
	opts, _, _, _ := b.ResolveNextInstruction()
	n := newJumpNode(instID, operands, opts, target, direction)
	b.ClearPerInstructionState()
	return n
}

func (b *Builder) AddJump(instID arch.InstID, operands []arch.Operand, target asm.LabelID, direction JumpDirection) *Node {
	return b.add(b.NewJump(instID, operands, target, direction))
}

// AddOpaque appends a pre-built node (typically one created by package
// compiler via NewOpaqueNode) at the cursor.
func (b *Builder) AddOpaque(n *Node) *Node { return b.add(n) }

// --- Finalize -----------------------------------------------------------------

// Finalize walks the graph head-to-tail and re-emits every node onto target,
// an Assembler already attached to the same container. It is idempotent
// only so long as the graph is unchanged between calls, per spec.md §4.4.
func (b *Builder) Finalize(target *assembler.Assembler) error {
	if b.Container() == nil {
		return asmerr.New(asmerr.NotInitialized, "builder is not attached")
	}
	for n := b.head; n != nil; n = n.next {
		if err := b.lower(target, n); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) lower(target *assembler.Assembler, n *Node) error {
	switch n.kind {
	case KindInstruction:
		return target.Emit(n.Inst.InstID, n.Inst.Operands...)
	case KindJump:
		return target.Emit(n.Jump.Inst.InstID, n.Jump.Inst.Operands...)
	case KindLabel:
		return target.Bind(n.labelID)
	case KindAlign:
		return target.Align(n.Align.Mode, n.Align.Value)
	case KindEmbedData:
		target.Embed(n.EmbedData.Data)
		return nil
	case KindEmbedConstPool:
		target.EmbedConstPool(n.EmbedConstPool.Pool)
		return nil
	case KindComment:
		target.Comment(n.text)
		return nil
	case KindSentinel:
		return nil
	case KindFunc, KindFuncRet, KindInvoke:
		// Lowered by package compiler's own Finalize override, which knows
		// how to expand these opaque nodes into prologue/epilogue/call
		// instruction sequences via a ConventionLowerer; a bare Builder
		// graph containing one of these node kinds was built incorrectly.
		return asmerr.New(asmerr.InvalidArgument, "builder cannot lower compiler-owned node kind %d directly", n.kind)
	default:
		return asmerr.New(asmerr.InvalidArgument, "unknown node kind %d", n.kind)
	}
}
