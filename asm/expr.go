package asm

import "github.com/gyuseokByeon/asmjit/asmerr"

// ExprOp is the binary operator of an Expression node.
type ExprOp uint8

const (
	ExprAdd ExprOp = iota
	ExprSub
	ExprShl
	ExprAnd
)

// ExprSlotKind discriminates what an ExprSlot holds.
type ExprSlotKind uint8

const (
	SlotNone ExprSlotKind = iota
	SlotImmediate
	SlotLabel
	SlotExpr
)

// ExprSlot is one of the (up to two) typed operands of an Expression.
type ExprSlot struct {
	Kind  ExprSlotKind
	Imm   int64
	Label LabelID
	Expr  *Expression
}

func ImmSlot(v int64) ExprSlot        { return ExprSlot{Kind: SlotImmediate, Imm: v} }
func LabelSlot(id LabelID) ExprSlot   { return ExprSlot{Kind: SlotLabel, Label: id} }
func ExprSlotOf(e *Expression) ExprSlot { return ExprSlot{Kind: SlotExpr, Expr: e} }

// Expression is a small fixed-arity binary-op tree used by RelocExpression
// entries (embed_label_delta and similar cross-section constructs).
type Expression struct {
	Op   ExprOp
	A, B ExprSlot
}

// NewExpression allocates an Expression node as a plain heap value, not a
// Vector/handle table entry. Unlike LabelEntry/LabelLink/RelocEntry it
// never takes part in the label/link/relocation cycle: a RelocEntry owns
// its Expression outright (payloadExpr), nothing holds a pointer back into
// an Expression, and nothing else shares ownership of one, so there is no
// cycle here for handle-based addressing to break up. See DESIGN.md.
func NewExpression(op ExprOp, a, b ExprSlot) *Expression {
	return &Expression{Op: op, A: a, B: b}
}

// collectLabels appends every LabelID reachable from e (recursing through
// nested expressions) to out.
func (e *Expression) collectLabels(out []LabelID) []LabelID {
	for _, slot := range [2]ExprSlot{e.A, e.B} {
		switch slot.Kind {
		case SlotLabel:
			out = append(out, slot.Label)
		case SlotExpr:
			out = slot.Expr.collectLabels(out)
		}
	}
	return out
}

// evaluate resolves e to a concrete 64-bit value. resolveLabel turns a bound
// label into base + section.offset + entry.offset (per spec.md §4.1); it is
// supplied by CodeContainer.RelocateToBase so Expression stays free of any
// container dependency.
func (e *Expression) evaluate(resolveLabel func(LabelID) (int64, error)) (int64, error) {
	a, err := e.A.evaluate(resolveLabel)
	if err != nil {
		return 0, err
	}
	b, err := e.B.evaluate(resolveLabel)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case ExprAdd:
		return a + b, nil
	case ExprSub:
		return a - b, nil
	case ExprShl:
		return a << uint(b), nil
	case ExprAnd:
		return a & b, nil
	default:
		return 0, asmerr.New(asmerr.InvalidArgument, "unknown expression op %d", e.Op)
	}
}

func (s ExprSlot) evaluate(resolveLabel func(LabelID) (int64, error)) (int64, error) {
	switch s.Kind {
	case SlotImmediate:
		return s.Imm, nil
	case SlotLabel:
		return resolveLabel(s.Label)
	case SlotExpr:
		return s.Expr.evaluate(resolveLabel)
	case SlotNone:
		return 0, nil
	default:
		return 0, asmerr.New(asmerr.InvalidArgument, "unknown expression slot kind %d", s.Kind)
	}
}
