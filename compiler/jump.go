package compiler

import (
	"encoding/binary"

	"github.com/gyuseokByeon/asmjit/arch"
	"github.com/gyuseokByeon/asmjit/asm"
	"github.com/gyuseokByeon/asmjit/asmerr"
	"github.com/gyuseokByeon/asmjit/builder"
)

// JumpAnnotation is an unordered, deduplicated set of label targets
// attached to a jump node so a later pass (e.g. a jump-table builder, or an
// allocator computing live-out sets across an indirect branch) can recover
// every possible destination without re-parsing the instruction's operand.
type JumpAnnotation struct {
	targets map[asm.LabelID]struct{}
	order   []asm.LabelID
}

// NewJumpAnnotation creates an empty annotation.
func NewJumpAnnotation() *JumpAnnotation {
	return &JumpAnnotation{targets: make(map[asm.LabelID]struct{})}
}

// AddTarget adds l to the annotation's target set, coalescing duplicates.
func (j *JumpAnnotation) AddTarget(l asm.LabelID) {
	if _, ok := j.targets[l]; ok {
		return
	}
	j.targets[l] = struct{}{}
	j.order = append(j.order, l)
}

// Targets returns every distinct target, in the order first added.
func (j *JumpAnnotation) Targets() []asm.LabelID {
	return append([]asm.LabelID(nil), j.order...)
}

// EmitAnnotatedJump appends a jump node for instID whose single direct
// target is target, tagged with annotation (which may be nil — legal only
// when the allocator can recover the sole target from the operand itself,
// per spec.md §4.5). Direction (forward/backward) is derived from whether
// target is already bound in the attached container at the moment of this
// call.
func (c *Compiler) EmitAnnotatedJump(instID arch.InstID, operands []arch.Operand, target asm.LabelID, annotation *JumpAnnotation) (*builder.Node, error) {
	container := c.Container()
	if container == nil {
		return nil, asmerr.New(asmerr.NotInitialized, "compiler is not attached")
	}
	entry, err := container.LabelEntry(target)
	if err != nil {
		return nil, err
	}
	direction := builder.JumpForward
	if entry.IsBound() {
		direction = builder.JumpBackward
	}
	node := c.AddJump(instID, operands, target, direction)
	if annotation != nil {
		node.SetOpaque(annotation)
	}
	return node, nil
}

// jumpTableMaximumOffset bounds the 32-bit relative offset a jump-table
// entry can hold, mirroring the teacher's asm.JumpTableMaximumOffset guard
// in GolangAsmBaseAssembler.BuildJumpTable.
const jumpTableMaximumOffset = 1 << 31

// NewJumpTable allocates a global-pool constant of len(entries)*4 zero
// bytes and registers a callback (fired once the table's own position in
// the binary is known, i.e. once an Assembler's EmbedConstPool flushes it)
// that fills each 4-byte slot with the little-endian offset of entries[i]
// relative to entries[0] — the same "offset from the first label's initial
// instruction" encoding the teacher's BuildJumpTable produces. Every label
// in entries must be bound before the table's owning pool is flushed.
func (c *Compiler) NewJumpTable(entries []asm.LabelID) (*asm.ConstEntry, error) {
	if len(entries) == 0 {
		return nil, asmerr.New(asmerr.InvalidArgument, "jump table must have at least one entry")
	}
	container := c.Container()
	if container == nil {
		return nil, asmerr.New(asmerr.NotInitialized, "compiler is not attached")
	}
	data := make([]byte, len(entries)*4)
	table := container.GlobalConstPool().AddConst(data, c.cursorOffset())
	table.AddOffsetFinalizedCallback(func(uint64) {
		base, err := container.LabelEntry(entries[0])
		if err != nil || !base.IsBound() {
			return
		}
		buf := table.Bytes()
		for i, lid := range entries {
			e, err := container.LabelEntry(lid)
			if err != nil || !e.IsBound() {
				continue
			}
			delta := e.Offset() - base.Offset()
			if delta >= jumpTableMaximumOffset {
				continue
			}
			binary.LittleEndian.PutUint32(buf[i*4:i*4+4], uint32(delta))
		}
	})
	return table, nil
}
