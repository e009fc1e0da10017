package compiler

import "github.com/gyuseokByeon/asmjit/arch"

// VirtRegEntry is the container-scoped record for one virtual register,
// addressed by the arch.RegID that NewVirtReg/NewStack return (that id's
// Index() is this entry's position in Compiler.virtRegs).
//
// Its id-packing mirrors internal/engine/wazevo/backend/regalloc.VReg:
// wazero packs a dense id and a RealReg tag into one uint64 and tests
// IsRealReg() by comparing against a sentinel; here the same shape is
// expressed as arch.RegID's top bit (VirtualRegID/IsVirtual) rather than a
// reserved sentinel value, since this module only ever needs a binary
// virtual/physical distinction, not a third "unassigned real reg" state.
type VirtRegEntry struct {
	id   uint32
	sig  arch.Signature
	name string

	isStack    bool
	stackSize  uint32
	stackAlign uint32
}

func (e *VirtRegEntry) ID() uint32                { return e.id }
func (e *VirtRegEntry) Signature() arch.Signature { return e.sig }
func (e *VirtRegEntry) Name() string              { return e.name }
func (e *VirtRegEntry) IsStack() bool             { return e.isStack }
func (e *VirtRegEntry) StackSize() uint32         { return e.stackSize }
func (e *VirtRegEntry) StackAlign() uint32        { return e.stackAlign }

// NewVirtReg allocates a new virtual register and returns the arch.RegID
// operands should carry to refer to it. Once created, the entry lives until
// the Compiler is discarded (there is no individual free, matching spec.md
// §5's arena lifetime rule generalized to this per-Compiler table).
func (c *Compiler) NewVirtReg(sig arch.Signature, name string) arch.RegID {
	idx := c.virtRegs.Append(VirtRegEntry{sig: sig, name: name})
	e, _ := c.virtRegs.At(idx)
	e.id = idx
	return arch.VirtualRegID(idx)
}

// NewStack allocates a VirtReg tagged stack-only: a lowering pass or
// allocator must reject any attempt to use it as a general-purpose
// register operand.
func (c *Compiler) NewStack(size, alignment uint32, name string) arch.RegID {
	idx := c.virtRegs.Append(VirtRegEntry{
		sig:        arch.MakeSignature(arch.OperandMemory, arch.RegTypeStack, arch.GroupGeneral, 0),
		name:       name,
		isStack:    true,
		stackSize:  size,
		stackAlign: alignment,
	})
	e, _ := c.virtRegs.At(idx)
	e.id = idx
	return arch.VirtualRegID(idx)
}

// VirtRegEntry looks up the entry backing id, failing if id is not a
// virtual register created by this Compiler.
func (c *Compiler) VirtRegEntry(id arch.RegID) (*VirtRegEntry, bool) {
	if !id.IsVirtual() {
		return nil, false
	}
	return c.virtRegs.At(id.Index())
}

// IsStackOnly reports whether id was created by NewStack — the hard
// constraint spec.md §4.5 places on the allocator ("must never appear
// where a general-purpose register is expected").
func (c *Compiler) IsStackOnly(id arch.RegID) bool {
	e, ok := c.VirtRegEntry(id)
	return ok && e.isStack
}
