// Package arch describes the architecture families this library can target
// and the operand signature encoding shared by every emitter.
package arch

import "fmt"

// ID identifies an instruction set family. Values are wire-stable.
type ID uint8

const (
	Unknown ID = iota
	X86
	X64
	ARM32
	ARM64
)

func (id ID) String() string {
	switch id {
	case X86:
		return "x86"
	case X64:
		return "x64"
	case ARM32:
		return "arm32"
	case ARM64:
		return "arm64"
	default:
		return "unknown"
	}
}

// SubID refines an ID with an instruction-set extension or operating mode.
type SubID uint8

const (
	SubNone SubID = iota
	SubAVX
	SubAVX2
	SubAVX512
	SubAVX512VL
)

// SubThumb is only meaningful when paired with ARM32.
const SubThumb SubID = 8

// Descriptor is the architecture-family triple a CodeContainer is created
// with: the base ID, an extension SubID, and the derived native
// general-purpose register width/count. It is immutable once built.
type Descriptor struct {
	ID       ID
	Sub      SubID
	GPWidth  uint8 // 4 or 8 bytes
	GPCount  uint8
}

// Describe resolves the native GP width/count for a known ID and returns the
// populated Descriptor. It returns ok=false for an unrecognized ID, matching
// spec's invalid-arch failure at CodeContainer.Init.
func Describe(id ID, sub SubID) (Descriptor, bool) {
	switch id {
	case X86:
		return Descriptor{ID: id, Sub: sub, GPWidth: 4, GPCount: 8}, true
	case X64:
		return Descriptor{ID: id, Sub: sub, GPWidth: 8, GPCount: 16}, true
	case ARM32:
		return Descriptor{ID: id, Sub: sub, GPWidth: 4, GPCount: 16}, true
	case ARM64:
		return Descriptor{ID: id, Sub: sub, GPWidth: 8, GPCount: 32}, true
	default:
		return Descriptor{}, false
	}
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s(gp=%dx%d)", d.ID, d.GPWidth, d.GPCount)
}

// OperandType discriminates what kind of value an Operand carries.
type OperandType uint8

const (
	OperandNone OperandType = iota
	OperandRegister
	OperandMemory
	OperandImmediate
	OperandLabel
)

// RegType and RegGroup partition the register namespace so a 32-bit
// Signature can describe any register shape across every supported
// architecture without per-arch enums leaking into the core.
type RegType uint8

const (
	RegTypeNone RegType = iota
	RegTypeGP
	RegTypeVector
	RegTypeMask
	RegTypeFlags
	RegTypeStack
)

type RegGroup uint8

const (
	GroupGeneral RegGroup = iota
	GroupFloat
	GroupVector
	GroupPredicate
)

// Signature packs [op-type:3 | reg-type:5 | reg-group:3 | size:8 | reserved:13]
// as specified: a self-describing 32-bit tag attached to every Operand.
type Signature uint32

// MakeSignature composes a Signature from its constituent fields. sizeBytes
// fills the 8-bit size field (up to 255 bytes, enough for the widest vector
// register in use).
func MakeSignature(op OperandType, rt RegType, grp RegGroup, sizeBytes uint8) Signature {
	return Signature(uint32(op&0x7) |
		uint32(rt&0x1f)<<3 |
		uint32(grp&0x7)<<8 |
		uint32(sizeBytes)<<11)
}

func (s Signature) OperandType() OperandType { return OperandType(s & 0x7) }
func (s Signature) RegType() RegType         { return RegType((s >> 3) & 0x1f) }
func (s Signature) RegGroup() RegGroup       { return RegGroup((s >> 8) & 0x7) }
func (s Signature) Size() uint8              { return uint8((s >> 11) & 0xff) }

// RegID is the 32-bit identifier carried by register and memory-base/index
// operands. The top bit distinguishes a virtual register (assigned by a
// Compiler) from a physical one (meaningful to an InstructionEncoder).
type RegID uint32

const virtualBit RegID = 1 << 31

// NoReg is never a legitimate physical or virtual register id (it has the
// virtual tag bit set but an index no real virtual-register table will ever
// reach). It marks the base/index slot of a memory Operand that does not
// name a register at all — e.g. a constant-pool reference, whose real base
// (a data-segment register, RIP-relative addressing, ...) is an
// encoder-specific convention substituted later by a ConventionLowerer or
// InstructionEncoder, not something package compiler can know.
const NoReg RegID = ^RegID(0)

// VirtualRegID tags id as referring to a virtual register.
func VirtualRegID(id uint32) RegID { return RegID(id) | virtualBit }

// IsVirtual reports whether id was produced by VirtualRegID.
func (id RegID) IsVirtual() bool { return id&virtualBit != 0 }

// Index returns the dense index within whichever table (physical or
// virtual) id belongs to, stripping the virtual tag bit.
func (id RegID) Index() uint32 { return uint32(id &^ virtualBit) }

// InstID is an opaque, architecture-scoped instruction identifier; the
// mapping from InstID to mnemonic/encoding belongs entirely to whichever
// InstructionEncoder a caller installs.
type InstID uint32

// Operand is the architecture-neutral operand shape passed to an
// InstructionEncoder. Which fields are meaningful is determined by
// Sig.OperandType(): Register operands use Reg, Memory operands use
// Reg/Index/Disp, Immediate operands use Imm, and Label operands use Label
// (the underlying value of an asm.LabelID, kept as a plain uint32 here so
// this package does not depend on asm).
type Operand struct {
	Sig   Signature
	Reg   RegID
	Index RegID
	Disp  int64
	Imm   int64
	Label uint32
}
