package asm

// LabelID is a dense, opaque, container-scoped label identifier. Ids are
// never reused within a container's lifetime.
type LabelID uint32

// LabelType distinguishes how a label may be looked up and reused.
type LabelType uint8

const (
	LabelAnonymous LabelType = iota
	LabelLocal
	LabelGlobal
	LabelExternal
)

const (
	unboundSection = ^SectionID(0)

	// noLabelLink is the "end of list" / "no pending links" sentinel for
	// LabelEntry.links and LabelLink.next. It is never a valid index into
	// CodeContainer.links.
	noLabelLink = ^LabelLinkID(0)
)

// LabelLinkID is the arena handle for a pending LabelLink: a plain integer
// index into CodeContainer.links, never a pointer. LabelEntry, LabelLink and
// RelocEntry form a cycle (a link can name a RelocEntry, a bound label
// resolves links that may point back into that same label's own chain via
// Expression payloads); per spec.md §9 that cycle is owned by one arena and
// addressed by handles, not by back-pointers, so the chain is built from
// LabelLinkIDs rather than *LabelLink.
type LabelLinkID uint32

// LabelEntry is the container-owned record for a single label. It starts
// unbound (Section == unboundSection) and is mutated exactly once, by
// CodeContainer.BindLabel.
type LabelEntry struct {
	id      LabelID
	typ     LabelType
	parent  LabelID
	hasName bool
	name    string

	section SectionID
	offset  uint64

	links LabelLinkID
}

func (e *LabelEntry) ID() LabelID      { return e.id }
func (e *LabelEntry) Type() LabelType  { return e.typ }
func (e *LabelEntry) Name() string     { return e.name }
func (e *LabelEntry) IsBound() bool    { return e.section != unboundSection }
func (e *LabelEntry) Section() SectionID { return e.section }
func (e *LabelEntry) Offset() uint64   { return e.offset }

// LabelLink is a pending forward reference to a not-yet-bound label. Links
// form a singly-linked list rooted at LabelEntry.links and threaded through
// CodeContainer.links by LabelLinkID, not by pointer; the list is walked and
// the nodes abandoned in place (the arena reclaims them wholesale on Reset)
// the moment the label is bound (CodeContainer.BindLabel).
type LabelLink struct {
	next LabelLinkID

	target        LabelID
	sourceSection SectionID
	sourceOffset  uint64
	relBase       uint64
	width         uint8

	// hasReloc/relocID: when set, this link cooperates with a RelocEntry for
	// absolute (cross-section) encoding instead of an immediate in-place
	// patch; see CodeContainer.BindLabel.
	hasReloc bool
	relocID  RelocID
}

type labelKey struct {
	parent LabelID
	name   string
}
