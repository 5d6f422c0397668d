package atom

// Kind is the stable on-disk type tag every concrete atom carries. Values
// are never renumbered once shipped: the tag byte is part of the durable
// wire format (spec.md §6 "Atom record on disk").
type Kind byte

const (
	KindRootObject Kind = iota + 1
	KindLiteral
	KindDictionaryItem
	KindHashDictionary
	KindDictionary
	KindList
	KindSet
	KindRepeatedKeysDictionary
	KindUserRecord
	KindParentLink
)

func (k Kind) String() string {
	switch k {
	case KindRootObject:
		return "RootObject"
	case KindLiteral:
		return "Literal"
	case KindDictionaryItem:
		return "DictionaryItem"
	case KindHashDictionary:
		return "HashDictionary"
	case KindDictionary:
		return "Dictionary"
	case KindList:
		return "List"
	case KindSet:
		return "Set"
	case KindRepeatedKeysDictionary:
		return "RepeatedKeysDictionary"
	case KindUserRecord:
		return "UserRecord"
	case KindParentLink:
		return "ParentLink"
	default:
		return "Unknown"
	}
}

// State is the lifecycle stage of an in-memory atom (spec.md §3).
type State int

const (
	// StateNew atoms have no pointer yet: they exist only in the current
	// transaction's staging area.
	StateNew State = iota
	// StateLoaded atoms have a pointer and materialized fields.
	StateLoaded
	// StateLazy atoms have a pointer but fields are not yet materialized;
	// the first attribute access triggers Materialize.
	StateLazy
)

// Atom is the base unit of persistence. Every concrete atom kind
// (RootObject, Literal, DictionaryItem, the collection node types, …)
// implements it. Atoms are immutable once first written: Encode is only
// ever called on an atom that is about to be serialized for the first
// time.
type Atom interface {
	// AtomKind returns this atom's stable type tag.
	AtomKind() Kind

	// Pointer returns the durable pointer assigned at commit, or the zero
	// Pointer if the atom is still new (unsaved).
	Pointer() Pointer

	// SetPointer assigns the durable pointer once the atom has been
	// serialized and flushed. Called exactly once per atom.
	SetPointer(p Pointer)

	// State reports whether the atom is new, loaded or lazy.
	State() State

	// Refs returns every child reference this atom holds, in a stable
	// order, so the storage layer can walk the atom graph for save and
	// cycle-safe traversal without needing per-kind knowledge.
	Refs() []*Ref

	// EncodePayload writes this atom's kind-specific payload (not
	// including the shared length/tag framing) assuming every Ref in
	// Refs() already carries a resolved Pointer.
	EncodePayload(w *Encoder) error

	// DecodePayload reconstructs this atom's fields from a payload
	// previously produced by EncodePayload. The atom's own pointer has
	// already been set by the caller.
	DecodePayload(d *Decoder) error
}

// Loader resolves a durable Pointer to its in-memory Atom, materializing it
// on demand. Implementations are expected to cache by pointer (spec.md
// §4.2 "Resolution is cached by pointer").
type Loader interface {
	Load(p Pointer) (Atom, error)
}

// Base is embedded by every concrete atom type to provide the common
// pointer/state bookkeeping so kind-specific types only implement the
// fields that matter to them.
type Base struct {
	pointer Pointer
	hasPtr  bool
	lazy    bool
}

func (b *Base) Pointer() Pointer { return b.pointer }

func (b *Base) SetPointer(p Pointer) {
	b.pointer = p
	b.hasPtr = true
}

func (b *Base) State() State {
	switch {
	case !b.hasPtr:
		return StateNew
	case b.lazy:
		return StateLazy
	default:
		return StateLoaded
	}
}

func (b *Base) markLazy()   { b.lazy = true }
func (b *Base) markLoaded() { b.lazy = false }
