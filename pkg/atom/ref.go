package atom

// Ref is a reference from one atom to another. It may hold a live in-memory
// Atom (a newly created or already-materialized child), a durable Pointer
// to an atom not yet loaded into this transaction (a "lazy" child shared,
// unchanged, from a prior version of the tree), or both once a lazy ref has
// been resolved. A zero Ref represents the absence of a child (e.g. an
// empty AVL subtree).
type Ref struct {
	value   Atom
	pointer Pointer
	hasPtr  bool
}

// NewRef wraps an in-memory atom that may not have been persisted yet.
func NewRef(a Atom) Ref {
	if a == nil {
		return Ref{}
	}
	if p := a.Pointer(); !p.Zero() {
		return Ref{value: a, pointer: p, hasPtr: true}
	}
	return Ref{value: a}
}

// RefFromPointer wraps a durable pointer whose atom has not been loaded.
func RefFromPointer(p Pointer) Ref {
	return Ref{pointer: p, hasPtr: true}
}

// Empty reports whether this Ref points to nothing at all.
func (r Ref) Empty() bool {
	return r.value == nil && !r.hasPtr
}

// Saved reports whether the referenced atom already has a durable pointer.
func (r Ref) Saved() bool {
	return r.hasPtr
}

// Pointer returns the durable pointer. Only valid when Saved() is true.
func (r Ref) Pointer() Pointer {
	return r.pointer
}

// InMemory returns the in-memory atom if one is currently held (it may be
// nil even when Saved() is true, if the ref has never been resolved via
// Loader in this transaction).
func (r Ref) InMemory() Atom {
	return r.value
}

// Resolve returns the referenced atom, loading it through loader if it is
// only known by pointer so far. The result is cached back into the Ref.
func (r *Ref) Resolve(loader Loader) (Atom, error) {
	if r.Empty() {
		return nil, nil
	}
	if r.value != nil {
		return r.value, nil
	}
	a, err := loader.Load(r.pointer)
	if err != nil {
		return nil, err
	}
	r.value = a
	return a, nil
}

// Bind records the pointer assigned to the in-memory value once it has
// been serialized, so subsequent encodes of the parent atom can write it.
func (r *Ref) Bind(p Pointer) {
	r.pointer = p
	r.hasPtr = true
}
