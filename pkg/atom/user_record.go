package atom

import "sort"

func init() {
	Register(KindUserRecord, func() Atom { return &UserRecord{Attributes: map[string]*Ref{}} })
}

// UserRecord is an untyped, schema-less user value: a bag of named
// attributes plus an optional chain of ParentLinks consulted on a
// first-match-wins basis when an attribute is absent locally (spec.md §3
// "Ownership", §9 design note on parent-link attribute resolution).
//
// Attributes is keyed by *Ref rather than Ref so that Refs() can hand the
// storage layer live pointers into the map: once a child is saved, its
// assigned Pointer is written back through that pointer, not into a
// throwaway copy.
type UserRecord struct {
	Base
	Attributes map[string]*Ref
	Parent     Ref // -> ParentLink, empty if this record has no parents
}

func NewUserRecord(attributes map[string]Atom) *UserRecord {
	r := &UserRecord{Attributes: make(map[string]*Ref, len(attributes))}
	for k, v := range attributes {
		ref := NewRef(v)
		r.Attributes[k] = &ref
	}
	return r
}

func (r *UserRecord) AtomKind() Kind { return KindUserRecord }

func (r *UserRecord) sortedNames() []string {
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *UserRecord) Refs() []*Ref {
	keys := r.sortedNames()
	refs := make([]*Ref, 0, len(keys)+1)
	for _, k := range keys {
		refs = append(refs, r.Attributes[k])
	}
	refs = append(refs, &r.Parent)
	return refs
}

func (r *UserRecord) EncodePayload(w *Encoder) error {
	keys := r.sortedNames()
	w.WriteUint32(uint32(len(keys)))
	for _, k := range keys {
		w.WriteString(k)
		if err := w.WriteRef(*r.Attributes[k]); err != nil {
			return err
		}
	}
	return w.WriteRef(r.Parent)
}

func (r *UserRecord) DecodePayload(d *Decoder) error {
	n, err := d.ReadUint32()
	if err != nil {
		return err
	}
	attrs := make(map[string]*Ref, n)
	for i := uint32(0); i < n; i++ {
		name, err := d.ReadString()
		if err != nil {
			return err
		}
		ref, err := d.ReadRef()
		if err != nil {
			return err
		}
		attrs[name] = &ref
	}
	parent, err := d.ReadRef()
	if err != nil {
		return err
	}
	r.Attributes = attrs
	r.Parent = parent
	return nil
}

// GetAttribute resolves an attribute by name, walking the record's own
// attributes first and then its ParentLink chain, first-match-wins.
func (r *UserRecord) GetAttribute(name string, loader Loader) (Atom, bool, error) {
	if ref, ok := r.Attributes[name]; ok {
		a, err := ref.Resolve(loader)
		if err != nil {
			return nil, false, err
		}
		return a, true, nil
	}
	parentRef := r.Parent
	for !parentRef.Empty() {
		pa, err := parentRef.Resolve(loader)
		if err != nil {
			return nil, false, err
		}
		pl, ok := pa.(*ParentLink)
		if !ok {
			return nil, false, nil
		}
		rec, err := pl.Record.Resolve(loader)
		if err != nil {
			return nil, false, err
		}
		if ur, ok := rec.(*UserRecord); ok {
			if ref, ok := ur.Attributes[name]; ok {
				a, err := ref.Resolve(loader)
				if err != nil {
					return nil, false, err
				}
				return a, true, nil
			}
		}
		parentRef = pl.Parent
	}
	return nil, false, nil
}

// WithAttribute returns a new UserRecord with name set to value, sharing
// every other attribute (structural sharing of the map's entries; the map
// itself is shallow-copied because Go maps have no persistent/immutable
// variant).
func (r *UserRecord) WithAttribute(name string, value Atom) *UserRecord {
	next := &UserRecord{Attributes: make(map[string]*Ref, len(r.Attributes)+1), Parent: r.Parent}
	for k, v := range r.Attributes {
		next.Attributes[k] = v
	}
	ref := NewRef(value)
	next.Attributes[name] = &ref
	return next
}

// WithParent returns a new UserRecord sharing this record's own attributes
// but prepending newParent to the ParentLink chain (spec.md §9 "_add_parent").
func (r *UserRecord) WithParent(newParent *UserRecord) *UserRecord {
	link := &ParentLink{Parent: r.Parent, Record: NewRef(newParent)}
	next := &UserRecord{Attributes: r.Attributes, Parent: NewRef(link)}
	return next
}
