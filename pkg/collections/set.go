package collections

import (
	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/dberrors"
)

func init() {
	atom.Register(atom.KindSet, func() atom.Atom { return &Set{} })
}

// MemberHasher computes the stable membership key for a value stored in a
// Set. Callers supply it because the hash an index key derives from (a
// literal's content hash, a record's primary key, ...) is domain-specific;
// the Set itself only needs a HashDictionary keyed on some int64 (spec.md
// §3 "Set").
type MemberHasher func(atom.Atom) int64

// Set is a HashDictionary whose values double as keys: membership is keyed
// by MemberHasher(value) rather than by an externally supplied int64.
type Set struct {
	atom.Base
	Root atom.Ref // -> HashDictionary of hash(member) -> member
}

// NewEmptySet returns the canonical empty set.
func NewEmptySet() *Set {
	return &Set{Root: atom.NewRef(NewEmptyHashDictionary())}
}

func (s *Set) AtomKind() atom.Kind { return atom.KindSet }
func (s *Set) Refs() []*atom.Ref   { return []*atom.Ref{&s.Root} }

func (s *Set) EncodePayload(w *atom.Encoder) error {
	return w.WriteRef(s.Root)
}

func (s *Set) DecodePayload(d *atom.Decoder) error {
	root, err := d.ReadRef()
	if err != nil {
		return err
	}
	s.Root = root
	return nil
}

func (s *Set) root(loader atom.Loader) (*HashDictionary, error) {
	a, err := s.Root.Resolve(loader)
	if err != nil {
		return nil, err
	}
	hd, ok := a.(*HashDictionary)
	if !ok {
		return nil, dberrors.Corruption("set root: expected HashDictionary, got %T", a)
	}
	return hd, nil
}

// Has reports whether a member with the given hash is present.
func (s *Set) Has(loader atom.Loader, hasher MemberHasher, member atom.Atom) (bool, error) {
	root, err := s.root(loader)
	if err != nil {
		return false, err
	}
	return root.Has(loader, hasher(member))
}

// Add returns a new Set with member present.
func (s *Set) Add(loader atom.Loader, hasher MemberHasher, member atom.Atom) (*Set, error) {
	root, err := s.root(loader)
	if err != nil {
		return nil, err
	}
	newRoot, err := root.SetAt(loader, hasher(member), member)
	if err != nil {
		return nil, err
	}
	return &Set{Root: atom.NewRef(newRoot)}, nil
}

// Remove returns a new Set without a member hashing to hasher(member).
func (s *Set) Remove(loader atom.Loader, hasher MemberHasher, member atom.Atom) (*Set, error) {
	root, err := s.root(loader)
	if err != nil {
		return nil, err
	}
	newRoot, err := root.RemoveKey(loader, hasher(member))
	if err != nil {
		return nil, err
	}
	return &Set{Root: atom.NewRef(newRoot)}, nil
}

// AsIterable returns every member in ascending hash order.
func (s *Set) AsIterable(loader atom.Loader) ([]atom.Ref, error) {
	root, err := s.root(loader)
	if err != nil {
		return nil, err
	}
	entries, err := root.AsIterable(loader)
	if err != nil {
		return nil, err
	}
	members := make([]atom.Ref, 0, len(entries))
	for _, e := range entries {
		members = append(members, e.Value)
	}
	return members, nil
}
