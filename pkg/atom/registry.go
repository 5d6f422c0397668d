package atom

import "github.com/protodb/protodb/pkg/dberrors"

// registry maps an on-disk type tag to a constructor producing a zero-value
// atom of that kind, ready to have DecodePayload called on it. Concrete
// atom kinds register themselves from an init() in their own file, mirroring
// the teacher's "class registry" idiom translated from the original
// source's atom_class_registry (proto_base/common.py).
var registry = map[Kind]func() Atom{}

// Register associates a type tag with a zero-value constructor. Called
// once per kind from package init(); a repeated registration is a
// programming error caught at startup.
func Register(k Kind, ctor func() Atom) {
	if _, exists := registry[k]; exists {
		panic("atom: duplicate registration for kind " + k.String())
	}
	registry[k] = ctor
}

// Construct builds a zero-value atom for the given tag, ready for
// DecodePayload. Unknown tags are corruption: the WAL holds a kind byte
// this process doesn't recognize.
func Construct(k Kind) (Atom, error) {
	ctor, ok := registry[k]
	if !ok {
		return nil, dberrors.Corruption("unknown atom type tag %d", byte(k))
	}
	return ctor(), nil
}
