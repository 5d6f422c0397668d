// Package storage implements the atom storage engine: the layer that
// turns the append-only WAL block stream into a content-addressed object
// database with a single mutable root pointer (spec.md §4 "Atom Storage
// Engine").
package storage

import (
	"sync"

	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/dberrors"
	"github.com/protodb/protodb/pkg/wal"
)

// AtomStorage is the pointer-addressed atom cache sitting directly on top
// of a wal.BlockProvider. It implements atom.Loader, materializing an atom
// on first reference and caching the result so repeated resolution of the
// same pointer (e.g. a shared, un-mutated AVL subtree) never re-reads the
// WAL (spec.md §4.2 "Resolution is cached by pointer").
type AtomStorage struct {
	provider wal.BlockProvider

	mu    sync.Mutex
	cache map[atom.Pointer]atom.Atom
}

// NewAtomStorage wraps a block provider with a pointer cache.
func NewAtomStorage(provider wal.BlockProvider) *AtomStorage {
	return &AtomStorage{
		provider: provider,
		cache:    make(map[atom.Pointer]atom.Atom),
	}
}

// Load implements atom.Loader.
func (s *AtomStorage) Load(p atom.Pointer) (atom.Atom, error) {
	if p.Zero() {
		return nil, nil
	}

	s.mu.Lock()
	if a, ok := s.cache[p]; ok {
		s.mu.Unlock()
		return a, nil
	}
	s.mu.Unlock()

	kind, payload, err := s.provider.Load(p)
	if err != nil {
		return nil, dberrors.Unexpected("wal-load", err)
	}
	a, err := decodeAtom(kind, payload)
	if err != nil {
		return nil, err
	}
	a.SetPointer(p)

	s.mu.Lock()
	s.cache[p] = a
	s.mu.Unlock()
	return a, nil
}

// save walks an atom graph bottom-up, persisting every not-yet-saved
// descendant before the atom itself, and binds each Ref's Pointer in place
// so the parent's own EncodePayload can write it (atom.Encoder.WriteRef
// requires every Ref it touches to already be Saved).
//
// save is idempotent on an already-saved atom (root.Pointer() non-zero):
// it returns the existing pointer without
// re-encoding, since atoms are immutable once first written.
func (s *AtomStorage) save(root atom.Atom) (atom.Pointer, error) {
	if root == nil {
		return atom.Pointer{}, nil
	}
	if p := root.Pointer(); !p.Zero() {
		return p, nil
	}

	for _, ref := range root.Refs() {
		if ref.Empty() || ref.Saved() {
			continue
		}
		child := ref.InMemory()
		if child == nil {
			continue
		}
		childPointer, err := s.save(child)
		if err != nil {
			return atom.Pointer{}, err
		}
		ref.Bind(childPointer)
	}

	payload, err := encodeAtom(root)
	if err != nil {
		return atom.Pointer{}, err
	}
	p, err := s.provider.Append(root.AtomKind(), payload)
	if err != nil {
		return atom.Pointer{}, dberrors.Unexpected("wal-append", err)
	}
	root.SetPointer(p)

	s.mu.Lock()
	s.cache[p] = root
	s.mu.Unlock()
	return p, nil
}

// Sync forces the underlying WAL to durable storage. Called once per
// commit, after every atom in the transaction's write set has been saved
// and before the root pointer is published (spec.md §4.3 "fsync before the
// root pointer is published").
func (s *AtomStorage) Sync() error {
	return s.provider.Sync()
}

func encodeAtom(a atom.Atom) ([]byte, error) {
	enc := atom.NewEncoder()
	if err := a.EncodePayload(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func decodeAtom(kind atom.Kind, payload []byte) (atom.Atom, error) {
	a, err := atom.Construct(kind)
	if err != nil {
		return nil, err
	}
	dec, err := atom.NewDecoder(payload)
	if err != nil {
		return nil, err
	}
	if err := a.DecodePayload(dec); err != nil {
		return nil, dberrors.Corruption("decoding %s payload: %v", kind, err)
	}
	return a, nil
}
