package storage

import (
	"sync"

	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/collections"
	"github.com/protodb/protodb/pkg/dberrors"
	"github.com/protodb/protodb/pkg/wal"
)

// literalRootKey is the reserved conflict-detection key for the literal
// interning table. It is never a valid named root (named roots come from
// caller-supplied strings through Transaction.Get/Put, and this key can
// never be produced by a caller since it is not a value AsIterable or any
// public API returns), so it cannot collide with a real named root while
// still participating in the same read/write-set validation as one.
const literalRootKey = "\x00literals"

// ObjectSpace is the single mutable root pointer for one storage
// directory: a namespace of named collection roots plus the literal
// interning table, versioned by an in-memory commit log for optimistic
// concurrency (spec.md §4 "a single mutable root pointer").
type ObjectSpace struct {
	provider  wal.BlockProvider
	store     *AtomStorage
	commitLog *CommitLog
	registry  *TransactionRegistry

	mu          sync.RWMutex
	objectRoot  *collections.Dictionary
	literalRoot *collections.HashDictionary
	published   atom.Pointer
}

// Open opens (or creates, if createIfMissing) the storage directory at
// path and recovers the current root, or starts a fresh, empty one.
func Open(path string, createIfMissing bool, opts wal.Options) (*ObjectSpace, error) {
	provider, err := wal.OpenFileBlockProvider(path, createIfMissing, opts)
	if err != nil {
		return nil, err
	}
	store := NewAtomStorage(provider)

	rootPtr, err := provider.CurrentRoot()
	if err != nil {
		return nil, err
	}

	var objectRoot *collections.Dictionary
	var literalRoot *collections.HashDictionary
	if rootPtr.Zero() {
		objectRoot = collections.NewEmptyDictionary()
		literalRoot = collections.NewEmptyHashDictionary()
	} else {
		rootAtom, err := store.Load(rootPtr)
		if err != nil {
			return nil, err
		}
		root, ok := rootAtom.(*atom.RootObject)
		if !ok {
			return nil, dberrors.Corruption("current root pointer resolved to %T, not RootObject", rootAtom)
		}
		objectRoot, literalRoot, err = resolveRoot(store, root)
		if err != nil {
			return nil, err
		}
	}

	return &ObjectSpace{
		provider:    provider,
		store:       store,
		commitLog:   NewCommitLog(0),
		registry:    NewTransactionRegistry(),
		objectRoot:  objectRoot,
		literalRoot: literalRoot,
		published:   rootPtr,
	}, nil
}

func resolveRoot(loader atom.Loader, root *atom.RootObject) (*collections.Dictionary, *collections.HashDictionary, error) {
	objectAtom, err := root.ObjectRoot.Resolve(loader)
	if err != nil {
		return nil, nil, err
	}
	objectRoot, ok := objectAtom.(*collections.Dictionary)
	if !ok {
		return nil, nil, dberrors.Corruption("RootObject.ObjectRoot resolved to %T, not Dictionary", objectAtom)
	}
	literalAtom, err := root.LiteralRoot.Resolve(loader)
	if err != nil {
		return nil, nil, err
	}
	literalRoot, ok := literalAtom.(*collections.HashDictionary)
	if !ok {
		return nil, nil, dberrors.Corruption("RootObject.LiteralRoot resolved to %T, not HashDictionary", literalAtom)
	}
	return objectRoot, literalRoot, nil
}

// Begin starts a read-only transaction against the current snapshot.
func (s *ObjectSpace) Begin() *Transaction {
	s.mu.RLock()
	objectRoot, literalRoot := s.objectRoot, s.literalRoot
	s.mu.RUnlock()

	tx := &Transaction{
		space:       s,
		loader:      s.store,
		objectRoot:  objectRoot,
		literalRoot: literalRoot,
		SnapshotLSN: s.commitLog.SnapshotLSN(),
		readKeys:    make(map[string]struct{}),
	}
	s.registry.Register(tx)
	return tx
}

// BeginWrite starts a writable transaction against the current snapshot.
func (s *ObjectSpace) BeginWrite() *WriteTransaction {
	tx := s.Begin()
	return &WriteTransaction{Transaction: tx, writeKeys: make(map[string]struct{})}
}

// Close flushes and releases the underlying WAL resources.
func (s *ObjectSpace) Close() error {
	return s.provider.Close()
}
