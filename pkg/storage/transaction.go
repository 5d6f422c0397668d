package storage

import (
	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/collections"
	"github.com/protodb/protodb/pkg/dberrors"
)

// Transaction is a read-only snapshot of the object space. Every Get and
// Has records the named root it touched. A WriteTransaction's Commit
// checks those keys, with its write-set, against commits made after its
// snapshot; a read-only Transaction's keys are never checked, and reads
// never block (spec.md §4.3 "optimistic concurrency").
type Transaction struct {
	space *ObjectSpace
	loader atom.Loader

	objectRoot  *collections.Dictionary
	literalRoot *collections.HashDictionary

	SnapshotLSN uint64
	readKeys    map[string]struct{}
}

// Get resolves a named root by key.
func (t *Transaction) Get(name string) (atom.Atom, bool, error) {
	t.readKeys[name] = struct{}{}
	return t.objectRoot.Get(t.loader, name)
}

// Has reports whether a named root exists.
func (t *Transaction) Has(name string) (bool, error) {
	t.readKeys[name] = struct{}{}
	return t.objectRoot.Has(t.loader, name)
}

// Names lists every named root currently present.
func (t *Transaction) Names() ([]string, error) {
	entries, err := t.objectRoot.AsIterable(t.loader)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Key)
	}
	return names, nil
}

// Loader exposes the transaction's snapshot-consistent atom loader, for
// resolving Refs held inside a value returned by Get.
func (t *Transaction) Loader() atom.Loader {
	return t.loader
}

// Close releases the transaction's snapshot, allowing the commit log to
// trim history no transaction can still validate against.
func (t *Transaction) Close() {
	t.space.registry.Unregister(t)
}

// WriteTransaction is a Transaction that accumulates a pending mutation to
// the object space's named roots and literal table, validated and
// published atomically at Commit.
type WriteTransaction struct {
	*Transaction
	writeKeys map[string]struct{}
}

// Put returns an error only if the underlying AVL mutation fails; the new
// binding is staged in-memory until Commit.
func (w *WriteTransaction) Put(name string, value atom.Atom) error {
	next, err := w.objectRoot.Set(w.loader, name, value)
	if err != nil {
		return err
	}
	w.objectRoot = next
	w.writeKeys[name] = struct{}{}
	return nil
}

// Delete removes a named root. It is a no-op if the name is absent.
func (w *WriteTransaction) Delete(name string) error {
	next, err := w.objectRoot.Remove(w.loader, name)
	if err != nil {
		return err
	}
	w.objectRoot = next
	w.writeKeys[name] = struct{}{}
	return nil
}

// InternLiteral returns the canonical *atom.Literal for value, reusing the
// one already stored under this hash in the literal table if present
// (spec.md §3 "Literal" — "the same string always maps to the same
// interned Literal atom"). Unlike Put/Delete this does not touch a named
// root directly, so it is tracked under the reserved literalRootKey for
// conflict detection instead.
func (w *WriteTransaction) InternLiteral(value string) (*atom.Literal, error) {
	hash := atom.LiteralHash(value)
	ref, found, err := w.literalRoot.GetAt(w.loader, hash)
	if err != nil {
		return nil, err
	}
	if found {
		a, err := ref.Resolve(w.loader)
		if err != nil {
			return nil, err
		}
		lit, ok := a.(*atom.Literal)
		if !ok {
			return nil, dberrors.Corruption("literal table entry: expected Literal, got %T", a)
		}
		return lit, nil
	}

	lit := atom.NewLiteral(value)
	next, err := w.literalRoot.SetAt(w.loader, hash, lit)
	if err != nil {
		return nil, err
	}
	w.literalRoot = next
	w.writeKeys[literalRootKey] = struct{}{}
	return lit, nil
}

// Commit validates the transaction's read and write sets against commits
// that landed after its snapshot, then saves and publishes the new root.
// On a validation failure the transaction is left unregistered and no
// state changes; the caller should retry with a fresh WriteTransaction.
func (w *WriteTransaction) Commit() error {
	defer w.space.registry.Unregister(w.Transaction)

	touched := make(map[string]struct{}, len(w.readKeys)+len(w.writeKeys))
	for k := range w.readKeys {
		touched[k] = struct{}{}
	}
	for k := range w.writeKeys {
		touched[k] = struct{}{}
	}
	if conflictKey, ok := w.space.commitLog.Validate(w.SnapshotLSN, touched); !ok {
		return dberrors.CommitValidationFailed("named root %q was modified by a concurrent commit", conflictKey)
	}

	root := atom.NewRootObject(w.objectRoot, w.literalRoot)
	ptr, err := w.space.store.save(root)
	if err != nil {
		return err
	}
	if err := w.space.store.Sync(); err != nil {
		return err
	}

	w.space.mu.Lock()
	current, err := w.space.provider.CurrentRoot()
	if err != nil {
		w.space.mu.Unlock()
		return err
	}
	if current != w.space.published {
		w.space.mu.Unlock()
		return dberrors.CommitValidationFailed("root pointer advanced by another process since this transaction's snapshot")
	}
	if err := w.space.provider.PublishRoot(ptr); err != nil {
		w.space.mu.Unlock()
		return err
	}
	w.space.objectRoot = w.objectRoot
	w.space.literalRoot = w.literalRoot
	w.space.published = ptr
	w.space.mu.Unlock()

	w.space.commitLog.Append(w.writeKeys, w.space.registry.GetMinActiveLSN())
	return nil
}

// Rollback discards the pending mutation. It is always safe to call,
// including after a failed Commit.
func (w *WriteTransaction) Rollback() {
	w.space.registry.Unregister(w.Transaction)
}
