package collections

import (
	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/dberrors"
)

func init() {
	atom.Register(atom.KindRepeatedKeysDictionary, func() atom.Atom { return &RepeatedKeysDictionary{} })
}

// RepeatedKeysDictionary maps one string key to a Set of values: the
// secondary-index shape used by IndexedSearchPlan and
// IndexedRangeSearchPlan, where a non-unique index key (e.g. an
// order-status value) fans out to every record sharing it (spec.md §4.4
// "Index over a field value -> Set of primary keys").
type RepeatedKeysDictionary struct {
	atom.Base
	Root atom.Ref // -> Dictionary of string -> Set
}

// NewEmptyRepeatedKeysDictionary returns the canonical empty multimap.
func NewEmptyRepeatedKeysDictionary() *RepeatedKeysDictionary {
	return &RepeatedKeysDictionary{Root: atom.NewRef(NewEmptyDictionary())}
}

func (r *RepeatedKeysDictionary) AtomKind() atom.Kind { return atom.KindRepeatedKeysDictionary }
func (r *RepeatedKeysDictionary) Refs() []*atom.Ref   { return []*atom.Ref{&r.Root} }

func (r *RepeatedKeysDictionary) EncodePayload(w *atom.Encoder) error {
	return w.WriteRef(r.Root)
}

func (r *RepeatedKeysDictionary) DecodePayload(d *atom.Decoder) error {
	root, err := d.ReadRef()
	if err != nil {
		return err
	}
	r.Root = root
	return nil
}

func (r *RepeatedKeysDictionary) root(loader atom.Loader) (*Dictionary, error) {
	a, err := r.Root.Resolve(loader)
	if err != nil {
		return nil, err
	}
	dict, ok := a.(*Dictionary)
	if !ok {
		return nil, dberrors.Corruption("repeated-keys root: expected Dictionary, got %T", a)
	}
	return dict, nil
}

// GetAll returns every value bucketed under key, or (nil, false) if the key
// has no bucket at all.
func (r *RepeatedKeysDictionary) GetAll(loader atom.Loader, key string) ([]atom.Ref, bool, error) {
	dict, err := r.root(loader)
	if err != nil {
		return nil, false, err
	}
	bucketAtom, found, err := dict.Get(loader, key)
	if err != nil || !found {
		return nil, false, err
	}
	bucket, ok := bucketAtom.(*Set)
	if !ok {
		return nil, false, dberrors.Corruption("repeated-keys bucket: expected Set, got %T", bucketAtom)
	}
	members, err := bucket.AsIterable(loader)
	if err != nil {
		return nil, false, err
	}
	return members, true, nil
}

// Add inserts value into key's bucket, creating the bucket if absent.
// hasher derives the member's Set membership key (typically a record's
// primary-key hash).
func (r *RepeatedKeysDictionary) Add(loader atom.Loader, hasher MemberHasher, key string, value atom.Atom) (*RepeatedKeysDictionary, error) {
	dict, err := r.root(loader)
	if err != nil {
		return nil, err
	}
	bucket := NewEmptySet()
	if existing, found, err := dict.Get(loader, key); err != nil {
		return nil, err
	} else if found {
		existingSet, ok := existing.(*Set)
		if !ok {
			return nil, dberrors.Corruption("repeated-keys bucket: expected Set, got %T", existing)
		}
		bucket = existingSet
	}
	newBucket, err := bucket.Add(loader, hasher, value)
	if err != nil {
		return nil, err
	}
	newDict, err := dict.Set(loader, key, newBucket)
	if err != nil {
		return nil, err
	}
	return &RepeatedKeysDictionary{Root: atom.NewRef(newDict)}, nil
}

// Remove deletes value from key's bucket; removing the bucket's last member
// removes the key entirely so GetAll correctly reports it as absent.
func (r *RepeatedKeysDictionary) Remove(loader atom.Loader, hasher MemberHasher, key string, value atom.Atom) (*RepeatedKeysDictionary, error) {
	dict, err := r.root(loader)
	if err != nil {
		return nil, err
	}
	existing, found, err := dict.Get(loader, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return r, nil
	}
	bucket, ok := existing.(*Set)
	if !ok {
		return nil, dberrors.Corruption("repeated-keys bucket: expected Set, got %T", existing)
	}
	newBucket, err := bucket.Remove(loader, hasher, value)
	if err != nil {
		return nil, err
	}
	members, err := newBucket.AsIterable(loader)
	if err != nil {
		return nil, err
	}
	var newDict *Dictionary
	if len(members) == 0 {
		newDict, err = dict.Remove(loader, key)
	} else {
		newDict, err = dict.Set(loader, key, newBucket)
	}
	if err != nil {
		return nil, err
	}
	return &RepeatedKeysDictionary{Root: atom.NewRef(newDict)}, nil
}

// Keys returns every bucketed key.
func (r *RepeatedKeysDictionary) Keys(loader atom.Loader) ([]string, error) {
	dict, err := r.root(loader)
	if err != nil {
		return nil, err
	}
	entries, err := dict.AsIterable(loader)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys, nil
}
