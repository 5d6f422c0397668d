package collections

import (
	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/dberrors"
)

func init() {
	atom.Register(atom.KindDictionary, func() atom.Atom { return &Dictionary{} })
}

// Dictionary is a string-keyed map. The backing storage is a
// HashDictionary keyed by the key string's stable literal hash, so two
// dictionaries sharing a key string use the same slot key. Keys are not
// interned: every Set stores a fresh Literal atom holding the key string.
type Dictionary struct {
	atom.Base
	Root atom.Ref // -> HashDictionary of hash(key) -> DictionaryItem
}

// NewEmptyDictionary returns the canonical empty string-keyed dictionary.
func NewEmptyDictionary() *Dictionary {
	return &Dictionary{Root: atom.NewRef(NewEmptyHashDictionary())}
}

func (d *Dictionary) AtomKind() atom.Kind { return atom.KindDictionary }
func (d *Dictionary) Refs() []*atom.Ref   { return []*atom.Ref{&d.Root} }

func (d *Dictionary) EncodePayload(w *atom.Encoder) error {
	return w.WriteRef(d.Root)
}

func (d *Dictionary) DecodePayload(dec *atom.Decoder) error {
	root, err := dec.ReadRef()
	if err != nil {
		return err
	}
	d.Root = root
	return nil
}

func (d *Dictionary) root(loader atom.Loader) (*HashDictionary, error) {
	a, err := d.Root.Resolve(loader)
	if err != nil {
		return nil, err
	}
	hd, ok := a.(*HashDictionary)
	if !ok {
		return nil, dberrors.Corruption("dictionary root: expected HashDictionary, got %T", a)
	}
	return hd, nil
}

// Get looks up key, resolving the interned DictionaryItem to recover the
// stored value. Collisions on the literal hash are not resolved here: the
// spec treats the hash as the stable key (spec.md §4.3).
func (d *Dictionary) Get(loader atom.Loader, key string) (atom.Atom, bool, error) {
	root, err := d.root(loader)
	if err != nil {
		return nil, false, err
	}
	valueRef, found, err := root.GetAt(loader, atom.LiteralHash(key))
	if err != nil || !found {
		return nil, false, err
	}
	item, err := resolveDictionaryItem(loader, &valueRef)
	if err != nil {
		return nil, false, err
	}
	value, err := item.Value.Resolve(loader)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Has reports key membership.
func (d *Dictionary) Has(loader atom.Loader, key string) (bool, error) {
	root, err := d.root(loader)
	if err != nil {
		return false, err
	}
	return root.Has(loader, atom.LiteralHash(key))
}

// Set returns a new Dictionary with key bound to value.
func (d *Dictionary) Set(loader atom.Loader, key string, value atom.Atom) (*Dictionary, error) {
	root, err := d.root(loader)
	if err != nil {
		return nil, err
	}
	item := atom.NewDictionaryItem(atom.NewLiteral(key), value)
	newRoot, err := root.SetAt(loader, atom.LiteralHash(key), item)
	if err != nil {
		return nil, err
	}
	return &Dictionary{Root: atom.NewRef(newRoot)}, nil
}

// Remove returns a new Dictionary with key absent.
func (d *Dictionary) Remove(loader atom.Loader, key string) (*Dictionary, error) {
	root, err := d.root(loader)
	if err != nil {
		return nil, err
	}
	newRoot, err := root.RemoveKey(loader, atom.LiteralHash(key))
	if err != nil {
		return nil, err
	}
	return &Dictionary{Root: atom.NewRef(newRoot)}, nil
}

// DictEntry is one (key, value) pair produced by AsIterable.
type DictEntry struct {
	Key   string
	Value atom.Atom
}

// AsIterable returns every entry in ascending hash order.
func (d *Dictionary) AsIterable(loader atom.Loader) ([]DictEntry, error) {
	root, err := d.root(loader)
	if err != nil {
		return nil, err
	}
	hashEntries, err := root.AsIterable(loader)
	if err != nil {
		return nil, err
	}
	result := make([]DictEntry, 0, len(hashEntries))
	for _, e := range hashEntries {
		item, err := resolveDictionaryItem(loader, &e.Value)
		if err != nil {
			return nil, err
		}
		keyAtom, err := item.Key.Resolve(loader)
		if err != nil {
			return nil, err
		}
		literal, ok := keyAtom.(*atom.Literal)
		if !ok {
			return nil, dberrors.Corruption("dictionary item key: expected Literal, got %T", keyAtom)
		}
		value, err := item.Value.Resolve(loader)
		if err != nil {
			return nil, err
		}
		result = append(result, DictEntry{Key: literal.Value, Value: value})
	}
	return result, nil
}

func resolveDictionaryItem(loader atom.Loader, ref *atom.Ref) (*atom.DictionaryItem, error) {
	a, err := ref.Resolve(loader)
	if err != nil {
		return nil, err
	}
	item, ok := a.(*atom.DictionaryItem)
	if !ok {
		return nil, dberrors.Corruption("expected DictionaryItem atom, got %T", a)
	}
	return item, nil
}
