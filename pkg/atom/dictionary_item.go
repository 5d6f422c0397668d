package atom

func init() {
	Register(KindDictionaryItem, func() Atom { return &DictionaryItem{} })
}

// DictionaryItem is the value stored under a literal's hash inside a
// Dictionary's backing HashDictionary: the original literal (so the string
// survives restarts even though the slot is keyed by hash) paired with the
// user value (spec.md §3 "Dictionary(string -> Atom)").
type DictionaryItem struct {
	Base
	Key   Ref // -> Literal
	Value Ref
}

func NewDictionaryItem(key *Literal, value Atom) *DictionaryItem {
	return &DictionaryItem{Key: NewRef(key), Value: NewRef(value)}
}

func (d *DictionaryItem) AtomKind() Kind { return KindDictionaryItem }
func (d *DictionaryItem) Refs() []*Ref   { return []*Ref{&d.Key, &d.Value} }

func (d *DictionaryItem) EncodePayload(w *Encoder) error {
	if err := w.WriteRef(d.Key); err != nil {
		return err
	}
	return w.WriteRef(d.Value)
}

func (d *DictionaryItem) DecodePayload(dec *Decoder) error {
	key, err := dec.ReadRef()
	if err != nil {
		return err
	}
	value, err := dec.ReadRef()
	if err != nil {
		return err
	}
	d.Key = key
	d.Value = value
	return nil
}
