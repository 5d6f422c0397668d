package atom

func init() {
	Register(KindRootObject, func() Atom { return &RootObject{} })
}

// RootObject is the single atom holding the current state of a storage:
// the user-visible namespace of named roots and the literal interning
// table. Exactly one RootObject is current per storage at any moment
// (spec.md §3 "RootObject").
type RootObject struct {
	Base
	ObjectRoot  Ref // -> Dictionary of named collection roots
	LiteralRoot Ref // -> HashDictionary of literal hash -> Literal
}

func NewRootObject(objectRoot, literalRoot Atom) *RootObject {
	return &RootObject{ObjectRoot: NewRef(objectRoot), LiteralRoot: NewRef(literalRoot)}
}

func (r *RootObject) AtomKind() Kind { return KindRootObject }
func (r *RootObject) Refs() []*Ref   { return []*Ref{&r.ObjectRoot, &r.LiteralRoot} }

func (r *RootObject) EncodePayload(w *Encoder) error {
	if err := w.WriteRef(r.ObjectRoot); err != nil {
		return err
	}
	return w.WriteRef(r.LiteralRoot)
}

func (r *RootObject) DecodePayload(d *Decoder) error {
	objectRoot, err := d.ReadRef()
	if err != nil {
		return err
	}
	literalRoot, err := d.ReadRef()
	if err != nil {
		return err
	}
	r.ObjectRoot = objectRoot
	r.LiteralRoot = literalRoot
	return nil
}
