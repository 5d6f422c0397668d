package atom

func init() {
	Register(KindParentLink, func() Atom { return &ParentLink{} })
}

// ParentLink is one link in a UserRecord's singly-linked parent chain,
// modeling the original source's multiple-inheritance attribute resolution
// explicitly instead of via Go embedding (spec.md §9 "parent-link with
// multiple inheritance of attribute resolution").
type ParentLink struct {
	Base
	Parent Ref // -> ParentLink, or empty if this is the chain's end
	Record Ref // -> UserRecord whose attributes are consulted at this link
}

func NewParentLink(parent *ParentLink, record *UserRecord) *ParentLink {
	pl := &ParentLink{Record: NewRef(record)}
	if parent != nil {
		pl.Parent = NewRef(parent)
	}
	return pl
}

func (p *ParentLink) AtomKind() Kind { return KindParentLink }
func (p *ParentLink) Refs() []*Ref   { return []*Ref{&p.Parent, &p.Record} }

func (p *ParentLink) EncodePayload(w *Encoder) error {
	if err := w.WriteRef(p.Parent); err != nil {
		return err
	}
	return w.WriteRef(p.Record)
}

func (p *ParentLink) DecodePayload(d *Decoder) error {
	parent, err := d.ReadRef()
	if err != nil {
		return err
	}
	record, err := d.ReadRef()
	if err != nil {
		return err
	}
	p.Parent = parent
	p.Record = record
	return nil
}
