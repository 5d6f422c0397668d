package atom

import "hash/fnv"

func init() {
	Register(KindLiteral, func() Atom { return &Literal{} })
}

// Literal is an interned string. Its Hash is stable and content-derived:
// the same string always maps to the same numeric key across transactions
// and process restarts (spec.md §3 "Literal").
type Literal struct {
	Base
	Value string
}

// NewLiteral builds a new, unsaved Literal atom.
func NewLiteral(value string) *Literal {
	return &Literal{Value: value}
}

// Hash computes the stable 64-bit hash of the literal's string content.
// FNV-1a is used: a deterministic, allocation-free, standard-library hash
// with no seed to keep it stable across process restarts.
func (l *Literal) Hash() int64 {
	return LiteralHash(l.Value)
}

// LiteralHash computes the stable hash for a raw string without requiring
// a Literal atom to exist yet — used by Dictionary.Set/Get before the
// literal has been interned.
func LiteralHash(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

func (l *Literal) AtomKind() Kind   { return KindLiteral }
func (l *Literal) Refs() []*Ref     { return nil }

func (l *Literal) EncodePayload(w *Encoder) error {
	w.WriteString(l.Value)
	return nil
}

func (l *Literal) DecodePayload(d *Decoder) error {
	v, err := d.ReadString()
	if err != nil {
		return err
	}
	l.Value = v
	return nil
}
