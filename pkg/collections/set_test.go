package collections

import (
	"testing"

	"github.com/protodb/protodb/pkg/atom"
)

func literalHasher(a atom.Atom) int64 {
	return atom.LiteralHash(a.(*atom.Literal).Value)
}

func TestSet_AddHasRemove(t *testing.T) {
	s := NewEmptySet()
	s, err := s.Add(nil, literalHasher, atom.NewLiteral("x"))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	s, err = s.Add(nil, literalHasher, atom.NewLiteral("y"))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if has, _ := s.Has(nil, literalHasher, atom.NewLiteral("x")); !has {
		t.Fatalf("Has(x) = false, want true")
	}
	if has, _ := s.Has(nil, literalHasher, atom.NewLiteral("z")); has {
		t.Fatalf("Has(z) = true, want false")
	}

	s, err = s.Remove(nil, literalHasher, atom.NewLiteral("x"))
	if err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if has, _ := s.Has(nil, literalHasher, atom.NewLiteral("x")); has {
		t.Fatalf("Has(x) after remove = true, want false")
	}
}

func TestSet_AddIsIdempotent(t *testing.T) {
	s := NewEmptySet()
	var err error
	for i := 0; i < 3; i++ {
		s, err = s.Add(nil, literalHasher, atom.NewLiteral("dup"))
		if err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}
	members, err := s.AsIterable(nil)
	if err != nil {
		t.Fatalf("AsIterable error: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("len(members) = %d, want 1", len(members))
	}
}
