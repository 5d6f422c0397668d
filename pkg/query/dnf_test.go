package query

import (
	"testing"

	"github.com/protodb/protodb/pkg/types"
)

func cmp(attr string, op Op, value types.Comparable) *Compare {
	return &Compare{Attr: attr, Op: op, Value: value}
}

func TestNormalize_SingleLeafIsOneConjunctOfOne(t *testing.T) {
	expr := cmp("users.age", OpEq, types.IntKey(30))
	conjuncts, ok := Normalize(expr, 16)
	if !ok {
		t.Fatal("Normalize reported overflow for a single leaf")
	}
	if len(conjuncts) != 1 || len(conjuncts[0]) != 1 {
		t.Fatalf("conjuncts = %+v, want one conjunct of one term", conjuncts)
	}
}

func TestNormalize_AndStaysOneConjunct(t *testing.T) {
	expr := &And{Children: []Expr{
		cmp("users.age", OpGte, types.IntKey(18)),
		cmp("users.country", OpEq, types.VarcharKey("ES")),
	}}
	conjuncts, ok := Normalize(expr, 16)
	if !ok {
		t.Fatal("Normalize reported overflow for a two-term AND")
	}
	if len(conjuncts) != 1 || len(conjuncts[0]) != 2 {
		t.Fatalf("conjuncts = %+v, want one conjunct of two terms", conjuncts)
	}
}

func TestNormalize_OrProducesTwoConjuncts(t *testing.T) {
	expr := &Or{Children: []Expr{
		cmp("users.country", OpEq, types.VarcharKey("ES")),
		cmp("users.country", OpEq, types.VarcharKey("AR")),
	}}
	conjuncts, ok := Normalize(expr, 16)
	if !ok {
		t.Fatal("Normalize reported overflow for a two-term OR")
	}
	if len(conjuncts) != 2 {
		t.Fatalf("len(conjuncts) = %d, want 2", len(conjuncts))
	}
}

func TestNormalize_DistributesAndOverOr(t *testing.T) {
	// (age>=18) & (country==ES | country==AR) -> two conjuncts of two terms
	expr := &And{Children: []Expr{
		cmp("users.age", OpGte, types.IntKey(18)),
		&Or{Children: []Expr{
			cmp("users.country", OpEq, types.VarcharKey("ES")),
			cmp("users.country", OpEq, types.VarcharKey("AR")),
		}},
	}}
	conjuncts, ok := Normalize(expr, 16)
	if !ok {
		t.Fatal("Normalize reported overflow")
	}
	if len(conjuncts) != 2 {
		t.Fatalf("len(conjuncts) = %d, want 2", len(conjuncts))
	}
	for _, c := range conjuncts {
		if len(c) != 2 {
			t.Errorf("conjunct %+v has %d terms, want 2", c, len(c))
		}
	}
}

func TestNormalize_AbortsBeyondTermLimit(t *testing.T) {
	expr := &Or{Children: []Expr{
		cmp("users.a", OpEq, types.IntKey(1)),
		cmp("users.b", OpEq, types.IntKey(2)),
		cmp("users.c", OpEq, types.IntKey(3)),
	}}
	if _, ok := Normalize(expr, 2); ok {
		t.Fatal("expected Normalize to abort when conjunct count exceeds the term limit")
	}
}

func TestPushNotDown_NegatesLeaf(t *testing.T) {
	expr := &Not{Child: cmp("users.age", OpEq, types.IntKey(30))}
	conjuncts, ok := Normalize(expr, 16)
	if !ok {
		t.Fatal("Normalize reported overflow")
	}
	if !conjuncts[0][0].Negated {
		t.Fatal("expected the leaf under '!' to be marked Negated")
	}
}

func TestPushNotDown_DeMorganOverAnd(t *testing.T) {
	// !(a & b) -> !a | !b -> two conjuncts
	expr := &Not{Child: &And{Children: []Expr{
		cmp("users.a", OpEq, types.IntKey(1)),
		cmp("users.b", OpEq, types.IntKey(2)),
	}}}
	conjuncts, ok := Normalize(expr, 16)
	if !ok {
		t.Fatal("Normalize reported overflow")
	}
	if len(conjuncts) != 2 {
		t.Fatalf("len(conjuncts) = %d, want 2 after De Morgan over AND", len(conjuncts))
	}
	for _, c := range conjuncts {
		if !c[0].Negated {
			t.Errorf("conjunct %+v: expected leaf to be Negated", c)
		}
	}
}
