package query

import (
	"testing"

	"github.com/protodb/protodb/pkg/types"
)

func TestEval_CompareEq(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{"age": "30"}), nil)
	expr := &Compare{Attr: "users.age", Op: OpEq, Value: types.IntKey(30)}

	ok, err := Eval(expr, "users", rec)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if !ok {
		t.Fatal("expected age == 30 to match")
	}
}

func TestEval_CompareNegated(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{"age": "30"}), nil)
	expr := &Compare{Attr: "users.age", Op: OpEq, Value: types.IntKey(30), Negated: true}

	ok, err := Eval(expr, "users", rec)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if ok {
		t.Fatal("expected negated age == 30 to not match")
	}
}

func TestEval_And(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{"age": "30", "country": "ES"}), nil)
	expr := &And{Children: []Expr{
		&Compare{Attr: "users.age", Op: OpGte, Value: types.IntKey(18)},
		&Compare{Attr: "users.country", Op: OpEq, Value: types.VarcharKey("ES")},
	}}

	ok, err := Eval(expr, "users", rec)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if !ok {
		t.Fatal("expected conjunction to match")
	}
}

func TestEval_AndShortCircuitsOnFirstFalse(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{"age": "17"}), nil)
	expr := &And{Children: []Expr{
		&Compare{Attr: "users.age", Op: OpGte, Value: types.IntKey(18)},
		&Compare{Attr: "users.missing", Op: OpEq, Value: types.IntKey(1)},
	}}

	ok, err := Eval(expr, "users", rec)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if ok {
		t.Fatal("expected conjunction with a false term to not match")
	}
}

func TestEval_Or(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{"country": "AR"}), nil)
	expr := &Or{Children: []Expr{
		&Compare{Attr: "users.country", Op: OpEq, Value: types.VarcharKey("ES")},
		&Compare{Attr: "users.country", Op: OpEq, Value: types.VarcharKey("AR")},
	}}

	ok, err := Eval(expr, "users", rec)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if !ok {
		t.Fatal("expected disjunction to match")
	}
}

func TestEval_Not(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{"country": "AR"}), nil)
	expr := &Not{Child: &Compare{Attr: "users.country", Op: OpEq, Value: types.VarcharKey("ES")}}

	ok, err := Eval(expr, "users", rec)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if !ok {
		t.Fatal("expected negation to match when inner does not")
	}
}

func TestEval_In(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{"country": "AR"}), nil)
	expr := &Compare{Attr: "users.country", Op: OpIn, Values: []types.Comparable{types.VarcharKey("ES"), types.VarcharKey("AR")}}

	ok, err := Eval(expr, "users", rec)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if !ok {
		t.Fatal("expected 'in' to match a listed value")
	}
}

func TestEval_Contains(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{"name": "alice wonderland"}), nil)
	expr := &Compare{Attr: "users.name", Op: OpContains, Text: "wonder"}

	ok, err := Eval(expr, "users", rec)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if !ok {
		t.Fatal("expected contains to match a substring")
	}
}

func TestEval_BetweenInclusivity(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{"age": "18"}), nil)
	tests := []struct {
		op   Op
		want bool
	}{
		{OpBetweenII, true},
		{OpBetweenEE, false},
		{OpBetweenIE, true},
		{OpBetweenEI, false},
	}
	for _, tt := range tests {
		expr := &Compare{Attr: "users.age", Op: tt.op, Value: types.IntKey(18), ValueEnd: types.IntKey(30)}
		ok, err := Eval(expr, "users", rec)
		if err != nil {
			t.Fatalf("Eval(%s) error: %v", tt.op, err)
		}
		if ok != tt.want {
			t.Errorf("Eval(%s) at lower bound = %v, want %v", tt.op, ok, tt.want)
		}
	}
}

func TestEval_AttributeMissingDoesNotMatch(t *testing.T) {
	rec := NewRecord(newRow(map[string]string{}), nil)
	expr := &Compare{Attr: "users.age", Op: OpEq, Value: types.IntKey(30)}

	ok, err := Eval(expr, "users", rec)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if ok {
		t.Fatal("expected a missing attribute to not match")
	}
}
