package query

import (
	"testing"

	"github.com/protodb/protodb/pkg/types"
)

func TestCompileTokens_Leaf(t *testing.T) {
	expr, err := CompileTokens([]interface{}{"users.age", string(OpGte), 18})
	if err != nil {
		t.Fatalf("CompileTokens error: %v", err)
	}
	c, ok := expr.(*Compare)
	if !ok {
		t.Fatalf("expr = %T, want *Compare", expr)
	}
	if c.Attr != "users.age" || c.Op != OpGte {
		t.Fatalf("compiled leaf = %+v", c)
	}
	if c.Value.Compare(types.IntKey(18)) != 0 {
		t.Fatalf("compiled value = %v, want 18", c.Value)
	}
}

func TestCompileTokens_And(t *testing.T) {
	tokens := []interface{}{
		"&",
		[]interface{}{"users.age", string(OpGte), 18},
		[]interface{}{"users.country", string(OpEq), "ES"},
	}
	expr, err := CompileTokens(tokens)
	if err != nil {
		t.Fatalf("CompileTokens error: %v", err)
	}
	and, ok := expr.(*And)
	if !ok || len(and.Children) != 2 {
		t.Fatalf("expr = %#v, want *And with 2 children", expr)
	}
}

func TestCompileTokens_Or(t *testing.T) {
	tokens := []interface{}{
		"|",
		[]interface{}{"users.country", string(OpEq), "ES"},
		[]interface{}{"users.country", string(OpEq), "AR"},
	}
	expr, err := CompileTokens(tokens)
	if err != nil {
		t.Fatalf("CompileTokens error: %v", err)
	}
	if _, ok := expr.(*Or); !ok {
		t.Fatalf("expr = %T, want *Or", expr)
	}
}

func TestCompileTokens_Not(t *testing.T) {
	tokens := []interface{}{"!", []interface{}{"users.country", string(OpEq), "ES"}}
	expr, err := CompileTokens(tokens)
	if err != nil {
		t.Fatalf("CompileTokens error: %v", err)
	}
	if _, ok := expr.(*Not); !ok {
		t.Fatalf("expr = %T, want *Not", expr)
	}
}

func TestCompileTokens_In(t *testing.T) {
	tokens := []interface{}{"users.country", string(OpIn), []interface{}{"ES", "AR"}}
	expr, err := CompileTokens(tokens)
	if err != nil {
		t.Fatalf("CompileTokens error: %v", err)
	}
	c := expr.(*Compare)
	if len(c.Values) != 2 {
		t.Fatalf("len(Values) = %d, want 2", len(c.Values))
	}
}

func TestCompileTokens_Between(t *testing.T) {
	tokens := []interface{}{"users.age", string(OpBetweenII), 18, 30}
	expr, err := CompileTokens(tokens)
	if err != nil {
		t.Fatalf("CompileTokens error: %v", err)
	}
	c := expr.(*Compare)
	if c.Value.Compare(types.IntKey(18)) != 0 || c.ValueEnd.Compare(types.IntKey(30)) != 0 {
		t.Fatalf("compiled between = %+v", c)
	}
}

func TestCompileTokens_RejectsEmptyList(t *testing.T) {
	if _, err := CompileTokens([]interface{}{}); err == nil {
		t.Fatal("expected an error for an empty token list")
	}
}

func TestCompileTokens_RejectsUnknownOperator(t *testing.T) {
	if _, err := CompileTokens([]interface{}{"users.age", "~=", 1}); err == nil {
		t.Fatal("expected an error for an unknown operator")
	}
}

func TestCompileTokens_RejectsNonList(t *testing.T) {
	if _, err := CompileTokens("not a list"); err == nil {
		t.Fatal("expected an error for a non-list token")
	}
}
