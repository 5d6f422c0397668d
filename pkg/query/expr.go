package query

import (
	"github.com/protodb/protodb/pkg/types"
)

// Op is a predicate operator from the expression language (spec.md §4.4
// "Expression language").
type Op string

const (
	OpEq       Op = "=="
	OpNeq      Op = "!="
	OpLt       Op = "<"
	OpLte      Op = "<="
	OpGt       Op = ">"
	OpGte      Op = ">="
	OpIn       Op = "in"
	OpContains Op = "contains"
	// Between-bounds inclusivity tokens (spec.md §9 "between-bounds
	// inclusivity tokens"): [] inclusive-inclusive, () exclusive-exclusive,
	// [) inclusive-exclusive, (] exclusive-inclusive.
	OpBetweenII Op = "between[]"
	OpBetweenEE Op = "between()"
	OpBetweenIE Op = "between[)"
	OpBetweenEI Op = "between(]"
)

// Expr is a node in a compiled predicate tree: a leaf Compare or a boolean
// combinator over child Exprs (spec.md §4.4 "combined by '&', '|', '!'").
type Expr interface {
	isExpr()
}

// Compare is a single [attr, op, value] term.
type Compare struct {
	Attr     string
	Op       Op
	Value    types.Comparable   // unary operators and the lower between-bound
	ValueEnd types.Comparable   // upper between-bound
	Values   []types.Comparable // OpIn literal list
	Text     string             // OpContains substring
	Negated  bool               // set by Normalize's De Morgan push-down of '!'
}

// And is the conjunction of every child.
type And struct{ Children []Expr }

// Or is the disjunction of every child.
type Or struct{ Children []Expr }

// Not negates a single child.
type Not struct{ Child Expr }

func (*Compare) isExpr() {}
func (*And) isExpr()     {}
func (*Or) isExpr()      {}
func (*Not) isExpr()     {}

// Eval reports whether record satisfies expr, resolving attribute paths
// relative to alias (spec.md §4.4 "Attributes are dotted paths with a
// required alias prefix matching the FromPlan").
func Eval(expr Expr, alias string, record Record) (bool, error) {
	switch e := expr.(type) {
	case *Compare:
		return evalCompare(e, alias, record)
	case *And:
		for _, child := range e.Children {
			ok, err := Eval(child, alias, record)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *Or:
		for _, child := range e.Children {
			ok, err := Eval(child, alias, record)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *Not:
		ok, err := Eval(e.Child, alias, record)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, nil
	}
}

func evalCompare(c *Compare, alias string, record Record) (bool, error) {
	path, ok := aliasOf(alias, c.Attr)
	if !ok {
		path = c.Attr
	}
	matched, err := evalCompareRaw(c, path, record)
	if err != nil {
		return false, err
	}
	if c.Negated {
		return !matched, nil
	}
	return matched, nil
}

func evalCompareRaw(c *Compare, path string, record Record) (bool, error) {
	switch c.Op {
	case OpContains:
		value, found, err := record.Field(path)
		if err != nil || !found {
			return false, err
		}
		cmp, ok := AtomToComparable(value)
		if !ok {
			return false, nil
		}
		return containsSubstring(ComparableString(cmp), c.Text), nil
	case OpIn:
		key, found, err := record.FieldComparable(path)
		if err != nil || !found {
			return false, err
		}
		for _, v := range c.Values {
			if key.Compare(v) == 0 {
				return true, nil
			}
		}
		return false, nil
	default:
		key, found, err := record.FieldComparable(path)
		if err != nil || !found {
			return false, err
		}
		return matchOperator(c.Op, key, c.Value, c.ValueEnd), nil
	}
}

func matchOperator(op Op, key, value, valueEnd types.Comparable) bool {
	switch op {
	case OpEq:
		return key.Compare(value) == 0
	case OpNeq:
		return key.Compare(value) != 0
	case OpLt:
		return key.Compare(value) < 0
	case OpLte:
		return key.Compare(value) <= 0
	case OpGt:
		return key.Compare(value) > 0
	case OpGte:
		return key.Compare(value) >= 0
	case OpBetweenII:
		return key.Compare(value) >= 0 && key.Compare(valueEnd) <= 0
	case OpBetweenEE:
		return key.Compare(value) > 0 && key.Compare(valueEnd) < 0
	case OpBetweenIE:
		return key.Compare(value) >= 0 && key.Compare(valueEnd) < 0
	case OpBetweenEI:
		return key.Compare(value) > 0 && key.Compare(valueEnd) <= 0
	default:
		return false
	}
}

func containsSubstring(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// isBetween reports whether op is one of the four between operators
// (between[], between(), between[), between(]).
func (op Op) isBetween() bool {
	switch op {
	case OpBetweenII, OpBetweenEE, OpBetweenIE, OpBetweenEI:
		return true
	default:
		return false
	}
}

func (op Op) betweenInclusive() (loInclusive, hiInclusive bool) {
	switch op {
	case OpBetweenII:
		return true, true
	case OpBetweenEE:
		return false, false
	case OpBetweenIE:
		return true, false
	case OpBetweenEI:
		return false, true
	default:
		return false, false
	}
}
