package query

import (
	"fmt"
	"time"

	"github.com/protodb/protodb/pkg/dberrors"
	"github.com/protodb/protodb/pkg/types"
)

// CompileTokens parses a filter_spec token list into an Expr tree
// (spec.md §4.4 optimization pass 1, "Compile"). The grammar is:
//
//	leaf       := []interface{}{attr string, op string, value}
//	leaf-range := []interface{}{attr string, "between..."-op, lo, hi}
//	and        := []interface{}{"&", term, term, ...}
//	or         := []interface{}{"|", term, term, ...}
//	not        := []interface{}{"!", term}
//
// Parse errors are reported as dberrors.Validation, per spec.md §4.4
// "report parse errors as validation failures".
func CompileTokens(tokens interface{}) (Expr, error) {
	list, ok := tokens.([]interface{})
	if !ok {
		return nil, dberrors.Validation("filter_spec: expected a token list, got %T", tokens)
	}
	if len(list) == 0 {
		return nil, dberrors.Validation("filter_spec: empty token list")
	}
	if head, ok := list[0].(string); ok {
		switch head {
		case "&":
			return compileCombinator(list[1:], func(children []Expr) Expr { return &And{Children: children} })
		case "|":
			return compileCombinator(list[1:], func(children []Expr) Expr { return &Or{Children: children} })
		case "!":
			if len(list) != 2 {
				return nil, dberrors.Validation("filter_spec: '!' takes exactly one operand, got %d", len(list)-1)
			}
			child, err := CompileTokens(list[1])
			if err != nil {
				return nil, err
			}
			return &Not{Child: child}, nil
		}
	}
	return compileLeaf(list)
}

func compileCombinator(terms []interface{}, build func([]Expr) Expr) (Expr, error) {
	if len(terms) == 0 {
		return nil, dberrors.Validation("filter_spec: boolean combinator with no operands")
	}
	children := make([]Expr, 0, len(terms))
	for _, t := range terms {
		child, err := CompileTokens(t)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return build(children), nil
}

func compileLeaf(list []interface{}) (Expr, error) {
	if len(list) < 3 {
		return nil, dberrors.Validation("filter_spec: leaf term needs [attr, op, value], got %d elements", len(list))
	}
	attr, ok := list[0].(string)
	if !ok {
		return nil, dberrors.Validation("filter_spec: attribute path must be a string, got %T", list[0])
	}
	opStr, ok := list[1].(string)
	if !ok {
		return nil, dberrors.Validation("filter_spec: operator must be a string, got %T", list[1])
	}
	op := Op(opStr)
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return &Compare{Attr: attr, Op: op, Value: toComparable(list[2])}, nil
	case OpContains:
		text, ok := list[2].(string)
		if !ok {
			return nil, dberrors.Validation("filter_spec: 'contains' value must be a string, got %T", list[2])
		}
		return &Compare{Attr: attr, Op: op, Text: text}, nil
	case OpIn:
		values, ok := list[2].([]interface{})
		if !ok {
			return nil, dberrors.Validation("filter_spec: 'in' value must be a list, got %T", list[2])
		}
		comparables := make([]types.Comparable, 0, len(values))
		for _, v := range values {
			comparables = append(comparables, toComparable(v))
		}
		return &Compare{Attr: attr, Op: op, Values: comparables}, nil
	case OpBetweenII, OpBetweenEE, OpBetweenIE, OpBetweenEI:
		if len(list) < 4 {
			return nil, dberrors.Validation("filter_spec: %q needs [attr, op, lo, hi]", opStr)
		}
		return &Compare{Attr: attr, Op: op, Value: toComparable(list[2]), ValueEnd: toComparable(list[3])}, nil
	default:
		return nil, dberrors.Validation("filter_spec: unknown operator %q", opStr)
	}
}

// toComparable converts a raw decoded token value (the kind of value a
// JSON/S-expression decoder would hand back) into a types.Comparable.
func toComparable(v interface{}) types.Comparable {
	switch x := v.(type) {
	case types.Comparable:
		return x
	case int:
		return types.IntKey(x)
	case int64:
		return types.IntKey(x)
	case float64:
		return types.FloatKey(x)
	case float32:
		return types.FloatKey(float64(x))
	case bool:
		return types.BoolKey(x)
	case time.Time:
		return types.DateKey(x)
	case string:
		return types.VarcharKey(x)
	default:
		return types.VarcharKey(fmt.Sprintf("%v", x))
	}
}
