// Package query implements protodb's plan-node query engine: FromPlan,
// WherePlan, SelectPlan, IndexedSearchPlan, IndexedRangeSearchPlan,
// AndMerge, OrMerge, a token-based expression compiler with DNF
// normalization, and the Queryable fluent DSL built on top of them.
package query

import (
	"github.com/protodb/protodb/pkg/types"
)

// ScanOperator is a single-field comparison operator used by
// ScanCondition. The plan nodes and the expression language do not use
// it; they use Op (expr.go).
type ScanOperator int

const (
	OpEqual          ScanOperator = iota // =
	OpNotEqual                           // !=
	OpGreaterThan                        // >
	OpGreaterOrEqual                     // >=
	OpLessThan                           // <
	OpLessOrEqual                        // <=
	OpBetween                            // BETWEEN x AND y
)

// ScanCondition is one bound-matching condition over an ordered field.
type ScanCondition struct {
	Operator ScanOperator
	Value    types.Comparable // unary operators (=, !=, >, <, >=, <=)
	ValueEnd types.Comparable // BETWEEN's upper bound
}

// Equal, NotEqual, GreaterThan, GreaterOrEqual, LessThan, LessOrEqual and
// Between are convenience constructors for each ScanCondition shape.
func Equal(value types.Comparable) *ScanCondition {
	return &ScanCondition{Operator: OpEqual, Value: value}
}

func NotEqual(value types.Comparable) *ScanCondition {
	return &ScanCondition{Operator: OpNotEqual, Value: value}
}

func GreaterThan(value types.Comparable) *ScanCondition {
	return &ScanCondition{Operator: OpGreaterThan, Value: value}
}

func GreaterOrEqual(value types.Comparable) *ScanCondition {
	return &ScanCondition{Operator: OpGreaterOrEqual, Value: value}
}

func LessThan(value types.Comparable) *ScanCondition {
	return &ScanCondition{Operator: OpLessThan, Value: value}
}

func LessOrEqual(value types.Comparable) *ScanCondition {
	return &ScanCondition{Operator: OpLessOrEqual, Value: value}
}

func Between(start, end types.Comparable) *ScanCondition {
	return &ScanCondition{Operator: OpBetween, Value: start, ValueEnd: end}
}

// Matches reports whether key satisfies the condition.
func (sc *ScanCondition) Matches(key types.Comparable) bool {
	switch sc.Operator {
	case OpEqual:
		return key.Compare(sc.Value) == 0
	case OpNotEqual:
		return key.Compare(sc.Value) != 0
	case OpGreaterThan:
		return key.Compare(sc.Value) > 0
	case OpGreaterOrEqual:
		return key.Compare(sc.Value) >= 0
	case OpLessThan:
		return key.Compare(sc.Value) < 0
	case OpLessOrEqual:
		return key.Compare(sc.Value) <= 0
	case OpBetween:
		return key.Compare(sc.Value) >= 0 && key.Compare(sc.ValueEnd) <= 0
	default:
		return false
	}
}

// GetStartKey returns the key a range scan should seek to first, or nil if
// no seek position can be derived and a full scan is required.
func (sc *ScanCondition) GetStartKey() types.Comparable {
	switch sc.Operator {
	case OpEqual, OpGreaterThan, OpGreaterOrEqual, OpBetween:
		return sc.Value
	default:
		return nil
	}
}

// ShouldSeek reports whether GetStartKey's position can be used to skip
// straight to the first matching key instead of scanning from the start.
func (sc *ScanCondition) ShouldSeek() bool {
	switch sc.Operator {
	case OpEqual, OpGreaterThan, OpGreaterOrEqual, OpBetween:
		return true
	default:
		return false
	}
}

// ShouldContinue reports whether a range scan should keep advancing past
// key, or stop because every further key is now guaranteed not to match.
func (sc *ScanCondition) ShouldContinue(key types.Comparable) bool {
	switch sc.Operator {
	case OpEqual:
		return key.Compare(sc.Value) <= 0
	case OpLessThan, OpLessOrEqual:
		if sc.Operator == OpLessThan {
			return key.Compare(sc.Value) < 0
		}
		return key.Compare(sc.Value) <= 0
	case OpBetween:
		return key.Compare(sc.ValueEnd) <= 0
	default:
		return true
	}
}
