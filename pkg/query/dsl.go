package query

import (
	"sort"

	"github.com/protodb/protodb/pkg/dberrors"
	"github.com/protodb/protodb/pkg/types"
)

// Policy governs how a Queryable behaves when a query step can't be
// served through an index or otherwise falls back to local evaluation
// (spec.md §9 "Policy"). OnUnsupported is one of "error", "warn" or
// "fallback"; MaxRowsLocal, MaxMemoryMB and TimeoutMS name a row cap, a
// memory cap and a wall-clock limit. A Queryable stores its Policy and
// passes it along the chain, but no step reads these fields: every step
// falls back to local evaluation, with no row, memory or time limit.
type Policy struct {
	OnUnsupported string
	MaxRowsLocal  int
	MaxMemoryMB   int
	TimeoutMS     int
}

// DefaultPolicy falls back silently to local evaluation with no row cap.
func DefaultPolicy() Policy {
	return Policy{OnUnsupported: "fallback"}
}

// FieldExpr is the Go-native replacement for the original DSL's operator
// overloading (`__eq__`, `__gt__`, ...), which Go cannot express (SPEC_FULL.md
// §9: "there is no Go equivalent of `__eq__`/`__gt__` overloading; field
// comparisons are expressed via an F(path) helper ... with methods
// Eq/Ne/Gt/Gte/Lt/Lte/In/Between/Contains").
type FieldExpr struct {
	Path string
}

// F begins a field comparison against the dotted attribute path.
func F(path string) *FieldExpr {
	return &FieldExpr{Path: path}
}

func (f *FieldExpr) Eq(value interface{}) *Compare {
	return &Compare{Attr: f.Path, Op: OpEq, Value: toComparable(value)}
}

func (f *FieldExpr) Ne(value interface{}) *Compare {
	return &Compare{Attr: f.Path, Op: OpNeq, Value: toComparable(value)}
}

func (f *FieldExpr) Gt(value interface{}) *Compare {
	return &Compare{Attr: f.Path, Op: OpGt, Value: toComparable(value)}
}

func (f *FieldExpr) Gte(value interface{}) *Compare {
	return &Compare{Attr: f.Path, Op: OpGte, Value: toComparable(value)}
}

func (f *FieldExpr) Lt(value interface{}) *Compare {
	return &Compare{Attr: f.Path, Op: OpLt, Value: toComparable(value)}
}

func (f *FieldExpr) Lte(value interface{}) *Compare {
	return &Compare{Attr: f.Path, Op: OpLte, Value: toComparable(value)}
}

func (f *FieldExpr) In(values ...interface{}) *Compare {
	converted := make([]types.Comparable, 0, len(values))
	for _, v := range values {
		converted = append(converted, toComparable(v))
	}
	return &Compare{Attr: f.Path, Op: OpIn, Values: converted}
}

func (f *FieldExpr) Contains(text string) *Compare {
	return &Compare{Attr: f.Path, Op: OpContains, Text: text}
}

// Between builds an inclusive-inclusive bound ("between[]" in spec.md §9's
// token set); use BetweenBounds for the other three inclusivity tokens.
func (f *FieldExpr) Between(lo, hi interface{}) *Compare {
	return f.BetweenBounds(lo, hi, true, true)
}

func (f *FieldExpr) BetweenBounds(lo, hi interface{}, loInclusive, hiInclusive bool) *Compare {
	op := betweenOp(loInclusive, hiInclusive)
	return &Compare{Attr: f.Path, Op: op, Value: toComparable(lo), ValueEnd: toComparable(hi)}
}

func betweenOp(loInclusive, hiInclusive bool) Op {
	switch {
	case loInclusive && hiInclusive:
		return OpBetweenII
	case !loInclusive && !hiInclusive:
		return OpBetweenEE
	case loInclusive && !hiInclusive:
		return OpBetweenIE
	default:
		return OpBetweenEI
	}
}

// And combines exprs into a single conjunction.
func And_(exprs ...Expr) Expr { return &And{Children: exprs} }

// Or combines exprs into a single disjunction.
func Or_(exprs ...Expr) Expr { return &Or{Children: exprs} }

// Queryable is a fluent chain over a PlanNode (spec.md §9 "Queryable
// LINQ-chain convenience layer"): where/select/order_by/then_by/
// distinct/take/skip/group_by plus terminal operators. Each intermediate
// step folds into the underlying plan tree (so Where against a raw
// FromPlan still goes through the full optimizer via Build); operations
// with no plan-tree equivalent (OrderBy, Distinct, Take, Skip) fall back
// to materializing the upstream records, whatever Policy.OnUnsupported
// says.
type Queryable struct {
	node      PlanNode
	alias     string
	policy    Policy
	termLimit int
}

// NewQueryable wraps from as the head of a fluent chain.
func NewQueryable(from *FromPlan, policy Policy) *Queryable {
	return &Queryable{node: from, alias: from.Alias, policy: policy}
}

func (q *Queryable) clone(node PlanNode) *Queryable {
	return &Queryable{node: node, alias: q.alias, policy: q.policy, termLimit: q.termLimit}
}

// Where filters the chain by expr, routing through the optimizer when the
// chain's current node is still a bare FromPlan.
func (q *Queryable) Where(expr Expr) *Queryable {
	if from, ok := q.node.(*FromPlan); ok {
		return q.clone(Build(from, expr, q.termLimit))
	}
	return q.clone(NewWherePlan(q.alias, expr, q.node))
}

// Select projects fields over the chain.
func (q *Queryable) Select(fields map[string]SelectField) *Queryable {
	return q.clone(NewSelectPlan(q.alias, fields, q.node))
}

// SelectMany flattens fn's per-record output sequences into one stream
// (spec.md §9 "select_many").
func (q *Queryable) SelectMany(fn func(Record) ([]Record, error)) (*Queryable, error) {
	records, err := q.materialize()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range records {
		expanded, err := fn(r)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return q.clone(NewListPlan(out)), nil
}

func (q *Queryable) materialize() ([]Record, error) {
	it, err := q.node.Execute()
	if err != nil {
		return nil, err
	}
	return drain(it)
}

// Less compares two records for OrderBy/ThenBy chains.
type Less func(a, b Record) bool

// OrderBy sorts the chain by less, materializing the upstream plan
// (spec.md §9 "order_by"/"then_by" — there is no indexed sort in this
// engine, so both always fall back to a local sort).
func (q *Queryable) OrderBy(less Less) (*Queryable, error) {
	records, err := q.materialize()
	if err != nil {
		return nil, err
	}
	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return q.clone(NewListPlan(sorted)), nil
}

// ThenBy re-sorts the materialized chain stably by less alone. No earlier
// comparator is kept: less becomes the primary order, and the order left by
// a prior OrderBy survives only among records that less treats as equal.
func (q *Queryable) ThenBy(less Less) (*Queryable, error) {
	return q.OrderBy(less)
}

// Distinct removes records sharing the same Record.Identity().
func (q *Queryable) Distinct() (*Queryable, error) {
	records, err := q.materialize()
	if err != nil {
		return nil, err
	}
	seen := map[interface{}]struct{}{}
	var out []Record
	for _, r := range records {
		id := r.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return q.clone(NewListPlan(out)), nil
}

// Take keeps at most n records.
func (q *Queryable) Take(n int) (*Queryable, error) {
	records, err := q.materialize()
	if err != nil {
		return nil, err
	}
	if n < len(records) {
		records = records[:n]
	}
	return q.clone(NewListPlan(records)), nil
}

// Skip drops the first n records.
func (q *Queryable) Skip(n int) (*Queryable, error) {
	records, err := q.materialize()
	if err != nil {
		return nil, err
	}
	if n > len(records) {
		n = len(records)
	}
	return q.clone(NewListPlan(records[n:])), nil
}

// Grouping is one key's bucket of records from GroupBy (spec.md §9
// "group_by").
type Grouping struct {
	Key     string
	Records []Record
}

// GroupBy buckets the chain's records by keyFn.
func (q *Queryable) GroupBy(keyFn func(Record) (string, error)) ([]Grouping, error) {
	records, err := q.materialize()
	if err != nil {
		return nil, err
	}
	order := make([]string, 0)
	buckets := map[string][]Record{}
	for _, r := range records {
		key, err := keyFn(r)
		if err != nil {
			return nil, err
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], r)
	}
	groups := make([]Grouping, 0, len(order))
	for _, key := range order {
		groups = append(groups, Grouping{Key: key, Records: buckets[key]})
	}
	return groups, nil
}

// ToList materializes the chain.
func (q *Queryable) ToList() ([]Record, error) {
	return q.materialize()
}

// ToDict materializes the chain into a map keyed by keyFn, erroring on a
// colliding key (spec.md §9 "to_dict" — a duplicate key is a UserError,
// the caller's data violating the uniqueness the projection assumes).
func (q *Queryable) ToDict(keyFn func(Record) (string, error)) (map[string]Record, error) {
	records, err := q.materialize()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(records))
	for _, r := range records {
		key, err := keyFn(r)
		if err != nil {
			return nil, err
		}
		if _, exists := out[key]; exists {
			return nil, dberrors.User("to_dict: duplicate key %q", key)
		}
		out[key] = r
	}
	return out, nil
}

// First returns the first record, or found=false if the chain is empty.
func (q *Queryable) First() (Record, bool, error) {
	it, err := q.node.Execute()
	if err != nil {
		return Record{}, false, err
	}
	return it.Next()
}

// Any reports whether at least one record satisfies pred.
func (q *Queryable) Any(pred func(Record) (bool, error)) (bool, error) {
	records, err := q.materialize()
	if err != nil {
		return false, err
	}
	for _, r := range records {
		ok, err := pred(r)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// All reports whether every record satisfies pred.
func (q *Queryable) All(pred func(Record) (bool, error)) (bool, error) {
	records, err := q.materialize()
	if err != nil {
		return false, err
	}
	for _, r := range records {
		ok, err := pred(r)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Count returns the chain's record count via PlanNode.Count, which may be
// served without a full materialize (e.g. FromPlan, IndexedSearchPlan).
func (q *Queryable) Count() (int, error) {
	return q.node.Count()
}

// Sum, Min, Max and Average reduce fieldFn's Comparable over every record.
// Min/Max/Average report found=false for an empty chain.
func (q *Queryable) Sum(fieldFn func(Record) (types.Comparable, bool, error)) (float64, error) {
	records, err := q.materialize()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, r := range records {
		v, ok, err := fieldFn(r)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		total += comparableFloat(v)
	}
	return total, nil
}

func (q *Queryable) Average(fieldFn func(Record) (types.Comparable, bool, error)) (float64, bool, error) {
	records, err := q.materialize()
	if err != nil {
		return 0, false, err
	}
	var total float64
	var count int
	for _, r := range records {
		v, ok, err := fieldFn(r)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			continue
		}
		total += comparableFloat(v)
		count++
	}
	if count == 0 {
		return 0, false, nil
	}
	return total / float64(count), true, nil
}

func (q *Queryable) Min(fieldFn func(Record) (types.Comparable, bool, error)) (types.Comparable, bool, error) {
	return q.extreme(fieldFn, -1)
}

func (q *Queryable) Max(fieldFn func(Record) (types.Comparable, bool, error)) (types.Comparable, bool, error) {
	return q.extreme(fieldFn, 1)
}

func (q *Queryable) extreme(fieldFn func(Record) (types.Comparable, bool, error), want int) (types.Comparable, bool, error) {
	records, err := q.materialize()
	if err != nil {
		return nil, false, err
	}
	var best types.Comparable
	var found bool
	for _, r := range records {
		v, ok, err := fieldFn(r)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		if !found || v.Compare(best)*want > 0 {
			best = v
			found = true
		}
	}
	return best, found, nil
}

func comparableFloat(c types.Comparable) float64 {
	switch v := c.(type) {
	case types.IntKey:
		return float64(v)
	case types.FloatKey:
		return float64(v)
	default:
		return 0
	}
}

// Explain renders the chain's plan tree, matching spec.md §9's "explain"
// terminal operator — a debugging aid, not a stable machine format.
func (q *Queryable) Explain() string {
	return explainNode(q.node, 0)
}

func explainNode(node PlanNode, depth int) string {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	switch n := node.(type) {
	case *FromPlan:
		return indent + "FromPlan(" + n.Alias + ")"
	case *ListPlan:
		return indent + "ListPlan"
	case *WherePlan:
		return indent + "WherePlan\n" + explainNode(n.BasedOn, depth+1)
	case *SelectPlan:
		return indent + "SelectPlan\n" + explainNode(n.BasedOn, depth+1)
	case *IndexedSearchPlan:
		return indent + "IndexedSearchPlan(" + n.Field + ")"
	case *IndexedRangeSearchPlan:
		return indent + "IndexedRangeSearchPlan(" + n.Field + ")"
	case *AndMerge:
		out := indent + "AndMerge"
		for _, c := range n.Children {
			out += "\n" + explainNode(c, depth+1)
		}
		return out
	case *OrMerge:
		out := indent + "OrMerge"
		for _, c := range n.Children {
			out += "\n" + explainNode(c, depth+1)
		}
		return out
	default:
		return indent + "?"
	}
}
