package query

import (
	"sort"

	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/collections"
	"github.com/protodb/protodb/pkg/dberrors"
	"github.com/protodb/protodb/pkg/types"
)

// PlanNode is the common contract every query plan node satisfies: a
// lazy, pull-based record stream plus a cardinality estimate (spec.md
// §4.4 "every plan node exposes execute() -> lazy sequence of records and
// count() -> integer").
type PlanNode interface {
	Execute() (RecordIterator, error)
	Count() (int, error)
}

// RecordIterator is a restartable-per-call, pull-based cursor: each Next
// call advances exactly one record (spec.md §4.4 "records flow up the
// tree one at a time").
type RecordIterator interface {
	Next() (Record, bool, error)
}

// Container is the source a FromPlan scans: a persistent List or Set,
// both of which already expose AsIterable over atom.Ref (pkg/collections).
type Container interface {
	AsIterable(loader atom.Loader) ([]atom.Ref, error)
}

func refsToRecords(loader atom.Loader, refs []atom.Ref) ([]Record, error) {
	records := make([]Record, 0, len(refs))
	for _, ref := range refs {
		a, err := ref.Resolve(loader)
		if err != nil {
			return nil, err
		}
		row, ok := a.(*atom.UserRecord)
		if !ok {
			return nil, dberrors.Corruption("query: expected UserRecord, got %T", a)
		}
		records = append(records, NewRecord(row, loader))
	}
	return records, nil
}

// sliceIterator walks a fully materialized []Record. Index plans and
// FromPlan both source from an already-materialized collection snapshot,
// so this is the base iterator every leaf plan returns.
type sliceIterator struct {
	records []Record
	pos     int
}

func newSliceIterator(records []Record) *sliceIterator {
	return &sliceIterator{records: records}
}

func (it *sliceIterator) Next() (Record, bool, error) {
	if it.pos >= len(it.records) {
		return Record{}, false, nil
	}
	r := it.records[it.pos]
	it.pos++
	return r, true, nil
}

func drain(it RecordIterator) ([]Record, error) {
	var out []Record
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}

// FromPlan anchors a record stream at a named alias and exposes the
// secondary indexes available for that alias, so index-matching can
// rewrite predicates above it into IndexedSearchPlan/IndexedRangeSearchPlan
// (spec.md §4.4 "anchors the record stream and its alias for attribute
// resolution; exposes the index map").
type FromPlan struct {
	Alias   string
	Base    Container
	Indexes map[string]*collections.RepeatedKeysDictionary
	Loader  atom.Loader
}

func NewFromPlan(alias string, base Container, indexes map[string]*collections.RepeatedKeysDictionary, loader atom.Loader) *FromPlan {
	if indexes == nil {
		indexes = map[string]*collections.RepeatedKeysDictionary{}
	}
	return &FromPlan{Alias: alias, Base: base, Indexes: indexes, Loader: loader}
}

func (f *FromPlan) Execute() (RecordIterator, error) {
	refs, err := f.Base.AsIterable(f.Loader)
	if err != nil {
		return nil, err
	}
	records, err := refsToRecords(f.Loader, refs)
	if err != nil {
		return nil, err
	}
	return newSliceIterator(records), nil
}

func (f *FromPlan) Count() (int, error) {
	refs, err := f.Base.AsIterable(f.Loader)
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}

// ListPlan wraps an already-materialized, non-indexed record sequence
// (spec.md §4.4 "produces records from a plain sequence; no indexes").
type ListPlan struct {
	Records []Record
}

func NewListPlan(records []Record) *ListPlan {
	return &ListPlan{Records: records}
}

func (l *ListPlan) Execute() (RecordIterator, error) {
	return newSliceIterator(l.Records), nil
}

func (l *ListPlan) Count() (int, error) {
	return len(l.Records), nil
}

// WherePlan filters BasedOn's stream by Filter (a compiled Expr) or,
// when Filter is nil, by compiling FilterSpec token list on first use
// (spec.md §4.4 "may hold either a compiled Expression tree or a token
// list awaiting compilation").
type WherePlan struct {
	Alias      string
	Filter     Expr
	FilterSpec interface{}
	BasedOn    PlanNode

	compiled Expr
}

func NewWherePlan(alias string, filter Expr, basedOn PlanNode) *WherePlan {
	return &WherePlan{Alias: alias, Filter: filter, BasedOn: basedOn}
}

func NewWherePlanSpec(alias string, filterSpec interface{}, basedOn PlanNode) *WherePlan {
	return &WherePlan{Alias: alias, FilterSpec: filterSpec, BasedOn: basedOn}
}

// Compiled resolves FilterSpec into an Expr tree on first call, caching
// the result (spec.md §4.4 optimization pass 1 "Compile").
func (w *WherePlan) Compiled() (Expr, error) {
	if w.Filter != nil {
		return w.Filter, nil
	}
	if w.compiled != nil {
		return w.compiled, nil
	}
	expr, err := CompileTokens(w.FilterSpec)
	if err != nil {
		return nil, err
	}
	w.compiled = expr
	return expr, nil
}

type wherePlanIterator struct {
	base  RecordIterator
	expr  Expr
	alias string
}

func (it *wherePlanIterator) Next() (Record, bool, error) {
	for {
		rec, ok, err := it.base.Next()
		if err != nil || !ok {
			return Record{}, ok, err
		}
		matched, err := Eval(it.expr, it.alias, rec)
		if err != nil {
			return Record{}, false, err
		}
		if matched {
			return rec, true, nil
		}
	}
}

func (w *WherePlan) Execute() (RecordIterator, error) {
	expr, err := w.Compiled()
	if err != nil {
		return nil, err
	}
	base, err := w.BasedOn.Execute()
	if err != nil {
		return nil, err
	}
	return &wherePlanIterator{base: base, expr: expr, alias: w.Alias}, nil
}

func (w *WherePlan) Count() (int, error) {
	it, err := w.Execute()
	if err != nil {
		return 0, err
	}
	records, err := drain(it)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// SelectField is one projected output column: either a plain field path
// or an arbitrary callable over the source record (spec.md §4.4 "fields
// maps output name -> field path or callable").
type SelectField struct {
	Path string
	Func func(Record) (atom.Atom, error)
}

// FieldPath builds a path-backed SelectField.
func FieldPath(path string) SelectField { return SelectField{Path: path} }

// FieldFunc builds a callable-backed SelectField.
func FieldFunc(fn func(Record) (atom.Atom, error)) SelectField { return SelectField{Func: fn} }

// SelectPlan projects BasedOn's stream into fresh records carrying only
// Fields (spec.md §4.4 "SelectPlan(fields, based_on) — projects").
type SelectPlan struct {
	Alias   string
	Fields  map[string]SelectField
	BasedOn PlanNode
}

func NewSelectPlan(alias string, fields map[string]SelectField, basedOn PlanNode) *SelectPlan {
	return &SelectPlan{Alias: alias, Fields: fields, BasedOn: basedOn}
}

type selectPlanIterator struct {
	base   RecordIterator
	fields map[string]SelectField
	alias  string
}

func (it *selectPlanIterator) Next() (Record, bool, error) {
	rec, ok, err := it.base.Next()
	if err != nil || !ok {
		return Record{}, ok, err
	}
	attrs := make(map[string]atom.Atom, len(it.fields))
	for name, field := range it.fields {
		var value atom.Atom
		var found bool
		var ferr error
		if field.Func != nil {
			value, ferr = field.Func(rec)
			found = value != nil
		} else {
			path, ok := aliasOf(it.alias, field.Path)
			if !ok {
				path = field.Path
			}
			value, found, ferr = rec.Field(path)
		}
		if ferr != nil {
			return Record{}, false, ferr
		}
		if found {
			attrs[name] = value
		}
	}
	return NewRecord(atom.NewUserRecord(attrs), rec.Loader), true, nil
}

func (s *SelectPlan) Execute() (RecordIterator, error) {
	base, err := s.BasedOn.Execute()
	if err != nil {
		return nil, err
	}
	return &selectPlanIterator{base: base, fields: s.Fields, alias: s.Alias}, nil
}

func (s *SelectPlan) Count() (int, error) {
	return s.BasedOn.Count()
}

// IndexedSearchPlan serves an equality or IN lookup directly from a
// RepeatedKeysDictionary's bucket(s), bypassing the base scan entirely
// (spec.md §4.4 "IndexedSearchPlan(field, operator, value, based_on) —
// equality/IN lookup through an index").
type IndexedSearchPlan struct {
	Field  string
	Op     Op // OpEq or OpIn
	Value  types.Comparable
	Values []types.Comparable
	Index  *collections.RepeatedKeysDictionary
	Loader atom.Loader
}

func NewIndexedSearchPlan(field string, op Op, value types.Comparable, values []types.Comparable, index *collections.RepeatedKeysDictionary, loader atom.Loader) *IndexedSearchPlan {
	return &IndexedSearchPlan{Field: field, Op: op, Value: value, Values: values, Index: index, Loader: loader}
}

func (p *IndexedSearchPlan) keys() []string {
	if p.Op == OpIn {
		keys := make([]string, 0, len(p.Values))
		for _, v := range p.Values {
			keys = append(keys, ComparableString(v))
		}
		return keys
	}
	return []string{ComparableString(p.Value)}
}

func (p *IndexedSearchPlan) matchingRecords() ([]Record, error) {
	seen := map[interface{}]struct{}{}
	var out []Record
	for _, key := range p.keys() {
		refs, found, err := p.Index.GetAll(p.Loader, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		records, err := refsToRecords(p.Loader, refs)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			id := rec.Identity()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, rec)
		}
	}
	return out, nil
}

func (p *IndexedSearchPlan) Execute() (RecordIterator, error) {
	records, err := p.matchingRecords()
	if err != nil {
		return nil, err
	}
	return newSliceIterator(records), nil
}

func (p *IndexedSearchPlan) Count() (int, error) {
	records, err := p.matchingRecords()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// IndexedRangeSearchPlan serves a BETWEEN predicate over an indexed field
// by walking the subset of the index's keys falling within [lo, hi]
// (spec.md §4.4 "IndexedRangeSearchPlan(field, lo, hi, inclusive,
// based_on) — bounded scan through an ordered index"). The backing
// RepeatedKeysDictionary is keyed by literal hash rather than by sorted
// key order (pkg/collections.Dictionary), so this plan re-parses every
// bucketed key string to test it against the bounds, then orders the
// matching keys with sort.Strings (string order, not value order), rather
// than seeking a B-tree range; see DESIGN.md for why no ordered-index
// collection was built.
type IndexedRangeSearchPlan struct {
	Field       string
	Lo, Hi      types.Comparable
	LoInclusive bool
	HiInclusive bool
	Index       *collections.RepeatedKeysDictionary
	Loader      atom.Loader
}

func NewIndexedRangeSearchPlan(field string, lo, hi types.Comparable, loInclusive, hiInclusive bool, index *collections.RepeatedKeysDictionary, loader atom.Loader) *IndexedRangeSearchPlan {
	return &IndexedRangeSearchPlan{Field: field, Lo: lo, Hi: hi, LoInclusive: loInclusive, HiInclusive: hiInclusive, Index: index, Loader: loader}
}

func (p *IndexedRangeSearchPlan) inBounds(key types.Comparable) bool {
	loOK := key.Compare(p.Lo) > 0 || (p.LoInclusive && key.Compare(p.Lo) == 0)
	hiOK := key.Compare(p.Hi) < 0 || (p.HiInclusive && key.Compare(p.Hi) == 0)
	return loOK && hiOK
}

func (p *IndexedRangeSearchPlan) matchingRecords() ([]Record, error) {
	keys, err := p.Index.Keys(p.Loader)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, k := range keys {
		if p.inBounds(ParseComparable(k)) {
			matched = append(matched, k)
		}
	}
	sort.Strings(matched)
	var out []Record
	for _, key := range matched {
		refs, found, err := p.Index.GetAll(p.Loader, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		records, err := refsToRecords(p.Loader, refs)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func (p *IndexedRangeSearchPlan) Execute() (RecordIterator, error) {
	records, err := p.matchingRecords()
	if err != nil {
		return nil, err
	}
	return newSliceIterator(records), nil
}

func (p *IndexedRangeSearchPlan) Count() (int, error) {
	records, err := p.matchingRecords()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// AndMerge intersects its children's record streams by identity, running
// the smallest-cardinality child first and probing the rest, then applies
// any residual predicate the index matcher could not push into an index
// (spec.md §4.4 "AndMerge(children) — set-intersection of indexed
// subplans with residual predicate evaluated locally" and "runs its
// smallest child first ... and probes the others").
type AndMerge struct {
	Children []PlanNode
	Residual Expr
	Alias    string
}

func NewAndMerge(children []PlanNode, residual Expr, alias string) *AndMerge {
	return &AndMerge{Children: children, Residual: residual, Alias: alias}
}

func (m *AndMerge) orderedBySize() ([]PlanNode, error) {
	type sized struct {
		node  PlanNode
		count int
	}
	sizedChildren := make([]sized, len(m.Children))
	for i, c := range m.Children {
		n, err := c.Count()
		if err != nil {
			return nil, err
		}
		sizedChildren[i] = sized{node: c, count: n}
	}
	sort.Slice(sizedChildren, func(i, j int) bool { return sizedChildren[i].count < sizedChildren[j].count })
	out := make([]PlanNode, len(sizedChildren))
	for i, s := range sizedChildren {
		out[i] = s.node
	}
	return out, nil
}

func (m *AndMerge) matchingRecords() ([]Record, error) {
	if len(m.Children) == 0 {
		return nil, nil
	}
	ordered, err := m.orderedBySize()
	if err != nil {
		return nil, err
	}
	smallestIt, err := ordered[0].Execute()
	if err != nil {
		return nil, err
	}
	candidates, err := drain(smallestIt)
	if err != nil {
		return nil, err
	}
	for _, probe := range ordered[1:] {
		it, err := probe.Execute()
		if err != nil {
			return nil, err
		}
		probeRecords, err := drain(it)
		if err != nil {
			return nil, err
		}
		present := make(map[interface{}]struct{}, len(probeRecords))
		for _, r := range probeRecords {
			present[r.Identity()] = struct{}{}
		}
		filtered := candidates[:0]
		for _, r := range candidates {
			if _, ok := present[r.Identity()]; ok {
				filtered = append(filtered, r)
			}
		}
		candidates = filtered
	}
	if m.Residual == nil {
		return candidates, nil
	}
	filtered := candidates[:0]
	for _, r := range candidates {
		ok, err := Eval(m.Residual, m.Alias, r)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (m *AndMerge) Execute() (RecordIterator, error) {
	records, err := m.matchingRecords()
	if err != nil {
		return nil, err
	}
	return newSliceIterator(records), nil
}

func (m *AndMerge) Count() (int, error) {
	records, err := m.matchingRecords()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// OrMerge concatenates its children's streams, deduplicating by record
// identity as each is consumed (spec.md §4.4 "OrMerge(children) —
// set-union with deduplication" and "concatenates child streams through a
// per-run dedup set").
type OrMerge struct {
	Children []PlanNode
}

func NewOrMerge(children []PlanNode) *OrMerge {
	return &OrMerge{Children: children}
}

type orMergeIterator struct {
	children []PlanNode
	current  RecordIterator
	idx      int
	seen     map[interface{}]struct{}
}

func (it *orMergeIterator) Next() (Record, bool, error) {
	for {
		if it.current == nil {
			if it.idx >= len(it.children) {
				return Record{}, false, nil
			}
			cur, err := it.children[it.idx].Execute()
			if err != nil {
				return Record{}, false, err
			}
			it.current = cur
			it.idx++
		}
		rec, ok, err := it.current.Next()
		if err != nil {
			return Record{}, false, err
		}
		if !ok {
			it.current = nil
			continue
		}
		id := rec.Identity()
		if _, dup := it.seen[id]; dup {
			continue
		}
		it.seen[id] = struct{}{}
		return rec, true, nil
	}
}

func (m *OrMerge) Execute() (RecordIterator, error) {
	return &orMergeIterator{children: m.Children, seen: map[interface{}]struct{}{}}, nil
}

func (m *OrMerge) Count() (int, error) {
	it, err := m.Execute()
	if err != nil {
		return 0, err
	}
	records, err := drain(it)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
