package query

// DefaultTermLimit bounds the DNF expansion before Normalize gives up and
// Build falls back to evaluating the original predicate tree directly
// (spec.md §4.4 "abort DNF expansion ... fall back to tree execution").
const DefaultTermLimit = 256

// Build runs the optimizer's index-matching, merge and union passes
// (spec.md §4.4) over filter against from, producing the plan the index
// map supports. It does not apply Pushdown, which is a separate function.
// termLimit <= 0 uses DefaultTermLimit.
func Build(from *FromPlan, filter Expr, termLimit int) PlanNode {
	if termLimit <= 0 {
		termLimit = DefaultTermLimit
	}
	conjuncts, ok := Normalize(filter, termLimit)
	if !ok {
		return NewWherePlan(from.Alias, filter, from)
	}

	disjuncts := make([]PlanNode, 0, len(conjuncts))
	allIndexable := true
	for _, conjunct := range conjuncts {
		plan, indexable := buildConjunct(from, conjunct)
		disjuncts = append(disjuncts, plan)
		allIndexable = allIndexable && indexable
	}
	if len(disjuncts) == 1 {
		return disjuncts[0]
	}
	// Union (pass 5): only wrap in OrMerge when every disjunct resolved to
	// an index-backed plan; otherwise one disjunct would force a full scan
	// anyway, so there is nothing to gain over evaluating filter directly
	// (spec.md "across disjuncts that all produced indexable plans, wrap
	// in OrMerge with record-identity deduplication").
	if allIndexable {
		return NewOrMerge(disjuncts)
	}
	return NewWherePlan(from.Alias, filter, from)
}

// buildConjunct applies Index matching (pass 3) and Merge (pass 4) to a
// single AND-conjunct of Compare leaves, reporting whether at least one
// term was served by an index.
func buildConjunct(from *FromPlan, conjunct []*Compare) (PlanNode, bool) {
	var indexPlans []PlanNode
	var residual []Expr
	for _, c := range conjunct {
		path, ok := aliasOf(from.Alias, c.Attr)
		if !ok {
			path = c.Attr
		}
		index, hasIndex := from.Indexes[path]
		if !hasIndex || c.Negated {
			residual = append(residual, c)
			continue
		}
		switch {
		case c.Op == OpEq:
			indexPlans = append(indexPlans, NewIndexedSearchPlan(path, OpEq, c.Value, nil, index, from.Loader))
		case c.Op == OpIn:
			indexPlans = append(indexPlans, NewIndexedSearchPlan(path, OpIn, nil, c.Values, index, from.Loader))
		case c.Op.isBetween():
			loInclusive, hiInclusive := c.Op.betweenInclusive()
			indexPlans = append(indexPlans, NewIndexedRangeSearchPlan(path, c.Value, c.ValueEnd, loInclusive, hiInclusive, index, from.Loader))
		default:
			residual = append(residual, c)
		}
	}
	if len(indexPlans) == 0 {
		clause := make([]Expr, len(conjunct))
		for i, c := range conjunct {
			clause[i] = c
		}
		return NewWherePlan(from.Alias, &And{Children: clause}, from), false
	}
	residualExpr := combineAnd(residual)
	if len(indexPlans) == 1 && residualExpr == nil {
		return indexPlans[0], true
	}
	return NewAndMerge(indexPlans, residualExpr, from.Alias), true
}

func combineAnd(terms []Expr) Expr {
	switch len(terms) {
	case 0:
		return nil
	case 1:
		return terms[0]
	default:
		return &And{Children: terms}
	}
}

// Pushdown sinks a WherePlan below any SelectPlan directly above it
// (spec.md §4.4 optimization pass 6, "a WherePlan whose predicate
// references only attributes exposed by a lower FromPlan sinks past
// intervening SelectPlans"). Every Compare's Attr always carries the
// originating FromPlan's own alias (the expression language requires a
// "required alias prefix matching the FromPlan", never a Select-rewritten
// output name), so no attribute-path rewriting is needed: sinking is
// always safe in this design, not merely when a containment check passes.
func Pushdown(plan PlanNode) PlanNode {
	where, ok := plan.(*WherePlan)
	if !ok {
		return plan
	}
	sel, ok := where.BasedOn.(*SelectPlan)
	if !ok {
		return plan
	}
	sunk := &WherePlan{Alias: where.Alias, Filter: where.Filter, FilterSpec: where.FilterSpec, BasedOn: sel.BasedOn}
	return &SelectPlan{Alias: sel.Alias, Fields: sel.Fields, BasedOn: sunk}
}
