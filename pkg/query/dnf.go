package query

// Normalize converts a predicate tree into disjunctive normal form: a
// slice of conjuncts, each a slice of Compare leaves ANDed together, the
// whole slice ORed (spec.md §4.4 optimization pass 2, "Normalize: convert
// boolean tree to disjunctive normal form bounded in size"). termLimit
// bounds the total number of conjuncts produced; exceeding it aborts and
// reports ok=false so the caller falls back to tree execution instead of
// the indexed/merge rewrite (spec.md "abort DNF expansion if the result
// would exceed a configurable term limit — fall back to tree execution").
func Normalize(expr Expr, termLimit int) (conjuncts [][]*Compare, ok bool) {
	pushed := pushNotDown(expr, false)
	clauses, ok := distribute(pushed, termLimit)
	if !ok {
		return nil, false
	}
	out := make([][]*Compare, 0, len(clauses))
	for _, clause := range clauses {
		conjunct := make([]*Compare, 0, len(clause))
		for _, e := range clause {
			c, ok := e.(*Compare)
			if !ok {
				return nil, false
			}
			conjunct = append(conjunct, c)
		}
		out = append(out, conjunct)
	}
	return out, true
}

// pushNotDown eliminates Not nodes by De Morgan's laws, flipping Compare's
// Negated flag at the leaves instead (evalCompare already honors it) so
// the tree Normalize distributes afterward only ever holds And/Or/Compare.
func pushNotDown(expr Expr, negate bool) Expr {
	switch e := expr.(type) {
	case *Compare:
		if !negate {
			return e
		}
		c := *e
		c.Negated = !c.Negated
		return &c
	case *And:
		children := pushChildren(e.Children, negate)
		if negate {
			return &Or{Children: children}
		}
		return &And{Children: children}
	case *Or:
		children := pushChildren(e.Children, negate)
		if negate {
			return &And{Children: children}
		}
		return &Or{Children: children}
	case *Not:
		return pushNotDown(e.Child, !negate)
	default:
		return expr
	}
}

func pushChildren(children []Expr, negate bool) []Expr {
	out := make([]Expr, len(children))
	for i, c := range children {
		out[i] = pushNotDown(c, negate)
	}
	return out
}

// distribute expands an And/Or/Compare tree (already Not-free) into a
// list of conjunctive clauses via cross-product distribution, aborting
// once the running clause count would exceed limit.
func distribute(expr Expr, limit int) ([][]Expr, bool) {
	switch e := expr.(type) {
	case *Compare:
		return [][]Expr{{e}}, true
	case *And:
		acc := [][]Expr{{}}
		for _, child := range e.Children {
			childClauses, ok := distribute(child, limit)
			if !ok {
				return nil, false
			}
			var next [][]Expr
			for _, a := range acc {
				for _, b := range childClauses {
					if len(next) >= limit {
						return nil, false
					}
					combined := make([]Expr, 0, len(a)+len(b))
					combined = append(combined, a...)
					combined = append(combined, b...)
					next = append(next, combined)
				}
			}
			acc = next
		}
		return acc, true
	case *Or:
		var all [][]Expr
		for _, child := range e.Children {
			childClauses, ok := distribute(child, limit)
			if !ok {
				return nil, false
			}
			all = append(all, childClauses...)
			if len(all) > limit {
				return nil, false
			}
		}
		return all, true
	default:
		return nil, false
	}
}
