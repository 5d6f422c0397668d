package query

import (
	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/collections"
)

// Direction is which way traverse follows an attribute link: Up expects a
// scalar (single-record) attribute, Down expects a collection attribute
// (spec.md §4.4 "scalar for up, collection for down").
type Direction int

const (
	Up Direction = iota
	Down
)

// Strategy is traverse's exploration order.
type Strategy int

const (
	BFS Strategy = iota
	DFS
)

// Traverse produces every record reachable from start by repeatedly
// following attribute, breadth- or depth-first, bounded by maxDepth (a
// negative value means unbounded) and guarded against cycles by a
// record-identity visited set (spec.md §4.4 "Traversal operator": "The
// traversal maintains a visited-set keyed by atom identity to detect
// cycles ... uses record identity (or atom pointer when available), not
// structural equality" — grounded on the other_examples immutable-trie
// visited-by-pointer-identity idiom referenced in SPEC_FULL.md §4.4).
func Traverse(start Record, attribute string, direction Direction, strategy Strategy, maxDepth int, includeStartNode bool) ([]Record, error) {
	visited := map[interface{}]struct{}{start.Identity(): {}}
	var result []Record
	if includeStartNode {
		result = append(result, start)
	}

	type frame struct {
		rec   Record
		depth int
	}

	expand := func(cur frame, push func(frame)) error {
		if maxDepth >= 0 && cur.depth >= maxDepth {
			return nil
		}
		next, err := neighbors(cur.rec, attribute, direction)
		if err != nil {
			return err
		}
		for _, n := range next {
			id := n.Identity()
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = struct{}{}
			push(frame{rec: n, depth: cur.depth + 1})
		}
		return nil
	}

	switch strategy {
	case BFS:
		queue := []frame{{rec: start, depth: 0}}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.depth > 0 {
				result = append(result, cur.rec)
			}
			if err := expand(cur, func(f frame) { queue = append(queue, f) }); err != nil {
				return nil, err
			}
		}
	default: // DFS
		stack := []frame{{rec: start, depth: 0}}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if cur.depth > 0 {
				result = append(result, cur.rec)
			}
			var pushed []frame
			if err := expand(cur, func(f frame) { pushed = append(pushed, f) }); err != nil {
				return nil, err
			}
			for i := len(pushed) - 1; i >= 0; i-- {
				stack = append(stack, pushed[i])
			}
		}
	}
	return result, nil
}

// neighbors resolves attribute on rec and returns the records it links to:
// a single record for Up, every element of a List or Set atom for Down.
func neighbors(rec Record, attribute string, direction Direction) ([]Record, error) {
	value, found, err := rec.Field(attribute)
	if err != nil || !found {
		return nil, err
	}
	switch direction {
	case Up:
		parent, ok := value.(*atom.UserRecord)
		if !ok {
			return nil, nil
		}
		return []Record{NewRecord(parent, rec.Loader)}, nil
	default:
		switch coll := value.(type) {
		case *collections.List:
			refs, err := coll.AsIterable(rec.Loader)
			if err != nil {
				return nil, err
			}
			return refsToRecords(rec.Loader, refs)
		case *collections.Set:
			refs, err := coll.AsIterable(rec.Loader)
			if err != nil {
				return nil, err
			}
			return refsToRecords(rec.Loader, refs)
		default:
			return nil, nil
		}
	}
}
