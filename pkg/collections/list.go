package collections

import (
	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/dberrors"
)

func init() {
	atom.Register(atom.KindList, func() atom.Atom { return &List{} })
}

// List is a position-keyed AVL tree: the node's index among its siblings is
// derived from its left subtree's Count rather than stored explicitly, so
// inserting at the front only touches the path back to the root (spec.md
// §4.3 "List specifics").
type List struct {
	atom.Base
	HasValue bool
	Value    atom.Ref
	Height   int
	Count    int
	Previous atom.Ref // left subtree
	Next     atom.Ref // right subtree
}

// NewEmptyList returns the canonical empty list.
func NewEmptyList() *List {
	return &List{}
}

func (l *List) AtomKind() atom.Kind { return atom.KindList }
func (l *List) Refs() []*atom.Ref   { return []*atom.Ref{&l.Value, &l.Previous, &l.Next} }

func (l *List) EncodePayload(w *atom.Encoder) error {
	w.WriteBool(l.HasValue)
	if !l.HasValue {
		return nil
	}
	if err := w.WriteRef(l.Value); err != nil {
		return err
	}
	w.WriteUint32(uint32(l.Height))
	w.WriteUint32(uint32(l.Count))
	if err := w.WriteRef(l.Previous); err != nil {
		return err
	}
	return w.WriteRef(l.Next)
}

func (l *List) DecodePayload(d *atom.Decoder) error {
	hasValue, err := d.ReadBool()
	if err != nil {
		return err
	}
	l.HasValue = hasValue
	if !hasValue {
		return nil
	}
	if l.Value, err = d.ReadRef(); err != nil {
		return err
	}
	height, err := d.ReadUint32()
	if err != nil {
		return err
	}
	count, err := d.ReadUint32()
	if err != nil {
		return err
	}
	l.Height = int(height)
	l.Count = int(count)
	if l.Previous, err = d.ReadRef(); err != nil {
		return err
	}
	if l.Next, err = d.ReadRef(); err != nil {
		return err
	}
	return nil
}

// Len reports the list's element count in O(1).
func (l *List) Len() int { return l.Count }

func resolveListChild(loader atom.Loader, ref *atom.Ref) (*List, error) {
	if ref.Empty() {
		return nil, nil
	}
	a, err := ref.Resolve(loader)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	lst, ok := a.(*List)
	if !ok {
		return nil, dberrors.Corruption("expected List atom, got %T", a)
	}
	if !lst.HasValue {
		return nil, nil
	}
	return lst, nil
}

func listChildStats(loader atom.Loader, ref *atom.Ref) (height, count int, err error) {
	child, err := resolveListChild(loader, ref)
	if err != nil || child == nil {
		return 0, 0, err
	}
	return child.Height, child.Count, nil
}

func newListNode(loader atom.Loader, value, previous, next atom.Ref) (*List, error) {
	if value.Empty() {
		return &List{Previous: previous, Next: next}, nil
	}
	node := &List{HasValue: true, Value: value, Previous: previous, Next: next}
	prevH, prevC, err := listChildStats(loader, &node.Previous)
	if err != nil {
		return nil, err
	}
	nextH, nextC, err := listChildStats(loader, &node.Next)
	if err != nil {
		return nil, err
	}
	node.Height = 1 + maxInt(prevH, nextH)
	node.Count = 1 + prevC + nextC
	return node, nil
}

func (l *List) balance(loader atom.Loader) (int, error) {
	prevH, _, err := listChildStats(loader, &l.Previous)
	if err != nil {
		return 0, err
	}
	nextH, _, err := listChildStats(loader, &l.Next)
	if err != nil {
		return 0, err
	}
	return nextH - prevH, nil
}

func (l *List) rightRotation(loader atom.Loader) (*List, error) {
	prev, err := resolveListChild(loader, &l.Previous)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return l, nil
	}
	newRight, err := newListNode(loader, l.Value, prev.Next, l.Next)
	if err != nil {
		return nil, err
	}
	return newListNode(loader, prev.Value, prev.Previous, atom.NewRef(newRight))
}

func (l *List) leftRotation(loader atom.Loader) (*List, error) {
	next, err := resolveListChild(loader, &l.Next)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return l, nil
	}
	newLeft, err := newListNode(loader, l.Value, l.Previous, next.Previous)
	if err != nil {
		return nil, err
	}
	return newListNode(loader, next.Value, atom.NewRef(newLeft), next.Next)
}

func (l *List) rebalance(loader atom.Loader) (*List, error) {
	bal, err := l.balance(loader)
	if err != nil {
		return nil, err
	}
	if bal >= -1 && bal <= 1 {
		return l, nil
	}
	node := l
	if bal < -1 {
		prev, err := resolveListChild(loader, &node.Previous)
		if err != nil {
			return nil, err
		}
		prevBal, err := prev.balance(loader)
		if err != nil {
			return nil, err
		}
		if prevBal <= 0 {
			return node.rightRotation(loader)
		}
		rotatedPrev, err := prev.leftRotation(loader)
		if err != nil {
			return nil, err
		}
		node, err = newListNode(loader, node.Value, atom.NewRef(rotatedPrev), node.Next)
		if err != nil {
			return nil, err
		}
		return node.rightRotation(loader)
	}
	next, err := resolveListChild(loader, &node.Next)
	if err != nil {
		return nil, err
	}
	nextBal, err := next.balance(loader)
	if err != nil {
		return nil, err
	}
	if nextBal >= 0 {
		return node.leftRotation(loader)
	}
	rotatedNext, err := next.rightRotation(loader)
	if err != nil {
		return nil, err
	}
	node, err = newListNode(loader, node.Value, node.Previous, atom.NewRef(rotatedNext))
	if err != nil {
		return nil, err
	}
	return node.leftRotation(loader)
}

// GetAt returns the value at position, 0-indexed; O(log n).
func (l *List) GetAt(loader atom.Loader, position int) (atom.Ref, bool, error) {
	node := l
	for node != nil && node.HasValue {
		leftCount, _, err := listChildStats(loader, &node.Previous)
		if err != nil {
			return atom.Ref{}, false, err
		}
		switch {
		case position == leftCount:
			return node.Value, true, nil
		case position < leftCount:
			node, err = resolveListChild(loader, &node.Previous)
		default:
			position -= leftCount + 1
			node, err = resolveListChild(loader, &node.Next)
		}
		if err != nil {
			return atom.Ref{}, false, err
		}
	}
	return atom.Ref{}, false, nil
}

// InsertAt inserts value so it becomes element position, 0 <= position <=
// Len(), shifting later elements right.
func (l *List) InsertAt(loader atom.Loader, position int, value atom.Atom) (*List, error) {
	if !l.HasValue {
		return newListNode(loader, atom.NewRef(value), atom.Ref{}, atom.Ref{})
	}
	leftCount, _, err := listChildStats(loader, &l.Previous)
	if err != nil {
		return nil, err
	}
	if position <= leftCount {
		child, err := resolveListChild(loader, &l.Previous)
		if err != nil {
			return nil, err
		}
		var newPrev *List
		if child != nil {
			newPrev, err = child.InsertAt(loader, position, value)
		} else {
			newPrev, err = newListNode(loader, atom.NewRef(value), atom.Ref{}, atom.Ref{})
		}
		if err != nil {
			return nil, err
		}
		node, err := newListNode(loader, l.Value, atom.NewRef(newPrev), l.Next)
		if err != nil {
			return nil, err
		}
		return node.rebalance(loader)
	}
	child, err := resolveListChild(loader, &l.Next)
	if err != nil {
		return nil, err
	}
	var newNext *List
	if child != nil {
		newNext, err = child.InsertAt(loader, position-leftCount-1, value)
	} else {
		newNext, err = newListNode(loader, atom.NewRef(value), atom.Ref{}, atom.Ref{})
	}
	if err != nil {
		return nil, err
	}
	node, err := newListNode(loader, l.Value, l.Previous, atom.NewRef(newNext))
	if err != nil {
		return nil, err
	}
	return node.rebalance(loader)
}

// AppendFirst inserts value at the head of the list.
func (l *List) AppendFirst(loader atom.Loader, value atom.Atom) (*List, error) {
	return l.InsertAt(loader, 0, value)
}

// AppendLast inserts value at the tail of the list.
func (l *List) AppendLast(loader atom.Loader, value atom.Atom) (*List, error) {
	return l.InsertAt(loader, l.Count, value)
}

func (l *List) minValue(loader atom.Loader) (atom.Ref, error) {
	node := l
	for {
		prev, err := resolveListChild(loader, &node.Previous)
		if err != nil {
			return atom.Ref{}, err
		}
		if prev == nil {
			return node.Value, nil
		}
		node = prev
	}
}

func listRefOrEmpty(l *List) atom.Ref {
	if l == nil || !l.HasValue {
		return atom.Ref{}
	}
	return atom.NewRef(l)
}

// RemoveAt deletes the element at position and rebalances on the return
// path.
func (l *List) RemoveAt(loader atom.Loader, position int) (*List, error) {
	if !l.HasValue {
		return l, nil
	}
	leftCount, _, err := listChildStats(loader, &l.Previous)
	if err != nil {
		return nil, err
	}
	switch {
	case position < leftCount:
		child, err := resolveListChild(loader, &l.Previous)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return l, nil
		}
		newPrev, err := child.RemoveAt(loader, position)
		if err != nil {
			return nil, err
		}
		node, err := newListNode(loader, l.Value, listRefOrEmpty(newPrev), l.Next)
		if err != nil {
			return nil, err
		}
		return node.rebalance(loader)
	case position > leftCount:
		child, err := resolveListChild(loader, &l.Next)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return l, nil
		}
		newNext, err := child.RemoveAt(loader, position-leftCount-1)
		if err != nil {
			return nil, err
		}
		node, err := newListNode(loader, l.Value, l.Previous, listRefOrEmpty(newNext))
		if err != nil {
			return nil, err
		}
		return node.rebalance(loader)
	default:
		prev, err := resolveListChild(loader, &l.Previous)
		if err != nil {
			return nil, err
		}
		next, err := resolveListChild(loader, &l.Next)
		if err != nil {
			return nil, err
		}
		switch {
		case prev == nil && next == nil:
			return NewEmptyList(), nil
		case prev == nil:
			return next, nil
		case next == nil:
			return prev, nil
		default:
			succValue, err := next.minValue(loader)
			if err != nil {
				return nil, err
			}
			newNext, err := next.RemoveAt(loader, 0)
			if err != nil {
				return nil, err
			}
			node, err := newListNode(loader, succValue, l.Previous, listRefOrEmpty(newNext))
			if err != nil {
				return nil, err
			}
			return node.rebalance(loader)
		}
	}
}

// AsIterable returns every element in index order.
func (l *List) AsIterable(loader atom.Loader) ([]atom.Ref, error) {
	var result []atom.Ref
	var walk func(node *List) error
	walk = func(node *List) error {
		if node == nil || !node.HasValue {
			return nil
		}
		prev, err := resolveListChild(loader, &node.Previous)
		if err != nil {
			return err
		}
		if err := walk(prev); err != nil {
			return err
		}
		result = append(result, node.Value)
		next, err := resolveListChild(loader, &node.Next)
		if err != nil {
			return err
		}
		return walk(next)
	}
	if err := walk(l); err != nil {
		return nil, err
	}
	return result, nil
}

// Slice returns the half-open range [start, end) of elements.
func (l *List) Slice(loader atom.Loader, start, end int) ([]atom.Ref, error) {
	all, err := l.AsIterable(loader)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if end > len(all) {
		end = len(all)
	}
	if start >= end {
		return nil, nil
	}
	return all[start:end], nil
}
