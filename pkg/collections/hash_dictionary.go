// Package collections implements protodb's persistent, path-copying AVL
// collections: HashDictionary, Dictionary, List, Set and
// RepeatedKeysDictionary. Every mutation returns a new root sharing
// unchanged subtrees with the prior version (spec.md §4.3).
package collections

import (
	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/dberrors"
)

func init() {
	atom.Register(atom.KindHashDictionary, func() atom.Atom { return &HashDictionary{} })
}

// HashDictionary is an AVL tree node keyed by a 64-bit integer. The node
// IS the tree: an empty dictionary is a HashDictionary with HasKey false,
// height 0, count 0 (spec.md §3 "HashDictionary" invariants). Previous and
// Next are the left and right children respectively, following the
// original source's naming.
type HashDictionary struct {
	atom.Base
	HasKey   bool
	Key      int64
	Value    atom.Ref
	Height   int
	Count    int
	Previous atom.Ref // left child
	Next     atom.Ref // right child
}

// NewEmptyHashDictionary returns the canonical empty tree.
func NewEmptyHashDictionary() *HashDictionary {
	return &HashDictionary{}
}

func (h *HashDictionary) AtomKind() atom.Kind { return atom.KindHashDictionary }

func (h *HashDictionary) Refs() []*atom.Ref {
	return []*atom.Ref{&h.Value, &h.Previous, &h.Next}
}

func (h *HashDictionary) EncodePayload(w *atom.Encoder) error {
	w.WriteBool(h.HasKey)
	if h.HasKey {
		w.WriteInt64(h.Key)
		if err := w.WriteRef(h.Value); err != nil {
			return err
		}
		w.WriteUint32(uint32(h.Height))
		w.WriteUint32(uint32(h.Count))
		if err := w.WriteRef(h.Previous); err != nil {
			return err
		}
		return w.WriteRef(h.Next)
	}
	return nil
}

func (h *HashDictionary) DecodePayload(d *atom.Decoder) error {
	hasKey, err := d.ReadBool()
	if err != nil {
		return err
	}
	h.HasKey = hasKey
	if !hasKey {
		return nil
	}
	if h.Key, err = d.ReadInt64(); err != nil {
		return err
	}
	if h.Value, err = d.ReadRef(); err != nil {
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
	h.Height = int(height)
	h.Count = int(count)
	if h.Previous, err = d.ReadRef(); err != nil {
		return err
	}
	if h.Next, err = d.ReadRef(); err != nil {
		return err
	}
	return nil
}

func (h *HashDictionary) keyPtr() *int64 {
	if !h.HasKey {
		return nil
	}
	k := h.Key
	return &k
}

func resolveHashChild(loader atom.Loader, ref *atom.Ref) (*HashDictionary, error) {
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
	hd, ok := a.(*HashDictionary)
	if !ok {
		return nil, dberrors.Corruption("expected HashDictionary atom, got %T", a)
	}
	if !hd.HasKey {
		return nil, nil
	}
	return hd, nil
}

func childStats(loader atom.Loader, ref *atom.Ref) (height, count int, err error) {
	child, err := resolveHashChild(loader, ref)
	if err != nil || child == nil {
		return 0, 0, err
	}
	return child.Height, child.Count, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// newHashNode builds a fresh node, recomputing height/count from the
// (possibly lazy) child refs given (spec.md §4.3 "height = 1 + max(...)",
// "count = 1 + left.count + right.count").
func newHashNode(loader atom.Loader, key *int64, value, previous, next atom.Ref) (*HashDictionary, error) {
	node := &HashDictionary{Value: value, Previous: previous, Next: next}
	if key != nil {
		node.HasKey = true
		node.Key = *key
		prevH, prevC, err := childStats(loader, &node.Previous)
		if err != nil {
			return nil, err
		}
		nextH, nextC, err := childStats(loader, &node.Next)
		if err != nil {
			return nil, err
		}
		node.Height = 1 + maxInt(prevH, nextH)
		node.Count = 1 + prevC + nextC
	}
	return node, nil
}

func (h *HashDictionary) balance(loader atom.Loader) (int, error) {
	prevH, _, err := childStats(loader, &h.Previous)
	if err != nil {
		return 0, err
	}
	nextH, _, err := childStats(loader, &h.Next)
	if err != nil {
		return 0, err
	}
	return nextH - prevH, nil
}

func (h *HashDictionary) rightRotation(loader atom.Loader) (*HashDictionary, error) {
	prev, err := resolveHashChild(loader, &h.Previous)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return h, nil
	}
	newRight, err := newHashNode(loader, h.keyPtr(), h.Value, prev.Next, h.Next)
	if err != nil {
		return nil, err
	}
	return newHashNode(loader, prev.keyPtr(), prev.Value, prev.Previous, atom.NewRef(newRight))
}

func (h *HashDictionary) leftRotation(loader atom.Loader) (*HashDictionary, error) {
	next, err := resolveHashChild(loader, &h.Next)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return h, nil
	}
	newLeft, err := newHashNode(loader, h.keyPtr(), h.Value, h.Previous, next.Previous)
	if err != nil {
		return nil, err
	}
	return newHashNode(loader, next.keyPtr(), next.Value, atom.NewRef(newLeft), next.Next)
}

// rebalance applies the rotation policy of spec.md §4.3 after an insert or
// delete walks back toward the root.
func (h *HashDictionary) rebalance(loader atom.Loader) (*HashDictionary, error) {
	bal, err := h.balance(loader)
	if err != nil {
		return nil, err
	}
	if bal >= -1 && bal <= 1 {
		return h, nil
	}
	node := h
	if bal < -1 {
		prev, err := resolveHashChild(loader, &node.Previous)
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
		node, err = newHashNode(loader, node.keyPtr(), node.Value, atom.NewRef(rotatedPrev), node.Next)
		if err != nil {
			return nil, err
		}
		return node.rightRotation(loader)
	}
	next, err := resolveHashChild(loader, &node.Next)
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
	node, err = newHashNode(loader, node.keyPtr(), node.Value, node.Previous, atom.NewRef(rotatedNext))
	if err != nil {
		return nil, err
	}
	return node.leftRotation(loader)
}

// GetAt performs a standard BST lookup; O(log n).
func (h *HashDictionary) GetAt(loader atom.Loader, key int64) (atom.Ref, bool, error) {
	node := h
	for node != nil && node.HasKey {
		if key == node.Key {
			return node.Value, true, nil
		}
		var err error
		if key > node.Key {
			node, err = resolveHashChild(loader, &node.Next)
		} else {
			node, err = resolveHashChild(loader, &node.Previous)
		}
		if err != nil {
			return atom.Ref{}, false, err
		}
	}
	return atom.Ref{}, false, nil
}

// Has reports key membership without materializing the value.
func (h *HashDictionary) Has(loader atom.Loader, key int64) (bool, error) {
	_, found, err := h.GetAt(loader, key)
	return found, err
}

// SetAt inserts or replaces the value at key, rebalancing on the return
// path, and returns the new tree root.
func (h *HashDictionary) SetAt(loader atom.Loader, key int64, value atom.Atom) (*HashDictionary, error) {
	if !h.HasKey {
		return newHashNode(loader, &key, atom.NewRef(value), atom.Ref{}, atom.Ref{})
	}
	switch {
	case key > h.Key:
		child, err := resolveHashChild(loader, &h.Next)
		if err != nil {
			return nil, err
		}
		var newNext *HashDictionary
		if child != nil {
			newNext, err = child.SetAt(loader, key, value)
		} else {
			newNext, err = newHashNode(loader, &key, atom.NewRef(value), atom.Ref{}, atom.Ref{})
		}
		if err != nil {
			return nil, err
		}
		node, err := newHashNode(loader, h.keyPtr(), h.Value, h.Previous, atom.NewRef(newNext))
		if err != nil {
			return nil, err
		}
		return node.rebalance(loader)
	case key < h.Key:
		child, err := resolveHashChild(loader, &h.Previous)
		if err != nil {
			return nil, err
		}
		var newPrev *HashDictionary
		if child != nil {
			newPrev, err = child.SetAt(loader, key, value)
		} else {
			newPrev, err = newHashNode(loader, &key, atom.NewRef(value), atom.Ref{}, atom.Ref{})
		}
		if err != nil {
			return nil, err
		}
		node, err := newHashNode(loader, h.keyPtr(), h.Value, atom.NewRef(newPrev), h.Next)
		if err != nil {
			return nil, err
		}
		return node.rebalance(loader)
	default:
		return newHashNode(loader, h.keyPtr(), atom.NewRef(value), h.Previous, h.Next)
	}
}

func (h *HashDictionary) minEntry(loader atom.Loader) (int64, atom.Ref, error) {
	node := h
	for {
		prev, err := resolveHashChild(loader, &node.Previous)
		if err != nil {
			return 0, atom.Ref{}, err
		}
		if prev == nil {
			return node.Key, node.Value, nil
		}
		node = prev
	}
}

// RemoveKey deletes key if present, promoting the in-order successor when
// both children exist, and rebalances on the return path (spec.md §4.3
// "remove_key").
func (h *HashDictionary) RemoveKey(loader atom.Loader, key int64) (*HashDictionary, error) {
	if !h.HasKey {
		return h, nil
	}
	switch {
	case key > h.Key:
		child, err := resolveHashChild(loader, &h.Next)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return h, nil
		}
		newNext, err := child.RemoveKey(loader, key)
		if err != nil {
			return nil, err
		}
		node, err := newHashNode(loader, h.keyPtr(), h.Value, h.Previous, refOrEmpty(newNext))
		if err != nil {
			return nil, err
		}
		return node.rebalance(loader)
	case key < h.Key:
		child, err := resolveHashChild(loader, &h.Previous)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return h, nil
		}
		newPrev, err := child.RemoveKey(loader, key)
		if err != nil {
			return nil, err
		}
		node, err := newHashNode(loader, h.keyPtr(), h.Value, refOrEmpty(newPrev), h.Next)
		if err != nil {
			return nil, err
		}
		return node.rebalance(loader)
	default:
		prev, err := resolveHashChild(loader, &h.Previous)
		if err != nil {
			return nil, err
		}
		next, err := resolveHashChild(loader, &h.Next)
		if err != nil {
			return nil, err
		}
		switch {
		case prev == nil && next == nil:
			return NewEmptyHashDictionary(), nil
		case prev == nil:
			return next, nil
		case next == nil:
			return prev, nil
		default:
			succKey, succValue, err := next.minEntry(loader)
			if err != nil {
				return nil, err
			}
			newNext, err := next.RemoveKey(loader, succKey)
			if err != nil {
				return nil, err
			}
			k := succKey
			node, err := newHashNode(loader, &k, succValue, h.Previous, refOrEmpty(newNext))
			if err != nil {
				return nil, err
			}
			return node.rebalance(loader)
		}
	}
}

func refOrEmpty(h *HashDictionary) atom.Ref {
	if h == nil || !h.HasKey {
		return atom.Ref{}
	}
	return atom.NewRef(h)
}

// HashEntry is one (key, value) pair produced by AsIterable.
type HashEntry struct {
	Key   int64
	Value atom.Ref
}

// AsIterable produces the tree's in-order traversal: a finite sequence
// (spec.md §4.3 "as_iterable").
func (h *HashDictionary) AsIterable(loader atom.Loader) ([]HashEntry, error) {
	var result []HashEntry
	var walk func(node *HashDictionary) error
	walk = func(node *HashDictionary) error {
		if node == nil || !node.HasKey {
			return nil
		}
		prev, err := resolveHashChild(loader, &node.Previous)
		if err != nil {
			return err
		}
		if err := walk(prev); err != nil {
			return err
		}
		result = append(result, HashEntry{Key: node.Key, Value: node.Value})
		next, err := resolveHashChild(loader, &node.Next)
		if err != nil {
			return err
		}
		return walk(next)
	}
	if err := walk(h); err != nil {
		return nil, err
	}
	return result, nil
}
