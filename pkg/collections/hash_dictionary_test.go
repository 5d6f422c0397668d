package collections

import (
	"testing"

	"github.com/protodb/protodb/pkg/atom"
)

func mustSet(t *testing.T, h *HashDictionary, key int64, value string) *HashDictionary {
	t.Helper()
	next, err := h.SetAt(nil, key, atom.NewLiteral(value))
	if err != nil {
		t.Fatalf("SetAt(%d) error: %v", key, err)
	}
	return next
}

func TestHashDictionary_InsertAscendingRotatesLeft(t *testing.T) {
	h := NewEmptyHashDictionary()
	h = mustSet(t, h, 1, "A")
	h = mustSet(t, h, 2, "B")
	h = mustSet(t, h, 3, "C")

	if h.Height != 2 {
		t.Fatalf("height = %d, want 2", h.Height)
	}
	if h.Count != 3 {
		t.Fatalf("count = %d, want 3", h.Count)
	}

	entries, err := h.AsIterable(nil)
	if err != nil {
		t.Fatalf("AsIterable error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	for i, want := range []int64{1, 2, 3} {
		if entries[i].Key != want {
			t.Fatalf("entries[%d].Key = %d, want %d", i, entries[i].Key, want)
		}
	}
}

func TestHashDictionary_GetAtAndHas(t *testing.T) {
	h := NewEmptyHashDictionary()
	h = mustSet(t, h, 10, "ten")
	h = mustSet(t, h, 5, "five")
	h = mustSet(t, h, 15, "fifteen")

	ref, found, err := h.GetAt(nil, 5)
	if err != nil {
		t.Fatalf("GetAt error: %v", err)
	}
	if !found {
		t.Fatalf("GetAt(5) not found")
	}
	lit, ok := ref.InMemory().(*atom.Literal)
	if !ok || lit.Value != "five" {
		t.Fatalf("GetAt(5) = %v, want literal \"five\"", ref.InMemory())
	}

	if _, found, err := h.GetAt(nil, 99); err != nil || found {
		t.Fatalf("GetAt(99) found=%v err=%v, want not found", found, err)
	}

	has, err := h.Has(nil, 15)
	if err != nil || !has {
		t.Fatalf("Has(15) = %v, %v, want true, nil", has, err)
	}
}

func TestHashDictionary_SetAtReplacesWithoutGrowingCount(t *testing.T) {
	h := NewEmptyHashDictionary()
	h = mustSet(t, h, 1, "A")
	h = mustSet(t, h, 2, "B")
	before := h.Count

	h = mustSet(t, h, 1, "A2")
	if h.Count != before {
		t.Fatalf("count after replace = %d, want %d", h.Count, before)
	}
	ref, found, err := h.GetAt(nil, 1)
	if err != nil || !found {
		t.Fatalf("GetAt(1) after replace: found=%v err=%v", found, err)
	}
	if lit := ref.InMemory().(*atom.Literal); lit.Value != "A2" {
		t.Fatalf("value after replace = %q, want A2", lit.Value)
	}
}

func TestHashDictionary_RemoveKeyRebalances(t *testing.T) {
	h := NewEmptyHashDictionary()
	for _, k := range []int64{5, 3, 8, 1, 4, 7, 9} {
		h = mustSet(t, h, k, "v")
	}
	before := h.Count

	h, err := h.RemoveKey(nil, 3)
	if err != nil {
		t.Fatalf("RemoveKey error: %v", err)
	}
	if h.Count != before-1 {
		t.Fatalf("count after remove = %d, want %d", h.Count, before-1)
	}
	if has, _ := h.Has(nil, 3); has {
		t.Fatalf("key 3 still present after removal")
	}

	entries, err := h.AsIterable(nil)
	if err != nil {
		t.Fatalf("AsIterable error: %v", err)
	}
	var prev int64 = -1 << 62
	for _, e := range entries {
		if e.Key <= prev {
			t.Fatalf("entries out of order: %v", entries)
		}
		prev = e.Key
	}
}

func TestHashDictionary_RemoveMissingKeyIsNoop(t *testing.T) {
	h := NewEmptyHashDictionary()
	h = mustSet(t, h, 1, "A")

	same, err := h.RemoveKey(nil, 42)
	if err != nil {
		t.Fatalf("RemoveKey error: %v", err)
	}
	if same.Count != h.Count {
		t.Fatalf("count changed on missing-key remove: got %d, want %d", same.Count, h.Count)
	}
}

func TestHashDictionary_StaysBalancedUnderManyInserts(t *testing.T) {
	h := NewEmptyHashDictionary()
	const n = 200
	for i := int64(0); i < n; i++ {
		h = mustSet(t, h, i, "v")
	}
	if h.Count != n {
		t.Fatalf("count = %d, want %d", h.Count, n)
	}
	// A balanced AVL tree over n=200 keys has height bounded well under 2*log2(n).
	if h.Height > 20 {
		t.Fatalf("height = %d, suspiciously unbalanced for n=%d", h.Height, n)
	}
}
