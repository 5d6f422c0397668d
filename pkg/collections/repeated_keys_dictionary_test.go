package collections

import (
	"sort"
	"testing"

	"github.com/protodb/protodb/pkg/atom"
)

func TestRepeatedKeysDictionary_AddFansOutUnderOneKey(t *testing.T) {
	r := NewEmptyRepeatedKeysDictionary()
	r, err := r.Add(nil, literalHasher, "status:open", atom.NewLiteral("order-1"))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	r, err = r.Add(nil, literalHasher, "status:open", atom.NewLiteral("order-2"))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	members, found, err := r.GetAll(nil, "status:open")
	if err != nil {
		t.Fatalf("GetAll error: %v", err)
	}
	if !found {
		t.Fatalf("GetAll(status:open) not found")
	}
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(members))
	}
	var got []string
	for _, m := range members {
		got = append(got, m.InMemory().(*atom.Literal).Value)
	}
	sort.Strings(got)
	if got[0] != "order-1" || got[1] != "order-2" {
		t.Fatalf("members = %v, want [order-1 order-2]", got)
	}
}

func TestRepeatedKeysDictionary_GetAllMissingKey(t *testing.T) {
	r := NewEmptyRepeatedKeysDictionary()
	if _, found, err := r.GetAll(nil, "nope"); err != nil || found {
		t.Fatalf("GetAll(nope): found=%v err=%v, want not found", found, err)
	}
}

func TestRepeatedKeysDictionary_RemoveLastMemberDropsKey(t *testing.T) {
	r := NewEmptyRepeatedKeysDictionary()
	r, err := r.Add(nil, literalHasher, "status:closed", atom.NewLiteral("order-9"))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	r, err = r.Remove(nil, literalHasher, "status:closed", atom.NewLiteral("order-9"))
	if err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, found, err := r.GetAll(nil, "status:closed"); err != nil || found {
		t.Fatalf("GetAll(status:closed) after last remove: found=%v err=%v, want not found", found, err)
	}
	keys, err := r.Keys(nil)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("Keys() = %v, want empty", keys)
	}
}

func TestRepeatedKeysDictionary_KeysListsAllBuckets(t *testing.T) {
	r := NewEmptyRepeatedKeysDictionary()
	r, err := r.Add(nil, literalHasher, "a", atom.NewLiteral("1"))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	r, err = r.Add(nil, literalHasher, "b", atom.NewLiteral("2"))
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	keys, err := r.Keys(nil)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("Keys() = %v, want [a b]", keys)
	}
}
