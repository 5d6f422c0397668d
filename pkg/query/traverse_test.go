package query

import (
	"testing"

	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/collections"
)

func memberHasher(a atom.Atom) int64 {
	row := a.(*atom.UserRecord)
	idAtom, _, _ := row.GetAttribute("id", nil)
	return atom.LiteralHash(idAtom.(*atom.Literal).Value)
}

func TestTraverse_UpFollowsParentChain(t *testing.T) {
	grandparent := newRow(map[string]string{"id": "gp"})
	parent := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("p"), "manager": grandparent})
	child := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("c"), "manager": parent})
	start := NewRecord(child, nil)

	got, err := Traverse(start, "manager", Up, BFS, -1, false)
	if err != nil {
		t.Fatalf("Traverse error: %v", err)
	}
	ids := idsOf(t, got)
	if len(ids) != 2 || ids[0] != "p" || ids[1] != "gp" {
		t.Fatalf("ids = %v, want [p gp]", ids)
	}
}

func TestTraverse_IncludeStartNode(t *testing.T) {
	parent := newRow(map[string]string{"id": "p"})
	child := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("c"), "manager": parent})
	start := NewRecord(child, nil)

	got, err := Traverse(start, "manager", Up, BFS, -1, true)
	if err != nil {
		t.Fatalf("Traverse error: %v", err)
	}
	ids := idsOf(t, got)
	if len(ids) != 2 || ids[0] != "c" || ids[1] != "p" {
		t.Fatalf("ids = %v, want [c p]", ids)
	}
}

func TestTraverse_MaxDepthBoundsExpansion(t *testing.T) {
	grandparent := newRow(map[string]string{"id": "gp"})
	parent := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("p"), "manager": grandparent})
	child := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("c"), "manager": parent})
	start := NewRecord(child, nil)

	got, err := Traverse(start, "manager", Up, BFS, 1, false)
	if err != nil {
		t.Fatalf("Traverse error: %v", err)
	}
	ids := idsOf(t, got)
	if len(ids) != 1 || ids[0] != "p" {
		t.Fatalf("ids = %v, want [p] (depth 1 stops before grandparent)", ids)
	}
}

func buildTree(t *testing.T) Record {
	t.Helper()
	leafA := newRow(map[string]string{"id": "a"})
	leafB := newRow(map[string]string{"id": "b"})
	children := collections.NewEmptyList()
	var err error
	children, err = children.AppendLast(nil, leafA)
	if err != nil {
		t.Fatalf("AppendLast error: %v", err)
	}
	children, err = children.AppendLast(nil, leafB)
	if err != nil {
		t.Fatalf("AppendLast error: %v", err)
	}
	root := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("root"), "children": children})
	return NewRecord(root, nil)
}

func TestTraverse_DownOverList(t *testing.T) {
	start := buildTree(t)
	got, err := Traverse(start, "children", Down, BFS, -1, false)
	if err != nil {
		t.Fatalf("Traverse error: %v", err)
	}
	ids := idsOf(t, got)
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want 2 leaves", ids)
	}
}

func TestTraverse_BFSvsDFSOrdering(t *testing.T) {
	leafAA := newRow(map[string]string{"id": "aa"})
	childrenA := collections.NewEmptyList()
	var err error
	childrenA, err = childrenA.AppendLast(nil, leafAA)
	if err != nil {
		t.Fatalf("AppendLast error: %v", err)
	}
	nodeA := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("a"), "children": childrenA})
	nodeB := newRow(map[string]string{"id": "b"})

	rootChildren := collections.NewEmptyList()
	rootChildren, err = rootChildren.AppendLast(nil, nodeA)
	if err != nil {
		t.Fatalf("AppendLast error: %v", err)
	}
	rootChildren, err = rootChildren.AppendLast(nil, nodeB)
	if err != nil {
		t.Fatalf("AppendLast error: %v", err)
	}
	root := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("root"), "children": rootChildren})
	start := NewRecord(root, nil)

	bfs, err := Traverse(start, "children", Down, BFS, -1, false)
	if err != nil {
		t.Fatalf("Traverse(BFS) error: %v", err)
	}
	bfsIDs := idsOf(t, bfs)
	if len(bfsIDs) != 3 || bfsIDs[0] != "a" || bfsIDs[1] != "b" || bfsIDs[2] != "aa" {
		t.Fatalf("BFS ids = %v, want [a b aa]", bfsIDs)
	}

	dfs, err := Traverse(start, "children", Down, DFS, -1, false)
	if err != nil {
		t.Fatalf("Traverse(DFS) error: %v", err)
	}
	dfsIDs := idsOf(t, dfs)
	if len(dfsIDs) != 3 || dfsIDs[0] != "a" || dfsIDs[1] != "aa" || dfsIDs[2] != "b" {
		t.Fatalf("DFS ids = %v, want [a aa b]", dfsIDs)
	}
}

func TestTraverse_CyclicPeersDoNotLoop(t *testing.T) {
	peer1 := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("peer1")})
	peer2 := atom.NewUserRecord(map[string]atom.Atom{"id": atom.NewLiteral("peer2")})

	peers1 := collections.NewEmptySet()
	var err error
	peers1, err = peers1.Add(nil, memberHasher, peer2)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	ref1 := atom.NewRef(peers1)
	peer1.Attributes["peers"] = &ref1

	peers2 := collections.NewEmptySet()
	peers2, err = peers2.Add(nil, memberHasher, peer1)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	ref2 := atom.NewRef(peers2)
	peer2.Attributes["peers"] = &ref2

	start := NewRecord(peer1, nil)
	got, err := Traverse(start, "peers", Down, BFS, -1, false)
	if err != nil {
		t.Fatalf("Traverse error: %v", err)
	}
	ids := idsOf(t, got)
	if len(ids) != 1 || ids[0] != "peer2" {
		t.Fatalf("ids = %v, want [peer2] (peer1 must not revisit itself through the cycle)", ids)
	}
}
