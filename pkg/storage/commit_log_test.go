package storage

import "testing"

func keySet(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

func TestCommitLog_ValidateNoConflictWhenNoLaterCommitsOverlap(t *testing.T) {
	log := NewCommitLog(0)
	snapshot := log.SnapshotLSN()

	log.Append(keySet("a"), 0)

	if _, ok := log.Validate(snapshot, keySet("b")); !ok {
		t.Error("Validate reported a conflict on a disjoint key")
	}
}

func TestCommitLog_ValidateDetectsOverlapAfterSnapshot(t *testing.T) {
	log := NewCommitLog(0)
	snapshot := log.SnapshotLSN()

	log.Append(keySet("a"), 0)

	if key, ok := log.Validate(snapshot, keySet("a")); ok {
		t.Error("Validate missed a conflicting overlapping key")
	} else if key != "a" {
		t.Errorf("conflict key = %q, want a", key)
	}
}

func TestCommitLog_ValidateIgnoresCommitsAtOrBeforeSnapshot(t *testing.T) {
	log := NewCommitLog(0)
	log.Append(keySet("a"), 0)
	snapshotAfter := log.SnapshotLSN()

	if _, ok := log.Validate(snapshotAfter, keySet("a")); !ok {
		t.Error("Validate reported a conflict from a commit at or before the snapshot")
	}
}

func TestCommitLog_AppendTrimsEntriesBelowMinActiveLSN(t *testing.T) {
	log := NewCommitLog(0)
	log.Append(keySet("a"), 0)
	lsn := log.Append(keySet("b"), 100)

	if len(log.entries) != 0 {
		t.Fatalf("len(entries) = %d, want 0 once minActiveLSN exceeds every entry's LSN", len(log.entries))
	}
	if lsn != 2 {
		t.Errorf("second Append LSN = %d, want 2", lsn)
	}
}
