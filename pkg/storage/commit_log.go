package storage

import "sync"

// commitEntry records the set of top-level named-root keys a single write
// transaction touched (by read or write) at the LSN its commit was
// assigned.
type commitEntry struct {
	lsn  uint64
	keys map[string]struct{}
}

// CommitLog is the optimistic-concurrency validator for the object space.
// Rather than tracking every nested pointer a transaction dereferences, it
// tracks only the top-level named-root keys involved (spec.md §4.3 "a
// named root is the unit of conflict detection"): Transaction.Get(name)
// and WriteTransaction.Put/Delete(name) already know the name directly, so
// no reverse mapping from an arbitrary nested Ref back to an owning key is
// needed. A write transaction conflicts with the log if any commit after
// its snapshot touched a key the write transaction also read or wrote.
type CommitLog struct {
	mu      sync.Mutex
	tracker *LSNTracker
	entries []commitEntry
}

// NewCommitLog creates an empty commit log starting from startLSN. LSNs
// are not persisted; Open starts every commit log at 0.
func NewCommitLog(startLSN uint64) *CommitLog {
	return &CommitLog{tracker: NewLSNTracker(startLSN)}
}

// SnapshotLSN returns the LSN a new transaction should record as its
// snapshot point: every commit at or below this LSN is already visible to
// it.
func (c *CommitLog) SnapshotLSN() uint64 {
	return c.tracker.Current()
}

// Validate reports a *dberrors.ValidationFailedCommit-worthy conflict
// (returns false) if any commit strictly after snapshotLSN touched a key
// in touchedKeys.
func (c *CommitLog) Validate(snapshotLSN uint64, touchedKeys map[string]struct{}) (conflictKey string, ok bool) {
	if len(touchedKeys) == 0 {
		return "", true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if e.lsn <= snapshotLSN {
			continue
		}
		for k := range touchedKeys {
			if _, touched := e.keys[k]; touched {
				return k, false
			}
		}
	}
	return "", true
}

// Append records a successful commit's write-set under a freshly allocated
// LSN and returns it. minActiveLSN is the registry's current floor: any
// entry at or below it can never be consulted again and is trimmed.
func (c *CommitLog) Append(writeKeys map[string]struct{}, minActiveLSN uint64) uint64 {
	keys := make(map[string]struct{}, len(writeKeys))
	for k := range writeKeys {
		keys[k] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lsn := c.tracker.Next()
	c.entries = append(c.entries, commitEntry{lsn: lsn, keys: keys})

	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.lsn > minActiveLSN {
			kept = append(kept, e)
		}
	}
	c.entries = kept
	return lsn
}
