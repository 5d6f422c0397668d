package wal

import "time"

// SyncPolicy selects the durability/throughput tradeoff for WAL writes.
type SyncPolicy int

const (
	// SyncEveryWrite fsyncs after every record. Safest, slowest.
	SyncEveryWrite SyncPolicy = iota

	// SyncInterval fsyncs on a background ticker.
	SyncInterval

	// SyncBatch fsyncs once accumulated unsynced bytes cross a threshold.
	SyncBatch
)

// Options configures a Writer. The storage layer always calls Sync
// explicitly at transaction commit regardless of SyncPolicy — these
// settings only govern how eagerly uncommitted bytes reach disk in
// between (spec.md §4.2 "commit forces durability; writes in between may
// be deferred").
type Options struct {
	// BufferSize is the in-memory bufio buffer size before bytes reach the
	// OS page cache.
	BufferSize int

	SyncPolicy SyncPolicy

	// SyncIntervalDuration applies to SyncInterval.
	SyncIntervalDuration time.Duration

	// SyncBatchBytes applies to SyncBatch.
	SyncBatchBytes int64
}

// DefaultOptions mirrors values tuned for a single-node embedded engine.
func DefaultOptions() Options {
	return Options{
		BufferSize:           64 * 1024,
		SyncPolicy:           SyncInterval,
		SyncIntervalDuration: 200 * time.Millisecond,
		SyncBatchBytes:       1 * 1024 * 1024,
	}
}
