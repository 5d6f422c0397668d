package wal

import "sync"

// recordPool reuses Record structs across reads to keep the hot
// recovery-scan and lazy-load paths allocation-light.
var recordPool = sync.Pool{
	New: func() interface{} {
		return &Record{Payload: make([]byte, 0, 4096)}
	},
}

// AcquireRecord obtains a Record from the pool.
func AcquireRecord() *Record {
	return recordPool.Get().(*Record)
}

// ReleaseRecord returns a Record to the pool.
func ReleaseRecord(r *Record) {
	r.Header = RecordHeader{}
	r.Payload = r.Payload[:0]
	recordPool.Put(r)
}
