package wal

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/protodb/protodb/pkg/atom"
)

// Writer appends records to a single WAL file and tracks the logical
// stream offset handed back to callers, which the block provider stores
// as the Offset field of an atom.Pointer.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	options Options

	offset     int64
	batchBytes int64

	done   chan struct{}
	ticker *time.Ticker
	closed bool
}

// NewWriter opens path for append and resumes the logical offset at the
// file's current length so pointers issued across process restarts remain
// valid.
func NewWriter(path string, opts Options) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	w, err := NewWriterFromFile(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewWriterFromFile builds a Writer over an already-open file (typically
// one the caller has just flocked for exclusive writer-WAL use), resuming
// the logical offset at the file's current length.
func NewWriterFromFile(f *os.File, opts Options) (*Writer, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("wal: stat %s: %w", f.Name(), err)
	}

	w := &Writer{
		file:    f,
		writer:  bufio.NewWriterSize(f, opts.BufferSize),
		options: opts,
		offset:  info.Size(),
		done:    make(chan struct{}),
	}

	if opts.SyncPolicy == SyncInterval {
		w.ticker = time.NewTicker(opts.SyncIntervalDuration)
		go w.backgroundSync()
	}

	return w, nil
}

// Append writes kind+payload as one record and returns the byte offset the
// record starts at within this WAL file.
func (w *Writer) Append(kind atom.Kind, payload []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	record := NewRecord(kind, payload)
	startOffset := w.offset

	n, err := record.WriteTo(w.writer)
	if err != nil {
		return 0, err
	}
	w.offset += n
	w.batchBytes += n

	switch w.options.SyncPolicy {
	case SyncEveryWrite:
		if err := w.syncLocked(); err != nil {
			return 0, err
		}
	case SyncBatch:
		if w.batchBytes >= w.options.SyncBatchBytes {
			if err := w.syncLocked(); err != nil {
				return 0, err
			}
		}
	}

	return uint64(startOffset), nil
}

// Sync forces buffered bytes to durable storage. The storage layer must
// call this at every transaction commit.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncLocked()
}

func (w *Writer) syncLocked() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	w.batchBytes = 0
	return nil
}

// Offset reports the next write position, i.e. the current logical length
// of the stream.
func (w *Writer) Offset() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.offset
}

// Close flushes, fsyncs and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.ticker != nil {
		w.ticker.Stop()
		close(w.done)
	}

	if err := w.syncLocked(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *Writer) backgroundSync() {
	for {
		select {
		case <-w.ticker.C:
			w.Sync()
		case <-w.done:
			return
		}
	}
}
