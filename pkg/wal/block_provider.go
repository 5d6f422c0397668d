package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/protodb/protodb/pkg/atom"
	"github.com/protodb/protodb/pkg/dberrors"
)

// BlockProvider is the durable byte-stream abstraction the storage engine
// builds atoms and the root pointer on top of: append-only writes, random
// reads at any previously returned pointer, and an atomically published
// root pointer (spec.md §4.1 "BlockProvider").
type BlockProvider interface {
	Append(kind atom.Kind, payload []byte) (atom.Pointer, error)
	Load(p atom.Pointer) (atom.Kind, []byte, error)
	Sync() error
	WriterTransactionID() uuid.UUID
	CurrentRoot() (atom.Pointer, error)
	PublishRoot(root atom.Pointer) error
	Close() error
}

const walExtension = ".wal"
const rootFileName = "root.json"

// FileBlockProvider implements BlockProvider over a directory of
// uuid-named WAL files plus a root.json pointer file, grounded on
// original_source's FileBlockProvider/SharedFileStorage writer-WAL
// selection and root publication.
type FileBlockProvider struct {
	baseDir  string
	writer   *Writer
	writerID uuid.UUID
	lockFile *os.File

	mu      sync.Mutex
	readers map[uuid.UUID]*Reader
}

// OpenFileBlockProvider selects (or creates) this process's writer WAL and
// returns a ready provider. createIfMissing controls whether baseDir is
// created when absent; it does not affect writer-WAL selection.
func OpenFileBlockProvider(baseDir string, createIfMissing bool, opts Options) (*FileBlockProvider, error) {
	if _, err := os.Stat(baseDir); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("wal: stat %s: %w", baseDir, err)
		}
		if !createIfMissing {
			return nil, dberrors.User("storage directory %s does not exist", baseDir)
		}
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("wal: create %s: %w", baseDir, err)
		}
	}

	lockFile, writerID, err := selectWriterWAL(baseDir)
	if err != nil {
		return nil, err
	}

	writer, err := NewWriterFromFile(lockFile, opts)
	if err != nil {
		lockFile.Close()
		return nil, err
	}

	return &FileBlockProvider{
		baseDir:  baseDir,
		writer:   writer,
		writerID: writerID,
		lockFile: lockFile,
		readers:  make(map[uuid.UUID]*Reader),
	}, nil
}

// selectWriterWAL scans baseDir for existing "<uuid>.wal" files and tries
// to exclusively flock each in turn; on total failure (or none existing)
// it creates a fresh uuid-named WAL (spec.md §9 "writer-WAL selection").
func selectWriterWAL(baseDir string) (*os.File, uuid.UUID, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("wal: list %s: %w", baseDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), walExtension) {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), walExtension))
		if err != nil {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())
		f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			continue
		}
		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			f.Close()
			continue
		}
		return f, id, nil
	}

	id := uuid.New()
	path := filepath.Join(baseDir, id.String()+walExtension)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("wal: create %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, uuid.Nil, fmt.Errorf("wal: lock newly created %s: %w", path, err)
	}
	return f, id, nil
}

// Append writes payload under kind to the writer WAL and returns its
// pointer (this WAL's transaction id plus the offset it was written at).
func (p *FileBlockProvider) Append(kind atom.Kind, payload []byte) (atom.Pointer, error) {
	offset, err := p.writer.Append(kind, payload)
	if err != nil {
		return atom.Pointer{}, err
	}
	return atom.Pointer{TransactionID: p.writerID, Offset: offset}, nil
}

// Sync forces the writer WAL's buffered bytes to durable storage.
func (p *FileBlockProvider) Sync() error {
	return p.writer.Sync()
}

// WriterTransactionID returns this process's writer-WAL identity.
func (p *FileBlockProvider) WriterTransactionID() uuid.UUID {
	return p.writerID
}

// Load reads the record at p, opening (and caching) a read-only handle on
// whichever WAL file p.TransactionID names — which may or may not be this
// process's own writer WAL.
func (p *FileBlockProvider) Load(ptr atom.Pointer) (atom.Kind, []byte, error) {
	reader, err := p.readerFor(ptr.TransactionID)
	if err != nil {
		return 0, nil, err
	}
	record, err := reader.ReadAt(int64(ptr.Offset))
	if err != nil {
		return 0, nil, fmt.Errorf("wal: load %s: %w", ptr, err)
	}
	payload := append([]byte(nil), record.Payload...)
	kind := record.Header.Kind
	ReleaseRecord(record)
	return kind, payload, nil
}

func (p *FileBlockProvider) readerFor(id uuid.UUID) (*Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r, ok := p.readers[id]; ok {
		return r, nil
	}
	path := filepath.Join(p.baseDir, id.String()+walExtension)
	r, err := NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("wal: open reader for %s: %w", id, err)
	}
	p.readers[id] = r
	return r, nil
}

type rootFile struct {
	TransactionID string `json:"transaction_id"`
	Offset        uint64 `json:"offset"`
}

// CurrentRoot reads the published root pointer, or the zero Pointer if the
// database has just been created and has never committed.
func (p *FileBlockProvider) CurrentRoot() (atom.Pointer, error) {
	data, err := os.ReadFile(filepath.Join(p.baseDir, rootFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return atom.Pointer{}, nil
		}
		return atom.Pointer{}, fmt.Errorf("wal: read root: %w", err)
	}
	var rf rootFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return atom.Pointer{}, dberrors.Corruption("root.json: %v", err)
	}
	id, err := uuid.Parse(rf.TransactionID)
	if err != nil {
		return atom.Pointer{}, dberrors.Corruption("root.json: bad transaction id %q", rf.TransactionID)
	}
	return atom.Pointer{TransactionID: id, Offset: rf.Offset}, nil
}

// PublishRoot atomically replaces the published root pointer via
// write-to-temp-then-rename, so a concurrent reader never observes a
// partially written root.json (spec.md §4.1 "atomic root pointer
// publish").
func (p *FileBlockProvider) PublishRoot(root atom.Pointer) error {
	data, err := json.Marshal(rootFile{TransactionID: root.TransactionID.String(), Offset: root.Offset})
	if err != nil {
		return err
	}
	finalPath := filepath.Join(p.baseDir, rootFileName)
	tmpPath := finalPath + ".tmp"

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("wal: create %s: %w", tmpPath, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("wal: write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("wal: fsync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("wal: publish root: %w", err)
	}
	return nil
}

// Close releases the writer WAL's exclusive lock and every cached reader.
func (p *FileBlockProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if err := p.writer.Close(); err != nil {
		firstErr = err
	}
	for _, r := range p.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := p.lockFile.Close(); err != nil && !errors.Is(err, os.ErrClosed) && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
