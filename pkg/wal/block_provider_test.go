package wal

import (
	"testing"

	"github.com/protodb/protodb/pkg/atom"
	"github.com/google/uuid"
)

func TestFileBlockProvider_AppendAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenFileBlockProvider(dir, true, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenFileBlockProvider failed: %v", err)
	}
	defer p.Close()

	payload := []byte("payload bytes")
	ptr, err := p.Append(atom.KindLiteral, payload)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if ptr.TransactionID != p.WriterTransactionID() {
		t.Errorf("pointer transaction id = %v, want %v", ptr.TransactionID, p.WriterTransactionID())
	}
	if err := p.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	kind, got, err := p.Load(ptr)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if kind != atom.KindLiteral {
		t.Errorf("kind = %v, want %v", kind, atom.KindLiteral)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %s, want %s", got, payload)
	}
}

func TestFileBlockProvider_RootPointerDefaultsToZero(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenFileBlockProvider(dir, true, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenFileBlockProvider failed: %v", err)
	}
	defer p.Close()

	root, err := p.CurrentRoot()
	if err != nil {
		t.Fatalf("CurrentRoot failed: %v", err)
	}
	if !root.Zero() {
		t.Errorf("CurrentRoot() = %v, want zero Pointer on fresh database", root)
	}
}

func TestFileBlockProvider_PublishRootRoundTrips(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenFileBlockProvider(dir, true, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenFileBlockProvider failed: %v", err)
	}
	defer p.Close()

	want := atom.Pointer{TransactionID: p.WriterTransactionID(), Offset: 128}
	if err := p.PublishRoot(want); err != nil {
		t.Fatalf("PublishRoot failed: %v", err)
	}
	got, err := p.CurrentRoot()
	if err != nil {
		t.Fatalf("CurrentRoot failed: %v", err)
	}
	if got != want {
		t.Errorf("CurrentRoot() = %v, want %v", got, want)
	}
}

func TestFileBlockProvider_SecondProcessGetsDifferentWriterWAL(t *testing.T) {
	dir := t.TempDir()
	first, err := OpenFileBlockProvider(dir, true, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenFileBlockProvider (first) failed: %v", err)
	}
	defer first.Close()

	second, err := OpenFileBlockProvider(dir, true, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenFileBlockProvider (second) failed: %v", err)
	}
	defer second.Close()

	if first.WriterTransactionID() == second.WriterTransactionID() {
		t.Errorf("both providers locked the same writer WAL %v", first.WriterTransactionID())
	}
}

func TestFileBlockProvider_ReusesExistingWALOnceUnlocked(t *testing.T) {
	dir := t.TempDir()
	first, err := OpenFileBlockProvider(dir, true, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenFileBlockProvider failed: %v", err)
	}
	firstID := first.WriterTransactionID()
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := OpenFileBlockProvider(dir, true, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenFileBlockProvider (second) failed: %v", err)
	}
	defer second.Close()

	if second.WriterTransactionID() != firstID {
		t.Errorf("second provider writer WAL = %v, want reused %v", second.WriterTransactionID(), firstID)
	}
}

func TestFileBlockProvider_MissingDirWithoutCreateIfMissing(t *testing.T) {
	dir := t.TempDir() + "/does-not-exist"
	if _, err := OpenFileBlockProvider(dir, false, DefaultOptions()); err == nil {
		t.Error("expected error opening missing directory without createIfMissing")
	}
}

func TestFileBlockProvider_LoadUnknownTransactionFails(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenFileBlockProvider(dir, true, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenFileBlockProvider failed: %v", err)
	}
	defer p.Close()

	if _, _, err := p.Load(atom.Pointer{TransactionID: uuid.New(), Offset: 0}); err == nil {
		t.Error("expected error loading from a transaction id with no WAL file")
	}
}
