package wal

import (
	"bytes"
	"testing"

	"github.com/protodb/protodb/pkg/atom"
)

func TestRecordHeaderEncoding(t *testing.T) {
	original := RecordHeader{
		Magic:      WALMagic,
		Version:    WALVersion,
		Kind:       atom.KindLiteral,
		PayloadLen: 50,
		CRC32:      0x12345678,
	}

	var buf [HeaderSize]byte
	original.Encode(buf[:])

	var decoded RecordHeader
	decoded.Decode(buf[:])

	if decoded != original {
		t.Errorf("header decoding mismatch.\nexpected: %+v\ngot: %+v", original, decoded)
	}
}

func TestCRC32(t *testing.T) {
	data := []byte("hello WAL world")
	crc := CalculateCRC32(data)

	if !ValidateCRC32(data, crc) {
		t.Error("CRC32 validation failed for valid data")
	}
	if ValidateCRC32([]byte("corrupted"), crc) {
		t.Error("CRC32 validation passed for corrupted data")
	}
}

func TestRecordPool(t *testing.T) {
	record := AcquireRecord()
	if record == nil {
		t.Fatal("failed to acquire record")
	}
	if cap(record.Payload) < 4096 {
		t.Errorf("expected payload cap >= 4096, got %d", cap(record.Payload))
	}

	record.Header.Kind = atom.KindLiteral
	record.Payload = append(record.Payload, []byte("test")...)

	ReleaseRecord(record)

	record2 := AcquireRecord()
	if len(record2.Payload) != 0 {
		t.Error("released record payload length should be 0")
	}
	if record2.Header.Kind != 0 {
		t.Error("released record header should be zeroed")
	}
}

func TestRecordWriteTo(t *testing.T) {
	payload := []byte("logging data")
	record := NewRecord(atom.KindLiteral, payload)

	var buf bytes.Buffer
	n, err := record.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	expectedSize := int64(HeaderSize + len(payload))
	if n != expectedSize {
		t.Errorf("expected to write %d bytes, wrote %d", expectedSize, n)
	}
	if buf.Len() != int(expectedSize) {
		t.Errorf("buffer length mismatch: got %d, want %d", buf.Len(), expectedSize)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.BufferSize <= 0 {
		t.Error("expected positive BufferSize")
	}
	if opts.SyncPolicy != SyncInterval {
		t.Error("expected SyncInterval as default")
	}
	if opts.SyncIntervalDuration <= 0 {
		t.Error("expected positive SyncIntervalDuration")
	}
}
