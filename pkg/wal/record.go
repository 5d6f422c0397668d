package wal

import (
	"encoding/binary"
	"io"

	"github.com/protodb/protodb/pkg/atom"
)

// HeaderSize is the fixed on-disk size of a RecordHeader.
const (
	HeaderSize = 16
	WALVersion = 1

	// WALMagic lets a reader fail fast on a non-WAL file instead of
	// silently misinterpreting garbage as a record.
	WALMagic = 0xDEADBEEF
)

// RecordHeader precedes every atom payload written to a WAL file. Kind
// carries the atom's registry tag so a reader can reconstruct the right Go
// type before decoding the payload (spec.md §6 "Atom record on disk").
type RecordHeader struct {
	Magic      uint32
	Version    uint8
	Kind       atom.Kind
	Reserved   uint16
	PayloadLen uint32
	CRC32      uint32
}

// Record is one complete WAL entry: header plus payload.
type Record struct {
	Header  RecordHeader
	Payload []byte
}

func (h *RecordHeader) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = byte(h.Kind)
	binary.LittleEndian.PutUint16(buf[6:8], h.Reserved)
	binary.LittleEndian.PutUint32(buf[8:12], h.PayloadLen)
	binary.LittleEndian.PutUint32(buf[12:16], h.CRC32)
}

func (h *RecordHeader) Decode(buf []byte) {
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = buf[4]
	h.Kind = atom.Kind(buf[5])
	h.Reserved = binary.LittleEndian.Uint16(buf[6:8])
	h.PayloadLen = binary.LittleEndian.Uint32(buf[8:12])
	h.CRC32 = binary.LittleEndian.Uint32(buf[12:16])
}

// WriteTo writes header then payload and returns the total bytes written.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	var headerBuf [HeaderSize]byte
	r.Header.Encode(headerBuf[:])

	n, err := w.Write(headerBuf[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(r.Payload)
	return int64(n + m), err
}

// NewRecord builds a record ready for WriteTo, computing its CRC32 and
// length from payload.
func NewRecord(kind atom.Kind, payload []byte) *Record {
	return &Record{
		Header: RecordHeader{
			Magic:      WALMagic,
			Version:    WALVersion,
			Kind:       kind,
			PayloadLen: uint32(len(payload)),
			CRC32:      CalculateCRC32(payload),
		},
		Payload: payload,
	}
}
