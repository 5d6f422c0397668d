// Package atom implements the base unit of persistence for protodb: the
// immutable, content-addressed Atom and its durable AtomPointer reference.
// Every concrete atom kind registers a stable type tag so the on-disk WAL
// can reconstruct the right Go type on load.
package atom

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Pointer is a durable reference to a serialized atom: the id of the
// write transaction that produced it, plus the byte offset within that
// transaction's WAL record stream. The pair is globally unique across the
// storage lifetime and never changes once assigned.
type Pointer struct {
	TransactionID uuid.UUID
	Offset        uint64
}

// Zero reports whether the pointer has never been assigned.
func (p Pointer) Zero() bool {
	return p.TransactionID == uuid.Nil && p.Offset == 0
}

func (p Pointer) String() string {
	return fmt.Sprintf("%s@%d", p.TransactionID, p.Offset)
}

// EncodedSize is the fixed wire size of a Pointer: 16-byte transaction id
// followed by an 8-byte offset (spec.md §6 "Pointer encoding").
const EncodedSize = 16 + 8

// Encode writes the pointer's wire representation into buf, which must be
// at least EncodedSize bytes.
func (p Pointer) Encode(buf []byte) {
	copy(buf[0:16], p.TransactionID[:])
	binary.BigEndian.PutUint64(buf[16:24], p.Offset)
}

// DecodePointer reads a Pointer from its wire representation.
func DecodePointer(buf []byte) (Pointer, error) {
	if len(buf) < EncodedSize {
		return Pointer{}, fmt.Errorf("atom: short buffer decoding pointer: %d bytes", len(buf))
	}
	var p Pointer
	copy(p.TransactionID[:], buf[0:16])
	p.Offset = binary.BigEndian.Uint64(buf[16:24])
	return p, nil
}

// NewTransactionID allocates a fresh 128-bit transaction id. UUIDv7 is used
// so ids are roughly time-ordered, matching the teacher engine's own
// GenerateKey() convention.
func NewTransactionID() (uuid.UUID, error) {
	return uuid.NewV7()
}
