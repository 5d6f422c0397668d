package atom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/protodb/protodb/pkg/dberrors"
)

// PayloadVersion is written as the first byte of every encoded payload so
// future fields can be added without breaking old readers (spec.md §4.2
// "a stable, versioned codec ... forward-compatible fields").
const PayloadVersion = 1

// Encoder builds a versioned, tagged binary payload. It is the Go
// equivalent of the teacher's length-prefixed record writer, specialized
// to atom field encoding instead of whole WAL entries.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder starts a fresh payload, writing the version byte.
func NewEncoder() *Encoder {
	e := &Encoder{}
	e.buf.WriteByte(PayloadVersion)
	return e
}

func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

func (e *Encoder) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) WriteInt64(v int64) {
	e.WriteUint64(uint64(v))
}

func (e *Encoder) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) WriteString(s string) {
	e.WriteUint32(uint32(len(s)))
	e.buf.WriteString(s)
}

func (e *Encoder) WriteBytes(b []byte) {
	e.WriteUint32(uint32(len(b)))
	e.buf.Write(b)
}

// WriteRef writes a reference. A non-empty ref must already be Saved (its
// in-memory atom has been persisted and carries a Pointer) — the storage
// layer guarantees this by saving the atom graph bottom-up before encoding
// any parent.
func (e *Encoder) WriteRef(r Ref) error {
	if r.Empty() {
		e.WriteBool(false)
		return nil
	}
	if !r.Saved() {
		return fmt.Errorf("atom: cannot encode unsaved ref")
	}
	e.WriteBool(true)
	var pbuf [EncodedSize]byte
	r.Pointer().Encode(pbuf[:])
	e.buf.Write(pbuf[:])
	return nil
}

// Decoder reads a versioned, tagged binary payload written by Encoder.
type Decoder struct {
	r       *bytes.Reader
	version byte
}

// NewDecoder wraps a previously encoded payload for reading.
func NewDecoder(payload []byte) (*Decoder, error) {
	if len(payload) == 0 {
		return nil, dberrors.Corruption("empty atom payload")
	}
	r := bytes.NewReader(payload)
	version, err := r.ReadByte()
	if err != nil {
		return nil, dberrors.Corruption("reading payload version: %v", err)
	}
	return &Decoder{r: r, version: version}, nil
}

func (d *Decoder) Version() byte { return d.version }

func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

func (d *Decoder) ReadUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Decoder) ReadRef() (Ref, error) {
	present, err := d.ReadBool()
	if err != nil {
		return Ref{}, err
	}
	if !present {
		return Ref{}, nil
	}
	var pbuf [EncodedSize]byte
	if _, err := io.ReadFull(d.r, pbuf[:]); err != nil {
		return Ref{}, err
	}
	p, err := DecodePointer(pbuf[:])
	if err != nil {
		return Ref{}, err
	}
	return RefFromPointer(p), nil
}
