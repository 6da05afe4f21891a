package protocol

import (
	"errors"
	"io"
	"math"
)

// Allocation limits to prevent DoS attacks via malicious length prefixes.
const (
	// DefaultMaxAllocation is the default maximum size of a single string or
	// attribute blob (4MB).
	DefaultMaxAllocation = 4 * 1024 * 1024
)

// Common decoding errors.
var (
	ErrNegativeLength     = errors.New("protocol: negative length prefix")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
)

// Decoder is a binary decoder that reads from a byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// Position returns the current read position.
func (d *Decoder) Position() int {
	return d.pos
}

// Skip advances the position by n bytes.
func (d *Decoder) Skip(n int) error {
	if d.pos+n > len(d.buf) {
		return io.ErrUnexpectedEOF
	}
	d.pos += n
	return nil
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes and returns them.
// The returned slice references the decoder's buffer; do not modify.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if d.pos+n > len(d.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadUint32 reads a uint32 in little-endian byte order.
func (d *Decoder) ReadUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint32(d.buf[d.pos]) | uint32(d.buf[d.pos+1])<<8 |
		uint32(d.buf[d.pos+2])<<16 | uint32(d.buf[d.pos+3])<<24
	d.pos += 4
	return v, nil
}

// ReadInt32 reads an int32 in little-endian byte order.
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

// ReadFloat32 reads a float32 in IEEE 754 format (little-endian).
func (d *Decoder) ReadFloat32() (float32, error) {
	v, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// readLength reads an int32 length prefix and validates it against the
// remaining buffer and the allocation limit.
func (d *Decoder) readLength() (int, error) {
	length, err := d.ReadInt32()
	if err != nil {
		return 0, err
	}
	if length < 0 {
		return 0, ErrNegativeLength
	}
	// Allocation limit check: prevent DoS via huge length prefix
	if length > DefaultMaxAllocation {
		return 0, ErrAllocationTooLarge
	}
	// Bounds check: length must fit in remaining buffer
	if int(length) > d.Remaining() {
		return 0, io.ErrUnexpectedEOF
	}
	return int(length), nil
}

// ReadString reads a length-prefixed string.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.readLength()
	if err != nil {
		return "", err
	}
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

// ReadLenBytes reads length-prefixed bytes.
// Returns a copy of the bytes (safe to retain).
func (d *Decoder) ReadLenBytes() ([]byte, error) {
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, d.buf[d.pos:d.pos+n])
	d.pos += n
	return b, nil
}

// ReadBool reads a boolean (single byte: 0x00=false, 0x01=true).
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	// Be lenient: any non-zero is true
	return b != 0x00, nil
}
