package serializer

import (
	"github.com/mapsync-dev/mapsync/pkg/protocol"
)

// Archive is a bidirectional attribute stream. A descriptor visits the
// same fields in the same order whether the archive is loading (bytes into
// the object) or saving (object into bytes), so one routine serves both.
//
// Errors are sticky: after the first failure every accessor is a no-op and
// Err reports the failure.
type Archive struct {
	loading bool
	enc     *protocol.Encoder
	dec     *protocol.Decoder
	err     error
}

// NewWriter returns a saving archive.
func NewWriter() *Archive {
	return &Archive{enc: protocol.NewEncoderWithCap(64)}
}

// NewReader returns a loading archive over data.
func NewReader(data []byte) *Archive {
	return &Archive{loading: true, dec: protocol.NewDecoder(data)}
}

// Loading reports whether fields are read from the stream into the object.
func (ar *Archive) Loading() bool { return ar.loading }

// Err returns the first error encountered.
func (ar *Archive) Err() error { return ar.err }

// SetError records err unless an error is already recorded. Descriptors use
// it to reject values they cannot apply.
func (ar *Archive) SetError(err error) {
	if ar.err == nil {
		ar.err = err
	}
}

// Bytes returns the encoded bytes of a saving archive.
func (ar *Archive) Bytes() []byte {
	if ar.enc == nil {
		return nil
	}
	return ar.enc.Bytes()
}

// Remaining returns the unread byte count of a loading archive.
func (ar *Archive) Remaining() int {
	if ar.dec == nil {
		return 0
	}
	return ar.dec.Remaining()
}

// Int32 serializes a 4-byte signed integer.
func (ar *Archive) Int32(v *int32) {
	if ar.err != nil {
		return
	}
	if !ar.loading {
		ar.enc.WriteInt32(*v)
		return
	}
	x, err := ar.dec.ReadInt32()
	if err != nil {
		ar.err = err
		return
	}
	*v = x
}

// Float32 serializes a 4-byte IEEE-754 float.
func (ar *Archive) Float32(v *float32) {
	if ar.err != nil {
		return
	}
	if !ar.loading {
		ar.enc.WriteFloat32(*v)
		return
	}
	x, err := ar.dec.ReadFloat32()
	if err != nil {
		ar.err = err
		return
	}
	*v = x
}

// String serializes a length-prefixed string.
func (ar *Archive) String(v *string) {
	if ar.err != nil {
		return
	}
	if !ar.loading {
		ar.enc.WriteString(*v)
		return
	}
	x, err := ar.dec.ReadString()
	if err != nil {
		ar.err = err
		return
	}
	*v = x
}

// Byte serializes a single byte.
func (ar *Archive) Byte(v *byte) {
	if ar.err != nil {
		return
	}
	if !ar.loading {
		ar.enc.WriteByte(*v)
		return
	}
	x, err := ar.dec.ReadByte()
	if err != nil {
		ar.err = err
		return
	}
	*v = x
}
