package protocol

import (
	"errors"
	"io"
	"math"
	"testing"
)

func TestEncoderDecoder(t *testing.T) {
	e := NewEncoder()

	// Write various types
	e.WriteByte(0x42)
	e.WriteBytes([]byte{0x01, 0x02, 0x03})
	e.WriteString("hello world")
	e.WriteLenBytes([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	e.WriteBool(true)
	e.WriteBool(false)
	e.WriteUint32(0x12345678)
	e.WriteInt32(-12345678)
	e.WriteFloat32(3.14159)

	// Decode and verify
	d := NewDecoder(e.Bytes())

	b, err := d.ReadByte()
	if err != nil || b != 0x42 {
		t.Errorf("ReadByte() = %x, %v; want 0x42, nil", b, err)
	}

	bs, err := d.ReadBytes(3)
	if err != nil || string(bs) != "\x01\x02\x03" {
		t.Errorf("ReadBytes(3) = %v, %v; want [1 2 3], nil", bs, err)
	}

	s, err := d.ReadString()
	if err != nil || s != "hello world" {
		t.Errorf("ReadString() = %q, %v; want \"hello world\", nil", s, err)
	}

	lb, err := d.ReadLenBytes()
	if err != nil || len(lb) != 4 || lb[0] != 0xDE {
		t.Errorf("ReadLenBytes() = %v, %v; want [DE AD BE EF], nil", lb, err)
	}

	bt, err := d.ReadBool()
	if err != nil || bt != true {
		t.Errorf("ReadBool() = %v, %v; want true, nil", bt, err)
	}
	bf, err := d.ReadBool()
	if err != nil || bf != false {
		t.Errorf("ReadBool() = %v, %v; want false, nil", bf, err)
	}

	u32, err := d.ReadUint32()
	if err != nil || u32 != 0x12345678 {
		t.Errorf("ReadUint32() = %x, %v; want 0x12345678, nil", u32, err)
	}

	i32, err := d.ReadInt32()
	if err != nil || i32 != -12345678 {
		t.Errorf("ReadInt32() = %d, %v; want -12345678, nil", i32, err)
	}

	f32, err := d.ReadFloat32()
	if err != nil || math.Abs(float64(f32)-3.14159) > 0.0001 {
		t.Errorf("ReadFloat32() = %f, %v; want 3.14159, nil", f32, err)
	}

	if !d.EOF() {
		t.Errorf("EOF() = false, want true (remaining %d)", d.Remaining())
	}
}

func TestEncoderLittleEndian(t *testing.T) {
	e := NewEncoder()
	e.WriteInt32(1)
	e.WriteString("ab")

	want := []byte{0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 'a', 'b'}
	got := e.Bytes()
	if string(got) != string(want) {
		t.Errorf("Bytes() = %v, want %v", got, want)
	}
}

func TestEncoderReset(t *testing.T) {
	e := NewEncoderWithCap(8)
	e.WriteString("scene")
	if e.Len() != 9 {
		t.Fatalf("Len() = %d, want 9", e.Len())
	}
	e.Reset()
	if e.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", e.Len())
	}
}

func TestDecoderErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		read    func(d *Decoder) error
		wantErr error
	}{
		{
			name:    "byte_empty",
			data:    nil,
			read:    func(d *Decoder) error { _, err := d.ReadByte(); return err },
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "int32_short",
			data:    []byte{0x01, 0x02},
			read:    func(d *Decoder) error { _, err := d.ReadInt32(); return err },
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "string_truncated",
			data:    []byte{0x05, 0x00, 0x00, 0x00, 'a', 'b'},
			read:    func(d *Decoder) error { _, err := d.ReadString(); return err },
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "string_negative",
			data:    []byte{0xFF, 0xFF, 0xFF, 0xFF},
			read:    func(d *Decoder) error { _, err := d.ReadString(); return err },
			wantErr: ErrNegativeLength,
		},
		{
			name:    "blob_too_large",
			data:    []byte{0x00, 0x00, 0x00, 0x7F},
			read:    func(d *Decoder) error { _, err := d.ReadLenBytes(); return err },
			wantErr: ErrAllocationTooLarge,
		},
		{
			name:    "skip_past_end",
			data:    []byte{0x01},
			read:    func(d *Decoder) error { return d.Skip(2) },
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.read(NewDecoder(tc.data))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestReadLenBytesReturnsCopy(t *testing.T) {
	e := NewEncoder()
	e.WriteLenBytes([]byte{1, 2, 3})
	buf := e.Bytes()

	got, err := NewDecoder(buf).ReadLenBytes()
	if err != nil {
		t.Fatalf("ReadLenBytes() error = %v", err)
	}
	buf[4] = 99
	if got[0] != 1 {
		t.Errorf("ReadLenBytes() aliases input buffer")
	}
}
