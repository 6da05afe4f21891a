package protocol

import (
	"errors"
	"fmt"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the length prefix in bytes.
	FrameHeaderSize = 4

	// DefaultMaxFrameSize bounds the declared length of a single frame (64MB).
	// Full resync payloads of large levels are the only frames that come
	// close to this.
	DefaultMaxFrameSize = 64 * 1024 * 1024
)

// Frame errors.
var (
	ErrInvalidFrameLength = errors.New("protocol: invalid frame length")
	ErrEmptyFrame         = errors.New("protocol: empty frame")
	ErrUnknownHeader      = errors.New("protocol: unknown frame header")
)

// Header identifies the kind of payload carried by a frame. It is the first
// byte of every frame payload.
type Header byte

const (
	HeaderUpdate Header = 'e' // Level name followed by change commands
	HeaderResync Header = 'r' // Full-state request (empty) or response
	HeaderExit   Header = 'x' // Session termination
)

// String returns the string representation of the header.
func (h Header) String() string {
	switch h {
	case HeaderUpdate:
		return "Update"
	case HeaderResync:
		return "Resync"
	case HeaderExit:
		return "Exit"
	default:
		return "Unknown"
	}
}

// HeaderOf returns the header byte of a frame payload.
func HeaderOf(payload []byte) (Header, error) {
	if len(payload) == 0 {
		return 0, ErrEmptyFrame
	}
	h := Header(payload[0])
	switch h {
	case HeaderUpdate, HeaderResync, HeaderExit:
		return h, nil
	}
	return h, fmt.Errorf("%w: 0x%02x", ErrUnknownHeader, payload[0])
}

// EncodeFrame prepends the payload length to the payload.
//
// Wire format:
//
//	┌───────────────────────────────┬──────────────────────────────┐
//	│ Payload Length                │ Payload                      │
//	│ (int32, little-endian)        │ (length bytes)               │
//	└───────────────────────────────┴──────────────────────────────┘
func EncodeFrame(payload []byte) []byte {
	return AppendFrame(make([]byte, 0, FrameHeaderSize+len(payload)), payload)
}

// AppendFrame appends one framed payload to dst. Several frames appended to
// the same buffer can be sent in a single transport write.
func AppendFrame(dst, payload []byte) []byte {
	n := uint32(len(payload))
	dst = append(dst, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	return append(dst, payload...)
}

// SplitFrames scans buf from offset 0 and returns every frame payload that is
// fully present. consumed is the number of bytes those frames occupy; a
// trailing partial frame (or fewer than FrameHeaderSize bytes) is left
// unconsumed for the caller to keep. The returned payloads alias buf.
func SplitFrames(buf []byte) (frames [][]byte, consumed int, err error) {
	return splitFrames(buf, DefaultMaxFrameSize)
}

func splitFrames(buf []byte, maxSize int) (frames [][]byte, consumed int, err error) {
	pos := 0
	for len(buf)-pos >= FrameHeaderSize {
		length := int32(uint32(buf[pos]) | uint32(buf[pos+1])<<8 |
			uint32(buf[pos+2])<<16 | uint32(buf[pos+3])<<24)
		if length < 0 || int(length) > maxSize {
			return frames, pos, fmt.Errorf("%w: %d", ErrInvalidFrameLength, length)
		}
		end := pos + FrameHeaderSize + int(length)
		if end > len(buf) {
			break
		}
		frames = append(frames, buf[pos+FrameHeaderSize:end])
		pos = end
	}
	return frames, pos, nil
}

// FrameBuffer reassembles frames from a byte stream that may arrive split
// arbitrarily across reads.
type FrameBuffer struct {
	buf     []byte
	maxSize int
}

// NewFrameBuffer creates a FrameBuffer that rejects frames larger than
// maxSize. A non-positive maxSize uses DefaultMaxFrameSize.
func NewFrameBuffer(maxSize int) *FrameBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameBuffer{maxSize: maxSize}
}

// Write appends raw stream bytes. It never fails.
func (fb *FrameBuffer) Write(p []byte) (int, error) {
	fb.buf = append(fb.buf, p...)
	return len(p), nil
}

// Buffered returns the number of bytes not yet returned as frames.
func (fb *FrameBuffer) Buffered() int {
	return len(fb.buf)
}

// Drain returns every complete frame currently buffered, in stream order.
// Returned payloads are copies and stay valid after further writes. After an
// error the stream position is undefined and the buffer should be discarded.
func (fb *FrameBuffer) Drain() ([][]byte, error) {
	frames, consumed, err := splitFrames(fb.buf, fb.maxSize)
	out := make([][]byte, len(frames))
	for i, f := range frames {
		out[i] = append([]byte(nil), f...)
	}
	rest := copy(fb.buf, fb.buf[consumed:])
	fb.buf = fb.buf[:rest]
	return out, err
}

// Reset discards all buffered data.
func (fb *FrameBuffer) Reset() {
	fb.buf = fb.buf[:0]
}
