// Package capture records the frames a peer receives and stores the
// recording on local disk or in S3, so that `mapsync inspect` can decode it
// later. A recording is a plain frame stream: every payload with its
// length prefix, in the order the ticks consumed them.
package capture

import (
	"io"
	"sync"

	"github.com/mapsync-dev/mapsync/pkg/protocol"
)

// Recorder appends frames to a writer. A nil *Recorder records nothing.
// Once a write fails or the size limit is reached it stops recording and
// keeps the first error.
type Recorder struct {
	mu       sync.Mutex
	w        io.Writer
	maxBytes int64
	bytes    int64
	frames   int
	err      error
}

// NewRecorder records into w. A non-positive maxBytes means no limit.
func NewRecorder(w io.Writer, maxBytes int64) *Recorder {
	return &Recorder{w: w, maxBytes: maxBytes}
}

// Record appends one frame payload.
func (r *Recorder) Record(payload []byte) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}

	frame := protocol.EncodeFrame(payload)
	if r.maxBytes > 0 && r.bytes+int64(len(frame)) > r.maxBytes {
		r.err = ErrLimit
		return
	}
	n, err := r.w.Write(frame)
	r.bytes += int64(n)
	if err != nil {
		r.err = err
		return
	}
	r.frames++
}

// Frames returns the number of frames recorded.
func (r *Recorder) Frames() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Bytes returns the number of bytes written.
func (r *Recorder) Bytes() int64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes
}

// Err returns the error that stopped recording, if any.
func (r *Recorder) Err() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
