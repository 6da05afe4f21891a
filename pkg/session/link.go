package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mapsync-dev/mapsync/pkg/capture"
	"github.com/mapsync-dev/mapsync/pkg/protocol"
	"github.com/mapsync-dev/mapsync/pkg/transport"
)

// link owns one connection. A reader goroutine copies raw chunks off the
// wire onto a channel; everything else (reassembly, parsing, writes) runs
// on the goroutine that drives the tick.
type link struct {
	conn   transport.Conn
	label  string
	logger *slog.Logger

	chunks chan []byte
	done   chan struct{} // closed by the reader when the connection ends
	stop   chan struct{} // closed by close() to release a blocked reader
	err    error         // read error; valid once done is closed

	frames       *protocol.FrameBuffer
	writeTimeout time.Duration
	metrics      *Metrics
	capture      *capture.Recorder

	closeOnce sync.Once
}

func newLink(conn transport.Conn, label string, cfg *Config, logger *slog.Logger) *link {
	l := &link{
		conn:         conn,
		label:        label,
		logger:       logger,
		chunks:       make(chan []byte, cfg.ReadQueue),
		done:         make(chan struct{}),
		stop:         make(chan struct{}),
		frames:       protocol.NewFrameBuffer(cfg.MaxFrameSize),
		writeTimeout: cfg.WriteTimeout,
		metrics:      cfg.Metrics,
		capture:      cfg.Capture,
	}
	go l.read(cfg.ReadBufferSize)
	return l
}

func (l *link) read(size int) {
	defer close(l.done)
	buf := make([]byte, size)
	for {
		n, err := l.conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case l.chunks <- chunk:
			case <-l.stop:
				return
			}
		}
		if err != nil {
			l.err = err
			return
		}
	}
}

// poll returns every complete frame received since the last call. eof is
// set once the reader has stopped and every byte it read was consumed.
// A framing error leaves the stream position undefined; the caller must
// close the link.
func (l *link) poll() (frames [][]byte, eof bool, err error) {
	// Checked first: every chunk the reader sent before exiting is then
	// already queued.
	select {
	case <-l.done:
		eof = true
	default:
	}

	for drained := false; !drained; {
		select {
		case c := <-l.chunks:
			l.frames.Write(c)
			l.metrics.bytesIn(len(c))
		default:
			drained = true
		}
	}

	frames, err = l.frames.Drain()
	for _, f := range frames {
		l.capture.Record(f)
	}
	return frames, eof, err
}

// readErr returns the error that ended the reader, if it has ended.
func (l *link) readErr() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// write sends b in one call, bounded by the write timeout.
func (l *link) write(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if l.writeTimeout > 0 {
		_ = l.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout))
	}
	_, err := l.conn.Write(b)
	if err == nil {
		l.metrics.bytesOut(len(b))
	}
	return err
}

func (l *link) close() {
	l.closeOnce.Do(func() {
		close(l.stop)
		_ = l.conn.Close()
	})
}
