package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

var (
	// ErrBadAddress is returned by Dial for an address that is neither
	// host:port nor a ws:// or wss:// URL.
	ErrBadAddress = errors.New("transport: invalid address")

	// ErrListenerClosed is returned by Accept after Close.
	ErrListenerClosed = errors.New("transport: listener closed")
)

// Conn is an ordered, reliable byte stream to one peer. Message boundaries
// are not preserved; callers frame their own data.
//
// A *net.TCPConn satisfies Conn directly, as does either end of net.Pipe.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
	SetWriteDeadline(t time.Time) error
}

// Listener accepts inbound connections.
type Listener interface {
	// Accept blocks until a connection arrives or the listener is closed.
	Accept() (Conn, error)
	Close() error
	Addr() net.Addr
}

// Dial connects to address. A ws:// or wss:// URL selects the WebSocket
// carrier; anything else must be a TCP host:port.
func Dial(ctx context.Context, address string) (Conn, error) {
	if IsWebSocketURL(address) {
		return DialWebSocket(ctx, address)
	}
	return DialTCP(ctx, address)
}

// IsWebSocketURL reports whether address selects the WebSocket carrier.
func IsWebSocketURL(address string) bool {
	return strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://")
}

// DialTCP connects to a TCP host:port.
func DialTCP(ctx context.Context, address string) (Conn, error) {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadAddress, address, err)
	}
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return c, nil
}
