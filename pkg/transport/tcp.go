package transport

import (
	"context"
	"errors"
	"net"
)

// TCPListener accepts TCP connections.
type TCPListener struct {
	ln net.Listener
}

// ListenTCP binds addr (e.g. ":7777").
func ListenTCP(ctx context.Context, addr string) (*TCPListener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln}, nil
}

// Accept waits for the next connection.
func (l *TCPListener) Accept() (Conn, error) {
	c, err := l.ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		return nil, err
	}
	return c, nil
}

// Close stops the listener. Pending Accept calls return ErrListenerClosed.
func (l *TCPListener) Close() error { return l.ln.Close() }

// Addr returns the bound address.
func (l *TCPListener) Addr() net.Addr { return l.ln.Addr() }
