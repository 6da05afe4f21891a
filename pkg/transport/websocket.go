package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// DefaultWebSocketPath is the HTTP path peers upgrade on.
const DefaultWebSocketPath = "/sync"

// wsConn adapts a message-oriented WebSocket to the byte-stream Conn
// contract. Each Write is one binary message; Read drains the current
// message before fetching the next one.
type wsConn struct {
	ws *websocket.Conn

	// Read side, used only by the reading goroutine.
	pending []byte

	writeMu sync.Mutex
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		mt, msg, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		c.pending = msg
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *wsConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return c.ws.Close()
}

func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

// DialWebSocket connects to a ws:// or wss:// URL.
func DialWebSocket(ctx context.Context, url string) (Conn, error) {
	if !IsWebSocketURL(url) {
		return nil, ErrBadAddress
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newWSConn(ws), nil
}

// WebSocketConfig configures a WebSocketListener.
type WebSocketConfig struct {
	// Path is the upgrade path. Default: DefaultWebSocketPath.
	Path string

	// ReadBufferSize and WriteBufferSize size the upgrader's buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the Origin header. Default: allow all, since
	// peers are editor processes rather than browsers.
	CheckOrigin func(r *http.Request) bool

	// Logger receives upgrade failures. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultWebSocketConfig returns a WebSocketConfig with sensible defaults.
func DefaultWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		Path:            DefaultWebSocketPath,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

// WebSocketListener accepts peers over HTTP upgrade. It can serve its own
// HTTP listener (ListenWebSocket) or be mounted in another router as an
// http.Handler.
type WebSocketListener struct {
	upgrader websocket.Upgrader
	router   chi.Router
	logger   *slog.Logger

	conns chan Conn
	done  chan struct{}
	once  sync.Once

	ln  net.Listener
	srv *http.Server
}

// NewWebSocketListener creates a listener without binding a socket.
func NewWebSocketListener(config *WebSocketConfig) *WebSocketListener {
	defaults := DefaultWebSocketConfig()
	if config == nil {
		config = defaults
	}
	if config.Path == "" {
		config.Path = defaults.Path
	}
	if config.ReadBufferSize == 0 {
		config.ReadBufferSize = defaults.ReadBufferSize
	}
	if config.WriteBufferSize == 0 {
		config.WriteBufferSize = defaults.WriteBufferSize
	}
	if config.CheckOrigin == nil {
		config.CheckOrigin = defaults.CheckOrigin
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := &WebSocketListener{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger.With("component", "websocket"),
		conns:  make(chan Conn),
		done:   make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Get(config.Path, l.upgrade)
	l.router = r
	return l
}

// ListenWebSocket binds addr and serves upgrades on it.
func ListenWebSocket(ctx context.Context, addr string, config *WebSocketConfig) (*WebSocketListener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	l := NewWebSocketListener(config)
	l.ln = ln
	l.srv = &http.Server{
		Handler:           l.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Warn("websocket server stopped", "error", err)
		}
	}()
	return l, nil
}

// ServeHTTP implements http.Handler.
func (l *WebSocketListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.router.ServeHTTP(w, r)
}

func (l *WebSocketListener) upgrade(w http.ResponseWriter, r *http.Request) {
	select {
	case <-l.done:
		http.Error(w, "listener closed", http.StatusServiceUnavailable)
		return
	default:
	}

	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newWSConn(ws)
	select {
	case l.conns <- c:
	case <-l.done:
		_ = c.Close()
	}
}

// Accept waits for the next upgraded connection.
func (l *WebSocketListener) Accept() (Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, ErrListenerClosed
	}
}

// Close stops accepting. It also shuts down the HTTP server when the
// listener owns one.
func (l *WebSocketListener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		if l.srv != nil {
			err = l.srv.Close()
		}
	})
	return err
}

// Addr returns the bound address, or nil when mounted in another router.
func (l *WebSocketListener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}
