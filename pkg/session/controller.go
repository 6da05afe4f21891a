package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/mapsync-dev/mapsync/pkg/scene"
	"github.com/mapsync-dev/mapsync/pkg/serializer"
	"github.com/mapsync-dev/mapsync/pkg/transport"
)

// Role is the part a controller currently plays.
type Role string

const (
	RoleIdle   Role = "idle"
	RoleClient Role = "client"
	RoleServer Role = "server"
)

// Status is a point-in-time summary of a controller.
type Status struct {
	Role    Role       `json:"role"`
	State   string     `json:"state"`
	Level   string     `json:"level"`
	Address string     `json:"address,omitempty"`
	Objects int        `json:"objects"`
	Tracked int        `json:"tracked"`
	Peers   []PeerInfo `json:"peers,omitempty"`
}

// Controller is the control surface over one scene: it runs at most one
// session at a time, either as a client or as a server, and serializes all
// access to the scene behind one lock. Every method is safe for concurrent
// use; host code that mutates the scene does so through Edit.
type Controller struct {
	mu sync.Mutex

	scene    scene.Scene
	cfg      *Config
	client   *Client
	server   *Server
	throttle *Throttle
}

// NewController creates an idle controller.
func NewController(s scene.Scene, reg *serializer.Registry, cfg *Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		scene:    s,
		cfg:      cfg,
		client:   NewClient(s, reg, cfg),
		server:   NewServer(s, reg, cfg),
		throttle: NewThrottle(cfg.TickInterval),
	}
}

func (c *Controller) activeLocked() bool {
	return c.client.State() != StateDisconnected || c.server.Bound()
}

// Active reports whether a session is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

// Connect starts a client session. It is refused while any session is
// active.
func (c *Controller) Connect(ctx context.Context, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeLocked() {
		return ErrSessionActive
	}
	c.throttle.Reset()
	return c.client.Connect(ctx, address)
}

// Bind starts a server session on port. It is refused while any session is
// active.
func (c *Controller) Bind(ctx context.Context, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeLocked() {
		return ErrSessionActive
	}
	c.throttle.Reset()
	return c.server.Bind(ctx, port)
}

// Serve starts a server session on listeners that are already open.
func (c *Controller) Serve(listeners ...transport.Listener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeLocked() {
		return ErrSessionActive
	}
	c.throttle.Reset()
	return c.server.Serve(listeners...)
}

// Addr returns the server's TCP address, or nil when not serving.
func (c *Controller) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.server.Addr()
}

// Cancel ends the running session, telling the other side with an Exit
// frame. It is a no-op when idle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.Cancel()
	c.server.Cancel()
}

// RequestResync asks the server for its full state. Only clients can
// request one.
func (c *Controller) RequestResync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.RequestResync()
}

// Tick runs one synchronization pass of whichever session is active.
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickLocked(ctx)
}

func (c *Controller) tickLocked(ctx context.Context) error {
	switch {
	case c.server.Bound():
		return c.server.Tick(ctx)
	case c.client.State() == StateConnected:
		return c.client.Tick(ctx)
	}
	return nil
}

// Advance feeds host frame time to the throttle and ticks when it fires.
// It reports whether a tick ran.
func (c *Controller) Advance(ctx context.Context, dt time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.throttle.Advance(dt) {
		return false, nil
	}
	return true, c.tickLocked(ctx)
}

// Run ticks every TickInterval until ctx is done, then cancels the session.
// Connection faults returned by a tick are already logged; the loop keeps
// running so the session can be restarted.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Cancel()
			return nil
		case <-ticker.C:
			_ = c.Tick(ctx)
		}
	}
}

// Edit runs fn with exclusive access to the scene.
func (c *Controller) Edit(fn func(s scene.Scene)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.scene)
}

// Status returns a summary of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Role:    RoleIdle,
		State:   c.client.State().String(),
		Level:   c.scene.LevelName(),
		Objects: len(c.scene.Objects()),
	}
	switch {
	case c.server.Bound():
		st.Role = RoleServer
		st.State = "Bound"
		if a := c.server.Addr(); a != nil {
			st.Address = a.String()
		}
		st.Tracked = c.server.Tracked()
		st.Peers = c.server.Peers()
	case c.client.State() != StateDisconnected:
		st.Role = RoleClient
		st.Address = c.client.Address()
		st.Tracked = c.client.Tracked()
	}
	return st
}
