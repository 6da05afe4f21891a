package session

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mapsync-dev/mapsync/internal/errors"
	"github.com/mapsync-dev/mapsync/pkg/delta"
	"github.com/mapsync-dev/mapsync/pkg/protocol"
	"github.com/mapsync-dev/mapsync/pkg/scene"
	"github.com/mapsync-dev/mapsync/pkg/serializer"
	"github.com/mapsync-dev/mapsync/pkg/tracker"
	"github.com/mapsync-dev/mapsync/pkg/transport"
)

// State is the lifecycle state of a client session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// Client synchronizes the local scene with exactly one server.
//
// Client is not safe for concurrent use. Connect, Tick, RequestResync and
// Cancel must be called from the goroutine that owns the scene; Controller
// provides that serialization.
type Client struct {
	scene  scene.Scene
	reg    *serializer.Registry
	cfg    *Config
	logger *slog.Logger
	tracer tracer

	state   State
	address string
	link    *link

	tracker  *tracker.Tracker
	producer *delta.Producer
	consumer *delta.Consumer
}

// NewClient creates a disconnected client over s.
func NewClient(s scene.Scene, reg *serializer.Registry, cfg *Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		scene:  s,
		reg:    reg,
		cfg:    cfg,
		logger: cfg.Logger.With("role", "client"),
		tracer: newTracer(cfg.TracerName),
	}
}

// State returns the current state.
func (c *Client) State() State { return c.state }

// Address returns the address of the server, or "" when disconnected.
func (c *Client) Address() string { return c.address }

// Tracked returns the number of objects the client is tracking.
func (c *Client) Tracked() int {
	if c.tracker == nil {
		return 0
	}
	return c.tracker.Len()
}

// Connect dials address (host:port, or a ws:// URL) and starts tracking the
// scene as it is now. Selected objects are sent on the first tick.
func (c *Client) Connect(ctx context.Context, address string) error {
	if c.state != StateDisconnected {
		return ErrSessionActive
	}
	c.state = StateConnecting

	conn, err := transport.Dial(ctx, address)
	if err != nil {
		c.state = StateDisconnected
		code := errors.CodeDialFailed
		if isBadAddress(err) {
			code = errors.CodeBadAddress
		}
		c.logger.Warn("connect failed", "address", address, "error", err)
		return connectionError(code, address, "dial", err)
	}

	logger := c.logger.With("peer", address)
	c.link = newLink(conn, address, c.cfg, logger)
	c.address = address
	c.tracker = tracker.Build(c.scene)
	c.producer = delta.NewProducer(c.scene, c.reg, c.tracker, logger)
	c.consumer = delta.NewConsumer(c.scene, c.reg, c.tracker, delta.ConsumerConfig{
		ApplyRenames: c.cfg.ApplyRenames,
		Logger:       logger,
	})
	c.state = StateConnected
	c.cfg.Metrics.setPeers(1)

	logger.Info("connected", "level", c.scene.LevelName(), "tracked", c.tracker.Len())
	return nil
}

// Tick runs one synchronization pass: apply everything the server sent,
// then send local changes. It returns a connection error if the session
// was lost during the pass; the client is then Disconnected.
func (c *Client) Tick(ctx context.Context) (err error) {
	if c.state != StateConnected {
		return nil
	}

	start := time.Now()
	_, span := c.tracer.start(ctx, spanTick, "client")
	defer func() {
		c.cfg.Metrics.observeTick(time.Since(start))
		finish(span, err)
	}()

	frames, eof, ferr := c.link.poll()
	for _, f := range frames {
		c.dispatch(f)
		if c.state != StateConnected {
			// Exit received.
			return nil
		}
	}
	if ferr != nil {
		c.cfg.Metrics.protocolError("frame")
		c.link.logger.Warn("closing connection on framing error", "error", ferr)
		label := c.link.label
		c.disconnect()
		return connectionError(errors.CodeInvalidFrame, label, "read", ferr)
	}
	if eof {
		cause := c.link.readErr()
		c.link.logger.Warn("server disconnected", "error", cause)
		label := c.link.label
		c.disconnect()
		return connectionError(errors.CodePeerLost, label, "read", cause)
	}

	payload, cmds := c.producer.Frame()
	if payload == nil {
		return nil
	}
	span.SetAttributes(attribute.Int("mapsync.commands", len(cmds)))
	c.link.logger.Debug("send", "frame", protocol.Describe(payload))
	if werr := c.link.write(protocol.EncodeFrame(payload)); werr != nil {
		c.link.logger.Warn("send failed", "error", werr)
		label := c.link.label
		c.disconnect()
		return connectionError(errors.CodeWriteFailed, label, "write", werr)
	}
	c.cfg.Metrics.frameOut(protocol.HeaderUpdate, 1)
	c.cfg.Metrics.produced(cmds)
	return nil
}

func (c *Client) dispatch(payload []byte) {
	h, err := protocol.HeaderOf(payload)
	if err != nil {
		c.cfg.Metrics.protocolError("header")
		c.link.logger.Warn("dropping frame", "error", err)
		return
	}
	c.cfg.Metrics.frameIn(h)
	c.link.logger.Debug("recv", "frame", protocol.Describe(payload))

	switch h {
	case protocol.HeaderUpdate:
		res, err := c.consumer.ApplyUpdate(payload)
		c.cfg.Metrics.applied(res)
		if err != nil {
			c.cfg.Metrics.protocolError("command")
			c.link.logger.Warn("malformed update", "applied", res.Commands, "error", err)
		}

	case protocol.HeaderResync:
		res, err := c.consumer.ApplyResync(payload)
		c.cfg.Metrics.applied(res)
		c.cfg.Metrics.resync("applied")
		if err != nil {
			c.cfg.Metrics.protocolError("resync")
			c.link.logger.Warn("malformed resync", "applied", res.Commands, "error", err)
		}
		c.link.logger.Info("resync applied", "objects", res.Commands, "created", res.Created)

	case protocol.HeaderExit:
		c.link.logger.Info("server closed the session")
		c.disconnect()
	}
}

// RequestResync asks the server for its full state.
func (c *Client) RequestResync() error {
	if c.state != StateConnected {
		return ErrNotConnected
	}
	if err := c.link.write(protocol.EncodeFrame(protocol.ResyncRequest())); err != nil {
		label := c.link.label
		c.disconnect()
		return connectionError(errors.CodeWriteFailed, label, "write", err)
	}
	c.cfg.Metrics.frameOut(protocol.HeaderResync, 1)
	c.cfg.Metrics.resync("requested")
	return nil
}

// Cancel tells the server the session is over and disconnects. It is a
// no-op when not connected.
func (c *Client) Cancel() {
	if c.state != StateConnected {
		return
	}
	c.state = StateClosing
	if err := c.link.write(protocol.EncodeFrame(protocol.ExitPayload())); err != nil {
		c.link.logger.Debug("exit not delivered", "error", err)
	} else {
		c.cfg.Metrics.frameOut(protocol.HeaderExit, 1)
	}
	c.link.logger.Info("disconnected")
	c.disconnect()
}

func (c *Client) disconnect() {
	if c.link != nil {
		c.link.close()
	}
	c.link = nil
	c.address = ""
	c.tracker = nil
	c.producer = nil
	c.consumer = nil
	c.state = StateDisconnected
	c.cfg.Metrics.setPeers(0)
}
