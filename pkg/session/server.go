package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mapsync-dev/mapsync/internal/errors"
	"github.com/mapsync-dev/mapsync/pkg/delta"
	"github.com/mapsync-dev/mapsync/pkg/protocol"
	"github.com/mapsync-dev/mapsync/pkg/scene"
	"github.com/mapsync-dev/mapsync/pkg/serializer"
	"github.com/mapsync-dev/mapsync/pkg/tracker"
	"github.com/mapsync-dev/mapsync/pkg/transport"
)

// PeerState is the lifecycle state of one accepted connection.
type PeerState int

const (
	PeerAccepted PeerState = iota
	PeerRelaying
	PeerClosed
)

// String returns the string representation of the peer state.
func (s PeerState) String() string {
	switch s {
	case PeerAccepted:
		return "Accepted"
	case PeerRelaying:
		return "Relaying"
	case PeerClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// peer is one accepted connection. out collects the bytes to send it at
// the end of the current tick.
type peer struct {
	*link
	id    string
	addr  string
	state PeerState

	out     []byte
	updates int // Update frames queued in out
	resyncs int // Resync responses queued in out
}

// PeerInfo describes a connected peer.
type PeerInfo struct {
	ID    string `json:"id"`
	Addr  string `json:"addr"`
	State string `json:"state"`
}

// Server accepts any number of peers, applies their changes to the local
// scene, relays each peer's Update frames to every other peer, and sends
// its own local changes to all of them.
//
// Like Client, Server is not safe for concurrent use apart from the
// accept goroutines it runs internally.
type Server struct {
	scene  scene.Scene
	reg    *serializer.Registry
	cfg    *Config
	logger *slog.Logger
	tracer tracer

	bound     bool
	relayed   int // frames forwarded during the current tick
	listeners []transport.Listener
	accepted  chan transport.Conn
	stop      chan struct{}
	wg        sync.WaitGroup

	peers []*peer

	tracker  *tracker.Tracker
	producer *delta.Producer
	consumer *delta.Consumer
}

// NewServer creates an unbound server over s.
func NewServer(s scene.Scene, reg *serializer.Registry, cfg *Config) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		scene:  s,
		reg:    reg,
		cfg:    cfg,
		logger: cfg.Logger.With("role", "server"),
		tracer: newTracer(cfg.TracerName),
	}
}

// Bound reports whether the server is accepting peers.
func (s *Server) Bound() bool { return s.bound }

// Bind listens on TCP port (0 picks a free one) and, when configured, on
// the WebSocket address, then starts tracking the scene as it is now.
func (s *Server) Bind(ctx context.Context, port int) error {
	if s.bound {
		return ErrSessionActive
	}
	addr := fmt.Sprintf(":%d", port)
	ln, err := transport.ListenTCP(ctx, addr)
	if err != nil {
		s.logger.Warn("bind failed", "addr", addr, "error", err)
		return connectionError(errors.CodeListenFailed, addr, "listen", err)
	}
	listeners := []transport.Listener{ln}

	if s.cfg.WebSocketAddr != "" {
		wsl, err := transport.ListenWebSocket(ctx, s.cfg.WebSocketAddr, &transport.WebSocketConfig{
			Logger: s.logger,
		})
		if err != nil {
			_ = ln.Close()
			s.logger.Warn("bind failed", "addr", s.cfg.WebSocketAddr, "error", err)
			return connectionError(errors.CodeListenFailed, s.cfg.WebSocketAddr, "listen", err)
		}
		listeners = append(listeners, wsl)
	}

	return s.Serve(listeners...)
}

// Serve starts accepting peers from already-open listeners. Bind calls it;
// tests and embedders can pass their own.
func (s *Server) Serve(listeners ...transport.Listener) error {
	if s.bound {
		return ErrSessionActive
	}
	s.bound = true
	s.listeners = listeners
	s.accepted = make(chan transport.Conn, 16)
	s.stop = make(chan struct{})

	for _, ln := range listeners {
		s.wg.Add(1)
		go s.acceptLoop(ln)
		if a := ln.Addr(); a != nil {
			s.logger.Info("listening", "addr", a.String())
		}
	}

	s.tracker = tracker.Build(s.scene)
	s.producer = delta.NewProducer(s.scene, s.reg, s.tracker, s.logger)
	s.consumer = delta.NewConsumer(s.scene, s.reg, s.tracker, delta.ConsumerConfig{
		ApplyRenames: s.cfg.ApplyRenames,
		Logger:       s.logger,
	})
	return nil
}

func (s *Server) acceptLoop(ln transport.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !stderrors.Is(err, transport.ErrListenerClosed) {
				s.logger.Warn("accept failed", "error", errors.New(errors.CodeAcceptFailed).Wrap(err))
			}
			return
		}
		select {
		case s.accepted <- conn:
		case <-s.stop:
			_ = conn.Close()
			return
		}
	}
}

// Addr returns the TCP listen address, or nil when unbound.
func (s *Server) Addr() net.Addr {
	if len(s.listeners) == 0 {
		return nil
	}
	return s.listeners[0].Addr()
}

// Peers describes the connected peers in accept order.
func (s *Server) Peers() []PeerInfo {
	out := make([]PeerInfo, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, PeerInfo{ID: p.id, Addr: p.addr, State: p.state.String()})
	}
	return out
}

// Tracked returns the number of objects the server is tracking.
func (s *Server) Tracked() int {
	if s.tracker == nil {
		return 0
	}
	return s.tracker.Len()
}

// Tick runs one relay pass:
//
//  1. drop peers that were closed or failed
//  2. accept every pending connection and label it
//  3. read each peer's frames: apply and queue Update frames for relay
//     to every other peer, answer Resync requests to the requester only,
//     and close peers that send Exit
//  4. run the local producer and queue its frame for every peer
//  5. flush each peer's queue in a single write
func (s *Server) Tick(ctx context.Context) (err error) {
	if !s.bound {
		return nil
	}

	start := time.Now()
	ctx, span := s.tracer.start(ctx, spanTick, "server")
	defer func() {
		s.cfg.Metrics.observeTick(time.Since(start))
		finish(span, err)
	}()

	s.prune()
	s.acceptPending()

	s.relayed = 0
	for _, p := range s.peers {
		s.read(ctx, p)
	}
	relayed := s.relayed

	payload, cmds := s.producer.Frame()
	if payload != nil {
		s.logger.Debug("send", "frame", protocol.Describe(payload))
		s.cfg.Metrics.produced(cmds)
		for _, p := range s.peers {
			if p.state != PeerClosed {
				s.queue(p, payload)
			}
		}
	}

	s.flush()
	s.cfg.Metrics.relay(relayed)
	span.SetAttributes(
		attribute.Int("mapsync.peers", len(s.peers)),
		attribute.Int("mapsync.commands", len(cmds)),
		attribute.Int("mapsync.relayed", relayed),
	)
	return nil
}

func (s *Server) prune() {
	before := len(s.peers)
	s.peers = slices.DeleteFunc(s.peers, func(p *peer) bool {
		if p.state != PeerClosed {
			return false
		}
		p.close()
		return true
	})
	if len(s.peers) != before {
		s.cfg.Metrics.setPeers(len(s.peers))
	}
}

func (s *Server) acceptPending() {
	for {
		select {
		case conn := <-s.accepted:
			id := uuid.NewString()
			addr := ""
			if a := conn.RemoteAddr(); a != nil {
				addr = a.String()
			}
			logger := s.logger.With("peer", id)
			p := &peer{
				link:  newLink(conn, id, s.cfg, logger),
				id:    id,
				addr:  addr,
				state: PeerAccepted,
			}
			s.peers = append(s.peers, p)
			s.cfg.Metrics.setPeers(len(s.peers))
			logger.Info("peer connected", "addr", addr)
		default:
			return
		}
	}
}

func (s *Server) read(ctx context.Context, p *peer) {
	if p.state == PeerClosed {
		return
	}
	frames, eof, err := p.poll()

	for _, f := range frames {
		s.dispatch(ctx, p, f)
		if p.state == PeerClosed {
			return
		}
	}
	if err != nil {
		s.cfg.Metrics.protocolError("frame")
		p.logger.Warn("closing peer on framing error",
			"error", errors.New(errors.CodeInvalidFrame).WithPeer(p.id).Wrap(err))
		p.state = PeerClosed
		return
	}
	if eof {
		p.logger.Warn("peer disconnected",
			"error", errors.New(errors.CodePeerLost).WithPeer(p.id).Wrap(p.readErr()))
		p.state = PeerClosed
		return
	}
	if len(frames) > 0 {
		p.state = PeerRelaying
	}
}

func (s *Server) dispatch(ctx context.Context, from *peer, payload []byte) {
	h, err := protocol.HeaderOf(payload)
	if err != nil {
		s.cfg.Metrics.protocolError("header")
		from.logger.Warn("dropping frame", "error", err)
		return
	}
	s.cfg.Metrics.frameIn(h)
	from.logger.Debug("recv", "frame", protocol.Describe(payload))

	switch h {
	case protocol.HeaderUpdate:
		res, err := s.consumer.ApplyUpdate(payload)
		s.cfg.Metrics.applied(res)
		if err != nil {
			// The prefix stays applied here but is not forwarded.
			s.cfg.Metrics.protocolError("command")
			from.logger.Warn("malformed update not relayed", "applied", res.Commands, "error", err)
			return
		}
		for _, p := range s.peers {
			if p != from && p.state != PeerClosed {
				s.queue(p, payload)
				s.relayed++
			}
		}

	case protocol.HeaderResync:
		if !protocol.IsResyncRequest(payload) {
			s.cfg.Metrics.protocolError("resync")
			from.logger.Warn("ignoring resync response from a peer")
			return
		}
		s.answerResync(ctx, from)

	case protocol.HeaderExit:
		from.logger.Info("peer left")
		from.state = PeerClosed
	}
}

func (s *Server) answerResync(ctx context.Context, p *peer) {
	_, span := s.tracer.start(ctx, spanResync, "server", attribute.String("mapsync.peer", p.id))

	payload, n := s.producer.Resync()
	size := len(payload)
	human := scene.HumanSize(size)
	span.SetAttributes(attribute.Int("mapsync.objects", n), attribute.Int("mapsync.bytes", size))

	if !s.cfg.Confirmer.ConfirmResync(size, human) {
		s.cfg.Metrics.resync("refused")
		err := errors.New(errors.CodeResyncRefused).WithPeer(p.id)
		p.logger.Warn("resync refused", "size", human, "error", err)
		finish(span, err)
		return
	}

	p.out = protocol.AppendFrame(p.out, payload)
	p.resyncs++
	s.cfg.Metrics.resync("sent")
	p.logger.Info("resync sent", "objects", n, "size", human)
	finish(span, nil)
}

func (s *Server) queue(p *peer, payload []byte) {
	p.out = protocol.AppendFrame(p.out, payload)
	p.updates++
}

func (s *Server) flush() {
	for _, p := range s.peers {
		if p.state != PeerClosed && len(p.out) > 0 {
			if err := p.write(p.out); err != nil {
				p.logger.Warn("send failed, dropping peer",
					"error", errors.New(errors.CodeWriteFailed).WithPeer(p.id).Wrap(err))
				p.state = PeerClosed
			} else {
				s.cfg.Metrics.frameOut(protocol.HeaderUpdate, p.updates)
				s.cfg.Metrics.frameOut(protocol.HeaderResync, p.resyncs)
			}
		}
		p.out, p.updates, p.resyncs = p.out[:0], 0, 0
	}
}

// Cancel sends Exit to every peer, closes all connections and listeners,
// and stops tracking. It is a no-op when unbound.
func (s *Server) Cancel() {
	if !s.bound {
		return
	}
	exit := protocol.EncodeFrame(protocol.ExitPayload())
	for _, p := range s.peers {
		if p.state != PeerClosed {
			if err := p.write(exit); err == nil {
				s.cfg.Metrics.frameOut(protocol.HeaderExit, 1)
			}
		}
		p.close()
	}
	s.peers = nil

	close(s.stop)
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	s.wg.Wait()

	// Connections accepted but never picked up by a tick.
	for drained := false; !drained; {
		select {
		case conn := <-s.accepted:
			_ = conn.Close()
		default:
			drained = true
		}
	}

	s.listeners = nil
	s.tracker = nil
	s.producer = nil
	s.consumer = nil
	s.bound = false
	s.cfg.Metrics.setPeers(0)
	s.logger.Info("server stopped")
}
