package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapsync-dev/mapsync/internal/errors"
	"github.com/mapsync-dev/mapsync/pkg/codecs"
	"github.com/mapsync-dev/mapsync/pkg/protocol"
	"github.com/mapsync-dev/mapsync/pkg/scene"
	"github.com/mapsync-dev/mapsync/pkg/transport"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const level = "Demo"

type node struct {
	world   *scene.World
	ctl     *Controller
	metrics *Metrics
}

func newNode(t *testing.T, setup func(w *scene.World), opts ...func(*Config)) *node {
	t.Helper()
	w := scene.NewWorld(level)
	if setup != nil {
		setup(w)
	}
	reg, err := codecs.NewRegistry(w)
	require.NoError(t, err)

	m := NewMetrics()
	cfg := DefaultConfig()
	cfg.Logger = discard
	cfg.Metrics = m
	cfg.TickInterval = 5 * time.Millisecond
	for _, o := range opts {
		o(cfg)
	}
	n := &node{world: w, ctl: NewController(w, reg, cfg), metrics: m}
	t.Cleanup(n.ctl.Cancel)
	return n
}

func withCube(w *scene.World) {
	if _, err := w.SpawnByClassName(scene.ClassStaticMeshActor, "Cube1"); err != nil {
		panic(err)
	}
}

// actor reads an actor under the controller lock.
func (n *node) actor(name string) *scene.Actor {
	var a *scene.Actor
	n.ctl.Edit(func(scene.Scene) { a = n.world.Actor(name) })
	return a
}

func (n *node) count(name string, labels ...string) float64 {
	families, err := n.metrics.Registry().Gather()
	if err != nil {
		panic(err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for i := 0; i+1 < len(labels); i += 2 {
				found := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == labels[i] && lp.GetValue() == labels[i+1] {
						found = true
					}
				}
				if !found {
					continue metrics
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func bind(t *testing.T, srv *node) string {
	t.Helper()
	require.NoError(t, srv.ctl.Bind(context.Background(), 0))
	return fmt.Sprintf("127.0.0.1:%d", srv.ctl.Addr().(*net.TCPAddr).Port)
}

// settle ticks every node in turn until cond holds.
func settle(t *testing.T, cond func() bool, nodes ...*node) {
	t.Helper()
	ctx := context.Background()
	require.Eventually(t, func() bool {
		for _, n := range nodes {
			_ = n.ctl.Tick(ctx)
		}
		return cond()
	}, 5*time.Second, 2*time.Millisecond)
}

// quiesce ticks every node for a while so that late frames would arrive.
func quiesce(nodes ...*node) {
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		for _, n := range nodes {
			_ = n.ctl.Tick(ctx)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func peers(n *node) int { return len(n.ctl.Status().Peers) }

func TestRelayEchoSuppression(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, withCube)
	addr := bind(t, srv)

	a, b, c := newNode(t, withCube), newNode(t, withCube), newNode(t, withCube)
	for _, n := range []*node{a, b, c} {
		require.NoError(t, n.ctl.Connect(ctx, addr))
	}
	settle(t, func() bool { return peers(srv) == 3 }, srv)

	a.ctl.Edit(func(scene.Scene) {
		cube := a.world.Actor("Cube1")
		cube.SetLocation(scene.Vector{X: 100})
		a.world.Select(cube)
	})

	moved := func(n *node) bool { return n.actor("Cube1").Transform().Location.X == 100 }
	all := []*node{a, srv, b, c}
	settle(t, func() bool { return moved(srv) && moved(b) && moved(c) }, all...)
	quiesce(all...)

	assert.Equal(t, 0.0, a.count("mapsync_frames_received_total", "header", "Update"), "origin must not get its own frame back")
	assert.Equal(t, 1.0, b.count("mapsync_frames_received_total", "header", "Update"))
	assert.Equal(t, 1.0, c.count("mapsync_frames_received_total", "header", "Update"))
	assert.Equal(t, 2.0, srv.count("mapsync_frames_relayed_total"))

	// The change was sent once; remote copies were deselected on apply.
	assert.Equal(t, 1.0, a.count("mapsync_frames_sent_total", "header", "Update"))
	assert.True(t, a.world.IsSelected(a.actor("Cube1")))
	assert.False(t, b.world.IsSelected(b.actor("Cube1")))
}

func TestCreateIsRelayedAndNotEchoed(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, nil)
	addr := bind(t, srv)

	a, b := newNode(t, nil), newNode(t, nil)
	require.NoError(t, a.ctl.Connect(ctx, addr))
	require.NoError(t, b.ctl.Connect(ctx, addr))
	settle(t, func() bool { return peers(srv) == 2 }, srv)

	red := scene.LinearColor{R: 1, A: 1}
	a.ctl.Edit(func(scene.Scene) {
		obj, err := a.world.SpawnByClassName(scene.ClassPointLight, "Light1")
		require.NoError(t, err)
		light := obj.(*scene.Actor)
		light.SetLightColor(red)
		light.SetIntensity(5000)
		a.world.Select(light)
	})

	all := []*node{a, srv, b}
	settle(t, func() bool {
		l := b.actor("Light1")
		return l != nil && l.LightColor() == red
	}, all...)
	quiesce(all...)

	light := b.actor("Light1")
	assert.Equal(t, scene.ClassPointLight, light.Class().Name())
	assert.Equal(t, float32(5000), light.Intensity())
	assert.NotNil(t, srv.actor("Light1"))

	// Neither the server nor B reports the adopted object as a new one.
	assert.Equal(t, 0.0, b.count("mapsync_frames_sent_total", "header", "Update"))
	assert.Equal(t, 1.0, srv.count("mapsync_frames_sent_total", "header", "Update"))
	assert.Equal(t, 0.0, a.count("mapsync_frames_received_total", "header", "Update"))
}

func TestRemoveIsRelayed(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, withCube)
	addr := bind(t, srv)

	a, b := newNode(t, withCube), newNode(t, withCube)
	require.NoError(t, a.ctl.Connect(ctx, addr))
	require.NoError(t, b.ctl.Connect(ctx, addr))
	settle(t, func() bool { return peers(srv) == 2 }, srv)

	a.ctl.Edit(func(scene.Scene) { a.world.Destroy(a.world.Actor("Cube1")) })
	all := []*node{a, srv, b}
	settle(t, func() bool { return b.actor("Cube1") == nil && srv.actor("Cube1") == nil }, all...)
	quiesce(all...)

	assert.Equal(t, 0, b.world.Len())
	assert.Equal(t, 1.0, b.count("mapsync_commands_applied_total", "outcome", "removed"))
	// Removing the relayed object locally is not reported again.
	assert.Equal(t, 0.0, b.count("mapsync_frames_sent_total", "header", "Update"))
}

func TestResync(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, func(w *scene.World) {
		withCube(w)
		w.Actor("Cube1").SetLocation(scene.Vector{X: 5, Y: 6, Z: 7})
		obj, _ := w.SpawnByClassName(scene.ClassSpotLight, "Spot")
		obj.(*scene.Actor).SetIntensity(42)
	})
	addr := bind(t, srv)

	cl := newNode(t, nil)
	require.NoError(t, cl.ctl.Connect(ctx, addr))
	settle(t, func() bool { return peers(srv) == 1 }, srv)

	require.NoError(t, cl.ctl.RequestResync())
	all := []*node{srv, cl}
	settle(t, func() bool { return cl.actor("Cube1") != nil && cl.actor("Spot") != nil }, all...)
	quiesce(all...)

	assert.Equal(t, scene.Vector{X: 5, Y: 6, Z: 7}, cl.actor("Cube1").Transform().Location)
	assert.Equal(t, float32(42), cl.actor("Spot").Intensity())
	assert.Equal(t, 1.0, srv.count("mapsync_resyncs_total", "outcome", "sent"))
	// Resynced objects are adopted, not announced back.
	assert.Equal(t, 0.0, cl.count("mapsync_frames_sent_total", "header", "Update"))
}

func TestResyncRefused(t *testing.T) {
	ctx := context.Background()
	refuse := scene.ConfirmFunc(func(int, string) bool { return false })
	srv := newNode(t, withCube, func(c *Config) { c.Confirmer = refuse })
	addr := bind(t, srv)

	cl := newNode(t, nil)
	require.NoError(t, cl.ctl.Connect(ctx, addr))
	settle(t, func() bool { return peers(srv) == 1 }, srv)

	require.NoError(t, cl.ctl.RequestResync())
	settle(t, func() bool { return srv.count("mapsync_resyncs_total", "outcome", "refused") == 1 }, srv, cl)
	quiesce(srv, cl)

	assert.Equal(t, 0, cl.world.Len())
}

func TestClientCancelDropsPeer(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, nil)
	addr := bind(t, srv)

	cl := newNode(t, nil)
	require.NoError(t, cl.ctl.Connect(ctx, addr))
	settle(t, func() bool { return peers(srv) == 1 }, srv)

	cl.ctl.Cancel()
	assert.False(t, cl.ctl.Active())
	settle(t, func() bool { return peers(srv) == 0 }, srv)
	assert.Equal(t, 1.0, srv.count("mapsync_frames_received_total", "header", "Exit"))
}

func TestServerCancelDisconnectsClients(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, nil)
	addr := bind(t, srv)

	cl := newNode(t, nil)
	require.NoError(t, cl.ctl.Connect(ctx, addr))
	settle(t, func() bool { return peers(srv) == 1 }, srv)

	srv.ctl.Cancel()
	settle(t, func() bool { return !cl.ctl.Active() }, cl)
	assert.Equal(t, 1.0, cl.count("mapsync_frames_received_total", "header", "Exit"))

	// A new session can start once the old one is over.
	require.NoError(t, srv.ctl.Bind(ctx, 0))
}

func TestSingleActiveSession(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, nil)
	addr := bind(t, srv)

	assert.ErrorIs(t, srv.ctl.Bind(ctx, 0), ErrSessionActive)
	assert.ErrorIs(t, srv.ctl.Connect(ctx, addr), ErrSessionActive)

	cl := newNode(t, nil)
	assert.ErrorIs(t, cl.ctl.RequestResync(), ErrNotConnected)
	require.NoError(t, cl.ctl.Connect(ctx, addr))
	assert.ErrorIs(t, cl.ctl.Connect(ctx, addr), ErrSessionActive)
	assert.ErrorIs(t, cl.ctl.Bind(ctx, 0), ErrSessionActive)
}

func TestConnectFailure(t *testing.T) {
	ctx := context.Background()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cl := newNode(t, nil)
	err = cl.ctl.Connect(ctx, addr)
	require.Error(t, err)

	var me *errors.Error
	require.True(t, stderrors.As(err, &me))
	assert.Equal(t, errors.CodeDialFailed, me.Code)
	assert.Equal(t, errors.CategoryConnection, me.Category)
	assert.Equal(t, addr, me.Peer)
	assert.False(t, cl.ctl.Active())

	err = cl.ctl.Connect(ctx, "no-port")
	require.True(t, stderrors.As(err, &me))
	assert.Equal(t, errors.CodeBadAddress, me.Code)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, withCube)
	addr := bind(t, srv)

	cl := newNode(t, nil)
	assert.Equal(t, RoleIdle, cl.ctl.Status().Role)
	require.NoError(t, cl.ctl.Connect(ctx, addr))
	settle(t, func() bool { return peers(srv) == 1 }, srv)

	st := srv.ctl.Status()
	assert.Equal(t, RoleServer, st.Role)
	assert.Equal(t, level, st.Level)
	assert.Equal(t, 1, st.Objects)
	assert.Equal(t, 1, st.Tracked)
	require.Len(t, st.Peers, 1)
	_, err := uuid.Parse(st.Peers[0].ID)
	assert.NoError(t, err, "peer labels are UUIDs")

	cst := cl.ctl.Status()
	assert.Equal(t, RoleClient, cst.Role)
	assert.Equal(t, "Connected", cst.State)
	assert.Equal(t, addr, cst.Address)
	assert.Equal(t, 1.0, srv.count("mapsync_peers"))
}

func TestAdvanceUsesThrottle(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, nil, func(c *Config) { c.TickInterval = 100 * time.Millisecond })
	addr := bind(t, srv)
	cl := newNode(t, nil)
	require.NoError(t, cl.ctl.Connect(ctx, addr))

	ran, err := srv.ctl.Advance(ctx, 60*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ran)

	ran, err = srv.ctl.Advance(ctx, 60*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ran)

	// Ticks only happen through Advance here, so acceptance waits for them.
	require.Eventually(t, func() bool {
		_, _ = srv.ctl.Advance(ctx, 100*time.Millisecond)
		return peers(srv) == 1
	}, 5*time.Second, 2*time.Millisecond)
}

func TestWebSocketPeer(t *testing.T) {
	ctx := context.Background()
	srv := newNode(t, withCube)

	tcp, err := transport.ListenTCP(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	ws, err := transport.ListenWebSocket(ctx, "127.0.0.1:0", nil)
	require.NoError(t, err)
	require.NoError(t, srv.ctl.Serve(tcp, ws))

	a := newNode(t, withCube)
	b := newNode(t, withCube)
	require.NoError(t, a.ctl.Connect(ctx, "ws://"+ws.Addr().String()+transport.DefaultWebSocketPath))
	require.NoError(t, b.ctl.Connect(ctx, tcp.Addr().String()))
	settle(t, func() bool { return peers(srv) == 2 }, srv)

	a.ctl.Edit(func(scene.Scene) {
		cube := a.world.Actor("Cube1")
		cube.SetMesh("/Game/Meshes/Cube")
		a.world.Select(cube)
	})
	settle(t, func() bool { return b.actor("Cube1").Mesh() == "/Game/Meshes/Cube" }, a, srv, b)
}

// Raw peers below speak the wire format directly while the server runs on
// its own goroutine.

func runServer(t *testing.T, srv *node) string {
	t.Helper()
	addr := bind(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.ctl.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return addr
}

func dialRaw(t *testing.T, addr string) net.Conn {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func readFrame(t *testing.T, c net.Conn) []byte {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	var hdr [protocol.FrameHeaderSize]byte
	_, err := io.ReadFull(c, hdr[:])
	require.NoError(t, err)
	n := int(hdr[0]) | int(hdr[1])<<8 | int(hdr[2])<<16 | int(hdr[3])<<24
	payload := make([]byte, n)
	_, err = io.ReadFull(c, payload)
	require.NoError(t, err)
	return payload
}

func waitPeers(t *testing.T, srv *node, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return peers(srv) == n }, 5*time.Second, 2*time.Millisecond)
}

func TestMalformedUpdateNotRelayed(t *testing.T) {
	srv := newNode(t, withCube)
	addr := runServer(t, srv)

	rawA, rawB := dialRaw(t, addr), dialRaw(t, addr)
	waitPeers(t, srv, 2)

	bad := protocol.EncodeUpdate(&protocol.Update{
		Level:    level,
		Commands: []protocol.Command{protocol.NewUpdate("Ghost", nil)},
	})
	bad = append(bad, 'q') // unknown command tag after a valid command
	good := protocol.EncodeUpdate(&protocol.Update{
		Level:    level,
		Commands: []protocol.Command{protocol.NewRemove("Nobody")},
	})

	stream := protocol.AppendFrame(protocol.EncodeFrame(bad), good)
	_, err := rawA.Write(stream)
	require.NoError(t, err)

	assert.Equal(t, good, readFrame(t, rawB))
	assert.Equal(t, 2, peers(srv), "a malformed command does not drop the peer")
}

func TestUnknownHeaderSkipped(t *testing.T) {
	srv := newNode(t, nil)
	addr := runServer(t, srv)

	rawA, rawB := dialRaw(t, addr), dialRaw(t, addr)
	waitPeers(t, srv, 2)

	good := protocol.EncodeUpdate(&protocol.Update{Level: level})
	_, err := rawA.Write(protocol.AppendFrame(protocol.EncodeFrame([]byte("q?")), good))
	require.NoError(t, err)

	assert.Equal(t, good, readFrame(t, rawB))
}

func TestOtherLevelRelayedButNotApplied(t *testing.T) {
	srv := newNode(t, withCube)
	addr := runServer(t, srv)

	rawA, rawB := dialRaw(t, addr), dialRaw(t, addr)
	waitPeers(t, srv, 2)

	other := protocol.EncodeUpdate(&protocol.Update{
		Level:    "OtherLevel",
		Commands: []protocol.Command{protocol.NewRemove("Cube1")},
	})
	_, err := rawA.Write(protocol.EncodeFrame(other))
	require.NoError(t, err)

	assert.Equal(t, other, readFrame(t, rawB))
	assert.NotNil(t, srv.actor("Cube1"))
	assert.Equal(t, 1.0, srv.count("mapsync_level_mismatch_total"))
}

func TestInvalidFrameLengthClosesPeer(t *testing.T) {
	srv := newNode(t, nil)
	addr := runServer(t, srv)

	raw := dialRaw(t, addr)
	waitPeers(t, srv, 1)

	_, err := raw.Write([]byte{0xff, 0xff, 0xff, 0xff})
	require.NoError(t, err)

	require.NoError(t, raw.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = raw.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	waitPeers(t, srv, 0)
	assert.Equal(t, 1.0, srv.count("mapsync_protocol_errors_total", "type", "frame"))
}

func TestResyncAnsweredToRequesterOnly(t *testing.T) {
	srv := newNode(t, withCube)
	addr := runServer(t, srv)

	rawA, rawB := dialRaw(t, addr), dialRaw(t, addr)
	waitPeers(t, srv, 2)

	_, err := rawA.Write(protocol.EncodeFrame(protocol.ResyncRequest()))
	require.NoError(t, err)

	resp := readFrame(t, rawA)
	entries, err := protocol.DecodeResync(resp)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Cube1", entries[0].Name)
	assert.Equal(t, protocol.OriginIntrinsic, entries[0].Origin)

	// B gets nothing.
	require.NoError(t, rawB.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, err = rawB.Read(make([]byte, 1))
	var ne net.Error
	require.True(t, stderrors.As(err, &ne))
	assert.True(t, ne.Timeout())
}
