package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapsync-dev/mapsync/pkg/session"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixedStatus session.Status

func (f fixedStatus) Status() session.Status { return session.Status(f) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	h := NewRouter(fixedStatus{}, nil, discard)
	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStatus(t *testing.T) {
	src := fixedStatus{
		Role:    session.RoleServer,
		State:   "Bound",
		Level:   "Demo",
		Objects: 3,
		Peers:   []session.PeerInfo{{ID: "p1", Addr: "127.0.0.1:5000"}},
	}
	rec := get(t, NewRouter(src, nil, discard), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got session.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, session.RoleServer, got.Role)
	assert.Equal(t, "Demo", got.Level)
	assert.Equal(t, 3, got.Objects)
	require.Len(t, got.Peers, 1)
	assert.Equal(t, "p1", got.Peers[0].ID)
}

func TestMetrics(t *testing.T) {
	m := session.NewMetrics()
	rec := get(t, NewRouter(fixedStatus{}, m, discard), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mapsync_peers")

	rec = get(t, NewRouter(fixedStatus{}, nil, discard), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := get(t, NewRouter(fixedStatus{}, nil, discard), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", NewRouter(fixedStatus{}, nil, discard), discard, ready)
	}()

	addr := <-ready
	resp, err := http.Get("http://" + addr.String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
