package transport

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func acceptAsync(l Listener) <-chan Conn {
	ch := make(chan Conn, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			close(ch)
			return
		}
		ch <- c
	}()
	return ch
}

func TestTCPRoundTrip(t *testing.T) {
	ctx := testContext(t)

	ln, err := ListenTCP(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := acceptAsync(ln)
	client, err := Dial(ctx, ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()

	_, err = client.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestTCPListenerClose(t *testing.T) {
	ln, err := ListenTCP(testContext(t), "127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, ln.Close())
	_, err = ln.Accept()
	assert.ErrorIs(t, err, ErrListenerClosed)
}

func TestDialBadAddress(t *testing.T) {
	for _, addr := range []string{"", "localhost", "http://x:1"} {
		_, err := Dial(testContext(t), addr)
		assert.ErrorIs(t, err, ErrBadAddress, addr)
	}
}

func TestIsWebSocketURL(t *testing.T) {
	assert.True(t, IsWebSocketURL("ws://h:1/sync"))
	assert.True(t, IsWebSocketURL("wss://h/sync"))
	assert.False(t, IsWebSocketURL("h:1"))
}

func TestWebSocketStream(t *testing.T) {
	ctx := testContext(t)

	ln, err := ListenWebSocket(ctx, "127.0.0.1:0", nil)
	require.NoError(t, err)
	defer ln.Close()

	accepted := acceptAsync(ln)
	url := "ws://" + ln.Addr().String() + DefaultWebSocketPath
	client, err := Dial(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	require.NotNil(t, server)
	defer server.Close()

	// Two writes arrive as one stream; a short read leaves the rest
	// buffered for the next call.
	_, err = client.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = client.Write([]byte("defg"))
	require.NoError(t, err)

	buf := make([]byte, 2)
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(buf[:n]))

	rest := make([]byte, 5)
	_, err = io.ReadFull(server, rest)
	require.NoError(t, err)
	assert.Equal(t, "cdefg", string(rest))

	// And back the other way.
	_, err = server.Write([]byte("ok"))
	require.NoError(t, err)
	back := make([]byte, 2)
	_, err = io.ReadFull(client, back)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(back))
}

func TestWebSocketMounted(t *testing.T) {
	ctx := testContext(t)

	ln := NewWebSocketListener(&WebSocketConfig{Path: "/peers"})
	defer ln.Close()
	assert.Nil(t, ln.Addr())

	srv := httptest.NewServer(ln)
	defer srv.Close()

	accepted := acceptAsync(ln)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/peers"
	client, err := DialWebSocket(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	require.NotNil(t, server)
	server.Close()

	// The peer sees the close.
	_, err = client.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestWebSocketListenerClose(t *testing.T) {
	ln := NewWebSocketListener(nil)
	require.NoError(t, ln.Close())
	require.NoError(t, ln.Close())

	_, err := ln.Accept()
	assert.ErrorIs(t, err, ErrListenerClosed)
}
