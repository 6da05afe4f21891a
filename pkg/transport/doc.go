// Package transport provides the byte-stream carriers MapSync peers talk
// over: plain TCP, and WebSocket for networks that only pass HTTP.
//
// Both carriers expose the same Conn and Listener interfaces, so sessions
// are unaware of which one is in use. Framing lives in pkg/protocol.
//
//	ln, _ := transport.ListenTCP(ctx, ":7777")
//	conn, _ := transport.Dial(ctx, "127.0.0.1:7777")
//	conn, _ = transport.Dial(ctx, "ws://127.0.0.1:7778/sync")
package transport
