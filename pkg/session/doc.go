// Package session runs MapSync sessions: a Client talks to exactly one
// Server, and a Server accepts any number of peers, relays each peer's
// changes to every other peer, and takes part with its own local edits.
//
// # Threading
//
// Each connection has a reader goroutine that only copies raw bytes onto a
// channel. Frame reassembly, scene mutation, tracker access and writes all
// happen in Tick, on whichever goroutine drives it. Controller wraps a
// client and a server behind one lock so that a host UI, a signal handler
// and a ticker can share them.
//
// # Tick
//
// A client tick applies every frame the server sent, then sends one Update
// frame with the local changes, if any. A server tick additionally accepts
// new peers, relays Update frames to all peers but their origin, and
// answers Resync requests to the requester only.
//
// # Faults
//
// Connection faults end the session (client) or drop the peer (server)
// and are returned or logged as *errors.Error with category "connection".
// Malformed frames close the offending connection. Malformed commands stop
// processing of their frame; a server does not relay such a frame. Nothing
// is retried automatically.
//
// # Usage
//
//	ctl := session.NewController(world, reg, session.DefaultConfig())
//	if err := ctl.Bind(ctx, 7777); err != nil {
//	    return err
//	}
//	return ctl.Run(ctx)
package session
