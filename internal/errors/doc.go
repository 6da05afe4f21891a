// Package errors provides coded, categorized errors for MapSync.
//
// # Error Categories
//
// Errors are organized into categories:
//   - connection: dial, bind, accept and send failures, dropped peers
//   - protocol: malformed frames and commands
//   - application: commands whose target object does not exist
//   - resource: class lookups that fail during Create, refused resyncs
//   - config: unreadable or invalid mapsync.yaml
//   - cli: bad command-line input
//
// Connection faults are advisory: the session returns to Disconnected or
// drops the peer and keeps running. Nothing is retried automatically.
//
// # Error Codes
//
// Each error has a unique code (e.g., "M001") that maps to a short message,
// a detailed explanation and an optional hint.
//
// # Usage
//
//	err := errors.New(errors.CodeDialFailed).
//	    WithPeer("10.0.0.5:7777").
//	    WithOp("dial").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR M001: Connection failed
//	//
//	//   dial 10.0.0.5:7777
//	//
//	//   The server could not be reached. The session is back in the
//	//   Disconnected state.
//	//
//	//   Cause: dial tcp 10.0.0.5:7777: connect: connection refused
//	//
//	//   Hint: Check that a server is bound on that address and port, then
//	//   connect again.
package errors
