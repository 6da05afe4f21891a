package session

import (
	stderrors "errors"

	"github.com/mapsync-dev/mapsync/internal/errors"
	"github.com/mapsync-dev/mapsync/pkg/transport"
)

// Sentinel errors. They match with errors.Is by code, so a returned error
// carrying more context still matches.
var (
	// ErrNotConnected is returned by operations that need a live session.
	ErrNotConnected = errors.New(errors.CodeNotConnected)

	// ErrSessionActive is returned by Connect and Bind while a session is
	// already running.
	ErrSessionActive = errors.New(errors.CodeSessionActive)
)

func connectionError(code, peer, op string, cause error) *errors.Error {
	return errors.New(code).WithPeer(peer).WithOp(op).Wrap(cause)
}

func isBadAddress(err error) bool {
	return stderrors.Is(err, transport.ErrBadAddress)
}
