// Package session owns live connections: the hub that fans messages out to
// a room, the dispatcher that drives one connection's protocol, and the
// websocket transport they run over.
package session

import (
	"errors"

	"github.com/gorilla/websocket"
)

var (
	// ErrHandshakeFailed wraps any error raised while accepting a transport.
	ErrHandshakeFailed = errors.New("handshake failed")
	// ErrUserNotConnected is returned by addressed delivery to an unknown user.
	ErrUserNotConnected = errors.New("user not connected")
	// ErrSyncFailed is returned by Hub.Join when the initial sync could not
	// be delivered. The connection is left unregistered.
	ErrSyncFailed = errors.New("initial sync failed")
)

// Close codes sent to peers.
const (
	CloseNormal        = websocket.CloseNormalClosure
	CloseGoingAway     = websocket.CloseGoingAway
	CloseInternalError = websocket.CloseInternalServerErr
)

// Transport is one bidirectional message stream. Implementations must be
// comparable (pointer types) since the hub tracks connections by identity.
type Transport interface {
	// Accept completes the handshake. Nothing may be sent before it succeeds.
	Accept() error
	// Send delivers one encoded frame. Any error means the peer is unreachable.
	Send(payload []byte) error
	// Receive blocks for the next inbound frame. An error ends the stream.
	Receive() ([]byte, error)
	// Close terminates the stream with a close code. Safe to call repeatedly.
	Close(code int, reason string) error
}
