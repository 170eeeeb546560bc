// Package client owns the single transport connection to the chat server:
// dialing with retry, connectivity state, typed event subscriptions and
// outbound emission.
package client

import (
	"errors"
	"fmt"

	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// State is the binary connectivity of the manager, plus the dialing phase.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrNotConnected = errors.New("not connected to server")
	ErrClosed       = errors.New("connection manager is closed")
)

// Handler receives notifications from the manager. Calls come from the
// manager's goroutines and must not block; the session forwards them onto
// its own event loop.
type Handler interface {
	// HandleState is called once per state transition.
	HandleState(s State)
	// HandleEvent is called for every well-formed inbound event.
	HandleEvent(ev protocol.Event)
}
