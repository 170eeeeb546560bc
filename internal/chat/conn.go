// Package chat holds the client-side room state: the transport connection
// abstraction, the room session, the message log and typing presence.
package chat

import "context"

// Conn abstracts a bidirectional frame connection to the chat server.
// This interface isolates transport details from the synchronization engine.
type Conn interface {
	// Read reads a single frame.
	// Returns an error once the connection is closed.
	Read(ctx context.Context) ([]byte, error)

	// Write sends a single frame.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
