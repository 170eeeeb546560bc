// Package ws provides the default WebSocket transport for the chat client,
// built on nhooyr.io/websocket.
package ws

import (
	"context"
	"fmt"

	"nhooyr.io/websocket"
)

// readLimit bounds a single inbound frame. A room-joined snapshot carries
// the whole room history, so this is well above one message.
const readLimit = 4 << 20

// Conn adapts nhooyr.io/websocket to the chat.Conn interface.
type Conn struct {
	conn       *websocket.Conn
	remoteAddr string
	msgType    websocket.MessageType
}

// NewConn wraps a websocket.Conn with empty remote address.
// Frames are written as binary messages.
func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn, msgType: websocket.MessageBinary}
}

// NewConnWithAddr wraps a websocket.Conn with the specified remote address.
func NewConnWithAddr(conn *websocket.Conn, addr string, binary bool) *Conn {
	c := &Conn{conn: conn, remoteAddr: addr, msgType: websocket.MessageText}
	if binary {
		c.msgType = websocket.MessageBinary
	}
	return c
}

// Dial opens a WebSocket connection to url. binary selects the frame type
// used for writes; reads accept both.
func Dial(ctx context.Context, url string, binary bool) (*Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	conn.SetReadLimit(readLimit)
	return NewConnWithAddr(conn, url, binary), nil
}

// Read implements chat.Conn.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, c.msgType, data)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}
