package server

import (
	"log/slog"

	"github.com/gorilla/websocket"
)

// Client represents a connected websocket client. Its room, username and
// typing flag are guarded by the server mutex.
type Client struct {
	id       string
	conn     *websocket.Conn
	outgoing chan []byte

	username string
	room     *room
	typing   bool
}

// enqueue queues a frame without blocking. A client too slow to drain its
// buffer misses the frame.
func (c *Client) enqueue(data []byte, log *slog.Logger) {
	select {
	case c.outgoing <- data:
	default:
		log.Warn("client channel full, dropping frame", slog.String("client", c.id))
	}
}
