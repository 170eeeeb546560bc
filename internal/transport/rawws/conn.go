// Package rawws provides a lightweight WebSocket transport built directly on
// gobwas/ws framing over a net.Conn.
package rawws

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Conn implements chat.Conn over a client-side gobwas/ws connection.
type Conn struct {
	conn   net.Conn
	reader io.Reader
	op     ws.OpCode
	addr   string

	readMu  sync.Mutex
	writeMu sync.Mutex
}

// Dial performs the WebSocket handshake with url. binary selects the frame
// opcode used for writes.
func Dial(ctx context.Context, url string, binary bool) (*Conn, error) {
	conn, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return newConn(conn, br, url, binary), nil
}

// newConn wraps conn. br holds bytes the server sent right after the
// handshake response, if any; they are consumed before reading from conn.
func newConn(conn net.Conn, br *bufio.Reader, addr string, binary bool) *Conn {
	c := &Conn{conn: conn, reader: conn, op: ws.OpText, addr: addr}
	if binary {
		c.op = ws.OpBinary
	}
	if br != nil && br.Buffered() > 0 {
		c.reader = io.MultiReader(br, conn)
	} else if br != nil {
		ws.PutReader(br)
	}
	return c
}

// Read implements chat.Conn. Control frames are answered transparently.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	rd := &wsutil.Reader{
		Source:         c.reader,
		State:          ws.StateClientSide,
		CheckUTF8:      true,
		OnIntermediate: c.handleControl,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, c.readErr(ctx, err)
		}
		if hdr.OpCode.IsControl() {
			if err := c.handleControl(hdr, rd); err != nil {
				return nil, c.readErr(ctx, err)
			}
			continue
		}
		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := rd.Discard(); err != nil {
				return nil, c.readErr(ctx, err)
			}
			continue
		}
		data, err := io.ReadAll(rd)
		if err != nil {
			return nil, c.readErr(ctx, err)
		}
		return data, nil
	}
}

// handleControl answers pings and close frames. Replies share the write lock
// so they never interleave with a data frame.
func (c *Conn) handleControl(hdr ws.Header, r io.Reader) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.ControlFrameHandler(c.conn, ws.StateClientSide)(hdr, r)
}

func (c *Conn) readErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteClientMessage(c.conn, c.op, data)
}

// Close sends a close frame and closes the socket.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.addr
}
