package client

import (
	"context"
	"fmt"

	"github.com/omochice/toy-room-chat/internal/chat"
	"github.com/omochice/toy-room-chat/internal/transport/rawws"
	"github.com/omochice/toy-room-chat/internal/transport/ws"
)

// Dialer opens one transport connection.
type Dialer func(ctx context.Context) (chat.Conn, error)

// Transport names accepted by NewDialer.
const (
	TransportNhooyr = "nhooyr"
	TransportGobwas = "gobwas"
)

// NewDialer returns a dialer for url using the named websocket transport.
// binary selects binary frames, matching the codec in use.
func NewDialer(transport, url string, binary bool) (Dialer, error) {
	switch transport {
	case "", TransportNhooyr:
		return func(ctx context.Context) (chat.Conn, error) {
			conn, err := ws.Dial(ctx, url, binary)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}, nil
	case TransportGobwas:
		return func(ctx context.Context) (chat.Conn, error) {
			conn, err := rawws.Dial(ctx, url, binary)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}
