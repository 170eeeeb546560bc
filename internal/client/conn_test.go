package client_test

import (
	"context"
	"io"
	"sync"

	"github.com/omochice/toy-room-chat/internal/chat"
	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// mockConn is a mock implementation of chat.Conn for testing.
type mockConn struct {
	readCh     chan []byte
	closeOnce  sync.Once
	closedCh   chan struct{}
	writtenMu  sync.Mutex
	written    [][]byte
	remoteAddr string
}

func newMockConn(addr string) *mockConn {
	return &mockConn{
		readCh:     make(chan []byte, 10),
		closedCh:   make(chan struct{}),
		remoteAddr: addr,
	}
}

func (m *mockConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.closedCh:
		return nil, io.EOF
	case data := <-m.readCh:
		return data, nil
	}
}

func (m *mockConn) Write(ctx context.Context, data []byte) error {
	select {
	case <-m.closedCh:
		return io.ErrClosedPipe
	default:
	}
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	m.written = append(m.written, copied)
	return nil
}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.closedCh) })
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return m.remoteAddr
}

func (m *mockConn) IsClosed() bool {
	select {
	case <-m.closedCh:
		return true
	default:
		return false
	}
}

func (m *mockConn) GetWritten() [][]byte {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	return m.written
}

// push delivers an inbound event to the reader as the server would.
func (m *mockConn) push(codec protocol.Codec, ev protocol.Event) error {
	env, err := protocol.NewEnvelope(ev)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(env)
	if err != nil {
		return err
	}
	m.readCh <- data
	return nil
}

// Compile-time check that mockConn implements chat.Conn
var _ chat.Conn = (*mockConn)(nil)
