package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/omochice/toy-room-chat/internal/chat"
	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// ReconnectPolicy controls dialing retries. Zero values pick the backoff
// library defaults; a zero MaxElapsedTime retries until Disconnect.
type ReconnectPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	// Disabled stops the manager from redialing after a mid-session drop.
	Disabled bool
}

func (p ReconnectPolicy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

// Options configures a Manager.
type Options struct {
	Codec     protocol.Codec
	Logger    *slog.Logger
	Reconnect ReconnectPolicy
}

// Manager owns the one connection to the server. Only the manager opens,
// closes or replaces it; everything else goes through Emit and Subscribe.
type Manager struct {
	dial      Dialer
	codec     protocol.Codec
	log       *slog.Logger
	reconnect ReconnectPolicy

	// lifecycle serializes Connect, Disconnect, ForceReconnect and Close.
	lifecycle sync.Mutex
	// notify keeps handler calls ordered across goroutines.
	notify sync.Mutex
	// write serializes frames on the connection.
	write sync.Mutex

	mu       sync.Mutex
	state    State
	conn     chat.Conn
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool
	handlers []subscription
	nextID   int
}

type subscription struct {
	id int
	h  Handler
}

// New creates a disconnected manager.
func New(dial Dialer, opts Options) *Manager {
	if opts.Codec == nil {
		opts.Codec = protocol.JSONCodec{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		dial:      dial,
		codec:     opts.Codec,
		log:       opts.Logger.With(slog.String("component", "connection")),
		reconnect: opts.Reconnect,
	}
}

// Subscribe registers h and returns a function removing it.
func (m *Manager) Subscribe(h Handler) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.handlers = append(m.handlers, subscription{id: id, h: h})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.handlers {
			if s.id == id {
				m.handlers = append(m.handlers[:i:i], m.handlers[i+1:]...)
				return
			}
		}
	}
}

// State returns the current connectivity state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect starts establishing the connection in the background and returns
// immediately. It is a no-op while already connecting or connected.
func (m *Manager) Connect() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.connectLocked()
}

// Disconnect tears the connection down and stops any retrying.
func (m *Manager) Disconnect() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.disconnectLocked()
}

// ForceReconnect replaces the connection: the old one is closed and its
// reader has exited before the new dial starts, so two connections never
// coexist.
func (m *Manager) ForceReconnect() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.disconnectLocked()
	return m.connectLocked()
}

// Close disconnects and disposes of the manager. Later Connect calls fail
// with ErrClosed.
func (m *Manager) Close() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.disconnectLocked()
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Emit sends one outbound event. It fails with ErrNotConnected unless the
// manager is Connected.
func (m *Manager) Emit(ctx context.Context, ev protocol.Event) error {
	m.mu.Lock()
	conn, state := m.conn, m.state
	m.mu.Unlock()

	if conn == nil || state != Connected {
		return ErrNotConnected
	}

	env, err := protocol.NewEnvelope(ev)
	if err != nil {
		return err
	}
	data, err := m.codec.Marshal(env)
	if err != nil {
		return err
	}

	m.write.Lock()
	defer m.write.Unlock()
	if err := conn.Write(ctx, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", ev.EventName(), err)
	}
	return nil
}

func (m *Manager) connectLocked() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.done != nil {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.transition(gen, Connecting)
	go m.run(ctx, gen, done)
	return nil
}

func (m *Manager) disconnectLocked() {
	m.mu.Lock()
	cancel, done, conn := m.cancel, m.done, m.conn
	// A new generation silences everything the old run goroutine does next.
	m.gen++
	m.cancel, m.done, m.conn = nil, nil, nil
	prev := m.state
	m.state = Disconnected
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Debug("close connection", slog.Any("error", err))
		}
	}
	if done != nil {
		<-done
	}
	if prev != Disconnected {
		m.dispatchState(Disconnected)
	}
}

// run dials, reads until the connection drops, and redials according to the
// reconnect policy. It exits when its context is cancelled.
func (m *Manager) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer m.release(gen)

	for {
		conn, err := m.dialWithRetry(ctx)
		if err != nil {
			if ctx.Err() == nil {
				m.log.Warn("giving up connecting", slog.Any("error", err))
				m.transition(gen, Disconnected)
			}
			return
		}
		if !m.attach(gen, conn) {
			_ = conn.Close()
			return
		}
		m.log.Info("connected", slog.String("remote", conn.RemoteAddr()))
		m.transition(gen, Connected)

		err = m.readLoop(ctx, gen, conn)
		m.detach(conn)
		if ctx.Err() != nil {
			return
		}
		_ = conn.Close()
		m.log.Warn("connection lost", slog.Any("error", err))
		m.transition(gen, Disconnected)
		if m.reconnect.Disabled {
			return
		}
		m.transition(gen, Connecting)
	}
}

func (m *Manager) dialWithRetry(ctx context.Context) (chat.Conn, error) {
	op := func() (chat.Conn, error) {
		return m.dial(ctx)
	}
	notify := func(err error, next time.Duration) {
		m.log.Debug("dial failed", slog.Any("error", err), slog.Duration("retry_in", next))
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(m.reconnect.newBackOff()),
		backoff.WithMaxElapsedTime(m.reconnect.MaxElapsedTime),
		backoff.WithNotify(notify),
	)
}

func (m *Manager) readLoop(ctx context.Context, gen uint64, conn chat.Conn) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		env, err := m.codec.Unmarshal(data)
		if err != nil {
			m.log.Debug("dropping malformed frame", slog.Any("error", err))
			continue
		}
		ev, err := protocol.DecodeInbound(env)
		if err != nil {
			m.log.Debug("dropping inbound event", slog.String("event", env.Event), slog.Any("error", err))
			continue
		}
		m.dispatchEvent(gen, ev)
	}
}

func (m *Manager) attach(gen uint64, conn chat.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.conn = conn
	return true
}

func (m *Manager) detach(conn chat.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == conn {
		m.conn = nil
	}
}

// release lets a later Connect start a new run once this one gave up.
func (m *Manager) release(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.gen {
		m.cancel()
		m.cancel, m.done = nil, nil
	}
}

// transition moves to s on behalf of generation gen and notifies handlers
// if the state actually changed.
func (m *Manager) transition(gen uint64, s State) {
	m.notify.Lock()
	defer m.notify.Unlock()

	m.mu.Lock()
	if gen != m.gen || m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	handlers := m.snapshotLocked()
	m.mu.Unlock()

	for _, h := range handlers {
		h.HandleState(s)
	}
}

func (m *Manager) dispatchState(s State) {
	m.notify.Lock()
	defer m.notify.Unlock()

	m.mu.Lock()
	handlers := m.snapshotLocked()
	m.mu.Unlock()

	for _, h := range handlers {
		h.HandleState(s)
	}
}

func (m *Manager) dispatchEvent(gen uint64, ev protocol.Event) {
	m.notify.Lock()
	defer m.notify.Unlock()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	handlers := m.snapshotLocked()
	m.mu.Unlock()

	for _, h := range handlers {
		h.HandleEvent(ev)
	}
}

func (m *Manager) snapshotLocked() []Handler {
	out := make([]Handler, len(m.handlers))
	for i, s := range m.handlers {
		out[i] = s.h
	}
	return out
}
