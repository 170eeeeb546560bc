package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/omochice/toy-room-chat/internal/chat"
	"github.com/omochice/toy-room-chat/internal/client"
	"github.com/omochice/toy-room-chat/internal/roomid"
	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// Options configures a Session.
type Options struct {
	Codec     protocol.Codec
	Reconnect client.ReconnectPolicy
	Logger    *slog.Logger
	// Clock defaults to the wall clock.
	Clock chat.Clock

	TypingIdle      time.Duration
	RemoteTypingTTL time.Duration
	JoinTimeout     time.Duration
	NewRoomID       roomid.Generator
}

// Session is the goroutine-safe entry point for a chat client. It owns a
// connection manager and a controller, and runs every state change on a
// single loop goroutine started by Run.
type Session struct {
	loop    *Loop
	manager *client.Manager
	ctrl    *Controller
}

// New creates a session dialing through dial. Nothing connects until Run.
func New(dial client.Dialer, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = chat.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	loop := NewLoop()
	manager := client.New(dial, client.Options{
		Codec:     opts.Codec,
		Logger:    opts.Logger,
		Reconnect: opts.Reconnect,
	})
	ctrl := NewController(manager, loop.Clock(opts.Clock), Config{
		TypingIdle:      opts.TypingIdle,
		RemoteTypingTTL: opts.RemoteTypingTTL,
		JoinTimeout:     opts.JoinTimeout,
		NewRoomID:       opts.NewRoomID,
		Logger:          opts.Logger,
	})
	manager.Subscribe(forwarder{loop: loop, ctrl: ctrl})

	return &Session{loop: loop, manager: manager, ctrl: ctrl}
}

// Run connects and processes intents, events and timers until ctx is done,
// then closes the connection. Calls made after Run returns fail with
// ErrClosed.
func (s *Session) Run(ctx context.Context) error {
	defer s.loop.stop()
	if err := s.manager.Connect(); err != nil {
		return err
	}
	defer s.manager.Close()

	err := s.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Observe registers o. Observer calls run on the session goroutine and must
// not block or call back into the Session.
func (s *Session) Observe(o Observer) {
	s.loop.Post(func() { s.ctrl.Observe(o) })
}

// View returns the current snapshot.
func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.loop.Do(ctx, func() error {
		v = s.ctrl.View()
		return nil
	})
	return v, err
}

func (s *Session) SetUsername(ctx context.Context, name string) error {
	return s.loop.Do(ctx, func() error { return s.ctrl.SetUsername(name) })
}

func (s *Session) CreateRoom(ctx context.Context) (protocol.RoomID, error) {
	var id protocol.RoomID
	err := s.loop.Do(ctx, func() error {
		var err error
		id, err = s.ctrl.CreateRoom()
		return err
	})
	return id, err
}

func (s *Session) JoinRoom(ctx context.Context, raw string) (protocol.RoomID, error) {
	var id protocol.RoomID
	err := s.loop.Do(ctx, func() error {
		var err error
		id, err = s.ctrl.JoinRoom(raw)
		return err
	})
	return id, err
}

// SetInput updates the input buffer, driving the local typing signal.
func (s *Session) SetInput(ctx context.Context, text string) error {
	return s.loop.Do(ctx, func() error {
		s.ctrl.SetInput(text)
		return nil
	})
}

// SendMessage sends the input buffer.
func (s *Session) SendMessage(ctx context.Context) error {
	return s.loop.Do(ctx, s.ctrl.SendMessage)
}

// Submit sends text without going through keystroke handling.
func (s *Session) Submit(ctx context.Context, text string) error {
	return s.loop.Do(ctx, func() error { return s.ctrl.Submit(text) })
}

func (s *Session) ClearChat(ctx context.Context) error {
	return s.loop.Do(ctx, s.ctrl.ClearChat)
}

func (s *Session) Leave(ctx context.Context) error {
	return s.loop.Do(ctx, s.ctrl.Leave)
}

// forwarder moves connection manager callbacks onto the loop.
type forwarder struct {
	loop *Loop
	ctrl *Controller
}

func (f forwarder) HandleState(st client.State) {
	f.loop.Post(func() { f.ctrl.HandleState(st) })
}

func (f forwarder) HandleEvent(ev protocol.Event) {
	f.loop.Post(func() { f.ctrl.HandleEvent(ev) })
}
