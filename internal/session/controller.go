// Package session binds the connection manager to the room state: it turns
// user intents into protocol requests and inbound events into changes of the
// room, message log and typing presence.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/omochice/toy-room-chat/internal/chat"
	"github.com/omochice/toy-room-chat/internal/client"
	"github.com/omochice/toy-room-chat/internal/roomid"
	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// Phase is the room membership of the session.
type Phase int

const (
	Unjoined Phase = iota
	// Joining means a join request went out and room-joined has not arrived.
	Joining
	Joined
)

func (p Phase) String() string {
	switch p {
	case Unjoined:
		return "unjoined"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

var (
	ErrNotJoined     = errors.New("not in a room")
	ErrJoinPending   = errors.New("a join request is already pending")
	ErrAlreadyJoined = errors.New("already in a room")
	ErrJoinTimeout   = errors.New("timed out waiting for the server to confirm the join")
)

const (
	// DefaultJoinTimeout bounds the Joining phase.
	DefaultJoinTimeout = 10 * time.Second

	emitTimeout = 5 * time.Second
)

// Transport is the part of the connection manager the controller uses.
type Transport interface {
	Emit(ctx context.Context, ev protocol.Event) error
	State() client.State
	ForceReconnect() error
}

// Observer receives the controller's output. Calls happen on the goroutine
// driving the controller.
type Observer interface {
	// HandleView is called with a fresh snapshot after every change.
	HandleView(v View)
	// HandleError is called for failures the user should see: server error
	// events, join timeouts and lost connections while joining.
	HandleError(err error)
}

// View is a read-only snapshot of the session.
type View struct {
	Connection client.State
	Phase      Phase
	Username   string
	// RoomID is the active room when Joined and the requested one while
	// Joining.
	RoomID       protocol.RoomID
	Participants []string
	Messages     []protocol.Message
	// Typing lists the remote participants currently typing.
	Typing      []string
	LocalTyping bool
	Input       string
}

// Config tunes a Controller.
type Config struct {
	TypingIdle      time.Duration
	RemoteTypingTTL time.Duration
	// JoinTimeout of zero picks DefaultJoinTimeout; negative disables it.
	JoinTimeout time.Duration
	NewRoomID   roomid.Generator
	Logger      *slog.Logger
}

// Controller is the session state machine. It is not safe for concurrent
// use: every method, timer callback included, must run on one goroutine.
// Session arranges that with a Loop.
type Controller struct {
	transport Transport
	clock     chat.Clock
	log       *slog.Logger
	newRoomID roomid.Generator

	joinTimeout  time.Duration
	joinTimer    chat.Timer
	joinDeadline time.Time

	conn     client.State
	phase    Phase
	username string
	pending  protocol.RoomID
	input    string

	room     *chat.Room
	messages *chat.MessageLog
	presence *chat.Presence
	typing   *chat.Debouncer

	observers []Observer
}

// NewController creates an unjoined controller.
func NewController(transport Transport, clock chat.Clock, cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.JoinTimeout == 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	c := &Controller{
		transport:   transport,
		clock:       clock,
		log:         cfg.Logger.With(slog.String("component", "session")),
		newRoomID:   cfg.NewRoomID,
		joinTimeout: cfg.JoinTimeout,
		conn:        transport.State(),
		messages:    chat.NewMessageLog(),
	}
	c.presence = chat.NewPresence(clock, cfg.RemoteTypingTTL, func(string) { c.publish() })
	c.typing = chat.NewDebouncer(clock, cfg.TypingIdle, c.sendTyping)
	return c
}

// Observe registers o for every later change.
func (c *Controller) Observe(o Observer) {
	c.observers = append(c.observers, o)
}

// View returns the current snapshot.
func (c *Controller) View() View {
	v := View{
		Connection:  c.conn,
		Phase:       c.phase,
		Username:    c.username,
		RoomID:      c.pending,
		Messages:    c.messages.Messages(),
		Typing:      c.presence.Users(),
		LocalTyping: c.typing.Typing(),
		Input:       c.input,
	}
	if c.room != nil {
		v.RoomID = c.room.ID
		v.Participants = c.room.Participants()
	}
	return v
}

// SetUsername sets the name used for joining and sending. It cannot change
// while a room is joined or being joined.
func (c *Controller) SetUsername(name string) error {
	switch c.phase {
	case Joining:
		return ErrJoinPending
	case Joined:
		return ErrAlreadyJoined
	}
	normalized, err := protocol.NormalizeUsername(name)
	if err != nil {
		return err
	}
	c.username = normalized
	c.publish()
	return nil
}

// CreateRoom joins a freshly generated room and returns its id.
func (c *Controller) CreateRoom() (protocol.RoomID, error) {
	if err := c.canJoin(); err != nil {
		return "", err
	}
	if c.newRoomID == nil {
		return "", errors.New("no room id generator configured")
	}
	id, err := c.newRoomID()
	if err != nil {
		return "", err
	}
	return id, c.join(id)
}

// JoinRoom joins the room named by raw, normalized to uppercase.
func (c *Controller) JoinRoom(raw string) (protocol.RoomID, error) {
	id, err := protocol.NormalizeRoomID(raw)
	if err != nil {
		return "", err
	}
	if err := c.canJoin(); err != nil {
		return "", err
	}
	return id, c.join(id)
}

func (c *Controller) canJoin() error {
	switch {
	case c.phase == Joining:
		return ErrJoinPending
	case c.phase == Joined:
		return ErrAlreadyJoined
	case c.username == "":
		return protocol.ErrEmptyUsername
	case c.conn != client.Connected:
		return client.ErrNotConnected
	}
	return nil
}

func (c *Controller) join(id protocol.RoomID) error {
	if err := c.emit(protocol.JoinRoom{RoomID: id, Username: c.username}); err != nil {
		return err
	}
	c.phase = Joining
	c.pending = id
	c.armJoinTimeout()
	c.log.Info("joining room", slog.String("room", id.String()))
	c.publish()
	return nil
}

// SetInput replaces the local input buffer and drives the typing signal.
// Offline keystrokes only edit the buffer so the signal stays in step with
// what the server has seen.
func (c *Controller) SetInput(text string) {
	c.input = text
	if c.phase == Joined && c.conn == client.Connected {
		c.typing.Keystroke(strings.TrimSpace(text) != "")
	}
	c.publish()
}

// SendMessage sends the input buffer. Validation failures leave the buffer
// untouched and send nothing. On success typing:false goes out before the
// message and the buffer is cleared; the message itself appears only when
// the server reflects it back.
func (c *Controller) SendMessage() error {
	text, err := protocol.NormalizeText(c.input)
	if err != nil {
		return err
	}
	if c.phase != Joined {
		return ErrNotJoined
	}
	if c.username == "" {
		return protocol.ErrEmptyUsername
	}
	if c.conn != client.Connected {
		return client.ErrNotConnected
	}
	c.typing.Stop()
	if err := c.emit(protocol.SendMessage{RoomID: c.room.ID, Sender: c.username, Text: text}); err != nil {
		return err
	}
	c.input = ""
	c.publish()
	return nil
}

// Submit puts text in the input buffer and sends it, for front ends that
// hand over whole lines instead of keystrokes. On failure the buffer keeps
// text.
func (c *Controller) Submit(text string) error {
	c.input = text
	return c.SendMessage()
}

// ClearChat asks the server to clear the room. The local log is cleared when
// room-chat-cleared arrives.
func (c *Controller) ClearChat() error {
	if c.phase != Joined {
		return ErrNotJoined
	}
	if c.conn != client.Connected {
		return client.ErrNotConnected
	}
	return c.emit(protocol.ClearRoomChat{RoomID: c.room.ID})
}

// Leave discards all room state and replaces the connection, which is how
// the server learns the user left.
func (c *Controller) Leave() error {
	if c.phase == Unjoined {
		return ErrNotJoined
	}
	c.log.Info("leaving room", slog.String("room", c.View().RoomID.String()))
	c.resetRoom()
	c.input = ""
	err := c.transport.ForceReconnect()
	c.conn = c.transport.State()
	c.publish()
	return err
}

// HandleState applies a connectivity change.
func (c *Controller) HandleState(s client.State) {
	c.conn = s
	if s == client.Disconnected {
		c.typing.Reset()
		if c.phase == Joining {
			c.cancelJoin()
			c.publish()
			c.raise(fmt.Errorf("join aborted: %w", client.ErrNotConnected))
			return
		}
	}
	c.publish()
}

// HandleEvent applies one inbound protocol event.
func (c *Controller) HandleEvent(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.RoomJoined:
		c.onRoomJoined(e)
	case protocol.NewMessage:
		if c.phase != Joined {
			return
		}
		if e.RoomID != "" && !strings.EqualFold(string(e.RoomID), string(c.room.ID)) {
			c.log.Debug("dropping message for another room", slog.String("room", e.RoomID.String()))
			return
		}
		c.messages.Append(e.Message)
	case protocol.UserJoined:
		if c.phase != Joined {
			return
		}
		c.room.SetParticipants(e.Participants)
	case protocol.UserLeft:
		if c.phase != Joined {
			return
		}
		c.room.SetParticipants(e.Participants)
	case protocol.UserTyping:
		if c.phase != Joined {
			return
		}
		c.presence.Set(e.Username, e.IsTyping)
	case protocol.RoomChatCleared:
		if c.phase != Joined {
			return
		}
		c.messages.Clear()
	case protocol.ServerError:
		c.onServerError(e)
		return
	default:
		return
	}
	c.publish()
}

func (c *Controller) onRoomJoined(e protocol.RoomJoined) {
	if c.phase == Unjoined {
		c.log.Debug("ignoring room-joined while not joining", slog.String("room", e.RoomID.String()))
		return
	}
	id := e.RoomID
	if id == "" {
		id = c.pending
	}
	c.stopJoinTimer()
	c.presence.Reset()
	c.typing.Reset()
	c.room = chat.NewRoom(id, e.Participants)
	c.messages.SnapshotFrom(e.Messages)
	c.phase = Joined
	c.pending = ""
	c.log.Info("joined room",
		slog.String("room", id.String()),
		slog.Int("participants", c.room.Len()),
		slog.Int("messages", c.messages.Len()))
}

func (c *Controller) onServerError(e protocol.ServerError) {
	c.log.Warn("server error", slog.String("message", e.Message), slog.String("phase", c.phase.String()))
	if c.phase == Joining {
		c.cancelJoin()
		c.publish()
	}
	c.raise(e)
}

func (c *Controller) sendTyping(typing bool) {
	if c.room == nil || c.conn != client.Connected {
		return
	}
	ev := protocol.Typing{RoomID: c.room.ID, Username: c.username, IsTyping: typing}
	if err := c.emit(ev); err != nil {
		c.log.Debug("failed to send typing signal", slog.Any("error", err))
	}
}

func (c *Controller) emit(ev protocol.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	return c.transport.Emit(ctx, ev)
}

func (c *Controller) resetRoom() {
	c.stopJoinTimer()
	c.typing.Reset()
	c.presence.Reset()
	c.messages.Clear()
	c.room = nil
	c.pending = ""
	c.phase = Unjoined
}

func (c *Controller) cancelJoin() {
	c.stopJoinTimer()
	c.pending = ""
	c.phase = Unjoined
}

func (c *Controller) armJoinTimeout() {
	if c.joinTimeout <= 0 {
		return
	}
	c.joinDeadline = c.clock.Now().Add(c.joinTimeout)
	if c.joinTimer == nil {
		c.joinTimer = c.clock.AfterFunc(c.joinTimeout, c.joinExpired)
		return
	}
	c.joinTimer.Stop()
	c.joinTimer.Reset(c.joinTimeout)
}

func (c *Controller) stopJoinTimer() {
	if c.joinTimer != nil {
		c.joinTimer.Stop()
	}
}

// joinExpired runs when the join timer fires. It is a no-op unless a join
// is still pending and its deadline has passed.
func (c *Controller) joinExpired() {
	if c.phase != Joining || c.clock.Now().Before(c.joinDeadline) {
		return
	}
	c.log.Warn("join timed out", slog.String("room", c.pending.String()))
	c.cancelJoin()
	c.publish()
	c.raise(ErrJoinTimeout)
}

func (c *Controller) publish() {
	if len(c.observers) == 0 {
		return
	}
	v := c.View()
	for _, o := range c.observers {
		o.HandleView(v)
	}
}

func (c *Controller) raise(err error) {
	for _, o := range c.observers {
		o.HandleError(err)
	}
}
