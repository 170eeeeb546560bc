package session_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/toy-room-chat/internal/client"
	"github.com/omochice/toy-room-chat/internal/clocktest"
	"github.com/omochice/toy-room-chat/internal/session"
	"github.com/omochice/toy-room-chat/pkg/protocol"
)

const room protocol.RoomID = "AB12CD34"

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type sent struct {
	at time.Time
	ev protocol.Event
}

type fakeTransport struct {
	clock      *clocktest.Clock
	state      client.State
	sent       []sent
	reconnects int
}

func (f *fakeTransport) Emit(_ context.Context, ev protocol.Event) error {
	if f.state != client.Connected {
		return client.ErrNotConnected
	}
	f.sent = append(f.sent, sent{at: f.clock.Now(), ev: ev})
	return nil
}

func (f *fakeTransport) State() client.State { return f.state }

func (f *fakeTransport) ForceReconnect() error {
	f.reconnects++
	f.state = client.Connecting
	return nil
}

func (f *fakeTransport) events() []protocol.Event {
	out := make([]protocol.Event, len(f.sent))
	for i, s := range f.sent {
		out[i] = s.ev
	}
	return out
}

type observer struct {
	views []session.View
	errs  []error
}

func (o *observer) HandleView(v session.View) { o.views = append(o.views, v) }
func (o *observer) HandleError(err error)     { o.errs = append(o.errs, err) }

type harness struct {
	clock *clocktest.Clock
	tr    *fakeTransport
	ctrl  *session.Controller
	obs   *observer
}

func newHarness(t *testing.T, cfg session.Config) *harness {
	t.Helper()
	clock := clocktest.New(epoch)
	tr := &fakeTransport{clock: clock, state: client.Connected}
	if cfg.NewRoomID == nil {
		cfg.NewRoomID = func() (protocol.RoomID, error) { return room, nil }
	}
	ctrl := session.NewController(tr, clock, cfg)
	obs := &observer{}
	ctrl.Observe(obs)
	return &harness{clock: clock, tr: tr, ctrl: ctrl, obs: obs}
}

// joined returns a harness for "Ana" already in room with the given
// snapshot, and with the join request cleared from the sent list.
func joined(t *testing.T, cfg session.Config, snapshot ...protocol.Message) *harness {
	t.Helper()
	h := newHarness(t, cfg)
	require.NoError(t, h.ctrl.SetUsername("Ana"))
	_, err := h.ctrl.JoinRoom(string(room))
	require.NoError(t, err)
	h.ctrl.HandleEvent(protocol.RoomJoined{RoomID: room, Participants: []string{"Ana"}, Messages: snapshot})
	require.Equal(t, session.Joined, h.ctrl.View().Phase)
	h.tr.sent = nil
	return h
}

func message(id, sender, text string) protocol.Message {
	return protocol.Message{
		ID:        id,
		Text:      text,
		Sender:    sender,
		Timestamp: protocol.NewTimestamp(epoch),
		RoomID:    room,
	}
}

func ids(messages []protocol.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func TestController_CreateRoomScenario(t *testing.T) {
	h := newHarness(t, session.Config{})
	require.NoError(t, h.ctrl.SetUsername("Ana"))

	id, err := h.ctrl.CreateRoom()
	require.NoError(t, err)
	assert.Equal(t, room, id)
	assert.Equal(t, []protocol.Event{protocol.JoinRoom{RoomID: room, Username: "Ana"}}, h.tr.events())

	v := h.ctrl.View()
	assert.Equal(t, session.Joining, v.Phase)
	assert.Equal(t, room, v.RoomID)

	h.ctrl.HandleEvent(protocol.RoomJoined{RoomID: room, Participants: []string{"Ana"}, Messages: []protocol.Message{}})

	v = h.ctrl.View()
	assert.Equal(t, session.Joined, v.Phase)
	assert.Equal(t, room, v.RoomID)
	assert.Equal(t, []string{"Ana"}, v.Participants)
	assert.Empty(t, v.Messages)
	assert.Equal(t, v, h.obs.views[len(h.obs.views)-1])
}

func TestController_JoinPreconditions(t *testing.T) {
	t.Run("empty username", func(t *testing.T) {
		h := newHarness(t, session.Config{})
		_, err := h.ctrl.CreateRoom()
		assert.ErrorIs(t, err, protocol.ErrEmptyUsername)
		_, err = h.ctrl.JoinRoom("AB12CD34")
		assert.ErrorIs(t, err, protocol.ErrEmptyUsername)
		assert.Empty(t, h.tr.sent)
	})

	t.Run("not connected", func(t *testing.T) {
		h := newHarness(t, session.Config{})
		require.NoError(t, h.ctrl.SetUsername("Ana"))
		h.tr.state = client.Disconnected
		h.ctrl.HandleState(client.Disconnected)

		_, err := h.ctrl.CreateRoom()
		assert.ErrorIs(t, err, client.ErrNotConnected)
		assert.Empty(t, h.tr.sent)
		assert.Equal(t, session.Unjoined, h.ctrl.View().Phase)
	})

	t.Run("invalid room id", func(t *testing.T) {
		h := newHarness(t, session.Config{})
		require.NoError(t, h.ctrl.SetUsername("Ana"))
		_, err := h.ctrl.JoinRoom("AB-12")
		assert.ErrorIs(t, err, protocol.ErrInvalidRoomID)
		assert.Empty(t, h.tr.sent)
	})
}

func TestController_JoinRoomNormalizesID(t *testing.T) {
	h := newHarness(t, session.Config{})
	require.NoError(t, h.ctrl.SetUsername("  Ana "))

	id, err := h.ctrl.JoinRoom("  ab12cd34 ")
	require.NoError(t, err)
	assert.Equal(t, room, id)
	assert.Equal(t, []protocol.Event{protocol.JoinRoom{RoomID: room, Username: "Ana"}}, h.tr.events())
}

func TestController_DuplicateJoin(t *testing.T) {
	h := newHarness(t, session.Config{})
	require.NoError(t, h.ctrl.SetUsername("Ana"))
	_, err := h.ctrl.JoinRoom("AB12CD34")
	require.NoError(t, err)

	_, err = h.ctrl.JoinRoom("ZZ99ZZ99")
	assert.ErrorIs(t, err, session.ErrJoinPending)
	assert.ErrorIs(t, h.ctrl.SetUsername("Bo"), session.ErrJoinPending)

	h.ctrl.HandleEvent(protocol.RoomJoined{RoomID: room, Participants: []string{"Ana"}})

	_, err = h.ctrl.CreateRoom()
	assert.ErrorIs(t, err, session.ErrAlreadyJoined)
	assert.ErrorIs(t, h.ctrl.SetUsername("Bo"), session.ErrAlreadyJoined)
	assert.Len(t, h.tr.sent, 1)
}

func TestController_JoinTimeout(t *testing.T) {
	h := newHarness(t, session.Config{JoinTimeout: 5 * time.Second})
	require.NoError(t, h.ctrl.SetUsername("Ana"))
	_, err := h.ctrl.JoinRoom("AB12CD34")
	require.NoError(t, err)

	h.clock.Advance(4 * time.Second)
	assert.Equal(t, session.Joining, h.ctrl.View().Phase)

	h.clock.Advance(time.Second)
	v := h.ctrl.View()
	assert.Equal(t, session.Unjoined, v.Phase)
	assert.Empty(t, v.RoomID)
	require.Len(t, h.obs.errs, 1)
	assert.ErrorIs(t, h.obs.errs[0], session.ErrJoinTimeout)

	// A confirmation arriving after giving up is ignored.
	h.ctrl.HandleEvent(protocol.RoomJoined{RoomID: room, Participants: []string{"Ana"}})
	assert.Equal(t, session.Unjoined, h.ctrl.View().Phase)

	// The user can retry.
	_, err = h.ctrl.JoinRoom("AB12CD34")
	assert.NoError(t, err)
}

func TestController_JoinTimeoutStaleAfterJoin(t *testing.T) {
	h := newHarness(t, session.Config{JoinTimeout: 5 * time.Second})
	require.NoError(t, h.ctrl.SetUsername("Ana"))
	_, err := h.ctrl.JoinRoom("AB12CD34")
	require.NoError(t, err)
	h.ctrl.HandleEvent(protocol.RoomJoined{RoomID: room, Participants: []string{"Ana"}})

	h.clock.Advance(time.Minute)

	assert.Equal(t, session.Joined, h.ctrl.View().Phase)
	assert.Empty(t, h.obs.errs)
}

func TestController_NewMessageScenario(t *testing.T) {
	h := joined(t, session.Config{})

	h.ctrl.HandleEvent(protocol.NewMessage{Message: message("m1", "Ana", "hi")})

	assert.Equal(t, []protocol.Message{message("m1", "Ana", "hi")}, h.ctrl.View().Messages)
}

func TestController_MessageLogKeepsDeliveryOrder(t *testing.T) {
	h := joined(t, session.Config{}, message("s1", "Bo", "earlier"))

	want := []string{"s1"}
	// Timestamps deliberately run backwards; the log never re-sorts.
	for i := 0; i < 50; i++ {
		m := message(fmt.Sprintf("m%d", i), "Bo", "x")
		m.Timestamp = protocol.NewTimestamp(epoch.Add(-time.Duration(i) * time.Minute))
		h.ctrl.HandleEvent(protocol.NewMessage{Message: m})
		want = append(want, m.ID)
	}
	// Duplicates are kept.
	h.ctrl.HandleEvent(protocol.NewMessage{Message: message("m0", "Bo", "x")})
	want = append(want, "m0")

	assert.Equal(t, want, ids(h.ctrl.View().Messages))
}

func TestController_DropsMessagesForOtherRooms(t *testing.T) {
	h := joined(t, session.Config{})

	other := message("x1", "Bo", "elsewhere")
	other.RoomID = "ZZ99ZZ99"
	h.ctrl.HandleEvent(protocol.NewMessage{Message: other})

	lower := message("m1", "Bo", "same room")
	lower.RoomID = "ab12cd34"
	h.ctrl.HandleEvent(protocol.NewMessage{Message: lower})

	assert.Equal(t, []string{"m1"}, ids(h.ctrl.View().Messages))
}

func TestController_RoomJoinedReplacesState(t *testing.T) {
	h := joined(t, session.Config{}, message("a", "Ana", "1"), message("b", "Bo", "2"))
	h.ctrl.HandleEvent(protocol.UserJoined{Participants: []string{"Ana", "Bo"}})
	h.ctrl.HandleEvent(protocol.UserTyping{Username: "Bo", IsTyping: true})

	h.ctrl.HandleEvent(protocol.RoomJoined{
		RoomID:       room,
		Participants: []string{"Cy"},
		Messages:     []protocol.Message{message("c", "Cy", "3")},
	})

	v := h.ctrl.View()
	assert.Equal(t, []string{"Cy"}, v.Participants)
	assert.Equal(t, []string{"c"}, ids(v.Messages))
	assert.Empty(t, v.Typing)
}

func TestController_RosterUpdatesReplace(t *testing.T) {
	h := joined(t, session.Config{})

	h.ctrl.HandleEvent(protocol.UserJoined{Participants: []string{"Ana", "Bo", "Cy"}})
	assert.Equal(t, []string{"Ana", "Bo", "Cy"}, h.ctrl.View().Participants)

	h.ctrl.HandleEvent(protocol.UserLeft{Participants: []string{"Cy", "Ana"}})
	assert.Equal(t, []string{"Cy", "Ana"}, h.ctrl.View().Participants)
}

func TestController_RemoteTyping(t *testing.T) {
	h := joined(t, session.Config{})

	h.ctrl.HandleEvent(protocol.UserTyping{Username: "Bo", IsTyping: true})
	h.ctrl.HandleEvent(protocol.UserTyping{Username: "Cy", IsTyping: true})
	assert.Equal(t, []string{"Bo", "Cy"}, h.ctrl.View().Typing)

	h.ctrl.HandleEvent(protocol.UserTyping{Username: "Bo", IsTyping: false})
	assert.Equal(t, []string{"Cy"}, h.ctrl.View().Typing)

	// Without a TTL a stale entry stays until its sender clears it.
	h.clock.Advance(time.Hour)
	assert.Equal(t, []string{"Cy"}, h.ctrl.View().Typing)
}

func TestController_RemoteTypingTTL(t *testing.T) {
	h := joined(t, session.Config{RemoteTypingTTL: 3 * time.Second})

	h.ctrl.HandleEvent(protocol.UserTyping{Username: "Bo", IsTyping: true})
	views := len(h.obs.views)

	h.clock.Advance(3 * time.Second)

	assert.Empty(t, h.ctrl.View().Typing)
	assert.Greater(t, len(h.obs.views), views, "expiry must publish a view")
}

func TestController_RoomChatCleared(t *testing.T) {
	h := joined(t, session.Config{}, message("a", "Ana", "1"), message("b", "Bo", "2"))
	h.ctrl.HandleEvent(protocol.NewMessage{Message: message("c", "Bo", "3")})

	h.ctrl.HandleEvent(protocol.RoomChatCleared{})

	assert.Empty(t, h.ctrl.View().Messages)
}

func TestController_ClearChatWaitsForServer(t *testing.T) {
	h := joined(t, session.Config{}, message("a", "Ana", "1"))

	require.NoError(t, h.ctrl.ClearChat())

	assert.Equal(t, []protocol.Event{protocol.ClearRoomChat{RoomID: room}}, h.tr.events())
	assert.Len(t, h.ctrl.View().Messages, 1)
}

func TestController_ClearChatRequiresRoom(t *testing.T) {
	h := newHarness(t, session.Config{})
	assert.ErrorIs(t, h.ctrl.ClearChat(), session.ErrNotJoined)
}

func TestController_EventsIgnoredWhenUnjoined(t *testing.T) {
	h := newHarness(t, session.Config{})

	h.ctrl.HandleEvent(protocol.NewMessage{Message: message("m1", "Bo", "hi")})
	h.ctrl.HandleEvent(protocol.UserJoined{Participants: []string{"Bo"}})
	h.ctrl.HandleEvent(protocol.UserTyping{Username: "Bo", IsTyping: true})
	h.ctrl.HandleEvent(protocol.RoomJoined{RoomID: room, Participants: []string{"Bo"}})

	v := h.ctrl.View()
	assert.Equal(t, session.Unjoined, v.Phase)
	assert.Empty(t, v.Messages)
	assert.Empty(t, v.Participants)
	assert.Empty(t, v.Typing)
}

func TestController_LocalTypingDebounce(t *testing.T) {
	h := joined(t, session.Config{})

	h.ctrl.SetInput("h")
	h.clock.Advance(200 * time.Millisecond)
	h.ctrl.SetInput("hi")
	h.clock.Advance(200 * time.Millisecond)
	h.ctrl.SetInput("hi!")
	assert.True(t, h.ctrl.View().LocalTyping)

	h.clock.Advance(5 * time.Second)

	require.Len(t, h.tr.sent, 2)
	assert.Equal(t, protocol.Typing{RoomID: room, Username: "Ana", IsTyping: true}, h.tr.sent[0].ev)
	assert.Equal(t, epoch, h.tr.sent[0].at)
	assert.Equal(t, protocol.Typing{RoomID: room, Username: "Ana", IsTyping: false}, h.tr.sent[1].ev)
	assert.Equal(t, epoch.Add(1400*time.Millisecond), h.tr.sent[1].at)
	assert.False(t, h.ctrl.View().LocalTyping)
}

func TestController_ClearingInputStopsTyping(t *testing.T) {
	h := joined(t, session.Config{})

	h.ctrl.SetInput("hello")
	h.clock.Advance(100 * time.Millisecond)
	h.ctrl.SetInput("")

	require.Len(t, h.tr.sent, 2)
	assert.Equal(t, epoch.Add(100*time.Millisecond), h.tr.sent[1].at)
	assert.Equal(t, protocol.Typing{RoomID: room, Username: "Ana", IsTyping: false}, h.tr.sent[1].ev)

	h.clock.Advance(5 * time.Second)
	assert.Len(t, h.tr.sent, 2)
}

func TestController_SendWhileTyping(t *testing.T) {
	h := joined(t, session.Config{})

	h.ctrl.SetInput("  hello  ")
	h.clock.Advance(300 * time.Millisecond)
	require.NoError(t, h.ctrl.SendMessage())

	assert.Equal(t, []protocol.Event{
		protocol.Typing{RoomID: room, Username: "Ana", IsTyping: true},
		protocol.Typing{RoomID: room, Username: "Ana", IsTyping: false},
		protocol.SendMessage{RoomID: room, Sender: "Ana", Text: "hello"},
	}, h.tr.events())
	assert.Equal(t, h.tr.sent[1].at, h.tr.sent[2].at)

	v := h.ctrl.View()
	assert.Empty(t, v.Input)
	assert.False(t, v.LocalTyping)
	// No local echo.
	assert.Empty(t, v.Messages)

	h.clock.Advance(5 * time.Second)
	assert.Len(t, h.tr.sent, 3)
}

func TestController_SendRejectsInvalidText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{name: "whitespace only", input: "   ", err: protocol.ErrEmptyText},
		{name: "empty", input: "", err: protocol.ErrEmptyText},
		{name: "too long", input: strings.Repeat("a", protocol.MaxTextLength+1), err: protocol.ErrTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := joined(t, session.Config{})
			h.ctrl.SetInput(tt.input)
			before := len(h.tr.sent)

			err := h.ctrl.SendMessage()

			assert.ErrorIs(t, err, tt.err)
			assert.Len(t, h.tr.sent, before)
			assert.Equal(t, tt.input, h.ctrl.View().Input)
		})
	}
}

func TestController_SendRequiresRoomAndConnection(t *testing.T) {
	h := newHarness(t, session.Config{})
	require.NoError(t, h.ctrl.SetUsername("Ana"))
	h.ctrl.SetInput("hello")
	assert.ErrorIs(t, h.ctrl.SendMessage(), session.ErrNotJoined)

	h = joined(t, session.Config{})
	h.tr.state = client.Disconnected
	h.ctrl.HandleState(client.Disconnected)
	assert.ErrorIs(t, h.ctrl.Submit("hello"), client.ErrNotConnected)
	assert.Empty(t, h.tr.sent)
	assert.Equal(t, "hello", h.ctrl.View().Input)
}

func TestController_Submit(t *testing.T) {
	h := joined(t, session.Config{})

	require.NoError(t, h.ctrl.Submit("hi there"))

	assert.Equal(t, []protocol.Event{
		protocol.SendMessage{RoomID: room, Sender: "Ana", Text: "hi there"},
	}, h.tr.events())
	assert.Empty(t, h.ctrl.View().Input)
}

func TestController_DisconnectResetsTypingSilently(t *testing.T) {
	h := joined(t, session.Config{})
	h.ctrl.SetInput("hel")
	require.Len(t, h.tr.sent, 1)

	h.tr.state = client.Disconnected
	h.ctrl.HandleState(client.Disconnected)
	h.clock.Advance(5 * time.Second)

	v := h.ctrl.View()
	assert.False(t, v.LocalTyping)
	assert.Equal(t, session.Joined, v.Phase, "a drop keeps the room")
	assert.Equal(t, client.Disconnected, v.Connection)
	assert.Len(t, h.tr.sent, 1)
}

func TestController_TypingAfterReconnect(t *testing.T) {
	h := joined(t, session.Config{})

	h.tr.state = client.Disconnected
	h.ctrl.HandleState(client.Disconnected)
	h.ctrl.SetInput("h")
	assert.False(t, h.ctrl.View().LocalTyping)
	assert.Equal(t, "h", h.ctrl.View().Input)

	h.clock.Advance(100 * time.Millisecond)
	h.tr.state = client.Connected
	h.ctrl.HandleState(client.Connected)
	h.ctrl.SetInput("he")
	assert.True(t, h.ctrl.View().LocalTyping)

	h.clock.Advance(5 * time.Second)

	assert.Equal(t, []protocol.Event{
		protocol.Typing{RoomID: room, Username: "Ana", IsTyping: true},
		protocol.Typing{RoomID: room, Username: "Ana", IsTyping: false},
	}, h.tr.events())
	assert.Equal(t, epoch.Add(100*time.Millisecond), h.tr.sent[0].at)
	assert.Equal(t, epoch.Add(1100*time.Millisecond), h.tr.sent[1].at)
}

func TestController_DisconnectWhileJoining(t *testing.T) {
	h := newHarness(t, session.Config{})
	require.NoError(t, h.ctrl.SetUsername("Ana"))
	_, err := h.ctrl.JoinRoom("AB12CD34")
	require.NoError(t, err)

	h.ctrl.HandleState(client.Disconnected)

	assert.Equal(t, session.Unjoined, h.ctrl.View().Phase)
	require.Len(t, h.obs.errs, 1)
	assert.ErrorIs(t, h.obs.errs[0], client.ErrNotConnected)
}

func TestController_ServerError(t *testing.T) {
	t.Run("while joined keeps the room", func(t *testing.T) {
		h := joined(t, session.Config{}, message("a", "Ana", "1"))

		h.ctrl.HandleEvent(protocol.ServerError{Message: "Message too long"})

		require.Len(t, h.obs.errs, 1)
		assert.EqualError(t, h.obs.errs[0], "Message too long")
		v := h.ctrl.View()
		assert.Equal(t, session.Joined, v.Phase)
		assert.Len(t, v.Messages, 1)
		assert.Equal(t, client.Connected, v.Connection)
	})

	t.Run("while joining aborts the join", func(t *testing.T) {
		h := newHarness(t, session.Config{})
		require.NoError(t, h.ctrl.SetUsername("Ana"))
		_, err := h.ctrl.JoinRoom("AB12CD34")
		require.NoError(t, err)

		h.ctrl.HandleEvent(protocol.ServerError{Message: "Room is full"})

		assert.Equal(t, session.Unjoined, h.ctrl.View().Phase)
		var serverErr protocol.ServerError
		require.Len(t, h.obs.errs, 1)
		assert.ErrorAs(t, h.obs.errs[0], &serverErr)
	})
}

func TestController_LeaveAndRejoinStartsFromSnapshot(t *testing.T) {
	h := joined(t, session.Config{}, message("a", "Ana", "1"))
	h.ctrl.HandleEvent(protocol.NewMessage{Message: message("b", "Bo", "2")})
	h.ctrl.HandleEvent(protocol.UserTyping{Username: "Bo", IsTyping: true})
	h.ctrl.SetInput("draft")

	require.NoError(t, h.ctrl.Leave())

	assert.Equal(t, 1, h.tr.reconnects)
	v := h.ctrl.View()
	assert.Equal(t, session.Unjoined, v.Phase)
	assert.Empty(t, v.RoomID)
	assert.Empty(t, v.Participants)
	assert.Empty(t, v.Messages)
	assert.Empty(t, v.Typing)
	assert.Empty(t, v.Input)
	assert.False(t, v.LocalTyping)
	assert.Equal(t, client.Connecting, v.Connection)

	// Late events from the old connection are no-ops, and so is the idle timer.
	h.ctrl.HandleEvent(protocol.NewMessage{Message: message("late", "Bo", "3")})
	sentBefore := len(h.tr.sent)
	h.clock.Advance(5 * time.Second)
	assert.Len(t, h.tr.sent, sentBefore)
	assert.Empty(t, h.ctrl.View().Messages)

	h.tr.state = client.Connected
	h.ctrl.HandleState(client.Disconnected)
	h.ctrl.HandleState(client.Connecting)
	h.ctrl.HandleState(client.Connected)

	_, err := h.ctrl.JoinRoom(string(room))
	require.NoError(t, err)
	h.ctrl.HandleEvent(protocol.RoomJoined{
		RoomID:       room,
		Participants: []string{"Bo", "Ana"},
		Messages:     []protocol.Message{message("fresh", "Bo", "only this")},
	})

	assert.Equal(t, []string{"fresh"}, ids(h.ctrl.View().Messages))
}

func TestController_LeaveWhileJoining(t *testing.T) {
	h := newHarness(t, session.Config{JoinTimeout: time.Second})
	require.NoError(t, h.ctrl.SetUsername("Ana"))
	_, err := h.ctrl.JoinRoom("AB12CD34")
	require.NoError(t, err)

	require.NoError(t, h.ctrl.Leave())
	h.clock.Advance(5 * time.Second)

	assert.Equal(t, session.Unjoined, h.ctrl.View().Phase)
	assert.Empty(t, h.obs.errs, "a cancelled join must not time out")
}

func TestController_LeaveWhenUnjoined(t *testing.T) {
	h := newHarness(t, session.Config{})

	assert.ErrorIs(t, h.ctrl.Leave(), session.ErrNotJoined)
	assert.Zero(t, h.tr.reconnects)
}

func TestController_SetUsername(t *testing.T) {
	h := newHarness(t, session.Config{})

	assert.ErrorIs(t, h.ctrl.SetUsername("   "), protocol.ErrEmptyUsername)
	assert.ErrorIs(t, h.ctrl.SetUsername(strings.Repeat("x", protocol.MaxUsernameLength+1)), protocol.ErrUsernameTooLong)
	require.NoError(t, h.ctrl.SetUsername("  Ana  "))
	assert.Equal(t, "Ana", h.ctrl.View().Username)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "unjoined", session.Unjoined.String())
	assert.Equal(t, "joining", session.Joining.String())
	assert.Equal(t, "joined", session.Joined.String())
	assert.Equal(t, "Phase(7)", session.Phase(7).String())
}
