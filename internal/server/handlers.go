package server

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// dispatch handles one client request.
func (s *Server) dispatch(client *Client, ev protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case protocol.JoinRoom:
		s.joinLocked(client, e)
	case protocol.SendMessage:
		s.sendMessageLocked(client, e)
	case protocol.Typing:
		s.typingLocked(client, e)
	case protocol.ClearRoomChat:
		s.clearLocked(client, e)
	}
}

func (s *Server) joinLocked(client *Client, e protocol.JoinRoom) {
	id, err := protocol.NormalizeRoomID(string(e.RoomID))
	if err != nil {
		s.sendLocked(client, protocol.ServerError{Message: "Invalid room ID"})
		return
	}
	name, err := protocol.NormalizeUsername(e.Username)
	if err != nil {
		s.sendLocked(client, protocol.ServerError{Message: "Invalid username"})
		return
	}

	// A connection is in at most one room.
	s.leaveLocked(client)

	r, ok := s.rooms[id]
	if !ok {
		r = newRoom(id)
		s.rooms[id] = r
	}
	client.username = name
	client.room = r
	r.add(client)

	s.log.Info("user joined",
		slog.String("room", id.String()),
		slog.String("user", name),
		slog.Int("members", len(r.members)))

	s.sendLocked(client, protocol.RoomJoined{
		RoomID:       id,
		Participants: r.roster(),
		Messages:     r.snapshot(),
	})
	s.broadcastLocked(r, protocol.UserJoined{Participants: r.roster()}, client)
}

func (s *Server) sendMessageLocked(client *Client, e protocol.SendMessage) {
	r, ok := s.memberRoomLocked(client, e.RoomID)
	if !ok {
		return
	}
	text, err := protocol.NormalizeText(e.Text)
	if err != nil {
		s.sendLocked(client, protocol.ServerError{Message: "Message must be between 1 and 500 characters"})
		return
	}

	msg := protocol.Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    client.username,
		Timestamp: protocol.NewTimestamp(s.now()),
		RoomID:    r.id,
	}
	r.record(msg, s.historyLimit)
	s.broadcastLocked(r, protocol.NewMessage{Message: msg}, nil)
}

func (s *Server) typingLocked(client *Client, e protocol.Typing) {
	r := client.room
	if r == nil {
		return
	}
	client.typing = e.IsTyping
	s.broadcastLocked(r, protocol.UserTyping{Username: client.username, IsTyping: e.IsTyping}, client)
}

func (s *Server) clearLocked(client *Client, e protocol.ClearRoomChat) {
	r, ok := s.memberRoomLocked(client, e.RoomID)
	if !ok {
		return
	}
	r.clear()
	s.log.Info("room chat cleared", slog.String("room", r.id.String()), slog.String("user", client.username))
	s.broadcastLocked(r, protocol.RoomChatCleared{}, nil)
}

// memberRoomLocked returns the client's room if it matches roomID, replying
// with an error otherwise.
func (s *Server) memberRoomLocked(client *Client, roomID protocol.RoomID) (*room, bool) {
	r := client.room
	if r == nil {
		s.sendLocked(client, protocol.ServerError{Message: "Join a room first"})
		return nil, false
	}
	id, err := protocol.NormalizeRoomID(string(roomID))
	if err != nil || id != r.id {
		s.sendLocked(client, protocol.ServerError{Message: "Not a member of this room"})
		return nil, false
	}
	return r, true
}

// leaveLocked removes client from its room, telling the remaining members.
func (s *Server) leaveLocked(client *Client) {
	r := client.room
	if r == nil {
		return
	}
	r.remove(client)
	client.room = nil
	wasTyping := client.typing
	client.typing = false

	s.log.Info("user left", slog.String("room", r.id.String()), slog.String("user", client.username))

	if r.empty() {
		delete(s.rooms, r.id)
		return
	}
	if wasTyping {
		s.broadcastLocked(r, protocol.UserTyping{Username: client.username, IsTyping: false}, nil)
	}
	s.broadcastLocked(r, protocol.UserLeft{Participants: r.roster()}, nil)
}
