package chat

import (
	"slices"

	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// Room is the client's membership in one room. The roster is always the
// server's latest full list; it is replaced, never merged.
type Room struct {
	ID           protocol.RoomID
	participants []string
}

// NewRoom creates a room session from a join confirmation.
func NewRoom(id protocol.RoomID, participants []string) *Room {
	return &Room{ID: id, participants: slices.Clone(participants)}
}

// SetParticipants replaces the roster wholesale.
func (r *Room) SetParticipants(participants []string) {
	r.participants = slices.Clone(participants)
}

// Participants returns a copy of the roster in server order.
func (r *Room) Participants() []string {
	return slices.Clone(r.participants)
}

// Len returns the number of participants.
func (r *Room) Len() int {
	return len(r.participants)
}
