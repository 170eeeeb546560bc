package server

import (
	"slices"

	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// room is one chat room. Members are kept in join order, which is the
// roster order clients see.
type room struct {
	id      protocol.RoomID
	members []*Client
	history []protocol.Message
}

func newRoom(id protocol.RoomID) *room {
	return &room{id: id}
}

func (r *room) add(c *Client) {
	r.members = append(r.members, c)
}

func (r *room) remove(c *Client) {
	r.members = slices.DeleteFunc(r.members, func(m *Client) bool { return m == c })
}

func (r *room) empty() bool {
	return len(r.members) == 0
}

func (r *room) roster() []string {
	names := make([]string, len(r.members))
	for i, m := range r.members {
		names[i] = m.username
	}
	return names
}

// record appends msg and keeps only the newest limit messages.
func (r *room) record(msg protocol.Message, limit int) {
	r.history = append(r.history, msg)
	if over := len(r.history) - limit; over > 0 {
		r.history = slices.Delete(r.history, 0, over)
	}
}

func (r *room) snapshot() []protocol.Message {
	out := make([]protocol.Message, len(r.history))
	copy(out, r.history)
	return out
}

func (r *room) clear() {
	r.history = nil
}
