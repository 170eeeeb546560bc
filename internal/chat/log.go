package chat

import (
	"slices"

	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// MessageLog is the ordered message stream of the active room. It keeps
// server delivery order and never re-sorts or deduplicates.
type MessageLog struct {
	messages []protocol.Message
}

// NewMessageLog returns an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// SnapshotFrom replaces the whole sequence with the join-time history.
func (l *MessageLog) SnapshotFrom(messages []protocol.Message) {
	l.messages = slices.Clone(messages)
}

// Append adds one message at the end.
func (l *MessageLog) Append(msg protocol.Message) {
	l.messages = append(l.messages, msg)
}

// Clear empties the log.
func (l *MessageLog) Clear() {
	l.messages = nil
}

// Messages returns a copy of the sequence in arrival order.
func (l *MessageLog) Messages() []protocol.Message {
	return slices.Clone(l.messages)
}

func (l *MessageLog) Len() int {
	return len(l.messages)
}
