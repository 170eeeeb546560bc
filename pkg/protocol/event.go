// Package protocol defines the room chat wire protocol: event names, typed
// payloads, input validation and the frame codecs shared by client and server.
package protocol

// Outbound events (client to server).
const (
	EventJoinRoom      = "join-room"
	EventSendMessage   = "send-message"
	EventTyping        = "typing"
	EventClearRoomChat = "clear-room-chat"
)

// Inbound events (server to client).
const (
	EventRoomJoined      = "room-joined"
	EventNewMessage      = "new-message"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventUserTyping      = "user-typing"
	EventRoomChatCleared = "room-chat-cleared"
	EventError           = "error"
)

// Event is a typed protocol payload.
type Event interface {
	EventName() string
}

// JoinRoom asks the server to add the sender to a room, creating it if needed.
type JoinRoom struct {
	RoomID   RoomID `json:"roomId"`
	Username string `json:"username"`
}

// SendMessage posts a text message to a room.
type SendMessage struct {
	RoomID RoomID `json:"roomId"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Typing reports the local user's typing state to the room.
type Typing struct {
	RoomID   RoomID `json:"roomId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// ClearRoomChat asks the server to drop the room history for every member.
type ClearRoomChat struct {
	RoomID RoomID `json:"roomId"`
}

// RoomJoined confirms a join and carries the authoritative roster and history.
type RoomJoined struct {
	RoomID       RoomID    `json:"roomId"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
}

// NewMessage is a message broadcast to the room, the sender included.
type NewMessage struct {
	Message
}

// UserJoined carries the full roster after someone joined.
type UserJoined struct {
	Participants []string `json:"participants"`
}

// UserLeft carries the full roster after someone left.
type UserLeft struct {
	Participants []string `json:"participants"`
}

// UserTyping reports a remote participant's typing state.
type UserTyping struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// RoomChatCleared tells every member to empty its message log.
type RoomChatCleared struct{}

// ServerError is a protocol-level rejection with a human-readable message.
type ServerError struct {
	Message string `json:"message"`
}

func (JoinRoom) EventName() string        { return EventJoinRoom }
func (SendMessage) EventName() string     { return EventSendMessage }
func (Typing) EventName() string          { return EventTyping }
func (ClearRoomChat) EventName() string   { return EventClearRoomChat }
func (RoomJoined) EventName() string      { return EventRoomJoined }
func (NewMessage) EventName() string      { return EventNewMessage }
func (UserJoined) EventName() string      { return EventUserJoined }
func (UserLeft) EventName() string        { return EventUserLeft }
func (UserTyping) EventName() string      { return EventUserTyping }
func (RoomChatCleared) EventName() string { return EventRoomChatCleared }
func (ServerError) EventName() string     { return EventError }

// Error implements error so a rejection can travel through error returns.
func (e ServerError) Error() string { return e.Message }
