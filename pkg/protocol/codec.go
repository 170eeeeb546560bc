package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrUnknownEvent is returned for envelopes whose event name is not part of
// the expected direction of the protocol.
var ErrUnknownEvent = errors.New("unknown event")

// Envelope is one frame on the wire: an event name and its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope serializes ev into an envelope.
func NewEnvelope(ev Event) (Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", ev.EventName(), err)
	}
	return Envelope{Event: ev.EventName(), Data: data}, nil
}

// DecodeInbound parses a server-to-client envelope into its typed event.
func DecodeInbound(env Envelope) (Event, error) {
	switch env.Event {
	case EventRoomJoined:
		return decodePayload[RoomJoined](env)
	case EventNewMessage:
		return decodePayload[NewMessage](env)
	case EventUserJoined:
		return decodePayload[UserJoined](env)
	case EventUserLeft:
		return decodePayload[UserLeft](env)
	case EventUserTyping:
		return decodePayload[UserTyping](env)
	case EventRoomChatCleared:
		return RoomChatCleared{}, nil
	case EventError:
		return decodePayload[ServerError](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// DecodeOutbound parses a client-to-server envelope into its typed event.
func DecodeOutbound(env Envelope) (Event, error) {
	switch env.Event {
	case EventJoinRoom:
		return decodePayload[JoinRoom](env)
	case EventSendMessage:
		return decodePayload[SendMessage](env)
	case EventTyping:
		return decodePayload[Typing](env)
	case EventClearRoomChat:
		return decodePayload[ClearRoomChat](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func decodePayload[T Event](env Envelope) (Event, error) {
	var v T
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("failed to decode %s: missing payload", env.Event)
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", env.Event, err)
	}
	return v, nil
}

// Codec turns envelopes into frames and back.
type Codec interface {
	Name() string
	Marshal(env Envelope) ([]byte, error)
	Unmarshal(data []byte) (Envelope, error)
	// Binary reports whether frames go out as binary websocket messages.
	Binary() bool
}

// CodecByName returns the codec registered under name ("json" or "proto").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "proto", "protobuf":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// JSONCodec encodes envelopes as JSON text frames.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Marshal(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, errors.New("failed to decode envelope: missing event name")
	}
	return env, nil
}

// ProtoCodec encodes envelopes as protobuf binary frames. The envelope is
// carried as a google.protobuf.Struct, so the payload schema stays the one
// defined by the Go types in this package.
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "proto" }
func (ProtoCodec) Binary() bool { return true }

func (ProtoCodec) Marshal(env Envelope) ([]byte, error) {
	js, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(js, st); err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	data, err := proto.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

func (ProtoCodec) Unmarshal(data []byte) (Envelope, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	js, err := protojson.Marshal(st)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return JSONCodec{}.Unmarshal(js)
}
