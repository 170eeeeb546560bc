package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Message is an immutable chat message as ordered by the server.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp Timestamp `json:"timestamp"`
	RoomID    RoomID    `json:"roomId"`
}

// Time returns the message instant.
func (m Message) Time() time.Time {
	return m.Timestamp.Time
}

// Timestamp is a message instant. On the wire it is an ISO-8601 string;
// epoch milliseconds are accepted as well since some servers send Date.now().
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, truncated to millisecond precision like the wire form.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

// MarshalJSON encodes the instant as an RFC 3339 string with milliseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

// UnmarshalJSON decodes an RFC 3339 string or a number of epoch milliseconds.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("timestamp: missing value")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		t.Time = parsed
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}
