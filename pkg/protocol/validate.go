package protocol

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// RoomIDLength is the length of generated room identifiers.
	RoomIDLength = 8
	// MaxTextLength bounds a message body, in characters.
	MaxTextLength = 500
	// MaxUsernameLength bounds a participant name, in characters.
	MaxUsernameLength = 20
)

var (
	ErrEmptyUsername   = errors.New("username is required")
	ErrUsernameTooLong = errors.New("username is too long")
	ErrEmptyText       = errors.New("message text is empty")
	ErrTextTooLong     = errors.New("message text is too long")
	ErrInvalidRoomID   = errors.New("invalid room id")
)

// RoomID is an uppercase alphanumeric room identifier.
type RoomID string

func (id RoomID) String() string { return string(id) }

// NormalizeRoomID trims and uppercases user input and checks the result is
// 1 to RoomIDLength ASCII letters or digits.
func NormalizeRoomID(raw string) (RoomID, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" || len(s) > RoomIDLength {
		return "", ErrInvalidRoomID
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", ErrInvalidRoomID
		}
	}
	return RoomID(s), nil
}

// NormalizeUsername trims a participant name and checks its bounds.
func NormalizeUsername(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyUsername
	}
	if utf8.RuneCountInString(s) > MaxUsernameLength {
		return "", ErrUsernameTooLong
	}
	return s, nil
}

// NormalizeText trims a message body and checks its bounds.
func NormalizeText(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(s) > MaxTextLength {
		return "", ErrTextTooLong
	}
	return s, nil
}
