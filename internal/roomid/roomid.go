// Package roomid generates identifiers for new rooms.
package roomid

import (
	"fmt"

	"github.com/jaevor/go-nanoid"

	"github.com/omochice/toy-room-chat/pkg/protocol"
)

// Alphabet is the set of characters a generated room id is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator returns fresh room identifiers.
type Generator func() (protocol.RoomID, error)

// NewGenerator returns a generator of uppercase alphanumeric ids of
// protocol.RoomIDLength characters.
func NewGenerator() (Generator, error) {
	gen, err := nanoid.CustomASCII(Alphabet, protocol.RoomIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create room id generator: %w", err)
	}
	return func() (protocol.RoomID, error) {
		return protocol.RoomID(gen()), nil
	}, nil
}
