package channel

import (
	"fmt"
	"strings"
)

// Channel name prefixes understood by the transport.
const (
	roomPrefix     = "room-"
	presencePrefix = "presence-"
	privatePrefix  = "private-"
)

// allowed reports whether b is valid in a channel name as-is.
// The transport's channel grammar permits alphanumerics and _-=@,.;
func allowed(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '_', '-', '=', '@', ',', '.', ';':
		return true
	}
	return false
}

// escapeRoomID maps an arbitrary room identifier onto the channel grammar.
// Bytes outside the grammar (and the escape byte itself) become ~XX hex,
// so distinct room identifiers never produce the same channel name.
func escapeRoomID(roomID string) string {
	var sb strings.Builder
	for i := 0; i < len(roomID); i++ {
		b := roomID[i]
		if allowed(b) && b != '~' {
			sb.WriteByte(b)
			continue
		}
		fmt.Fprintf(&sb, "~%02X", b)
	}
	return sb.String()
}

// RoomChannel returns the public broadcast channel name for a room.
func RoomChannel(roomID string) string {
	return roomPrefix + escapeRoomID(roomID)
}

// PresenceChannel returns the presence channel name for a room.
// Subscribing to it requires authorization.
func PresenceChannel(roomID string) string {
	return presencePrefix + RoomChannel(roomID)
}

// RequiresAuth reports whether subscribing to the named channel needs a
// signed authorization token.
func RequiresAuth(name string) bool {
	return strings.HasPrefix(name, presencePrefix) || strings.HasPrefix(name, privatePrefix)
}

// Valid reports whether name is non-empty and fits the channel grammar.
// The escape byte is accepted since escaped room identifiers contain it.
func Valid(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if b := name[i]; !allowed(b) && b != '~' {
			return false
		}
	}
	return true
}
