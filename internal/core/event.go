package core

import "time"

// EventType discriminates room event envelopes.
type EventType string

const (
	// EventChatMessage carries a chat line posted to the room.
	EventChatMessage EventType = "chat-message"
	// EventPieceMoved carries a puzzle piece position update.
	EventPieceMoved EventType = "piece-moved"
	// EventPuzzleCompleted announces that the room's puzzle was solved.
	EventPuzzleCompleted EventType = "puzzle-completed"
)

// Envelope is the typed, addressed unit of broadcast data. It is constructed
// per publish call, handed to the transport, and never retained: late
// subscribers do not receive events emitted before they subscribed.
type Envelope struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Payload   any       `json:"payload"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Position is a piece position on the board.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChatPayload is the payload of a chat-message event.
type ChatPayload struct {
	Text      string    `json:"text"`
	SenderID  string    `json:"sender_id"`
	EmittedAt time.Time `json:"emitted_at"`
}

// MovePayload is the payload of a piece-moved event. Consumers treat the
// latest received position per piece as authoritative; deltas are never sent
// because concurrent moves from different senders arrive unordered.
type MovePayload struct {
	PieceID    string   `json:"piece_id"`
	CurrentPos Position `json:"current_pos"`
	SenderID   string   `json:"sender_id"`
}

// CompletionPayload is the payload of a puzzle-completed event.
type CompletionPayload struct {
	SenderID string `json:"sender_id"`
}
