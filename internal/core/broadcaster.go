package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/channel"
)

// Receipt reports that the transport accepted a publish. Acceptance is not
// delivery: subscribers may or may not receive the event (at-most-once).
type Receipt struct {
	Accepted  bool
	Channel   string
	EmittedAt time.Time
}

// Broadcaster publishes typed room events to the transport. It keeps no
// state between calls; each publish is one outbound call scoped to the
// room's channel.
type Broadcaster struct {
	transport Transport
	log       *zerolog.Logger
	now       func() time.Time
}

// NewBroadcaster creates a broadcaster over the given transport.
func NewBroadcaster(transport Transport, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		transport: transport,
		log:       logger,
		now:       time.Now,
	}
}

// PublishChat broadcasts a chat message to the room.
func (b *Broadcaster) PublishChat(ctx context.Context, roomID, text, senderID string) (*Receipt, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text", ErrEmptyPayload)
	}
	return b.publish(ctx, roomID, senderID, EventChatMessage, func(emittedAt time.Time) any {
		return ChatPayload{Text: text, SenderID: senderID, EmittedAt: emittedAt}
	})
}

// PublishMove broadcasts a piece position update to the room.
func (b *Broadcaster) PublishMove(ctx context.Context, roomID, pieceID string, pos Position, senderID string) (*Receipt, error) {
	if pieceID == "" {
		return nil, fmt.Errorf("%w: piece_id", ErrEmptyPayload)
	}
	return b.publish(ctx, roomID, senderID, EventPieceMoved, func(time.Time) any {
		return MovePayload{PieceID: pieceID, CurrentPos: pos, SenderID: senderID}
	})
}

// PublishCompletion broadcasts that the room's puzzle was solved.
func (b *Broadcaster) PublishCompletion(ctx context.Context, roomID, senderID string) (*Receipt, error) {
	return b.publish(ctx, roomID, senderID, EventPuzzleCompleted, func(time.Time) any {
		return CompletionPayload{SenderID: senderID}
	})
}

// publish validates the address, stamps the envelope and hands it to the
// transport exactly once. Publishing into a room with no subscribers is
// legal and succeeds with zero recipients.
func (b *Broadcaster) publish(ctx context.Context, roomID, senderID string, eventType EventType, payload func(time.Time) any) (*Receipt, error) {
	if roomID == "" {
		return nil, ErrEmptyRoomID
	}
	if senderID == "" {
		return nil, ErrEmptySenderID
	}

	emittedAt := b.now().UTC()
	channelName := channel.RoomChannel(roomID)
	event := Envelope{
		Type:      eventType,
		RoomID:    roomID,
		SenderID:  senderID,
		Payload:   payload(emittedAt),
		EmittedAt: emittedAt,
	}

	if err := b.transport.Trigger(ctx, channelName, event); err != nil {
		b.log.Warn().Err(err).
			Str("channel", channelName).
			Str("event_type", string(eventType)).
			Msg("transport rejected publish")
		return nil, fmt.Errorf("%w: %v", ErrPublishRejected, err)
	}

	b.log.Debug().
		Str("channel", channelName).
		Str("event_type", string(eventType)).
		Str("sender_id", senderID).
		Msg("event published")

	return &Receipt{Accepted: true, Channel: channelName, EmittedAt: emittedAt}, nil
}
