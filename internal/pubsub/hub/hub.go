package hub

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/auth"
	"github.com/puzzlink/puzzlink-server/internal/channel"
	"github.com/puzzlink/puzzlink-server/internal/core"
)

const subscriberBuffer = 16

type subscriber struct {
	id           int64
	connectionID string
	events       chan core.Envelope
	done         chan struct{}
}

// Hub is an in-process pub/sub transport. It stands in for the managed
// channel-messaging service in development and tests, enforcing the same
// subscribe-token binding the managed service would.
type Hub struct {
	mu         sync.RWMutex
	channels   map[string]map[int64]*subscriber
	nextID     int64
	authorizer *auth.Authorizer
	log        *zerolog.Logger
}

// New creates an empty hub. The authorizer gates subscriptions to
// auth-requiring channels.
func New(authorizer *auth.Authorizer, logger *zerolog.Logger) *Hub {
	return &Hub{
		channels:   make(map[string]map[int64]*subscriber),
		authorizer: authorizer,
		log:        logger,
	}
}

// Subscribe registers a connection on a channel and returns its event stream
// plus a cancel function. For presence/private channels the subscribe token
// must have been issued for exactly this connection+channel pair. The stream
// only carries events published after subscription; there is no history.
func (h *Hub) Subscribe(ctx context.Context, connectionID, channelName, token string) (<-chan core.Envelope, func(), error) {
	if connectionID == "" {
		return nil, nil, fmt.Errorf("subscribe: empty connection id")
	}
	if !channel.Valid(channelName) {
		return nil, nil, fmt.Errorf("subscribe: bad channel name %q", channelName)
	}

	if channel.RequiresAuth(channelName) {
		if _, err := h.authorizer.VerifySubscription(token, connectionID, channelName); err != nil {
			return nil, nil, fmt.Errorf("subscribe: %w", err)
		}
	}

	sub := &subscriber{
		connectionID: connectionID,
		events:       make(chan core.Envelope, subscriberBuffer),
		done:         make(chan struct{}),
	}

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	subs, ok := h.channels[channelName]
	if !ok {
		subs = make(map[int64]*subscriber)
		h.channels[channelName] = subs
	}
	subs[sub.id] = sub
	count := len(subs)
	h.mu.Unlock()

	h.log.Debug().
		Str("channel", channelName).
		Str("connection_id", connectionID).
		Int("subscribers", count).
		Msg("subscribed")

	cancel := func() { h.unsubscribe(channelName, sub.id) }
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()

	return sub.events, cancel, nil
}

// Trigger fans the event out to current subscribers of the channel. A
// channel with no subscribers accepts the event and delivers it to nobody.
// Slow subscribers have the event dropped rather than blocking the publish.
func (h *Hub) Trigger(_ context.Context, channelName string, event core.Envelope) error {
	if !channel.Valid(channelName) {
		return fmt.Errorf("trigger: bad channel name %q", channelName)
	}

	// The sends stay under the read lock: unsubscribe closes event streams
	// while holding the write lock, so a stream can never be closed while a
	// send is in flight. The sends never block, so publishers do not hold
	// the lock for long.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.channels[channelName] {
		select {
		case sub.events <- event:
		default:
			h.log.Warn().
				Str("channel", channelName).
				Str("connection_id", sub.connectionID).
				Msg("dropping event for slow subscriber")
		}
	}
	return nil
}

// SubscriberCount reports how many connections are subscribed to a channel.
func (h *Hub) SubscriberCount(channelName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channelName])
}

// unsubscribe removes one subscriber and garbage-collects the channel entry
// once it is empty, so idle rooms hold no memory.
func (h *Hub) unsubscribe(channelName string, id int64) {
	h.mu.Lock()
	subs, ok := h.channels[channelName]
	if !ok {
		h.mu.Unlock()
		return
	}
	sub, ok := subs[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.channels, channelName)
	}
	// Closing under the write lock keeps the close ordered after any
	// in-flight fanout, which holds the read lock across its sends.
	close(sub.events)
	close(sub.done)
	h.mu.Unlock()

	h.log.Debug().
		Str("channel", channelName).
		Str("connection_id", sub.connectionID).
		Msg("unsubscribed")
}

// Ensure Hub implements core.Transport
var _ core.Transport = (*Hub)(nil)
