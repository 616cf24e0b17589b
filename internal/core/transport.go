package core

import "context"

// Transport abstracts the pub/sub backend that fans events out to channel
// subscribers. Trigger returns once the backend accepted the event; it does
// not confirm that any subscriber received it.
type Transport interface {
	Trigger(ctx context.Context, channelName string, event Envelope) error
}
