package inventory

import "context"

// ChangeFeed announces and observes changes of a user's product collection.
// realtime.Notifier satisfies it.
type ChangeFeed interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string, onChange func()) (func(), error)
}
