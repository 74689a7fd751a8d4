// Package realtime fans out collection change notifications over Redis
// pub/sub. Payloads carry no data: subscribers re-read the whole collection.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const topicPrefix = "odyssey:changes"

// ProductsTopic names the change topic of a user's product collection.
func ProductsTopic(userID string) string {
	return fmt.Sprintf("%s:users:%s:products", topicPrefix, userID)
}

// SalesTopic names the change topic of a user's sales collection.
func SalesTopic(userID string) string {
	return fmt.Sprintf("%s:users:%s:sales", topicPrefix, userID)
}

// Notifier publishes and subscribes to collection change topics.
type Notifier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewNotifier wraps a Redis client.
func NewNotifier(client *redis.Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, logger: logger}
}

// Publish announces a change on topic. The payload is the publish time so
// subscribers can log delivery lag.
func (n *Notifier) Publish(ctx context.Context, topic string) error {
	if n == nil || n.client == nil {
		return nil
	}
	payload := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := n.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("realtime: publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe invokes onChange for every message on topic until ctx ends or the
// returned function is called. The subscription is confirmed before return.
func (n *Notifier) Subscribe(ctx context.Context, topic string, onChange func()) (func(), error) {
	if n == nil || n.client == nil {
		return nil, errors.New("realtime: notifier not configured")
	}
	pubsub := n.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("realtime: subscribe %s: %w", topic, err)
	}
	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if sent, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
					n.logger.Debug("change received",
						slog.String("topic", topic),
						slog.Duration("lag", time.Since(time.Unix(0, sent))),
					)
				}
				onChange()
			}
		}
	}()
	return cancel, nil
}
