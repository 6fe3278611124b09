package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"travorier/app/models"
)

const feedPrefix = "match:"

// Broadcaster delivers a message to the local subscribers of its match
type Broadcaster interface {
	Broadcast(msg models.Message)
}

// FeedBridge carries committed messages between instances over Redis
// pub/sub. Every instance, the sender included, receives the message from
// Redis and hands it to its local hub.
type FeedBridge struct {
	client redis.UniversalClient
	local  Broadcaster
	logger zerolog.Logger
}

// NewFeedBridge connects client to the local broadcaster
func NewFeedBridge(client redis.UniversalClient, local Broadcaster, logger zerolog.Logger) *FeedBridge {
	return &FeedBridge{
		client: client,
		local:  local,
		logger: logger.With().Str("component", "feed_bridge").Logger(),
	}
}

// Publish sends msg to every instance
func (b *FeedBridge) Publish(ctx context.Context, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := b.client.Publish(ctx, feedPrefix+msg.MatchID, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish message %s: %w", msg.ID, err)
	}
	return nil
}

// Run relays messages until ctx is cancelled
func (b *FeedBridge) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, feedPrefix+"*")
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting ready
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to message feed: %w", err)
	}
	b.logger.Info().Msg("message feed subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg models.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.Warn().Err(err).Str("channel", m.Channel).Msg("dropping malformed feed payload")
				continue
			}
			if msg.MatchID == "" {
				msg.MatchID = strings.TrimPrefix(m.Channel, feedPrefix)
			}
			b.local.Broadcast(msg)
		}
	}
}
