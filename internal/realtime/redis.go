package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// EventsChannel is the Redis pub/sub channel shared by all API instances.
const EventsChannel = "setlister:events"

// RedisNotifier fans messages out through Redis pub/sub.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	log     zerolog.Logger
}

// NewRedisNotifier returns a Publisher backed by rdb.
func NewRedisNotifier(rdb *redis.Client, logger zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb:     rdb,
		channel: EventsChannel,
		log:     logger.With().Str("component", "redis-notifier").Logger(),
	}
}

// Publish implements Publisher.
func (n *RedisNotifier) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe relays every message published on the events channel into hub
// until ctx is cancelled.
func (n *RedisNotifier) Subscribe(ctx context.Context, hub *Hub) error {
	sub := n.rdb.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				n.log.Warn().Err(err).Msg("discarding malformed event")
				continue
			}
			if err := hub.Deliver(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
