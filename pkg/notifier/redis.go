package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes notification events on redis pub/sub channels, one
// channel per room. The realtime gateway that holds the websocket
// connections subscribes to these channels and forwards to clients.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Emit(ctx context.Context, room, event string, payload any) error {
	envelope := map[string]any{
		"event":   event,
		"payload": payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := n.client.Publish(ctx, room, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", room, err)
	}

	return nil
}
