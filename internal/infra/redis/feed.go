package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"expo-quiz-service/internal/domain"
)

const eventsChannel = "quiz:events"

// Feed carries change events over Redis pub/sub so every server instance
// sees mutations made by any other. Pub/sub delivery is not guaranteed;
// consumers poll on an interval as fallback, so the feed only has to be a
// latency optimization.
type Feed struct {
	client *redis.Client
}

func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func (f *Feed) Publish(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := f.client.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (f *Feed) Subscribe(ctx context.Context) (<-chan domain.Event, func(), error) {
	pubsub := f.client.Subscribe(ctx, eventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe events: %w", err)
	}

	out := make(chan domain.Event, 8)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var e domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				continue
			}
			select {
			case out <- e:
			default:
				// Drop rather than block; the consumer re-fetches on poll.
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}
	return out, cancel, nil
}
