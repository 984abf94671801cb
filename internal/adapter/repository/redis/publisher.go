package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher implements domain.Publisher on Redis pub/sub. Fanout is
// fire-and-forget: a short timeout bounds how long a publish may hold the
// consumer loop, and callers are expected to drop on error.
type Publisher struct {
	client  *redis.Client
	logger  *slog.Logger
	timeout time.Duration
}

// NewPublisher creates a tenant-channel publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &Publisher{
		client:  client,
		logger:  logger.With("component", "redis_publisher"),
		timeout: timeout,
	}
}

// Publish sends a JSON payload on the channel, bounded by the timeout.
func (p *Publisher) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal fanout payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	return nil
}

// Subscribe relays raw messages from the given channels until the context is
// cancelled or the returned close function is called. Dashboard bridges (SSE)
// consume this; slow subscribers only ever lose their own messages.
func (p *Publisher) Subscribe(ctx context.Context, channels ...string) (<-chan string, func() error) {
	sub := p.client.Subscribe(ctx, channels...)
	out := make(chan string, 64)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
					p.logger.Warn("subscriber channel full, dropping message", "channel", msg.Channel)
				}
			}
		}
	}()

	return out, sub.Close
}
