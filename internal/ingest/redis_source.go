// internal/ingest/redis_source.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisSource subscribes to a pub/sub channel carrying telemetry packets.
// A failed subscription is retried every ReconnectWait.
type RedisSource struct {
	Client        *redis.Client
	Channel       string
	ReconnectWait time.Duration
	Logger        *log.Logger
}

func (s *RedisSource) Name() string { return "redis " + s.Channel }

func (s *RedisSource) Run(ctx context.Context, out chan<- []byte) error {
	wait := s.ReconnectWait
	if wait <= 0 {
		wait = defaultReconnectWait
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}

	for {
		err := s.session(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Printf("Redis channel %s unavailable: %v; retrying in %s", s.Channel, err, wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *RedisSource) session(ctx context.Context, out chan<- []byte) error {
	sub := s.Client.Subscribe(ctx, s.Channel)
	defer sub.Close()

	// Wait for the subscription confirmation so connection errors surface here.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.Channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return errors.New("subscription closed")
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
