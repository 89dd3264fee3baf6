package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"resumekit/internal/tasks"
)

// Subscription yields the results published for one job.
type Subscription interface {
	Results() <-chan tasks.RenderResult
	Close() error
}

// Results opens a subscription before the job is enqueued so no result can
// be missed.
type Results interface {
	Subscribe(ctx context.Context, jobID string) (Subscription, error)
}

// RedisResults reads results from redis pub/sub.
type RedisResults struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisResults(client *redis.Client, logger *slog.Logger) *RedisResults {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisResults{client: client, logger: logger}
}

func (r *RedisResults) Subscribe(ctx context.Context, jobID string) (Subscription, error) {
	channel := tasks.ResultChannel(jobID)
	pubsub := r.client.Subscribe(ctx, channel)
	// Receive waits for the subscription confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %q: %w", channel, err)
	}

	sub := &redisSubscription{pubsub: pubsub, out: make(chan tasks.RenderResult, 1)}
	go sub.run(r.logger.With(slog.String("channel", channel)))
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan tasks.RenderResult
}

func (s *redisSubscription) run(log *slog.Logger) {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		var res tasks.RenderResult
		if err := json.Unmarshal([]byte(msg.Payload), &res); err != nil {
			log.Warn("Queue: drop malformed render result", slog.Any("error", err))
			continue
		}
		s.out <- res
		return
	}
}

func (s *redisSubscription) Results() <-chan tasks.RenderResult { return s.out }

func (s *redisSubscription) Close() error { return s.pubsub.Close() }
