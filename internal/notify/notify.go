// Package notify publishes JSON messages on redis pub/sub channels: job
// results from workers to the API, and session state from the API to
// websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Publisher sends one message on a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// SessionChannel 是会话状态推送所用的频道。
func SessionChannel(sessionID string) string {
	return "session_notify:" + sessionID
}

// RedisPublisher publishes JSON-encoded payloads.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

// Recorder keeps published messages in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Message is one recorded publication.
type Message struct {
	Channel string
	Payload []byte
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	r.mu.Lock()
	r.messages = append(r.messages, Message{Channel: channel, Payload: data})
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
