package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/events"
)

// RedisRelay fans events out through a Redis channel so every instance's hub sees them.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger
}

type relayEnvelope struct {
	ID        string           `json:"id"`
	Type      events.EventType `json:"type"`
	Room      string           `json:"room"`
	ActorID   string           `json:"actorId,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload"`
}

// NewRedisRelay creates a relay that feeds hub.
func NewRedisRelay(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, channel: channel, hub: hub, logger: logger}
}

// Publish sends event to the shared channel. Implements events.EventHandler.
func (r *RedisRelay) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	data, err := json.Marshal(relayEnvelope{
		ID:        event.ID,
		Type:      event.Type,
		Room:      event.Room,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Run delivers relayed events to the local hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("realtime relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.deliver(msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(raw string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.logger.Warn("discarding malformed relay message", zap.Error(err))
		return
	}
	r.hub.Broadcast(events.Event{
		ID:        env.ID,
		Type:      env.Type,
		Room:      env.Room,
		ActorID:   env.ActorID,
		Timestamp: env.Timestamp,
		Payload:   env.Payload,
	})
}
