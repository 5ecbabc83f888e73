package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type PresenceType string

const (
	UserJoined PresenceType = "user_joined"
	UserLeft   PresenceType = "user_left"
)

// PresenceEvent is published whenever a participant joins or leaves a room.
type PresenceEvent struct {
	Type       PresenceType `json:"type"`
	RoomID     string       `json:"room_id"`
	UserID     string       `json:"user_id"`
	Users      []string     `json:"users"`
	InstanceID string       `json:"instance_id"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Publisher is an outbound sink for presence events.
type Publisher interface {
	Publish(ctx context.Context, event PresenceEvent) error
}

// NopPublisher discards events. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, PresenceEvent) error { return nil }

// RedisPublisher fans presence events out over a Redis pub/sub channel so
// other services can observe room activity.
type RedisPublisher struct {
	rdb        *redis.Client
	channel    string
	instanceID string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		rdb:        rdb,
		channel:    channel,
		instanceID: uuid.New().String(),
	}
}

// InstanceID identifies this process in published events.
func (p *RedisPublisher) InstanceID() string { return p.instanceID }

func (p *RedisPublisher) Publish(ctx context.Context, event PresenceEvent) error {
	event.InstanceID = p.instanceID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Users == nil {
		event.Users = []string{}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish presence event: %w", err)
	}
	return nil
}

// Ping checks connectivity to Redis.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error { return p.rdb.Close() }
