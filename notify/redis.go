package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel the real-time gateway subscribes to.
const DefaultChannel = "realtime:forced-logout"

// Event is the payload published for every forced logout.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	At        time.Time `json:"at"`
}

// RedisPublisher publishes forced-logout events on a Redis pub/sub channel.
type RedisPublisher struct {
	redis   *redis.Client
	channel string
	nowTime func() time.Time
}

func NewRedisPublisher(redisClient *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{redis: redisClient, channel: channel, nowTime: time.Now}
}

func (p *RedisPublisher) NotifyForcedLogout(ctx context.Context, sessionID string) error {
	payload, err := json.Marshal(Event{Type: "forced_logout", SessionID: sessionID, At: p.nowTime().UTC()})
	if err != nil {
		return errors.Wrap(err, "[RedisPublisher.NotifyForcedLogout] marshal")
	}
	if err := p.redis.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrap(err, "[RedisPublisher.NotifyForcedLogout] publish")
	}
	return nil
}
