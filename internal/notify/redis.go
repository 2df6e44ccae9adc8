package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/trackwise/internal/achievement"
)

const (
	// DefaultChannel is the pub/sub channel unlocks are published on.
	DefaultChannel = "trackwise:achievements"

	// recentLimit bounds the per-track list of recent unlocks.
	recentLimit = 50
)

// Redis publishes unlocks on a pub/sub channel and keeps a short list of
// recent unlocks per track for clients that were not subscribed.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis connects to the Redis server at url and verifies it responds.
func NewRedis(ctx context.Context, url, channel string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return NewRedisWithClient(client, channel), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel}
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func recentKey(trackID string) string {
	return "trackwise:unlocks:" + trackID
}

// AchievementsUnlocked publishes each unlock and records it in the
// track's recent list.
func (r *Redis) AchievementsUnlocked(ctx context.Context, trackID string, unlocked []achievement.Achievement) error {
	if len(unlocked) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, a := range unlocked {
			data, err := json.Marshal(NewUnlock(trackID, a))
			if err != nil {
				return fmt.Errorf("marshal unlock: %w", err)
			}
			pipe.Publish(ctx, r.channel, data)
			pipe.LPush(ctx, recentKey(trackID), data)
		}
		pipe.LTrim(ctx, recentKey(trackID), 0, recentLimit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: publish unlocks: %w", err)
	}
	return nil
}

// Recent returns up to limit of the track's latest unlocks, newest first.
func (r *Redis) Recent(ctx context.Context, trackID string, limit int) ([]Unlock, error) {
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}
	items, err := r.client.LRange(ctx, recentKey(trackID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read recent unlocks: %w", err)
	}
	out := make([]Unlock, 0, len(items))
	for _, item := range items {
		var u Unlock
		if err := json.Unmarshal([]byte(item), &u); err != nil {
			return nil, fmt.Errorf("redis: decode unlock: %w", err)
		}
		out = append(out, u)
	}
	return out, nil
}

// Subscribe returns a subscription to the unlock channel.
func (r *Redis) Subscribe(ctx context.Context) *redis.PubSub {
	return r.client.Subscribe(ctx, r.channel)
}
