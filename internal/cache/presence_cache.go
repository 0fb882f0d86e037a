package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceCache keeps a fast live roster per session in Redis: a hash
// of participantId -> last-seen unix seconds. Liveness is judged by
// recency against a cutoff, so a crashed participant simply ages out.
// Advisory only; the durable presence records live in Mongo.
type PresenceCache interface {
	Touch(ctx context.Context, sessionID, participantID string, at time.Time) error
	// Live returns the participants seen since the cutoff.
	Live(ctx context.Context, sessionID string, since time.Time) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
}

type presenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresenceCache(client *redis.Client) PresenceCache {
	return &presenceCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *presenceCache) key(sessionID string) string {
	return fmt.Sprintf("session:%s:presence", sessionID)
}

func (c *presenceCache) Touch(ctx context.Context, sessionID, participantID string, at time.Time) error {
	key := c.key(sessionID)
	if err := c.client.HSet(ctx, key, participantID, at.Unix()).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, c.ttl).Err()
}

func (c *presenceCache) Live(ctx context.Context, sessionID string, since time.Time) ([]string, error) {
	entries, err := c.client.HGetAll(ctx, c.key(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	cutoff := since.Unix()
	live := make([]string, 0, len(entries))
	for participantID, raw := range entries {
		seen, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if seen >= cutoff {
			live = append(live, participantID)
		}
	}
	return live, nil
}

func (c *presenceCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
