package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "slackbrix:event:"

// Deduper remembers Slack event ids so retried deliveries are acknowledged
// without being handled twice.
type Deduper interface {
	// FirstSeen reports whether eventID has not been seen within the TTL.
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	// Release forgets eventID so a redelivery after a failed attempt is handled.
	Release(ctx context.Context, eventID string) error
}

type redisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) Deduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisDeduper{client: client, ttl: ttl}
}

func (d *redisDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, dedupeKey(eventID), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx event %s: %w", eventID, err)
	}
	return ok, nil
}

func (d *redisDeduper) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	if err := d.client.Del(ctx, dedupeKey(eventID)).Err(); err != nil {
		return fmt.Errorf("del event %s: %w", eventID, err)
	}
	return nil
}

func dedupeKey(eventID string) string {
	return dedupeKeyPrefix + eventID
}
