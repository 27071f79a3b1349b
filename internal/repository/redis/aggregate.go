package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/domain"
)

const aggregateKeyPrefix = "review:rating:"

// AggregateCache implements repository.AggregateCache using Redis.
type AggregateCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewAggregateCache creates a new Redis-backed rating cache.
func NewAggregateCache(client redis.Cmdable, ttl time.Duration) *AggregateCache {
	return &AggregateCache{
		client: client,
		ttl:    ttl,
	}
}

// setIfNewer writes the rating unless the cached entry has a higher version.
// KEYS[1] rating key; ARGV[1] version; ARGV[2] payload; ARGV[3] ttl in ms.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'payload', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// Get returns the cached rating of a subject, or nil on a miss.
func (c *AggregateCache) Get(ctx context.Context, subjectID string) (*domain.AggregatedRating, error) {
	data, err := c.client.HGet(ctx, aggregateKeyPrefix+subjectID, "payload").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get rating: %w", err)
	}

	var agg domain.AggregatedRating
	if err := json.Unmarshal(data, &agg); err != nil {
		return nil, fmt.Errorf("unmarshal rating: %w", err)
	}
	return &agg, nil
}

// Set caches the rating with the configured TTL. An older version than the
// cached one is dropped, so a slow writer cannot replace a newer rating.
func (c *AggregateCache) Set(ctx context.Context, agg *domain.AggregatedRating) error {
	data, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("marshal rating: %w", err)
	}

	keys := []string{aggregateKeyPrefix + agg.SubjectID}
	if err := setIfNewer.Run(ctx, c.client, keys, agg.Version, data, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis set rating: %w", err)
	}
	return nil
}

// Delete evicts the cached rating of a subject.
func (c *AggregateCache) Delete(ctx context.Context, subjectID string) error {
	if err := c.client.Del(ctx, aggregateKeyPrefix+subjectID).Err(); err != nil {
		return fmt.Errorf("redis del rating: %w", err)
	}
	return nil
}
