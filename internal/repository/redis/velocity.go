package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const velocityKeyPrefix = "review:velocity:"

// VelocityCounter implements repository.VelocityCounter with a sorted set
// per reviewer, scored by submission time. Counts cover a trailing window
// and are shared by every service instance.
type VelocityCounter struct {
	client redis.Cmdable
	window time.Duration
	now    func() time.Time
}

// NewVelocityCounter creates a counter over the given trailing window.
func NewVelocityCounter(client redis.Cmdable, window time.Duration) *VelocityCounter {
	return &VelocityCounter{client: client, window: window, now: time.Now}
}

// Increment records a submission and returns the number of submissions in
// the window, this one included.
func (c *VelocityCounter) Increment(ctx context.Context, reviewerID string) (int, error) {
	key := velocityKeyPrefix + reviewerID
	now := c.now()
	cutoff := now.Add(-c.window).UnixMilli()

	var card *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, c.window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis count submissions: %w", err)
	}
	return int(card.Val()), nil
}
