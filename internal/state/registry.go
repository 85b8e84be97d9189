package state

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const registryTTL = 24 * time.Hour

// LocationRegistry records the locations emitted by one run in a redis set.
// The first claim of a location wins. The set expires on its own if the
// process dies before Release.
type LocationRegistry struct {
	redisClient *redis.Client
	key         string
}

func NewLocationRegistry(redisClient *redis.Client, keyPrefix, runID string) *LocationRegistry {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &LocationRegistry{
		redisClient: redisClient,
		key:         keyPrefix + "locs:" + runID,
	}
}

// Claim adds locs to the set in one round trip. The result reports, per
// location, whether this call was the first to claim it. A location repeated
// within locs is claimed by its first occurrence only.
func (r *LocationRegistry) Claim(ctx context.Context, locs []string) ([]bool, error) {
	if len(locs) == 0 {
		return nil, nil
	}

	pipe := r.redisClient.Pipeline()
	cmds := make([]*redis.IntCmd, len(locs))
	for i, loc := range locs {
		cmds[i] = pipe.SAdd(ctx, r.key, loc)
	}
	pipe.Expire(ctx, r.key, registryTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to claim %d locations: %w", len(locs), err)
	}

	claimed := make([]bool, len(locs))
	for i, cmd := range cmds {
		claimed[i] = cmd.Val() == 1
	}
	return claimed, nil
}

func (r *LocationRegistry) Release(ctx context.Context) error {
	if err := r.redisClient.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to release %s: %w", r.key, err)
	}
	return nil
}
