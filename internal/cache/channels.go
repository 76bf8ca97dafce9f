// Package cache holds small hot lookups in Redis. Currently that is the
// channel→org mapping, which the search org re-filter consults once per
// result — a cache hit saves a Postgres round trip per hit.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelOrgKeyPrefix = "workstream:channel_org:"

	// Channels never move between orgs, so the TTL is about bounding
	// memory, not staleness.
	channelOrgTTL = 15 * time.Minute
)

type ChannelOrgCache struct {
	client *redis.Client
}

func NewChannelOrgCache(redisURL string) (*ChannelOrgCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &ChannelOrgCache{client: redis.NewClient(opts)}, nil
}

func (c *ChannelOrgCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ChannelOrgCache) Close() error {
	return c.client.Close()
}

// GetOrg returns the cached org for a channel. The second return is
// false on a miss; errors are returned only for real Redis failures.
func (c *ChannelOrgCache) GetOrg(ctx context.Context, channelID uuid.UUID) (uuid.UUID, bool, error) {
	val, err := c.client.Get(ctx, channelOrgKeyPrefix+channelID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("cache get: %w", err)
	}

	orgID, err := uuid.Parse(val)
	if err != nil {
		// A corrupt entry behaves like a miss; the caller refreshes it.
		return uuid.Nil, false, nil
	}
	return orgID, true, nil
}

func (c *ChannelOrgCache) SetOrg(ctx context.Context, channelID, orgID uuid.UUID) error {
	err := c.client.Set(ctx, channelOrgKeyPrefix+channelID.String(), orgID.String(), channelOrgTTL).Err()
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
