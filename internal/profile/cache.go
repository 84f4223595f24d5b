package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
)

// cacheTTL bounds staleness of cached profiles; reaggregation refreshes the
// entry well before expiry in normal use.
const cacheTTL = time.Hour

// Cache stores serialized active profiles in Redis.
type Cache struct {
	client rueidis.Client
}

// NewCache creates a profile cache on the given Redis client.
func NewCache(client rueidis.Client) *Cache {
	return &Cache{client: client}
}

func cacheKey(userID string) string {
	return "profile:" + userID
}

// Get returns the cached profile, or nil when absent.
func (c *Cache) Get(ctx context.Context, userID string) (*types.StyleProfile, error) {
	resp := c.client.Do(ctx, c.client.B().Get().Key(cacheKey(userID)).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read cached profile: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached profile: %w", err)
	}

	var profile types.StyleProfile
	if err := sonic.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}

	return &profile, nil
}

// Set stores the profile with the cache TTL.
func (c *Cache) Set(ctx context.Context, profile *types.StyleProfile) error {
	data, err := sonic.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	err = c.client.Do(ctx, c.client.B().Set().
		Key(cacheKey(profile.UserID)).
		Value(rueidis.BinaryString(data)).
		Ex(cacheTTL).
		Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache profile: %w", err)
	}

	return nil
}

// Delete drops the cached profile.
func (c *Cache) Delete(ctx context.Context, userID string) error {
	err := c.client.Do(ctx, c.client.B().Del().Key(cacheKey(userID)).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to delete cached profile: %w", err)
	}

	return nil
}
