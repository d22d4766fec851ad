package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-printshop/internal/pricing"
)

const cacheKeyPrefix = "broker:profile:"

// cachedProfile records a lookup result, including the absence of a profile.
type cachedProfile struct {
	Found   bool                   `json:"found"`
	Profile *pricing.BrokerProfile `json:"profile,omitempty"`
}

// Cache stores resolved broker profiles in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client or non-positive ttl disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get returns the cached lookup for userID. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context, userID string) (cachedProfile, bool, error) {
	if !c.enabled() || userID == "" {
		return cachedProfile{}, false, nil
	}
	data, err := c.client.Get(ctx, cacheKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cachedProfile{}, false, nil
		}
		return cachedProfile{}, false, err
	}
	var entry cachedProfile
	if err := json.Unmarshal(data, &entry); err != nil {
		return cachedProfile{}, false, err
	}
	return entry, true, nil
}

// Set stores the lookup result for userID with the configured TTL.
func (c *Cache) Set(ctx context.Context, userID string, profile *pricing.BrokerProfile) error {
	if !c.enabled() || userID == "" {
		return nil
	}
	data, err := json.Marshal(cachedProfile{Found: profile != nil, Profile: profile})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyPrefix+userID, data, c.ttl).Err()
}

// Invalidate drops any cached entry for userID.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	if !c.enabled() || userID == "" {
		return nil
	}
	return c.client.Del(ctx, cacheKeyPrefix+userID).Err()
}
