package requirements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const versionKeyPrefix = "suggestions:version:"

// Cache wraps Redis based caching for suggestion reads with per-project
// version keys. Bumping a project's version orphans every cached value built
// against the previous version; orphans expire via TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client degrades to a
// pass-through that always calls the loader.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version for a project, initialising
// when missing.
func (c *Cache) Version(ctx context.Context, projectID int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := fmt.Sprintf("%s%d", versionKeyPrefix, projectID)
	ver, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// SuggestionKey composes the versioned cache key for a project's suggested
// amount.
func (c *Cache) SuggestionKey(ctx context.Context, projectID int64) (string, error) {
	ver, err := c.Version(ctx, projectID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("suggestions:amount:%d:%d", projectID, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates a project's cached suggestions by incrementing its
// version.
func (c *Cache) Bump(ctx context.Context, projectID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, fmt.Sprintf("%s%d", versionKeyPrefix, projectID)).Err()
}
