package worldmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/wastelandblues/atlas/internal/platform/constants"
)

// MapCache is the read-through cache contract for the published map feed.
//
// The cache is entirely optional: the service treats a nil MapCache as
// "always miss", so deployments without Redis keep working.
type MapCache interface {
	// GetPublished returns the cached feed, or (nil, nil) on a miss.
	GetPublished(ctx context.Context) (*MapData, error)
	SetPublished(ctx context.Context, data *MapData) error
	// Invalidate drops the cached feed. Called on every change to
	// publish-visible state.
	Invalidate(ctx context.Context) error
}

// RedisMapCache implements MapCache on a single Redis key with a short TTL.
// The TTL is a backstop only; explicit invalidation is the primary mechanism.
type RedisMapCache struct {
	client *redis.Client
}

func NewRedisMapCache(client *redis.Client) *RedisMapCache {
	return &RedisMapCache{client: client}
}

func (cache *RedisMapCache) GetPublished(ctx context.Context) (*MapData, error) {
	raw, err := cache.client.Get(ctx, constants.CacheKeyPublishedMap).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("map_cache_get_failed: %w", err)
	}

	data := &MapData{}
	if err := json.Unmarshal(raw, data); err != nil {
		// A corrupt entry behaves like a miss; the next Set overwrites it.
		return nil, nil
	}
	return data, nil
}

func (cache *RedisMapCache) SetPublished(ctx context.Context, data *MapData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("map_cache_marshal_failed: %w", err)
	}

	if err := cache.client.Set(ctx, constants.CacheKeyPublishedMap, raw, constants.PublishedMapCacheTTL).Err(); err != nil {
		return fmt.Errorf("map_cache_set_failed: %w", err)
	}
	return nil
}

func (cache *RedisMapCache) Invalidate(ctx context.Context) error {
	if err := cache.client.Del(ctx, constants.CacheKeyPublishedMap).Err(); err != nil {
		return fmt.Errorf("map_cache_invalidate_failed: %w", err)
	}
	return nil
}
