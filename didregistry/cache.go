package didregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fiware/agent-trust-registry/config"
	"github.com/fiware/agent-trust-registry/model"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "did:resolution:"

type Resolver interface {
	ResolveDID(ctx context.Context, did string) (model.DIDResolution, error)
}

type Cache interface {
	// Get returns false if the key is not cached.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to the configured redis. The caller decides whether to run without cache on error.
func NewRedisCache(ctx context.Context, cacheConfig config.CacheConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cacheConfig.Addr,
		Password:     cacheConfig.Password,
		DB:           cacheConfig.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", cacheConfig.Addr, err)
	}
	logger.Infof("Connected to redis at %s for did resolution caching.", cacheConfig.Addr)
	return &RedisCache{rdb: rdb}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

/**
* Resolver that keeps resolved did documents for the configured ttl. Cache failures never fail a resolution,
* they only lead to asking the registry.
 */
type CachingResolver struct {
	resolver Resolver
	cache    Cache
	ttl      time.Duration
}

func NewCachingResolver(resolver Resolver, cache Cache, ttl time.Duration) *CachingResolver {
	return &CachingResolver{resolver: resolver, cache: cache, ttl: ttl}
}

func (cr *CachingResolver) ResolveDID(ctx context.Context, did string) (resolution model.DIDResolution, err error) {
	key := cacheKeyPrefix + did
	cached, found, err := cr.cache.Get(ctx, key)
	if err != nil {
		logger.Warnf("Was not able to read %s from the cache. Err: %v", did, err)
	} else if found {
		if err = json.Unmarshal(cached, &resolution); err == nil {
			logger.Debugf("Resolved %s from cache.", did)
			return resolution, nil
		}
		logger.Warnf("Cached resolution of %s is invalid. Err: %v", did, err)
	}

	resolution, err = cr.resolver.ResolveDID(ctx, did)
	if err != nil {
		return resolution, err
	}
	encoded, err := json.Marshal(resolution)
	if err != nil {
		logger.Warnf("Was not able to encode the resolution of %s. Err: %v", did, err)
		return resolution, nil
	}
	if err = cr.cache.Set(ctx, key, encoded, cr.ttl); err != nil {
		logger.Warnf("Was not able to cache the resolution of %s. Err: %v", did, err)
	}
	return resolution, nil
}
