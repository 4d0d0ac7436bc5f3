package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisKV stores values directly in Redis with no expiry.
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKV creates a Redis-backed store. Keys are namespaced by prefix.
func NewRedisKV(rdb *redis.Client, prefix string) *RedisKV {
	return &RedisKV{rdb: rdb, prefix: prefix}
}

func (s *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisKV) Remove(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// CachedKV wraps a primary KV (PostgreSQL, S3) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary. A key whose
// invalidation failed is read from the primary until a later
// invalidation succeeds.
type CachedKV struct {
	primary KV
	rdb     *redis.Client
	ttl     time.Duration
	log     *zap.Logger

	mu    sync.Mutex
	stale map[string]struct{}
}

// NewCachedKV creates a cached wrapper around a primary store.
func NewCachedKV(primary KV, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedKV {
	return &CachedKV{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
		log:     log,
		stale:   make(map[string]struct{}),
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedKV) Set(ctx context.Context, key, value string) error {
	if err := s.primary.Set(ctx, key, value); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *CachedKV) Remove(ctx context.Context, key string) error {
	if err := s.primary.Remove(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedKV) Get(ctx context.Context, key string) (string, error) {
	if !s.isStale(key) {
		if v, err := s.rdb.Get(ctx, cacheKey(key)).Result(); err == nil {
			return v, nil
		}
	}

	// Cache miss, stale entry, or Redis unavailable: read from primary.
	v, err := s.primary.Get(ctx, key)
	if err != nil {
		return "", err
	}

	if s.isStale(key) {
		s.invalidate(ctx, key)
		if s.isStale(key) {
			return v, nil
		}
	}
	if err := s.rdb.Set(ctx, cacheKey(key), v, s.ttl).Err(); err != nil {
		s.log.Warn("cache fill failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

func (s *CachedKV) invalidate(ctx context.Context, key string) {
	err := s.rdb.Del(ctx, cacheKey(key)).Err()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.stale[key] = struct{}{}
		s.log.Error("cache invalidation failed, reading from primary",
			zap.String("key", key), zap.Error(err))
		return
	}
	delete(s.stale, key)
}

func (s *CachedKV) isStale(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stale[key]
	return ok
}

func cacheKey(key string) string { return fmt.Sprintf("cache:%s", key) }
