package dynamic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

// DefaultCacheTTL bounds how long a refreshed category is served from cache.
const DefaultCacheTTL = 30 * time.Minute

// Cache holds the latest fetched copy of each category.
type Cache interface {
	Get(ctx context.Context, category string) (knowledge.Value, bool, error)
	Set(ctx context.Context, category string, v knowledge.Value) error
}

// RedisCache stores categories as JSON strings with a TTL.
type RedisCache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisCache(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisCache {
	if client == nil {
		panic("dynamic: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("novatech.internal.dynamic.cache")
	}
	return &RedisCache{redis: client, ttl: ttl, tracer: tracer}
}

func (c *RedisCache) Get(ctx context.Context, category string) (knowledge.Value, bool, error) {
	ctx, span := c.tracer.Start(ctx, "dynamic.cache_get")
	defer span.End()

	data, err := c.redis.Get(ctx, cacheKey(category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return knowledge.Null(), false, nil
	}
	if err != nil {
		span.RecordError(err)
		return knowledge.Null(), false, fmt.Errorf("dynamic: failed to read cache: %w", err)
	}
	var v knowledge.Value
	if err := json.Unmarshal(data, &v); err != nil {
		span.RecordError(err)
		return knowledge.Null(), false, fmt.Errorf("dynamic: failed to decode cached %s: %w", category, err)
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, category string, v knowledge.Value) error {
	ctx, span := c.tracer.Start(ctx, "dynamic.cache_set")
	defer span.End()

	data, err := json.Marshal(v)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("dynamic: failed to encode %s: %w", category, err)
	}
	if err := c.redis.Set(ctx, cacheKey(category), data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("dynamic: failed to write cache: %w", err)
	}
	return nil
}

func cacheKey(category string) string {
	return fmt.Sprintf("novatech:dynamic:%s", category)
}

// MemoryCache is the in-process Cache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   knowledge.Value
	expires time.Time
}

func NewMemoryCache(ttl time.Duration, now func() time.Time) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{ttl: ttl, now: now, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, category string) (knowledge.Value, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[category]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return knowledge.Null(), false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, category string, v knowledge.Value) error {
	c.mu.Lock()
	c.entries[category] = memoryEntry{value: v, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}
