package dynamic

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

func sampleNews() knowledge.Value {
	return knowledge.Map(
		knowledge.F("updated_at", knowledge.String("2025-03-14T12:00:00Z")),
		knowledge.F("articles", knowledge.List(knowledge.Map(knowledge.F("title", knowledge.String("NovaTech ships NovaCRM 5"))))),
	)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Minute, nil)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, CategoryNews)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, CategoryNews, sampleNews()))
	assert.True(t, mr.Exists("novatech:dynamic:news"))
	assert.Equal(t, time.Minute, mr.TTL("novatech:dynamic:news"))

	got, ok, err := cache.Get(ctx, CategoryNews)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleNews().Compact(3), got.Compact(3))

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, CategoryNews)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	require.NoError(t, mr.Set("novatech:dynamic:news", "{not json"))
	cache := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0, nil)

	_, ok, err := cache.Get(context.Background(), CategoryNews)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(time.Minute, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, CategoryMarket, sampleNews()))
	_, ok, _ := cache.Get(ctx, CategoryMarket)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = cache.Get(ctx, CategoryMarket)
	assert.False(t, ok)
}
