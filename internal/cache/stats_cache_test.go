package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navojoa/electoral-map/internal/models"
)

func TestNilCacheAlwaysMisses(t *testing.T) {
	c := NewStatsCache(Open("", "", 0), time.Minute)
	require.Nil(t, c)

	ctx := context.Background()
	assert.NoError(t, c.Set(ctx, 1, []models.SectionStats{{Section: "1203"}}))
	stats, ok, err := c.Get(ctx, 1)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, stats)
	assert.NoError(t, c.Ping(ctx))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "electoral-map:section-stats:42", Key(42))
}

func TestUnreachableRedisReportsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewStatsCache(client, time.Minute)

	_, ok, err := c.Get(context.Background(), 7)
	assert.Error(t, err)
	assert.False(t, ok)
}

func newMiniCache(t *testing.T, ttl time.Duration) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Open(mr.Addr(), "", 0)
	t.Cleanup(func() { client.Close() })
	return NewStatsCache(client, ttl), mr
}

func TestStatsCacheRoundTrip(t *testing.T) {
	c, mr := newMiniCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []models.SectionStats{{Section: "1203", Lideres: 1, Brigadistas: 2, Total: 3, PrincipalNeighborhood: "Centro"}}
	require.NoError(t, c.Set(ctx, 3, want))
	assert.True(t, mr.Exists(Key(3)))
	assert.Equal(t, time.Minute, mr.TTL(Key(3)))

	got, ok, err := c.Get(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = c.Get(ctx, 4)
	require.NoError(t, err)
	assert.False(t, ok, "another revision must miss")
}

func TestStatsCacheEntriesExpire(t *testing.T) {
	c, mr := newMiniCache(t, 30*time.Second)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, 1, []models.SectionStats{{Section: "9", Total: 1}}))

	mr.FastForward(29 * time.Second)
	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatsCacheCorruptEntryReportsError(t *testing.T) {
	c, mr := newMiniCache(t, time.Minute)
	require.NoError(t, mr.Set(Key(5), "{not json"))

	_, ok, err := c.Get(context.Background(), 5)
	assert.Error(t, err)
	assert.False(t, ok)
}
