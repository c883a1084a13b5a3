package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *Redis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewFromClient(client, ttl)

	t.Cleanup(func() {
		_ = c.Close()
	})

	return mr, c
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session:abc", SessionKey("abc"))
	assert.Equal(t, "messages:abc", MessagesKey("abc"))
}

func TestHashRoundTrip(t *testing.T) {
	_, c := setupCache(t, time.Hour)
	ctx := context.Background()

	err := c.SetHash(ctx, "session:s1", map[string]any{
		"id":           "s1",
		"messageCount": 0,
	})
	require.NoError(t, err)

	fields, err := c.GetHash(ctx, "session:s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", fields["id"])
	assert.Equal(t, "0", fields["messageCount"])

	ok, err := c.Exists(ctx, "session:s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetHash_Missing(t *testing.T) {
	_, c := setupCache(t, time.Hour)

	fields, err := c.GetHash(context.Background(), "session:nope")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestIncrHashField(t *testing.T) {
	_, c := setupCache(t, time.Hour)
	ctx := context.Background()

	n, err := c.IncrHashField(ctx, "session:s1", "messageCount", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.IncrHashField(ctx, "session:s1", "messageCount", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRangeOldestFirst_ReversesListOrder(t *testing.T) {
	_, c := setupCache(t, time.Hour)
	ctx := context.Background()

	for _, v := range []string{"first", "second", "third"} {
		require.NoError(t, c.PushFront(ctx, "messages:s1", v))
	}

	vals, err := c.RangeOldestFirst(ctx, "messages:s1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, vals)
}

func TestRangeOldestFirst_LimitKeepsNewest(t *testing.T) {
	_, c := setupCache(t, time.Hour)
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.PushFront(ctx, "messages:s1", v))
	}

	// Limit 2 takes the two most recent entries, returned oldest first.
	vals, err := c.RangeOldestFirst(ctx, "messages:s1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, vals)
}

func TestTTLExpiry(t *testing.T) {
	mr, c := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.PushFront(ctx, "messages:s1", "hello"))
	require.NoError(t, c.SetHash(ctx, "session:s1", map[string]any{"id": "s1"}))

	mr.FastForward(2 * time.Minute)

	vals, err := c.RangeOldestFirst(ctx, "messages:s1", 10)
	require.NoError(t, err)
	assert.Empty(t, vals)

	ok, err := c.Exists(ctx, "session:s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpireRefreshesTTL(t *testing.T) {
	mr, c := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.PushFront(ctx, "messages:s1", "hello"))

	mr.FastForward(45 * time.Second)
	require.NoError(t, c.Expire(ctx, "messages:s1"))
	mr.FastForward(45 * time.Second)

	// Refreshed at t=45s, so still alive at t=90s.
	vals, err := c.RangeOldestFirst(ctx, "messages:s1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, vals)
}

func TestDelete(t *testing.T) {
	_, c := setupCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.SetHash(ctx, "session:s1", map[string]any{"id": "s1"}))
	require.NoError(t, c.PushFront(ctx, "messages:s1", "hello"))

	require.NoError(t, c.Delete(ctx, "session:s1", "messages:s1"))

	ok, err := c.Exists(ctx, "session:s1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting missing keys is not an error.
	require.NoError(t, c.Delete(ctx, "session:s1"))
	require.NoError(t, c.Delete(ctx))
}
