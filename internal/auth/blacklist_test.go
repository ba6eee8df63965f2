package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisTokenBlacklist_Revoke(t *testing.T) {
	mr, client := setupRedis(t)
	b := NewRedisTokenBlacklist(client)
	ctx := context.Background()

	revoked, err := b.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, b.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = b.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists("token:blacklist:jti:jti-1"))

	mr.FastForward(2 * time.Minute)
	revoked, err = b.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenBlacklist_RevokeUser(t *testing.T) {
	_, client := setupRedis(t)
	b := NewRedisTokenBlacklist(client)
	ctx := context.Background()

	invalidatedAt := time.Date(2024, 12, 10, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return invalidatedAt }

	revoked, err := b.IsUserRevoked(ctx, "u1", invalidatedAt.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, revoked, "no invalidation recorded")

	require.NoError(t, b.RevokeUser(ctx, "u1", time.Hour))

	revoked, err = b.IsUserRevoked(ctx, "u1", invalidatedAt.Add(-time.Second))
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = b.IsUserRevoked(ctx, "u1", invalidatedAt)
	require.NoError(t, err)
	assert.False(t, revoked, "same second is still valid")

	revoked, err = b.IsUserRevoked(ctx, "u2", invalidatedAt.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenBlacklist_BadTimestamp(t *testing.T) {
	mr, client := setupRedis(t)
	b := NewRedisTokenBlacklist(client)

	require.NoError(t, mr.Set("token:blacklist:user:u1", "yesterday"))
	_, err := b.IsUserRevoked(context.Background(), "u1", time.Now())
	assert.Error(t, err)
}
