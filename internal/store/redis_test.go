// AngelaMos | 2026
// redis_test.go

package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/bloodlink/internal/core"
	"github.com/carterperez-dev/bloodlink/internal/model"
)

func setupRedisSessions(t *testing.T) (*miniredis.Miniredis, *RedisSessions) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisSessions(client)
}

func TestRedisSessionsRoundTrip(t *testing.T) {
	mr, rs := setupRedisSessions(t)
	ctx := context.Background()

	now := time.Now()
	sess := &model.Session{
		ID:        "sess-1",
		UserID:    "hospital1",
		Role:      model.RoleHospital,
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
	require.NoError(t, rs.PutSession(ctx, sess))

	key := core.RedisKey("session", "sess-1")
	assert.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	assert.Greater(t, ttl, 29*time.Minute)
	assert.LessOrEqual(t, ttl, 30*time.Minute)

	got, err := rs.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "hospital1", got.UserID)
	assert.Equal(t, model.RoleHospital, got.Role)

	require.NoError(t, rs.DeleteSession(ctx, "sess-1"))
	_, err = rs.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRedisSessionsExpire(t *testing.T) {
	mr, rs := setupRedisSessions(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, rs.PutSession(ctx, &model.Session{
		ID:        "sess-2",
		UserID:    "donor1",
		Role:      model.RoleDonor,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}))

	mr.FastForward(2 * time.Minute)

	_, err := rs.GetSession(ctx, "sess-2")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRedisSessionsSkipAlreadyExpired(t *testing.T) {
	mr, rs := setupRedisSessions(t)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, rs.PutSession(context.Background(), &model.Session{
		ID:        "stale",
		ExpiresAt: past,
	}))

	assert.False(t, mr.Exists(core.RedisKey("session", "stale")))
}
