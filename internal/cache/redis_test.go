package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()

	addr := os.Getenv("APP_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r, err := New(ctx, Config{Addr: addr})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedis_Allow(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	userID := uuid.NewString()

	for i := 0; i < 3; i++ {
		allowed, err := r.Allow(ctx, userID, "messages", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "hit %d should be allowed", i+1)
	}

	allowed, err := r.Allow(ctx, userID, "messages", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = r.Allow(ctx, userID, "checkin", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "limits are tracked per action")
}

func TestRedis_AllowWindowExpires(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	userID := uuid.NewString()

	allowed, err := r.Allow(ctx, userID, "checkin", 1, 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = r.Allow(ctx, userID, "checkin", 1, 200*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(400 * time.Millisecond)

	allowed, err = r.Allow(ctx, userID, "checkin", 1, 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedis_Revoke(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	tokenID := uuid.NewString()

	revoked, err := r.IsRevoked(ctx, tokenID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, tokenID, time.Minute))

	revoked, err = r.IsRevoked(ctx, tokenID)
	require.NoError(t, err)
	assert.True(t, revoked)
}
