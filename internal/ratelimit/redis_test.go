package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client := setupRedis(t)
	limiter := NewRedisLimiter(client)
	defer limiter.Close()

	base := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
	now := base
	limiter.now = func() time.Time { return now }
	ctx := context.Background()
	rule := PerHour(3)

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "ip:203.0.113.7", rule)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	d, err := limiter.Allow(ctx, "ip:203.0.113.7", rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Hour, d.RetryAfter)

	count, err := client.ZCard(ctx, redisKeyPrefix+"ip:203.0.113.7").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count, "rejections are not recorded")

	ttl, err := client.PTTL(ctx, redisKeyPrefix+"ip:203.0.113.7").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// Still inside the trailing hour.
	now = base.Add(59 * time.Minute)
	d, err = limiter.Allow(ctx, "ip:203.0.113.7", rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)

	now = base.Add(time.Hour)
	d, err = limiter.Allow(ctx, "ip:203.0.113.7", rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	require.NoError(t, limiter.Ping(ctx))
}

func TestRedisLimiter_StraddlingHourBoundary(t *testing.T) {
	client := setupRedis(t)
	limiter := NewRedisLimiter(client)
	defer limiter.Close()

	now := time.Date(2026, 3, 1, 12, 59, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()
	rule := PerHour(3)

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "ip:198.51.100.4", rule)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	// A clock-hour rollover does not reset the budget.
	now = time.Date(2026, 3, 1, 13, 1, 0, 0, time.UTC)
	d, err := limiter.Allow(ctx, "ip:198.51.100.4", rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 58*time.Minute, d.RetryAfter)

	now = time.Date(2026, 3, 1, 13, 59, 0, 0, time.UTC)
	d, err = limiter.Allow(ctx, "ip:198.51.100.4", rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	limiter := NewRedisLimiter(client)
	defer limiter.Close()

	_, err := limiter.Allow(context.Background(), "k", PerHour(1))
	require.Error(t, err)
}
