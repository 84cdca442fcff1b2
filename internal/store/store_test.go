package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vakit-notify/internal/models"
)

func TestTimesKey(t *testing.T) {
	day := models.Date{Year: 2024, Month: time.March, Day: 5}
	assert.Equal(t, "prayer:times:istanbul:2024-03-05", timesKey("istanbul", day))
}

// newRedisStore connects to REDIS_TEST_ADDR; the Redis tests are skipped
// without it.
func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	s := NewRedisStore(&redis.Options{Addr: addr})
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Ping(context.Background()))
	return s
}

func TestRedisStore_ClaimDispatch(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	ok, err := s.ClaimDispatch(ctx, key, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ClaimDispatch(ctx, key, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Eventually(t, func() bool {
		ok, err := s.ClaimDispatch(ctx, key, time.Second)
		return err == nil && ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestRedisStore_Times(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	key := "test-" + uuid.NewString()
	day := models.Date{Year: 2024, Month: time.January, Day: 10}

	_, ok, err := s.GetTimes(ctx, key, day)
	require.NoError(t, err)
	assert.False(t, ok)

	times := []models.PrayerTime{{Vakit: "İmsak", Saat: "06:00"}}
	require.NoError(t, s.PutTimes(ctx, key, day, times))

	got, ok, err := s.GetTimes(ctx, key, day)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, times, got)

	_, ok, err = s.GetTimes(ctx, key, day.AddDays(1))
	require.NoError(t, err)
	assert.False(t, ok)
}
