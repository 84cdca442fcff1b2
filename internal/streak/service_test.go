package streak

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vakit-notify/internal/models"
	"vakit-notify/internal/store"
)

func newTestService(t *testing.T, now *time.Time) (*Service, *store.SQLStore) {
	t.Helper()
	st, err := store.OpenSQL(store.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.RunMigrations(context.Background()))

	ist, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	svc := NewService(st, ist, zerolog.Nop())
	svc.now = func() time.Time { return *now }
	return svc, st
}

func TestService_RecordActivity(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, &now)
	ctx := context.Background()

	st, err := svc.RecordActivity(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Streak)
	assert.Equal(t, 10, st.Coins)

	st, err = svc.RecordActivity(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Streak, "same day is a no-op")
	assert.Equal(t, 10, st.Coins)

	now = now.Add(24 * time.Hour)
	st, err = svc.RecordActivity(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Streak)
	assert.Equal(t, 20, st.Coins)

	stored, err := svc.State(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, st, stored)
	assert.Len(t, stored.History, 2)
}

func TestService_TodayUsesConfiguredZone(t *testing.T) {
	// 22:30 UTC on Jan 10 is already Jan 11 in Istanbul.
	now := time.Date(2024, 1, 10, 22, 30, 0, 0, time.UTC)
	svc, _ := newTestService(t, &now)

	assert.Equal(t, models.Date{Year: 2024, Month: time.January, Day: 11}, svc.Today())
}

func TestService_ConsumesFreeze(t *testing.T) {
	now := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	svc, st := newTestService(t, &now)
	ctx := context.Background()

	last := models.Date{Year: 2024, Month: time.January, Day: 10}
	_, err := st.UpdateStreak(ctx, "u1", func(models.StreakState) models.StreakState {
		return models.StreakState{Streak: 5, LastActivity: last, Freezes: 1, Coins: 100, History: []models.Date{last}}
	})
	require.NoError(t, err)

	got, err := svc.RecordActivity(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, got.Streak)
	assert.Equal(t, 0, got.Freezes)
	assert.Equal(t, 110, got.Coins)
}

func TestService_ConcurrentSameUserCountsOnce(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, &now)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordActivity(ctx, "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := svc.State(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Streak)
	assert.Equal(t, 10, st.Coins)
}
