package streak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vakit-notify/internal/models"
)

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func baseState(t *testing.T, freezes int) models.StreakState {
	return models.StreakState{
		Streak:       5,
		LastActivity: date(t, "2024-01-10"),
		Freezes:      freezes,
		Coins:        100,
		History:      []models.Date{date(t, "2024-01-10")},
	}
}

func TestAdvance_Scenarios(t *testing.T) {
	cases := []struct {
		name        string
		freezes     int
		today       string
		wantStreak  int
		wantFreezes int
		wantCoins   int
	}{
		{"A consecutive day", 1, "2024-01-11", 6, 1, 110},
		{"B one day missed with freeze", 1, "2024-01-12", 6, 0, 110},
		{"C one day missed without freeze", 0, "2024-01-12", 6, 0, 110},
		{"D several days missed", 1, "2024-01-20", 1, 1, 110},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			today := date(t, tc.today)
			got := Advance(baseState(t, tc.freezes), today)

			assert.Equal(t, tc.wantStreak, got.Streak)
			assert.Equal(t, tc.wantFreezes, got.Freezes)
			assert.Equal(t, tc.wantCoins, got.Coins)
			assert.Equal(t, today, got.LastActivity)
			assert.Equal(t, []models.Date{date(t, "2024-01-10"), today}, got.History)
		})
	}
}

func TestAdvance_FirstActivity(t *testing.T) {
	today := date(t, "2024-03-01")
	got := Advance(models.StreakState{Freezes: 2}, today)

	assert.Equal(t, models.StreakState{
		Streak:       1,
		LastActivity: today,
		Freezes:      2,
		Coins:        10,
		History:      []models.Date{today},
	}, got)
}

func TestAdvance_SameDayIsIdempotent(t *testing.T) {
	today := date(t, "2024-01-11")
	once := Advance(baseState(t, 1), today)
	twice := Advance(once, today)

	assert.Equal(t, once, twice)
}

func TestAdvance_FutureLastActivityIsNoop(t *testing.T) {
	st := baseState(t, 1)
	assert.Equal(t, st, Advance(st, date(t, "2024-01-09")))
}

func TestAdvance_DoesNotAliasHistory(t *testing.T) {
	st := baseState(t, 0)
	st.History = make([]models.Date, 1, 8)
	st.History[0] = date(t, "2024-01-10")

	a := Advance(st, date(t, "2024-01-11"))
	b := Advance(st, date(t, "2024-01-20"))

	assert.Equal(t, date(t, "2024-01-11"), a.History[1])
	assert.Equal(t, date(t, "2024-01-20"), b.History[1])
	assert.Len(t, st.History, 1)
}

func TestAdvance_MonthAndYearBoundaries(t *testing.T) {
	st := models.StreakState{Streak: 3, LastActivity: date(t, "2023-12-31"), Coins: 30}
	got := Advance(st, date(t, "2024-01-01"))
	assert.Equal(t, 4, got.Streak)

	st = models.StreakState{Streak: 3, LastActivity: date(t, "2024-02-28"), Freezes: 1, Coins: 30}
	got = Advance(st, date(t, "2024-03-01")) // leap year: one day missed
	assert.Equal(t, 4, got.Streak)
	assert.Equal(t, 0, got.Freezes)
}

func TestAdvance_NeverDecreasesCoinsOrAddsFreezes(t *testing.T) {
	st := baseState(t, 1)
	day := date(t, "2024-01-10")
	for i := 0; i < 60; i++ {
		day = day.AddDays(1 + i%4)
		next := Advance(st, day)
		assert.GreaterOrEqual(t, next.Coins, st.Coins)
		assert.LessOrEqual(t, next.Freezes, st.Freezes)
		assert.GreaterOrEqual(t, next.Streak, 1)
		st = next
	}
}
