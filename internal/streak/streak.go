// Package streak tracks daily engagement: the consecutive-day streak, freeze
// credits that bridge a single missed day, and the coin reward.
package streak

import "vakit-notify/internal/models"

// DailyReward is the coin amount granted for each counted day.
const DailyReward = 10

// Advance returns the state after a qualifying activity on today. It is pure
// and idempotent for a given today.
func Advance(st models.StreakState, today models.Date) models.StreakState {
	last := st.LastActivity
	if last == today {
		return st
	}
	// Activity recorded "in the future" (clock skew between callers).
	if !last.IsZero() && today.Before(last) {
		return st
	}

	next := st
	next.History = append(make([]models.Date, 0, len(st.History)+1), st.History...)

	switch {
	case last.IsZero():
		next.Streak = 1
	case today.DaysSince(last) == 1:
		next.Streak = st.Streak + 1
	case today.DaysSince(last) == 2:
		// One missed day. A freeze absorbs it when available; without one
		// the streak still continues.
		next.Streak = st.Streak + 1
		if st.Freezes > 0 {
			next.Freezes = st.Freezes - 1
		}
	default:
		next.Streak = 1
	}

	next.Coins = st.Coins + DailyReward
	next.LastActivity = today
	next.History = append(next.History, today)
	return next
}
