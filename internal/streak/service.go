package streak

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vakit-notify/internal/metrics"
	"vakit-notify/internal/models"
	"vakit-notify/internal/store"
)

// Service applies Advance to persisted state. Activities for the same user
// are serialised in-process; the store transaction covers the rest.
type Service struct {
	store store.StreakStore
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger

	locks sync.Map // user id -> *sync.Mutex
}

func NewService(st store.StreakStore, loc *time.Location, log zerolog.Logger) *Service {
	return &Service{store: st, loc: loc, now: time.Now, log: log}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Today returns the current civil date in the service's time zone.
func (s *Service) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// RecordActivity advances the user's streak for today and returns the new
// state. Repeated calls on the same day return the stored state unchanged.
func (s *Service) RecordActivity(ctx context.Context, userID string) (models.StreakState, error) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	today := s.Today()
	var before models.StreakState
	next, err := s.store.UpdateStreak(ctx, userID, func(cur models.StreakState) models.StreakState {
		before = cur
		return Advance(cur, today)
	})
	if err != nil {
		return models.StreakState{}, err
	}

	if next.LastActivity != before.LastActivity {
		metrics.StreakUpdates.WithLabelValues(transition(before, next)).Inc()
		s.log.Debug().
			Str("user", userID).
			Int("streak", next.Streak).
			Int("freezes", next.Freezes).
			Int("coins", next.Coins).
			Msg("streak advanced")
	}
	return next, nil
}

func (s *Service) State(ctx context.Context, userID string) (models.StreakState, error) {
	return s.store.GetStreak(ctx, userID)
}

func transition(before, after models.StreakState) string {
	switch {
	case before.LastActivity.IsZero():
		return "first"
	case after.Freezes < before.Freezes:
		return "freeze_used"
	case after.Streak == 1:
		return "reset"
	default:
		return "continued"
	}
}
