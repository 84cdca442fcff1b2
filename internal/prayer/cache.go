package prayer

import (
	"context"

	"github.com/rs/zerolog"

	"vakit-notify/internal/models"
)

// TimesCache stores a locality's schedule for one civil day.
type TimesCache interface {
	GetTimes(ctx context.Context, key string, day models.Date) ([]models.PrayerTime, bool, error)
	PutTimes(ctx context.Context, key string, day models.Date, times []models.PrayerTime) error
}

// CachedSource serves times from a cache, falling back to the upstream
// source on a miss. Cache errors are logged and never fail a lookup.
type CachedSource struct {
	Upstream TimeSource
	Cache    TimesCache
	Log      zerolog.Logger
}

func (s *CachedSource) Times(ctx context.Context, loc Locality, day models.Date) ([]models.PrayerTime, error) {
	times, ok, err := s.Cache.GetTimes(ctx, loc.Key, day)
	if err != nil {
		s.Log.Warn().Err(err).Str("city", loc.Key).Msg("prayer time cache read failed")
	}
	if ok && Validate(times) == nil {
		return times, nil
	}

	times, err = s.Upstream.Times(ctx, loc, day)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.PutTimes(ctx, loc.Key, day, times); err != nil {
		s.Log.Warn().Err(err).Str("city", loc.Key).Msg("prayer time cache write failed")
	}
	return times, nil
}
