package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vakit-notify/internal/models"
)

var ErrNotFound = errors.New("not found")

// SubscriptionRegistry maps users to their push endpoints. Endpoints are
// unique across all users.
type SubscriptionRegistry interface {
	UpsertSubscription(ctx context.Context, userID, endpoint, p256dh, auth string) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]models.PushSubscription, error)
}

// NotificationStore is the append-only inbox log.
type NotificationStore interface {
	AppendNotification(ctx context.Context, rec models.NotificationRecord) (models.NotificationRecord, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
}

type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error
	ListOptedInProfiles(ctx context.Context) ([]models.Profile, error)
}

type StreakStore interface {
	GetStreak(ctx context.Context, userID string) (models.StreakState, error)
	// UpdateStreak loads the user's state, applies fn and persists the
	// result in one transaction.
	UpdateStreak(ctx context.Context, userID string, fn func(models.StreakState) models.StreakState) (models.StreakState, error)
}

// DispatchClaimer records that a reminder has fired. ClaimDispatch returns
// false when key is already held and not yet expired.
type DispatchClaimer interface {
	ClaimDispatch(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisStore holds short-lived dispatch state: dedupe claims and the per-day
// prayer time cache.
type RedisStore struct {
	client *redis.Client

	// TimesTTL bounds how long a day's schedule stays cached.
	TimesTTL time.Duration
}

func NewRedisStore(opts *redis.Options) *RedisStore {
	rdb := redis.NewClient(opts)
	return &RedisStore{client: rdb, TimesTTL: 6 * time.Hour}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) ClaimDispatch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, "dispatch:claim:"+key, 1, ttl).Result()
}

func timesKey(key string, day models.Date) string {
	return fmt.Sprintf("prayer:times:%s:%s", key, day)
}

func (s *RedisStore) GetTimes(ctx context.Context, key string, day models.Date) ([]models.PrayerTime, bool, error) {
	val, err := s.client.Get(ctx, timesKey(key, day)).Result()
	if err == redis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	var times []models.PrayerTime
	if err := json.Unmarshal([]byte(val), &times); err != nil {
		return nil, false, err
	}
	return times, true, nil
}

func (s *RedisStore) PutTimes(ctx context.Context, key string, day models.Date, times []models.PrayerTime) error {
	data, err := json.Marshal(times)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, timesKey(key, day), data, s.TimesTTL).Err()
}
