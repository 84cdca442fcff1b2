package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vakit-notify/internal/config"
	"vakit-notify/internal/dispatch"
	"vakit-notify/internal/handlers"
	"vakit-notify/internal/logx"
	"vakit-notify/internal/metrics"
	"vakit-notify/internal/prayer"
	"vakit-notify/internal/push"
	"vakit-notify/internal/store"
	"vakit-notify/internal/streak"
)

// app is the fully wired service. Redis is optional: without it dispatch
// claims live in SQL and prayer times are fetched on every cycle.
type app struct {
	cfg config.Config
	log zerolog.Logger

	sql   *store.SQLStore
	redis *store.RedisStore

	sender   *push.Sender
	cycle    *dispatch.Cycle
	streaks  *streak.Service
	registry *prometheus.Registry
}

func newApp(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	sqlStore, err := store.OpenSQL(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, sql: sqlStore}

	if cfg.RedisAddr != "" {
		a.redis = store.NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.redis.TimesTTL = cfg.TimeCacheTTL
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
	}

	pub, priv, generated, err := push.EnsureVAPIDKeys(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to generate VAPID keys: %w", err)
	}
	if generated {
		log.Warn().
			Str("VAPID_PUBLIC_KEY", pub).
			Str("VAPID_PRIVATE_KEY", priv).
			Msg("VAPID keys not found in environment; generated a new pair (add them to .env to persist)")
	}
	a.sender = push.NewSender(push.Config{
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		Subscriber:      cfg.VAPIDSubscriber,
		TTL:             cfg.PushTTL,
		RatePerSec:      cfg.PushRatePerSec,
		Timeout:         cfg.PushTimeout,
	})

	resolver, err := prayer.NewResolver(cfg.Timezone, cfg.Localities)
	if err != nil {
		a.close()
		return nil, err
	}
	var times prayer.TimeSource = &prayer.Client{
		BaseURL:    cfg.PrayerAPIURL,
		APIKey:     cfg.PrayerAPIKey,
		HTTPClient: &http.Client{Timeout: cfg.TimeSourceTimeout},
	}
	if a.redis != nil {
		times = &prayer.CachedSource{Upstream: times, Cache: a.redis, Log: logx.Component(log, "prayer")}
	}

	a.cycle = &dispatch.Cycle{
		Profiles:      sqlStore,
		Subscriptions: sqlStore,
		Records:       sqlStore,
		Times:         times,
		Resolver:      resolver,
		Push:          a.sender,
		DedupeTTL:     cfg.DedupeTTL,
		FetchTimeout:  cfg.TimeSourceTimeout,
		URL:           cfg.NotificationURL,
		Icon:          cfg.NotificationIcon,
		Log:           logx.Component(log, "dispatch"),
	}
	if cfg.DispatchDedupe {
		if a.redis != nil {
			a.cycle.Claims = a.redis
		} else {
			a.cycle.Claims = sqlStore
		}
	}

	a.streaks = streak.NewService(sqlStore, loc, logx.Component(log, "streak"))

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(a.registry); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) handler() *handlers.Handler {
	h := handlers.NewHandler(a.cycle, a.sql, a.streaks, logx.Component(a.log, "http"))
	h.VAPIDPublicKey = a.sender.PublicKey()
	h.CronSecret = a.cfg.CronSecret
	h.Metrics = metrics.Handler(a.registry)
	return h
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing redis")
		}
	}
	if err := a.sql.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing database")
	}
}
