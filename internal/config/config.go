package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port int

	DatabaseDriver string // "postgres" | "sqlite"
	DatabaseURL    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string
	PushTTL         int // seconds
	PushRatePerSec  int
	PushTimeout     time.Duration

	PrayerAPIURL      string
	PrayerAPIKey      string
	TimeSourceTimeout time.Duration
	TimeCacheTTL      time.Duration

	CronSecret       string
	DispatchSchedule string
	DispatchDedupe   bool
	DedupeTTL        time.Duration

	Timezone         string
	NotificationURL  string
	NotificationIcon string

	LogLevel  string
	LogFormat string

	// From the optional YAML overlay.
	Localities map[string]Locality
}

// Load reads .env (if present) and the process environment, then applies the
// YAML overlay named by CONFIG_FILE. envLoaded reports whether a .env file
// was found.
func Load() (cfg Config, envLoaded bool, err error) {
	envLoaded = godotenv.Load() == nil

	cfg, err = FromEnv()
	if err != nil {
		return Config{}, envLoaded, err
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return Config{}, envLoaded, err
		}
	}
	return cfg, envLoaded, cfg.Validate()
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() (Config, error) {
	var errs []error
	cfg := Config{
		DatabaseDriver:   envString("DATABASE_DRIVER", "postgres"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		VAPIDPublicKey:   os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:  os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubscriber:  envString("VAPID_SUBSCRIBER", "mailto:admin@example.com"),
		PrayerAPIURL:     envString("PRAYER_API_URL", "https://api.collectapi.com/pray/all"),
		PrayerAPIKey:     os.Getenv("PRAYER_API_KEY"),
		CronSecret:       os.Getenv("CRON_SECRET"),
		DispatchSchedule: envString("DISPATCH_SCHEDULE", "*/10 * * * *"),
		Timezone:         envString("TIMEZONE", "Europe/Istanbul"),
		NotificationURL:  envString("NOTIFICATION_URL", "/namaz-vakitleri"),
		NotificationIcon: envString("NOTIFICATION_ICON", "/icons/icon-192.png"),
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogFormat:        envString("LOG_FORMAT", "console"),
		Localities:       map[string]Locality{},
	}

	cfg.Port = envInt("PORT", 8080, &errs)
	cfg.RedisDB = envInt("REDIS_DB", 0, &errs)
	cfg.PushTTL = envInt("PUSH_TTL", 3600, &errs)
	cfg.PushRatePerSec = envInt("PUSH_RATE_PER_SEC", 50, &errs)
	cfg.PushTimeout = envDuration("PUSH_TIMEOUT", 10*time.Second, &errs)
	cfg.TimeSourceTimeout = envDuration("TIME_SOURCE_TIMEOUT", 10*time.Second, &errs)
	cfg.TimeCacheTTL = envDuration("TIME_CACHE_TTL", 6*time.Hour, &errs)
	cfg.DispatchDedupe = envBool("DISPATCH_DEDUPE", true, &errs)
	cfg.DedupeTTL = envDuration("DISPATCH_DEDUPE_TTL", 2*time.Hour, &errs)

	return cfg, errors.Join(errs...)
}

// Validate checks values every command needs.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q (want postgres or sqlite)", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.PushRatePerSec <= 0 {
		return errors.New("PUSH_RATE_PER_SEC must be positive")
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func envBool(key string, def bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}

func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}
