package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://test")
	for _, k := range []string{"PORT", "DATABASE_DRIVER", "TIMEZONE", "DISPATCH_SCHEDULE", "DISPATCH_DEDUPE", "DISPATCH_DEDUPE_TTL", "PUSH_RATE_PER_SEC"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "Europe/Istanbul", cfg.Timezone)
	assert.Equal(t, "*/10 * * * *", cfg.DispatchSchedule)
	assert.True(t, cfg.DispatchDedupe)
	assert.Equal(t, 2*time.Hour, cfg.DedupeTTL)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("PORT", "9000")
	t.Setenv("DISPATCH_DEDUPE", "false")
	t.Setenv("PUSH_TIMEOUT", "3s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.False(t, cfg.DispatchDedupe)
	assert.Equal(t, 3*time.Second, cfg.PushTimeout)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("PUSH_TIMEOUT", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "PUSH_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cfg := Config{DatabaseDriver: "mysql", DatabaseURL: "x", Timezone: "UTC", PushRatePerSec: 1}
	assert.Error(t, cfg.Validate())

	cfg.DatabaseDriver = "postgres"
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg.DatabaseURL = "x"
	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}

func TestApplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: Europe/Istanbul
localities:
  lefkosa:
    timezone: Asia/Nicosia
    slug: lefkosa
`), 0o644))

	cfg := Config{Timezone: "UTC"}
	require.NoError(t, cfg.ApplyFile(path))

	assert.Equal(t, "Europe/Istanbul", cfg.Timezone)
	assert.Equal(t, Locality{Timezone: "Asia/Nicosia", Slug: "lefkosa"}, cfg.Localities["lefkosa"])
}

func TestApplyFile_RejectsUnknownKeys(t *testing.T) {
	cfg := Config{}
	err := cfg.applyYAML([]byte("timezon: UTC\n"))
	assert.Error(t, err)
}
