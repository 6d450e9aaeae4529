package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "jwt:\n  signing_key: test-key\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.State.Backend)
	assert.Equal(t, "test-key", cfg.JWT.SigningKey)
	assert.Equal(t, 8*time.Hour, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, "smartbin_session", cfg.Auth.CookieName)
	assert.Equal(t, 5, cfg.Auth.RateLimit.EmailLimit)
	assert.Equal(t, 5*time.Minute, cfg.Auth.RateLimit.EmailWindow)
	assert.Equal(t, 80, cfg.Dashboard.PickupThreshold)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.StatsCacheTTL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 5, cfg.Forms.IPLimit)
	assert.Equal(t, 10*time.Minute, cfg.Forms.IPWindow)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
dashboard:
  refresh_interval: 15s
auth:
  seed_users:
    - email: ops@smartbin.example
      name: Ops
      password: changeme
      role: operator
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Dashboard.RefreshInterval)
	require.Len(t, cfg.Auth.SeedUsers, 1)
	assert.Equal(t, "operator", cfg.Auth.SeedUsers[0].Role)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "database:\n  postgres:\n    host: localhost\n")
	t.Setenv("DATABASE_POSTGRES_HOST", "db.internal")
	t.Setenv("STATE_BACKEND", "redis")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "redis", cfg.State.Backend)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "h", Port: 1, User: "u", Password: "p", DB: "d", SSLMode: "disable"}.DSN()
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable TimeZone=UTC", dsn)
}
