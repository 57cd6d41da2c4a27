package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/waitlist")
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_ORIGIN", "")
	t.Setenv("PORT", "")
	t.Setenv("BFF_PORT", "")
	t.Setenv("LEADERBOARD_SNAPSHOT_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5177", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"http://localhost:5000", "http://localhost:5177"}, cfg.AppOrigins)
	assert.Equal(t, time.Minute, cfg.SnapshotInterval)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/waitlist")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_ORIGIN", "https://a.example, https://b.example ,")
	t.Setenv("PORT", "8080")
	t.Setenv("PUBLIC_URL", "https://goampy.com/")
	t.Setenv("LEADERBOARD_SNAPSHOT_INTERVAL", "90")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "role")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AppOrigins)
	assert.Equal(t, "https://goampy.com", cfg.PublicURL)
	assert.Equal(t, 90*time.Second, cfg.SnapshotInterval)
	assert.True(t, cfg.AuthConfigured())
	assert.False(t, cfg.SnapshotsEnabled())
}

func TestLoad_InvalidSnapshotInterval(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/waitlist")
	t.Setenv("LEADERBOARD_SNAPSHOT_INTERVAL", "-5s")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("WAITLIST_DOTENV_PROBE=loaded\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("WAITLIST_DOTENV_PROBE") })

	assert.True(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("WAITLIST_DOTENV_PROBE"))
	assert.False(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
