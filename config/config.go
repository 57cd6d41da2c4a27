// Package config loads service settings from the environment.
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

// Config holds runtime settings for the waitlist service.
type Config struct {
	Port       string
	Env        string
	AppOrigins []string
	GitSHA     string
	LogLevel   string

	MetricsToken string

	DatabaseURL string
	RedisURL    string

	SessionSecret string
	PublicURL     string
	OGImageURL    string

	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	CDNBaseURL        string

	SnapshotInterval time.Duration
}

// ErrMissingDatabaseURL is returned when DATABASE_URL is not set.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable not set")

// LoadDotEnv reads .env files if present. A missing file is not an error.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// Load builds a Config from the process environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                   getenv("PORT", getenv("BFF_PORT", "5177")),
		Env:                    getenv("APP_ENV", "development"),
		GitSHA:                 getenv("GIT_SHA", "dev"),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		MetricsToken:           os.Getenv("METRICS_TOKEN"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		SessionSecret:          getenv("SESSION_SECRET", "dev-secret-change-in-production"),
		PublicURL:              strings.TrimRight(getenv("PUBLIC_URL", "http://localhost:5000"), "/"),
		OGImageURL:             getenv("OG_IMAGE_URL", "https://goampy.com/og/ampy-card.png"),
		SupabaseURL:            strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:        os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		R2AccountID:            os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:          os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret:      os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2Bucket:               os.Getenv("R2_BUCKET_NAME"),
		CDNBaseURL:             os.Getenv("CDN_BASE_URL"),
		SnapshotInterval:       time.Minute,
	}

	cfg.AppOrigins = splitList(os.Getenv("APP_ORIGIN"))
	if len(cfg.AppOrigins) == 0 && cfg.IsDevelopment() {
		cfg.AppOrigins = []string{"http://localhost:5000", "http://localhost:5177"}
	}

	if v := os.Getenv("LEADERBOARD_SNAPSHOT_INTERVAL"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LEADERBOARD_SNAPSHOT_INTERVAL %q: %w", v, err)
		}
		cfg.SnapshotInterval = d
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return cfg, nil
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AuthConfigured reports whether the identity provider can be reached.
func (c *Config) AuthConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceRoleKey != ""
}

// SnapshotsEnabled reports whether leaderboard snapshots can be published to R2.
func (c *Config) SnapshotsEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDuration accepts Go durations ("90s") or a bare number of seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, errors.New("must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}
