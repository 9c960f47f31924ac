// Package config defines the top-level configuration for the flip finder and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FLIPBOT_* environment variables.
type Config struct {
	Database Database `toml:"database"`
	Redis    Redis    `toml:"redis"`
	S3       S3       `toml:"s3"`
	Feed     Feed     `toml:"feed"`
	Scan     Scan     `toml:"scan"`
	Archive  Archive  `toml:"archive"`
	Server   Server   `toml:"server"`
	Notify   Notify   `toml:"notify"`
	Mode     string   `toml:"mode"`
	LogLevel string   `toml:"log_level"`
}

// Database holds PostgreSQL connection parameters.
type Database struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Redis holds Redis connection parameters.
type Redis struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3 holds S3-compatible object storage parameters for the listing archive.
type S3 struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Feed holds the market snapshot feed parameters.
type Feed struct {
	Enabled bool `toml:"enabled"`
	// URL is the websocket endpoint publishing listing and stats snapshots.
	URL string `toml:"url"`
	// Worlds restricts the subscription to the given world IDs. Empty means
	// every world the feed publishes.
	Worlds []int32 `toml:"worlds"`
	// LockTTL bounds how long a crashed listener blocks a replacement from
	// acquiring the single-listener lock.
	LockTTL duration `toml:"lock_ttl"`
}

// Scan holds the default offer filter applied when a user has no stored
// profile, plus serving limits.
type Scan struct {
	// HomeWorld is the world users sell into when no stored profile overrides
	// it. Required for scan mode.
	HomeWorld          int32    `toml:"home_world"`
	Target             string   `toml:"target"`
	MaxAge             duration `toml:"max_age"`
	MinUnitPrice       int64    `toml:"min_unit_price"`
	MinPopularity      float64  `toml:"min_popularity"`
	MinMarketVolume    float64  `toml:"min_market_volume"`
	MinInterest        float64  `toml:"min_interest"`
	MinSales           int64    `toml:"min_sales"`
	MinViews           int64    `toml:"min_views"`
	MinFactor          float64  `toml:"min_factor"`
	MinProfit          int64    `toml:"min_profit"`
	MinEffectiveProfit int64    `toml:"min_effective_profit"`
	Limit              int      `toml:"limit"`
}

// Archive holds cold storage parameters for aged listing snapshots.
type Archive struct {
	Enabled       bool   `toml:"enabled"`
	RetentionDays int    `toml:"retention_days"`
	Cron          string `toml:"cron"`
	BatchSize     int    `toml:"batch_size"`
}

// Server holds HTTP server parameters.
type Server struct {
	Enabled       bool     `toml:"enabled"`
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	APIKey        string   `toml:"api_key"`
	RateLimit     int      `toml:"rate_limit"`
	RateWindowSec int      `toml:"rate_window_sec"`
}

// Notify holds notification channel credentials.
type Notify struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "1h", "30m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "1h" or "30m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: Database{
			Host:          "localhost",
			Port:          5432,
			Database:      "flipbot",
			User:          "flipbot",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: Redis{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "flipbot-archive",
			ForcePathStyle: true,
		},
		Feed: Feed{
			Enabled: false,
			URL:     "wss://universalis.app/api/ws",
			LockTTL: duration{12 * time.Hour},
		},
		Scan: Scan{
			Target:             "data_center",
			MaxAge:             duration{time.Hour},
			MinPopularity:      1,
			MinMarketVolume:    1,
			MinInterest:        1,
			MinSales:           7,
			MinViews:           0,
			MinFactor:          1.5,
			MinProfit:          10_000,
			MinEffectiveProfit: 50_000,
			Limit:              100,
		},
		Archive: Archive{
			Enabled:       false,
			RetentionDays: 30,
			Cron:          "0 3 * * *",
			BatchSize:     5_000,
		},
		Server: Server{
			Enabled:       true,
			Port:          8000,
			CORSOrigins:   []string{"http://localhost:3000"},
			RateLimit:     60,
			RateWindowSec: 60,
		},
		Notify: Notify{
			Events: []string{"offers_found", "feed_down", "error"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":  true,
	"ingest": true,
	"scan":   true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validTargets enumerates the accepted comparison scopes for Scan.Target.
var validTargets = map[string]bool{
	"data_center": true,
	"region":      true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, ingest, scan, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Feed
	if c.Feed.Enabled || c.Mode == "ingest" {
		if c.Feed.URL == "" {
			errs = append(errs, "feed: url is required when the feed is enabled")
		}
		if c.Feed.LockTTL.Duration <= 0 {
			errs = append(errs, "feed: lock_ttl must be > 0")
		}
	}

	// Scan
	if !validTargets[strings.ToLower(c.Scan.Target)] {
		errs = append(errs, fmt.Sprintf("scan: unknown target %q (valid: data_center, region)", c.Scan.Target))
	}
	if c.Scan.MaxAge.Duration <= 0 {
		errs = append(errs, "scan: max_age must be > 0")
	}
	if c.Scan.MinFactor < 0 {
		errs = append(errs, "scan: min_factor must be >= 0")
	}
	if c.Scan.Limit < 1 {
		errs = append(errs, "scan: limit must be >= 1")
	}
	if strings.ToLower(c.Mode) == "scan" && c.Scan.HomeWorld <= 0 {
		errs = append(errs, "scan: home_world is required in scan mode")
	}

	// Archive
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archiving is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archiving is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.BatchSize < 1 {
			errs = append(errs, "archive: batch_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
