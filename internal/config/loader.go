package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FLIPBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FLIPBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "FLIPBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "FLIPBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "FLIPBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "FLIPBOT_DATABASE_NAME")
	setStr(&cfg.Database.User, "FLIPBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "FLIPBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "FLIPBOT_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "FLIPBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "FLIPBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "FLIPBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FLIPBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FLIPBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FLIPBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FLIPBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FLIPBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FLIPBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FLIPBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FLIPBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "FLIPBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FLIPBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FLIPBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FLIPBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FLIPBOT_S3_FORCE_PATH_STYLE")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "FLIPBOT_FEED_ENABLED")
	setStr(&cfg.Feed.URL, "FLIPBOT_FEED_URL")
	setDuration(&cfg.Feed.LockTTL, "FLIPBOT_FEED_LOCK_TTL")

	// ── Scan ──
	setInt32(&cfg.Scan.HomeWorld, "FLIPBOT_SCAN_HOME_WORLD")
	setStr(&cfg.Scan.Target, "FLIPBOT_SCAN_TARGET")
	setDuration(&cfg.Scan.MaxAge, "FLIPBOT_SCAN_MAX_AGE")
	setInt64(&cfg.Scan.MinUnitPrice, "FLIPBOT_SCAN_MIN_UNIT_PRICE")
	setFloat64(&cfg.Scan.MinFactor, "FLIPBOT_SCAN_MIN_FACTOR")
	setInt64(&cfg.Scan.MinProfit, "FLIPBOT_SCAN_MIN_PROFIT")
	setInt64(&cfg.Scan.MinEffectiveProfit, "FLIPBOT_SCAN_MIN_EFFECTIVE_PROFIT")
	setInt(&cfg.Scan.Limit, "FLIPBOT_SCAN_LIMIT")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "FLIPBOT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "FLIPBOT_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "FLIPBOT_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FLIPBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FLIPBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "FLIPBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "FLIPBOT_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FLIPBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FLIPBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FLIPBOT_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top level ──
	setStr(&cfg.Mode, "FLIPBOT_MODE")
	setStr(&cfg.LogLevel, "FLIPBOT_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
