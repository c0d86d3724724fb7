package bootstrap

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultFeedURL         = "http://track.ua-gis.com/gtfs/lviv/static.zip"
	defaultUpdateInterval  = 7 * 24 * time.Hour
	minUpdateInterval      = 60 * time.Second
	defaultTimezone        = "Europe/Kyiv"
	defaultCORSOrigins     = "http://localhost:3000,http://localhost:5173"
	defaultHTTPPort        = 8000
	defaultGRPCPort        = 9090
	defaultDownloadTimeout = 60 * time.Second
)

type Config struct {
	ServiceID string

	HTTPHost string
	HTTPPort int
	GRPCPort int

	DatabaseURL string
	MaxDBConns  int32
	AutoMigrate bool

	RedisURL              string
	KafkaBrokers          []string
	KafkaTopicFeedUpdated string

	FeedURL            string
	UpdateInterval     time.Duration
	InitialImportDelay time.Duration
	DownloadTimeout    time.Duration
	ImportLockTTL      time.Duration
	Timezone           string
	Location           *time.Location

	CORSOrigins    []string
	CacheTTL       time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	ArchiveEndpoint  string
	ArchiveBucket    string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveUseSSL    bool
	ArchiveRegion    string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	// Warnings collects recoverable configuration problems for logging once
	// the logger exists.
	Warnings []string
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPHost string `yaml:"http_host"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
		Timezone string `yaml:"timezone"`
	} `yaml:"service"`
	Feed struct {
		URL                       string `yaml:"url"`
		UpdateIntervalSeconds     int    `yaml:"update_interval_seconds"`
		InitialImportDelaySeconds *int   `yaml:"initial_import_delay_seconds"`
		DownloadTimeoutSeconds    int    `yaml:"download_timeout_seconds"`
	} `yaml:"feed"`
	HTTP struct {
		CORSOrigins     []string `yaml:"cors_origins"`
		CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
		RateLimitRPS    float64  `yaml:"rate_limit_rps"`
		RateLimitBurst  int      `yaml:"rate_limit_burst"`
	} `yaml:"http"`
	Dependencies struct {
		PostgresURL           string   `yaml:"postgres_url"`
		RedisURL              string   `yaml:"redis_url"`
		KafkaBrokers          []string `yaml:"kafka_brokers"`
		KafkaTopicFeedUpdated string   `yaml:"kafka_topic_feed_updated"`
		ArchiveEndpoint       string   `yaml:"archive_endpoint"`
		ArchiveBucket         string   `yaml:"archive_bucket"`
		ArchiveRegion         string   `yaml:"archive_region"`
		ArchiveUseSSL         bool     `yaml:"archive_use_ssl"`
	} `yaml:"dependencies"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:             "freecity-gtfs-api",
		HTTPHost:              "0.0.0.0",
		HTTPPort:              defaultHTTPPort,
		GRPCPort:              defaultGRPCPort,
		MaxDBConns:            20,
		AutoMigrate:           true,
		KafkaTopicFeedUpdated: "gtfs.feed_updated",
		FeedURL:               defaultFeedURL,
		UpdateInterval:        defaultUpdateInterval,
		InitialImportDelay:    10 * time.Second,
		DownloadTimeout:       defaultDownloadTimeout,
		ImportLockTTL:         30 * time.Minute,
		Timezone:              defaultTimezone,
		CORSOrigins:           trimNonEmpty(strings.Split(defaultCORSOrigins, ",")),
		CacheTTL:              10 * time.Minute,
		OutboxPollInterval:    2 * time.Second,
		OutboxBatchSize:       100,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			var f configFile
			if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
				return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
			}
			applyConfigFile(&cfg, f)
		}
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.HTTPHost = envOrDefault("APP_HOST", cfg.HTTPHost)
	cfg.HTTPPort = envInt("APP_PORT", envInt("HTTP_PORT", cfg.HTTPPort))
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = composeDatabaseURL(
			os.Getenv("DB_SERVER"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			envOrDefault("DB_SSLMODE", "require"),
		)
	}
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.AutoMigrate = envBool("DB_AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopicFeedUpdated = envOrDefault("KAFKA_TOPIC_FEED_UPDATED", cfg.KafkaTopicFeedUpdated)
	cfg.FeedURL = envOrDefault("GTFS_URL", cfg.FeedURL)
	cfg.UpdateInterval = updateIntervalFromEnv(&cfg, cfg.UpdateInterval)
	cfg.InitialImportDelay = time.Duration(envInt("INITIAL_IMPORT_DELAY_SECONDS", int(cfg.InitialImportDelay.Seconds()))) * time.Second
	cfg.DownloadTimeout = time.Duration(envInt("DOWNLOAD_TIMEOUT_SECONDS", int(cfg.DownloadTimeout.Seconds()))) * time.Second
	cfg.ImportLockTTL = time.Duration(envInt("IMPORT_LOCK_TTL_SECONDS", int(cfg.ImportLockTTL.Seconds()))) * time.Second
	cfg.Timezone = envOrDefault("APP_TIMEZONE", cfg.Timezone)
	cfg.CORSOrigins = envCSV("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.CacheTTL = time.Duration(envInt("CACHE_TTL_SECONDS", int(cfg.CacheTTL.Seconds()))) * time.Second
	cfg.RateLimitRPS = envFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.ArchiveEndpoint = envOrDefault("ARCHIVE_ENDPOINT", cfg.ArchiveEndpoint)
	cfg.ArchiveBucket = envOrDefault("ARCHIVE_BUCKET", cfg.ArchiveBucket)
	cfg.ArchiveAccessKey = envOrDefault("ARCHIVE_ACCESS_KEY", cfg.ArchiveAccessKey)
	cfg.ArchiveSecretKey = envOrDefault("ARCHIVE_SECRET_KEY", cfg.ArchiveSecretKey)
	cfg.ArchiveRegion = envOrDefault("ARCHIVE_REGION", cfg.ArchiveRegion)
	cfg.ArchiveUseSSL = envBool("ARCHIVE_USE_SSL", cfg.ArchiveUseSSL)
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown timezone %q, falling back to UTC", cfg.Timezone))
		cfg.Timezone = "UTC"
		loc = time.UTC
	}
	cfg.Location = loc

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL or DB_SERVER/DB_NAME/DB_USER/DB_PASSWORD")
	}
	if cfg.FeedURL == "" {
		return Config{}, fmt.Errorf("missing GTFS_URL")
	}
	return cfg, nil
}

func applyConfigFile(cfg *Config, f configFile) {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPHost != "" {
		cfg.HTTPHost = f.Service.HTTPHost
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Service.Timezone != "" {
		cfg.Timezone = f.Service.Timezone
	}
	if f.Feed.URL != "" {
		cfg.FeedURL = f.Feed.URL
	}
	if f.Feed.UpdateIntervalSeconds > 0 {
		cfg.UpdateInterval = clampUpdateInterval(cfg, time.Duration(f.Feed.UpdateIntervalSeconds)*time.Second)
	}
	if f.Feed.InitialImportDelaySeconds != nil && *f.Feed.InitialImportDelaySeconds >= 0 {
		cfg.InitialImportDelay = time.Duration(*f.Feed.InitialImportDelaySeconds) * time.Second
	}
	if f.Feed.DownloadTimeoutSeconds > 0 {
		cfg.DownloadTimeout = time.Duration(f.Feed.DownloadTimeoutSeconds) * time.Second
	}
	if len(f.HTTP.CORSOrigins) > 0 {
		cfg.CORSOrigins = trimNonEmpty(f.HTTP.CORSOrigins)
	}
	if f.HTTP.CacheTTLSeconds > 0 {
		cfg.CacheTTL = time.Duration(f.HTTP.CacheTTLSeconds) * time.Second
	}
	if f.HTTP.RateLimitRPS > 0 {
		cfg.RateLimitRPS = f.HTTP.RateLimitRPS
	}
	if f.HTTP.RateLimitBurst > 0 {
		cfg.RateLimitBurst = f.HTTP.RateLimitBurst
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaTopicFeedUpdated != "" {
		cfg.KafkaTopicFeedUpdated = f.Dependencies.KafkaTopicFeedUpdated
	}
	cfg.ArchiveEndpoint = f.Dependencies.ArchiveEndpoint
	cfg.ArchiveBucket = f.Dependencies.ArchiveBucket
	cfg.ArchiveRegion = f.Dependencies.ArchiveRegion
	cfg.ArchiveUseSSL = f.Dependencies.ArchiveUseSSL
}

// ArchiveEnabled reports whether raw feed snapshots should be uploaded.
func (c Config) ArchiveEnabled() bool {
	return c.ArchiveEndpoint != "" && c.ArchiveBucket != ""
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

func updateIntervalFromEnv(cfg *Config, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv("UPDATE_INTERVAL_SECONDS"))
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid UPDATE_INTERVAL_SECONDS %q, using %s", raw, fallback))
		return fallback
	}
	return clampUpdateInterval(cfg, time.Duration(seconds)*time.Second)
}

func clampUpdateInterval(cfg *Config, interval time.Duration) time.Duration {
	if interval < minUpdateInterval {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("update interval %s is below the minimum, using %s", interval, minUpdateInterval))
		return minUpdateInterval
	}
	return interval
}

// composeDatabaseURL builds a postgres URL from the discrete deploy secrets.
// It returns an empty string unless server and database are both set.
func composeDatabaseURL(server, database, user, password, sslmode string) string {
	server = strings.TrimSpace(server)
	database = strings.TrimSpace(database)
	if server == "" || database == "" {
		return ""
	}
	u := url.URL{Scheme: "postgres", Host: server, Path: "/" + database}
	if user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	if sslmode != "" {
		u.RawQuery = url.Values{"sslmode": []string{sslmode}}.Encode()
	}
	return u.String()
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	return trimNonEmpty(items)
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
