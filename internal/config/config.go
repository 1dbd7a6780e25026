package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Sources  SourcesConfig
	Refresh  RefreshConfig
	Snapshot SnapshotConfig
	Notify   NotifyConfig
	MQTT     MQTTConfig
	Location LocationConfig
	Severity SeverityConfig
	Shelters SheltersConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RateLimitRPS   int
	RateLimitBurst int
	// routes the limiter skips, matched against the gin route pattern
	RateLimitExempt []string
}

type SourcesConfig struct {
	USGSURL      string
	NWSURL       string
	UserAgent    string
	FetchTimeout time.Duration
	MaxAttempts  int
	BackoffBase  time.Duration
}

type RefreshConfig struct {
	Interval    time.Duration
	RetryDelay  time.Duration
	AutoRefresh bool
}

type SnapshotConfig struct {
	Backend       string // "sqlite" or "redis"
	Key           string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type NotifyConfig struct {
	NATSURL    string
	AMQPURL    string
	Count      int
	BufferSize int
}

type MQTTConfig struct {
	Broker        string
	ClientID      string
	LocationTopic string
}

// LocationConfig optionally seeds the user location at startup.
type LocationConfig struct {
	Set       bool
	Latitude  float64
	Longitude float64
	Altitude  float64
}

type SeverityConfig struct {
	Model string
	Seed  int64
}

type SheltersConfig struct {
	Path string // empty means the embedded default set
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:    getEnvInt("RATE_LIMIT_RPS", 5),
			RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
			RateLimitExempt: getEnvList("RATE_LIMIT_EXEMPT", []string{"/health", "/metrics"}),
		},
		Sources: SourcesConfig{
			USGSURL:      getEnv("USGS_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson"),
			NWSURL:       getEnv("NWS_URL", "https://api.weather.gov/alerts/active?status=actual&message_type=alert"),
			UserAgent:    getEnv("USER_AGENT", "safespot-alerts (ops@safespot.example)"),
			FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
			MaxAttempts:  getEnvInt("FETCH_MAX_ATTEMPTS", 3),
			BackoffBase:  getEnvDuration("FETCH_BACKOFF_BASE", time.Second),
		},
		Refresh: RefreshConfig{
			Interval:    getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),
			RetryDelay:  getEnvDuration("RETRY_DELAY", 30*time.Second),
			AutoRefresh: getEnvBool("AUTO_REFRESH", true),
		},
		Snapshot: SnapshotConfig{
			Backend:       getEnv("SNAPSHOT_BACKEND", "sqlite"),
			Key:           getEnv("SNAPSHOT_KEY", "alertsData"),
			DBPath:        getEnv("DB_PATH", "./data/safespot.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Notify: NotifyConfig{
			NATSURL:    getEnv("NOTIFY_NATS_URL", ""),
			AMQPURL:    getEnv("NOTIFY_AMQP_URL", ""),
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		MQTT: MQTTConfig{
			Broker:        getEnv("MQTT_BROKER", ""),
			ClientID:      getEnv("MQTT_CLIENT_ID", "safespot-alerts"),
			LocationTopic: getEnv("MQTT_LOCATION_TOPIC", "safespot/user/location"),
		},
		Severity: SeverityConfig{
			Model: getEnv("SEVERITY_MODEL", "formula"),
			Seed:  int64(getEnvInt("SEVERITY_SEED", 1)),
		},
		Shelters: SheltersConfig{
			Path: getEnv("SHELTERS_PATH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if os.Getenv("LOCATION_LAT") != "" && os.Getenv("LOCATION_LON") != "" {
		cfg.Location = LocationConfig{
			Set:       true,
			Latitude:  getEnvFloat("LOCATION_LAT", 0),
			Longitude: getEnvFloat("LOCATION_LON", 0),
			Altitude:  getEnvFloat("LOCATION_ALT", 0),
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 req/s")
	}
	if c.Server.RateLimitBurst < c.Server.RateLimitRPS {
		return fmt.Errorf("rate limit burst must be at least the rate: %d < %d", c.Server.RateLimitBurst, c.Server.RateLimitRPS)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Sources.MaxAttempts < 1 {
		return fmt.Errorf("fetch max attempts must be at least 1")
	}
	if c.Sources.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Sources.BackoffBase < 0 {
		return fmt.Errorf("fetch backoff base must not be negative")
	}

	if c.Refresh.Interval < time.Minute {
		return fmt.Errorf("refresh interval must be at least 1 minute")
	}
	if c.Refresh.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}

	switch c.Snapshot.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("invalid snapshot backend: %s", c.Snapshot.Backend)
	}
	if c.Snapshot.Key == "" {
		return fmt.Errorf("snapshot key must not be empty")
	}

	if c.Notify.Count < 1 || c.Notify.BufferSize < 1 {
		return fmt.Errorf("notification workers and buffer must be at least 1")
	}

	switch c.Severity.Model {
	case "formula", "network":
	default:
		return fmt.Errorf("invalid severity model: %s", c.Severity.Model)
	}

	if c.Location.Set {
		if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
			return fmt.Errorf("invalid location latitude: %f", c.Location.Latitude)
		}
		if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
			return fmt.Errorf("invalid location longitude: %f", c.Location.Longitude)
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
