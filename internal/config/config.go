package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP
	HTTPPort string

	// Redis fan-out; empty address disables it
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	StateTTLSeconds int

	// Pipeline channels
	LiveChannelSize  int
	StateChannelSize int
	AlertChannelSize int

	// State writer tuning
	StateBatchSize       int
	StateFlushIntervalMS int

	// Simulation
	TickIntervalMS int
	Seed           uint64
	AutoStart      bool
	LogRetention   int
	AlertRetention int
	SitesFile      string

	// Auth
	SessionTTLSeconds int
	ValidAPIKeys      []string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		StateTTLSeconds:      getEnvInt("STATE_TTL_SECONDS", 60),
		LiveChannelSize:      getEnvInt("LIVE_CHANNEL_SIZE", 64),
		StateChannelSize:     getEnvInt("STATE_CHANNEL_SIZE", 256),
		AlertChannelSize:     getEnvInt("ALERT_CHANNEL_SIZE", 256),
		StateBatchSize:       getEnvInt("STATE_BATCH_SIZE", 16),
		StateFlushIntervalMS: getEnvInt("STATE_FLUSH_INTERVAL_MS", 250),
		TickIntervalMS:       getEnvInt("TICK_INTERVAL_MS", 10000),
		Seed:                 uint64(getEnvInt("SIM_SEED", 0)),
		AutoStart:            getEnvBool("SIM_AUTOSTART", false),
		LogRetention:         getEnvInt("LOG_RETENTION", 200),
		AlertRetention:       getEnvInt("ALERT_RETENTION", 100),
		SitesFile:            getEnv("SITES_FILE", ""),
		SessionTTLSeconds:    getEnvInt("SESSION_TTL_SECONDS", 8*3600),
		ValidAPIKeys:         splitList(getEnv("VALID_API_KEYS", "")),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
	}
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
