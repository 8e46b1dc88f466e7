// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration.
type Config struct {
	Addr     string
	LogLevel string

	PostgresURL string

	Redis RedisConfig

	KafkaBrokers     []string
	BillingTopic     string
	WebhookQueueKey  string
	OutboxPollPeriod time.Duration

	// VendorCallTimeout bounds a single vendor dispatch; a call that exceeds
	// it is recorded as an errored attempt, never left pending.
	VendorCallTimeout time.Duration
}

// RedisConfig captures Redis connection tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	return Config{
		Addr:     envOr("VOUCH_ADDR", ":8080"),
		LogLevel: envOr("VOUCH_LOG_LEVEL", "info"),

		PostgresURL: envOr("VOUCH_POSTGRES_URL", "postgres://localhost:5432/vouch?sslmode=disable"),

		Redis: RedisConfig{
			URL:          os.Getenv("VOUCH_REDIS_URL"),
			PoolSize:     envIntOr("VOUCH_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("VOUCH_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("VOUCH_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("VOUCH_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("VOUCH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},

		KafkaBrokers:     []string{envOr("VOUCH_KAFKA_BROKER", "localhost:9092")},
		BillingTopic:     envOr("VOUCH_BILLING_TOPIC", "vouch.billing.events"),
		WebhookQueueKey:  envOr("VOUCH_WEBHOOK_QUEUE", "vouch:webhooks"),
		OutboxPollPeriod: envDurationOr("VOUCH_OUTBOX_POLL_PERIOD", 2*time.Second),

		VendorCallTimeout: envDurationOr("VOUCH_VENDOR_CALL_TIMEOUT", 20*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
