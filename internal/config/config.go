package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

const envPrefix = "worker"

// WorkerConfig is read from WORKER_* environment variables.
type WorkerConfig struct {
	Env         string `envconfig:"ENV" default:"development"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" required:"true"`
	HealthPort  int    `envconfig:"HEALTH_PORT" default:"8081"`

	RedisURL           string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisMaxRetries    int           `envconfig:"REDIS_MAX_RETRIES" default:"3"`
	RedisRetryBackoff  time.Duration `envconfig:"REDIS_RETRY_BACKOFF" default:"100ms"`
	RedisPoolSize      int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	RedisMinIdleConns  int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	BreakerFailures    uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerTimeout     time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
	Channel            string        `envconfig:"CHANNEL" default:"clinic.appointments"`
	BatchSize          int           `envconfig:"BATCH_SIZE" default:"100"`
	PollInterval       time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	RetryAttempts      int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay         time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
	MaxDeliveries      int           `envconfig:"MAX_DELIVERIES" default:"5"`
	CleanupInterval    time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`
	ProcessedRetention time.Duration `envconfig:"PROCESSED_RETENTION" default:"24h"`

	SMTPHost      string `envconfig:"SMTP_HOST"`
	SMTPPort      int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser      string `envconfig:"SMTP_USER"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom      string `envconfig:"SMTP_FROM" default:"clinic@localhost"`
	NotifyAddress string `envconfig:"NOTIFY_ADDRESS"`
}

func Load() (*WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}
	return &cfg, nil
}

func (c *WorkerConfig) ProcessorConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:       c.BatchSize,
		PollInterval:    c.PollInterval,
		RetryAttempts:   c.RetryAttempts,
		RetryDelay:      c.RetryDelay,
		Channel:         c.Channel,
		MaxDeliveries:   c.MaxDeliveries,
		CleanupInterval: c.CleanupInterval,
		Retention:       c.ProcessedRetention,
	}
}

func (c *WorkerConfig) BrokerConfig() redis.Config {
	return redis.Config{
		URL:             c.RedisURL,
		MaxRetries:      c.RedisMaxRetries,
		RetryBackoff:    c.RedisRetryBackoff,
		PoolSize:        c.RedisPoolSize,
		MinIdleConns:    c.RedisMinIdleConns,
		BreakerFailures: c.BreakerFailures,
		BreakerTimeout:  c.BreakerTimeout,
	}
}

func (c *WorkerConfig) EmailConfig() email.Config {
	return email.Config{
		Host:          c.SMTPHost,
		Port:          c.SMTPPort,
		Username:      c.SMTPUser,
		Password:      c.SMTPPassword,
		From:          c.SMTPFrom,
		NotifyAddress: c.NotifyAddress,
	}
}
