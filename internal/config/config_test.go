package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WORKER_DATABASE_DSN", "postgres://localhost/clinic")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "postgres://localhost/clinic", cfg.DatabaseDSN)
	assert.Equal(t, 8081, cfg.HealthPort)

	p := cfg.ProcessorConfig()
	assert.Equal(t, 100, p.BatchSize)
	assert.Equal(t, 5*time.Second, p.PollInterval)
	assert.Equal(t, 3, p.RetryAttempts)
	assert.Equal(t, time.Second, p.RetryDelay)
	assert.Equal(t, "clinic.appointments", p.Channel)
	assert.Equal(t, 24*time.Hour, p.Retention)

	b := cfg.BrokerConfig()
	assert.Equal(t, "redis://localhost:6379/0", b.URL)
	assert.Equal(t, uint32(5), b.BreakerFailures)
	assert.Equal(t, 100*time.Millisecond, b.RetryBackoff)

	e := cfg.EmailConfig()
	assert.Empty(t, e.Host)
	assert.Equal(t, 587, e.Port)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKER_DATABASE_DSN", "postgres://db/clinic")
	t.Setenv("WORKER_BATCH_SIZE", "25")
	t.Setenv("WORKER_POLL_INTERVAL", "250ms")
	t.Setenv("WORKER_SMTP_HOST", "smtp.example.com")
	t.Setenv("WORKER_NOTIFY_ADDRESS", "frontdesk@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.ProcessorConfig().BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.ProcessorConfig().PollInterval)
	assert.Equal(t, "smtp.example.com", cfg.EmailConfig().Host)
	assert.Equal(t, "frontdesk@example.com", cfg.EmailConfig().NotifyAddress)
}

func TestLoadRequiresDSN(t *testing.T) {
	for _, key := range []string{"WORKER_DATABASE_DSN", "DATABASE_DSN"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	_, err := Load()
	assert.Error(t, err)
}
