package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Lifecycle.StrictTransitions)
	assert.Equal(t, "staff", cfg.Lifecycle.DefaultActor)
	assert.Equal(t, 40, cfg.Stats.WeeklyGoal)
	assert.Equal(t, 8, cfg.Stats.SlotsPerDay)
	assert.Equal(t, 30*time.Second, cfg.Stats.CacheTTL)
	assert.Equal(t, "clinic.appointments", cfg.Events.Channel)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CLINIC_SERVER_PORT", "9090")
	t.Setenv("CLINIC_DATABASE_DRIVER", "memory")
	t.Setenv("CLINIC_STATS_WEEKLY_GOAL", "25")
	t.Setenv("CLINIC_AUTH_JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Stats.WeeklyGoal)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := []byte("server:\n  port: 7070\nlifecycle:\n  strict_transitions: false\n  default_actor: Dr. House\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), content, 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.False(t, cfg.Lifecycle.StrictTransitions)
	assert.Equal(t, "Dr. House", cfg.Lifecycle.DefaultActor)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CLINIC_DATABASE_DRIVER", "mysql")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "clinic", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=clinic sslmode=disable", cfg.DSN())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores it when the test finishes.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
