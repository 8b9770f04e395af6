package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "activity-events", cfg.Kafka.Topic)
	assert.Equal(t, "coach-activity-worker", cfg.Kafka.GroupID)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 30*time.Second, cfg.PDF.Timeout)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2, cfg.PDF.PoolSize)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yml := `
server:
  port: "9090"
storage:
  driver: arangodb
pdf:
  pool_size: 4
  timeout: 10s
kafka:
  brokers: "b1:9092, b2:9092"
`
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("COACH_SERVER_PORT", "7070")
	t.Setenv("COACH_KAFKA_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port, "env overrides file")
	assert.Equal(t, DriverArango, cfg.Storage.Driver)
	assert.Equal(t, 4, cfg.PDF.PoolSize)
	assert.Equal(t, 10*time.Second, cfg.PDF.Timeout)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.BrokerList())
}

func TestLoadPicksUpProjectFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(DefaultConfigName, []byte("log:\n  level: debug\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("COACH_STORAGE_DRIVER", "postgres")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("COACH_STORAGE_DRIVER", "sqlite")
	t.Setenv("COACH_PDF_POOL_SIZE", "0")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
