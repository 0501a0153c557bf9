package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", cfg.Book.Instrument)
	assert.Equal(t, IDSourceSequential, cfg.Book.IDSource)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadConfig_FileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
book:
  instrument: ETH-USD
  id_source: random
log:
  level: debug
  format: json
kafka:
  enabled: true
  client: sarama
  brokers: ["k1:9092"]
  topic: reports
redis:
  enabled: true
  addr: redis:6379
  depth: 5
`)

	t.Setenv("LIMITBOOK_KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("LIMITBOOK_REDIS_DEPTH", "20")

	cfg, err := LoadConfig([]string{"-config", path, "-instrument", "SOL-USD", "-log_level", "warn"})
	require.NoError(t, err)

	assert.Equal(t, "SOL-USD", cfg.Book.Instrument)
	assert.Equal(t, IDSourceRandom, cfg.Book.IDSource)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, KafkaClientSarama, cfg.Kafka.Client)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "reports", cfg.Kafka.Topic)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 20, cfg.Redis.Depth)
}

func TestLoadConfig_EnvEnablesKafka(t *testing.T) {
	t.Setenv("LIMITBOOK_KAFKA_ENABLED", "true")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, KafkaClientKafkaGo, cfg.Kafka.Client)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "failed to read config file")

	path := writeConfig(t, "book: [not, a, map]")
	_, err = LoadConfig([]string{"-config", path})
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = LoadConfig([]string{"-unknown"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Book.IDSource = "uuid"
	cfg.Kafka.Enabled = true
	cfg.Kafka.Client = "confluent"
	cfg.Kafka.Brokers = nil
	cfg.Redis.Enabled = true
	cfg.Redis.Depth = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "book.id_source")
	assert.Contains(t, err.Error(), "kafka.client")
	assert.Contains(t, err.Error(), "kafka.brokers")
	assert.Contains(t, err.Error(), "redis.depth")
	assert.Contains(t, err.Error(), "log.format")
}
