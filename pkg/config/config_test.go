package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8529", cfg.Store.URL)
	assert.Equal(t, "_system", cfg.Store.Database)
	assert.Equal(t, 256, cfg.Registry.Capacity)
	assert.Equal(t, 1, cfg.Transport.Retry.MaxAttempts)
	assert.True(t, cfg.Audit.Log.Enabled)
	assert.False(t, cfg.Audit.Kafka.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "indexkit.yaml")
	yamlDoc := `
store:
  url: http://db.internal:8529
  database: shop
transport:
  timeout: 5s
  retry:
    maxAttempts: 3
registry:
  capacity: 16
audit:
  kafka:
    enabled: true
    brokers: [a:9092, b:9092]
    topic: shop.calls
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://db.internal:8529", cfg.Store.URL)
	assert.Equal(t, "shop", cfg.Store.Database)
	assert.Equal(t, 5*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, 3, cfg.Transport.Retry.MaxAttempts)
	assert.Equal(t, 16, cfg.Registry.Capacity)
	assert.True(t, cfg.Audit.Kafka.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Audit.Kafka.Brokers)
	assert.Equal(t, "shop.calls", cfg.Audit.Kafka.Topic)
	// untouched sections keep defaults
	assert.Equal(t, "indexkit:calls", cfg.Audit.Redis.Key)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("IDX_STORE_URL", "http://env-host:8529")
	t.Setenv("IDX_STORE_DATABASE", "envdb")
	t.Setenv("IDX_AUDIT_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("IDX_AUDIT_POSTGRES_PORT", "6543")
	t.Setenv("IDX_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:8529", cfg.Store.URL)
	assert.Equal(t, "envdb", cfg.Store.Database)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.Kafka.Brokers)
	assert.Equal(t, 6543, cfg.Audit.Postgres.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "empty url",
			mutate:  func(c *Config) { c.Store.URL = "" },
			wantErr: "store.url",
		},
		{
			name:    "empty database",
			mutate:  func(c *Config) { c.Store.Database = "" },
			wantErr: "store.database",
		},
		{
			name:    "zero capacity",
			mutate:  func(c *Config) { c.Registry.Capacity = 0 },
			wantErr: "registry.capacity",
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Audit.Kafka.Enabled = true
				c.Audit.Kafka.Brokers = nil
			},
			wantErr: "audit.kafka.brokers",
		},
		{
			name: "file sink without path",
			mutate: func(c *Config) {
				c.Audit.File.Enabled = true
				c.Audit.File.Path = ""
			},
			wantErr: "audit.file.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := Default().Audit.Postgres
	assert.Equal(t, "host=localhost port=5432 user=indexkit password=localdev dbname=indexkit sslmode=disable", p.DSN())
}
