// Package config loads and validates client configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// store connection, the transport shim, the registry cache and every audit
// sink backend (log, Kafka, Redis, PostgreSQL, file).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level client configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Transport TransportConfig `yaml:"transport"`
	Registry  RegistryConfig  `yaml:"registry"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig locates the remote document store and the database whose
// collections are managed.
type StoreConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TransportConfig controls the HTTP transport shim. Retries and the circuit
// breaker live here; the index manager never retries on its own.
type TransportConfig struct {
	Timeout        time.Duration        `yaml:"timeout"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RetryConfig bounds transport-level retries of connection failures.
// MaxAttempts of 1 disables retrying.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// RegistryConfig sizes the per-collection index snapshot cache.
type RegistryConfig struct {
	Capacity int `yaml:"capacity"`
}

// AuditConfig enables the call-record sinks registered at client start-up.
type AuditConfig struct {
	Log      LogSinkConfig  `yaml:"log"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	File     FileSinkConfig `yaml:"file"`
}

type LogSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}

// KafkaConfig holds broker and topic settings for the audit stream.
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	BatchSize     int           `yaml:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// RedisConfig holds Redis connection parameters and the capped audit list.
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"poolSize"`
	Key          string        `yaml:"key"`
	MaxLen       int64         `yaml:"maxLen"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the audit table.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type FileSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config pointing at a local store with only the log sink
// enabled.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			URL:      "http://localhost:8529",
			Database: "_system",
			Username: "root",
		},
		Transport: TransportConfig{
			Timeout: 30 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:  1,
				InitialDelay: 100 * time.Millisecond,
				MaxDelay:     2 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
			},
		},
		Registry: RegistryConfig{
			Capacity: 256,
		},
		Audit: AuditConfig{
			Log: LogSinkConfig{
				Enabled: true,
				Level:   "debug",
			},
			Kafka: KafkaConfig{
				Brokers:       []string{"localhost:9092"},
				Topic:         "indexkit.calls",
				ConsumerGroup: "indexctl",
				BatchSize:     100,
				FlushInterval: 5 * time.Second,
			},
			Redis: RedisConfig{
				Addr:         "localhost:6379",
				PoolSize:     10,
				Key:          "indexkit:calls",
				MaxLen:       1000,
				WriteTimeout: time.Second,
			},
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "indexkit",
				User:            "indexkit",
				Password:        "localdev",
				SSLMode:         "disable",
				Table:           "call_records",
				MaxOpenConns:    5,
				MaxIdleConns:    2,
				ConnMaxLifetime: 5 * time.Minute,
			},
			File: FileSinkConfig{
				Path: "indexkit-calls.idxa",
			},
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports the first setting that would prevent a client from being
// built.
func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return fmt.Errorf("config: store.url is required")
	}
	if c.Store.Database == "" {
		return fmt.Errorf("config: store.database is required")
	}
	if c.Registry.Capacity <= 0 {
		return fmt.Errorf("config: registry.capacity must be positive, got %d", c.Registry.Capacity)
	}
	if c.Audit.Kafka.Enabled && len(c.Audit.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: audit.kafka.brokers is required when the kafka sink is enabled")
	}
	if c.Audit.File.Enabled && c.Audit.File.Path == "" {
		return fmt.Errorf("config: audit.file.path is required when the file sink is enabled")
	}
	return nil
}

// applyEnvOverrides reads IDX_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IDX_STORE_URL"); v != "" {
		cfg.Store.URL = v
	}
	if v := os.Getenv("IDX_STORE_DATABASE"); v != "" {
		cfg.Store.Database = v
	}
	if v := os.Getenv("IDX_STORE_USERNAME"); v != "" {
		cfg.Store.Username = v
	}
	if v := os.Getenv("IDX_STORE_PASSWORD"); v != "" {
		cfg.Store.Password = v
	}
	if v := os.Getenv("IDX_TRANSPORT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Transport.Timeout = d
		}
	}
	if v := os.Getenv("IDX_AUDIT_KAFKA_BROKERS"); v != "" {
		cfg.Audit.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("IDX_AUDIT_KAFKA_TOPIC"); v != "" {
		cfg.Audit.Kafka.Topic = v
	}
	if v := os.Getenv("IDX_AUDIT_REDIS_ADDR"); v != "" {
		cfg.Audit.Redis.Addr = v
	}
	if v := os.Getenv("IDX_AUDIT_REDIS_PASSWORD"); v != "" {
		cfg.Audit.Redis.Password = v
	}
	if v := os.Getenv("IDX_AUDIT_POSTGRES_HOST"); v != "" {
		cfg.Audit.Postgres.Host = v
	}
	if v := os.Getenv("IDX_AUDIT_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Audit.Postgres.Port = port
		}
	}
	if v := os.Getenv("IDX_AUDIT_POSTGRES_PASSWORD"); v != "" {
		cfg.Audit.Postgres.Password = v
	}
	if v := os.Getenv("IDX_AUDIT_FILE_PATH"); v != "" {
		cfg.Audit.File.Path = v
	}
	if v := os.Getenv("IDX_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("IDX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IDX_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
