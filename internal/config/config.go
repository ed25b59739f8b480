// Package config loads server settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

const (
	DefaultListenAddr      = ":8080"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultTokenTTL        = 30 * 24 * time.Hour
	DefaultQueueDepth      = 64
	minSecretLength        = 16
)

type Config struct {
	ListenAddr      string        `yaml:"listenAddr"      envconfig:"EXPENSEKEY_LISTEN_ADDR"`
	MetricsAddr     string        `yaml:"metricsAddr"     envconfig:"EXPENSEKEY_METRICS_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"EXPENSEKEY_SHUTDOWN_TIMEOUT"`
	LogLevel        string        `yaml:"logLevel"        envconfig:"EXPENSEKEY_LOG_LEVEL"`

	StorageBackend string `yaml:"storageBackend" envconfig:"EXPENSEKEY_STORAGE_BACKEND"`
	SQLitePath     string `yaml:"sqlitePath"     envconfig:"EXPENSEKEY_SQLITE_PATH"`
	BadgerDir      string `yaml:"badgerDir"      envconfig:"EXPENSEKEY_BADGER_DIR"`

	JWTSecret string        `yaml:"jwtSecret" envconfig:"EXPENSEKEY_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"tokenTTL"  envconfig:"EXPENSEKEY_TOKEN_TTL"`

	// Activity events are published only when AMQPURL is set.
	AMQPURL      string `yaml:"amqpURL"      envconfig:"EXPENSEKEY_AMQP_URL"`
	AMQPExchange string `yaml:"amqpExchange" envconfig:"EXPENSEKEY_AMQP_EXCHANGE"`
	AMQPQueue    string `yaml:"amqpQueue"    envconfig:"EXPENSEKEY_AMQP_QUEUE"`

	// QueueDepth is how many intents may wait per group.
	QueueDepth int `yaml:"queueDepth" envconfig:"EXPENSEKEY_QUEUE_DEPTH"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ListenAddr:      DefaultListenAddr,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
		StorageBackend:  BackendSQLite,
		SQLitePath:      "data/expensekey.db",
		BadgerDir:       "data/badger",
		TokenTTL:        DefaultTokenTTL,
		AMQPExchange:    "expensekey.activity",
		AMQPQueue:       "expensekey.activity",
		QueueDepth:      DefaultQueueDepth,
	}
}

// Load layers the YAML file (if any) and then the environment over the defaults.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process("expensekey", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem with the settings at once.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listenAddr is required"))
	}
	switch c.StorageBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlitePath is required for the sqlite backend"))
		}
	case BackendBadger:
		if c.BadgerDir == "" {
			errs = append(errs, errors.New("badgerDir is required for the badger backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid storageBackend %q (must be 'memory', 'sqlite', or 'badger')", c.StorageBackend))
	}
	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("jwtSecret must be at least %d characters", minSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("tokenTTL must be positive"))
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		errs = append(errs, errors.New("amqpExchange is required when amqpURL is set"))
	}
	if c.QueueDepth <= 0 {
		errs = append(errs, errors.New("queueDepth must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid logLevel %q", level)
	}
	return l, nil
}
