package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port         string        `env:"PORT" envDefault:"5001"`
	AdmissionKey string        `env:"BANG_ADMISSION_KEY" envDefault:"98io0u"`
	MaxPeers     int           `env:"BANG_MAX_PEERS" envDefault:"12"`
	DebugRoles   bool          `env:"BANG_DEBUG_ROLES" envDefault:"false"`
	WriteTimeout time.Duration `env:"BANG_WRITE_TIMEOUT" envDefault:"5s"`
	OutboxSize   int           `env:"BANG_OUTBOX_SIZE" envDefault:"32"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	Redis     RedisConfig
	Historian HistorianConfig
}

// RedisConfig points at the session history queue. An empty Addr disables publishing.
type RedisConfig struct {
	Addr  string `env:"REDIS_ADDR"`
	DB    int    `env:"REDIS_DB" envDefault:"0"`
	Queue string `env:"HISTORIAN_QUEUE_NAME" envDefault:"bang_session_events"`
}

// HistorianConfig configures cmd/historian.
type HistorianConfig struct {
	DatabaseURL   string        `env:"DATABASE_URL"`
	BatchSize     int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	FlushInterval time.Duration `env:"HISTORIAN_FLUSH_INTERVAL" envDefault:"500ms"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxPeers <= 0 {
		return cfg, fmt.Errorf("BANG_MAX_PEERS must be positive, got %d", cfg.MaxPeers)
	}
	if cfg.OutboxSize <= 0 {
		return cfg, fmt.Errorf("BANG_OUTBOX_SIZE must be positive, got %d", cfg.OutboxSize)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger
}
