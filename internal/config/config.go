// Package config parses the indexer's environment-variable configuration,
// mirroring the Chain Client / Ledger Store / entry-point contract in
// spec.md §6.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the indexer's runtime configuration. Environment variables
// are parsed with the DOT20 prefix, e.g. DOT20_URL, DOT20_CHAIN.
type Config struct {
	// URL is the chain RPC endpoint the Chain Client connects to.
	URL string `envconfig:"URL" required:"true"`
	// Chain is the expected chain name; Connect hard-checks it against the
	// node's reported identity and refuses to start on a mismatch.
	Chain string `envconfig:"CHAIN" required:"true"`

	StartBlock uint64 `envconfig:"START_BLOCK" default:"0"`
	DelayBlock uint64 `envconfig:"DELAY_BLOCK" default:"1"`

	// DBDriver selects the Ledger Store backend: "postgres" or "sqlite".
	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:""`

	// StatusAddr is the read-only HTTP status surface's listen address.
	StatusAddr string `envconfig:"STATUS_ADDR" default:":8090"`

	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"14"`

	ReconnectBackoff time.Duration `envconfig:"RECONNECT_BACKOFF" default:"2s"`
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"3s"`
}

// ResolveDefaults validates DBDriver and the fields it requires.
func (c *Config) ResolveDefaults() error {
	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("DB_DRIVER=sqlite requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}

	if c.DelayBlock == 0 {
		return fmt.Errorf("DELAY_BLOCK must be at least 1")
	}
	return nil
}

// New parses environment variables prefixed with DOT20 into a Config.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("DOT20", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("url", cfg.URL).
		Str("chain", cfg.Chain).
		Uint64("start_block", cfg.StartBlock).
		Uint64("delay_block", cfg.DelayBlock).
		Str("db_driver", cfg.DBDriver).
		Str("status_addr", cfg.StatusAddr).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")

	return &cfg, nil
}

// NewForTesting returns a Config suitable for unit tests: a local SQLite
// path and no live chain endpoint.
func NewForTesting() *Config {
	return &Config{
		URL:              "ws://localhost:9944",
		Chain:            "dota-testnet",
		StartBlock:       0,
		DelayBlock:       1,
		DBDriver:         "sqlite",
		SQLitePath:       ":memory:",
		StatusAddr:       ":0",
		LogLevel:         "debug",
		ReconnectBackoff: 100 * time.Millisecond,
		PollInterval:     10 * time.Millisecond,
	}
}

// GetStatusAddr returns the status HTTP surface's listen address.
func (c *Config) GetStatusAddr() string { return c.StatusAddr }
