// Package config loads server settings from CUSTODY_* environment variables,
// with command-line flags taking precedence.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"github.com/erazemk/skrbnik/internal/db"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CUSTODY_"

// Config holds the server settings.
type Config struct {
	Driver  string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN     string `env:"DB_DSN" envDefault:"custody.sqlite3"`
	Addr    string `env:"ADDR" envDefault:":8080"`
	LogPath string `env:"LOG"`

	// AdminUser and Company name the account and tenant created on first run.
	AdminUser string `env:"ADMIN_USER" envDefault:"Admin"`
	Company   string `env:"COMPANY" envDefault:"Default"`

	// AliasFile is an optional YAML file of location aliases loaded at startup.
	AliasFile string `env:"ALIASES"`

	MaxBatchSize             int           `env:"MAX_BATCH_SIZE" envDefault:"500"`
	CompensationAttempts     uint          `env:"COMPENSATION_ATTEMPTS" envDefault:"4"`
	CompensationInitialDelay time.Duration `env:"COMPENSATION_DELAY" envDefault:"50ms"`
	ReconcileAfter           time.Duration `env:"RECONCILE_AFTER" envDefault:"10m"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// BindFlags registers a flag for every setting, defaulting to the value
// already loaded so that only flags given on the command line override it.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Driver, "driver", c.Driver, "database driver: sqlite or pgx")
	fs.StringVarP(&c.DSN, "db", "d", c.DSN, "database path (sqlite) or connection string (pgx)")
	fs.StringVarP(&c.Addr, "addr", "a", c.Addr, "listen address")
	fs.StringVarP(&c.LogPath, "log", "l", c.LogPath, "log file path (default: stdout/stderr only)")
	fs.StringVarP(&c.AdminUser, "user", "u", c.AdminUser, "admin username on first run")
	fs.StringVarP(&c.Company, "company", "c", c.Company, "company created on first run")
	fs.StringVar(&c.AliasFile, "aliases", c.AliasFile, "YAML file with location aliases to load")
	fs.IntVar(&c.MaxBatchSize, "max-batch", c.MaxBatchSize, "maximum tools per batch transfer")
	fs.UintVar(&c.CompensationAttempts, "compensation-attempts", c.CompensationAttempts, "attempts per compensation step")
	fs.DurationVar(&c.CompensationInitialDelay, "compensation-delay", c.CompensationInitialDelay, "first retry delay of a compensation step")
	fs.DurationVar(&c.ReconcileAfter, "reconcile-after", c.ReconcileAfter, "age after which a pending batch may be reconciled")
}

// Validate checks the settings for values the server cannot run with.
func (c *Config) Validate() error {
	switch c.Driver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("max batch size must be positive")
	}
	if c.CompensationAttempts == 0 {
		return fmt.Errorf("compensation attempts must be at least 1")
	}
	return nil
}
