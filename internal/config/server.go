package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	LedgerBackendMemory   = "memory"
	LedgerBackendPostgres = "postgres"
)

type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	LedgerBackend  string `env:"LEDGER_BACKEND" envDefault:"memory"`
	PostgresDSN    string `env:"POSTGRES_DSN"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"false"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`
	RedisURL       string `env:"REDIS_URL"`

	LedgerTimeout time.Duration `env:"LEDGER_TIMEOUT" envDefault:"3s"`
	TurnTimeout   time.Duration `env:"TURN_TIMEOUT" envDefault:"10s"`
	PauseBudget   time.Duration `env:"PAUSE_BUDGET" envDefault:"30s"`
	TickInterval  time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`

	DefaultStake int64  `env:"DEFAULT_STAKE" envDefault:"0"`
	DefaultAsset string `env:"DEFAULT_ASSET" envDefault:"coins"`

	CoinsSupplyCap int64 `env:"COINS_SUPPLY_CAP" envDefault:"1000000000"`
	GemsSupplyCap  int64 `env:"GEMS_SUPPLY_CAP" envDefault:"10000000"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c ServerConfig) Validate() error {
	switch c.LedgerBackend {
	case LedgerBackendMemory:
	case LedgerBackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when LEDGER_BACKEND=postgres")
		}
	default:
		return errors.New("LEDGER_BACKEND must be memory or postgres")
	}
	if c.DefaultAsset != "coins" && c.DefaultAsset != "gems" {
		return errors.New("DEFAULT_ASSET must be coins or gems")
	}
	if c.DefaultStake < 0 {
		return errors.New("DEFAULT_STAKE must not be negative")
	}
	if c.LedgerTimeout <= 0 || c.TurnTimeout <= 0 || c.PauseBudget <= 0 || c.TickInterval <= 0 {
		return errors.New("timeouts and intervals must be positive")
	}
	return nil
}
