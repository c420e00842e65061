package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported values of STORE_DRIVER.
const (
	StoreMongo  = "mongo"
	StoreMySQL  = "mysql"
	StoreSQLite = "sqlite"
)

const defaultSigningKey = "dev-signing-key-change-in-production"

var ErrDefaultSigningKey = errors.New("TOKEN_SIGNING_KEY must be set in production environment")

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Env             string        `env:"ENV" envDefault:"development"`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURI        string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase   string        `env:"MONGO_DATABASE" envDefault:"TaskManager"`
	DatabaseDSN     string        `env:"DATABASE_DSN" envDefault:"taskmanager.db"`
	SigningKey      string        `env:"TOKEN_SIGNING_KEY" envDefault:"dev-signing-key-change-in-production"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"240h"`
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	return Parse()
}

// Parse builds a Config from the process environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.StoreDriver {
	case StoreMongo, StoreMySQL, StoreSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return Config{}, errors.New("token lifetimes must be positive")
	}

	if cfg.Env == "production" && cfg.SigningKey == defaultSigningKey {
		return Config{}, ErrDefaultSigningKey
	}

	return cfg, nil
}
