package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Store backends
const (
	StoreBackendMongo    = "mongo"
	StoreBackendPostgres = "postgres"
)

type HTTPCfg struct {
	Port            int           `env:"HTTP_PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type LogCfg struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type MongoCfg struct {
	User        string `env:"MONGO_USER"`
	Password    string `env:"MONGO_PASSWORD"`
	Host        string `env:"MONGO_HOST" envDefault:"mongo-customers"`
	Port        int    `env:"MONGO_PORT" envDefault:"27017"`
	Database    string `env:"MONGO_DB" envDefault:"customers"`
	ReplicaSet  string `env:"MONGO_REPLICA_SET" envDefault:"rs0"`
	MaxPoolSize int    `env:"MONGO_MAX_POOL_SIZE" envDefault:"100"`
}

type PostgresCfg struct {
	User        string `env:"POSTGRES_USER"`
	Password    string `env:"POSTGRES_PASSWORD"`
	Host        string `env:"POSTGRES_HOST" envDefault:"pg-customers"`
	Database    string `env:"POSTGRES_DB" envDefault:"customers"`
	SslMode     string `env:"POSTGRES_SLL_MODE" envDefault:"disable"`
	Port        int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PoolMaxConn int    `env:"POSTGRES_POOL_MAX_CONN" envDefault:"100"`
}

type RedisCfg struct {
	Addr     string        `env:"REDIS_ADDR" envDefault:"redis-customers:6379"`
	Password string        `env:"REDIS_PASSWORD" envDefault:""`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"10m"`
}

type Config struct {
	StoreBackend string
	HTTPCfg      HTTPCfg
	LogCfg       LogCfg
	MongoCfg     MongoCfg
	PostgresCfg  PostgresCfg
	RedisCfg     RedisCfg
}

// Build reads configuration from environment.
// Credentials are required only for the selected store backend.
func Build() (Config, error) {
	var cfg Config
	opts := env.Options{RequiredIfNoDef: true}

	if err := env.Parse(&cfg.HTTPCfg, opts); err != nil {
		return cfg, fmt.Errorf("failed to parse http environment variables - %w", err)
	}

	if err := env.Parse(&cfg.LogCfg, opts); err != nil {
		return cfg, fmt.Errorf("failed to parse log environment variables - %w", err)
	}

	if err := env.Parse(&cfg.RedisCfg, opts); err != nil {
		return cfg, fmt.Errorf("failed to parse redis environment variables - %w", err)
	}

	backend := struct {
		StoreBackend string `env:"STORE_BACKEND" envDefault:"mongo"`
	}{}
	if err := env.Parse(&backend, opts); err != nil {
		return cfg, fmt.Errorf("failed to parse store backend - %w", err)
	}
	cfg.StoreBackend = backend.StoreBackend

	switch cfg.StoreBackend {
	case StoreBackendMongo:
		if err := env.Parse(&cfg.MongoCfg, opts); err != nil {
			return cfg, fmt.Errorf("failed to parse mongo environment variables - %w", err)
		}
	case StoreBackendPostgres:
		if err := env.Parse(&cfg.PostgresCfg, opts); err != nil {
			return cfg, fmt.Errorf("failed to parse postgres environment variables - %w", err)
		}
	default:
		return cfg, fmt.Errorf("unknown store backend %q, must be %s or %s", cfg.StoreBackend, StoreBackendMongo, StoreBackendPostgres)
	}

	return cfg, nil
}
