package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"hcip-drill"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	// Datasets maps subject names to dataset locations: a file path,
	// file://path or s3://bucket/key.
	Datasets map[string]string `env:"DATASETS" envSeparator:"," envKeyValSeparator:"=" envDefault:"openeuler=data/openeuler.json,opengauss=data/opengauss.json"`

	Log         Log
	ObjectStore ObjectStore
	Ledger      Ledger
	Postgres    Postgres
	Redis       Redis
	Mongo       Mongo
	Session     Session
	RateLimit   RateLimit
}

// Log controls the optional rotating file sink.
type Log struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// ObjectStore configures the S3-compatible store behind s3:// datasets.
type ObjectStore struct {
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Region    string `env:"S3_REGION"`
	UseSSL    bool   `env:"S3_USE_SSL" envDefault:"false"`
}

// Ledger selects the wrong-book backend.
type Ledger struct {
	Backend     string `env:"LEDGER_BACKEND" envDefault:"memory"`
	RedisPrefix string `env:"LEDGER_REDIS_PREFIX" envDefault:"wrongbook"`
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Mongo holds document store configuration.
type Mongo struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" envDefault:"hcip_drill"`
}

// Session groups drill session behaviour and token signing.
type Session struct {
	AutoAdvanceDelay time.Duration `env:"AUTO_ADVANCE_DELAY" envDefault:"300ms"`
	TTL              time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	JanitorInterval  time.Duration `env:"SESSION_JANITOR_INTERVAL" envDefault:"1m"`
	TokenSecret      string        `env:"SESSION_TOKEN_SECRET,notEmpty"`
	TokenTTL         time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"12h"`
}

// RateLimit configures the per-client request limiter.
type RateLimit struct {
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	Burst             int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *App) validate() error {
	if len(c.Datasets) == 0 {
		return fmt.Errorf("DATASETS must name at least one subject")
	}
	switch c.Ledger.Backend {
	case "memory", "redis", "mongo":
	case "postgres":
		if c.Postgres.User == "" || c.Postgres.Database == "" {
			return fmt.Errorf("PG_USER and PG_DATABASE are required for the postgres ledger")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}
