package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS, default=*"`

	JWT       JWTConfig
	Store     StoreConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Events    EventsConfig
	Loans     LoanConfig
	Bootstrap BootstrapConfig
}

type JWTConfig struct {
	Secret            string `env:"JWT_SECRET"`
	Issuer            string `env:"JWT_ISSUER,             default=loans-api"`
	Audience          string `env:"JWT_AUDIENCE,           default=loans-api-clients"`
	ExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES, default=60"`
}

// TTL returns the token lifetime.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type StoreConfig struct {
	Driver       string `env:"STORE_DRIVER,      default=postgres"`
	DSN          string `env:"DATABASE_URL"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS, default=30"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS, default=10"`
	AutoMigrate  bool   `env:"DB_AUTO_MIGRATE,   default=true"`
}

type MongoConfig struct {
	URI             string `env:"MONGO_URI,              default=mongodb://localhost:27017"`
	Database        string `env:"MONGO_DB,               default=loans"`
	UseTransactions bool   `env:"MONGO_USE_TRANSACTIONS, default=true"`
}

// RedisConfig is optional: an empty Addr disables idempotent replay.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

// EventsConfig is optional: an empty NATSURL makes events log-only.
type EventsConfig struct {
	NATSURL       string `env:"NATS_URL"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX, default=loans"`
	Workers       int    `env:"EVENT_WORKERS,       default=4"`
}

type LoanConfig struct {
	AllowRedecision bool `env:"LOAN_ALLOW_REDECISION, default=false"`
}

type BootstrapConfig struct {
	AdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Enabled reports whether both bootstrap credentials are set.
func (b BootstrapConfig) Enabled() bool {
	return b.AdminUsername != "" && b.AdminPassword != ""
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "local")
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINUTES must be positive"))
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for driver %q", c.Store.Driver))
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for driver \"mongo\""))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}
	if c.Events.Workers <= 0 {
		errs = append(errs, errors.New("EVENT_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}

// LoadWith reads configuration through lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}
