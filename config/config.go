// config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Application identity reported by /api/version
const (
	AppName    = "TRAVORIER"
	AppVersion = "1.0.0"
)

// Store drivers
const (
	StoreCassandra = "cassandra"
	StoreMemory    = "memory"
)

// Config is the full process configuration, read from the environment
// (and a .env file when present)
type Config struct {
	ServerPort int    `env:"SERVER_PORT" envDefault:"8088"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// StoreDriver selects cassandra+redis+mongo or the in-process stores
	StoreDriver string `env:"STORE_DRIVER" envDefault:"cassandra"`

	CassandraHosts    []string      `env:"CASSANDRA_HOST" envSeparator:"," envDefault:"localhost"`
	CassandraPort     int           `env:"CASSANDRA_PORT" envDefault:"9042"`
	CassandraUsername string        `env:"CASSANDRA_USERNAME" envDefault:"cassandra"`
	CassandraPassword string        `env:"CASSANDRA_PASSWORD" envDefault:"cassandra"`
	CassandraKeyspace string        `env:"CASSANDRA_KEYSPACE" envDefault:"travorier"`
	CassandraTimeout  time.Duration `env:"CASSANDRA_TIMEOUT" envDefault:"10s"`

	RedisURL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	MongoURI        string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase   string        `env:"MONGO_DATABASE" envDefault:"travorier"`
	MongoUsers      string        `env:"MONGO_USERS_COLLECTION" envDefault:"users"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"5m"`

	JWTSecret   string `env:"JWT_SECRET"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	UnlockPrice        int64         `env:"UNLOCK_PRICE_CREDITS" envDefault:"1"`
	ChatLockWindow     time.Duration `env:"CHAT_LOCK_WINDOW" envDefault:"24h"`
	LockTTL            time.Duration `env:"LOCK_TTL" envDefault:"10s"`
	SubscriptionBuffer int           `env:"SUBSCRIPTION_BUFFER" envDefault:"64"`
	CronInterval       time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"5m"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads .env (if any) and then the process environment
func Load() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c Config) Validate() error {
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	if c.StoreDriver != StoreCassandra && c.StoreDriver != StoreMemory {
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.UnlockPrice <= 0 {
		return errors.New("UNLOCK_PRICE_CREDITS must be positive")
	}
	if c.ChatLockWindow < 0 {
		return errors.New("CHAT_LOCK_WINDOW must not be negative")
	}
	return nil
}

// IsMemory reports whether the in-process stores are selected
func (c Config) IsMemory() bool {
	return strings.EqualFold(c.StoreDriver, StoreMemory)
}
