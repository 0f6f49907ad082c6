package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server     ServerConfig
	App        AppConfig
	LocalStore LocalStoreConfig
	Remote     RemoteConfig
	Sync       SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"127.0.0.1"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"borneostock-sync"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// LocalStoreConfig holds settings for the durable offline store.
type LocalStoreConfig struct {
	Type string `envconfig:"LOCAL_STORE_TYPE" default:"sqlite"` // sqlite, redis, or memory
	Path string `envconfig:"LOCAL_STORE_PATH" default:"./data/offline.db"`

	RedisHost      string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort      int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"borneostock:offline"`
}

// RemoteConfig holds settings for the cloud document database.
type RemoteConfig struct {
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"borneostock"`
	ItemsCollection string `envconfig:"MONGODB_ITEMS_COLLECTION" default:"inventory"`
	LogsCollection  string `envconfig:"MONGODB_LOGS_COLLECTION" default:"transactions"`
}

// SyncConfig holds connectivity-probe and drain settings.
type SyncConfig struct {
	ProbeURL      string        `envconfig:"SYNC_PROBE_URL" default:"https://clients3.google.com/generate_204"`
	ProbeInterval time.Duration `envconfig:"SYNC_PROBE_INTERVAL" default:"15s"`
	ProbeTimeout  time.Duration `envconfig:"SYNC_PROBE_TIMEOUT" default:"5s"`
	MaxAttempts   int           `envconfig:"SYNC_MAX_ATTEMPTS" default:"5"`
	DrainTimeout  time.Duration `envconfig:"SYNC_DRAIN_TIMEOUT" default:"2m"`
}

// RedisAddress returns the Redis address in host:port format.
func (l *LocalStoreConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", l.RedisHost, l.RedisPort)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
