package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for quiz-engine
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Data     DataConfig
	Game     GameConfig
	Cleanup  CleanupConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	DSN           string
	MigrationsDir string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// DataConfig holds catalog data configuration
type DataConfig struct {
	Dir string
}

// GameConfig holds game tuning configuration
type GameConfig struct {
	RoundsFile      string
	DefaultLanguage string
}

// CleanupConfig holds the stale-session worker configuration
type CleanupConfig struct {
	Interval      time.Duration
	SessionMaxAge time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			// Empty means run without PostgreSQL: session history
			// endpoints report persistence as disabled.
			DSN:           getEnv("DATABASE_DSN", ""),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		},
		Redis: RedisConfig{
			Address:   getEnv("REDIS_ADDRESS", ""),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "quiz"),
		},
		Data: DataConfig{
			Dir: getEnv("DATA_DIR", "./data"),
		},
		Game: GameConfig{
			RoundsFile:      getEnv("ROUNDS_FILE", ""),
			DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		},
		Cleanup: CleanupConfig{
			Interval:      getEnvAsDuration("CLEANUP_INTERVAL", 5*time.Minute),
			SessionMaxAge: getEnvAsDuration("SESSION_MAX_AGE", 24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Data.Dir == "" {
		return fmt.Errorf("data directory is required")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
