package config

import (
	"os"
	"testing"
	"time"
)

// unsetEnv clears key for the duration of the test. t.Setenv registers
// the restore; Unsetenv makes LookupEnv miss rather than see "".
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_HOST", "SERVER_PORT",
		"DATABASE_DSN", "MIGRATIONS_DIR",
		"REDIS_ADDRESS", "DATA_DIR",
		"ROUNDS_FILE", "DEFAULT_LANGUAGE",
		"CLEANUP_INTERVAL", "SESSION_MAX_AGE",
	} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	// No DSN by default: the server must come up without PostgreSQL.
	if cfg.Database.DSN != "" {
		t.Errorf("Database.DSN = %q, want empty", cfg.Database.DSN)
	}
	if cfg.Redis.Address != "" {
		t.Errorf("Redis.Address = %q, want empty", cfg.Redis.Address)
	}
	if cfg.Data.Dir != "./data" {
		t.Errorf("Data.Dir = %q, want ./data", cfg.Data.Dir)
	}
	if cfg.Game.DefaultLanguage != "en" {
		t.Errorf("Game.DefaultLanguage = %q, want en", cfg.Game.DefaultLanguage)
	}
	if cfg.Cleanup.Interval != 5*time.Minute {
		t.Errorf("Cleanup.Interval = %v, want 5m", cfg.Cleanup.Interval)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATABASE_DSN", "postgres://quiz:quiz@db:5432/quiz?sslmode=disable")
	t.Setenv("SESSION_MAX_AGE", "90m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Database.DSN != "postgres://quiz:quiz@db:5432/quiz?sslmode=disable" {
		t.Errorf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Cleanup.SessionMaxAge != 90*time.Minute {
		t.Errorf("Cleanup.SessionMaxAge = %v, want 90m", cfg.Cleanup.SessionMaxAge)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"no data dir", func(c *Config) { c.Data.Dir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{Port: 8080},
				Data:   DataConfig{Dir: "./data"},
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
