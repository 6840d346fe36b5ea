package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Logging
	LogLevel string

	// First-run bootstrap account, created only when the user table is empty
	AdminUsername string
	AdminPassword string
}

func Load() *Config {
	return &Config{
		SQLiteDBPath:  getEnv("SPENDBOOK_DB_PATH", "./data/spendbook.db"),
		LogLevel:      getEnv("SPENDBOOK_LOG_LEVEL", "info"),
		AdminUsername: getEnv("SPENDBOOK_ADMIN_USER", "admin"),
		AdminPassword: getEnv("SPENDBOOK_ADMIN_PASSWORD", "changeme-now"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if _, err := c.SlogLevel(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.AdminUsername == "" {
		errors = append(errors, "admin username cannot be empty")
	}
	if len(c.AdminPassword) < 8 {
		errors = append(errors, "admin password must be at least 8 characters")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
