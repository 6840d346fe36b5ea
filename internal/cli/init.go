// Package cli implements the interactive command shell: process bootstrap,
// command tokenization, the role permission table, and dispatch into the
// ledger engine.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"spendbook/internal/config"
	applog "spendbook/internal/log"
	"spendbook/internal/storage"
)

// SetupLogger initializes structured logging at the configured level and
// installs it as the default logger.
func SetupLogger(level slog.Level) *applog.Logger {
	return applog.Setup(level)
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// ValidateConfig validates the effective configuration after any flag
// overrides, exiting the process on failure.
func ValidateConfig(logger *applog.Logger, cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
}

// InitStore opens the SQLite store at the given path.
// Returns the store or exits the process on failure.
func InitStore(logger *applog.Logger, dbPath string) *storage.Store {
	log := logger.WithComponent(applog.ComponentStorage)
	store, err := storage.New(dbPath)
	if err != nil {
		log.Error("Failed to initialize SQLite store", "error", err, "path", dbPath)
		os.Exit(1)
	}
	log.Info("SQLite store ready", "path", dbPath)
	return store
}
