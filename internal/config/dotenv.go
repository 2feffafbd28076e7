package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from .env files, checking
// explicit paths first, then .env in the current directory, then
// ~/.env. Existing environment variables are never overwritten.
// Adapted from the teacher's v2/config.LoadDotEnv.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path != "" {
			if err := loadIfExists(path); err != nil {
				return err
			}
		}
	}
	if err := loadIfExists(".env"); err != nil {
		return err
	}
	if home, err := os.UserHomeDir(); err == nil {
		if err := loadIfExists(filepath.Join(home, ".env")); err != nil {
			return err
		}
	}
	return nil
}

func loadIfExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		slog.Debug("failed to load .env file", "path", path, "error", err)
		return nil
	}
	slog.Debug("loaded environment from .env", "path", path)
	return nil
}
