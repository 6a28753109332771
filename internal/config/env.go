package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads the first readable .env file. godotenv.Load never
// overrides variables already set in the process environment.
func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err == nil {
			return
		}
	}
}

// applyEnvOverrides lets the environment win over the file for the
// settings most often changed per invocation.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JAVABUILD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = NormalizeLogLevel(v)
	}
	if v := os.Getenv("JAVABUILD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = NormalizeLogFormat(v)
	}
	if v := strings.TrimSpace(os.Getenv("JAVABUILD_STORE_PATH")); v != "" {
		cfg.Store.Path = v
	}
}
