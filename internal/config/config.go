// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir  string // base directory for the league database, always absolute
	DBPath   string // full path to league.db
	LogLevel string
	Pretty   bool   // human-readable log output
	Port     int    // admin API port
	GCSpec   string // cron spec for the agreement GC sweep
}

// Load reads configuration from environment variables, honoring a local
// .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := os.Getenv("LEAGUE_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".leaguecore")
	}
	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	dbPath := os.Getenv("LEAGUE_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(absDir, "league.db")
	}

	port := 8090
	if raw := os.Getenv("LEAGUE_PORT"); raw != "" {
		port, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LEAGUE_PORT %q: %w", raw, err)
		}
	}

	gcSpec := os.Getenv("LEAGUE_GC_CRON")
	if gcSpec == "" {
		gcSpec = "@hourly"
	}

	return &Config{
		DataDir:  absDir,
		DBPath:   dbPath,
		LogLevel: getEnv("LEAGUE_LOG_LEVEL", "info"),
		Pretty:   os.Getenv("LEAGUE_LOG_PRETTY") == "1",
		Port:     port,
		GCSpec:   gcSpec,
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
