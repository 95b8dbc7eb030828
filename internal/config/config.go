package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config selects the slot-store backend and CLI behavior. Everything
// comes from the environment; a .env file is loaded by the entry point.
type Config struct {
	StoreBackend string // memory | file | sqlite | postgres
	DataDir      string
	SQLitePath   string
	DatabaseURL  string
	WriteDelay   time.Duration // artificial latency around writes, UX only
	Debug        bool
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		StoreBackend: strings.ToLower(envDefault("SCW_STORE", "file")),
		DataDir:      envDefault("SCW_DATA_DIR", ""),
		SQLitePath:   envDefault("SCW_SQLITE_PATH", ""),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		WriteDelay:   envDurationDefault("SCW_WRITE_DELAY", 400*time.Millisecond),
		Debug:        envBoolDefault("SCW_DEBUG", false),
	}
	switch cfg.StoreBackend {
	case "memory", "file":
	case "sqlite":
		if cfg.SQLitePath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return cfg, err
			}
			cfg.SQLitePath = filepath.Join(home, ".scw", "scootwatch.db")
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o700); err != nil {
				return cfg, err
			}
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required when SCW_STORE=postgres")
		}
	default:
		return cfg, fmt.Errorf("unknown SCW_STORE %q (want memory, file, sqlite, or postgres)", cfg.StoreBackend)
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
