package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreInMemory = "inmemory"

	DriverPQ  = "postgres"
	DriverPgx = "pgx"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Store         string
	Database      DatabaseConfig
	HTTP          HTTPConfig
	LogLevel      slog.Level
	Notifications NotificationsConfig
}

type DatabaseConfig struct {
	Driver         string
	URL            string
	MigrationsPath string
	MaxOpenConns   int
}

type HTTPConfig struct {
	Port           int
	RequestTimeout time.Duration
}

type NotificationsConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// Load reads the optional env files (".env" when none is given) into the
// environment and builds the configuration from it. Variables already set
// in the environment win over the files. Invalid values are reported, never
// replaced by defaults.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	var err error
	cfg := Config{}

	cfg.Store = stringVar("LIBRARY_STORE", StorePostgres)
	if cfg.Store != StorePostgres && cfg.Store != StoreInMemory {
		return Config{}, fmt.Errorf("%w: LIBRARY_STORE must be %s or %s, got %q", ErrInvalidConfig, StorePostgres, StoreInMemory, cfg.Store)
	}

	cfg.Database.Driver = stringVar("DATABASE_DRIVER", DriverPQ)
	if cfg.Database.Driver != DriverPQ && cfg.Database.Driver != DriverPgx {
		return Config{}, fmt.Errorf("%w: DATABASE_DRIVER must be %s or %s, got %q", ErrInvalidConfig, DriverPQ, DriverPgx, cfg.Database.Driver)
	}
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Store == StorePostgres && cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("%w: DATABASE_URL is required for the %s store", ErrInvalidConfig, StorePostgres)
	}
	cfg.Database.MigrationsPath = stringVar("DATABASE_MIGRATIONS_PATH", "migrations")
	if cfg.Database.MaxOpenConns, err = positiveIntVar("DATABASE_MAX_OPEN_CONNS", 50); err != nil {
		return Config{}, err
	}

	if cfg.HTTP.Port, err = positiveIntVar("HTTP_PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.HTTP.RequestTimeout, err = durationVar("HTTP_REQUEST_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	if raw, ok := os.LookupEnv("LOG_LEVEL"); ok && raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return Config{}, fmt.Errorf("%w: LOG_LEVEL: %v", ErrInvalidConfig, err)
		}
	} else {
		cfg.LogLevel = slog.LevelInfo
	}

	if raw, ok := os.LookupEnv("NOTIFICATIONS_ENABLED"); ok && raw != "" {
		if cfg.Notifications.Enabled, err = strconv.ParseBool(raw); err != nil {
			return Config{}, fmt.Errorf("%w: NOTIFICATIONS_ENABLED: %v", ErrInvalidConfig, err)
		}
	}
	cfg.Notifications.BaseURL = stringVar("NOTIFICATIONS_BASE_URL", "https://ntfy.sh")
	if cfg.Notifications.Timeout, err = durationVar("NOTIFICATIONS_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func stringVar(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func positiveIntVar(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidConfig, key, raw)
	}
	return v, nil
}

/* Durations carry a unit suffix, like "5s". */
func durationVar(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive duration, got %q", ErrInvalidConfig, key, raw)
	}
	return v, nil
}
