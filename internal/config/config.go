package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration. Values load from an
// optional YAML file first; environment variables override file values so
// deployments can keep one file and tweak per environment.
type Config struct {
	// HTTPAddr is the HTTP listen address.
	HTTPAddr string `yaml:"http_addr"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `yaml:"database_url"`

	LogLevel string `yaml:"log_level"`

	// ReconcileCron is a cron expression for the periodic session
	// reconciliation pass.
	ReconcileCron string `yaml:"reconcile_cron"`

	// ReconcileHorizonDays is how far ahead reconciliation scans.
	ReconcileHorizonDays int `yaml:"reconcile_horizon_days"`

	DBMaxOpenConns    int           `yaml:"db_max_open_conns"`
	DBMaxIdleConns    int           `yaml:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `yaml:"db_conn_max_lifetime"`
}

func defaults() Config {
	return Config{
		HTTPAddr:             ":8080",
		LogLevel:             "info",
		ReconcileCron:        "30 3 * * *",
		ReconcileHorizonDays: 60,
		DBMaxOpenConns:       10,
		DBMaxIdleConns:       5,
		DBConnMaxLifetime:    30 * time.Minute,
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, and validates.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return cfg, errors.New("database_url is required (DATABASE_URL)")
	}
	if cfg.ReconcileHorizonDays <= 0 {
		return cfg, errors.New("reconcile_horizon_days must be positive")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ReconcileCron = getEnv("RECONCILE_CRON", cfg.ReconcileCron)

	var err error
	if cfg.ReconcileHorizonDays, err = getEnvInt("RECONCILE_HORIZON_DAYS", cfg.ReconcileHorizonDays); err != nil {
		return err
	}
	if cfg.DBMaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns); err != nil {
		return err
	}
	if cfg.DBMaxIdleConns, err = getEnvInt("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns); err != nil {
		return err
	}
	if cfg.DBConnMaxLifetime, err = getEnvDuration("DB_CONN_MAX_LIFETIME", cfg.DBConnMaxLifetime); err != nil {
		return err
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return parsed, nil
}
