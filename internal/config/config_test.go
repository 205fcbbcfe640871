package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schedule")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "30 3 * * *", cfg.ReconcileCron)
	assert.Equal(t, 60, cfg.ReconcileHorizonDays)
	assert.Equal(t, 10, cfg.DBMaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadFromYAMLFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9090"
database_url: "postgres://db/schedule"
reconcile_cron: "0 4 * * *"
reconcile_horizon_days: 14
db_conn_max_lifetime: 5m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "postgres://db/schedule", cfg.DatabaseURL)
	assert.Equal(t, "0 4 * * *", cfg.ReconcileCron)
	assert.Equal(t, 14, cfg.ReconcileHorizonDays)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, "info", cfg.LogLevel, "fields absent from the file keep their defaults")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9090"
database_url: "postgres://db/schedule"
`), 0o600))

	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("DATABASE_URL", "postgres://env/schedule")
	t.Setenv("RECONCILE_HORIZON_DAYS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "postgres://env/schedule", cfg.DatabaseURL)
	assert.Equal(t, 7, cfg.ReconcileHorizonDays)
}

func TestLoadMissingFileIsSkipped(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schedule")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadRejectsBadEnvValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schedule")
	t.Setenv("RECONCILE_HORIZON_DAYS", "soon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveHorizon(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schedule")
	t.Setenv("RECONCILE_HORIZON_DAYS", "-1")

	_, err := Load("")
	assert.Error(t, err)
}
