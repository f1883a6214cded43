package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_HOST", "SERVER_PORT", "STORAGE_DRIVER", "JWT_SECRET", "TOKEN_TTL", "MAX_PAGE_SIZE", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 30*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.Error(t, cfg.Validate())

	t.Setenv("JWT_SECRET", "local-secret")
	cfg = Load()
	assert.False(t, cfg.UsesDefaultSecret())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("DEFAULT_PAGE_SIZE", "20")
	t.Setenv("MAX_PAGE_SIZE", "50")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, 50, cfg.MaxPageSize)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Contains(t, cfg.GetDBConnectionString(), "host=db.internal port=6543")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			StorageDriver:   StorageDriverMemory,
			JWTSecret:       "s",
			TokenTTL:        time.Hour,
			BcryptCost:      4,
			DefaultPageSize: 10,
			MaxPageSize:     100,
		}
	}
	require.NoError(t, base().Validate())

	cfg := base()
	cfg.StorageDriver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.JWTSecret = DefaultJWTSecret
	assert.NoError(t, cfg.Validate())
	cfg.StorageDriver = StorageDriverPostgres
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.BcryptCost = 2
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DefaultPageSize = 200
	assert.Error(t, cfg.Validate())
}
