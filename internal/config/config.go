package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	// DefaultJWTSecret is only accepted with the in-memory driver.
	DefaultJWTSecret = "change-me-in-production"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort    string
	StorageDriver string
	AutoMigrate   bool

	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	BcryptCost int

	DefaultPageSize int
	MaxPageSize     int
	ImageBaseURL    string

	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; variables already set win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "campus_market"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ServerPort:    getEnv("SERVER_PORT", "8080"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		AutoMigrate:   getBool("AUTO_MIGRATE", true),

		JWTSecret: getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTIssuer: getEnv("JWT_ISSUER", "campus-market"),
		TokenTTL:  getDuration("TOKEN_TTL", 30*24*time.Hour),

		BcryptCost: getInt("BCRYPT_COST", 12),

		DefaultPageSize: getInt("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:     getInt("MAX_PAGE_SIZE", 100),
		ImageBaseURL:    getEnv("IMAGE_BASE_URL", "/uploads/"),

		LogLevel:        getLevel("LOG_LEVEL", slog.LevelInfo),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// GetDBConnectionString returns the lib/pq connection string.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.UsesDefaultSecret() && c.StorageDriver == StorageDriverPostgres {
		return fmt.Errorf("JWT_SECRET must be set when STORAGE_DRIVER is postgres")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be at least 1")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be between 1 and MAX_PAGE_SIZE")
	}
	return nil
}

func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getLevel(key string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv(key, ""))); err != nil {
		return fallback
	}
	return level
}
