package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"screenscan/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Identity  IdentityConfig
	Analysis  AnalysisConfig
	Storage   StorageConfig
	Dashboard DashboardConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port          string
	GinMode       string
	SessionSecret string
	PublicURL     string
	ClientIdleTTL time.Duration
}

// DatabaseConfig holds record store connection settings
type DatabaseConfig struct {
	Driver     string // postgres | sqlite
	URL        string
	SQLitePath string
}

// IdentityConfig holds identity provider (GoTrue) settings
type IdentityConfig struct {
	URL     string
	AnonKey string
}

// AnalysisConfig holds analysis service settings
type AnalysisConfig struct {
	URL           string
	Timeout       time.Duration
	MaxConcurrent int // requests in flight across all workspaces, 0 unlimited
}

// StorageConfig holds object storage settings
type StorageConfig struct {
	Backend       string // s3 | gcs | local | memory
	Bucket        string
	LocalDir      string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// DashboardConfig holds dashboard settings
type DashboardConfig struct {
	RecentLimit int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:    *loadServerConfig(),
		Database:  *loadDatabaseConfig(),
		Identity:  *loadIdentityConfig(),
		Analysis:  *loadAnalysisConfig(),
		Storage:   *loadStorageConfig(),
		Dashboard: DashboardConfig{RecentLimit: getEnvIntOrDefault("DASHBOARD_RECENT_LIMIT", 5)},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// LoadDatabase reads and validates only the record store settings, for tools that need nothing else
func LoadDatabase() (*DatabaseConfig, error) {
	db := loadDatabaseConfig()
	if err := validateDatabase(db); err != nil {
		return nil, err
	}
	return db, nil
}

func loadServerConfig() *ServerConfig {
	port := getEnvOrDefault("PORT", "8080")
	return &ServerConfig{
		Port:          port,
		GinMode:       getEnvOrDefault("GIN_MODE", "debug"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		PublicURL:     strings.TrimRight(getEnvOrDefault("PUBLIC_URL", "http://localhost:"+port), "/"),
		ClientIdleTTL: getEnvDurationOrDefault("CLIENT_IDLE_TTL", 2*time.Hour),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver:     strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres")),
		URL:        os.Getenv("DATABASE_URL"),
		SQLitePath: getEnvOrDefault("SQLITE_PATH", "screenscan.db"),
	}
}

func loadIdentityConfig() *IdentityConfig {
	base := strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	if base != "" && !strings.HasSuffix(base, "/auth/v1") {
		base += "/auth/v1"
	}
	return &IdentityConfig{
		URL:     base,
		AnonKey: os.Getenv("SUPABASE_ANON_KEY"),
	}
}

func loadAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		URL:           strings.TrimRight(os.Getenv("ANALYSIS_URL"), "/"),
		Timeout:       getEnvDurationOrDefault("ANALYSIS_TIMEOUT", 0),
		MaxConcurrent: getEnvIntOrDefault("ANALYSIS_MAX_CONCURRENT", 8),
	}
}

func loadStorageConfig() *StorageConfig {
	return &StorageConfig{
		Backend:       strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", "memory")),
		Bucket:        os.Getenv("STORAGE_BUCKET"),
		LocalDir:      getEnvOrDefault("STORAGE_LOCAL_DIR", "data/objects"),
		Region:        getEnvOrDefault("AWS_REGION", "us-east-1"),
		Endpoint:      os.Getenv("AWS_ENDPOINT_URL"),
		PublicBaseURL: strings.TrimRight(os.Getenv("STORAGE_PUBLIC_BASE_URL"), "/"),
	}
}

func validateDatabase(db *DatabaseConfig) error {
	switch db.Driver {
	case "postgres":
		if db.URL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the postgres driver")
		}
	case "sqlite":
		if db.SQLitePath == "" {
			return errors.ConfigInvalid("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return errors.ConfigInvalid("DB_DRIVER must be postgres or sqlite")
	}
	return nil
}

func validateConfig(config *Config) error {
	if err := validateDatabase(&config.Database); err != nil {
		return err
	}

	if config.Identity.URL == "" || config.Identity.AnonKey == "" {
		return errors.ConfigInvalid("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}
	if _, err := url.ParseRequestURI(config.Analysis.URL); err != nil {
		return errors.ConfigInvalid("ANALYSIS_URL must be an absolute URL")
	}

	switch config.Storage.Backend {
	case "memory":
	case "local":
		if strings.TrimSpace(config.Storage.LocalDir) == "" {
			return errors.ConfigInvalid("STORAGE_LOCAL_DIR is required for the local backend")
		}
	case "s3", "gcs":
		if config.Storage.Bucket == "" {
			return errors.ConfigInvalid("STORAGE_BUCKET is required when STORAGE_BACKEND is set")
		}
	default:
		return errors.ConfigInvalid("STORAGE_BACKEND must be s3, gcs, local or memory")
	}

	if config.Dashboard.RecentLimit <= 0 {
		return errors.ConfigInvalid("DASHBOARD_RECENT_LIMIT must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
