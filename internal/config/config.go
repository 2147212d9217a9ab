// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for databases and backup archives (always absolute)
	Port     int
	LogLevel string
	DevMode  bool
	Backup   *BackupConfig
}

// BackupConfig holds S3 backup configuration. Backups are disabled when
// no bucket is configured.
type BackupConfig struct {
	Bucket       string
	Prefix       string
	Endpoint     string // Custom S3 endpoint (R2, MinIO); empty for AWS
	Region       string
	Schedule     string // Cron expression for scheduled backups
	MaxSnapshots int    // Remote snapshots kept per database
}

// Enabled reports whether backups should run.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Resolve the data directory to an absolute path and make sure it
	// exists before any database is opened under it.
	dataDir := getEnv("ORQUESTRA_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8040),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Backup:   loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// loadBackupConfig loads S3 backup configuration from the environment
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Bucket:       getEnv("BACKUP_S3_BUCKET", ""),
		Prefix:       getEnv("BACKUP_S3_PREFIX", "orquestra"),
		Endpoint:     getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:       getEnv("BACKUP_S3_REGION", "auto"),
		Schedule:     getEnv("BACKUP_SCHEDULE", "0 3 * * *"), // Daily at 03:00
		MaxSnapshots: getEnvAsInt("BACKUP_MAX_SNAPSHOTS", 14),
	}
}
