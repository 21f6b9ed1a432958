// Package config reads plantscan settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreFirestore = "firestore"
	StoreSQLite    = "sqlite"
)

type Config struct {
	GCPProjectID    string
	CredentialsFile string
	GCSBucketName   string
	GCSPrefix       string
	ConcurrentJobs  int
	Store           string
	SQLitePath      string
	BlobDir         string
}

// LoadDotEnv loads files (default ".env") into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func Load() Config {
	return Config{
		GCPProjectID:    getEnv("GCP_PROJECT_ID", ""),
		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GCSBucketName:   getEnv("GCS_BUCKET_NAME", "plantscan-images"),
		GCSPrefix:       getEnv("GCS_PREFIX", "images"),
		ConcurrentJobs:  getEnvInt("CONCURRENT_JOBS", 4),
		Store:           strings.ToLower(getEnv("PLANTSCAN_STORE", StoreFirestore)),
		SQLitePath:      getEnv("PLANTSCAN_SQLITE_PATH", "plantscan.db"),
		BlobDir:         getEnv("PLANTSCAN_BLOB_DIR", "plantscan-blobs"),
	}
}

// Validate checks settings that have no usable default
func (c Config) Validate() error {
	switch c.Store {
	case StoreFirestore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required for the %s store", StoreFirestore)
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("PLANTSCAN_SQLITE_PATH is required for the %s store", StoreSQLite)
		}
	default:
		return fmt.Errorf("unknown store %q (expected %s or %s)", c.Store, StoreFirestore, StoreSQLite)
	}
	if c.ConcurrentJobs < 1 {
		return fmt.Errorf("CONCURRENT_JOBS must be >= 1, got %d", c.ConcurrentJobs)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
