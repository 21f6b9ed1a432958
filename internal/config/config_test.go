package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"GCP_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "GCS_BUCKET_NAME", "GCS_PREFIX",
	"CONCURRENT_JOBS", "PLANTSCAN_STORE", "PLANTSCAN_SQLITE_PATH", "PLANTSCAN_BLOB_DIR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, Config{
		GCSBucketName:  "plantscan-images",
		GCSPrefix:      "images",
		ConcurrentJobs: 4,
		Store:          StoreFirestore,
		SQLitePath:     "plantscan.db",
		BlobDir:        "plantscan-blobs",
	}, cfg)
	assert.Error(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GCP_PROJECT_ID", "lab")
	t.Setenv("CONCURRENT_JOBS", "16")
	t.Setenv("PLANTSCAN_STORE", "SQLite")
	t.Setenv("GCS_PREFIX", "cylinder")

	cfg := Load()
	assert.Equal(t, "lab", cfg.GCPProjectID)
	assert.Equal(t, 16, cfg.ConcurrentJobs)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "cylinder", cfg.GCSPrefix)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONCURRENT_JOBS", "many")
	assert.Equal(t, 4, Load().ConcurrentJobs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"firestore", Config{Store: StoreFirestore, GCPProjectID: "p", ConcurrentJobs: 1}, false},
		{"firestore without project", Config{Store: StoreFirestore, ConcurrentJobs: 1}, true},
		{"sqlite", Config{Store: StoreSQLite, SQLitePath: "x.db", ConcurrentJobs: 1}, false},
		{"sqlite without path", Config{Store: StoreSQLite, ConcurrentJobs: 1}, true},
		{"unknown store", Config{Store: "mongo", ConcurrentJobs: 1}, true},
		{"zero jobs", Config{Store: StoreSQLite, SQLitePath: "x.db"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("GCS_PREFIX"))
	t.Setenv("GCS_BUCKET_NAME", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GCS_PREFIX=dotenv\nGCS_BUCKET_NAME=from-file\n"), 0644))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	t.Cleanup(func() { os.Unsetenv("GCS_PREFIX") })

	cfg := Load()
	assert.Equal(t, "dotenv", cfg.GCSPrefix)
	// variables already set win
	assert.Equal(t, "from-env", cfg.GCSBucketName)
}
