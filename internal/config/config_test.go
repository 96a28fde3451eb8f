package config

import (
	"testing"
	"time"

	"screenscan/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")
	t.Setenv("SUPABASE_URL", "https://demo.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("ANALYSIS_URL", "http://localhost:9000/")
	t.Setenv("STORAGE_BACKEND", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ANALYSIS_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicURL)
	assert.Equal(t, 2*time.Hour, cfg.Server.ClientIdleTTL)
	assert.Equal(t, "https://demo.supabase.co/auth/v1", cfg.Identity.URL)
	assert.Equal(t, "http://localhost:9000", cfg.Analysis.URL)
	assert.Equal(t, 45*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, 8, cfg.Analysis.MaxConcurrent)
	assert.Equal(t, 5, cfg.Dashboard.RecentLimit)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"postgres without url", "DB_DRIVER", "postgres"},
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"relative analysis url", "ANALYSIS_URL", "analysis"},
		{"bucketless s3", "STORAGE_BACKEND", "s3"},
		{"unknown storage", "STORAGE_BACKEND", "ftp"},
		{"local without dir", "STORAGE_BACKEND", "local"},
		{"zero recent limit", "DASHBOARD_RECENT_LIMIT", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("DATABASE_URL", "")
			t.Setenv("STORAGE_BUCKET", "")
			t.Setenv("STORAGE_LOCAL_DIR", " ")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
		})
	}
}

func TestLoadDatabaseIgnoresOtherSettings(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "local.db")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("ANALYSIS_URL", "")

	db, err := LoadDatabase()
	require.NoError(t, err)
	assert.Equal(t, "local.db", db.SQLitePath)

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err = LoadDatabase()
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}
