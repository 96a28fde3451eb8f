package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"screenscan/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", PublicURL: "http://localhost:8080", ClientIdleTTL: time.Hour},
		Database:  config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "c.db")},
		Identity:  config.IdentityConfig{URL: "http://localhost:9999/auth/v1", AnonKey: "anon"},
		Analysis:  config.AnalysisConfig{URL: "http://localhost:9000", Timeout: time.Second},
		Storage:   config.StorageConfig{Backend: "memory"},
		Dashboard: config.DashboardConfig{RecentLimit: 5},
	}
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestInitLocalStack(t *testing.T) {
	c, err := New(localConfig(t), nil)
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	defer c.Close()

	assert.NotNil(t, c.Gorm)
	assert.Nil(t, c.DB)
	require.NotNil(t, c.Objects)
	assert.Equal(t, "http://localhost:8080/objects/a.png", c.Storage.PublicURL("a.png"))

	client := c.Clients.Create(context.Background())
	assert.Equal(t, 1, c.Clients.Len())
	_, err = client.Dashboard(context.Background())
	assert.Error(t, err, "anonymous workspace must not read records")
}

func TestOpenRecordStoreUnknownDriver(t *testing.T) {
	_, err := OpenRecordStore(context.Background(), config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestInitRejectsUnknownStorage(t *testing.T) {
	cfg := localConfig(t)
	cfg.Storage.Backend = "ftp"
	c, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Error(t, c.Init(context.Background()))
	assert.NoError(t, c.Close())
}
