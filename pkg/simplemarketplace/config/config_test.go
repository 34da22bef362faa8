package config_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace/config"
)

func defaultConfig() config.ServerConfig {
	return config.ServerConfig{
		Port:           "8080",
		Environment:    "development",
		DatabaseType:   "memory",
		StorageBackend: "memory",
		SessionSlot:    "memory",
		JWTSecret:      "test-secret",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*config.ServerConfig)
		expectError bool
	}{
		{"defaults valid", func(c *config.ServerConfig) {}, false},
		{"missing port", func(c *config.ServerConfig) { c.Port = "" }, true},
		{"bad database type", func(c *config.ServerConfig) { c.DatabaseType = "mysql" }, true},
		{"postgres needs url", func(c *config.ServerConfig) { c.DatabaseType = "postgres" }, true},
		{"postgres with url", func(c *config.ServerConfig) {
			c.DatabaseType = "postgres"
			c.DatabaseURL = "postgres://localhost/app"
		}, false},
		{"bad storage backend", func(c *config.ServerConfig) { c.StorageBackend = "ftp" }, true},
		{"s3 needs bucket", func(c *config.ServerConfig) { c.StorageBackend = "s3" }, true},
		{"s3 with bucket", func(c *config.ServerConfig) {
			c.StorageBackend = "s3"
			c.S3.Bucket = "bucket"
		}, false},
		{"bad session slot", func(c *config.ServerConfig) { c.SessionSlot = "redis" }, true},
		{"missing jwt secret", func(c *config.ServerConfig) { c.JWTSecret = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, "memory", cfg.SessionSlot)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "fs")
	t.Setenv("FS_BASE_DIR", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "fs", cfg.StorageBackend)
}

func TestBuildServicesMemory(t *testing.T) {
	cfg := defaultConfig()

	services, err := cfg.BuildServices(context.Background(), slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, services.Repository)
	assert.NotNil(t, services.BlobStore)
	assert.NotNil(t, services.Blobs)
	assert.NotNil(t, services.Posts)
	assert.NotNil(t, services.Auth)
	assert.NotNil(t, services.Sessions)
}

func TestBuildServicesWiresSessionSlot(t *testing.T) {
	ctx := context.Background()
	cfg := defaultConfig()
	cfg.SessionSlot = "file"
	cfg.SessionSlotPath = filepath.Join(t.TempDir(), "session.json")

	services, err := cfg.BuildServices(ctx, slog.Default())
	require.NoError(t, err)

	identity, err := services.Auth.SignUp(ctx, simplemarketplace.SignUpRequest{
		Email:       "alice@example.com",
		Password:    "s3cret!!",
		DisplayName: "alice",
	})
	require.NoError(t, err)

	mirrored := services.Sessions.Get()
	require.NotNil(t, mirrored)
	assert.Equal(t, identity.UserID, mirrored.UserID)

	// A fresh composition over the same slot hydrates the persisted session.
	rebuilt, err := cfg.BuildServices(ctx, slog.Default())
	require.NoError(t, err)
	restored := rebuilt.Sessions.Get()
	require.NotNil(t, restored)
	assert.Equal(t, identity.UserID, restored.UserID)
	assert.Equal(t, "alice", restored.DisplayName)
}

func TestBuildBlobStoreFS(t *testing.T) {
	cfg := defaultConfig()
	cfg.StorageBackend = "fs"
	cfg.FS.BaseDir = filepath.Join(t.TempDir(), "storage")

	store, err := cfg.BuildBlobStore()
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestBuildSessionSlotFile(t *testing.T) {
	cfg := defaultConfig()
	cfg.SessionSlot = "file"
	cfg.SessionSlotPath = filepath.Join(t.TempDir(), "session.json")

	slot, err := cfg.BuildSessionSlot()
	require.NoError(t, err)
	assert.NotNil(t, slot)
}
