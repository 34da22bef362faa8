package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace/provider/local"
	repomemory "github.com/tendant/simple-marketplace/pkg/simplemarketplace/repo/memory"
	repopg "github.com/tendant/simple-marketplace/pkg/simplemarketplace/repo/postgres"
	slotfile "github.com/tendant/simple-marketplace/pkg/simplemarketplace/sessionslot/file"
	slotmemory "github.com/tendant/simple-marketplace/pkg/simplemarketplace/sessionslot/memory"
	fsstorage "github.com/tendant/simple-marketplace/pkg/simplemarketplace/storage/fs"
	memorystorage "github.com/tendant/simple-marketplace/pkg/simplemarketplace/storage/memory"
	s3storage "github.com/tendant/simple-marketplace/pkg/simplemarketplace/storage/s3"
)

// ServerConfig represents server configuration for the marketplace service.
// Values come from the environment; defaults give a self-contained in-memory
// deployment.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Database configuration
	DatabaseType  string `env:"DATABASE_TYPE" env-default:"memory"` // "memory", "postgres"
	DatabaseURL   string `env:"DATABASE_URL"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" env-default:"true"`

	// Storage configuration
	StorageBackend string `env:"STORAGE_BACKEND" env-default:"memory"` // "memory", "fs", "s3"
	FS             FSConfig
	S3             S3Config

	// Session configuration
	SessionSlot     string `env:"SESSION_SLOT" env-default:"memory"` // "memory", "file"
	SessionSlotPath string `env:"SESSION_SLOT_PATH" env-default:"./data/session.json"`
	JWTSecret       string `env:"JWT_SECRET" env-default:"dev-secret-change-me"`

	UploadCompensation bool `env:"UPLOAD_COMPENSATION" env-default:"false"`
}

// FSConfig configures the filesystem storage backend.
type FSConfig struct {
	BaseDir   string `env:"FS_BASE_DIR" env-default:"./data/storage"`
	URLPrefix string `env:"FS_URL_PREFIX"`
}

// S3Config configures the S3 storage backend.
type S3Config struct {
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	Bucket          string `env:"AWS_S3_BUCKET"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	switch c.StorageBackend {
	case "memory", "fs":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend type: %s", c.StorageBackend)
	}
	switch c.SessionSlot {
	case "memory", "file":
	default:
		return fmt.Errorf("unsupported session slot type: %s", c.SessionSlot)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	return nil
}

// Services bundles the wired application services.
type Services struct {
	Repository simplemarketplace.Repository
	BlobStore  simplemarketplace.BlobStore
	Blobs      *simplemarketplace.BlobCoordinator
	Posts      *simplemarketplace.PostService
	Auth       *simplemarketplace.AuthBridge
	Sessions   *simplemarketplace.SessionCache
}

// BuildServices wires repository, blob store, session cache and the services
// on top of them according to the configuration. The session cache is
// hydrated from the configured slot and attached to the auth bridge, so a
// session persisted by an earlier process is restored here.
func (c *ServerConfig) BuildServices(ctx context.Context, logger *slog.Logger) (*Services, error) {
	repo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.BuildBlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	slot, err := c.BuildSessionSlot()
	if err != nil {
		return nil, fmt.Errorf("failed to build session slot: %w", err)
	}

	blobs := simplemarketplace.NewBlobCoordinator(store)
	sessions := simplemarketplace.NewSessionCache(slot, logger)
	sessions.Hydrate(ctx)

	postOpts := []simplemarketplace.PostOption{simplemarketplace.WithPostLogger(logger)}
	if c.UploadCompensation {
		postOpts = append(postOpts, simplemarketplace.WithUploadCompensation())
	}
	posts := simplemarketplace.NewPostService(repo, blobs, postOpts...)

	auth := simplemarketplace.NewAuthBridge(local.New(logger), repo, blobs,
		simplemarketplace.WithAuthLogger(logger),
		simplemarketplace.WithSessionCache(sessions))

	return &Services{
		Repository: repo,
		BlobStore:  store,
		Blobs:      blobs,
		Posts:      posts,
		Auth:       auth,
		Sessions:   sessions,
	}, nil
}

// BuildRepository creates a Repository based on the configuration, applying
// the embedded migrations for postgres when enabled.
func (c *ServerConfig) BuildRepository(ctx context.Context) (simplemarketplace.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		if c.RunMigrations {
			if err := repopg.Migrate(ctx, pool); err != nil {
				return nil, err
			}
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// BuildBlobStore creates a BlobStore based on the configuration.
func (c *ServerConfig) BuildBlobStore() (simplemarketplace.BlobStore, error) {
	switch c.StorageBackend {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.FS.BaseDir,
			URLPrefix: c.FS.URLPrefix,
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageBackend)
	}
}

// BuildSessionSlot creates a SessionSlot based on the configuration.
func (c *ServerConfig) BuildSessionSlot() (simplemarketplace.SessionSlot, error) {
	switch c.SessionSlot {
	case "memory":
		return slotmemory.New(), nil
	case "file":
		return slotfile.New(c.SessionSlotPath)
	default:
		return nil, fmt.Errorf("unsupported session slot type: %s", c.SessionSlot)
	}
}
