package container

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"screenscan/adapters/analysis"
	"screenscan/adapters/identity"
	"screenscan/adapters/objectstore"
	"screenscan/adapters/postgres"
	"screenscan/adapters/sqlite"
	"screenscan/app"
	"screenscan/internal"
	"screenscan/internal/api"
	"screenscan/internal/clients"
	"screenscan/internal/config"
	"screenscan/internal/migration"
	"screenscan/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/gorm"
)

// identityTimeout bounds each call to the identity provider
const identityTimeout = 15 * time.Second

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB   *sqlx.DB // postgres driver
	Gorm *gorm.DB // sqlite driver

	// Adapters
	Records  ports.RecordStore
	Storage  ports.ObjectStorage
	Objects  objectstore.Reader // set for the local and memory backends
	Analysis ports.AnalysisService

	// Workspace components
	Previews *app.PreviewStore
	SSEHub   *api.SSEHub
	Clients  *clients.Registry

	identityHTTP *http.Client
	closers      []func() error
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	return &Container{
		Config:       cfg,
		Logger:       logger,
		identityHTTP: &http.Client{Timeout: identityTimeout},
	}, nil
}

// Init connects the record store and object storage and assembles the workspace registry
func (c *Container) Init(ctx context.Context) error {
	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize record store: %w", err)
	}

	if err := c.initStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	c.initWorkspaces()

	log.Printf("Container initialized (db=%s, storage=%s)", c.Config.Database.Driver, c.Config.Storage.Backend)
	return nil
}

// initDatabase opens the configured record store and brings its schema up to date
func (c *Container) initDatabase(ctx context.Context) error {
	store, err := OpenRecordStore(ctx, c.Config.Database)
	if err != nil {
		return err
	}
	c.DB, c.Gorm, c.Records = store.SQL, store.Gorm, store.Records
	c.closers = append(c.closers, store.Close)
	return nil
}

// RecordStore is an opened record store with its underlying connection
type RecordStore struct {
	Records ports.RecordStore
	SQL     *sqlx.DB // postgres driver
	Gorm    *gorm.DB // sqlite driver
}

// Close releases the connection
func (r *RecordStore) Close() error {
	if r.SQL != nil {
		return r.SQL.Close()
	}
	if r.Gorm != nil {
		sqlDB, err := r.Gorm.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// OpenRecordStore connects the driver named by cfg and migrates its schema
func OpenRecordStore(ctx context.Context, cfg config.DatabaseConfig) (*RecordStore, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		if err := migration.NewRunner().Run(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &RecordStore{Records: postgres.NewInspectionRepository(db), SQL: db}, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &RecordStore{Records: sqlite.NewInspectionRepository(db), Gorm: db}, nil

	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// initStorage selects the object storage backend
func (c *Container) initStorage(ctx context.Context) error {
	cfg := c.Config.Storage
	switch cfg.Backend {
	case "s3":
		store, err := objectstore.NewS3Store(ctx, objectstore.S3Options{
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			Endpoint:      cfg.Endpoint,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return err
		}
		c.Storage = store

	case "gcs":
		store, err := objectstore.NewGCSStore(ctx, cfg.Bucket, cfg.PublicBaseURL, c.Logger)
		if err != nil {
			return err
		}
		c.Storage = store
		c.closers = append(c.closers, store.Close)

	case "local":
		store, err := objectstore.NewLocalStore(cfg.LocalDir, c.Config.Server.PublicURL+"/objects")
		if err != nil {
			return err
		}
		c.Objects, c.Storage = store, store

	case "memory":
		store := objectstore.NewMemoryStore(c.Config.Server.PublicURL + "/objects")
		c.Objects, c.Storage = store, store

	default:
		return fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	return nil
}

func (c *Container) initWorkspaces() {
	c.Analysis = analysis.NewLimited(
		analysis.NewClient(c.Config.Analysis.URL, c.Config.Analysis.Timeout),
		int64(c.Config.Analysis.MaxConcurrent))
	c.Previews = app.NewPreviewStore()
	c.SSEHub = api.NewSSEHub()

	base := app.ClientDeps{
		Analysis:    c.Analysis,
		Storage:     c.Storage,
		Records:     c.Records,
		Previews:    c.Previews,
		ObjectKey:   objectstore.ObjectKey,
		AvatarKey:   objectstore.AvatarKey,
		Timeout:     c.Config.Analysis.Timeout,
		RecentLimit: c.Config.Dashboard.RecentLimit,
		Logger:      c.Logger,
	}
	c.Clients = clients.NewRegistry(clients.NewFactory(base, c.newIdentity, c.SSEHub),
		c.Config.Server.ClientIdleTTL, c.Logger)
}

// newIdentity gives every workspace its own GoTrue session over the shared HTTP client
func (c *Container) newIdentity() ports.IdentityProvider {
	return identity.NewGoTrue(c.Config.Identity.URL, c.Config.Identity.AnonKey, c.identityHTTP, c.Logger)
}

// Close releases database connections and storage clients
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
