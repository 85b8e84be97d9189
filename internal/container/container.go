package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"partscatalog/sitemap/internal/catalog"
	"partscatalog/sitemap/internal/client"
	"partscatalog/sitemap/internal/config"
	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/repository"
	"partscatalog/sitemap/internal/server"
	"partscatalog/sitemap/internal/sitemap"
	"partscatalog/sitemap/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const shutdownTimeout = 10 * time.Second

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Repository   repository.CatalogRepository
	StateManager state.StateManager
	Orchestrator *sitemap.Orchestrator
	Pinger       client.Pinger
	Server       *server.Server
	Fs           afero.Fs

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
		Fs:     afero.NewOsFs(),
	}

	// Initialize repository
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("✅ Connected to PostgreSQL successfully")
	container.db = db

	catalogRepo := repository.NewCatalogRepository(db, cfg.Database.Table)
	container.Repository = catalogRepo

	var registry sitemap.RegistryFactory
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})

		// Test connection
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			rdb.Close()
			db.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		container.redis = rdb
		container.StateManager = state.NewRedisStateManager(rdb, cfg.Redis.KeyPrefix)
		registry = func(runID string) sitemap.Registry {
			return state.NewLocationRegistry(rdb, cfg.Redis.KeyPrefix, runID)
		}
	} else {
		log.Warn("⚠️ Redis disabled, run state is kept in memory")
		container.StateManager = state.NewMemoryStateManager()
	}

	paginator := catalog.NewPaginator(catalogRepo, cfg.Sitemap.BatchSize, cfg.Sitemap.BatchesPerSecond)
	resolver := catalog.NewResolver(catalogRepo, cfg.Sitemap.ResolveScanLimit)

	container.Orchestrator = sitemap.NewOrchestrator(
		catalogRepo,
		paginator,
		resolver,
		registry,
		container.StateManager,
		sitemap.Options{
			BaseURL:          cfg.Sitemap.BaseURL,
			ShardCapacity:    cfg.Sitemap.ShardCapacity,
			SampleSize:       cfg.Sitemap.SampleSize,
			StaticPages:      cfg.Sitemap.StaticPages,
			ProgressInterval: cfg.Sitemap.ProgressInterval,
		},
	)

	if cfg.Ping.Enabled {
		container.Pinger = client.NewPinger(cfg.Ping)
	}

	container.Server = server.New(cfg.Server, container.Orchestrator)

	return container, nil
}

// Generate runs a full batch generation into the configured output
// directory and pings search engines when it succeeds.
func (c *Container) Generate(ctx context.Context) (*domain.RunReport, error) {
	sink, err := sitemap.NewFileSink(c.Fs, c.Config.Sitemap.OutputDir)
	if err != nil {
		return nil, err
	}

	report, err := c.Orchestrator.Run(ctx, sink)
	if err != nil {
		return report, err
	}

	if c.Pinger != nil {
		c.Pinger.Ping(ctx, report.IndexURL)
	}
	return report, nil
}

// Serve runs the HTTP server until ctx is cancelled
func (c *Container) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Server.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("🛑 Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return c.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Status returns the report of the most recent batch run
func (c *Container) Status(ctx context.Context) (*domain.RunReport, error) {
	return c.StateManager.LastRun(ctx)
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	var errs []error
	if c.Pinger != nil {
		errs = append(errs, c.Pinger.Close())
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.db != nil {
		c.db.Close()
	}

	log.Info("Container shut down successfully")
	return errors.Join(errs...)
}
