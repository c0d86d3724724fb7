package bootstrap

import (
	"context"
	"log/slog"
	"os"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/adapters/archive"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/adapters/cache"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/adapters/gtfs"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/adapters/postgres"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/application"
	"github.com/AlesonDEV/Api.FreeCity.Services/internal/ports"
	"gorm.io/gorm"

	_ "time/tzdata"
)

// Core is the storage-backed feed service shared by every entrypoint.
type Core struct {
	Config  Config
	Logger  *slog.Logger
	Service *application.Service
	Repos   postgres.Repositories

	closers []func() error
}

func NewLogger(cfg Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning,
			"module", "bootstrap.config",
			"layer", "platform",
			"operation", "load_config",
		)
	}
	return logger
}

func NewCore(ctx context.Context, cfg Config, logger *slog.Logger) (*Core, error) {
	db, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	core := &Core{Config: cfg, Logger: logger}
	core.closers = append(core.closers, func() error { return postgres.Close(db) })

	var cacheStore ports.Cache = cache.NoopCache{}
	var lock ports.ImportLock = cache.NewLocalImportLock()
	if cfg.RedisURL != "" {
		redisClient, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			logger.WarnContext(ctx, "redis unavailable, read cache and shared import lock disabled",
				"module", "bootstrap.core",
				"layer", "platform",
				"error", redisErr,
			)
		} else {
			cacheStore = cache.NewRedisCache(redisClient)
			lock = cache.NewRedisImportLock(redisClient)
			core.closers = append(core.closers, redisClient.Close)
		}
	}

	var archiveStore ports.ArchiveStore = archive.NoopStore{}
	if cfg.ArchiveEnabled() {
		minioStore, archiveErr := archive.NewMinioStore(archive.Config{
			Endpoint:  cfg.ArchiveEndpoint,
			Bucket:    cfg.ArchiveBucket,
			AccessKey: cfg.ArchiveAccessKey,
			SecretKey: cfg.ArchiveSecretKey,
			UseSSL:    cfg.ArchiveUseSSL,
			Region:    cfg.ArchiveRegion,
		})
		if archiveErr != nil {
			logger.WarnContext(ctx, "feed archive disabled",
				"module", "bootstrap.core",
				"layer", "platform",
				"error", archiveErr,
			)
		} else {
			archiveStore = minioStore
		}
	}

	repos := postgres.NewRepositories(db)
	core.Repos = repos
	core.Service = application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:    cfg.ServiceID,
			FeedURL:        cfg.FeedURL,
			UpdateInterval: cfg.UpdateInterval,
			Location:       cfg.Location,
			CacheTTL:       cfg.CacheTTL,
			ImportLockTTL:  cfg.ImportLockTTL,
		},
		Logger:   logger,
		Source:   gtfs.NewDownloader(logger, cfg.DownloadTimeout),
		Parser:   gtfs.NewParser(logger),
		Archive:  archiveStore,
		Feed:     repos.Feed,
		Reads:    repos.Reads,
		Schedule: repos.Schedule,
		Cache:    cacheStore,
		Lock:     lock,
	})
	return core, nil
}

// Close releases connections in reverse order of acquisition.
func (c *Core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}

// Migrate applies pending schema migrations and returns the resulting version.
func Migrate(ctx context.Context, cfg Config, logger *slog.Logger) (uint, error) {
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return 0, err
	}
	defer func() { _ = postgres.Close(db) }()
	return runMigrations(ctx, db, logger)
}

func connectDatabase(ctx context.Context, cfg Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	if !cfg.AutoMigrate {
		return db, nil
	}
	if _, err := runMigrations(ctx, db, logger); err != nil {
		_ = postgres.Close(db)
		return nil, err
	}
	return db, nil
}

func runMigrations(ctx context.Context, db *gorm.DB, logger *slog.Logger) (uint, error) {
	version, err := postgres.RunMigrations(ctx, db)
	if err != nil {
		logger.ErrorContext(ctx, "schema migration failed",
			"module", "bootstrap.core",
			"layer", "platform",
			"operation", "run_migrations",
			"outcome", "failure",
			"error", err,
		)
		return 0, err
	}
	logger.InfoContext(ctx, "schema migrated",
		"module", "bootstrap.core",
		"layer", "platform",
		"operation", "run_migrations",
		"outcome", "success",
		"version", version,
	)
	return version, nil
}
