package cmd

import (
	"context"
	"fmt"

	"staysync/core/config"
	"staysync/core/database"
	"staysync/core/events"
	"staysync/core/ics"
	"staysync/core/logger"
	"staysync/core/policy"
	"staysync/core/reconcile"
	"staysync/core/storage"
	"staysync/core/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime bundles the components shared by the server and the CLI commands.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	store   *store.GormStore
	storage storage.Client
	engine  *reconcile.Engine

	closers []func() error
}

// loadRuntime loads configuration, builds the logger and connects to the database.
// The engine and its optional backends are built by withEngine.
func loadRuntime() (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection required: %w", err)
	}

	rt := &runtime{
		cfg:    cfg,
		logger: logg,
		db:     db,
		store:  store.New(db),
	}
	rt.closers = append(rt.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			rt.Close()
			return nil, err
		}
		logg.Info("Database schema migrated")
	}

	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		rt.storage = client
	}

	return rt, nil
}

// withEngine wires the reconciliation engine. Redis, the broker and the run
// archive are optional; an unreachable backend is logged and left out.
func (rt *runtime) withEngine(ctx context.Context) error {
	opts, err := reconcile.OptionsFromConfig(rt.cfg.Sync)
	if err != nil {
		return err
	}

	fetcher := ics.NewFetcher(rt.cfg.Fetch, rt.logger)
	source := ics.NewSource(fetcher, rt.cfg.Fetch)

	var engineOpts []reconcile.EngineOption

	if rt.cfg.Redis.Enabled {
		rdb, err := policy.NewRedisClient(rt.cfg.Redis)
		if err != nil {
			rt.logger.Warn("Sync policy disabled, redis unavailable", zap.Error(err))
		} else {
			rt.closers = append(rt.closers, rdb.Close)
			engineOpts = append(engineOpts, reconcile.WithPolicy(policy.NewRedisPolicy(rdb, rt.cfg.Redis)))
		}
	}

	if rt.cfg.Broker.Enabled {
		pub, err := events.NewPublisher(rt.cfg.Broker, rt.logger)
		if err != nil {
			// Publish reconnects lazily, so a later broker start is picked up.
			rt.logger.Warn("Broker unavailable at startup", zap.Error(err))
			pub = events.NewLazyPublisher(rt.cfg.Broker, rt.logger)
		}
		rt.closers = append(rt.closers, pub.Close)
		engineOpts = append(engineOpts, reconcile.WithPublisher(pub))
	} else {
		engineOpts = append(engineOpts, reconcile.WithPublisher(events.Nop{}))
	}

	if rt.storage != nil && rt.cfg.Sync.ArchiveRuns {
		archiver := storage.NewArchiver(rt.storage, rt.cfg.Storage)
		if err := archiver.EnsureBucket(ctx); err != nil {
			rt.logger.Warn("Run archive disabled", zap.Error(err))
		} else {
			engineOpts = append(engineOpts, reconcile.WithArchiver(archiver))
		}
	}

	rt.engine = reconcile.NewEngine(rt.store, source, rt.logger, opts, engineOpts...)
	return nil
}

// Close releases every connection in reverse order of creation.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	rt.closers = nil
	_ = rt.logger.Sync()
}
