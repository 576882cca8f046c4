// Command api runs the cache service: the in-memory cache engine, the
// performance monitor and the admin HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cafemenu-cache/internal/cache"
	"cafemenu-cache/internal/catalog"
	"cafemenu-cache/internal/config"
	"cafemenu-cache/internal/handlers"
	"cafemenu-cache/internal/monitor"
	"cafemenu-cache/internal/observability"
	"cafemenu-cache/internal/repository"
)

func main() {
	cfg := config.MustLoad()

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	store := repository.NewMemoryStore()
	seedDemoCatalog(store)

	memCache := cache.NewMemoryCache(cache.Options{
		DefaultTTL:    cfg.Cache.DefaultTTL.Std(),
		SweepInterval: cfg.Cache.SweepInterval.Std(),
		Logger:        logger,
	})
	tracker := cache.NewAccessTracker(nil)
	collector := observability.NewCollector("cafemenu", func() float64 {
		return float64(memCache.Size())
	})

	manager := catalog.NewProductCacheManager(memCache, tracker, store, store, collector, catalog.ManagerOptions{
		ChunkSize:          cfg.Chunking.ChunkSize,
		MaxResidentChunks:  cfg.Chunking.MaxResidentChunks,
		ChunkTTL:           cfg.Chunking.ChunkTTL.Std(),
		PopularTTL:         cfg.Chunking.PopularTTL.Std(),
		IndexTTL:           cfg.Chunking.IndexTTL.Std(),
		PopularSearchLimit: cfg.Chunking.PopularLimit,
		ChunkScanLimit:     cfg.Chunking.MaxChunksPerSearch,
		SearchResultLimit:  cfg.Chunking.MaxSearchResults,
		Logger:             logger,
	})
	products := catalog.NewProductService(memCache, tracker, collector, store, manager, cfg.TTL.Product.Std())

	mon := monitor.New(memCache, tracker, collector, monitor.Options{
		Interval:     cfg.Monitor.Interval.Std(),
		ErrorBackoff: cfg.Monitor.ErrorBackoff.Std(),
		Thresholds:   monitorThresholds(cfg.Monitor),
		Logger:       logger,
	})

	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.OnChange(func(updated *config.Config) {
		mon.UpdateThresholds(monitorThresholds(updated.Monitor))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	memCache.Start(ctx)
	defer memCache.Stop()
	mon.Start(ctx)
	defer mon.Stop()

	router := handlers.NewRouter(handlers.RouterDeps{
		Cache:          memCache,
		Monitor:        mon,
		Manager:        manager,
		Products:       products,
		MetricsHandler: collector.Handler(),
		HTTPObserver:   collector,
		WarmupObserver: collector,
		CORS:           cfg.CORS,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("environment", string(cfg.Environment)))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func buildLogger(logging config.Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(logging.Level)
	if err != nil {
		return nil, err
	}

	var zapCfg zap.Config
	if logging.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func monitorThresholds(m config.Monitor) monitor.Thresholds {
	return monitor.Thresholds{
		MaxItems:                int(m.MaxItems),
		MinHitRatio:             m.MinHitRatio,
		MaxMemoryMB:             float64(m.MaxMemoryMB),
		ExpiredBacklog:          int(m.ExpiredBacklog),
		EvictionAccessThreshold: m.EvictionAccessThreshold,
		EvictionBatch:           m.EvictionBatch,
	}
}

// seedDemoCatalog loads a small fixture so the service answers requests out
// of the box. A real deployment swaps the memory store for a database-backed
// DataSource.
func seedDemoCatalog(store *repository.MemoryStore) {
	now := time.Now()
	store.SetTenants([]catalog.Tenant{
		{ID: 1, Name: "Demo Cafe", IsActive: true, CreatedDate: now},
	})
	store.SetCategories(1, []catalog.Category{
		{ID: 1, TenantID: 1, Name: "Coffee"},
		{ID: 2, TenantID: 1, Name: "Pastry"},
	})
	store.SetProducts(1, []catalog.Product{
		{ID: 1, TenantID: 1, Name: "Espresso", CategoryID: 1, CategoryName: "Coffee", Price: 2.50, CreatedDate: now},
		{ID: 2, TenantID: 1, Name: "Cappuccino", CategoryID: 1, CategoryName: "Coffee", Price: 3.50, CreatedDate: now},
		{ID: 3, TenantID: 1, Name: "Croissant", CategoryID: 2, CategoryName: "Pastry", Price: 2.00, CreatedDate: now},
	})
}
