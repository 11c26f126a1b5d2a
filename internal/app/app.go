// Package app wires configuration into the stores, readers and sinks shared
// by the server and the advisor command.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/modelstore"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/repository/postgres"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/snapshot"
	"github.com/andresuchdata/replenish/internal/storage"
)

// XLSXFileName is the workbook written into the pipeline output directory.
const XLSXFileName = "inventory_advice.xlsx"

type App struct {
	Config   *config.Config
	Objects  storage.ObjectStorage
	Registry *modelstore.Registry
	Cache    cache.ForecastCache

	Snapshots snapshot.Reader
	// Stock is nil when current stock is derived from the snapshot.
	Stock snapshot.StockReader

	pool    *pgxpool.Pool
	db      *postgres.DB
	catalog *postgres.CatalogRepository
	runs    *postgres.RunRepository
	results *postgres.ResultRepository
	stock   *postgres.StockRepository
	sales   *postgres.SalesRepository
}

// New opens object storage and, when enabled, postgres and redis. Models are
// not loaded until LoadModels.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	objects, err := storage.New(ctx, cfg.Storage.ObjectStorage())
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	a := &App{Config: cfg, Objects: objects}
	a.Registry = modelstore.NewRegistry(func(ctx context.Context) (*modelstore.Store, error) {
		return modelstore.Load(ctx, objects, cfg.Forecast.ModelPrefix, modelstore.LoadOptions{
			Concurrency: cfg.Forecast.LoadConcurrency,
		})
	})

	if cfg.Database.Enabled {
		if err := a.openDatabase(ctx); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		source := &snapshot.StorageSource{Objects: objects, SalesKey: cfg.Forecast.SalesKey, StockKey: cfg.Forecast.StockKey}
		a.Snapshots = source
		if cfg.Forecast.StockKey != "" {
			a.Stock = source
		}
	}

	fc, err := cache.NewForecastCache(ctx, cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("forecast cache unavailable, continuing without cache")
		fc = cache.NewNoopForecastCache()
	}
	a.Cache = fc

	return a, nil
}

func (a *App) openDatabase(ctx context.Context) error {
	pool, err := postgres.NewPool(ctx, &a.Config.Database)
	if err != nil {
		return err
	}
	a.pool = pool

	db, err := postgres.NewDB(&a.Config.Database)
	if err != nil {
		return err
	}
	a.db = db
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	a.Snapshots = postgres.NewSnapshotRepository(pool)
	a.stock = postgres.NewStockRepository(pool)
	a.Stock = a.stock
	a.catalog = postgres.NewCatalogRepository(pool)
	a.runs = postgres.NewRunRepository(pool)
	a.results = postgres.NewResultRepository(db)
	a.sales = postgres.NewSalesRepository(pool)
	return nil
}

// LoadModels performs the first model store load.
func (a *App) LoadModels(ctx context.Context) error {
	store, err := a.Registry.Reload(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("products", len(store.ProductIDs())).Str("regressor", store.Regressor().Kind()).Msg("models loaded")
	return nil
}

// Sources describes where a batch environment is loaded from.
func (a *App) Sources() pipeline.Sources {
	src := pipeline.Sources{
		Objects:         a.Objects,
		ModelPrefix:     a.Config.Forecast.ModelPrefix,
		LoadConcurrency: a.Config.Forecast.LoadConcurrency,
		Snapshots:       a.Snapshots,
		Stock:           a.Stock,
	}
	if a.catalog != nil {
		src.Catalog = a.catalog
	}
	return src
}

// Sinks returns the result sinks enabled by configuration.
func (a *App) Sinks() []pipeline.ResultSink {
	cfg := a.Config.Pipeline
	var sinks []pipeline.ResultSink
	if cfg.OutputDir != "" {
		sinks = append(sinks, pipeline.NewCSVSink(cfg.OutputDir))
		if cfg.XLSXEnabled {
			sinks = append(sinks, pipeline.NewXLSXSink(filepath.Join(cfg.OutputDir, XLSXFileName)))
		}
	}
	if cfg.ResultsPrefix != "" {
		sinks = append(sinks, pipeline.NewObjectStorageSink(a.Objects, cfg.ResultsPrefix))
	}
	if a.results != nil {
		sinks = append(sinks, a.results)
	}
	return sinks
}

// Orchestrator builds the batch orchestrator. Every run reloads models and
// tables so batches never see a half updated environment.
func (a *App) Orchestrator(name string) (*pipeline.Orchestrator, error) {
	bc := pipeline.BatchConfig{
		Name:        name,
		WorkerCount: a.Config.Pipeline.WorkerCount,
		Horizon:     a.Config.Forecast.BatchHorizon,
		Policy:      a.Config.Advisor,
	}
	opts := []pipeline.Option{pipeline.WithSinks(a.Sinks()...)}
	if a.runs != nil {
		opts = append(opts, pipeline.WithRunRecorder(a.runs))
	}

	src := a.Sources()
	return pipeline.NewOrchestrator(bc, func(ctx context.Context) (*pipeline.Environment, error) {
		return pipeline.LoadEnvironment(ctx, src)
	}, opts...)
}

// AdvisoryService builds the service behind the HTTP API.
func (a *App) AdvisoryService(batch *pipeline.Orchestrator) *service.AdvisoryService {
	opts := []service.Option{service.WithForecastCache(a.Cache)}
	if a.catalog != nil {
		opts = append(opts, service.WithCatalog(a.catalog))
	}
	if batch != nil {
		opts = append(opts, service.WithBatch(batch))
	}
	return service.NewAdvisoryService(a.Registry, a.Snapshots, opts...)
}

// SalesImporter returns the postgres sales table, or nil without a database.
func (a *App) SalesImporter() *postgres.SalesRepository {
	return a.sales
}

// StockWriter returns the postgres stock table, or nil without a database.
func (a *App) StockWriter() *postgres.StockRepository {
	return a.stock
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
}
