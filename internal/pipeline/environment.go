package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/modelstore"
	"github.com/andresuchdata/replenish/internal/snapshot"
	"github.com/andresuchdata/replenish/internal/storage"
)

// Environment is the loaded, read-only state one batch runs against.
type Environment struct {
	Forecaster    Forecaster
	Stock         StockLookup
	Catalog       []string
	LastKnownDate time.Time
}

// EnvironmentLoader builds an Environment; its errors are fatal for a batch.
type EnvironmentLoader func(ctx context.Context) (*Environment, error)

// CatalogReader lists the products a batch should cover.
type CatalogReader interface {
	ListProductIDs(ctx context.Context) ([]string, error)
}

// Sources names where the artifacts and tables of a batch come from.
type Sources struct {
	Objects         storage.ObjectStorage
	ModelPrefix     string
	LoadConcurrency int

	Snapshots snapshot.Reader
	// Stock is optional; without it the current stock is each product's
	// latest stock_level in the snapshot.
	Stock snapshot.StockReader
	// Catalog is optional; without it the batch covers every product with a
	// seasonal model.
	Catalog CatalogReader
}

// LoadEnvironment loads models, snapshot, stock and catalog concurrently and
// waits for all of them before any forecast runs.
func LoadEnvironment(ctx context.Context, src Sources) (*Environment, error) {
	var (
		store   *modelstore.Store
		snap    *snapshot.Snapshot
		stock   snapshot.StockTable
		catalog []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		store, err = modelstore.Load(gctx, src.Objects, src.ModelPrefix, modelstore.LoadOptions{Concurrency: src.LoadConcurrency})
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = src.Snapshots.ReadSnapshot(gctx)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		return nil
	})
	if src.Stock != nil {
		g.Go(func() error {
			var err error
			stock, err = src.Stock.ReadCurrentStock(gctx)
			if err != nil {
				return fmt.Errorf("current stock: %w", err)
			}
			return nil
		})
	}
	if src.Catalog != nil {
		g.Go(func() error {
			var err error
			catalog, err = src.Catalog.ListProductIDs(gctx)
			if err != nil {
				return fmt.Errorf("catalog: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewEnvironment(store, snap, stock, catalog)
}

// NewEnvironment assembles an Environment from already loaded parts. A nil
// stock table is derived from the snapshot and a nil catalog covers every
// product with a seasonal model.
func NewEnvironment(store *modelstore.Store, snap *snapshot.Snapshot, stock snapshot.StockTable, catalog []string) (*Environment, error) {
	if store == nil || snap == nil {
		return nil, fmt.Errorf("environment needs a model store and a snapshot")
	}
	if stock == nil {
		stock = snapshot.DeriveCurrentStock(snap)
	}
	if catalog == nil {
		catalog = store.ProductIDs()
	}

	combiner, err := forecast.NewCombiner(store, snap)
	if err != nil {
		return nil, err
	}

	return &Environment{
		Forecaster:    combiner,
		Stock:         stock,
		Catalog:       catalog,
		LastKnownDate: snap.LastKnownDate,
	}, nil
}
