package modelstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/model"
	"github.com/andresuchdata/replenish/internal/storage"
)

const (
	SeasonalDir      = "seasonal"
	FeatureModelFile = "feature_model.json"
	ScalerFile       = "scaler.json"

	defaultLoadConcurrency = 8
)

// LoadOptions tunes Load.
type LoadOptions struct {
	Concurrency int
}

// Load reads every artifact below prefix eagerly. Shared artifact failures
// wrap ErrArtifactLoad; a malformed seasonal model fails the whole load.
func Load(ctx context.Context, objects storage.ObjectStorage, prefix string, opts LoadOptions) (*Store, error) {
	start := time.Now()
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultLoadConcurrency
	}

	seasonalPrefix := storage.JoinKey(prefix, SeasonalDir) + "/"
	listed, err := objects.ListObjects(ctx, seasonalPrefix)
	if err != nil {
		return nil, fmt.Errorf("list seasonal models: %w", err)
	}

	var (
		regressor model.Regressor
		scaler    *model.StandardScaler
		mu        sync.Mutex
		seasonal  = make(map[string]*model.SeasonalModel, len(listed))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	g.Go(func() error {
		data, err := objects.GetObject(gctx, storage.JoinKey(prefix, FeatureModelFile))
		if err != nil {
			return fmt.Errorf("feature model: %w: %v", domain.ErrArtifactLoad, err)
		}
		r, err := model.ParseRegressor(data)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrArtifactLoad, err)
		}
		regressor = r
		return nil
	})

	g.Go(func() error {
		data, err := objects.GetObject(gctx, storage.JoinKey(prefix, ScalerFile))
		if err != nil {
			return fmt.Errorf("scaler: %w: %v", domain.ErrArtifactLoad, err)
		}
		s, err := model.ParseScaler(data)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrArtifactLoad, err)
		}
		scaler = s
		return nil
	})

	for _, obj := range listed {
		key := obj.Key
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		productID := strings.TrimSuffix(path.Base(key), ".json")

		g.Go(func() error {
			data, err := objects.GetObject(gctx, key)
			if err != nil {
				return fmt.Errorf("seasonal model %s: %w", productID, err)
			}
			m, err := model.ParseSeasonalModel(data)
			if err != nil {
				return fmt.Errorf("seasonal model %s: %w", productID, err)
			}
			if m.ProductID != productID {
				return fmt.Errorf("seasonal model %s declares product %s", key, m.ProductID)
			}

			mu.Lock()
			seasonal[productID] = m
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	store, err := NewStore(seasonal, regressor, scaler)
	if err != nil {
		return nil, err
	}
	store.prefix = prefix

	log.Info().
		Str("prefix", prefix).
		Int("seasonal_models", len(seasonal)).
		Str("regressor", regressor.Kind()).
		Dur("duration", time.Since(start)).
		Msg("model store loaded")

	return store, nil
}

// IsArtifactLoad reports whether err came from a shared artifact.
func IsArtifactLoad(err error) bool {
	return errors.Is(err, domain.ErrArtifactLoad)
}
