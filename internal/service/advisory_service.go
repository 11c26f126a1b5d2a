package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/advisor"
	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/modelstore"
	"github.com/andresuchdata/replenish/internal/pipeline"
	"github.com/andresuchdata/replenish/internal/snapshot"
)

const dateLayout = "2006-01-02"

// ProductCatalog answers whether a product exists.
type ProductCatalog interface {
	Exists(ctx context.Context, productID string) (bool, error)
}

// AdvisoryService serves the single product prediction and advice calls and
// the configurable batch path.
type AdvisoryService struct {
	registry  *modelstore.Registry
	snapshots snapshot.Reader
	catalog   ProductCatalog
	cache     cache.ForecastCache
	batch     *pipeline.Orchestrator

	mu   sync.RWMutex
	snap *snapshot.Snapshot
}

type Option func(*AdvisoryService)

// WithCatalog checks products against catalog before any forecast. Without
// it only the model store decides whether a product is known.
func WithCatalog(catalog ProductCatalog) Option {
	return func(s *AdvisoryService) { s.catalog = catalog }
}

func WithForecastCache(c cache.ForecastCache) Option {
	return func(s *AdvisoryService) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithBatch(o *pipeline.Orchestrator) Option {
	return func(s *AdvisoryService) { s.batch = o }
}

func NewAdvisoryService(registry *modelstore.Registry, snapshots snapshot.Reader, opts ...Option) *AdvisoryService {
	s := &AdvisoryService{
		registry:  registry,
		snapshots: snapshots,
		cache:     cache.NewNoopForecastCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshSnapshot rereads the feature snapshot. Cached predictions are keyed
// by snapshot date so older entries are simply no longer hit.
func (s *AdvisoryService) RefreshSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	snap, err := s.snapshots.ReadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	log.Info().
		Int("products", snap.Len()).
		Str("last_known_date", snap.LastKnownDate.Format(dateLayout)).
		Msg("advisory: snapshot refreshed")
	return snap, nil
}

func (s *AdvisoryService) currentSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return s.RefreshSnapshot(ctx)
}

func (s *AdvisoryService) checkProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return fmt.Errorf("empty product id: %w", domain.ErrInvalidInput)
	}
	if s.catalog == nil {
		return nil
	}
	ok, err := s.catalog.Exists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("product %s: %w", productID, domain.ErrProductNotFound)
	}
	return nil
}

func (s *AdvisoryService) forecast(ctx context.Context, productID string, horizon int) (domain.ForecastSequence, *snapshot.Snapshot, error) {
	store, err := s.registry.Current()
	if err != nil {
		return domain.ForecastSequence{}, nil, err
	}
	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return domain.ForecastSequence{}, nil, err
	}
	combiner, err := forecast.NewCombiner(store, snap)
	if err != nil {
		return domain.ForecastSequence{}, nil, err
	}
	seq, err := combiner.Forecast(ctx, productID, horizon)
	if err != nil {
		return domain.ForecastSequence{}, nil, err
	}
	return seq, snap, nil
}

// Predict returns daysAhead points of blended demand with the seasonal bounds.
func (s *AdvisoryService) Predict(ctx context.Context, productID string, daysAhead int) ([]domain.PredictionPoint, error) {
	if daysAhead <= 0 {
		return nil, fmt.Errorf("days ahead %d: %w", daysAhead, domain.ErrInvalidInput)
	}
	if err := s.checkProduct(ctx, productID); err != nil {
		return nil, err
	}

	snap, err := s.currentSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	key := cache.ForecastKey{ProductID: productID, Horizon: daysAhead, SnapshotDate: snap.LastKnownDate}
	if points, ok, err := s.cache.GetPredictions(ctx, key); err == nil && ok {
		return points, nil
	} else if err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("advisory: cache get predictions failed")
	}

	seq, _, err := s.forecast(ctx, productID, daysAhead)
	if err != nil {
		return nil, err
	}
	points := PredictionPoints(seq)

	if err := s.cache.SetPredictions(ctx, key, points); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("advisory: cache set predictions failed")
	}

	return points, nil
}

// Advise runs the fixed lead 7 / safety 5 policy on a 30 day forecast.
func (s *AdvisoryService) Advise(ctx context.Context, productID string, currentStock int) (domain.QuickAdvice, error) {
	if currentStock < 0 {
		return domain.QuickAdvice{}, fmt.Errorf("current stock %d: %w", currentStock, domain.ErrInvalidInput)
	}
	if err := s.checkProduct(ctx, productID); err != nil {
		return domain.QuickAdvice{}, err
	}

	seq, _, err := s.forecast(ctx, productID, advisor.QuickHorizonDays)
	if err != nil {
		return domain.QuickAdvice{}, err
	}
	return advisor.Quick(seq, currentStock)
}

// BatchRequest is the configurable advisory path.
type BatchRequest struct {
	ProductIDs []string
	Horizon    int
	Policy     *advisor.Policy
}

// ErrBatchDisabled is returned by RunBatch when no orchestrator is wired.
var ErrBatchDisabled = errors.New("batch advisory not configured")

func (s *AdvisoryService) RunBatch(ctx context.Context, req BatchRequest) (*pipeline.BatchResult, error) {
	if s.batch == nil {
		return nil, ErrBatchDisabled
	}
	if req.Policy != nil {
		if err := req.Policy.Validate(); err != nil {
			return nil, err
		}
	}
	if req.Horizon < 0 {
		return nil, fmt.Errorf("horizon %d: %w", req.Horizon, domain.ErrInvalidInput)
	}
	return s.batch.Run(ctx, pipeline.RunRequest{
		ProductIDs: req.ProductIDs,
		Horizon:    req.Horizon,
		Policy:     req.Policy,
	})
}

// ReloadModels reloads the model store and the snapshot together.
func (s *AdvisoryService) ReloadModels(ctx context.Context) error {
	if _, err := s.registry.Reload(ctx); err != nil {
		return err
	}
	if _, err := s.RefreshSnapshot(ctx); err != nil {
		return err
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("advisory: cache invalidate failed")
	}
	return nil
}

// PredictionPoints converts a forecast into its API shape.
func PredictionPoints(seq domain.ForecastSequence) []domain.PredictionPoint {
	points := make([]domain.PredictionPoint, len(seq.Points))
	for i, p := range seq.Points {
		points[i] = domain.PredictionPoint{
			Date:            p.Date.Format(dateLayout),
			PredictedDemand: p.CombinedPrediction,
			LowerBound:      p.LowerBound,
			UpperBound:      p.UpperBound,
		}
	}
	return points
}
