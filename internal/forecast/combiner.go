package forecast

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/model"
	"github.com/andresuchdata/replenish/internal/snapshot"
)

// Artifacts is the read-only view of the model store the combiner needs.
type Artifacts interface {
	Seasonal(productID string) (*model.SeasonalModel, error)
	Regressor() model.Regressor
	Scaler() *model.StandardScaler
}

// Combiner blends seasonal and feature predictions for one product at a time.
// It holds no mutable state and may be shared across goroutines.
type Combiner struct {
	artifacts Artifacts
	snapshot  *snapshot.Snapshot
}

func NewCombiner(artifacts Artifacts, snap *snapshot.Snapshot) (*Combiner, error) {
	if artifacts == nil || artifacts.Regressor() == nil || artifacts.Scaler() == nil {
		return nil, fmt.Errorf("combiner: %w", domain.ErrArtifactLoad)
	}
	if snap == nil {
		return nil, fmt.Errorf("combiner: nil snapshot")
	}
	return &Combiner{artifacts: artifacts, snapshot: snap}, nil
}

// Forecast returns exactly horizon points for productID, dated from the day
// after the snapshot's last known date.
func (c *Combiner) Forecast(ctx context.Context, productID string, horizon int) (domain.ForecastSequence, error) {
	if horizon <= 0 {
		return domain.ForecastSequence{}, fmt.Errorf("horizon %d: %w", horizon, domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return domain.ForecastSequence{}, err
	}

	seasonal, err := c.artifacts.Seasonal(productID)
	if err != nil {
		return domain.ForecastSequence{}, err
	}
	row, err := c.snapshot.Latest(productID)
	if err != nil {
		return domain.ForecastSequence{}, err
	}

	lastKnown := c.snapshot.LastKnownDate
	dates := FutureDates(lastKnown, horizon)

	// 1. Seasonal model over the whole date vector
	seasonalPreds := seasonal.Predict(dates)

	// 2. Feature model on scaled calendar + held-constant rolling features
	scaled, err := c.artifacts.Scaler().Transform(FeatureMatrix(row, dates))
	if err != nil {
		return domain.ForecastSequence{}, fmt.Errorf("product %s: %w", productID, err)
	}
	featurePreds, err := c.artifacts.Regressor().Predict(scaled)
	if err != nil {
		return domain.ForecastSequence{}, fmt.Errorf("product %s: %w", productID, err)
	}
	if len(seasonalPreds) != horizon || len(featurePreds) != horizon {
		return domain.ForecastSequence{}, fmt.Errorf("product %s: model returned %d/%d points for horizon %d",
			productID, len(seasonalPreds), len(featurePreds), horizon)
	}

	// 3. Blend
	points := make([]domain.ForecastPoint, horizon)
	for i, d := range dates {
		sp := seasonalPreds[i]
		points[i] = domain.ForecastPoint{
			Date:               d,
			SeasonalPrediction: sp.Yhat,
			FeaturePrediction:  featurePreds[i],
			CombinedPrediction: domain.Blend(sp.Yhat, featurePreds[i]),
			LowerBound:         sp.Lower,
			UpperBound:         sp.Upper,
		}
	}

	log.Debug().
		Str("product_id", productID).
		Int("horizon", horizon).
		Msg("forecast combined")

	return domain.ForecastSequence{
		ProductID:     productID,
		LastKnownDate: lastKnown,
		Points:        points,
	}, nil
}
