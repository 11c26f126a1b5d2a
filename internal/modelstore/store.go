package modelstore

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/model"
)

// Store holds the fitted artifacts of one load. It is never mutated after
// construction and is safe for concurrent readers.
type Store struct {
	seasonal  map[string]*model.SeasonalModel
	regressor model.Regressor
	scaler    *model.StandardScaler
	prefix    string
	loadedAt  time.Time
}

// NewStore validates and assembles a store. A nil regressor or scaler is an
// artifact load error.
func NewStore(seasonal map[string]*model.SeasonalModel, regressor model.Regressor, scaler *model.StandardScaler) (*Store, error) {
	if regressor == nil {
		return nil, fmt.Errorf("feature model: %w", domain.ErrArtifactLoad)
	}
	if scaler == nil {
		return nil, fmt.Errorf("scaler: %w", domain.ErrArtifactLoad)
	}

	models := make(map[string]*model.SeasonalModel, len(seasonal))
	for id, m := range seasonal {
		if m == nil {
			return nil, fmt.Errorf("seasonal model %s is nil", id)
		}
		if m.ProductID != id {
			return nil, fmt.Errorf("seasonal model registered as %s belongs to %s", id, m.ProductID)
		}
		models[id] = m
	}

	return &Store{
		seasonal:  models,
		regressor: regressor,
		scaler:    scaler,
		loadedAt:  time.Now().UTC(),
	}, nil
}

// Seasonal returns the seasonal model of productID or ErrModelNotFound.
func (s *Store) Seasonal(productID string) (*model.SeasonalModel, error) {
	m, ok := s.seasonal[productID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", productID, domain.ErrModelNotFound)
	}
	return m, nil
}

func (s *Store) Regressor() model.Regressor { return s.regressor }

func (s *Store) Scaler() *model.StandardScaler { return s.scaler }

// ProductIDs returns the products with a seasonal model, sorted.
func (s *Store) ProductIDs() []string {
	ids := make([]string, 0, len(s.seasonal))
	for id := range s.seasonal {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Info describes a loaded store.
type Info struct {
	Prefix        string    `json:"prefix"`
	LoadedAt      time.Time `json:"loaded_at"`
	RegressorKind string    `json:"regressor_kind"`
	Features      []string  `json:"features"`
	ProductCount  int       `json:"product_count"`
	Products      []string  `json:"products"`
}

func (s *Store) Info() Info {
	ids := s.ProductIDs()
	return Info{
		Prefix:        s.prefix,
		LoadedAt:      s.loadedAt,
		RegressorKind: s.regressor.Kind(),
		Features:      model.FeatureNames,
		ProductCount:  len(ids),
		Products:      ids,
	}
}
