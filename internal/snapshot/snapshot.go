package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Snapshot is the latest feature row per product plus the last date seen
// anywhere in the sales table.
type Snapshot struct {
	LastKnownDate time.Time
	rows          map[string]domain.FeatureRow
}

// New builds a snapshot from arbitrary rows, keeping the latest row of each
// product. LastKnownDate is the global maximum date.
func New(rows []domain.FeatureRow) *Snapshot {
	s := &Snapshot{rows: make(map[string]domain.FeatureRow)}
	for _, r := range rows {
		s.add(r)
	}
	return s
}

func (s *Snapshot) add(r domain.FeatureRow) {
	if current, ok := s.rows[r.ProductID]; !ok || !r.Date.Before(current.Date) {
		s.rows[r.ProductID] = r
	}
	if r.Date.After(s.LastKnownDate) {
		s.LastKnownDate = r.Date
	}
}

// Latest returns the feature row of productID or ErrSnapshotMissing.
func (s *Snapshot) Latest(productID string) (domain.FeatureRow, error) {
	r, ok := s.rows[productID]
	if !ok {
		return domain.FeatureRow{}, fmt.Errorf("product %s: %w", productID, domain.ErrSnapshotMissing)
	}
	return r, nil
}

// ProductIDs returns every product with a feature row, sorted.
func (s *Snapshot) ProductIDs() []string {
	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Snapshot) Len() int { return len(s.rows) }

// StockTable maps product id to current stock.
type StockTable map[string]float64

// Lookup returns the current stock of productID or ErrStockMissing.
func (t StockTable) Lookup(productID string) (float64, error) {
	v, ok := t[productID]
	if !ok {
		return 0, fmt.Errorf("product %s: %w", productID, domain.ErrStockMissing)
	}
	return v, nil
}

// Levels returns the table as rows sorted by product id.
func (t StockTable) Levels() []domain.StockLevel {
	out := make([]domain.StockLevel, 0, len(t))
	for id, v := range t {
		out = append(out, domain.StockLevel{ProductID: id, CurrentStock: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// DeriveCurrentStock uses each product's latest stock_level as its current stock.
func DeriveCurrentStock(s *Snapshot) StockTable {
	table := make(StockTable, len(s.rows))
	for id, r := range s.rows {
		table[id] = r.StockLevel
	}
	return table
}

// Reader loads the feature snapshot.
type Reader interface {
	ReadSnapshot(ctx context.Context) (*Snapshot, error)
}

// StockReader loads the current-stock lookup.
type StockReader interface {
	ReadCurrentStock(ctx context.Context) (StockTable, error)
}
